package functions

import (
	"time"
)

// serialEpoch is day zero of spreadsheet serial dates
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// ToSerialDate converts a time to a spreadsheet serial number: days since
// 1899-12-30, the fraction being the time of day
func ToSerialDate(t time.Time) float64 {
	local := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	return local.Sub(serialEpoch).Hours() / 24
}

// FromSerialDate converts a serial number back to a time
func FromSerialDate(serial float64) time.Time {
	return serialEpoch.Add(time.Duration(serial * 24 * float64(time.Hour)))
}
