package model

import (
	"math"
	"strconv"
	"strings"

	"github.com/Raniani-lab/enterpriise-sub000/packages/functions"
)

var dateLayout = strings.NewReplacer(
	"yyyy", "2006",
	"hh:mm:ss", "15:04:05",
	"hh:mm", "15:04",
	"dd", "02",
	"mm", "01",
)

func isDateFormat(format string) bool {
	return strings.Contains(format, "yyyy") || strings.Contains(format, "dd") || strings.Contains(format, "hh")
}

// formatValue renders a value with an optional number format such as
// "0.00", "#,##0", "0%" or "yyyy-mm-dd"
func formatValue(v functions.Value, format string) string {
	switch val := v.(type) {
	case nil:
		return ""
	case *functions.EvaluationError:
		return val.Display()
	case loading:
		return val.String()
	case float64:
		if format == "" {
			return functions.FormatNumber(roundForDisplay(val))
		}
		return formatNumber(val, format)
	}
	return functions.ToString(v)
}

func formatNumber(n float64, format string) string {
	if isDateFormat(format) {
		return functions.FromSerialDate(n).Format(dateLayout.Replace(format))
	}
	suffix := ""
	if strings.HasSuffix(format, "%") {
		n *= 100
		suffix = "%"
		format = strings.TrimSuffix(format, "%")
	}
	decimals := 0
	if i := strings.Index(format, "."); i >= 0 {
		decimals = strings.Count(format[i+1:], "0")
	}
	text := strconv.FormatFloat(n, 'f', decimals, 64)
	if strings.Contains(format, ",") {
		text = groupThousands(text)
	}
	if text == "-"+strconv.FormatFloat(0, 'f', decimals, 64) {
		text = text[1:]
	}
	return text + suffix
}

func groupThousands(text string) string {
	sign := ""
	if strings.HasPrefix(text, "-") {
		sign, text = "-", text[1:]
	}
	integer, fraction := text, ""
	if i := strings.Index(text, "."); i >= 0 {
		integer, fraction = text[:i], text[i:]
	}
	var sb strings.Builder
	for i, ch := range integer {
		if i > 0 && (len(integer)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(ch)
	}
	return sign + sb.String() + fraction
}

// roundForDisplay hides float noise such as 0.1+0.2
func roundForDisplay(n float64) float64 {
	if n == 0 || math.IsInf(n, 0) || math.IsNaN(n) {
		return n
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(n, 'g', 15, 64), 64)
	if err != nil {
		return n
	}
	return r
}
