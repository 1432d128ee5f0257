package model

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"
)

// CurrentVersion is the workbook schema version this build reads and writes
const CurrentVersion = 3

// CellData is the persisted form of a cell. formulas are stored as typed.
type CellData struct {
	Content string `json:"content,omitempty"`
	Style   uint32 `json:"style,omitempty"`
	Format  uint32 `json:"format,omitempty"`
}

// SheetData is the persisted form of a sheet
type SheetData struct {
	ID     string              `json:"id"`
	Name   string              `json:"name"`
	Cols   int                 `json:"cols"`
	Rows   int                 `json:"rows"`
	Cells  map[string]CellData `json:"cells"`
	Merges []string            `json:"merges"`
}

// WorkbookData is the versioned document core plugins import and export
type WorkbookData struct {
	Version int               `json:"version"`
	Sheets  []SheetData       `json:"sheets"`
	Styles  map[uint32]string `json:"styles"`
	Formats map[uint32]string `json:"formats"`
}

// NewWorkbookData returns a workbook holding one empty sheet
func NewWorkbookData() *WorkbookData {
	return &WorkbookData{
		Version: CurrentVersion,
		Sheets: []SheetData{{
			ID:     DefaultSheetID,
			Name:   DefaultSheetName,
			Cols:   DefaultCols,
			Rows:   DefaultRows,
			Cells:  map[string]CellData{},
			Merges: []string{},
		}},
		Styles:  map[uint32]string{},
		Formats: map[uint32]string{},
	}
}

// migration moves a raw document from version n to n+1
type migration func(doc map[string]any) error

// migrations[i] upgrades version i+1 to i+2
var migrations = []migration{
	migrateCellsToMap,
	migrateAddMerges,
}

// Migrate reads a workbook document of any known version and upgrades it,
// one version at a time, to CurrentVersion. a document without version is
// version 1.
func Migrate(raw []byte) (*WorkbookData, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, appErrorf(InvalidArgument, "invalid workbook: %v", err)
	}
	version := 1
	if v, ok := doc["version"].(float64); ok {
		version = int(v)
	}
	if version < 1 || version > CurrentVersion {
		return nil, appErrorf(Unimplemented, "unsupported workbook version %d", version)
	}
	for ; version < CurrentVersion; version++ {
		if err := migrations[version-1](doc); err != nil {
			return nil, appErrorf(InvalidArgument, "failed to migrate workbook from version %d: %v", version, err)
		}
		doc["version"] = version + 1
	}

	data := &WorkbookData{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           data,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, appErrorf(Internal, "failed to build decoder: %v", err)
	}
	if err := decoder.Decode(doc); err != nil {
		return nil, appErrorf(InvalidArgument, "invalid workbook: %v", err)
	}
	if data.Styles == nil {
		data.Styles = map[uint32]string{}
	}
	if data.Formats == nil {
		data.Formats = map[uint32]string{}
	}
	for i := range data.Sheets {
		if data.Sheets[i].Cells == nil {
			data.Sheets[i].Cells = map[string]CellData{}
		}
	}
	return data, nil
}

func sheetsOf(doc map[string]any) ([]map[string]any, error) {
	raw, _ := doc["sheets"].([]any)
	sheets := make([]map[string]any, 0, len(raw))
	for _, s := range raw {
		sheet, ok := s.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("sheet is a %T, not an object", s)
		}
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}

// version 1 stored cells as a list of {xc, content, style, format}
func migrateCellsToMap(doc map[string]any) error {
	sheets, err := sheetsOf(doc)
	if err != nil {
		return err
	}
	for _, sheet := range sheets {
		list, _ := sheet["cells"].([]any)
		cells := make(map[string]any, len(list))
		for _, item := range list {
			cell, ok := item.(map[string]any)
			if !ok {
				return fmt.Errorf("cell is a %T, not an object", item)
			}
			xc, _ := cell["xc"].(string)
			if xc == "" {
				return fmt.Errorf("cell without xc in sheet %v", sheet["name"])
			}
			delete(cell, "xc")
			cells[xc] = cell
		}
		sheet["cells"] = cells
	}
	return nil
}

// version 3 added merges
func migrateAddMerges(doc map[string]any) error {
	sheets, err := sheetsOf(doc)
	if err != nil {
		return err
	}
	for _, sheet := range sheets {
		if _, ok := sheet["merges"]; !ok {
			sheet["merges"] = []any{}
		}
	}
	return nil
}

// MarshalWorkbook encodes a workbook with sorted keys
func MarshalWorkbook(data *WorkbookData) ([]byte, error) {
	return json.Marshal(data)
}

// SortedCellKeys returns the xc keys of a sheet in a stable order
func (s SheetData) SortedCellKeys() []string {
	keys := make([]string, 0, len(s.Cells))
	for k := range s.Cells {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
