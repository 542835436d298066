package macro

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// PreferredSheets lists working-sheet names in lookup order. When none
// matches, the first visible sheet is used.
var PreferredSheets = []string{"Macro", "MACRO", "Hoja1", "Resumen"}

// ConfigSheets lists accepted names for the issuer configuration sheet.
var ConfigSheets = []string{"CLIENTES", "Clientes", "clientes", "EMISORES", "EMISOR", "CONFIG", "Config"}

// Workbook wraps an open spreadsheet and the sheet/row access the pipeline
// needs. Close must be called when done.
type Workbook struct {
	path string
	f    *excelize.File
}

// OpenWorkbook opens an .xlsx/.xlsm file for reading.
func OpenWorkbook(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	return &Workbook{path: path, f: f}, nil
}

// Close releases the underlying file.
func (w *Workbook) Close() error {
	return w.f.Close()
}

// Path returns the file path the workbook was opened from.
func (w *Workbook) Path() string {
	return w.path
}

// SheetNames returns all sheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	return w.f.GetSheetList()
}

// FindSheet returns the first sheet whose name matches a candidate,
// case-insensitively.
func (w *Workbook) FindSheet(candidates []string) (string, bool) {
	byLower := make(map[string]string)
	for _, n := range w.SheetNames() {
		if _, ok := byLower[strings.ToLower(n)]; !ok {
			byLower[strings.ToLower(n)] = n
		}
	}
	for _, cand := range candidates {
		if n, ok := byLower[strings.ToLower(cand)]; ok {
			return n, true
		}
	}
	return "", false
}

// WorkingSheet picks the primary data sheet: a preferred name if present,
// else the first visible sheet, else the first sheet.
func (w *Workbook) WorkingSheet() (string, error) {
	if n, ok := w.FindSheet(PreferredSheets); ok {
		return n, nil
	}
	names := w.SheetNames()
	for _, n := range names {
		if visible, err := w.f.GetSheetVisible(n); err == nil && visible {
			return n, nil
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("workbook %s has no sheets", w.path)
	}
	return names[0], nil
}

// NamedRows reads a sheet as one map per data row, keyed by the lower-cased
// trimmed header names of the first row. Cells under an empty header are
// dropped.
func (w *Workbook) NamedRows(sheet string) ([]map[string]string, error) {
	rows, err := w.Rows(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}
	out := make([]map[string]string, 0, len(rows)-1)
	for _, raw := range rows[1:] {
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			val := ""
			if i < len(raw) {
				val = strings.TrimSpace(raw[i])
			}
			row[h] = val
		}
		out = append(out, row)
	}
	return out, nil
}

// Rows reads a sheet as raw cell values, padding ragged rows to a uniform
// width. Raw values keep amounts locale-free and dates as serial numbers or
// plain strings, which ParseDate and CoerceNumber understand.
func (w *Workbook) Rows(sheet string) ([][]string, error) {
	rows, err := w.f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheet, err)
	}
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	for i, r := range rows {
		if len(r) < width {
			padded := make([]string, width)
			copy(padded, r)
			rows[i] = padded
		}
	}
	return rows, nil
}
