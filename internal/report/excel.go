// Package report renders floor plans and database dumps as xlsx workbooks.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// maxSheetName is the Excel limit on sheet names.
const maxSheetName = 31

// Writer appends sheets and rows to an in-memory workbook.
type Writer struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
	sheets       map[string]struct{}
}

// NewWriter creates an empty workbook.
func NewWriter() *Writer {
	return &Writer{
		file:   excelize.NewFile(),
		sheets: make(map[string]struct{}),
	}
}

// AddSheet starts a new sheet. Duplicate names get a numeric suffix.
func (w *Writer) AddSheet(name string) error {
	name = w.uniqueName(name)

	if w.currentSheet == "" {
		// The first sheet replaces excelize's default one.
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	w.sheets[name] = struct{}{}
	w.currentSheet = name
	w.currentRow = 1
	return nil
}

func (w *Writer) uniqueName(name string) string {
	if name == "" {
		name = "Sheet"
	}
	base := truncate(name, maxSheetName)
	candidate := base
	for i := 2; ; i++ {
		if _, taken := w.sheets[candidate]; !taken {
			return candidate
		}
		suffix := fmt.Sprintf(" (%d)", i)
		candidate = truncate(base, maxSheetName-len(suffix)) + suffix
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}

// WriteHeader writes bold column headers to the current sheet.
func (w *Writer) WriteHeader(columns []string) error {
	row := make([]any, len(columns))
	for i, c := range columns {
		row[i] = c
	}
	start := w.currentRow
	if err := w.WriteRow(row); err != nil {
		return err
	}

	style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil && len(columns) > 0 {
		from, _ := excelize.CoordinatesToCellName(1, start)
		to, _ := excelize.CoordinatesToCellName(len(columns), start)
		_ = w.file.SetCellStyle(w.currentSheet, from, to, style)
	}
	return nil
}

// WriteRow writes a data row to the current sheet.
func (w *Writer) WriteRow(row []any) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, val); err != nil {
			return err
		}
	}

	w.currentRow++
	return nil
}

// Save writes the workbook to wr.
func (w *Writer) Save(wr io.Writer) error {
	return w.file.Write(wr)
}

// SaveToFile writes the workbook to disk.
func (w *Writer) SaveToFile(path string) error {
	return w.file.SaveAs(path)
}

// Close releases resources.
func (w *Writer) Close() error {
	return w.file.Close()
}
