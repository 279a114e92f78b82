// Package report renders archived weeks as styled spreadsheets.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"vontta/internal/archive"
)

const (
	TasksSheet = "Atividades"
	BoardSheet = "Quadro"
	Title      = "Vontta - Relatório Semanal"

	headerRow = 4
)

var (
	taskWidths  = []float64{24, 18, 22, 40, 40, 16, 14, 14, 10, 36}
	boardWidths = []float64{32, 14, 14, 14, 32, 48}
)

type styles struct {
	title, subtitle, header, cell int
}

// WriteXLSX writes rep as a two-sheet workbook. week is the date shown in
// the subtitle, already formatted for display.
func WriteXLSX(w io.Writer, rep archive.Report, week string) error {
	f := excelize.NewFile()
	defer f.Close()

	st, err := newStyles(f)
	if err != nil {
		return err
	}
	if err := f.SetSheetName("Sheet1", TasksSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(BoardSheet); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	taskRows := make([][]string, len(rep.Tasks))
	for i, r := range rep.Tasks {
		taskRows[i] = r.Values()
	}
	if err := writeSheet(f, st, TasksSheet, week, archive.TaskColumns, taskWidths, taskRows); err != nil {
		return err
	}
	boardRows := make([][]string, len(rep.Board))
	for i, r := range rep.Board {
		boardRows[i] = r.Values()
	}
	if err := writeSheet(f, st, BoardSheet, week, archive.BoardColumns, boardWidths, boardRows); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func newStyles(f *excelize.File) (styles, error) {
	thin := func(color string) []excelize.Border {
		return []excelize.Border{
			{Type: "left", Color: color, Style: 1},
			{Type: "top", Color: color, Style: 1},
			{Type: "right", Color: color, Style: 1},
			{Type: "bottom", Color: color, Style: 1},
		}
	}
	var st styles
	var err error
	st.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"1F3864"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return st, fmt.Errorf("title style: %w", err)
	}
	st.subtitle, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Italic: true, Size: 11, Color: "1F3864"},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return st, fmt.Errorf("subtitle style: %w", err)
	}
	st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"2F75B5"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    thin("000000"),
	})
	if err != nil {
		return st, fmt.Errorf("header style: %w", err)
	}
	st.cell, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
		Border:    thin("BFBFBF"),
	})
	if err != nil {
		return st, fmt.Errorf("cell style: %w", err)
	}
	return st, nil
}

func writeSheet(f *excelize.File, st styles, sheet, week string, columns []string, widths []float64, rows [][]string) error {
	last, err := excelize.ColumnNumberToName(len(columns))
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, "A1", Title); err != nil {
		return err
	}
	if err := f.MergeCell(sheet, "A1", last+"1"); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last+"1", st.title); err != nil {
		return err
	}
	if err := f.SetRowHeight(sheet, 1, 30); err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, "A2", "Semana de: "+week); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A2", "A2", st.subtitle); err != nil {
		return err
	}

	for i, name := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, headerRow)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return err
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		if i < len(widths) {
			if err := f.SetColWidth(sheet, col, col, widths[i]); err != nil {
				return err
			}
		}
	}
	if err := f.SetCellStyle(sheet, "A4", fmt.Sprintf("%s%d", last, headerRow), st.header); err != nil {
		return err
	}

	for r, values := range rows {
		rowNum := headerRow + 1 + r
		for c, v := range values {
			cell, err := excelize.CoordinatesToCellName(c+1, rowNum)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	if len(rows) > 0 {
		end := fmt.Sprintf("%s%d", last, headerRow+len(rows))
		if err := f.SetCellStyle(sheet, "A5", end, st.cell); err != nil {
			return err
		}
	}
	return nil
}
