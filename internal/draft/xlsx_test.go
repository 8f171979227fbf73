package draft

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for rowIdx, row := range rows {
		for colIdx, v := range row {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return &buf
}

func TestCreateFromXLSXMissingColumn(t *testing.T) {
	buf := buildWorkbook(t, [][]any{
		{"question", "option_a"},
		{"What is 2+2?", "4"},
	})

	s := NewService(nil)
	_, _, err := s.CreateFromXLSX(context.Background(), Meta{Title: "Maths"}, buf)
	if err == nil {
		t.Fatal("expected error for workbook without option_b column")
	}
}

func TestCreateFromXLSXAllRowsInvalid(t *testing.T) {
	buf := buildWorkbook(t, [][]any{
		{"question", "option_a", "option_b", "option_c", "option_d", "correct_answer"},
		{"", "1", "2", "3", "4", "A"},
		{"Only one option", "x", "", "", "", ""},
		{"Answer out of range", "x", "y", "", "", "D"},
	})

	s := NewService(nil)
	_, report, err := s.CreateFromXLSX(context.Background(), Meta{Title: "Maths"}, buf)
	if !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("err = %v, want ErrNoQuestions", err)
	}
	if report == nil {
		t.Fatal("expected a row report even when nothing imports")
	}
	if report.TotalRows != 3 || report.FailedRows != 3 || report.SuccessRows != 0 {
		t.Fatalf("report = %+v, want 3 total, 3 failed", report)
	}
	for _, e := range report.Errors {
		if e.Row < 2 || e.Error == "" {
			t.Fatalf("row error missing detail: %+v", e)
		}
	}
}
