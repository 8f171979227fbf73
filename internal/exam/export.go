package exam

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExportResultsExcel renders every result of one exam as a spreadsheet,
// newest submission first.
func (s *Service) ExportResultsExcel(ctx context.Context, examID int64) ([]byte, error) {
	results, err := s.ResultsByExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	headers := []string{"student_mobile", "student_name", "exam_title", "subject", "test_number", "correct", "wrong", "total", "score", "submitted_at"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, res := range results {
		row := i + 2
		values := []any{
			res.StudentMobile,
			res.StudentName,
			res.ExamTitle,
			res.Subject,
			res.TestNumber,
			res.CorrectCount,
			res.WrongCount,
			res.TotalQuestions,
			res.Score,
			res.SubmittedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "J", 20)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}
