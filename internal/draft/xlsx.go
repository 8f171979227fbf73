package draft

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"academyportal/internal/exam"
)

type QuestionImportRowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type QuestionImportReport struct {
	TotalRows   int                      `json:"total_rows"`
	SuccessRows int                      `json:"success_rows"`
	FailedRows  int                      `json:"failed_rows"`
	Errors      []QuestionImportRowError `json:"errors"`
}

// CreateFromXLSX reads questions from a workbook with the columns
// question, option_a..option_d and an optional correct_answer, then stores
// them as a new draft. Bad rows are reported, not fatal.
func (s *Service) CreateFromXLSX(ctx context.Context, meta Meta, r io.Reader) (*Draft, *QuestionImportReport, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open excel: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, errors.New("excel sheet is empty")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, errors.New("no data rows found")
	}

	header := map[string]int{}
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	required := []string{"question", "option_a", "option_b"}
	for _, col := range required {
		if _, ok := header[col]; !ok {
			return nil, nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	report := &QuestionImportReport{Errors: make([]QuestionImportRowError, 0)}
	questions := make([]exam.Question, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		rowNo := i + 1
		row := rows[i]
		report.TotalRows++

		get := func(key string) string {
			idx, ok := header[key]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		text := get("question")
		opts := make([]string, 0, 4)
		for _, col := range []string{"option_a", "option_b", "option_c", "option_d"} {
			if v := get(col); v != "" {
				opts = append(opts, v)
			}
		}

		if text == "" || len(opts) < 2 {
			report.FailedRows++
			report.Errors = append(report.Errors, QuestionImportRowError{
				Row:   rowNo,
				Error: "question text and at least two options are required",
			})
			continue
		}

		q := exam.Question{Text: text, Options: opts}
		if answer := strings.ToUpper(get("correct_answer")); answer != "" {
			if len(answer) != 1 || answer[0] < 'A' || byte('A'+len(opts)-1) < answer[0] {
				report.FailedRows++
				report.Errors = append(report.Errors, QuestionImportRowError{
					Row:   rowNo,
					Error: "correct_answer must name one of the provided options",
				})
				continue
			}
			q.CorrectAnswer = &answer
		}

		questions = append(questions, q)
		report.SuccessRows++
	}

	if len(questions) == 0 {
		return nil, report, ErrNoQuestions
	}

	d, err := s.create(ctx, meta, "xlsx", questions)
	if err != nil {
		return nil, report, err
	}
	return d, report, nil
}
