package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"academyportal/internal/db"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrExamNotFound        = errors.New("exam not found")
	ErrDuplicateSubmission = errors.New("exam already submitted")
)

type Service struct {
	db *sql.DB
}

func NewService(database *sql.DB) *Service {
	return &Service{db: database}
}

type Exam struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Subject     string     `json:"subject,omitempty"`
	TestNumber  string     `json:"test_number,omitempty"`
	Questions   []Question `json:"questions"`
	ConductedAt time.Time  `json:"conducted_at"`
}

type SubmitInput struct {
	ExamID        int64
	StudentMobile string
	StudentName   string
	Answers       []string
}

type Result struct {
	ID             int64     `json:"id"`
	StudentMobile  string    `json:"student_mobile"`
	StudentName    string    `json:"student_name"`
	ExamID         int64     `json:"exam_id"`
	ExamTitle      string    `json:"exam_title"`
	Subject        string    `json:"subject,omitempty"`
	TestNumber     string    `json:"test_number,omitempty"`
	Answers        []string  `json:"answers"`
	TotalQuestions int       `json:"total_questions"`
	CorrectCount   int       `json:"correct_count"`
	WrongCount     int       `json:"wrong_count"`
	Score          int       `json:"score"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// ListActive returns all live exams, newest first, with correct answers
// stripped. The student view never sees the key, authenticated or not.
func (s *Service) ListActive(ctx context.Context) ([]Exam, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, subject, test_number, questions, conducted_at
		FROM exams
		ORDER BY conducted_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	defer rows.Close()

	out := make([]Exam, 0)
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		stripAnswers(e.Questions)
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exams: %w", err)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, examID int64) (*Exam, error) {
	if examID <= 0 {
		return nil, ErrInvalidInput
	}
	e, err := s.loadExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	stripAnswers(e.Questions)
	return e, nil
}

// Submit scores an attempt and persists the result snapshot. The unique
// index on (student_mobile, exam_id) is the duplicate guard: a second
// submission, concurrent or not, fails at the store.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*Result, error) {
	if in.ExamID <= 0 || strings.TrimSpace(in.StudentMobile) == "" {
		return nil, ErrInvalidInput
	}

	e, err := s.loadExam(ctx, in.ExamID)
	if err != nil {
		return nil, err
	}

	outcome := Score(e.Questions, in.Answers)

	answersJSON, err := json.Marshal(in.Answers)
	if err != nil {
		return nil, fmt.Errorf("marshal answers: %w", err)
	}

	res := Result{
		StudentMobile:  strings.TrimSpace(in.StudentMobile),
		StudentName:    strings.TrimSpace(in.StudentName),
		ExamID:         e.ID,
		ExamTitle:      e.Title,
		Subject:        e.Subject,
		TestNumber:     e.TestNumber,
		Answers:        in.Answers,
		TotalQuestions: outcome.Total,
		CorrectCount:   outcome.Correct,
		WrongCount:     outcome.Wrong,
		Score:          outcome.Correct,
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO results (
			student_mobile, student_name, exam_id, exam_title, subject, test_number,
			answers, total_questions, correct_count, wrong_count, score, submitted_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, now()
		)
		RETURNING id, submitted_at
	`, res.StudentMobile, res.StudentName, res.ExamID, res.ExamTitle, res.Subject, res.TestNumber,
		answersJSON, res.TotalQuestions, res.CorrectCount, res.WrongCount, res.Score,
	).Scan(&res.ID, &res.SubmittedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrDuplicateSubmission
		}
		return nil, fmt.Errorf("insert result: %w", err)
	}
	return &res, nil
}

func (s *Service) ListResults(ctx context.Context) ([]Result, error) {
	return s.queryResults(ctx, ``, nil)
}

func (s *Service) ResultsByStudent(ctx context.Context, mobile string) ([]Result, error) {
	mobile = strings.TrimSpace(mobile)
	if mobile == "" {
		return nil, ErrInvalidInput
	}
	return s.queryResults(ctx, `WHERE student_mobile = $1`, []any{mobile})
}

func (s *Service) ResultsByExam(ctx context.Context, examID int64) ([]Result, error) {
	if examID <= 0 {
		return nil, ErrInvalidInput
	}
	return s.queryResults(ctx, `WHERE exam_id = $1`, []any{examID})
}

func (s *Service) queryResults(ctx context.Context, where string, args []any) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_mobile, student_name, exam_id, exam_title, subject, test_number,
		       answers, total_questions, correct_count, wrong_count, score, submitted_at
		FROM results
		`+where+`
		ORDER BY submitted_at DESC, id DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	out := make([]Result, 0)
	for rows.Next() {
		var res Result
		var answersRaw []byte
		if err := rows.Scan(
			&res.ID, &res.StudentMobile, &res.StudentName, &res.ExamID, &res.ExamTitle,
			&res.Subject, &res.TestNumber, &answersRaw, &res.TotalQuestions,
			&res.CorrectCount, &res.WrongCount, &res.Score, &res.SubmittedAt,
		); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if err := json.Unmarshal(answersRaw, &res.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}

func (s *Service) loadExam(ctx context.Context, examID int64) (*Exam, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, subject, test_number, questions, conducted_at
		FROM exams
		WHERE id = $1
		LIMIT 1
	`, examID)
	e, err := scanExam(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, err
	}
	return e, nil
}

func scanExam(scanner interface{ Scan(dest ...any) error }) (*Exam, error) {
	var e Exam
	var questionsRaw []byte
	if err := scanner.Scan(&e.ID, &e.Title, &e.Subject, &e.TestNumber, &questionsRaw, &e.ConductedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("scan exam: %w", err)
	}
	if err := json.Unmarshal(questionsRaw, &e.Questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return &e, nil
}

func stripAnswers(questions []Question) {
	for i := range questions {
		questions[i].CorrectAnswer = nil
	}
}
