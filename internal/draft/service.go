package draft

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"academyportal/internal/db"
	"academyportal/internal/exam"
	"academyportal/internal/extract"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrDraftNotFound    = errors.New("draft not found")
	ErrNoQuestions      = errors.New("no questions found")
	ErrQuestionIndex    = errors.New("question index out of range")
	ErrInvalidAnswer    = errors.New("answer must be a single letter A-D")
	ErrAnswersPending   = errors.New("draft has unanswered questions")
	ErrAlreadyConducted = errors.New("an exam with this title and test number already exists")
	ErrUnreadablePDF    = errors.New("pdf is too complex or corrupted")
)

// MissingAnswersError reports which question indexes still lack a correct
// answer. It unwraps to ErrAnswersPending so callers can branch on the
// sentinel and still surface the indexes.
type MissingAnswersError struct {
	Indexes []int
}

func (e *MissingAnswersError) Error() string {
	return fmt.Sprintf("draft has %d unanswered questions", len(e.Indexes))
}

func (e *MissingAnswersError) Unwrap() error { return ErrAnswersPending }

type Service struct {
	db *sql.DB
}

func NewService(database *sql.DB) *Service {
	return &Service{db: database}
}

type Draft struct {
	ID             int64           `json:"id"`
	Title          string          `json:"title"`
	Subject        string          `json:"subject,omitempty"`
	TestNumber     string          `json:"test_number,omitempty"`
	Origin         string          `json:"origin"`
	AnswersPending bool            `json:"answers_pending"`
	Questions      []exam.Question `json:"questions"`
	CreatedAt      time.Time       `json:"created_at"`
}

type Meta struct {
	Title      string
	Subject    string
	TestNumber string
}

// ConductedExam is the summary returned once a draft has been promoted.
type ConductedExam struct {
	ExamID        int64     `json:"exam_id"`
	Title         string    `json:"title"`
	Subject       string    `json:"subject,omitempty"`
	TestNumber    string    `json:"test_number,omitempty"`
	QuestionCount int       `json:"question_count"`
	ConductedAt   time.Time `json:"conducted_at"`
}

func (s *Service) CreateManual(ctx context.Context, meta Meta, questions []exam.Question) (*Draft, error) {
	return s.create(ctx, meta, "manual", questions)
}

// CreateBulk persists a question list the client already structured from
// pasted text.
func (s *Service) CreateBulk(ctx context.Context, meta Meta, questions []exam.Question) (*Draft, error) {
	return s.create(ctx, meta, "bulk", questions)
}

// CreateFromText runs the extractor over raw pasted text and stores the
// result as an answers-pending draft. The extraction report is returned
// alongside so the caller can review what was skipped.
func (s *Service) CreateFromText(ctx context.Context, meta Meta, text string) (*Draft, extract.Extraction, error) {
	ex := extract.Parse(text)
	if len(ex.Questions) == 0 {
		return nil, ex, ErrNoQuestions
	}
	d, err := s.create(ctx, meta, "bulk", toExamQuestions(ex.Questions))
	return d, ex, err
}

// CreateFromPDF extracts plain text from an uploaded PDF and feeds it to
// the question extractor. Extraction failure of the PDF itself is
// distinguished from a readable document that simply yielded nothing.
func (s *Service) CreateFromPDF(ctx context.Context, meta Meta, pdfBytes []byte) (*Draft, extract.Extraction, error) {
	text, err := extractPDFText(pdfBytes)
	if err != nil {
		return nil, extract.Extraction{}, ErrUnreadablePDF
	}
	ex := extract.Parse(text)
	if len(ex.Questions) == 0 {
		return nil, ex, ErrNoQuestions
	}
	d, err := s.create(ctx, meta, "pdf", toExamQuestions(ex.Questions))
	return d, ex, err
}

func (s *Service) create(ctx context.Context, meta Meta, origin string, questions []exam.Question) (*Draft, error) {
	meta.Title = strings.TrimSpace(meta.Title)
	meta.Subject = strings.TrimSpace(meta.Subject)
	meta.TestNumber = strings.TrimSpace(meta.TestNumber)
	if meta.Title == "" || len(questions) == 0 {
		return nil, ErrInvalidInput
	}
	for i := range questions {
		if err := normalizeQuestion(&questions[i]); err != nil {
			return nil, err
		}
	}

	questionsJSON, err := json.Marshal(questions)
	if err != nil {
		return nil, fmt.Errorf("marshal questions: %w", err)
	}
	pending := len(missingAnswerIndexes(questions)) > 0

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO drafts (title, subject, test_number, origin, answers_pending, questions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING id, title, subject, test_number, origin, answers_pending, questions, created_at
	`, meta.Title, meta.Subject, meta.TestNumber, origin, pending, questionsJSON)
	d, err := scanDraft(row)
	if err != nil {
		return nil, fmt.Errorf("insert draft: %w", err)
	}
	return d, nil
}

func (s *Service) Update(ctx context.Context, draftID int64, meta Meta, questions []exam.Question) (*Draft, error) {
	meta.Title = strings.TrimSpace(meta.Title)
	if draftID <= 0 || meta.Title == "" || len(questions) == 0 {
		return nil, ErrInvalidInput
	}
	for i := range questions {
		if err := normalizeQuestion(&questions[i]); err != nil {
			return nil, err
		}
	}

	questionsJSON, err := json.Marshal(questions)
	if err != nil {
		return nil, fmt.Errorf("marshal questions: %w", err)
	}
	pending := len(missingAnswerIndexes(questions)) > 0

	row := s.db.QueryRowContext(ctx, `
		UPDATE drafts
		SET title = $2,
			subject = $3,
			test_number = $4,
			answers_pending = $5,
			questions = $6
		WHERE id = $1
		RETURNING id, title, subject, test_number, origin, answers_pending, questions, created_at
	`, draftID, meta.Title, strings.TrimSpace(meta.Subject), strings.TrimSpace(meta.TestNumber), pending, questionsJSON)
	d, err := scanDraft(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDraftNotFound
		}
		return nil, fmt.Errorf("update draft: %w", err)
	}
	return d, nil
}

func (s *Service) List(ctx context.Context) ([]Draft, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, subject, test_number, origin, answers_pending, questions, created_at
		FROM drafts
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	out := make([]Draft, 0)
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drafts: %w", err)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, draftID int64) (*Draft, error) {
	if draftID <= 0 {
		return nil, ErrInvalidInput
	}
	return s.loadDraft(ctx, s.db, draftID, false)
}

func (s *Service) Delete(ctx context.Context, draftID int64) error {
	if draftID <= 0 {
		return ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE id = $1`, draftID)
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrDraftNotFound
	}
	return nil
}

// SetAnswer records the correct answer of one question, normalized to an
// uppercase letter.
func (s *Service) SetAnswer(ctx context.Context, draftID int64, questionIndex int, answer string) (*Draft, error) {
	answer = strings.ToUpper(strings.TrimSpace(answer))
	if len(answer) != 1 || answer[0] < 'A' || answer[0] > 'D' {
		return nil, ErrInvalidAnswer
	}

	d, err := s.loadDraft(ctx, s.db, draftID, false)
	if err != nil {
		return nil, err
	}
	if questionIndex < 0 || questionIndex >= len(d.Questions) {
		return nil, ErrQuestionIndex
	}
	d.Questions[questionIndex].CorrectAnswer = &answer

	return s.storeQuestions(ctx, d)
}

// Finalize marks an answers-pending draft ready for conduct once every
// question has a correct answer.
func (s *Service) Finalize(ctx context.Context, draftID int64) (*Draft, error) {
	d, err := s.loadDraft(ctx, s.db, draftID, false)
	if err != nil {
		return nil, err
	}
	if missing := missingAnswerIndexes(d.Questions); len(missing) > 0 {
		return nil, &MissingAnswersError{Indexes: missing}
	}
	if !d.AnswersPending {
		return d, nil
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE drafts
		SET answers_pending = FALSE
		WHERE id = $1
		RETURNING id, title, subject, test_number, origin, answers_pending, questions, created_at
	`, d.ID)
	out, err := scanDraft(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDraftNotFound
		}
		return nil, fmt.Errorf("finalize draft: %w", err)
	}
	return out, nil
}

// Conduct promotes a draft into a live exam and removes the draft, in one
// transaction. The unique index on exams(title, test_number) rejects a
// duplicate conduct even when two calls race past the load.
func (s *Service) Conduct(ctx context.Context, draftID int64) (*ConductedExam, error) {
	if draftID <= 0 {
		return nil, ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	d, err := s.loadDraft(ctx, tx, draftID, true)
	if err != nil {
		return nil, err
	}
	if missing := missingAnswerIndexes(d.Questions); len(missing) > 0 {
		return nil, &MissingAnswersError{Indexes: missing}
	}

	questionsJSON, err := json.Marshal(d.Questions)
	if err != nil {
		return nil, fmt.Errorf("marshal questions: %w", err)
	}

	out := ConductedExam{
		Title:         d.Title,
		Subject:       d.Subject,
		TestNumber:    d.TestNumber,
		QuestionCount: len(d.Questions),
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO exams (title, subject, test_number, questions, conducted_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, conducted_at
	`, d.Title, d.Subject, d.TestNumber, questionsJSON).Scan(&out.ExamID, &out.ConductedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrAlreadyConducted
		}
		return nil, fmt.Errorf("insert exam: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM drafts WHERE id = $1`, d.ID); err != nil {
		return nil, fmt.Errorf("delete conducted draft: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit conduct: %w", err)
	}
	return &out, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Service) loadDraft(ctx context.Context, q querier, draftID int64, forUpdate bool) (*Draft, error) {
	query := `
		SELECT id, title, subject, test_number, origin, answers_pending, questions, created_at
		FROM drafts
		WHERE id = $1
		LIMIT 1`
	if forUpdate {
		query += `
		FOR UPDATE`
	}
	d, err := scanDraft(q.QueryRowContext(ctx, query, draftID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDraftNotFound
		}
		return nil, fmt.Errorf("load draft: %w", err)
	}
	return d, nil
}

func (s *Service) storeQuestions(ctx context.Context, d *Draft) (*Draft, error) {
	questionsJSON, err := json.Marshal(d.Questions)
	if err != nil {
		return nil, fmt.Errorf("marshal questions: %w", err)
	}
	pending := len(missingAnswerIndexes(d.Questions)) > 0

	row := s.db.QueryRowContext(ctx, `
		UPDATE drafts
		SET questions = $2,
			answers_pending = $3
		WHERE id = $1
		RETURNING id, title, subject, test_number, origin, answers_pending, questions, created_at
	`, d.ID, questionsJSON, pending)
	out, err := scanDraft(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDraftNotFound
		}
		return nil, fmt.Errorf("store draft questions: %w", err)
	}
	return out, nil
}

func scanDraft(scanner interface{ Scan(dest ...any) error }) (*Draft, error) {
	var d Draft
	var questionsRaw []byte
	if err := scanner.Scan(&d.ID, &d.Title, &d.Subject, &d.TestNumber, &d.Origin, &d.AnswersPending, &questionsRaw, &d.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(questionsRaw, &d.Questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return &d, nil
}

func normalizeQuestion(q *exam.Question) error {
	q.Text = strings.TrimSpace(q.Text)
	q.ImageURL = strings.TrimSpace(q.ImageURL)
	if q.Text == "" && q.ImageURL == "" {
		return ErrInvalidInput
	}
	opts := make([]string, 0, len(q.Options))
	for _, o := range q.Options {
		o = strings.TrimSpace(o)
		if o != "" {
			opts = append(opts, o)
		}
	}
	if len(opts) < 2 {
		return ErrInvalidInput
	}
	q.Options = opts
	if q.CorrectAnswer != nil {
		a := strings.ToUpper(strings.TrimSpace(*q.CorrectAnswer))
		if a == "" {
			q.CorrectAnswer = nil
		} else {
			if len(a) != 1 || a[0] < 'A' || a[0] > 'D' {
				return ErrInvalidAnswer
			}
			q.CorrectAnswer = &a
		}
	}
	return nil
}

func missingAnswerIndexes(questions []exam.Question) []int {
	var missing []int
	for i, q := range questions {
		if q.CorrectAnswer == nil || strings.TrimSpace(*q.CorrectAnswer) == "" {
			missing = append(missing, i)
		}
	}
	return missing
}

func toExamQuestions(in []extract.Question) []exam.Question {
	out := make([]exam.Question, 0, len(in))
	for _, q := range in {
		out = append(out, exam.Question{Text: q.Text, Options: q.Options})
	}
	return out
}
