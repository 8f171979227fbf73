package draft

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"academyportal/internal/exam"
	"academyportal/internal/extract"

	"github.com/go-chi/chi/v5"
)

type mockDraftService struct {
	createManualFn   func(ctx context.Context, meta Meta, questions []exam.Question) (*Draft, error)
	createBulkFn     func(ctx context.Context, meta Meta, questions []exam.Question) (*Draft, error)
	createFromTextFn func(ctx context.Context, meta Meta, text string) (*Draft, extract.Extraction, error)
	createFromPDFFn  func(ctx context.Context, meta Meta, pdfBytes []byte) (*Draft, extract.Extraction, error)
	createFromXLSXFn func(ctx context.Context, meta Meta, r io.Reader) (*Draft, *QuestionImportReport, error)
	updateFn         func(ctx context.Context, draftID int64, meta Meta, questions []exam.Question) (*Draft, error)
	listFn           func(ctx context.Context) ([]Draft, error)
	getFn            func(ctx context.Context, draftID int64) (*Draft, error)
	deleteFn         func(ctx context.Context, draftID int64) error
	setAnswerFn      func(ctx context.Context, draftID int64, questionIndex int, answer string) (*Draft, error)
	finalizeFn       func(ctx context.Context, draftID int64) (*Draft, error)
	conductFn        func(ctx context.Context, draftID int64) (*ConductedExam, error)
}

func (m *mockDraftService) CreateManual(ctx context.Context, meta Meta, questions []exam.Question) (*Draft, error) {
	if m.createManualFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.createManualFn(ctx, meta, questions)
}

func (m *mockDraftService) CreateBulk(ctx context.Context, meta Meta, questions []exam.Question) (*Draft, error) {
	if m.createBulkFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.createBulkFn(ctx, meta, questions)
}

func (m *mockDraftService) CreateFromText(ctx context.Context, meta Meta, text string) (*Draft, extract.Extraction, error) {
	if m.createFromTextFn == nil {
		return nil, extract.Extraction{}, errors.New("not implemented")
	}
	return m.createFromTextFn(ctx, meta, text)
}

func (m *mockDraftService) CreateFromPDF(ctx context.Context, meta Meta, pdfBytes []byte) (*Draft, extract.Extraction, error) {
	if m.createFromPDFFn == nil {
		return nil, extract.Extraction{}, errors.New("not implemented")
	}
	return m.createFromPDFFn(ctx, meta, pdfBytes)
}

func (m *mockDraftService) CreateFromXLSX(ctx context.Context, meta Meta, r io.Reader) (*Draft, *QuestionImportReport, error) {
	if m.createFromXLSXFn == nil {
		return nil, nil, errors.New("not implemented")
	}
	return m.createFromXLSXFn(ctx, meta, r)
}

func (m *mockDraftService) Update(ctx context.Context, draftID int64, meta Meta, questions []exam.Question) (*Draft, error) {
	if m.updateFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.updateFn(ctx, draftID, meta, questions)
}

func (m *mockDraftService) List(ctx context.Context) ([]Draft, error) {
	if m.listFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.listFn(ctx)
}

func (m *mockDraftService) Get(ctx context.Context, draftID int64) (*Draft, error) {
	if m.getFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.getFn(ctx, draftID)
}

func (m *mockDraftService) Delete(ctx context.Context, draftID int64) error {
	if m.deleteFn == nil {
		return errors.New("not implemented")
	}
	return m.deleteFn(ctx, draftID)
}

func (m *mockDraftService) SetAnswer(ctx context.Context, draftID int64, questionIndex int, answer string) (*Draft, error) {
	if m.setAnswerFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.setAnswerFn(ctx, draftID, questionIndex, answer)
}

func (m *mockDraftService) Finalize(ctx context.Context, draftID int64) (*Draft, error) {
	if m.finalizeFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.finalizeFn(ctx, draftID)
}

func (m *mockDraftService) Conduct(ctx context.Context, draftID int64) (*ConductedExam, error) {
	if m.conductFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.conductFn(ctx, draftID)
}

func routeRequest(method, pattern, target string, body []byte) (*httptest.ResponseRecorder, func(http.HandlerFunc)) {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	w := httptest.NewRecorder()
	return w, func(fn http.HandlerFunc) {
		r := chi.NewRouter()
		r.MethodFunc(method, pattern, fn)
		r.ServeHTTP(w, req)
	}
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestCreateDraftReturnsID(t *testing.T) {
	answer := "B"
	svc := &mockDraftService{
		createManualFn: func(ctx context.Context, meta Meta, questions []exam.Question) (*Draft, error) {
			if meta.Title != "Science Unit Test" {
				t.Fatalf("unexpected title %q", meta.Title)
			}
			return &Draft{
				ID:        42,
				Title:     meta.Title,
				Origin:    "manual",
				Questions: questions,
				CreatedAt: time.Now(),
			}, nil
		},
	}
	h := NewHandler(svc, 0)

	body, _ := json.Marshal(draftRequest{
		Title: "Science Unit Test",
		Questions: []exam.Question{
			{Text: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: &answer},
		},
	})
	w, serve := routeRequest(http.MethodPost, "/drafts", "/drafts", body)
	serve(h.Create)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	env := decodeEnvelope(t, w)
	data, _ := env["data"].(map[string]any)
	if data["id"] != float64(42) {
		t.Fatalf("draft id = %v, want 42", data["id"])
	}
}

func TestCreateDraftValidation(t *testing.T) {
	svc := &mockDraftService{
		createManualFn: func(ctx context.Context, meta Meta, questions []exam.Question) (*Draft, error) {
			return nil, ErrInvalidInput
		},
	}
	h := NewHandler(svc, 0)

	body, _ := json.Marshal(draftRequest{Title: ""})
	w, serve := routeRequest(http.MethodPost, "/drafts", "/drafts", body)
	serve(h.Create)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestBulkPrefersStructuredQuestions(t *testing.T) {
	calledBulk := false
	svc := &mockDraftService{
		createBulkFn: func(ctx context.Context, meta Meta, questions []exam.Question) (*Draft, error) {
			calledBulk = true
			return &Draft{ID: 7, Title: meta.Title, Origin: "bulk", Questions: questions}, nil
		},
		createFromTextFn: func(ctx context.Context, meta Meta, text string) (*Draft, extract.Extraction, error) {
			t.Fatal("text extraction should not run when questions are provided")
			return nil, extract.Extraction{}, nil
		},
	}
	h := NewHandler(svc, 0)

	body, _ := json.Marshal(draftRequest{
		Title:     "History",
		Questions: []exam.Question{{Text: "Q1", Options: []string{"a", "b"}}},
		Text:      "1. ignored\nA) x\nB) y",
	})
	w, serve := routeRequest(http.MethodPost, "/api/save-bulk-exam", "/api/save-bulk-exam", body)
	serve(h.CreateBulk)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if !calledBulk {
		t.Fatal("structured questions were not stored")
	}
}

func TestBulkTextExtractionEmptyIsUnprocessable(t *testing.T) {
	svc := &mockDraftService{
		createFromTextFn: func(ctx context.Context, meta Meta, text string) (*Draft, extract.Extraction, error) {
			return nil, extract.Extraction{
				Unparsed: []extract.UnparsedLine{{Line: "hello", Reason: "orphan_line"}},
			}, ErrNoQuestions
		},
	}
	h := NewHandler(svc, 0)

	body, _ := json.Marshal(draftRequest{Title: "Maths", Text: "hello"})
	w, serve := routeRequest(http.MethodPost, "/api/save-bulk-exam", "/api/save-bulk-exam", body)
	serve(h.CreateBulk)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	env := decodeEnvelope(t, w)
	errPayload, _ := env["error"].(map[string]any)
	if errPayload["details"] == nil {
		t.Fatal("expected extraction details in error payload")
	}
}

func TestUploadPDFMalformedMultipartIsBadRequest(t *testing.T) {
	h := NewHandler(&mockDraftService{}, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/exam/pdf-upload",
		bytes.NewReader([]byte("this is not a multipart body")))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
	w := httptest.NewRecorder()
	h.UploadPDF(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestUploadXLSXMalformedMultipartIsBadRequest(t *testing.T) {
	h := NewHandler(&mockDraftService{}, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/exam/xlsx-upload",
		bytes.NewReader([]byte("--xyz\r\nbroken")))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
	w := httptest.NewRecorder()
	h.UploadXLSX(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestSetAnswerIndexOutOfRange(t *testing.T) {
	svc := &mockDraftService{
		setAnswerFn: func(ctx context.Context, draftID int64, questionIndex int, answer string) (*Draft, error) {
			return nil, ErrQuestionIndex
		},
	}
	h := NewHandler(svc, 0)

	body, _ := json.Marshal(setAnswerRequest{QuestionIndex: 99, Answer: "A"})
	w, serve := routeRequest(http.MethodPatch, "/api/pdf-draft/{id}/set-answer", "/api/pdf-draft/5/set-answer", body)
	serve(h.SetAnswer)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestFinalizeReportsMissingAnswers(t *testing.T) {
	svc := &mockDraftService{
		finalizeFn: func(ctx context.Context, draftID int64) (*Draft, error) {
			return nil, &MissingAnswersError{Indexes: []int{1, 4}}
		},
	}
	h := NewHandler(svc, 0)

	w, serve := routeRequest(http.MethodPost, "/api/pdf-draft/{id}/finalize", "/api/pdf-draft/5/finalize", nil)
	serve(h.Finalize)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	env := decodeEnvelope(t, w)
	errPayload, _ := env["error"].(map[string]any)
	details, _ := errPayload["details"].(map[string]any)
	indexes, _ := details["missing_answer_indexes"].([]any)
	if len(indexes) != 2 {
		t.Fatalf("missing_answer_indexes = %v, want two entries", indexes)
	}
}

func TestConductConflict(t *testing.T) {
	svc := &mockDraftService{
		conductFn: func(ctx context.Context, draftID int64) (*ConductedExam, error) {
			return nil, ErrAlreadyConducted
		},
	}
	h := NewHandler(svc, 0)

	w, serve := routeRequest(http.MethodPost, "/conduct/{draftId}", "/conduct/5", nil)
	serve(h.Conduct)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestConductPromotesDraft(t *testing.T) {
	svc := &mockDraftService{
		conductFn: func(ctx context.Context, draftID int64) (*ConductedExam, error) {
			if draftID != 9 {
				t.Fatalf("draftID = %d, want 9", draftID)
			}
			return &ConductedExam{ExamID: 31, Title: "Science", QuestionCount: 12, ConductedAt: time.Now()}, nil
		},
	}
	h := NewHandler(svc, 0)

	w, serve := routeRequest(http.MethodPost, "/conduct/{draftId}", "/conduct/9", nil)
	serve(h.Conduct)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	env := decodeEnvelope(t, w)
	data, _ := env["data"].(map[string]any)
	if data["exam_id"] != float64(31) {
		t.Fatalf("exam_id = %v, want 31", data["exam_id"])
	}
}

func TestDeleteDraftNotFound(t *testing.T) {
	svc := &mockDraftService{
		deleteFn: func(ctx context.Context, draftID int64) error {
			return ErrDraftNotFound
		},
	}
	h := NewHandler(svc, 0)

	w, serve := routeRequest(http.MethodDelete, "/drafts/{id}", "/drafts/77", nil)
	serve(h.Delete)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
