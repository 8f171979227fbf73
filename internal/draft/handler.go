package draft

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"academyportal/internal/app/apiresp"
	"academyportal/internal/exam"
	"academyportal/internal/extract"

	"github.com/go-chi/chi/v5"
)

type draftService interface {
	CreateManual(ctx context.Context, meta Meta, questions []exam.Question) (*Draft, error)
	CreateBulk(ctx context.Context, meta Meta, questions []exam.Question) (*Draft, error)
	CreateFromText(ctx context.Context, meta Meta, text string) (*Draft, extract.Extraction, error)
	CreateFromPDF(ctx context.Context, meta Meta, pdfBytes []byte) (*Draft, extract.Extraction, error)
	CreateFromXLSX(ctx context.Context, meta Meta, r io.Reader) (*Draft, *QuestionImportReport, error)
	Update(ctx context.Context, draftID int64, meta Meta, questions []exam.Question) (*Draft, error)
	List(ctx context.Context) ([]Draft, error)
	Get(ctx context.Context, draftID int64) (*Draft, error)
	Delete(ctx context.Context, draftID int64) error
	SetAnswer(ctx context.Context, draftID int64, questionIndex int, answer string) (*Draft, error)
	Finalize(ctx context.Context, draftID int64) (*Draft, error)
	Conduct(ctx context.Context, draftID int64) (*ConductedExam, error)
}

type Handler struct {
	svc            draftService
	maxUploadBytes int64
}

func NewHandler(svc draftService, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 20 << 20
	}
	return &Handler{svc: svc, maxUploadBytes: maxUploadBytes}
}

type draftRequest struct {
	Title      string          `json:"title"`
	Subject    string          `json:"subject"`
	TestNumber string          `json:"test_number"`
	Questions  []exam.Question `json:"questions"`
	Text       string          `json:"text"`
}

func (req draftRequest) meta() Meta {
	return Meta{Title: req.Title, Subject: req.Subject, TestNumber: req.TestNumber}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	d, err := h.svc.CreateManual(r.Context(), req.meta(), req.Questions)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, d)
}

// CreateBulk accepts pasted content in two shapes. A structured question
// list is stored as-is; otherwise raw text goes through the extractor.
func (h *Handler) CreateBulk(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Questions) > 0 {
		d, err := h.svc.CreateBulk(r.Context(), req.meta(), req.Questions)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		apiresp.WriteOK(w, r, http.StatusCreated, d)
		return
	}

	d, extraction, err := h.svc.CreateFromText(r.Context(), req.meta(), req.Text)
	if err != nil {
		if errors.Is(err, ErrNoQuestions) {
			apiresp.WriteErrorDetails(w, r, http.StatusUnprocessableEntity,
				"no questions could be extracted", extractionReport(extraction))
			return
		}
		h.writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, map[string]any{
		"draft":      d,
		"extraction": extractionReport(extraction),
	})
}

func (h *Handler) UploadPDF(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		if isBodyTooLarge(err) {
			apiresp.WriteError(w, r, http.StatusRequestEntityTooLarge, "pdf upload too large")
			return
		}
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, _, err := r.FormFile("pdf")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "pdf file is required")
		return
	}
	defer func() { _ = file.Close() }()

	raw, err := io.ReadAll(file)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusRequestEntityTooLarge, "pdf upload too large")
		return
	}

	meta := Meta{
		Title:      r.FormValue("title"),
		Subject:    r.FormValue("subject"),
		TestNumber: r.FormValue("testNumber"),
	}
	d, extraction, err := h.svc.CreateFromPDF(r.Context(), meta, raw)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnreadablePDF):
			apiresp.WriteError(w, r, http.StatusUnprocessableEntity, "pdf could not be read")
		case errors.Is(err, ErrNoQuestions):
			apiresp.WriteErrorDetails(w, r, http.StatusUnprocessableEntity,
				"no questions could be extracted from the pdf", extractionReport(extraction))
		default:
			h.writeServiceError(w, r, err)
		}
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, map[string]any{
		"draft":      d,
		"extraction": extractionReport(extraction),
	})
}

func (h *Handler) UploadXLSX(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		if isBodyTooLarge(err) {
			apiresp.WriteError(w, r, http.StatusRequestEntityTooLarge, "excel upload too large")
			return
		}
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "excel file is required")
		return
	}
	defer func() { _ = file.Close() }()

	meta := Meta{
		Title:      r.FormValue("title"),
		Subject:    r.FormValue("subject"),
		TestNumber: r.FormValue("testNumber"),
	}
	d, report, err := h.svc.CreateFromXLSX(r.Context(), meta, file)
	if err != nil {
		if errors.Is(err, ErrNoQuestions) {
			apiresp.WriteErrorDetails(w, r, http.StatusUnprocessableEntity,
				"no usable question rows found", report)
			return
		}
		h.writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, map[string]any{
		"draft":  d,
		"report": report,
	})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	draftID, ok := parseDraftID(w, r)
	if !ok {
		return
	}
	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	d, err := h.svc.Update(r.Context(), draftID, req.meta(), req.Questions)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, d)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	draftID, ok := parseDraftID(w, r)
	if !ok {
		return
	}
	d, err := h.svc.Get(r.Context(), draftID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, d)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	draftID, ok := parseDraftID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), draftID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]any{"deleted": true})
}

type setAnswerRequest struct {
	QuestionIndex int    `json:"question_index"`
	Answer        string `json:"answer"`
}

func (h *Handler) SetAnswer(w http.ResponseWriter, r *http.Request) {
	draftID, ok := parseDraftID(w, r)
	if !ok {
		return
	}
	var req setAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	d, err := h.svc.SetAnswer(r.Context(), draftID, req.QuestionIndex, req.Answer)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, d)
}

func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	draftID, ok := parseDraftID(w, r)
	if !ok {
		return
	}
	d, err := h.svc.Finalize(r.Context(), draftID)
	if err != nil {
		var missing *MissingAnswersError
		if errors.As(err, &missing) {
			apiresp.WriteErrorDetails(w, r, http.StatusUnprocessableEntity,
				"draft has unanswered questions", map[string]any{"missing_answer_indexes": missing.Indexes})
			return
		}
		h.writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, d)
}

func (h *Handler) Conduct(w http.ResponseWriter, r *http.Request) {
	draftID, err := strconv.ParseInt(chi.URLParam(r, "draftId"), 10, 64)
	if err != nil || draftID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid draft id")
		return
	}
	conducted, err := h.svc.Conduct(r.Context(), draftID)
	if err != nil {
		var missing *MissingAnswersError
		if errors.As(err, &missing) {
			apiresp.WriteErrorDetails(w, r, http.StatusUnprocessableEntity,
				"draft has unanswered questions", map[string]any{"missing_answer_indexes": missing.Indexes})
			return
		}
		h.writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, conducted)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidAnswer), errors.Is(err, ErrQuestionIndex):
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrDraftNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, "draft not found")
	case errors.Is(err, ErrAlreadyConducted):
		apiresp.WriteError(w, r, http.StatusConflict, "exam already conducted for this title and test number")
	case errors.Is(err, ErrAnswersPending):
		apiresp.WriteError(w, r, http.StatusUnprocessableEntity, "draft has unanswered questions")
	default:
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || errors.Is(err, multipart.ErrMessageTooLarge)
}

func parseDraftID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	draftID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || draftID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid draft id")
		return 0, false
	}
	return draftID, true
}

func extractionReport(ex extract.Extraction) map[string]any {
	return map[string]any{
		"question_count": len(ex.Questions),
		"unparsed":       ex.Unparsed,
		"truncated":      ex.Truncated,
	}
}
