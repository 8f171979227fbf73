package exam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"academyportal/internal/app/apiresp"
	"academyportal/internal/auth"

	"github.com/go-chi/chi/v5"
)

type examService interface {
	ListActive(ctx context.Context) ([]Exam, error)
	Get(ctx context.Context, examID int64) (*Exam, error)
	Submit(ctx context.Context, in SubmitInput) (*Result, error)
	ListResults(ctx context.Context) ([]Result, error)
	ResultsByStudent(ctx context.Context, mobile string) ([]Result, error)
	ResultsByExam(ctx context.Context, examID int64) ([]Result, error)
	ExportResultsExcel(ctx context.Context, examID int64) ([]byte, error)
}

type Handler struct {
	svc examService
}

func NewHandler(svc examService) *Handler {
	return &Handler{svc: svc}
}

type submitRequest struct {
	ExamID  int64    `json:"exam_id"`
	Answers []string `json:"answers"`
}

func (h *Handler) ListActive(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListActive(r.Context())
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	examID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || examID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid exam id")
		return
	}
	e, err := h.svc.Get(r.Context(), examID)
	if err != nil {
		switch {
		case errors.Is(err, ErrExamNotFound):
			apiresp.WriteError(w, r, http.StatusNotFound, "exam not found")
		default:
			apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, e)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	student, ok := auth.CurrentStudent(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ExamID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "exam_id is required")
		return
	}

	res, err := h.svc.Submit(r.Context(), SubmitInput{
		ExamID:        req.ExamID,
		StudentMobile: student.Mobile,
		StudentName:   student.Name,
		Answers:       req.Answers,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			apiresp.WriteError(w, r, http.StatusBadRequest, "invalid submission")
		case errors.Is(err, ErrExamNotFound):
			apiresp.WriteError(w, r, http.StatusNotFound, "exam not found")
		case errors.Is(err, ErrDuplicateSubmission):
			apiresp.WriteError(w, r, http.StatusConflict, "exam already submitted")
		default:
			apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, res)
}

func (h *Handler) ListResults(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListResults(r.Context())
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) MyResults(w http.ResponseWriter, r *http.Request) {
	student, ok := auth.CurrentStudent(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	items, err := h.svc.ResultsByStudent(r.Context(), student.Mobile)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) ResultsByStudent(w http.ResponseWriter, r *http.Request) {
	mobile := strings.TrimSpace(chi.URLParam(r, "mobile"))
	if mobile == "" {
		apiresp.WriteError(w, r, http.StatusBadRequest, "mobile is required")
		return
	}
	items, err := h.svc.ResultsByStudent(r.Context(), mobile)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) ResultsByExam(w http.ResponseWriter, r *http.Request) {
	examID, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("exam_id")), 10, 64)
	if err != nil || examID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "exam_id is required")
		return
	}
	items, err := h.svc.ResultsByExam(r.Context(), examID)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) ExportResults(w http.ResponseWriter, r *http.Request) {
	examID, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("exam_id")), 10, 64)
	if err != nil || examID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "exam_id is required")
		return
	}
	data, err := h.svc.ExportResultsExcel(r.Context(), examID)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="results-exam-%d.xlsx"`, examID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
