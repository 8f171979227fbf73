package student

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"academyportal/internal/app/apiresp"
	"academyportal/internal/auth"

	"github.com/go-chi/chi/v5"
)

type directoryService interface {
	Register(ctx context.Context, in RegisterInput) (*Student, error)
	Authenticate(ctx context.Context, mobile, password string) (*Student, error)
	List(ctx context.Context) ([]Student, error)
	Delete(ctx context.Context, id int64) error
}

type Handler struct {
	svc    directoryService
	tokens *auth.Tokens
}

func NewHandler(svc directoryService, tokens *auth.Tokens) *Handler {
	return &Handler{svc: svc, tokens: tokens}
}

type registerRequest struct {
	FullName string `json:"full_name"`
	RollNo   string `json:"roll_no"`
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

type loginRequest struct {
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string  `json:"token"`
	ExpiresAt string  `json:"expires_at"`
	Student   Student `json:"student"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	st, err := h.svc.Register(r.Context(), RegisterInput{
		FullName: req.FullName,
		RollNo:   req.RollNo,
		Mobile:   req.Mobile,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			apiresp.WriteError(w, r, http.StatusBadRequest, "full_name, mobile and password are required")
		case errors.Is(err, ErrDuplicateMobile):
			apiresp.WriteError(w, r, http.StatusConflict, "mobile number already registered")
		default:
			apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}

	apiresp.WriteOK(w, r, http.StatusCreated, st)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	st, err := h.svc.Authenticate(r.Context(), req.Mobile, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			apiresp.WriteError(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	token, expiresAt, err := h.tokens.Issue(st.Mobile, st.FullName)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "cannot issue token")
		return
	}

	apiresp.WriteOK(w, r, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		Student:   *st,
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid student id")
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, ErrStudentNotFound):
			apiresp.WriteError(w, r, http.StatusNotFound, "student not found")
		default:
			apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}
