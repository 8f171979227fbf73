package media

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"academyportal/internal/app/apiresp"

	"github.com/go-chi/chi/v5"
)

type mediaService interface {
	SaveVideo(ctx context.Context, v Video) (*Video, error)
	UpdateVideo(ctx context.Context, videoID int64, v Video) (*Video, error)
	ListVideos(ctx context.Context) ([]Video, error)
	DeleteVideo(ctx context.Context, videoID int64) error
	SaveNote(ctx context.Context, title, content string) (*Note, error)
	ListNotes(ctx context.Context) ([]Note, error)
	DeleteNote(ctx context.Context, noteID int64) error
	SaveTrainingVideo(ctx context.Context, title string, file multipart.File, header *multipart.FileHeader) (*TrainingVideo, error)
	ListTrainingVideos(ctx context.Context) ([]TrainingVideo, error)
}

type Handler struct {
	svc            mediaService
	maxUploadBytes int64
}

func NewHandler(svc mediaService, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 200 << 20
	}
	return &Handler{svc: svc, maxUploadBytes: maxUploadBytes}
}

type videoRequest struct {
	Subject   string `json:"subject"`
	ClassName string `json:"class_name"`
	VideoKey  string `json:"video_key"`
	Title     string `json:"title"`
}

func (h *Handler) SaveVideo(w http.ResponseWriter, r *http.Request) {
	var req videoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	v, err := h.svc.SaveVideo(r.Context(), Video{
		Subject:   req.Subject,
		ClassName: req.ClassName,
		VideoKey:  req.VideoKey,
		Title:     req.Title,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, v)
}

func (h *Handler) UpdateVideo(w http.ResponseWriter, r *http.Request) {
	videoID, ok := parseID(w, r, "invalid video id")
	if !ok {
		return
	}
	var req videoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	v, err := h.svc.UpdateVideo(r.Context(), videoID, Video{VideoKey: req.VideoKey, Title: req.Title})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, v)
}

func (h *Handler) ListVideos(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListVideos(r.Context())
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	videoID, ok := parseID(w, r, "invalid video id")
	if !ok {
		return
	}
	if err := h.svc.DeleteVideo(r.Context(), videoID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]any{"deleted": true})
}

type noteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (h *Handler) SaveNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	n, err := h.svc.SaveNote(r.Context(), req.Title, req.Content)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, n)
}

func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListNotes(r.Context())
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	noteID, ok := parseID(w, r, "invalid note id")
	if !ok {
		return
	}
	if err := h.svc.DeleteNote(r.Context(), noteID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]any{"deleted": true})
}

func (h *Handler) UploadTrainingVideo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || errors.Is(err, multipart.ErrMessageTooLarge) {
			apiresp.WriteError(w, r, http.StatusRequestEntityTooLarge, "video upload too large")
			return
		}
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("video")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "video file is required")
		return
	}
	defer func() { _ = file.Close() }()

	tv, err := h.svc.SaveTrainingVideo(r.Context(), r.FormValue("title"), file, header)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, tv)
}

func (h *Handler) ListTrainingVideos(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListTrainingVideos(r.Context())
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrBadVideoFile):
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrVideoNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, "video not found")
	case errors.Is(err, ErrNoteNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, "note not found")
	default:
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func parseID(w http.ResponseWriter, r *http.Request, msg string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, msg)
		return 0, false
	}
	return id, true
}
