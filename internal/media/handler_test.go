package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

type mockMediaService struct {
	saveVideoFn          func(ctx context.Context, v Video) (*Video, error)
	updateVideoFn        func(ctx context.Context, videoID int64, v Video) (*Video, error)
	listVideosFn         func(ctx context.Context) ([]Video, error)
	deleteVideoFn        func(ctx context.Context, videoID int64) error
	saveNoteFn           func(ctx context.Context, title, content string) (*Note, error)
	listNotesFn          func(ctx context.Context) ([]Note, error)
	deleteNoteFn         func(ctx context.Context, noteID int64) error
	saveTrainingVideoFn  func(ctx context.Context, title string, file multipart.File, header *multipart.FileHeader) (*TrainingVideo, error)
	listTrainingVideosFn func(ctx context.Context) ([]TrainingVideo, error)
}

func (m *mockMediaService) SaveVideo(ctx context.Context, v Video) (*Video, error) {
	if m.saveVideoFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.saveVideoFn(ctx, v)
}

func (m *mockMediaService) UpdateVideo(ctx context.Context, videoID int64, v Video) (*Video, error) {
	if m.updateVideoFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.updateVideoFn(ctx, videoID, v)
}

func (m *mockMediaService) ListVideos(ctx context.Context) ([]Video, error) {
	if m.listVideosFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.listVideosFn(ctx)
}

func (m *mockMediaService) DeleteVideo(ctx context.Context, videoID int64) error {
	if m.deleteVideoFn == nil {
		return errors.New("not implemented")
	}
	return m.deleteVideoFn(ctx, videoID)
}

func (m *mockMediaService) SaveNote(ctx context.Context, title, content string) (*Note, error) {
	if m.saveNoteFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.saveNoteFn(ctx, title, content)
}

func (m *mockMediaService) ListNotes(ctx context.Context) ([]Note, error) {
	if m.listNotesFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.listNotesFn(ctx)
}

func (m *mockMediaService) DeleteNote(ctx context.Context, noteID int64) error {
	if m.deleteNoteFn == nil {
		return errors.New("not implemented")
	}
	return m.deleteNoteFn(ctx, noteID)
}

func (m *mockMediaService) SaveTrainingVideo(ctx context.Context, title string, file multipart.File, header *multipart.FileHeader) (*TrainingVideo, error) {
	if m.saveTrainingVideoFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.saveTrainingVideoFn(ctx, title, file, header)
}

func (m *mockMediaService) ListTrainingVideos(ctx context.Context) ([]TrainingVideo, error) {
	if m.listTrainingVideosFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.listTrainingVideosFn(ctx)
}

func TestSaveVideoUpsert(t *testing.T) {
	svc := &mockMediaService{
		saveVideoFn: func(ctx context.Context, v Video) (*Video, error) {
			if v.Subject != "Science" || v.ClassName != "8" {
				t.Fatalf("unexpected video key fields: %+v", v)
			}
			v.ID = 3
			v.UpdatedAt = time.Now()
			return &v, nil
		},
	}
	h := NewHandler(svc, 0)

	body, _ := json.Marshal(videoRequest{Subject: "Science", ClassName: "8", VideoKey: "yt:abc123"})
	req := httptest.NewRequest(http.MethodPost, "/videos", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.SaveVideo(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
}

func TestSaveVideoValidation(t *testing.T) {
	svc := &mockMediaService{
		saveVideoFn: func(ctx context.Context, v Video) (*Video, error) {
			return nil, ErrInvalidInput
		},
	}
	h := NewHandler(svc, 0)

	body, _ := json.Marshal(videoRequest{Subject: "Science"})
	req := httptest.NewRequest(http.MethodPost, "/videos", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.SaveVideo(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestDeleteNoteNotFound(t *testing.T) {
	svc := &mockMediaService{
		deleteNoteFn: func(ctx context.Context, noteID int64) error {
			return ErrNoteNotFound
		},
	}
	h := NewHandler(svc, 0)

	r := chi.NewRouter()
	r.Delete("/api/notes/{id}", h.DeleteNote)
	req := httptest.NewRequest(http.MethodDelete, "/api/notes/12", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestUploadTrainingVideo(t *testing.T) {
	svc := &mockMediaService{
		saveTrainingVideoFn: func(ctx context.Context, title string, file multipart.File, header *multipart.FileHeader) (*TrainingVideo, error) {
			if title != "Drill basics" {
				t.Fatalf("title = %q", title)
			}
			if header.Filename != "drill.mp4" {
				t.Fatalf("filename = %q", header.Filename)
			}
			return &TrainingVideo{ID: 1, Title: title, URL: "/uploads/1-x.mp4", CreatedAt: time.Now()}, nil
		},
	}
	h := NewHandler(svc, 0)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("title", "Drill basics"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	fw, err := mw.CreateFormFile("video", "drill.mp4")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte("fake video bytes")); err != nil {
		t.Fatalf("write file: %v", err)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload-army-video", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.UploadTrainingVideo(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}
}

func TestUploadTrainingVideoRejectsBadExtension(t *testing.T) {
	svc := &mockMediaService{
		saveTrainingVideoFn: func(ctx context.Context, title string, file multipart.File, header *multipart.FileHeader) (*TrainingVideo, error) {
			return nil, ErrBadVideoFile
		},
	}
	h := NewHandler(svc, 0)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("title", "Not a video")
	fw, _ := mw.CreateFormFile("video", "malware.exe")
	_, _ = fw.Write([]byte("nope"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload-army-video", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.UploadTrainingVideo(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
