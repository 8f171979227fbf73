package app

import (
	"database/sql"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"academyportal/internal/app/observability"
	"academyportal/internal/auth"
	"academyportal/internal/draft"
	"academyportal/internal/exam"
	"academyportal/internal/media"
	"academyportal/internal/student"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(cfg Config, db *sql.DB) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	collector := observability.NewCollector(db)
	r.Use(collector.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	guard := auth.NewGuard(tokens)

	studentHandler := student.NewHandler(student.NewService(db), tokens)
	examSvc := exam.NewService(db)
	examHandler := exam.NewHandler(examSvc)
	draftHandler := draft.NewHandler(draft.NewService(db), cfg.MaxPDFUploadBytes)
	mediaHandler := media.NewHandler(media.NewService(db, cfg.UploadDir), cfg.MaxVideoUploadBytes)

	authLimiter := NewIPRateLimiter(cfg.AuthRateLimitPerMin, time.Minute)

	r.Get("/api/test", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/metrics", collector.MetricsHandler)

	r.Group(func(limited chi.Router) {
		limited.Use(RateLimitMiddleware(authLimiter))
		limited.Post("/students", studentHandler.Register)
		limited.Post("/student-login", studentHandler.Login)
	})
	r.Get("/students", studentHandler.List)
	r.Delete("/students/{id}", studentHandler.Delete)

	r.Get("/videos", mediaHandler.ListVideos)
	r.Post("/videos", mediaHandler.SaveVideo)
	r.Put("/videos/{id}", mediaHandler.UpdateVideo)
	r.Delete("/videos/{id}", mediaHandler.DeleteVideo)

	r.Post("/drafts", draftHandler.Create)
	r.Get("/drafts", draftHandler.List)
	r.Get("/drafts/{id}", draftHandler.Get)
	r.Put("/drafts/{id}", draftHandler.Update)
	r.Delete("/drafts/{id}", draftHandler.Delete)
	r.Post("/api/save-bulk-exam", draftHandler.CreateBulk)
	r.Post("/api/exam/pdf-upload", draftHandler.UploadPDF)
	r.Post("/api/exam/xlsx-upload", draftHandler.UploadXLSX)
	r.Patch("/api/pdf-draft/{id}/set-answer", draftHandler.SetAnswer)
	r.Post("/api/pdf-draft/{id}/finalize", draftHandler.Finalize)
	r.Post("/conduct/{draftId}", draftHandler.Conduct)

	r.Get("/active-exams", examHandler.ListActive)
	r.Get("/exam/{id}", examHandler.Get)

	r.Group(func(secure chi.Router) {
		secure.Use(guard.RequireAuth)
		secure.Post("/submit-exam", examHandler.Submit)
		secure.Get("/my-results", examHandler.MyResults)
	})

	r.Get("/results", examHandler.ListResults)
	r.Get("/results/student/{mobile}", examHandler.ResultsByStudent)
	r.Get("/results/exam", examHandler.ResultsByExam)
	r.Get("/results/exam/export", examHandler.ExportResults)

	r.Post("/api/save-note", mediaHandler.SaveNote)
	r.Get("/api/notes", mediaHandler.ListNotes)
	r.Delete("/api/notes/{id}", mediaHandler.DeleteNote)
	r.Post("/upload-army-video", mediaHandler.UploadTrainingVideo)
	r.Get("/api/army-videos", mediaHandler.ListTrainingVideos)

	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))

	// Unmatched GETs fall back to the single-page frontend.
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		index := filepath.Join("web", "static", "index.html")
		if req.Method == http.MethodGet {
			if _, err := os.Stat(index); err == nil {
				http.ServeFile(w, req, index)
				return
			}
		}
		http.NotFound(w, req)
	})

	return r
}
