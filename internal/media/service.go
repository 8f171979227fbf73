package media

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrVideoNotFound = errors.New("video not found")
	ErrNoteNotFound  = errors.New("note not found")
	ErrBadVideoFile  = errors.New("unsupported video file")
)

type Service struct {
	db        *sql.DB
	uploadDir string
}

func NewService(database *sql.DB, uploadDir string) *Service {
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	return &Service{db: database, uploadDir: uploadDir}
}

type Video struct {
	ID        int64     `json:"id"`
	Subject   string    `json:"subject"`
	ClassName string    `json:"class_name"`
	VideoKey  string    `json:"video_key"`
	Title     string    `json:"title,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Note struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type TrainingVideo struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveVideo upserts the lesson link for a (subject, class) pair. A second
// save for the same pair replaces the link instead of creating a duplicate.
func (s *Service) SaveVideo(ctx context.Context, v Video) (*Video, error) {
	v.Subject = strings.TrimSpace(v.Subject)
	v.ClassName = strings.TrimSpace(v.ClassName)
	v.VideoKey = strings.TrimSpace(v.VideoKey)
	v.Title = strings.TrimSpace(v.Title)
	if v.Subject == "" || v.ClassName == "" || v.VideoKey == "" {
		return nil, ErrInvalidInput
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO videos (subject, class_name, video_key, title, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (subject, class_name)
		DO UPDATE SET video_key = EXCLUDED.video_key,
			title = EXCLUDED.title,
			updated_at = now()
		RETURNING id, subject, class_name, video_key, title, updated_at
	`, v.Subject, v.ClassName, v.VideoKey, v.Title)
	out, err := scanVideo(row)
	if err != nil {
		return nil, fmt.Errorf("save video: %w", err)
	}
	return out, nil
}

func (s *Service) UpdateVideo(ctx context.Context, videoID int64, v Video) (*Video, error) {
	v.VideoKey = strings.TrimSpace(v.VideoKey)
	if videoID <= 0 || v.VideoKey == "" {
		return nil, ErrInvalidInput
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE videos
		SET video_key = $2,
			title = $3,
			updated_at = now()
		WHERE id = $1
		RETURNING id, subject, class_name, video_key, title, updated_at
	`, videoID, v.VideoKey, strings.TrimSpace(v.Title))
	out, err := scanVideo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		return nil, fmt.Errorf("update video: %w", err)
	}
	return out, nil
}

func (s *Service) ListVideos(ctx context.Context) ([]Video, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subject, class_name, video_key, title, updated_at
		FROM videos
		ORDER BY subject, class_name
	`)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	out := make([]Video, 0)
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return out, nil
}

func (s *Service) DeleteVideo(ctx context.Context, videoID int64) error {
	if videoID <= 0 {
		return ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM videos WHERE id = $1`, videoID)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrVideoNotFound
	}
	return nil
}

func (s *Service) SaveNote(ctx context.Context, title, content string) (*Note, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" || content == "" {
		return nil, ErrInvalidInput
	}

	var n Note
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO notes (title, content, created_at)
		VALUES ($1, $2, now())
		RETURNING id, title, content, created_at
	`, title, content).Scan(&n.ID, &n.Title, &n.Content, &n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("save note: %w", err)
	}
	return &n, nil
}

func (s *Service) ListNotes(ctx context.Context) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, content, created_at
		FROM notes
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	out := make([]Note, 0)
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return out, nil
}

func (s *Service) DeleteNote(ctx context.Context, noteID int64) error {
	if noteID <= 0 {
		return ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, noteID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNoteNotFound
	}
	return nil
}

var allowedVideoExts = map[string]bool{
	".mp4":  true,
	".webm": true,
	".mkv":  true,
	".mov":  true,
	".avi":  true,
}

// SaveTrainingVideo writes the uploaded file under the upload directory
// with a collision-proof name and records its public URL.
func (s *Service) SaveTrainingVideo(ctx context.Context, title string, file multipart.File, header *multipart.FileHeader) (*TrainingVideo, error) {
	title = strings.TrimSpace(title)
	if title == "" || header == nil {
		return nil, ErrInvalidInput
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedVideoExts[ext] {
		return nil, ErrBadVideoFile
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	name := fmt.Sprintf("%d-%s%s", time.Now().Unix(), uuid.NewString(), ext)
	path := filepath.Join(s.uploadDir, name)

	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(dst, file); err != nil {
		_ = dst.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("write upload file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("close upload file: %w", err)
	}

	url := "/uploads/" + name
	var tv TrainingVideo
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO training_videos (title, url, created_at)
		VALUES ($1, $2, now())
		RETURNING id, title, url, created_at
	`, title, url).Scan(&tv.ID, &tv.Title, &tv.URL, &tv.CreatedAt)
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("save training video: %w", err)
	}
	return &tv, nil
}

func (s *Service) ListTrainingVideos(ctx context.Context) ([]TrainingVideo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, url, created_at
		FROM training_videos
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list training videos: %w", err)
	}
	defer rows.Close()

	out := make([]TrainingVideo, 0)
	for rows.Next() {
		var tv TrainingVideo
		if err := rows.Scan(&tv.ID, &tv.Title, &tv.URL, &tv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan training video: %w", err)
		}
		out = append(out, tv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate training videos: %w", err)
	}
	return out, nil
}

func scanVideo(scanner interface{ Scan(dest ...any) error }) (*Video, error) {
	var v Video
	if err := scanner.Scan(&v.ID, &v.Subject, &v.ClassName, &v.VideoKey, &v.Title, &v.UpdatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}
