package db

import (
	"context"
	"database/sql"
	"fmt"
)

// RunMigrations applies the portal schema. Every statement is idempotent so
// the server can run it on every start. The unique indexes on exams and
// results are load-bearing: they are what reject the loser of a concurrent
// conduct or submit.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS students (
			id BIGSERIAL PRIMARY KEY,
			full_name TEXT NOT NULL,
			roll_no TEXT NOT NULL DEFAULT '',
			mobile TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS students_mobile_key ON students (mobile)`,

		`CREATE TABLE IF NOT EXISTS drafts (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			subject TEXT NOT NULL DEFAULT '',
			test_number TEXT NOT NULL DEFAULT '',
			origin TEXT NOT NULL DEFAULT 'manual',
			answers_pending BOOLEAN NOT NULL DEFAULT FALSE,
			questions JSONB NOT NULL DEFAULT '[]'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS exams (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			subject TEXT NOT NULL DEFAULT '',
			test_number TEXT NOT NULL DEFAULT '',
			questions JSONB NOT NULL DEFAULT '[]'::jsonb,
			conducted_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS exams_title_test_key ON exams (title, test_number)`,

		`CREATE TABLE IF NOT EXISTS results (
			id BIGSERIAL PRIMARY KEY,
			student_mobile TEXT NOT NULL,
			student_name TEXT NOT NULL DEFAULT '',
			exam_id BIGINT NOT NULL,
			exam_title TEXT NOT NULL DEFAULT '',
			subject TEXT NOT NULL DEFAULT '',
			test_number TEXT NOT NULL DEFAULT '',
			answers JSONB NOT NULL DEFAULT '[]'::jsonb,
			total_questions INT NOT NULL DEFAULT 0,
			correct_count INT NOT NULL DEFAULT 0,
			wrong_count INT NOT NULL DEFAULT 0,
			score INT NOT NULL DEFAULT 0,
			submitted_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS results_student_exam_key ON results (student_mobile, exam_id)`,

		`CREATE TABLE IF NOT EXISTS videos (
			id BIGSERIAL PRIMARY KEY,
			subject TEXT NOT NULL,
			class_name TEXT NOT NULL,
			video_key TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS videos_subject_class_key ON videos (subject, class_name)`,

		`CREATE TABLE IF NOT EXISTS notes (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS training_videos (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("run migration: %w", err)
		}
	}
	return nil
}
