package student

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"academyportal/internal/db"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateMobile    = errors.New("mobile number already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrStudentNotFound    = errors.New("student not found")
)

type Service struct {
	db         *sql.DB
	bcryptCost int
}

func NewService(database *sql.DB) *Service {
	return &Service{db: database, bcryptCost: bcrypt.DefaultCost}
}

type Student struct {
	ID        int64     `json:"id"`
	FullName  string    `json:"full_name"`
	RollNo    string    `json:"roll_no,omitempty"`
	Mobile    string    `json:"mobile"`
	CreatedAt time.Time `json:"created_at"`
}

type RegisterInput struct {
	FullName string
	RollNo   string
	Mobile   string
	Password string
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Student, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.RollNo = strings.TrimSpace(in.RollNo)
	in.Mobile = strings.TrimSpace(in.Mobile)

	if in.FullName == "" || in.Mobile == "" || len(in.Password) < 4 {
		return nil, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var out Student
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO students (full_name, roll_no, mobile, password_hash, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, full_name, roll_no, mobile, created_at
	`, in.FullName, in.RollNo, in.Mobile, string(hash)).Scan(
		&out.ID, &out.FullName, &out.RollNo, &out.Mobile, &out.CreatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrDuplicateMobile
		}
		return nil, fmt.Errorf("insert student: %w", err)
	}
	return &out, nil
}

// Authenticate looks a student up by mobile and compares the password.
// A missing record and a wrong password return the same error so callers
// cannot enumerate registered numbers.
func (s *Service) Authenticate(ctx context.Context, mobile, password string) (*Student, error) {
	mobile = strings.TrimSpace(mobile)
	if mobile == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, full_name, roll_no, mobile, password_hash, created_at
		FROM students
		WHERE mobile = $1
		LIMIT 1
	`, mobile)

	var out Student
	var passwordHash string
	if err := row.Scan(&out.ID, &out.FullName, &out.RollNo, &out.Mobile, &passwordHash, &out.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("query student: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &out, nil
}

func (s *Service) List(ctx context.Context) ([]Student, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, full_name, roll_no, mobile, created_at
		FROM students
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	out := make([]Student, 0)
	for rows.Next() {
		var st Student
		if err := rows.Scan(&st.ID, &st.FullName, &st.RollNo, &st.Mobile, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrStudentNotFound
	}
	return nil
}
