package auth

import (
	"context"
	"net/http"
	"strings"

	"academyportal/internal/app/apiresp"
)

type contextKey string

const studentContextKey contextKey = "auth_student"

// Guard rejects requests that do not carry a valid bearer credential and
// attaches the decoded identity to the request context.
type Guard struct {
	tokens *Tokens
}

func NewGuard(tokens *Tokens) *Guard {
	return &Guard{tokens: tokens}
}

func (g *Guard) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		student, err := g.tokens.Verify(readBearerToken(r))
		if err != nil {
			apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := context.WithValue(r.Context(), studentContextKey, student)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func CurrentStudent(ctx context.Context) (*Student, bool) {
	v := ctx.Value(studentContextKey)
	if v == nil {
		return nil, false
	}
	s, ok := v.(*Student)
	return s, ok
}

// ContextWithStudent injects an authenticated student into context.
// Useful for tests.
func ContextWithStudent(ctx context.Context, student *Student) context.Context {
	return context.WithValue(ctx, studentContextKey, student)
}

func readBearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return h
}
