package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
)

// Student is the identity carried inside a bearer token. The token is
// self-contained: verification never re-checks the directory, so a token
// issued to a since-deleted student still verifies until it expires.
type Student struct {
	Mobile string `json:"mobile"`
	Name   string `json:"name"`
}

type claims struct {
	Mobile string `json:"mobile"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// Tokens mints and verifies HMAC-signed bearer credentials with a fixed
// expiry from issuance.
type Tokens struct {
	secret []byte
	ttl    time.Duration
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Tokens{secret: []byte(secret), ttl: ttl}
}

func (t *Tokens) Issue(mobile, name string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(t.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Mobile: mobile,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (t *Tokens) Verify(tokenString string) (*Student, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrUnauthorized
	}

	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrUnauthorized
	}
	if strings.TrimSpace(c.Mobile) == "" {
		return nil, ErrUnauthorized
	}
	return &Student{Mobile: c.Mobile, Name: c.Name}, nil
}
