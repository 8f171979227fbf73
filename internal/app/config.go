package app

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores runtime configuration loaded from environment variables.
type Config struct {
	AppEnv              string
	HTTPAddr            string
	DBDSN               string
	JWTSecret           string
	TokenTTL            time.Duration
	DBMaxOpenConns      int
	DBMaxIdleConns      int
	DBConnMaxLifeMins   int
	AuthRateLimitPerMin int
	AllowedOrigins      []string
	UploadDir           string
	MaxPDFUploadBytes   int64
	MaxVideoUploadBytes int64
}

// LoadConfig reads the environment, optionally preloaded from a .env file.
// The database DSN and the token signing secret have no defaults: the
// process must not come up without them.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppEnv:              envOrDefault("APP_ENV", "development"),
		HTTPAddr:            envOrDefault("HTTP_ADDR", ":8080"),
		DBDSN:               strings.TrimSpace(os.Getenv("DB_DSN")),
		JWTSecret:           strings.TrimSpace(os.Getenv("JWT_SECRET")),
		TokenTTL:            time.Duration(intOrDefault("TOKEN_TTL_HOURS", 24*7)) * time.Hour,
		DBMaxOpenConns:      intOrDefault("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:      intOrDefault("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLifeMins:   intOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30),
		AuthRateLimitPerMin: intOrDefault("AUTH_RATE_LIMIT_PER_MINUTE", 60),
		AllowedOrigins:      splitList(envOrDefault("ALLOWED_ORIGINS", "http://localhost:5173")),
		UploadDir:           envOrDefault("UPLOAD_DIR", "uploads"),
		MaxPDFUploadBytes:   int64(intOrDefault("MAX_PDF_UPLOAD_MB", 20)) << 20,
		MaxVideoUploadBytes: int64(intOrDefault("MAX_VIDEO_UPLOAD_MB", 200)) << 20,
	}

	if cfg.DBDSN == "" {
		return Config{}, errors.New("DB_DSN is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func intOrDefault(key string, fallback int) int {
	n, _ := strconv.Atoi(os.Getenv(key))
	if n <= 0 {
		return fallback
	}
	return n
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
