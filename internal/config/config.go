package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	OutputDir string

	ExtractAPIBaseURL string
	ExtractAPIToken   string
	ExtractModel      string
	ExtractTimeoutMs  int

	FetchRetryAttempts int
	FetchRetryDelayMs  int
	FetchTimeoutMs     int

	LegacyTrackKey string

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string
	MailFrom          string

	VerifyCodeTTLMin int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		ExtractAPIBaseURL: getEnv("EXTRACT_API_BASE_URL", ""),
		ExtractAPIToken:   getEnv("EXTRACT_API_TOKEN", ""),
		ExtractModel:      getEnv("EXTRACT_MODEL", "gemini-2.5-flash"),
		ExtractTimeoutMs:  getEnvInt("EXTRACT_TIMEOUT_MS", 60000),

		FetchRetryAttempts: getEnvInt("FETCH_RETRY_ATTEMPTS", 3),
		FetchRetryDelayMs:  getEnvInt("FETCH_RETRY_DELAY_MS", 2000),
		FetchTimeoutMs:     getEnvInt("FETCH_TIMEOUT_MS", 10000),

		LegacyTrackKey: getEnv("LEGACY_TRACK_KEY", "預設"),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),
		MailFrom:          getEnv("MAIL_FROM", ""),

		VerifyCodeTTLMin: getEnvInt("VERIFY_CODE_TTL_MIN", 5),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
