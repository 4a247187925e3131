// Package config handles application configuration via environment variables.
package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvFile is read on Load when present. Variables already set in the
// process environment win over the file.
const EnvFile = ".env.local"

// Lead notification modes.
const (
	NotifyTelegram = "telegram"
	NotifyEmail    = "email"
	NotifyAll      = "all"
)

// Config holds all configurable values for the app.
type Config struct {
	Env  string
	Port string

	TelegramBotToken string
	TelegramChatID   string
	TelegramAPIURL   string

	ResendAPIKey string
	ResendAPIURL string
	EmailFrom    string
	EmailTo      string

	LeadNotifier string

	SupabaseURL string
	SupabaseKey string
	DatabaseURL string

	PolicyVersion     string
	HTTPClientTimeout time.Duration

	CORSAllowedOrigins []string
}

// Load reads environment variables and populates a Config struct.
func Load() *Config {
	if err := godotenv.Load(EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Panicf("Invalid %s: %v", EnvFile, err)
	}

	timeout, err := time.ParseDuration(getEnv("HTTP_CLIENT_TIMEOUT", "10s"))
	if err != nil {
		log.Panicf("Invalid HTTP_CLIENT_TIMEOUT: %v", err)
	}

	notifier := getEnv("LEAD_NOTIFIER", NotifyTelegram)
	switch notifier {
	case NotifyTelegram, NotifyEmail, NotifyAll:
	default:
		log.Panicf("Invalid LEAD_NOTIFIER: %q", notifier)
	}

	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "8080"),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
		TelegramAPIURL:   getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),

		ResendAPIKey: os.Getenv("RESEND_API_KEY"),
		ResendAPIURL: getEnv("RESEND_API_URL", "https://api.resend.com"),
		EmailFrom:    getEnv("LEAD_EMAIL_FROM", "onboarding@resend.dev"),
		EmailTo:      os.Getenv("LEAD_EMAIL_TO"),

		LeadNotifier: notifier,

		SupabaseURL: firstEnv("NEXT_PUBLIC_SUPABASE_URL", "SUPABASE_URL"),
		SupabaseKey: firstEnv("SUPABASE_SERVICE_ROLE_KEY", "NEXT_PUBLIC_SUPABASE_ANON_KEY"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		PolicyVersion:     getEnv("POLICY_VERSION", "2025-10-15"),
		HTTPClientTimeout: timeout,

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// firstEnv returns the first non-empty variable among keys.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if val := os.Getenv(k); val != "" {
			return val
		}
	}
	return ""
}

// splitList parses a comma-separated value, dropping empty entries.
func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
