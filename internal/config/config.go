package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

var ErrTelegramTokenMissing = errors.New("TELEGRAM_BOT_TOKEN is required")

type Config struct {
	GoogleAPIKey  string
	TelegramToken string

	LogLevel string
	Debug    bool

	PreferIPv4 bool

	MaxConcurrent  int
	RequestTimeout time.Duration
	HTTPTimeout    time.Duration

	GeminiBaseURL           string
	GeminiAPIVersion        string
	TextModel               string
	ImageModel              string
	ImageResponseModalities []string

	WebAddr      string
	MaxBodyBytes int64

	// TextGroupDebounce merges consecutive plain-text messages from one user.
	// Zero turns merging off.
	TextGroupDebounce time.Duration
}

func Load() (Config, error) {
	cfg := Config{
		LogLevel:                strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Debug:                   getEnvBool("DEBUG", false),
		PreferIPv4:              getEnvBool("PREFER_IPV4", true),
		MaxConcurrent:           getEnvInt("MAX_CONCURRENT", 4),
		RequestTimeout:          time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 180)) * time.Second,
		HTTPTimeout:             time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		GeminiBaseURL:           getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GeminiAPIVersion:        getEnv("GEMINI_API_VERSION", "v1beta"),
		TextModel:               getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
		ImageModel:              getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		ImageResponseModalities: splitList(getEnv("IMAGE_RESPONSE_MODALITIES", "Image")),
		WebAddr:                 getEnv("WEB_ADDR", ":8080"),
		MaxBodyBytes:            int64(getEnvInt("MAX_BODY_BYTES", 64<<10)),
		TextGroupDebounce:       time.Duration(getEnvInt("TEXT_GROUP_DEBOUNCE_MS", 1200)) * time.Millisecond,
	}

	cfg.GoogleAPIKey = getEnv("GOOGLE_API_KEY", strings.TrimSpace(os.Getenv("GEMINI_API_KEY")))
	cfg.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))

	if cfg.GoogleAPIKey == "" {
		return Config{}, errors.New("GOOGLE_API_KEY is required")
	}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 180 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 << 10
	}
	if cfg.TextGroupDebounce < 0 {
		cfg.TextGroupDebounce = 0
	}

	return cfg, nil
}

// RequireTelegram reports whether the bot front end can start.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return ErrTelegramTokenMissing
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(value string) []string {
	var out []string
	for _, p := range strings.Split(value, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
