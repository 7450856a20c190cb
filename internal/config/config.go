package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the configuration for the application.
type Config struct {
	ListenAddr string
	DBPath     string
	CacheDir   string

	JWTSecret string
	TokenTTL  time.Duration

	GeminiAPIKey string
	GroqAPIKey   string

	// Telegram admin alerts (optional)
	TelegramBotToken string
	TelegramAdminID  int64
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable not set")
	}

	geminiAPIKey := os.Getenv("GEMINI_API_KEY")
	groqAPIKey := os.Getenv("GROQ_API_KEY")
	if geminiAPIKey == "" && groqAPIKey == "" {
		return nil, fmt.Errorf("neither GEMINI_API_KEY nor GROQ_API_KEY environment variable is set")
	}

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	dbPath := os.Getenv("MENU_PLANNER_DB_PATH")
	if dbPath == "" {
		dbPath = "./data/menu-planner.db"
	}

	cacheDir := os.Getenv("CACHE_DIR")
	if cacheDir == "" {
		cacheDir = "./data/cache"
	}

	tokenTTL := 60 * time.Minute
	if ttlStr := os.Getenv("TOKEN_TTL_MINUTES"); ttlStr != "" {
		minutes, err := strconv.Atoi(ttlStr)
		if err != nil || minutes <= 0 {
			return nil, fmt.Errorf("TOKEN_TTL_MINUTES must be a positive integer, got %q", ttlStr)
		}
		tokenTTL = time.Duration(minutes) * time.Minute
	}

	// Telegram config is optional; alerts are disabled when unset.
	telegramBotToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	var telegramAdminID int64
	if idStr := os.Getenv("TELEGRAM_ADMIN_ID"); idStr != "" {
		fmt.Sscanf(idStr, "%d", &telegramAdminID)
	}

	return &Config{
		ListenAddr:       listenAddr,
		DBPath:           dbPath,
		CacheDir:         cacheDir,
		JWTSecret:        jwtSecret,
		TokenTTL:         tokenTTL,
		GeminiAPIKey:     geminiAPIKey,
		GroqAPIKey:       groqAPIKey,
		TelegramBotToken: telegramBotToken,
		TelegramAdminID:  telegramAdminID,
	}, nil
}
