package config

import (
	"os"
	"testing"
	"time"
)

func TestNewFromEnv(t *testing.T) {
	setEnv := func(key, value string) {
		t.Helper()
		t.Setenv(key, value)
	}

	t.Run("Success", func(t *testing.T) {
		setEnv("JWT_SECRET", "secret")
		setEnv("GEMINI_API_KEY", "gemini_key")
		setEnv("GROQ_API_KEY", "groq_key")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.JWTSecret != "secret" {
			t.Errorf("Expected JWTSecret to be 'secret', got '%s'", cfg.JWTSecret)
		}
		if cfg.GeminiAPIKey != "gemini_key" {
			t.Errorf("Expected GeminiAPIKey to be 'gemini_key', got '%s'", cfg.GeminiAPIKey)
		}
		if cfg.ListenAddr != ":8080" {
			t.Errorf("Expected default ListenAddr ':8080', got '%s'", cfg.ListenAddr)
		}
		if cfg.TokenTTL != 60*time.Minute {
			t.Errorf("Expected default TokenTTL of 60m, got %v", cfg.TokenTTL)
		}
	})

	t.Run("MissingJWTSecret", func(t *testing.T) {
		setEnv("GEMINI_API_KEY", "gemini_key")
		os.Unsetenv("JWT_SECRET")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for missing JWT_SECRET, got nil")
		}
		expectedError := "JWT_SECRET environment variable not set"
		if err.Error() != expectedError {
			t.Errorf("Expected error '%s', got '%s'", expectedError, err.Error())
		}
	})

	t.Run("MissingAllLLMKeys", func(t *testing.T) {
		setEnv("JWT_SECRET", "secret")
		os.Unsetenv("GEMINI_API_KEY")
		os.Unsetenv("GROQ_API_KEY")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error when no LLM API key is set, got nil")
		}
	})

	t.Run("GroqOnlyIsEnough", func(t *testing.T) {
		setEnv("JWT_SECRET", "secret")
		setEnv("GROQ_API_KEY", "groq_key")
		os.Unsetenv("GEMINI_API_KEY")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.GroqAPIKey != "groq_key" {
			t.Errorf("Expected GroqAPIKey to be 'groq_key', got '%s'", cfg.GroqAPIKey)
		}
	})

	t.Run("CustomTokenTTL", func(t *testing.T) {
		setEnv("JWT_SECRET", "secret")
		setEnv("GEMINI_API_KEY", "gemini_key")
		setEnv("TOKEN_TTL_MINUTES", "15")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.TokenTTL != 15*time.Minute {
			t.Errorf("Expected TokenTTL of 15m, got %v", cfg.TokenTTL)
		}
	})

	t.Run("InvalidTokenTTL", func(t *testing.T) {
		setEnv("JWT_SECRET", "secret")
		setEnv("GEMINI_API_KEY", "gemini_key")
		setEnv("TOKEN_TTL_MINUTES", "soon")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for non-numeric TOKEN_TTL_MINUTES, got nil")
		}
	})
}
