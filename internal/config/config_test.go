package config

import (
	"testing"
	"time"
)

func TestNewFromEnv(t *testing.T) {
	setRequired := func(t *testing.T) {
		t.Helper()
		t.Setenv("SPOONACULAR_API_KEY", "spoon_key")
		t.Setenv("GEMINI_API_KEY", "gemini_key")
		t.Setenv("JWT_SECRET", "secret")
	}

	t.Run("Success", func(t *testing.T) {
		setRequired(t)

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.SpoonacularAPIKey != "spoon_key" {
			t.Errorf("Expected SpoonacularAPIKey to be 'spoon_key', got '%s'", cfg.SpoonacularAPIKey)
		}
		if cfg.GeminiAPIKey != "gemini_key" {
			t.Errorf("Expected GeminiAPIKey to be 'gemini_key', got '%s'", cfg.GeminiAPIKey)
		}
		if cfg.SpoonacularBaseURL != "https://api.spoonacular.com" {
			t.Errorf("Expected default base URL, got '%s'", cfg.SpoonacularBaseURL)
		}
		if cfg.RecipeCacheTTL != 24*time.Hour {
			t.Errorf("Expected RecipeCacheTTL 24h, got %s", cfg.RecipeCacheTTL)
		}
		if cfg.GeminiVoice != "Kore" {
			t.Errorf("Expected default voice 'Kore', got '%s'", cfg.GeminiVoice)
		}
		if cfg.Port != "8080" {
			t.Errorf("Expected default port '8080', got '%s'", cfg.Port)
		}
	})

	t.Run("Overrides", func(t *testing.T) {
		setRequired(t)
		t.Setenv("SPOONACULAR_BASE_URL", "http://spoon.test/")
		t.Setenv("RECIPE_CACHE_TTL", "1h")
		t.Setenv("TELEGRAM_ALLOWED_USER_IDS", "12, 34")
		t.Setenv("ADMIN_TELEGRAM_ID", "12")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.SpoonacularBaseURL != "http://spoon.test" {
			t.Errorf("Expected trimmed base URL, got '%s'", cfg.SpoonacularBaseURL)
		}
		if cfg.RecipeCacheTTL != time.Hour {
			t.Errorf("Expected RecipeCacheTTL 1h, got %s", cfg.RecipeCacheTTL)
		}
		if len(cfg.TelegramAllowedUserIDs) != 2 || cfg.TelegramAllowedUserIDs[1] != 34 {
			t.Errorf("Expected allowed IDs [12 34], got %v", cfg.TelegramAllowedUserIDs)
		}
		if cfg.AdminTelegramID != 12 {
			t.Errorf("Expected AdminTelegramID 12, got %d", cfg.AdminTelegramID)
		}
	})

	missing := []string{"SPOONACULAR_API_KEY", "GEMINI_API_KEY", "JWT_SECRET"}
	for _, key := range missing {
		t.Run("Missing"+key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(key, "")

			_, err := NewFromEnv()
			if err == nil {
				t.Fatalf("Expected an error for missing %s, got nil", key)
			}
			expectedError := key + " environment variable not set"
			if err.Error() != expectedError {
				t.Errorf("Expected error '%s', got '%s'", expectedError, err.Error())
			}
		})
	}

	t.Run("InvalidAllowedIDs", func(t *testing.T) {
		setRequired(t)
		t.Setenv("TELEGRAM_ALLOWED_USER_IDS", "12,abc")

		if _, err := NewFromEnv(); err == nil {
			t.Fatal("Expected an error for malformed TELEGRAM_ALLOWED_USER_IDS, got nil")
		}
	})
}
