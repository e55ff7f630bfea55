package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the configuration for the application.
type Config struct {
	SpoonacularAPIKey  string
	SpoonacularBaseURL string
	SpoonacularRPS     float64
	RecipeCacheTTL     time.Duration

	GeminiAPIKey    string
	GeminiChatModel string
	GeminiTTSModel  string
	GeminiVoice     string

	DatabasePath string
	Port         string
	LogLevel     string

	JWTSecret  string
	SessionTTL time.Duration

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("spoonacular_base_url", "https://api.spoonacular.com")
	v.SetDefault("spoonacular_rps", 1.0)
	v.SetDefault("recipe_cache_ttl", "24h")
	v.SetDefault("gemini_chat_model", "gemini-2.5-pro")
	v.SetDefault("gemini_tts_model", "gemini-2.5-flash-preview-tts")
	v.SetDefault("gemini_voice", "Kore")
	v.SetDefault("database_path", "data/balanced-bowl.db")
	v.SetDefault("port", "8080")
	v.SetDefault("session_ttl", "720h")
	v.SetDefault("log_level", "info")
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	spoonacularKey := v.GetString("spoonacular_api_key")
	if spoonacularKey == "" {
		return nil, fmt.Errorf("SPOONACULAR_API_KEY environment variable not set")
	}

	geminiAPIKey := v.GetString("gemini_api_key")
	if geminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	jwtSecret := v.GetString("jwt_secret")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable not set")
	}

	allowed, err := parseIDList(v.GetString("telegram_allowed_user_ids"))
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS: %w", err)
	}

	var adminID int64
	if raw := v.GetString("admin_telegram_id"); raw != "" {
		adminID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	return &Config{
		SpoonacularAPIKey:      spoonacularKey,
		SpoonacularBaseURL:     strings.TrimRight(v.GetString("spoonacular_base_url"), "/"),
		SpoonacularRPS:         v.GetFloat64("spoonacular_rps"),
		RecipeCacheTTL:         v.GetDuration("recipe_cache_ttl"),
		GeminiAPIKey:           geminiAPIKey,
		GeminiChatModel:        v.GetString("gemini_chat_model"),
		GeminiTTSModel:         v.GetString("gemini_tts_model"),
		GeminiVoice:            v.GetString("gemini_voice"),
		DatabasePath:           v.GetString("database_path"),
		Port:                   v.GetString("port"),
		LogLevel:               v.GetString("log_level"),
		JWTSecret:              jwtSecret,
		SessionTTL:             v.GetDuration("session_ttl"),
		TelegramBotToken:       v.GetString("telegram_bot_token"),
		TelegramWebhookURL:     v.GetString("telegram_webhook_url"),
		TelegramAllowedUserIDs: allowed,
		AdminTelegramID:        adminID,
	}, nil
}

func parseIDList(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
