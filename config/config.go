package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultSettingsPath = "inspection_settings.yaml"
	defaultModelsDir    = "models"
	defaultHTTPAddr     = ":8080"
	defaultLogMode      = "production"
	defaultInterval     = 33 * time.Millisecond
)

type Config struct {
	TelegramToken       string
	TelegramAlertChatID int64
	SettingsPath        string
	ModelsDir           string
	HTTPAddr            string
	LogMode             string
	InspectionInterval  time.Duration
	WebhookURL          string
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := &Config{
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		SettingsPath:  getEnv("SETTINGS_PATH", defaultSettingsPath),
		ModelsDir:     getEnv("MODELS_DIR", defaultModelsDir),
		HTTPAddr:      getEnv("HTTP_ADDR", defaultHTTPAddr),
		LogMode:       getEnv("LOG_MODE", defaultLogMode),
		WebhookURL:    os.Getenv("WEBHOOK_URL"),
	}

	if v := os.Getenv("TELEGRAM_ALERT_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse TELEGRAM_ALERT_CHAT_ID: %w", err)
		}
		cfg.TelegramAlertChatID = id
	}

	cfg.InspectionInterval = defaultInterval
	if v := os.Getenv("INSPECTION_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse INSPECTION_INTERVAL: %w", err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("INSPECTION_INTERVAL must be positive, got %s", d)
		}
		cfg.InspectionInterval = d
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
