package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Auth
	SecretKey   string
	TokenExpiry time.Duration
	BcryptCost  int

	// SaaS連携
	SaaSAPIURL     string
	SaaSAPIKey     string
	ForwardTimeout time.Duration

	// Upload
	UploadDir     string
	MaxUploadSize int64
	ExtractMode   string

	// Rate Limit
	RateLimitUpload  int
	RateLimitGeneral int

	// Retention
	UploadRetention        time.Duration
	RetentionSweepInterval time.Duration

	// Server
	ServerPort string

	// Mock SaaS
	MockSaaSMount bool
	MockSaaSPort  string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.SecretKey = os.Getenv("SECRET_KEY")
	if cfg.SecretKey == "" {
		missing = append(missing, "SECRET_KEY")
	}

	cfg.SaaSAPIURL = os.Getenv("SAAS_API_URL")
	if cfg.SaaSAPIURL == "" {
		missing = append(missing, "SAAS_API_URL")
	}

	cfg.SaaSAPIKey = os.Getenv("SAAS_API_KEY")
	if cfg.SaaSAPIKey == "" {
		missing = append(missing, "SAAS_API_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.TokenExpiry = getEnvDuration("TOKEN_EXPIRY", 30*time.Minute)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 10)
	cfg.ForwardTimeout = getEnvDuration("FORWARD_TIMEOUT", 10*time.Second)
	cfg.UploadDir = getEnvString("UPLOAD_DIR", "uploads")
	cfg.MaxUploadSize = getEnvInt64("MAX_UPLOAD_SIZE", 10485760)
	cfg.ExtractMode = getEnvString("EXTRACT_MODE", "lenient")
	cfg.RateLimitUpload = getEnvInt("RATE_LIMIT_UPLOAD", 5)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 10)
	cfg.UploadRetention = getEnvDuration("UPLOAD_RETENTION", 0)
	cfg.RetentionSweepInterval = getEnvDuration("RETENTION_SWEEP_INTERVAL", time.Hour)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.MockSaaSMount = getEnvBool("MOCK_SAAS_MOUNT", true)
	cfg.MockSaaSPort = getEnvString("MOCK_SAAS_PORT", "9090")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
