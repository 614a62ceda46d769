package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Publish struct {
	APIURL          string
	Pause           time.Duration
	AttemptTimeout  time.Duration
	Concurrency     int
	LivePostTimeout time.Duration
}

type Config struct {
	Port                   string
	PostgresURI            string
	RedisURI               string
	FrontendURL            string
	AuthBaseURL            string
	Publish                Publish
	RedirectSnapshotTTL    time.Duration
	ConnectionSyncInterval time.Duration
	NotificationLimit      int
	R2                     R2
	SecretKey              string
	CookieName             string
}

func LoadConfig() *Config {
	return &Config{
		Port:        getEnv("PORT", "3000"),
		PostgresURI: getEnv("POSTGRES_URI", ""),
		RedisURI:    getEnv("REDIS_URI", "localhost:6379"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		AuthBaseURL: getEnv("AUTH_BASE_URL", "http://localhost:3000"),
		Publish: Publish{
			APIURL:          getEnv("PUBLISH_API_URL", "http://localhost:8000"),
			Pause:           getEnvDuration("PUBLISH_PAUSE", 500*time.Millisecond),
			AttemptTimeout:  getEnvDuration("PUBLISH_ATTEMPT_TIMEOUT", 60*time.Second),
			Concurrency:     getEnvInt("PUBLISH_CONCURRENCY", 1),
			LivePostTimeout: getEnvDuration("LIVE_POST_TIMEOUT", 5*time.Second),
		},
		RedirectSnapshotTTL:    getEnvDuration("REDIRECT_SNAPSHOT_TTL", 15*time.Minute),
		ConnectionSyncInterval: getEnvDuration("CONNECTION_SYNC_INTERVAL", 10*time.Minute),
		NotificationLimit:      getEnvInt("NOTIFICATION_LIMIT", 20),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		SecretKey:  getEnv("SECRET_KEY", ""),
		CookieName: getEnv("COOKIE_NAME", "digimark_session"),
	}
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.PostgresURI == "" {
		return fmt.Errorf("POSTGRES_URI cannot be empty")
	}
	switch len(c.SecretKey) {
	case 16, 24, 32:
	default:
		return fmt.Errorf("SECRET_KEY must be 16, 24 or 32 bytes")
	}
	if c.Publish.Concurrency != 1 {
		return fmt.Errorf("PUBLISH_CONCURRENCY must be 1, got %d", c.Publish.Concurrency)
	}
	if c.Publish.AttemptTimeout <= 0 {
		return fmt.Errorf("PUBLISH_ATTEMPT_TIMEOUT must be > 0")
	}
	if c.RedirectSnapshotTTL <= 0 {
		return fmt.Errorf("REDIRECT_SNAPSHOT_TTL must be > 0")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
