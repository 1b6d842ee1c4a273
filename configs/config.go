package config

import (
	"os"
	"strconv"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type SMTP struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type Scheduler struct {
	TickInterval       time.Duration
	BatchSize          int
	MinimumLead        time.Duration
	PublishTimeout     time.Duration
	PublishConcurrency int
	PublishMaxAttempts int
	PublishRetryDelay  time.Duration
}

type Config struct {
	LinkedinClientID     string
	LinkedinClientSecret string
	LinkedinRedirectURI  string
	DiscordClientID      string
	DiscordClientSecret  string
	DiscordRedirectURI   string
	BlueskyPDSURL        string
	TelegramBotToken     string
	PostgresURI          string
	RedisURI             string
	FrontendURL          string
	R2                   R2
	SMTP                 SMTP
	Scheduler            Scheduler
	SecretKey            string
}

func LoadConfig() *Config {
	return &Config{
		LinkedinClientID:     getEnv("LINKEDIN_CLIENT_ID", ""),
		LinkedinClientSecret: getEnv("LINKEDIN_CLIENT_SECRET", ""),
		LinkedinRedirectURI:  getEnv("LINKEDIN_REDIRECT_URI", ""),
		DiscordClientID:      getEnv("DISCORD_CLIENT_ID", ""),
		DiscordClientSecret:  getEnv("DISCORD_CLIENT_SECRET", ""),
		DiscordRedirectURI:   getEnv("DISCORD_REDIRECT_URI", ""),
		BlueskyPDSURL:        getEnv("BLUESKY_PDS_URL", "https://bsky.social"),
		TelegramBotToken:     getEnv("TELEGRAM_BOT_TOKEN", ""),
		PostgresURI:          getEnv("POSTGRES_URI", ""),
		RedisURI:             getEnv("REDIS_URI", ""),
		FrontendURL:          getEnv("FRONTEND_URL", "http://localhost:5173"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		SMTP: SMTP{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", ""),
		},
		Scheduler: Scheduler{
			TickInterval:       getEnvDuration("SCHEDULER_TICK_INTERVAL", 30*time.Second),
			BatchSize:          getEnvInt("SCHEDULER_BATCH_SIZE", 50),
			MinimumLead:        getEnvDuration("SCHEDULER_MINIMUM_LEAD", 5*time.Minute),
			PublishTimeout:     getEnvDuration("PUBLISH_TIMEOUT", 30*time.Second),
			PublishConcurrency: getEnvInt("PUBLISH_CONCURRENCY", 10),
			PublishMaxAttempts: getEnvInt("PUBLISH_MAX_ATTEMPTS", 1),
			PublishRetryDelay:  getEnvDuration("PUBLISH_RETRY_DELAY", 5*time.Second),
		},
		SecretKey: getEnv("SECRET_KEY", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
