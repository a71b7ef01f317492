// Package config assembles the service configuration from environment
// variables.
package config

import (
	"fmt"
	"time"

	"github.com/Theadedamola/snapcode-backend/internal/pkg/env"
)

type Config struct {
	HTTP   httpConfig
	JWT    jwtConfig
	DB     dbConfig
	Redis  redisConfig
	Google googleConfig
	Render renderConfig
	Blob   blobConfig

	ClientURL string
	DevMode   bool

	RateLimitPerMinute int
	RateLimitBurst     int
}

type httpConfig struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type jwtConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type dbConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// redisConfig is optional: an empty Addr selects the in-memory refresh
// token store.
type redisConfig struct {
	Addr     string
	Password string
	DB       int
}

type googleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type renderConfig struct {
	URL     string
	Timeout time.Duration
}

type blobConfig struct {
	Root string
}

func FromEnv() Config {
	port := env.Int("PORT", 4000)

	return Config{
		HTTP: httpConfig{
			ListenAddr:      fmt.Sprintf(":%d", port),
			ReadTimeout:     env.Duration("HTTP_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    env.Duration("HTTP_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     env.Duration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: env.Duration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		JWT: jwtConfig{
			Secret: env.RequireString("JWT_SECRET"),
			Issuer: env.String("JWT_ISSUER", "snapcode"),
			// both windows are 7d for now; see token.CodecConfig
			AccessTTL:  env.Duration("JWT_ACCESS_TTL", 7*24*time.Hour),
			RefreshTTL: env.Duration("JWT_REFRESH_TTL", 7*24*time.Hour),
		},
		DB: dbConfig{
			Host:     env.String("DB_HOST", "localhost"),
			Port:     env.Int("DB_PORT", 5432),
			User:     env.RequireString("DB_USER"),
			Password: env.RequireString("DB_PASSWORD"),
			Name:     env.String("DB_NAME", "snapcode"),
			SSLMode:  env.String("DB_SSL_MODE", "disable"),
		},
		Redis: redisConfig{
			Addr:     env.String("REDIS_ADDR", ""),
			Password: env.String("REDIS_PASSWORD", ""),
			DB:       env.Int("REDIS_DB", 0),
		},
		Google: googleConfig{
			ClientID:     env.RequireString("GOOGLE_CLIENT_ID"),
			ClientSecret: env.RequireString("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  env.String("GOOGLE_REDIRECT_URL", "http://localhost:4000/api/auth/google/callback"),
		},
		Render: renderConfig{
			URL:     env.RequireString("RENDERER_URL"),
			Timeout: env.Duration("RENDERER_TIMEOUT", 30*time.Second),
		},
		Blob: blobConfig{
			Root: env.String("BLOB_ROOT", "./data/exports"),
		},
		ClientURL:          env.String("CLIENT_URL", "http://localhost:3000"),
		DevMode:            env.String("APP_ENV", "development") == "development",
		RateLimitPerMinute: env.Int("RATE_LIMIT_PER_MINUTE", 120),
		RateLimitBurst:     env.Int("RATE_LIMIT_BURST", 120),
	}
}
