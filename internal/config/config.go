package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	AccessSecret string
}

type BatchServiceConfig struct {
	URL   string
	Token string
}

type UploadConfig struct {
	MaxBytes      int64
	RatePerMinute int
}

type ProcessingConfig struct {
	ChunkSize   int
	PlateColumn string
	// LexiconPath - YAML-справочник топонимов; пусто - встроенный.
	LexiconPath string
}

type SessionConfig struct {
	Backend       string
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type Config struct {
	Environment  string
	HTTP         HTTPConfig
	DB           DBConfig
	Auth         AuthConfig
	BatchService BatchServiceConfig
	Upload       UploadConfig
	Processing   ProcessingConfig
	Session      SessionConfig
}

const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")

	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", time.Hour)
	v.SetDefault("UPLOAD_MAX_BYTES", 20<<20)
	v.SetDefault("UPLOAD_RATE_PER_MINUTE", 10)
	v.SetDefault("CHUNK_SIZE", 2000)
	v.SetDefault("PLATE_COLUMN", "НОМЕРНОЙ ЗНАК")
	v.SetDefault("SESSION_BACKEND", SessionBackendMemory)
	v.SetDefault("SESSION_TTL", 2*time.Hour)
	v.SetDefault("REDIS_ADDR", "localhost:6379")

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		BatchService: BatchServiceConfig{
			URL:   v.GetString("BATCH_SERVICE_URL"),
			Token: v.GetString("BATCH_SERVICE_TOKEN"),
		},
		Upload: UploadConfig{
			MaxBytes:      v.GetInt64("UPLOAD_MAX_BYTES"),
			RatePerMinute: v.GetInt("UPLOAD_RATE_PER_MINUTE"),
		},
		Processing: ProcessingConfig{
			ChunkSize:   v.GetInt("CHUNK_SIZE"),
			PlateColumn: v.GetString("PLATE_COLUMN"),
			LexiconPath: v.GetString("LEXICON_PATH"),
		},
		Session: SessionConfig{
			Backend:       v.GetString("SESSION_BACKEND"),
			TTL:           v.GetDuration("SESSION_TTL"),
			RedisAddr:     v.GetString("REDIS_ADDR"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.Upload.MaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	if cfg.Processing.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive")
	}
	switch cfg.Session.Backend {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if cfg.Session.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for redis session backend")
		}
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", cfg.Session.Backend)
	}
	return nil
}
