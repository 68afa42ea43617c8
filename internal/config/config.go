package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the whole service configuration, read from the environment.
type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	Env       string `envconfig:"APP_ENV" default:"local"`
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// CORSAllowedOrigins is a comma separated list. Empty allows the local
	// frontend only.
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`

	Log    LogConfig    `envconfig:"LOG"`
	Gemini GeminiConfig `envconfig:"GEMINI"`
	Cache  CacheConfig  `envconfig:"CACHE"`
	Store  StoreConfig  `envconfig:"STORE"`
}

type LogConfig struct {
	Level    string `envconfig:"LEVEL" default:"info"`
	Encoding string `envconfig:"ENCODING" default:"json"`
}

// GeminiConfig configures the model endpoint.
type GeminiConfig struct {
	Backend     string        `envconfig:"BACKEND" default:"rest"`
	APIKey      string        `envconfig:"API_KEY"`
	Model       string        `envconfig:"MODEL" default:"gemini-2.0-flash"`
	BaseURL     string        `envconfig:"BASE_URL" default:"https://generativelanguage.googleapis.com"`
	Timeout     time.Duration `envconfig:"TIMEOUT" default:"45s"`
	Temperature float32       `envconfig:"TEMPERATURE" default:"0.4"`
}

// CacheConfig selects the response cache. Size and TTL apply to the lru
// backend; TTL also applies to redis. A zero TTL means entries never expire.
type CacheConfig struct {
	Backend       string        `envconfig:"BACKEND" default:"memory"`
	Size          int           `envconfig:"SIZE" default:"1024"`
	TTL           time.Duration `envconfig:"TTL" default:"0s"`
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string        `envconfig:"REDIS_PREFIX" default:"lesson-orchestrator:model:"`
}

type StoreConfig struct {
	Backend             string `envconfig:"BACKEND" default:"postgres"`
	DatabaseURL         string `envconfig:"DATABASE_URL"`
	FirestoreProjectID  string `envconfig:"FIRESTORE_PROJECT_ID"`
	FirebaseCredentials string `envconfig:"FIREBASE_CREDENTIALS_FILE"`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the enumerated settings and the settings each backend needs.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	switch c.Store.Backend {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return errors.New("STORE_DATABASE_URL is required for the postgres store")
		}
	case "firestore":
		if c.Store.FirestoreProjectID == "" {
			return errors.New("STORE_FIRESTORE_PROJECT_ID is required for the firestore store")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}

	switch c.Cache.Backend {
	case "memory", "redis":
	case "lru":
		if c.Cache.Size <= 0 {
			return fmt.Errorf("CACHE_SIZE must be positive, got %d", c.Cache.Size)
		}
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.Cache.Backend)
	}

	switch c.Gemini.Backend {
	case "rest", "sdk":
	default:
		return fmt.Errorf("unknown GEMINI_BACKEND %q", c.Gemini.Backend)
	}
	if c.Gemini.Timeout <= 0 {
		return errors.New("GEMINI_TIMEOUT must be positive")
	}
	return nil
}
