package config // package config loads application configuration from the environment

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration values. Each field is filled from
// the environment variable named in its envconfig tag; a .env file in the
// working directory is read first when present.
type Config struct {
	Env  string `envconfig:"APP_ENV" default:"dev"`  // application environment (dev/test/production)
	Port string `envconfig:"APP_PORT" default:"8080"` // HTTP port to listen on

	// StorageDriver selects the kv backend: redis, mysql or memory.
	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"redis"`
	KVPrefix      string `envconfig:"KV_PREFIX" default:"campuswork"`

	DBUser string `envconfig:"DB_USER" default:"root"`
	DBPass string `envconfig:"DB_PASS"` // empty allowed
	DBHost string `envconfig:"DB_HOST" default:"127.0.0.1"`
	DBPort string `envconfig:"DB_PORT" default:"3306"`
	DBName string `envconfig:"DB_NAME" default:"campuswork"`

	JWTSecret    string `envconfig:"JWT_SECRET" required:"true"`
	AccessTTLMin int    `envconfig:"ACCESS_TOKEN_TTL_MIN" default:"1440"`
	BcryptCost   int    `envconfig:"BCRYPT_COST" default:"10"`

	RabbitURL string `envconfig:"RABBITMQ_URL"` // events are dropped when empty

	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"2s"`

	Redis     RedisConfig     `envconfig:"REDIS"`
	RateLimit RateLimitConfig `envconfig:"RATE_LIMIT"`
}

// AccessTTL is the lifetime of access tokens and their sessions.
func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.AccessTTLMin) * time.Minute
}

// Load reads an optional .env file and then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return Config{}, fmt.Errorf("load config: JWT_SECRET is required")
	}
	switch c.StorageDriver {
	case "redis", "mysql", "memory":
	default:
		return Config{}, fmt.Errorf("load config: unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	c.RateLimit.normalize()
	return c, nil
}
