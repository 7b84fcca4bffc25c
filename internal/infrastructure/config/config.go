package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Port      string        `env:"PORT,      default=8080"`
	Env       string        `env:"ENV,       default=development"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`
	JWTSecret string        `env:"JWT_SECRET"`
	JWTTTL    time.Duration `env:"JWT_TTL,   default=24h"`
	RateLimit float64       `env:"RATE_LIMIT, default=20"`

	Store   StoreConfig
	Ledger  LedgerConfig
	Catalog CatalogConfig
	Mongo   MongoConfig
	Redis   RedisConfig
	Social  SocialConfig
	Admin   AdminConfig
	Tracing TracingConfig
}

type StoreConfig struct {
	Driver      string `env:"STORE_DRIVER, default=sqlite"`
	SQLitePath  string `env:"SQLITE_PATH,  default=registration.db"`
	PostgresDSN string `env:"POSTGRES_DSN"`
}

type LedgerConfig struct {
	Timeout           time.Duration `env:"LEDGER_TIMEOUT,     default=3s"`
	MaxRetries        uint          `env:"LEDGER_MAX_RETRIES, default=3"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL, default=10m"`
	EventWorkers      int           `env:"EVENT_WORKERS,      default=8"`
}

type CatalogConfig struct {
	EditGrace   time.Duration `env:"COURSE_EDIT_GRACE,   default=24h"`
	DeleteGrace time.Duration `env:"COURSE_DELETE_GRACE, default=0s"`
}

// MongoConfig is optional: with an empty URI accounts live in memory and the
// audit trail is disabled.
type MongoConfig struct {
	URI      string `env:"MONGO_URI"`
	Database string `env:"MONGO_DB, default=course_registration"`
}

// RedisConfig is optional: with an empty address the my-courses cache is off.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB,  default=0"`
	CacheTTL time.Duration `env:"CACHE_TTL, default=5m"`
}

type SocialConfig struct {
	Name         string   `env:"SOCIAL_PROVIDER, default=wechat"`
	ClientID     string   `env:"SOCIAL_CLIENT_ID"`
	ClientSecret string   `env:"SOCIAL_CLIENT_SECRET"`
	AuthURL      string   `env:"SOCIAL_AUTH_URL"`
	TokenURL     string   `env:"SOCIAL_TOKEN_URL"`
	ProfileURL   string   `env:"SOCIAL_PROFILE_URL"`
	RedirectURL  string   `env:"SOCIAL_REDIRECT_URL"`
	Scopes       []string `env:"SOCIAL_SCOPES"`
}

type AdminConfig struct {
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
}

type TracingConfig struct {
	Endpoint string `env:"OTEL_ENDPOINT"`
}

// IsDevelopment reports whether the service runs in a local environment.
func (c *Config) IsDevelopment() bool {
	return c.Env == "" || c.Env == "development" || c.Env == "dev" || c.Env == "test"
}

// Load reads an optional .env file, then the process environment.
// Variables already set in the environment win over the file.
func Load(ctx context.Context) (*Config, error) {
	file := ".env"
	if f := os.Getenv("ENV_FILE"); f != "" {
		file = f
	}
	if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", file, err)
	}
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom processes configuration from lookuper and validates it.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.Store.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if c.JWTSecret == "" {
		if !c.IsDevelopment() {
			return errors.New("JWT_SECRET is required outside development")
		}
		c.JWTSecret = "dev-secret-change-me"
	}
	if c.Ledger.Timeout <= 0 {
		return errors.New("LEDGER_TIMEOUT must be positive")
	}
	if c.Catalog.EditGrace < 0 || c.Catalog.DeleteGrace < 0 {
		return errors.New("course grace periods must not be negative")
	}
	return nil
}
