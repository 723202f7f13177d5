// Package config provides application configuration loaded from environment variables.
// Call Load (or MustLoad in main) once at startup and pass the result down.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port             string        `env:"SERVER_PORT"          envDefault:"8080"`
	AdminPort        string        `env:"ADMIN_PORT"           envDefault:"8081"`
	Env              string        `env:"ENVIRONMENT"          envDefault:"development"` // "development" | "production"
	ReadTimeout      time.Duration `env:"SERVER_READ_TIMEOUT"  envDefault:"10s"`
	WriteTimeout     time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"10s"`
	AdminAllowedIPs  []string      `env:"ADMIN_ALLOWED_IPS"    envSeparator:","` // empty = allow all
	WSAllowedOrigins []string      `env:"WS_ALLOWED_ORIGINS"   envSeparator:","` // empty = allow all
}

// DBConfig holds SQL store connection settings.
type DBConfig struct {
	Driver          string        `env:"DB_DRIVER"            envDefault:"postgres"` // "postgres" | "sqlite"
	DSN             string        `env:"DATABASE_DSN"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS"    envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS"    envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
}

// JWTConfig holds access-token verification settings. Tokens are issued by
// the account subsystem; this service only verifies them.
type JWTConfig struct {
	AccessSecret string        `env:"JWT_ACCESS_SECRET"`
	AccessTTL    time.Duration `env:"JWT_ACCESS_TTL" envDefault:"15m"` // used by Issue in tooling
}

// AuctionConfig holds bidding engine settings.
type AuctionConfig struct {
	SweepInterval          time.Duration `env:"AUCTION_SWEEP_INTERVAL"           envDefault:"5s"`
	ActivationInterval     time.Duration `env:"AUCTION_ACTIVATION_INTERVAL"      envDefault:"5s"`
	MaxBidAttempts         int           `env:"AUCTION_MAX_BID_ATTEMPTS"         envDefault:"3"`
	RetryBaseDelay         time.Duration `env:"AUCTION_RETRY_BASE_DELAY"         envDefault:"10ms"`
	DefaultDurationMinutes int64         `env:"AUCTION_DEFAULT_DURATION_MINUTES" envDefault:"60"`
}

// EventsConfig holds outbound event publishing settings. An empty address
// disables that sink.
type EventsConfig struct {
	NATSURL       string `env:"NATS_URL"`
	NATSStream    string `env:"NATS_STREAM"    envDefault:"AUCTION_EVENTS"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"       envDefault:"0"`
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the entire application.
type Config struct {
	Server  ServerConfig
	DB      DBConfig
	JWT     JWTConfig
	Auction AuctionConfig
	Events  EventsConfig
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.AccessSecret == "" {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET must be set"))
	}

	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DB.Driver))
	}
	if c.IsProd() && c.DB.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must be set in production"))
	}

	if c.Auction.MaxBidAttempts < 1 {
		errs = append(errs, fmt.Errorf("AUCTION_MAX_BID_ATTEMPTS must be >= 1, got %d", c.Auction.MaxBidAttempts))
	}
	if c.Auction.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("AUCTION_SWEEP_INTERVAL must be positive, got %s", c.Auction.SweepInterval))
	}
	if c.Auction.ActivationInterval <= 0 {
		errs = append(errs, fmt.Errorf("AUCTION_ACTIVATION_INTERVAL must be positive, got %s", c.Auction.ActivationInterval))
	}
	if c.Auction.DefaultDurationMinutes <= 0 {
		errs = append(errs, fmt.Errorf("AUCTION_DEFAULT_DURATION_MINUTES must be positive, got %d", c.Auction.DefaultDurationMinutes))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Loading
// ──────────────────────────────────────────────────────────────────────────────

// Load reads the configuration from the environment. It does not validate.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	if cfg.DB.DSN == "" {
		cfg.DB.DSN = defaultDSN(cfg.DB.Driver)
	}
	cfg.Server.AdminAllowedIPs = trimAll(cfg.Server.AdminAllowedIPs)
	cfg.Server.WSAllowedOrigins = trimAll(cfg.Server.WSAllowedOrigins)
	return cfg, nil
}

// MustLoad loads and validates configuration. Intended for use in main().
// Panics on any error so misconfiguration is caught immediately at boot.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err.Error())
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

// defaultDSN is the development fallback when DATABASE_DSN is unset.
func defaultDSN(driver string) string {
	if driver == "sqlite" {
		return "file:auction.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	return "host=localhost port=5432 user=postgres dbname=auction sslmode=disable"
}

func trimAll(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
