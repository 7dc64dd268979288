package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds service configuration.
type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"shelfswap"`
		Addr string `envconfig:"SERVER_ADDR" default:"0.0.0.0:8080"`
	}

	DB struct {
		URL      string `envconfig:"DATABASE_URL"`
		Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
		Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
		User     string `envconfig:"POSTGRES_USER" default:"shelfswap"`
		Password string `envconfig:"POSTGRES_PASSWORD" default:"shelfswap_pass"`
		Name     string `envconfig:"POSTGRES_DB" default:"shelfswap"`
		SSLMode  string `envconfig:"DATABASE_SSLMODE" default:"disable"`
	}

	Session struct {
		TTL          time.Duration `envconfig:"SESSION_TTL" default:"24h"`
		CookieName   string        `envconfig:"SESSION_COOKIE_NAME" default:"shelfswap_session"`
		CookieSecure bool          `envconfig:"SESSION_COOKIE_SECURE" default:"false"`
	}

	Overdue struct {
		SweepInterval time.Duration `envconfig:"OVERDUE_SWEEP_INTERVAL" default:"1h"`
		FeeExpression string        `envconfig:"OVERDUE_FEE_EXPRESSION" default:""`
		DailyFee      float64       `envconfig:"OVERDUE_DAILY_FEE" default:"1.0"`
	}

	CORS struct {
		AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	}
}

// ConnectionString returns DATABASE_URL when set, or builds a DSN from the
// individual POSTGRES_* variables.
func (c *Config) ConnectionString() string {
	if c.DB.URL != "" {
		return c.DB.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode)
}

// Load reads configuration from environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	return &cfg, nil
}
