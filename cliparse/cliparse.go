package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/danielhkuo/launch-ingester/db"
)

// PostgresConfig assembles a connection string when DATABASE_URL is not set
type PostgresConfig struct {
	User     string `env:"USER"`
	Password string `env:"PASSWORD"`
	DB       string `env:"DB"`
	Host     string `env:"HOST"`
	Port     string `env:"PORT"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
}

type Config struct {
	DatabaseType string         `env:"DATABASE_TYPE" envDefault:"postgres"`
	DatabaseURL  string         `env:"DATABASE_URL"`
	Postgres     PostgresConfig `envPrefix:"POSTGRES_"`

	APIURL        string        `env:"API_URL"`
	PageSize      int           `env:"API_PAGE_SIZE"       envDefault:"50"`
	MaxPages      int           `env:"API_MAX_PAGES"       envDefault:"1000"`
	Timeout       time.Duration `env:"API_TIMEOUT"         envDefault:"30s"`
	MaxAttempts   uint          `env:"API_MAX_ATTEMPTS"    envDefault:"5"`
	RetryDelay    time.Duration `env:"API_RETRY_DELAY"     envDefault:"1s"`
	MaxRetryDelay time.Duration `env:"API_MAX_RETRY_DELAY" envDefault:"30s"`

	LogLevel       string `env:"LOG_LEVEL"       envDefault:"info"`
	LogFormat      string `env:"LOG_FORMAT"      envDefault:"text"`
	PushgatewayURL string `env:"PUSHGATEWAY_URL"`
}

// ConfigError means the process cannot start. It is returned before any
// network or database access.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ParseFlags loads .env, reads the environment, then applies flags on top
func ParseFlags(args []string) (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, &ConfigError{Err: err}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, &ConfigError{Err: fmt.Errorf("parse env: %w", err)}
	}

	fs := flag.NewFlagSet("launch-ingester", flag.ContinueOnError)

	// Store
	fs.StringVar(&cfg.DatabaseURL, "d", cfg.DatabaseURL, "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", cfg.DatabaseType, "Database type (postgres or sqlite)")

	// Launches API
	fs.StringVar(&cfg.APIURL, "api-url", cfg.APIURL, "Launches query endpoint")
	fs.IntVar(&cfg.PageSize, "page-size", cfg.PageSize, "Launches per page")
	fs.IntVar(&cfg.MaxPages, "max-pages", cfg.MaxPages, "Page cap per run")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP timeout per request")
	fs.UintVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "Attempts per page on transient failures")
	fs.DurationVar(&cfg.RetryDelay, "retry-delay", cfg.RetryDelay, "Initial retry backoff")
	fs.DurationVar(&cfg.MaxRetryDelay, "max-retry-delay", cfg.MaxRetryDelay, "Retry backoff cap")

	// Output
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text or json")
	fs.StringVar(&cfg.PushgatewayURL, "pushgateway", cfg.PushgatewayURL, "Pushgateway URL for run metrics")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return Config{}, err
		}
		return Config{}, &ConfigError{Err: err}
	}
	if fs.NArg() > 0 {
		return Config{}, &ConfigError{Err: fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, &ConfigError{Err: err}
	}
	return cfg, nil
}

// loadEnvFile reads ENV_FILE (default .env). A missing file is fine. Variables
// already set in the process win unless ENV_OVERRIDE is true.
func loadEnvFile() error {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}

	override := false
	if v := os.Getenv("ENV_OVERRIDE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.New("invalid ENV_OVERRIDE env variable")
		}
		override = b
	}

	load := godotenv.Load
	if override {
		load = godotenv.Overload
	}
	if err := load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (cfg *Config) validate() error {
	var errs []error

	dialect, dialectErr := db.ParseDialect(cfg.DatabaseType)
	if dialectErr != nil {
		errs = append(errs, dialectErr)
	} else {
		cfg.DatabaseType = string(dialect)
	}

	if cfg.DatabaseURL == "" && dialectErr == nil {
		switch {
		case dialect != db.Postgres:
			errs = append(errs, errors.New("database URL required (use -d or DATABASE_URL env)"))
		case cfg.Postgres.missing() != nil:
			errs = append(errs, fmt.Errorf("database URL required (use -d, DATABASE_URL or set %s)",
				strings.Join(cfg.Postgres.missing(), ", ")))
		default:
			cfg.DatabaseURL = cfg.Postgres.URL()
		}
	}

	if cfg.APIURL == "" {
		errs = append(errs, errors.New("API_URL required (use -api-url or API_URL env)"))
	} else if err := checkHTTPURL(cfg.APIURL); err != nil {
		errs = append(errs, fmt.Errorf("API_URL: %w", err))
	}
	if cfg.PushgatewayURL != "" {
		if err := checkHTTPURL(cfg.PushgatewayURL); err != nil {
			errs = append(errs, fmt.Errorf("PUSHGATEWAY_URL: %w", err))
		}
	}

	if cfg.PageSize < 1 {
		errs = append(errs, errors.New("page size must be positive"))
	}
	if cfg.MaxPages < 1 {
		errs = append(errs, errors.New("max pages must be positive"))
	}
	if cfg.MaxAttempts < 1 {
		errs = append(errs, errors.New("max attempts must be at least 1"))
	}
	if cfg.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if cfg.RetryDelay < 0 || cfg.MaxRetryDelay < cfg.RetryDelay {
		errs = append(errs, errors.New("retry delays must satisfy 0 <= retry delay <= max retry delay"))
	}

	if _, err := cfg.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("unknown log format %q (text or json)", cfg.LogFormat))
	}

	return errors.Join(errs...)
}

// SlogLevel parses LogLevel
func (cfg Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	return level, nil
}

// missing lists the POSTGRES_* variables needed to build a URL that are unset
func (p PostgresConfig) missing() []string {
	var out []string
	for _, f := range []struct{ name, value string }{
		{"POSTGRES_USER", p.User},
		{"POSTGRES_PASSWORD", p.Password},
		{"POSTGRES_DB", p.DB},
		{"POSTGRES_HOST", p.Host},
		{"POSTGRES_PORT", p.Port},
	} {
		if f.value == "" {
			out = append(out, f.name)
		}
	}
	return out
}

// URL builds a lib/pq connection string
func (p PostgresConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, p.Port),
		Path:     "/" + p.DB,
		RawQuery: url.Values{"sslmode": {p.SSLMode}}.Encode(),
	}
	return u.String()
}

func checkHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q is not an absolute http(s) URL", raw)
	}
	return nil
}
