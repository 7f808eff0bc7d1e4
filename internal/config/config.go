package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"

	// TagLookupPropagate fails the whole request when a nested tag or image lookup fails.
	TagLookupPropagate = "propagate"
	// TagLookupDegrade logs the failure and renders the post with empty tags and images.
	TagLookupDegrade = "degrade"

	DevelopmentSessionSecret = "devlog-development-session-secret"
)

// Database holds the connection settings of the relational store.
type Database struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	Path            string // sqlite only
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Config is read once at process start.
type Config struct {
	Addr          string
	LogLevel      string
	SessionSecret string

	Database         Database
	ImageStoragePath string

	PostsPerPage     int
	PostStatusFilter string
	TagLookupPolicy  string

	SidebarCacheTTL time.Duration
	HealthCheckCron string
}

// Load reads the optional env file and then the process environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return Parse(os.Getenv)
}

// Parse builds a Config from a lookup function such as os.Getenv.
func Parse(getenv func(string) string) (*Config, error) {
	p := parser{getenv: getenv}

	cfg := &Config{
		Addr:          p.str("ADDR", ":8080"),
		LogLevel:      strings.ToLower(p.str("LOG_LEVEL", "info")),
		SessionSecret: p.str("SESSION_SECRET", DevelopmentSessionSecret),
		Database: Database{
			Driver:          strings.ToLower(p.str("DB_DRIVER", DriverMySQL)),
			Host:            p.str("DB_HOST", "mysql_db"),
			Port:            p.integer("DB_PORT", 3306),
			User:            p.str("DB_USER", ""),
			Password:        p.str("DB_PASSWORD", ""),
			Name:            p.str("DB_NAME", ""),
			Path:            p.str("DB_PATH", "data/blog.db"),
			MaxOpenConns:    p.integer("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    p.integer("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: p.duration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		ImageStoragePath: p.str("IMAGE_HOST_STORAGE_PATH", ""),
		PostsPerPage:     p.integer("POSTS_PER_PAGE", 12),
		PostStatusFilter: p.str("POST_STATUS_FILTER", ""),
		TagLookupPolicy:  strings.ToLower(p.str("TAG_LOOKUP_POLICY", TagLookupPropagate)),
		SidebarCacheTTL:  p.duration("SIDEBAR_CACHE_TTL", time.Minute),
		HealthCheckCron:  p.str("HEALTH_CHECK_CRON", "@every 1m"),
	}

	p.errs = append(p.errs, cfg.validate()...)
	if len(p.errs) > 0 {
		return nil, errors.Join(p.errs...)
	}
	return cfg, nil
}

func (c *Config) validate() []error {
	var errs []error

	switch c.Database.Driver {
	case DriverMySQL:
		if c.Database.User == "" {
			errs = append(errs, errors.New("DB_USER is required"))
		}
		if c.Database.Password == "" {
			errs = append(errs, errors.New("DB_PASSWORD is required"))
		}
		if c.Database.Name == "" {
			errs = append(errs, errors.New("DB_NAME is required"))
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			errs = append(errs, errors.New("DB_PATH is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverMySQL, DriverSQLite, c.Database.Driver))
	}

	if c.Database.MaxOpenConns < 1 {
		errs = append(errs, errors.New("DB_MAX_OPEN_CONNS must be at least 1"))
	}
	if c.Database.MaxIdleConns < 0 {
		errs = append(errs, errors.New("DB_MAX_IDLE_CONNS must not be negative"))
	}
	if c.ImageStoragePath == "" {
		errs = append(errs, errors.New("IMAGE_HOST_STORAGE_PATH is required"))
	}
	if c.PostsPerPage < 1 {
		errs = append(errs, errors.New("POSTS_PER_PAGE must be at least 1"))
	}
	if c.TagLookupPolicy != TagLookupPropagate && c.TagLookupPolicy != TagLookupDegrade {
		errs = append(errs, fmt.Errorf("TAG_LOOKUP_POLICY must be %q or %q, got %q", TagLookupPropagate, TagLookupDegrade, c.TagLookupPolicy))
	}
	if _, err := cron.ParseStandard(c.HealthCheckCron); err != nil {
		errs = append(errs, fmt.Errorf("HEALTH_CHECK_CRON %q: %w", c.HealthCheckCron, err))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", c.LogLevel))
	}
	return errs
}

// UsesDevelopmentSecret reports whether no SESSION_SECRET was configured.
func (c *Config) UsesDevelopmentSecret() bool {
	return c.SessionSecret == DevelopmentSessionSecret
}

type parser struct {
	getenv func(string) string
	errs   []error
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) integer(key string, def int) int {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return def
	}
	return n
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a duration", key, v))
		return def
	}
	return d
}
