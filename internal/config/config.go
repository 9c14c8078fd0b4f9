// Package config handles configuration for the synchronizer: defaults, a
// JSON file overlay, environment variables and command-line flags, applied
// in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dmitrijs2005/rapidpro2pg/internal/common"
	"github.com/dmitrijs2005/rapidpro2pg/internal/flagx"
)

// Environment variable names. The first three are required.
const (
	EnvRapidProURL       = "RAPIDPRO_URL"
	EnvRapidProAuth      = "RAPIDPRO_AUTH"
	EnvPostgresURL       = "POSTGRESQL_URL"
	EnvHTTPTimeout       = "RAPIDPRO_HTTP_TIMEOUT"
	EnvLogLevel          = "LOG_LEVEL"
	EnvLogFile           = "LOG_FILE"
	EnvArchiveBucket     = "ARCHIVE_S3_BUCKET"
	EnvArchiveRegion     = "ARCHIVE_S3_REGION"
	EnvArchiveEndpoint   = "ARCHIVE_S3_ENDPOINT"
	EnvArchiveAccessKey  = "ARCHIVE_S3_ACCESS_KEY"
	EnvArchiveSecretKey  = "ARCHIVE_S3_SECRET_KEY"
	defaultHTTPTimeout   = 60 * time.Second
	defaultArchiveRegion = "us-east-1"
)

// Config holds runtime settings for one synchronization run.
//
// Fields:
//   - RapidProURL: base URL of the RapidPro instance (no /api/v2 suffix).
//   - RapidProAuth: API token sent as "Authorization: Token <value>".
//   - PostgresURL: PostgreSQL DSN (pgx).
//   - HTTPTimeout: per-request timeout for the RapidPro client.
//   - LogLevel / LogFile: logger level and optional rotating log file.
//   - Archive*: optional S3-compatible bucket receiving every raw fetched page.
type Config struct {
	RapidProURL      string
	RapidProAuth     string
	PostgresURL      string
	HTTPTimeout      time.Duration
	LogLevel         string
	LogFile          string
	ArchiveBucket    string
	ArchiveRegion    string
	ArchiveEndpoint  string
	ArchiveAccessKey string
	ArchiveSecretKey string
}

// LoadDefaults populates Config with defaults. RapidPro URL, token and the
// database DSN are required and have none.
func (c *Config) LoadDefaults() {
	c.HTTPTimeout = defaultHTTPTimeout
	c.LogLevel = "info"
	c.ArchiveRegion = defaultArchiveRegion
}

// LoadConfig builds a Config by applying defaults, then overlaying an
// optional JSON file (-c/-config), environment variables and finally flags.
// The result is not validated; call Validate.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, flagx.ConfigPath(args)); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing or malformed required setting, each
// wrapping common.ErrConfig.
func (c *Config) Validate() error {
	var errs []error

	required := []struct {
		name  string
		value string
	}{
		{EnvRapidProURL, c.RapidProURL},
		{EnvRapidProAuth, c.RapidProAuth},
		{EnvPostgresURL, c.PostgresURL},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%w: %s is required. Please run --usage to see required params", common.ErrConfig, r.name))
		}
	}

	if c.RapidProURL != "" {
		u, err := url.Parse(c.RapidProURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%w: %s is not a valid URL", common.ErrConfig, EnvRapidProURL))
		}
	}

	if c.HTTPTimeout < 0 {
		errs = append(errs, fmt.Errorf("%w: %s must not be negative", common.ErrConfig, EnvHTTPTimeout))
	}

	return errors.Join(errs...)
}

// ArchiveEnabled reports whether raw pages should be archived to S3.
func (c *Config) ArchiveEnabled() bool {
	return c.ArchiveBucket != ""
}
