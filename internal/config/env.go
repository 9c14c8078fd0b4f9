package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/rapidpro2pg/internal/common"
	"github.com/spf13/viper"
)

// parseEnv overlays values taken from the process environment. Unset or
// empty variables leave the current value untouched.
func parseEnv(config *Config) error {
	v := viper.New()
	v.AutomaticEnv()

	bind := func(env string, dst *string) {
		_ = v.BindEnv(env, env)
		if v.IsSet(env) {
			*dst = v.GetString(env)
		}
	}

	bind(EnvRapidProURL, &config.RapidProURL)
	bind(EnvRapidProAuth, &config.RapidProAuth)
	bind(EnvPostgresURL, &config.PostgresURL)
	bind(EnvLogLevel, &config.LogLevel)
	bind(EnvLogFile, &config.LogFile)
	bind(EnvArchiveBucket, &config.ArchiveBucket)
	bind(EnvArchiveRegion, &config.ArchiveRegion)
	bind(EnvArchiveEndpoint, &config.ArchiveEndpoint)
	bind(EnvArchiveAccessKey, &config.ArchiveAccessKey)
	bind(EnvArchiveSecretKey, &config.ArchiveSecretKey)

	_ = v.BindEnv(EnvHTTPTimeout, EnvHTTPTimeout)
	if v.IsSet(EnvHTTPTimeout) {
		d, err := parseTimeout(v.GetString(EnvHTTPTimeout))
		if err != nil {
			return fmt.Errorf("%w: %s: %w", common.ErrConfig, EnvHTTPTimeout, err)
		}
		config.HTTPTimeout = d
	}
	return nil
}

// parseTimeout reads a bare integer as seconds, like the -t flag, and
// anything else as a Go duration ("90s", "1m30s").
func parseTimeout(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}
