package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/rapidpro2pg/internal/common"
	"github.com/dmitrijs2005/rapidpro2pg/internal/timex"
)

// JsonConfig is the on-disk shape of the optional JSON config file. Only
// fields present in the file override the current values.
type JsonConfig struct {
	RapidProURL      *string         `json:"rapidpro_url"`
	RapidProAuth     *string         `json:"rapidpro_auth"`
	PostgresURL      *string         `json:"postgresql_url"`
	HTTPTimeout      *timex.Duration `json:"http_timeout"`
	LogLevel         *string         `json:"log_level"`
	LogFile          *string         `json:"log_file"`
	ArchiveBucket    *string         `json:"archive_s3_bucket"`
	ArchiveRegion    *string         `json:"archive_s3_region"`
	ArchiveEndpoint  *string         `json:"archive_s3_endpoint"`
	ArchiveAccessKey *string         `json:"archive_s3_access_key"`
	ArchiveSecretKey *string         `json:"archive_s3_secret_key"`
}

// parseJson overlays values from the JSON file at path onto config. An
// empty path means no file was requested.
func parseJson(config *Config, path string) error {
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", common.ErrConfig, path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("%w: parsing %s: %v", common.ErrConfig, path, err)
	}

	setString(&config.RapidProURL, c.RapidProURL)
	setString(&config.RapidProAuth, c.RapidProAuth)
	setString(&config.PostgresURL, c.PostgresURL)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFile, c.LogFile)
	setString(&config.ArchiveBucket, c.ArchiveBucket)
	setString(&config.ArchiveRegion, c.ArchiveRegion)
	setString(&config.ArchiveEndpoint, c.ArchiveEndpoint)
	setString(&config.ArchiveAccessKey, c.ArchiveAccessKey)
	setString(&config.ArchiveSecretKey, c.ArchiveSecretKey)
	if c.HTTPTimeout != nil {
		config.HTTPTimeout = c.HTTPTimeout.Duration
	}

	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
