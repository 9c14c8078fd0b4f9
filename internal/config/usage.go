package config

import (
	"fmt"
	"io"
)

// PrintUsage writes the list of supported configuration variables.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, `Usage: rapidpro2pg [-c config.json] [flags]

Synchronizes RapidPro contacts, messages, runs and flows into PostgreSQL.

Required environment variables:
  %-24s RapidPro base URL, e.g. https://textit.in
  %-24s RapidPro API token
  %-24s PostgreSQL connection string

Optional environment variables:
  %-24s request timeout, seconds or e.g. 90s (default 1m0s)
  %-24s debug|info|warn|error (default info)
  %-24s also write logs to this rotating file
  %-24s archive every fetched page to this bucket
  %-24s archive bucket region (default us-east-1)
  %-24s S3-compatible endpoint for the archive
  %-24s archive access key
  %-24s archive secret key

Flags (override environment):
  -c, -config string   JSON config file
  -u string            RapidPro base URL
  -a string            RapidPro API token
  -d string            PostgreSQL connection string
  -t int               request timeout in seconds
  -l string            log level
  -o string            log file
  --usage              print this help and exit
`,
		EnvRapidProURL, EnvRapidProAuth, EnvPostgresURL,
		EnvHTTPTimeout, EnvLogLevel, EnvLogFile,
		EnvArchiveBucket, EnvArchiveRegion, EnvArchiveEndpoint, EnvArchiveAccessKey, EnvArchiveSecretKey,
	)
}
