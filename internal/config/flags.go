package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/rapidpro2pg/internal/common"
	"github.com/dmitrijs2005/rapidpro2pg/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-u string   RapidPro base URL
//	-a string   RapidPro API token
//	-d string   PostgreSQL DSN
//	-t int      HTTP timeout, seconds
//	-l string   log level
//	-o string   log file
//
// Args are first filtered with flagx.FilterArgs so that -c/-config and
// --usage, handled elsewhere, do not trip the parser.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-u", "-a", "-d", "-t", "-l", "-o"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.RapidProURL, "u", config.RapidProURL, "RapidPro base URL")
	fs.StringVar(&config.RapidProAuth, "a", config.RapidProAuth, "RapidPro API token")
	fs.StringVar(&config.PostgresURL, "d", config.PostgresURL, "database DSN")
	timeout := fs.Int("t", int(config.HTTPTimeout.Seconds()), "HTTP timeout (in seconds)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFile, "o", config.LogFile, "log file")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", common.ErrConfig, err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.HTTPTimeout = time.Duration(*timeout) * time.Second
		}
	})
	return nil
}
