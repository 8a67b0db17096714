package config

import (
	"flag"
	"os"
	"time"

	"github.com/avolkov/tandem/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-u string   provider project URL (default from Config)
//	-k string   project anon API key
//	-s string   session file path ("" disables persistence)
//	-t int      initialization wait bound in milliseconds
//	-l string   log file path ("" discards logs)
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-u", "-k", "-s", "-t", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.GatewayURL, "u", cfg.GatewayURL, "provider project URL")
	fs.StringVar(&cfg.APIKey, "k", cfg.APIKey, "project anon API key")
	fs.StringVar(&cfg.SessionFile, "s", cfg.SessionFile, "session file path")
	initTimeoutMs := fs.Int("t", int(cfg.InitTimeout.Milliseconds()), "initialization wait bound (ms)")
	fs.StringVar(&cfg.LogFile, "l", cfg.LogFile, "log file path")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.InitTimeout = time.Duration(*initTimeoutMs) * time.Millisecond
}
