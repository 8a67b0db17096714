// Package config loads runtime settings for the tandem client. Values are
// layered: defaults, then a TOML config file (if given via -c/-config),
// then command-line flags. Later sources take precedence.
package config

import "time"

// Config holds runtime settings for the tandem client.
//
// Fields:
//   - GatewayURL: base URL of the identity/database provider project.
//   - APIKey: the project's public (anon) API key.
//   - SessionFile: where the gateway persists its session; "" disables
//     persistence.
//   - InitTimeout: how long gated views wait for session initialization
//     before degrading (the timeout guard's bound).
//   - ProbeTimeout: bound for the best-effort onboarding probe.
//   - LogFile: structured log destination; "" discards logs.
type Config struct {
	GatewayURL   string
	APIKey       string
	SessionFile  string
	InitTimeout  time.Duration
	ProbeTimeout time.Duration
	LogFile      string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.GatewayURL = "http://127.0.0.1:54321"
	c.APIKey = ""
	c.SessionFile = ""
	c.InitTimeout = 1500 * time.Millisecond
	c.ProbeTimeout = 800 * time.Millisecond
	c.LogFile = ""
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from the TOML file (if present) and command-line flags (if present).
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseTOMLFromFlags(cfg)
	parseFlags(cfg)
	return cfg
}
