package config

import (
	"time"

	"github.com/BurntSushi/toml"

	"github.com/avolkov/tandem/internal/flagx"
)

// tomlConfig is a DTO used exclusively for TOML decoding. Timeouts are
// given in milliseconds; after parsing, values are copied into the runtime
// Config (which uses time.Duration).
type tomlConfig struct {
	GatewayURL     string `toml:"gateway_url"`
	APIKey         string `toml:"api_key"`
	SessionFile    string `toml:"session_file"`
	InitTimeoutMs  int    `toml:"init_timeout_ms"`
	ProbeTimeoutMs int    `toml:"probe_timeout_ms"`
	LogFile        string `toml:"log_file"`
}

// parseTOMLFromFlags overlays cfg with values from the TOML file named by
// the -c/-config flag. No flag, no overlay. Panics on read or decode
// errors: a config file that exists but cannot be parsed is a startup
// mistake worth failing loudly on.
func parseTOMLFromFlags(cfg *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}
	parseTOML(cfg, path)
}

// parseTOML overlays cfg with the fields actually present in the file at
// path. Absent keys leave the current value untouched.
func parseTOML(cfg *Config, path string) {
	var tc tomlConfig
	meta, err := toml.DecodeFile(path, &tc)
	if err != nil {
		panic(err)
	}

	if meta.IsDefined("gateway_url") {
		cfg.GatewayURL = tc.GatewayURL
	}
	if meta.IsDefined("api_key") {
		cfg.APIKey = tc.APIKey
	}
	if meta.IsDefined("session_file") {
		cfg.SessionFile = tc.SessionFile
	}
	if meta.IsDefined("init_timeout_ms") {
		cfg.InitTimeout = time.Duration(tc.InitTimeoutMs) * time.Millisecond
	}
	if meta.IsDefined("probe_timeout_ms") {
		cfg.ProbeTimeout = time.Duration(tc.ProbeTimeoutMs) * time.Millisecond
	}
	if meta.IsDefined("log_file") {
		cfg.LogFile = tc.LogFile
	}
}
