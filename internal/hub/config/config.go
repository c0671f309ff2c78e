// Package config loads hub configuration from flags and environment
// variable overrides.
package config

import (
	"flag"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds the hub's runtime configuration.
type Config struct {
	Port          int
	BindAddr      string
	LogLevel      string
	DataDir       string
	DBPath        string
	CorePluginDir string
	UserPluginDir string
	IconDir       string
	UploadedIconDir string
	FontDir       string
	DeveloperMode bool
}

// Load parses flags, applies environment overrides, and derives
// data-directory-relative paths that were not set explicitly.
func Load() *Config {
	cfg := &Config{}

	flag.IntVar(&cfg.Port, "port", 8532, "listen port")
	flag.StringVar(&cfg.BindAddr, "bind", "0.0.0.0", "bind address")
	flag.StringVar(&cfg.LogLevel, "loglevel", "info", "log level (debug, info, warn, error)")
	flag.StringVar(&cfg.DataDir, "data-dir", "data", "data directory root")
	flag.BoolVar(&cfg.DeveloperMode, "dev", false, "enable developer mode endpoints")
	flag.Parse()

	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if bind := os.Getenv("BIND"); bind != "" {
		cfg.BindAddr = bind
	}
	if level := os.Getenv("LOGLEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if dev := os.Getenv("DEVELOPER_MODE"); dev != "" {
		cfg.DeveloperMode = dev == "1" || dev == "true"
	}

	cfg.DBPath = filepath.Join(cfg.DataDir, "tilepad.sqlite")
	cfg.CorePluginDir = filepath.Join(cfg.DataDir, "plugins", "core")
	cfg.UserPluginDir = filepath.Join(cfg.DataDir, "plugins", "user")
	cfg.IconDir = filepath.Join(cfg.DataDir, "icons")
	cfg.UploadedIconDir = filepath.Join(cfg.DataDir, "uploaded-icons")
	cfg.FontDir = filepath.Join(cfg.DataDir, "fonts")

	return cfg
}
