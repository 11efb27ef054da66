package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio = "stdio"
	ModeCLI   = "cli"

	// Default values
	DefaultLogLevel = "info"

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the form pipeline tooling.
type Config struct {
	// Mode selects between the MCP stdio surface and plain CLI use.
	Mode string

	// Pipeline directories
	TemplatesDir string // form template PDFs
	SchemasDir   string // generated schema documents
	OutputDir    string // filled PDF output
	DatabasePath string // canonical field store

	// PdftkPath optionally pins the fallback fill executable.
	PdftkPath string

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:         ModeCLI,
		TemplatesDir: filepath.Join(currentDir, "templates"),
		SchemasDir:   filepath.Join(currentDir, "schemas"),
		OutputDir:    filepath.Join(currentDir, "output"),
		DatabasePath: filepath.Join(currentDir, "forms.db"),
		Version:      "1.0.0",
		ServerName:   "ca-small-claims",
		LogLevel:     DefaultLogLevel,
	}
}

// LoadFromFlags parses command line flags and returns a configuration.
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand paths so downstream components never see relative paths.
	for _, dir := range []*string{&cfg.TemplatesDir, &cfg.SchemasDir, &cfg.OutputDir, &cfg.DatabasePath} {
		if *dir != "" {
			if expanded, err := filepath.Abs(*dir); err == nil {
				*dir = expanded
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults.
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("SC_FORMS")
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("templates", cfg.TemplatesDir)
	viper.SetDefault("schemas", cfg.SchemasDir)
	viper.SetDefault("output", cfg.OutputDir)
	viper.SetDefault("db", cfg.DatabasePath)
	viper.SetDefault("pdftk", cfg.PdftkPath)
	viper.SetDefault("loglevel", cfg.LogLevel)
}

// defineCommandLineFlags sets up all command line flags.
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'cli' for direct invocation, 'stdio' for MCP standard I/O")
	pflag.String("templates", cfg.TemplatesDir, "Directory containing form template PDFs")
	pflag.String("schemas", cfg.SchemasDir, "Directory containing form schema documents")
	pflag.String("output", cfg.OutputDir, "Directory for filled PDF output")
	pflag.String("db", cfg.DatabasePath, "Path to the canonical field store database")
	pflag.String("pdftk", cfg.PdftkPath, "Path to the pdftk executable (auto-detected when empty)")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
}

// bindFlagsToViper binds command line flags to viper configuration.
func bindFlagsToViper() {
	_ = viper.BindPFlag("mode", pflag.Lookup("mode"))
	_ = viper.BindPFlag("templates", pflag.Lookup("templates"))
	_ = viper.BindPFlag("schemas", pflag.Lookup("schemas"))
	_ = viper.BindPFlag("output", pflag.Lookup("output"))
	_ = viper.BindPFlag("db", pflag.Lookup("db"))
	_ = viper.BindPFlag("pdftk", pflag.Lookup("pdftk"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
}

// populateConfigFromViper fills the config struct with values from viper.
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.TemplatesDir = viper.GetString("templates")
	cfg.SchemasDir = viper.GetString("schemas")
	cfg.OutputDir = viper.GetString("output")
	cfg.DatabasePath = viper.GetString("db")
	cfg.PdftkPath = viper.GetString("pdftk")
	cfg.LogLevel = viper.GetString("loglevel")
}

// Validate checks if the configuration is valid, creating the writable
// directories when missing.
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeCLI {
		return errors.New("mode must be either 'stdio' or 'cli'")
	}

	if c.TemplatesDir == "" {
		return errors.New("templates directory cannot be empty")
	}
	if _, err := os.Stat(c.TemplatesDir); err != nil {
		return fmt.Errorf("cannot access templates directory %s: %w", c.TemplatesDir, err)
	}

	for _, dir := range []string{c.SchemasDir, c.OutputDir} {
		if dir == "" {
			return errors.New("schemas and output directories cannot be empty")
		}
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
				return fmt.Errorf("cannot create directory %s: %w", dir, err)
			}
		} else if err != nil {
			return fmt.Errorf("cannot access directory %s: %w", dir, err)
		}
	}

	if c.DatabasePath == "" {
		return errors.New("database path cannot be empty")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	return nil
}

// IsDebug returns true if debug logging is enabled.
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// IsStdioMode returns true when serving MCP over standard I/O.
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}

// String returns a string representation of the configuration.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Templates: %s, Schemas: %s, Output: %s, DB: %s, LogLevel: %s}",
		c.Mode, c.TemplatesDir, c.SchemasDir, c.OutputDir, c.DatabasePath, c.LogLevel)
}
