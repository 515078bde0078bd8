// config.go - Configuration management for notectl
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go-simpler.org/env"
)

// Config represents the application configuration. Every field can be
// overridden from the environment after the file is read.
type Config struct {
	// Proving keys
	KeyDir           string `json:"key_dir" env:"NOTECTL_KEY_DIR" usage:"directory holding the output circuit keys"`
	ProvingKeyPath   string `json:"proving_key_path" env:"NOTECTL_PROVING_KEY" usage:"proving key file, defaults to <key_dir>/output_pk.bin"`
	VerifyingKeyPath string `json:"verifying_key_path" env:"NOTECTL_VERIFYING_KEY" usage:"verifying key file, defaults to <key_dir>/output_vk.bin"`

	// Logging
	LogLevel  string `json:"log_level" env:"NOTECTL_LOG_LEVEL" usage:"debug, info, warn or error"`
	LogFile   string `json:"log_file" env:"NOTECTL_LOG_FILE" usage:"append logs to this file"`
	GnarkLogs bool   `json:"gnark_logs" env:"NOTECTL_GNARK_LOGS" usage:"forward proving library logs"`

	// Performance
	MaxConcurrency int `json:"max_concurrency" env:"NOTECTL_MAX_CONCURRENCY" usage:"concurrent proofs, 0 uses every core"`
	TimeoutSeconds int `json:"timeout_seconds" env:"NOTECTL_TIMEOUT_SECONDS" usage:"deadline for a single proof"`

	// Security
	EnableAudit  bool   `json:"enable_audit" env:"NOTECTL_ENABLE_AUDIT" usage:"record setup and key events"`
	AuditLogPath string `json:"audit_log_path" env:"NOTECTL_AUDIT_LOG" usage:"audit log file"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		KeyDir:         "keys",
		LogLevel:       "info",
		MaxConcurrency: 0,
		TimeoutSeconds: 120,
		EnableAudit:    true,
		AuditLogPath:   "audit.log",
	}
}

// LoadConfig loads configuration from file or creates default, then applies
// environment overrides.
func LoadConfig(configPath string) (*Config, error) {
	config, err := readConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := env.Load(config, &env.Options{}); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	return config, nil
}

func readConfig(configPath string) (*Config, error) {
	// Try to load from file
	if _, err := os.Stat(configPath); err == nil {
		file, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer file.Close()

		config := DefaultConfig()
		if err := json.NewDecoder(file).Decode(config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
		return config, nil
	}

	// Create default config and save it
	config := DefaultConfig()
	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save default config: %w", err)
	}
	return config, nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config, configPath string) error {
	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.KeyDir == "" && (c.ProvingKeyPath == "" || c.VerifyingKeyPath == "") {
		return fmt.Errorf("key_dir or both key paths must be set")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error")
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency must not be negative")
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be positive")
	}
	if c.EnableAudit && c.AuditLogPath == "" {
		return fmt.Errorf("audit_log_path is required when auditing is enabled")
	}
	return nil
}

// ProvingKey returns the proving key path.
func (c *Config) ProvingKey() string {
	if c.ProvingKeyPath != "" {
		return c.ProvingKeyPath
	}
	return filepath.Join(c.KeyDir, "output_pk.bin")
}

// VerifyingKey returns the verifying key path.
func (c *Config) VerifyingKey() string {
	if c.VerifyingKeyPath != "" {
		return c.VerifyingKeyPath
	}
	return filepath.Join(c.KeyDir, "output_vk.bin")
}

// AuditFile returns the audit log path, or "" when auditing is off.
func (c *Config) AuditFile() string {
	if !c.EnableAudit {
		return ""
	}
	return c.AuditLogPath
}
