package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shellward/shellward/internal/core/security"
	"github.com/spf13/viper"
)

const (
	ConfigFileName   = "config"
	ConfigFileType   = "yaml"
	ShellwardDirName = ".shellward"

	// CredentialFileName is the encrypted credential record file.
	CredentialFileName = "credentials.json"

	// ActivityLogFileName is the audit log inside the config dir.
	ActivityLogFileName = "activity.log"
)

var config *Config

// Config holds the application configuration.
type Config struct {
	AI        AIConfig        `mapstructure:"ai"`
	Security  security.Policy `mapstructure:"security"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Log       LogConfig       `mapstructure:"log"`
}

// AIConfig holds text-generation client configuration.
type AIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"`
}

// ExecutionConfig holds command execution configuration.
type ExecutionConfig struct {
	Timeout int `mapstructure:"timeout"`
}

// LogConfig holds activity log configuration.
type LogConfig struct {
	MaxSizeMB int `mapstructure:"max_size_mb"`
}

// GetConfigDir returns the shellward config directory path.
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ShellwardDirName), nil
}

// InitConfig initializes the configuration.
func InitConfig() (*Config, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return nil, err
	}

	// Create config directory if not exists
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType(ConfigFileType)
	v.AddConfigPath(configDir)

	// Set defaults
	v.SetDefault("ai.base_url", "https://openrouter.ai/api/v1/chat/completions")
	v.SetDefault("ai.timeout", 25)

	// Security defaults
	v.SetDefault("security.extra_blacklist", []string{})
	v.SetDefault("security.extra_allowlist", []string{})

	// Execution defaults
	v.SetDefault("execution.timeout", 90)

	// Log defaults
	v.SetDefault("log.max_size_mb", 10)

	// Read config file (ignore if not exists)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config not found, will run with defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = &cfg
	return config, nil
}

// GetConfig returns the loaded configuration.
func GetConfig() *Config {
	return config
}

// CredentialPath returns the credential record file path.
func CredentialPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, CredentialFileName), nil
}

// ActivityLogPath returns the activity log file path.
func ActivityLogPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ActivityLogFileName), nil
}
