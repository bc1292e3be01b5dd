// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	DBPath   *string        `toml:"db-path"`
	Practice PracticeConfig `toml:"practice"`
	Server   ServerConfig   `toml:"server"`
	Auth     AuthConfig     `toml:"auth"`
	Prompts  PromptsConfig  `toml:"prompts"`
}

// PracticeConfig maps practice-related settings.
type PracticeConfig struct {
	Duration *int    `toml:"duration"`
	Category *string `toml:"category"`
}

// ServerConfig maps settings for the serve command.
type ServerConfig struct {
	Addr           *string  `toml:"addr"`
	AllowedOrigins []string `toml:"allowed-origins"`
}

// AuthConfig maps identity token settings.
type AuthConfig struct {
	Secret   *string `toml:"secret"`
	TokenTTL *string `toml:"token-ttl"`
}

// PromptsConfig selects where prompts come from.
type PromptsConfig struct {
	Source          *string `toml:"source"`
	MongoURI        *string `toml:"mongo-uri"`
	MongoDatabase   *string `toml:"mongo-database"`
	MongoCollection *string `toml:"mongo-collection"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
