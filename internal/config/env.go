package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
)

// EnvConfig holds CODETYPE_* environment overrides. Numeric practice values
// are read as strings so malformed input can be ignored instead of failing.
type EnvConfig struct {
	DBPath          string   `env:"CODETYPE_DB_PATH"`
	Duration        string   `env:"CODETYPE_DURATION"`
	Category        string   `env:"CODETYPE_CATEGORY"`
	Addr            string   `env:"CODETYPE_ADDR"`
	AllowedOrigins  []string `env:"CODETYPE_ALLOWED_ORIGINS" envSeparator:","`
	AuthSecret      string   `env:"CODETYPE_AUTH_SECRET"`
	TokenTTL        string   `env:"CODETYPE_TOKEN_TTL"`
	PromptSource    string   `env:"CODETYPE_PROMPT_SOURCE"`
	MongoURI        string   `env:"CODETYPE_MONGO_URI"`
	MongoDatabase   string   `env:"CODETYPE_MONGO_DATABASE"`
	MongoCollection string   `env:"CODETYPE_MONGO_COLLECTION"`
}

// LoadEnv parses CODETYPE_* variables from the process environment.
func LoadEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return EnvConfig{}, fmt.Errorf("failed to parse env: %w", err)
	}
	return cfg, nil
}

// LoadEnvFrom parses overrides from an explicit variable map.
func LoadEnvFrom(vars map[string]string) (EnvConfig, error) {
	var cfg EnvConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return EnvConfig{}, fmt.Errorf("failed to parse env: %w", err)
	}
	return cfg, nil
}

// ParseDuration converts a duration setting to seconds. Non-numeric input
// yields 0, which callers treat as "not set".
func ParseDuration(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// Apply overlays non-empty environment values onto the file config.
func (e EnvConfig) Apply(cfg *FileConfig) {
	setString := func(dst **string, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		v := value
		*dst = &v
	}
	setString(&cfg.DBPath, e.DBPath)
	if d := ParseDuration(e.Duration); d > 0 {
		cfg.Practice.Duration = &d
	}
	setString(&cfg.Practice.Category, e.Category)
	setString(&cfg.Server.Addr, e.Addr)
	if len(e.AllowedOrigins) > 0 {
		cfg.Server.AllowedOrigins = e.AllowedOrigins
	}
	setString(&cfg.Auth.Secret, e.AuthSecret)
	setString(&cfg.Auth.TokenTTL, e.TokenTTL)
	setString(&cfg.Prompts.Source, e.PromptSource)
	setString(&cfg.Prompts.MongoURI, e.MongoURI)
	setString(&cfg.Prompts.MongoDatabase, e.MongoDatabase)
	setString(&cfg.Prompts.MongoCollection, e.MongoCollection)
}
