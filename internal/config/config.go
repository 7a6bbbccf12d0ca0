// Package config loads the companion's JSON configuration with environment
// variable substitution.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/SignHolo/companion/internal/embedding"
	"github.com/SignHolo/companion/internal/provider"
	"github.com/SignHolo/companion/internal/vectorstore"
)

// Config is the top-level configuration structure.
type Config struct {
	Server     ServerConfig      `json:"server"`
	Persona    PersonaConfig     `json:"persona"`
	Providers  []provider.Config `json:"providers"`
	Fallbacks  []string          `json:"fallbacks,omitempty"`
	Gateway    GatewayConfig     `json:"gateway"`
	Database   DatabaseConfig    `json:"database"`
	Embedding  embedding.Config  `json:"embedding"`
	Reflection ReflectionConfig  `json:"reflection"`
}

type ServerConfig struct {
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`
}

// PersonaConfig shapes who the companion is.
type PersonaConfig struct {
	Name         string   `json:"name"`
	SystemPrompt string   `json:"system_prompt"`
	Traits       []string `json:"traits,omitempty"`
}

type GatewayConfig struct {
	Slack   SlackGatewayConfig   `json:"slack"`
	Discord DiscordGatewayConfig `json:"discord"`
}

type SlackGatewayConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	AppToken string `json:"app_token"`
}

type DiscordGatewayConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig     `json:"postgres"`
	Redis    RedisConfig        `json:"redis"`
	Qdrant   vectorstore.Config `json:"qdrant"`
}

type PostgresConfig struct {
	DSN string `json:"dsn"`
}

type RedisConfig struct {
	URL string `json:"url"`
}

// ReflectionConfig tunes the out-of-band monologue cycle.
type ReflectionConfig struct {
	Enabled       bool `json:"enabled"`
	IntervalHours int  `json:"interval_hours"`
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file and substitutes environment variable
// references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Reflection.IntervalHours <= 0 {
		cfg.Reflection.IntervalHours = 6
	}
	return &cfg, nil
}
