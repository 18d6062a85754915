// Package config loads server configuration from config.yaml and the environment.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override, e.g. STREAMD_SERVER__PORT.
const EnvPrefix = "STREAMD_"

// DefaultPath is the config file read when Load is given an empty path.
const DefaultPath = "config.yaml"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	LLM       LLMConfig       `koanf:"llm"`
	Storage   StorageConfig   `koanf:"storage"`
	Pipeline  PipelineConfig  `koanf:"pipeline"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Port           int           `koanf:"port"`
	Keepalive      time.Duration `koanf:"keepalive"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	OutboundBuffer int           `koanf:"outbound_buffer"`
}

// LLMConfig points at an OpenAI-compatible chat completions endpoint.
// Ollama serves one under <OLLAMA_URL>/v1.
type LLMConfig struct {
	BaseURL     string  `koanf:"base_url"`
	Model       string  `koanf:"model"`
	APIKey      string  `koanf:"api_key"`
	Temperature float32 `koanf:"temperature"`
}

type StorageConfig struct {
	Type    string        `koanf:"type"` // memory, sqlite
	Latency time.Duration `koanf:"latency"`
	SQLite  SQLiteConfig  `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type PipelineConfig struct {
	EventBuffer  int `koanf:"event_buffer"`
	SummaryLimit int `koanf:"summary_limit"`
}

type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
}

var defaults = map[string]any{
	"server.port":            8000,
	"server.keepalive":       "15s",
	"server.request_timeout": "30s",
	"server.outbound_buffer": 64,
	"llm.base_url":           "http://localhost:11434/v1",
	"llm.model":              "gemma3:12b",
	"llm.temperature":        0.7,
	"storage.type":           "memory",
	"storage.latency":        "300ms",
	"storage.sqlite.path":    "./data/streamd.db",
	"pipeline.event_buffer":  64,
	"pipeline.summary_limit": 500,
	"telemetry.enabled":      true,
	"telemetry.service_name": "streamd",
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads path (DefaultPath when empty), then environment overrides, then
// fills defaults for anything still unset. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	// Legacy variable names, still honoured when set.
	if !k.Exists("llm.base_url") {
		if u := os.Getenv("OLLAMA_URL"); u != "" {
			k.Set("llm.base_url", strings.TrimSuffix(u, "/")+"/v1")
		}
	}
	if !k.Exists("llm.model") {
		if m := os.Getenv("STREAMING_MODEL"); m != "" {
			k.Set("llm.model", m)
		}
	}

	for key, val := range defaults {
		if !k.Exists(key) {
			k.Set(key, val)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.LLM.APIKey = substituteEnvVars(cfg.LLM.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Storage.Type {
	case "memory":
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path is required for sqlite storage")
		}
	default:
		return fmt.Errorf("invalid storage.type %q (must be 'memory' or 'sqlite')", c.Storage.Type)
	}
	if c.Pipeline.EventBuffer <= 0 {
		return fmt.Errorf("pipeline.event_buffer must be positive")
	}
	if c.Pipeline.SummaryLimit <= 0 {
		return fmt.Errorf("pipeline.summary_limit must be positive")
	}
	if c.Server.OutboundBuffer <= 0 {
		return fmt.Errorf("server.outbound_buffer must be positive")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	return nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
