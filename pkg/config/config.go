// Package config loads server settings from an optional YAML file with
// environment fallbacks.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds everything the server binary needs. Flag values override
// file values; see cmd/chat-relay.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr"`
	// APIURL is the OpenAI-compatible endpoint.
	APIURL string `yaml:"api_url"`
	// Model is the technical name of the LLM.
	Model        string `yaml:"model"`
	SystemPrompt string `yaml:"system_prompt"`
	// MaxTurns bounds provider round-trips per user message.
	MaxTurns int `yaml:"max_turns"`
	// DebugHistory mirrors the raw history to clients after each turn.
	// Leave off in production.
	DebugHistory bool `yaml:"debug_history"`
	// Log enables request logging of the OpenAI client.
	Log bool `yaml:"log"`
}

func Default() Config {
	return Config{
		Addr:     ":" + GetEnv("PORT", "3030"),
		APIURL:   GetEnv("OPENAI_URL", "http://127.0.0.1:11434/v1"),
		Model:    "gpt-4o-mini",
		MaxTurns: 0, // relay.DefaultMaxTurns
	}
}

// Load overlays the YAML file at path onto the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func GetEnv(name, fallback string) string {
	value, ok := os.LookupEnv(name)
	if ok {
		return value
	} else {
		return fallback
	}
}
