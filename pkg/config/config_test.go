package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	t.Setenv("PORT", "")
	os.Unsetenv("PORT")
	t.Setenv("OPENAI_URL", "")
	os.Unsetenv("OPENAI_URL")

	cfg := Default()
	if cfg.Addr != ":3030" {
		t.Fatalf("addr = %q", cfg.Addr)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Fatalf("model = %q", cfg.Model)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("addr: \":8080\"\nmodel: qwen3:1.7b\nmax_turns: 3\ndebug_history: true\n")
	if err := os.WriteFile(path, data, 0o640); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("addr = %q", cfg.Addr)
	}
	if cfg.Model != "qwen3:1.7b" {
		t.Fatalf("model = %q", cfg.Model)
	}
	if cfg.MaxTurns != 3 {
		t.Fatalf("max_turns = %d", cfg.MaxTurns)
	}
	if !cfg.DebugHistory {
		t.Fatal("debug_history not set")
	}
	// Untouched fields keep their defaults.
	if cfg.APIURL == "" {
		t.Fatal("api_url lost its default")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing file accepted")
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("CHAT_RELAY_TEST_ENV", "set")
	if got := GetEnv("CHAT_RELAY_TEST_ENV", "fallback"); got != "set" {
		t.Fatalf("got %q", got)
	}
	if got := GetEnv("CHAT_RELAY_TEST_ENV_ABSENT", "fallback"); got != "fallback" {
		t.Fatalf("got %q", got)
	}
}
