package config

import (
	"os"
	"testing"
)

func TestNewValidProvider(t *testing.T) {
	settings, err := New("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "openai" {
		t.Errorf("expected provider 'openai', got %q", settings.LLM.Provider)
	}
	if settings.Agent.WorkingDir == "" {
		t.Error("expected default working directory")
	}
	if settings.Agent.MaxIterations <= 0 {
		t.Errorf("expected positive default max iterations, got %d", settings.Agent.MaxIterations)
	}
}

func TestNewWithAlias(t *testing.T) {
	settings, err := New("claude")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "anthropic" {
		t.Errorf("expected provider 'anthropic' (normalized from 'claude'), got %q", settings.LLM.Provider)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New("unknown_provider")
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNewModelOverride(t *testing.T) {
	original := os.Getenv("OPENAI_MODEL")
	os.Setenv("OPENAI_MODEL", "gpt-custom")
	defer os.Setenv("OPENAI_MODEL", original)

	settings, err := New("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Model != "gpt-custom" {
		t.Errorf("expected model override, got %q", settings.LLM.Model)
	}
}

func TestNewInvalidMaxIterations(t *testing.T) {
	original := os.Getenv("AGENT_MAX_ITERATIONS")
	defer os.Setenv("AGENT_MAX_ITERATIONS", original)

	os.Setenv("AGENT_MAX_ITERATIONS", "not-a-number")
	if _, err := New("openai"); err == nil {
		t.Error("expected error for non-numeric max iterations")
	}

	os.Setenv("AGENT_MAX_ITERATIONS", "-2")
	if _, err := New("openai"); err == nil {
		t.Error("expected error for negative max iterations")
	}
}

func TestNewMaxIterationsFromEnv(t *testing.T) {
	original := os.Getenv("AGENT_MAX_ITERATIONS")
	os.Setenv("AGENT_MAX_ITERATIONS", "7")
	defer os.Setenv("AGENT_MAX_ITERATIONS", original)

	settings, err := New("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Agent.MaxIterations != 7 {
		t.Errorf("expected 7 iterations, got %d", settings.Agent.MaxIterations)
	}
}

func TestAPIKeyForValidProvider(t *testing.T) {
	original := os.Getenv("OPENAI_API_KEY")
	os.Setenv("OPENAI_API_KEY", "test-key")
	defer os.Setenv("OPENAI_API_KEY", original)

	key, err := APIKeyFor("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "test-key" {
		t.Errorf("expected 'test-key', got %q", key)
	}
}

func TestAPIKeyForMissing(t *testing.T) {
	original := os.Getenv("GEMINI_API_KEY")
	os.Unsetenv("GEMINI_API_KEY")
	defer os.Setenv("GEMINI_API_KEY", original)

	if _, err := APIKeyFor("gemini"); err == nil {
		t.Error("expected error for missing API key")
	}
}
