package llm

import (
	"os"
	"testing"
)

func TestParseProviderType(t *testing.T) {
	cases := []struct {
		input string
		want  ProviderType
	}{
		{"openai", ProviderOpenAI},
		{"gpt", ProviderOpenAI},
		{"OpenAI", ProviderOpenAI},
		{"anthropic", ProviderAnthropic},
		{"claude", ProviderAnthropic},
		{"deepseek", ProviderDeepSeek},
		{"gemini", ProviderGemini},
		{"google", ProviderGemini},
	}
	for _, tc := range cases {
		got, err := ParseProviderType(tc.input)
		if err != nil {
			t.Errorf("ParseProviderType(%q) error: %v", tc.input, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseProviderType(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestParseProviderTypeUnknown(t *testing.T) {
	if _, err := ParseProviderType("cohere"); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestProviderTypeString(t *testing.T) {
	if ProviderOpenAI.String() != "openai" {
		t.Errorf("unexpected string: %q", ProviderOpenAI.String())
	}
	if ProviderGemini.String() != "gemini" {
		t.Errorf("unexpected string: %q", ProviderGemini.String())
	}
}

func TestProviderTypeDefaults(t *testing.T) {
	if ProviderOpenAI.DefaultModel() != ModelOpenAIGPT4o {
		t.Errorf("unexpected default model: %q", ProviderOpenAI.DefaultModel())
	}
	if ProviderAnthropic.EnvVar() != "ANTHROPIC_API_KEY" {
		t.Errorf("unexpected env var: %q", ProviderAnthropic.EnvVar())
	}
}

func TestBuilderFromEnvMissingKey(t *testing.T) {
	original := os.Getenv("DEEPSEEK_API_KEY")
	os.Unsetenv("DEEPSEEK_API_KEY")
	defer os.Setenv("DEEPSEEK_API_KEY", original)

	if _, err := ProviderDeepSeek.FromEnv(); err == nil {
		t.Error("expected error when API key is not set")
	}
}

func TestBuilderAPIKey(t *testing.T) {
	provider, err := ProviderOpenAI.Model(ModelOpenAIGPT4oMini).APIKey("test-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.Name() != "openai" {
		t.Errorf("unexpected provider name: %q", provider.Name())
	}
	if provider.Model() != ModelOpenAIGPT4oMini {
		t.Errorf("unexpected model: %q", provider.Model())
	}
}
