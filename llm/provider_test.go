package llm

import (
	"fmt"
	"testing"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		wantType string
	}{
		{"openai", "*llm.openAIProvider"},
		{"gemini", "*llm.geminiProvider"},
		{"openrouter", "*llm.openRouterProvider"},
		{"ollama", "*llm.ollamaProvider"},
		{"custom", "*llm.openAICompatProvider"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := Config{
				Provider: tt.provider,
				Model:    "test-model",
			}
			p, err := NewProvider(cfg)
			if err != nil {
				t.Fatalf("NewProvider(%q) returned error: %v", tt.provider, err)
			}
			gotType := fmt.Sprintf("%T", p)
			if gotType != tt.wantType {
				t.Errorf("NewProvider(%q) type = %s, want %s", tt.provider, gotType, tt.wantType)
			}
		})
	}
}

func TestNewProviderUnknown(t *testing.T) {
	cfg := Config{
		Provider: "doesnotexist",
		Model:    "test-model",
	}
	_, err := NewProvider(cfg)
	if err == nil {
		t.Fatal("expected error for unknown provider, got nil")
	}
	want := "unknown llm provider: doesnotexist"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestNewProviderEmpty(t *testing.T) {
	cfg := Config{
		Provider: "",
		Model:    "test-model",
	}
	_, err := NewProvider(cfg)
	if err == nil {
		t.Fatal("expected error for empty provider, got nil")
	}
	want := "llm provider not specified"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

// TestDefaultBaseURLs verifies that when BaseURL is empty in the config,
// each provider constructor sets the correct default.
func TestDefaultBaseURLs(t *testing.T) {
	tests := []struct {
		provider string
		wantURL  string
	}{
		{"openai", "https://api.openai.com"},
		{"gemini", "https://generativelanguage.googleapis.com/v1beta/openai"},
		{"openrouter", "https://openrouter.ai/api"},
		{"ollama", "http://localhost:11434"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := NewProvider(Config{Provider: tt.provider, Model: "m"})
			if err != nil {
				t.Fatalf("NewProvider(%q) returned error: %v", tt.provider, err)
			}

			var got string
			switch v := p.(type) {
			case *openAIProvider:
				got = v.base.cfg.BaseURL
			case *geminiProvider:
				got = v.base.cfg.BaseURL
			case *openRouterProvider:
				got = v.base.cfg.BaseURL
			case *ollamaProvider:
				got = v.base.cfg.BaseURL
			default:
				t.Fatalf("unexpected provider type %T", p)
			}
			if got != tt.wantURL {
				t.Errorf("BaseURL = %q, want %q", got, tt.wantURL)
			}
		})
	}
}

// TestFileProviderCoverage ensures every built-in provider can carry
// binary file parts; the classifier depends on it.
func TestFileProviderCoverage(t *testing.T) {
	for _, name := range []string{"openai", "gemini", "openrouter", "ollama", "custom"} {
		p, err := NewProvider(Config{Provider: name, Model: "m"})
		if err != nil {
			t.Fatalf("NewProvider(%q): %v", name, err)
		}
		if _, ok := p.(FileProvider); !ok {
			t.Errorf("provider %q does not implement FileProvider", name)
		}
	}
}
