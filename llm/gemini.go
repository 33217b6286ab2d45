package llm

import "context"

// geminiProvider implements FileProvider for Google's Gemini API using the
// OpenAI-compatible endpoint. Gemini uses a different path prefix than
// standard OpenAI providers (no /v1).
//
// Supported models:
//
//	gemini-2.5-flash       — fast, cost-effective, accepts inline PDFs/images
//	gemini-2.5-pro         — highest capability
//	gemini-2.0-flash       — previous gen fast
//
// API key: set via config or GEMINI_API_KEY env var.
type geminiProvider struct {
	base openAICompatClient
}

// NewGemini creates a provider for Google Gemini.
func NewGemini(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	}
	return &geminiProvider{base: newOpenAICompatClientPrefix(cfg, "")}
}

func (p *geminiProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}

func (p *geminiProvider) ChatWithFiles(ctx context.Context, req FileChatRequest) (*ChatResponse, error) {
	return p.base.chatWithFiles(ctx, req)
}
