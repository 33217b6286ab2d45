package llm

import "context"

// openAIProvider implements FileProvider for the OpenAI API.
//
// API key: set via config or OPENAI_API_KEY env var.
type openAIProvider struct {
	base openAICompatClient
}

// NewOpenAI creates a provider for OpenAI.
func NewOpenAI(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	return &openAIProvider{base: newOpenAICompatClient(cfg)}
}

func (p *openAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}

func (p *openAIProvider) ChatWithFiles(ctx context.Context, req FileChatRequest) (*ChatResponse, error) {
	return p.base.chatWithFiles(ctx, req)
}
