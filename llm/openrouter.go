package llm

import "context"

// openRouterProvider implements FileProvider for OpenRouter, which proxies
// many hosted models behind one OpenAI-compatible API.
//
// API key: set via config or OPENROUTER_API_KEY env var.
type openRouterProvider struct {
	base openAICompatClient
}

// NewOpenRouter creates a provider for OpenRouter.
func NewOpenRouter(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api"
	}
	return &openRouterProvider{base: newOpenAICompatClient(cfg)}
}

func (p *openRouterProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}

func (p *openRouterProvider) ChatWithFiles(ctx context.Context, req FileChatRequest) (*ChatResponse, error) {
	return p.base.chatWithFiles(ctx, req)
}
