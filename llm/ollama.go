package llm

import "context"

// ollamaProvider implements FileProvider for a local Ollama instance via its
// OpenAI-compatible endpoint. Useful for offline development; vision-capable
// local models (llava, llama3.2-vision) handle the file path.
type ollamaProvider struct {
	base openAICompatClient
}

// NewOllama creates a provider for Ollama.
func NewOllama(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	return &ollamaProvider{base: newOpenAICompatClient(cfg)}
}

func (p *ollamaProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}

func (p *ollamaProvider) ChatWithFiles(ctx context.Context, req FileChatRequest) (*ChatResponse, error) {
	return p.base.chatWithFiles(ctx, req)
}
