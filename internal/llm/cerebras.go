package llm

import (
	openai "github.com/sashabaranov/go-openai"
)

const (
	cerebrasBaseURL = "https://api.cerebras.ai/v1"
	cerebrasModel   = "llama3.1-8b"
)

// NewCerebrasClient uses Cerebras' OpenAI-compatible API.
func NewCerebrasClient(apiKey string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = cerebrasBaseURL
	return newOpenAICompatible(cfg, cerebrasModel, "cerebras")
}
