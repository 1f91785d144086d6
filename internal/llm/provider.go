package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/Harshitk-cp/credence/internal/domain"
)

// Provider constants
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderCerebras  = "cerebras"
	ProviderMock      = "mock"
)

const (
	DefaultTimeout = 15 * time.Second

	suggestTemperature = 0.3
	reviewTemperature  = 0.2
	chatTemperature    = 0.5
	suggestMaxTokens   = 300
	reviewMaxTokens    = 900
	chatMaxTokens      = 1024
)

const (
	roleUser      = "user"
	roleAssistant = "assistant"
)

// turn is one earlier message of a conversation.
type turn struct {
	Role string
	Text string
}

// completion is a system prompt, a user prompt and, for chat, the turns
// that follow it.
type completion struct {
	System      string
	Prompt      string
	History     []turn
	Temperature float32
	MaxTokens   int
}

// turns returns Prompt as the opening user turn followed by History.
func (c completion) turns() []turn {
	out := make([]turn, 0, 1+len(c.History))
	out = append(out, turn{Role: roleUser, Text: c.Prompt})
	return append(out, c.History...)
}

// completer is implemented by each provider. It returns the raw text and
// the model that produced it.
type completer interface {
	complete(ctx context.Context, c completion) (text, model string, err error)
}

// Client adapts a provider to domain.LLMClient. Prompting and response
// coercion are shared, providers only move text.
type Client struct {
	provider completer
	timeout  time.Duration
}

type Option func(*Client)

// WithTimeout bounds every provider call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func newClient(p completer, opts ...Option) *Client {
	c := &Client{provider: p, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SuggestLikelihoods(ctx context.Context, req domain.LikelihoodRequest) (*domain.LikelihoodSuggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, model, err := c.provider.complete(ctx, completion{
		System:      suggestSystemPrompt,
		Prompt:      suggestPrompt(req),
		Temperature: suggestTemperature,
		MaxTokens:   suggestMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("suggest likelihoods: %w", err)
	}

	s := parseSuggestion(text)
	s.Model = model
	return s, nil
}

func (c *Client) ReviewHypothesis(ctx context.Context, statement string) (*domain.HypothesisReview, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, model, err := c.provider.complete(ctx, completion{
		System:      reviewSystemPrompt,
		Prompt:      reviewPrompt(statement),
		Temperature: reviewTemperature,
		MaxTokens:   reviewMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("review hypothesis: %w", err)
	}

	r := parseReview(text, statement)
	r.Model = model
	return r, nil
}

// Chat answers the latest message of a conversation grounded on the
// hypothesis and evidence in req.
func (c *Client) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatReply, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	history := make([]turn, 0, len(req.Messages))
	for _, m := range req.Messages {
		history = append(history, turn{Role: string(m.Role), Text: m.Content})
	}
	text, model, err := c.provider.complete(ctx, completion{
		System:      chatSystemPrompt,
		Prompt:      chatPrompt(req),
		History:     history,
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}
	if text == "" {
		return nil, fmt.Errorf("chat: model %s returned no content", model)
	}
	return &domain.ChatReply{Reply: text, Model: model}, nil
}

// Config selects and configures a provider.
type Config struct {
	Provider    string
	APIKey      string
	GeminiModel string
	Timeout     time.Duration
}

// NewClient creates an LLM client based on the provider name.
// Returns an error if the provider is unknown or the API key is empty (except for mock).
func NewClient(cfg Config) (domain.LLMClient, error) {
	opts := []Option{WithTimeout(cfg.Timeout)}

	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI provider")
		}
		return newClient(NewOpenAIClient(cfg.APIKey), opts...), nil

	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for Anthropic provider")
		}
		return newClient(NewAnthropicClient(cfg.APIKey), opts...), nil

	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return newClient(NewGeminiClient(cfg.APIKey, cfg.GeminiModel), opts...), nil

	case ProviderCerebras:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("CEREBRAS_API_KEY is required for Cerebras provider")
		}
		return newClient(NewCerebrasClient(cfg.APIKey), opts...), nil

	case ProviderMock:
		return NewMockClient(), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (valid options: openai, anthropic, gemini, cerebras, mock)", cfg.Provider)
	}
}
