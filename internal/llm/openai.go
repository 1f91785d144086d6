package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const openAIModel = "gpt-4o-mini"

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	client *openai.Client
	model  string
	name   string
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	return newOpenAICompatible(openai.DefaultConfig(apiKey), openAIModel, "openai")
}

func newOpenAICompatible(cfg openai.ClientConfig, model, name string) *OpenAIClient {
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		name:   name,
	}
}

func openAIMessages(in completion) []openai.ChatCompletionMessage {
	turns := in.turns()
	out := make([]openai.ChatCompletionMessage, 0, 1+len(turns))
	out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: in.System})
	for _, t := range turns {
		role := openai.ChatMessageRoleUser
		if t.Role == roleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: t.Text})
	}
	return out
}

func (c *OpenAIClient) complete(ctx context.Context, in completion) (string, string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    openAIMessages(in),
		Temperature: in.Temperature,
		MaxTokens:   in.MaxTokens,
	})
	if err != nil {
		return "", "", fmt.Errorf("%s request failed: %w", c.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", "", fmt.Errorf("%s API returned no choices", c.name)
	}

	model := resp.Model
	if model == "" {
		model = c.model
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), model, nil
}
