package jaat

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures OpenAIGenerator.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// OpenAIGenerator sends persona prompt, recent history, the user input and
// the templated draft to an OpenAI-compatible chat completion API.
type OpenAIGenerator struct {
	client *openai.Client
	config OpenAIConfig
}

// NewOpenAIGenerator creates a generator. Model defaults to gpt-4o-mini and
// Timeout to 60s.
func NewOpenAIGenerator(config OpenAIConfig) *OpenAIGenerator {
	client := openai.NewClient(config.APIKey)
	if config.BaseURL != "" {
		clientConfig := openai.DefaultConfig(config.APIKey)
		clientConfig.BaseURL = config.BaseURL
		client = openai.NewClientWithConfig(clientConfig)
	}
	if config.Model == "" {
		config.Model = openai.GPT4oMini
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	return &OpenAIGenerator{client: client, config: config}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.config.Model,
		Messages:    BuildChatMessages(p),
		Temperature: g.config.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// BuildChatMessages lays out the conversation for a chat completion request.
func BuildChatMessages(p Prompt) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(p.History)+3)
	if p.SystemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: p.SystemPrompt})
	}
	for _, t := range p.History {
		role := openai.ChatMessageRoleUser
		if t.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	msgs = append(msgs,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: p.Instruction()},
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: p.Input},
	)
	return msgs
}

var _ Generator = (*OpenAIGenerator)(nil)
