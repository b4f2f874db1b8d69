package services

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Groq serves an OpenAI-compatible chat completions API, so one client
// covers both providers.
const groqBaseURL = "https://api.groq.com/openai/v1"

// OpenAIClient drives OpenAI or Groq chat-completion models.
type OpenAIClient struct {
	client *openai.Client
	model  string
	// Groq's llama/mixtral family does not support native JSON mode
	// reliably; the prompt plus stop sequences keep output structured.
	jsonMode bool
}

func NewOpenAIClient(apiKey, model, baseURL string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is missing for quiz generation")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		jsonMode: baseURL == "",
	}, nil
}

func (o *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0.3,
	}
	if o.jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
		req.MaxTokens = 700
	} else {
		req.MaxTokens = 600
		req.Stop = []string{"```", "\n\n\n"}
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
