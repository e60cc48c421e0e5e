package llm_client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

type openaiProvider struct {
	client *openai.Client
	model  string
}

const openaiDefault = "gpt-4o-mini"

func (p *openaiProvider) Init(cfg Config) error {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set")
	}
	clientCfg := openai.DefaultConfig(apiKey)
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		clientCfg.BaseURL = base
	}
	p.client = openai.NewClientWithConfig(clientCfg)
	if strings.TrimSpace(cfg.Model) != "" {
		p.model = cfg.Model
	} else {
		p.model = openaiDefault
	}
	return nil
}

func (p *openaiProvider) DefaultModel() string { return openaiDefault }

func (p *openaiProvider) GenerateJSON(ctx context.Context, prompt string, schema map[string]any) (string, error) {
	if p.client == nil {
		return "", ErrNotInitialized
	}
	// JSON mode guarantees well-formed JSON but not the shape, so the schema
	// is restated in the instruction and enforced downstream.
	full := prompt
	if schema != nil {
		if b, err := json.Marshal(schema); err == nil {
			full += "\n\nThe response MUST match this JSON schema exactly:\n" + string(b)
		}
	}
	full += "\n\nReturn ONLY strict JSON. No extra text."

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: full},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", &ServiceError{Backend: "openai", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &ServiceError{Backend: "openai", Err: fmt.Errorf("empty response")}
	}
	return resp.Choices[0].Message.Content, nil
}
