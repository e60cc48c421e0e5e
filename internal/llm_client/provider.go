package llm_client

import (
	"context"
	"fmt"
	"strings"
)

type Config struct {
	Backend    string
	Model      string
	OllamaHost string
}

// Provider is one reasoning backend. GenerateJSON must return the raw JSON
// text of the response; schema (a JSON-schema map) is passed to backends that
// can constrain generation and is advisory otherwise.
type Provider interface {
	Init(cfg Config) error
	DefaultModel() string
	GenerateJSON(ctx context.Context, prompt string, schema map[string]any) (string, error)
}

var (
	active   Provider
	activeID string
)

func Init(cfg Config) error {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = "gemini"
	}
	var p Provider
	switch backend {
	case "ollama":
		p = &ollamaProvider{}
	case "gemini":
		p = &geminiProvider{}
	case "openai":
		p = &openaiProvider{}
	default:
		return fmt.Errorf("unsupported LLM backend: %s", cfg.Backend)
	}
	if err := p.Init(cfg); err != nil {
		return err
	}
	active = p
	activeID = backend
	return nil
}

func ActiveBackend() string {
	if active == nil {
		return ""
	}
	return activeID
}

func GenerateJSON(ctx context.Context, prompt string, schema map[string]any) (string, error) {
	if active == nil {
		return "", ErrNotInitialized
	}
	return active.GenerateJSON(ctx, prompt, schema)
}
