package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const jsonSystemPrompt = "You are a precise assistant. Respond with a single valid JSON object and nothing else."

// ChatModelFactory builds an eino chat model for a model identifier.
type ChatModelFactory func(ctx context.Context, modelID string) (model.BaseChatModel, error)

// ChatModelProvider serves models through eino chat model components. Models
// are built lazily and reused.
type ChatModelProvider struct {
	name    string
	factory ChatModelFactory

	mu     sync.Mutex
	models map[string]model.BaseChatModel
}

// NewChatModelProvider creates a provider named name backed by factory.
func NewChatModelProvider(name string, factory ChatModelFactory) *ChatModelProvider {
	return &ChatModelProvider{
		name:    name,
		factory: factory,
		models:  make(map[string]model.BaseChatModel),
	}
}

// OllamaFactory returns a factory for models served by an Ollama instance.
func OllamaFactory(baseURL string) ChatModelFactory {
	return func(ctx context.Context, modelID string) (model.BaseChatModel, error) {
		return ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: baseURL,
			Model:   modelID,
		})
	}
}

// OpenAIFactory returns a factory for OpenAI-compatible chat completion APIs.
func OpenAIFactory(apiKey, baseURL string) ChatModelFactory {
	return func(ctx context.Context, modelID string) (model.BaseChatModel, error) {
		cfg := &openai.ChatModelConfig{
			APIKey: apiKey,
			Model:  modelID,
		}
		if baseURL != "" {
			cfg.BaseURL = baseURL
		}
		return openai.NewChatModel(ctx, cfg)
	}
}

// Name returns the provider name.
func (p *ChatModelProvider) Name() string {
	return p.name
}

// Generate sends prompt as a single user message.
func (p *ChatModelProvider) Generate(ctx context.Context, prompt, modelID string, opts GenerateOptions) (string, error) {
	cm, err := p.modelFor(ctx, modelID)
	if err != nil {
		return "", err
	}

	messages := make([]*schema.Message, 0, 2)
	if opts.JSON {
		messages = append(messages, schema.SystemMessage(jsonSystemPrompt))
	}
	messages = append(messages, schema.UserMessage(prompt))

	msg, err := cm.Generate(ctx, messages, model.WithTemperature(opts.Temperature))
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", p.name, modelID, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", ErrEmptyResponse
	}
	return msg.Content, nil
}

func (p *ChatModelProvider) modelFor(ctx context.Context, modelID string) (model.BaseChatModel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cm, ok := p.models[modelID]; ok {
		return cm, nil
	}
	if p.factory == nil {
		return nil, ErrClientNotSet
	}
	cm, err := p.factory(ctx, modelID)
	if err != nil {
		return nil, fmt.Errorf("create %s chat model %s: %w", p.name, modelID, err)
	}
	p.models[modelID] = cm
	return cm, nil
}
