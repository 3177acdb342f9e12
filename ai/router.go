package ai

import (
	"context"
	"fmt"
	"strings"
)

// Router dispatches "provider:model" identifiers to registered generators.
// A prefix only counts when it names a registered provider, so Ollama tags
// such as "llama3.1:8b" go to the default provider untouched.
type Router struct {
	defaultProvider string
	providers       map[string]Generator
}

// NewRouter creates a router whose bare model IDs resolve to defaultProvider.
func NewRouter(defaultProvider string) *Router {
	return &Router{
		defaultProvider: defaultProvider,
		providers:       make(map[string]Generator),
	}
}

// Register adds or replaces a provider.
func (r *Router) Register(name string, g Generator) *Router {
	r.providers[name] = g
	return r
}

// Has reports whether a provider is registered.
func (r *Router) Has(name string) bool {
	_, ok := r.providers[name]
	return ok
}

// Split separates a registered provider prefix from a model identifier.
// Anything else belongs to the default provider.
func (r *Router) Split(id string) (provider, modelID string) {
	if i := strings.Index(id, ":"); i > 0 && r.Has(id[:i]) {
		return id[:i], id[i+1:]
	}
	return r.defaultProvider, id
}

func (r *Router) resolve(id string) (string, string, Generator, error) {
	provider, modelID := r.Split(id)
	g, ok := r.providers[provider]
	if !ok {
		return provider, modelID, nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	return provider, modelID, g, nil
}

// Generate implements Generator.
func (r *Router) Generate(ctx context.Context, prompt, id string, opts GenerateOptions) (string, error) {
	_, modelID, g, err := r.resolve(id)
	if err != nil {
		return "", err
	}
	return g.Generate(ctx, prompt, modelID, opts)
}

// ProviderName implements Named.
func (r *Router) ProviderName(id string) string {
	provider, _ := r.Split(id)
	return provider
}
