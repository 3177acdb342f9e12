// Package ai holds the generative model clients the analysis engine calls.
package ai

import (
	"context"
	"errors"
)

var (
	ErrEmptyResponse   = errors.New("model returned empty content")
	ErrUnknownProvider = errors.New("unknown ai provider")
	ErrClientNotSet    = errors.New("ai client not set")
)

// GenerateOptions tunes a single generation call.
type GenerateOptions struct {
	JSON        bool
	Temperature float32
}

// Generator produces text for a prompt with a given model.
type Generator interface {
	Generate(ctx context.Context, prompt, modelID string, opts GenerateOptions) (string, error)
}

// VisionGenerator transcribes the text visible in an image.
type VisionGenerator interface {
	Transcribe(ctx context.Context, image []byte, mimeType, modelID string) (string, error)
}

// Named is implemented by generators that can say which provider serves a model.
type Named interface {
	ProviderName(modelID string) string
}

// ProviderOf returns the provider name for modelID, or "default" when g
// cannot tell.
func ProviderOf(g Generator, modelID string) string {
	if n, ok := g.(Named); ok {
		return n.ProviderName(modelID)
	}
	return "default"
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt, modelID string, opts GenerateOptions) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt, modelID string, opts GenerateOptions) (string, error) {
	return f(ctx, prompt, modelID, opts)
}
