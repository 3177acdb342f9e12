package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingGenerator(calls *[]string) GeneratorFunc {
	return func(ctx context.Context, prompt, modelID string, opts GenerateOptions) (string, error) {
		*calls = append(*calls, modelID)
		return `{"ok":true}`, nil
	}
}

func TestRouterSplit(t *testing.T) {
	var calls []string
	r := NewRouter("ollama").
		Register("ollama", recordingGenerator(&calls)).
		Register("gemini", recordingGenerator(&calls))

	p, m := r.Split("ollama:llama3.1:8b")
	assert.Equal(t, "ollama", p)
	assert.Equal(t, "llama3.1:8b", m)

	p, m = r.Split("gemini-2.5-flash")
	assert.Equal(t, "ollama", p)
	assert.Equal(t, "gemini-2.5-flash", m)

	p, m = r.Split("llama3.1:8b")
	assert.Equal(t, "ollama", p)
	assert.Equal(t, "llama3.1:8b", m)
}

func TestRouterBareTagGoesToDefaultProvider(t *testing.T) {
	var ollamaCalls []string
	r := NewRouter("ollama").Register("ollama", recordingGenerator(&ollamaCalls))

	_, err := r.Generate(context.Background(), "p", "llama3.1:8b", GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3.1:8b"}, ollamaCalls)
	assert.Equal(t, "ollama", ProviderOf(r, "llama3.1:8b"))
}

func TestRouterDispatch(t *testing.T) {
	var geminiCalls, ollamaCalls []string
	r := NewRouter("gemini").
		Register("gemini", recordingGenerator(&geminiCalls)).
		Register("ollama", recordingGenerator(&ollamaCalls))

	_, err := r.Generate(context.Background(), "p", "gemini-2.5-pro", GenerateOptions{})
	require.NoError(t, err)
	_, err = r.Generate(context.Background(), "p", "ollama:qwen2.5", GenerateOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"gemini-2.5-pro"}, geminiCalls)
	assert.Equal(t, []string{"qwen2.5"}, ollamaCalls)
	assert.Equal(t, "gemini", ProviderOf(r, "gemini-2.5-pro"))
	assert.Equal(t, "ollama", ProviderOf(r, "ollama:qwen2.5"))
}

func TestRouterUnknownProvider(t *testing.T) {
	r := NewRouter("gemini")
	_, err := r.Generate(context.Background(), "p", "gpt-4o-mini", GenerateOptions{})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestProviderOfPlainGenerator(t *testing.T) {
	var calls []string
	assert.Equal(t, "default", ProviderOf(recordingGenerator(&calls), "x"))
}
