package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const ocrPrompt = `Transcribe all text visible in this document image exactly as written.
Preserve paragraph breaks. Do not summarize, translate or add commentary.
If the image contains no readable text, return an empty response.`

// GeminiProvider calls Google Gemini models through the generative-ai-go client
type GeminiProvider struct {
	client *genai.Client
	log    *zap.Logger
}

// GeminiOption is a functional option for GeminiProvider
type GeminiOption func(*GeminiProvider)

// GeminiWithLogger sets the logger
func GeminiWithLogger(log *zap.Logger) GeminiOption {
	return func(p *GeminiProvider) {
		p.log = log
	}
}

// NewGeminiProvider wraps an existing client.
func NewGeminiProvider(client *genai.Client, opts ...GeminiOption) *GeminiProvider {
	p := &GeminiProvider{client: client, log: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewGeminiClient creates a Gemini client for apiKey.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key not set")
	}
	return genai.NewClient(ctx, option.WithAPIKey(apiKey))
}

// Generate sends prompt to modelID and returns the concatenated text parts.
func (p *GeminiProvider) Generate(ctx context.Context, prompt, modelID string, opts GenerateOptions) (string, error) {
	if p.client == nil {
		return "", ErrClientNotSet
	}

	model := p.client.GenerativeModel(modelID)
	model.SetTemperature(opts.Temperature)
	if opts.JSON {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", modelID, err)
	}
	return p.collectText(modelID, resp)
}

// Transcribe runs OCR-style transcription of an image.
func (p *GeminiProvider) Transcribe(ctx context.Context, image []byte, mimeType, modelID string) (string, error) {
	if p.client == nil {
		return "", ErrClientNotSet
	}

	model := p.client.GenerativeModel(modelID)
	model.SetTemperature(0)

	format := strings.TrimPrefix(mimeType, "image/")
	resp, err := model.GenerateContent(ctx, genai.ImageData(format, image), genai.Text(ocrPrompt))
	if err != nil {
		return "", fmt.Errorf("gemini vision %s: %w", modelID, err)
	}
	return p.collectText(modelID, resp)
}

func (p *GeminiProvider) collectText(modelID string, resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", ErrEmptyResponse
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", fmt.Errorf("gemini blocked prompt: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var out strings.Builder
	for i, candidate := range resp.Candidates {
		if candidate.FinishReason != genai.FinishReasonUnspecified && candidate.FinishReason != genai.FinishReasonStop {
			p.log.Warn("gemini.candidate.finish_reason",
				zap.String("model", modelID),
				zap.Int("candidate", i),
				zap.String("reason", candidate.FinishReason.String()),
			)
		}
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				out.WriteString(string(text))
			}
		}
	}

	if out.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return out.String(), nil
}
