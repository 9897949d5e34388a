// Package assist drafts and rewrites report text with a language model.
package assist

import (
	"context"
	"errors"
)

// DefaultSystemPrompt frames every request.
const DefaultSystemPrompt = "You are a helpful assistant for psychologists writing professional psychological reports. " +
	"Answer in English with a clinical, professional tone."

// ErrEmptyPrompt is returned for blank prompts.
var ErrEmptyPrompt = errors.New("assist: empty prompt")

// Options tune one generation. Zero fields use the generator's defaults.
type Options struct {
	System      string  `json:"systemPrompt,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"maxTokens,omitempty"`
	Style       string  `json:"style,omitempty"`
}

// Generator produces text for a prompt.
type Generator interface {
	GenerateText(ctx context.Context, prompt string, opts Options) (string, error)
}

// Config selects and configures a Generator.
type Config struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
	// Mock answers with canned drafts instead of calling a provider.
	Mock bool `yaml:"mock"`
}

// New returns a Gemini generator when an API key is configured and mock mode
// is off, an Offline generator otherwise.
func New(ctx context.Context, cfg Config) (Generator, error) {
	if cfg.Mock || cfg.APIKey == "" {
		return Offline{Mock: cfg.Mock}, nil
	}
	return NewGemini(ctx, cfg.APIKey, cfg.Model)
}

func (o Options) system() string {
	if o.System != "" {
		return o.System
	}
	return DefaultSystemPrompt
}

func (o Options) temperature() float32 {
	if o.Temperature > 0 {
		return o.Temperature
	}
	return 0.7
}

func (o Options) maxTokens() int {
	if o.MaxTokens > 0 {
		return o.MaxTokens
	}
	return 500
}
