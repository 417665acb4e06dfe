// Package anyllm provides a summarizer Completer backed by
// github.com/mozilla-ai/any-llm-go, so one configuration knob selects
// OpenAI, Anthropic, Gemini, Ollama and friends.
//
// Usage:
//
//	c, err := anyllm.New("anthropic", "claude-3-5-sonnet-latest")
//	s := summarizer.NewClient(c)
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/MrWong99/meetingctl/pkg/provider/summarizer"
)

const defaultMaxTokens = 1024

// Completer implements summarizer.Completer by wrapping any-llm-go.
type Completer struct {
	backend anyllmlib.Provider
	model   string
}

var _ summarizer.Completer = (*Completer)(nil)

// New creates a Completer for the given provider name and model.
//
// providerName is one of "openai", "anthropic", "gemini", "ollama".
// Without explicit options the relevant environment variable supplies the
// API key (OPENAI_API_KEY, ANTHROPIC_API_KEY, ...).
func New(providerName, model string, opts ...anyllmlib.Option) (*Completer, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}
	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}
	return &Completer{backend: backend, model: model}, nil
}

func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama", providerName)
	}
}

// Complete implements summarizer.Completer.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	maxTokens := defaultMaxTokens
	resp, err := c.backend.Completion(ctx, anyllmlib.CompletionParams{
		Model: c.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleUser, Content: prompt},
		},
		MaxTokens: &maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("anyllm: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("anyllm: empty choices in response")
	}
	return resp.Choices[0].Message.ContentString(), nil
}
