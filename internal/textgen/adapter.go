// Package textgen abstracts the text-generation backends used to rewrite
// clarification prompts and button labels. The disambiguation layer only
// depends on the Adapter interface; which backend serves it is a
// deployment decision.
package textgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Request is one generation call.
type Request struct {
	Prompt       string  `json:"prompt"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	ModelID      string  `json:"model_id,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
}

// Response carries the generated text.
type Response struct {
	Text string `json:"text"`
}

// Adapter bridges the dialog layer with a text-generation backend.
type Adapter interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// InvocationError wraps a backend failure with the backend's name so
// callers can decide whether to fall back to static text.
type InvocationError struct {
	Backend string
	Err     error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("textgen backend %s: %v", e.Backend, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// Config controls adapter construction.
type Config struct {
	Mode         string
	GatewayURL   string
	GatewayToken string
	HTTPURL      string
}

// NewAdapter builds an adapter for the configured mode. Mode "auto" picks
// the richest backend the config allows: gateway with an HTTP fallback,
// then HTTP, then the deterministic mock.
func NewAdapter(cfg Config) (Adapter, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		return newAutoAdapter(cfg), nil
	case "gateway":
		if strings.TrimSpace(cfg.GatewayURL) == "" {
			return nil, errors.New("textgen gateway url is required for gateway mode")
		}
		return NewGatewayAdapter(cfg.GatewayURL, cfg.GatewayToken), nil
	case "http":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, errors.New("textgen http url is required for http mode")
		}
		return NewHTTPAdapter(cfg.HTTPURL), nil
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported textgen adapter mode %q", cfg.Mode)
	}
}

func newAutoAdapter(cfg Config) Adapter {
	var secondary Adapter
	if strings.TrimSpace(cfg.HTTPURL) != "" {
		secondary = NewHTTPAdapter(cfg.HTTPURL)
	} else {
		secondary = NewMockAdapter()
	}

	if strings.TrimSpace(cfg.GatewayURL) != "" {
		return NewFallbackAdapter(NewGatewayAdapter(cfg.GatewayURL, cfg.GatewayToken), secondary)
	}
	return secondary
}
