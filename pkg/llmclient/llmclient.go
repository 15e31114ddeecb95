/*
Copyright 2025 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package llmclient wraps the LLM call the email pipeline's
// structured-extraction fallback uses to pull a status update, a blocker,
// or a completion signal out of an unstructured reply body. A circuit
// breaker isolates the rest of the pipeline from a provider outage.
package llmclient

import (
	"context"
	"errors"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sony/gobreaker"

	"github.com/almforge/coreforge/pkg/metrics"
)

// ErrCircuitOpen is returned when the breaker has tripped and calls are
// being short-circuited rather than sent to the provider.
var ErrCircuitOpen = errors.New("llmclient: circuit breaker open")

// Extractor pulls structured fields out of free text.
type Extractor interface {
	Extract(ctx context.Context, prompt string) (string, error)
}

// Client is an Extractor backed by the Anthropic API, wrapped in a
// circuit breaker so repeated provider failures fail fast instead of
// stalling every in-flight email reply.
type Client struct {
	api     anthropic.Client
	model   anthropic.Model
	breaker *gobreaker.CircuitBreaker
}

type Config struct {
	APIKey    string
	ModelName string
	// BaseURL points at a locally-hosted or proxied endpoint
	// (LLM_STUDIO_URL) instead of the public Anthropic API.
	BaseURL string
}

func New(cfg Config) *Client {
	settings := gobreaker.Settings{
		Name:        "llm-extraction",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		api:     anthropic.NewClient(opts...),
		model:   anthropic.Model(cfg.ModelName),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// callTimeout bounds a single extraction call per spec.md §5's default
// 30s LLM call budget.
const callTimeout = 30 * time.Second

func (c *Client) Extract(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		metrics.RecordLLMAPICall("anthropic")
		msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     c.model,
			MaxTokens: 1024,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if err != nil {
			metrics.RecordLLMAPIError("anthropic", "call_failed")
			return "", err
		}
		if len(msg.Content) == 0 {
			return "", errors.New("llmclient: empty response")
		}
		return msg.Content[0].Text, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", ErrCircuitOpen
		}
		return "", err
	}
	return result.(string), nil
}

var _ Extractor = (*Client)(nil)
