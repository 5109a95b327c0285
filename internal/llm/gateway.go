// Package llm is the boundary to the generative model provider.
package llm

import (
	"context"
	"time"

	"commandmail/internal/apperr"
	"commandmail/pkg/circuitbreaker"
	"commandmail/pkg/metrics"

	"go.uber.org/zap"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	DefaultTemperature float32 = 0.7
	DefaultMaxTokens   int32   = 1000
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions overrides generation settings; zero values take the defaults.
type ChatOptions struct {
	Temperature float32
	MaxTokens   int32
}

// Gateway is what services use to talk to the model.
type Gateway interface {
	Complete(ctx context.Context, systemPrompt, content string) (string, error)
	Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error)
}

// Turn is one history entry in provider terms (role is "user" or "model").
type Turn struct {
	Role string
	Text string
}

// Provider is a raw model backend.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Chat(ctx context.Context, history []Turn, message string, temperature float32, maxTokens int32) (string, error)
}

// Client implements Gateway on top of a Provider, adding the breaker,
// latency metrics and GatewayError wrapping.
type Client struct {
	provider Provider
	breaker  *circuitbreaker.CircuitBreaker
	logger   *zap.Logger
}

func NewClient(provider Provider, breaker *circuitbreaker.CircuitBreaker, logger *zap.Logger) *Client {
	if breaker == nil {
		breaker = circuitbreaker.New(circuitbreaker.DefaultConfig())
	}
	return &Client{provider: provider, breaker: breaker, logger: logger}
}

// Complete sends systemPrompt and content joined by a blank line.
func (c *Client) Complete(ctx context.Context, systemPrompt, content string) (string, error) {
	prompt := systemPrompt + "\n\n" + content
	var text string
	err := c.call(ctx, "complete", func() error {
		var err error
		text, err = c.provider.Generate(ctx, prompt)
		return err
	})
	return text, err
}

// Chat replays all but the last message as history and sends the last one.
func (c *Client) Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error) {
	if len(messages) == 0 {
		return "", apperr.Validation("messages must not be empty")
	}
	history := make([]Turn, 0, len(messages)-1)
	for _, m := range messages[:len(messages)-1] {
		history = append(history, Turn{Role: providerRole(m.Role), Text: m.Content})
	}
	last := messages[len(messages)-1].Content

	temperature := opts.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}

	var text string
	err := c.call(ctx, "chat", func() error {
		var err error
		text, err = c.provider.Chat(ctx, history, last, temperature, maxTokens)
		return err
	})
	return text, err
}

func (c *Client) call(ctx context.Context, op string, fn func() error) error {
	start := time.Now()
	err := c.breaker.Execute(fn)
	status := "success"
	if err != nil {
		status = "error"
		c.logger.Error("LLM call failed",
			zap.String("operation", op),
			zap.String("breaker", c.breaker.State().String()),
			zap.Error(err),
		)
		err = apperr.Gateway(err)
	}
	metrics.RecordLLMCallLatency(op, status, time.Since(start))
	return err
}

func providerRole(role string) string {
	if role == RoleAssistant {
		return "model"
	}
	return "user"
}
