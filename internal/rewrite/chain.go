package rewrite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"uniqtext/internal/observability"
)

var (
	ErrNoProvider         = errors.New("no rewrite provider configured")
	ErrAllProvidersFailed = errors.New("all rewrite providers failed")

	errEmptyResponse = errors.New("empty response")
)

// Chain tries its providers in order and returns the first non-empty answer.
// Every attempt gets its own timeout; a failed attempt is not repeated.
type Chain struct {
	Providers      []Provider
	AttemptTimeout time.Duration
	Logger         *slog.Logger
}

func NewChain(providers []Provider, attemptTimeout time.Duration, logger *slog.Logger) *Chain {
	return &Chain{Providers: providers, AttemptTimeout: attemptTimeout, Logger: logger}
}

func (c *Chain) Complete(ctx context.Context, prompt string) (string, error) {
	if len(c.Providers) == 0 {
		return "", ErrNoProvider
	}

	var errs []error
	for _, p := range c.Providers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		text, err := c.attempt(ctx, p, prompt)
		if err == nil {
			observability.RewriteAttempts.WithLabelValues(p.Name(), "ok").Inc()
			return text, nil
		}

		observability.RewriteAttempts.WithLabelValues(p.Name(), "error").Inc()
		c.logger().Warn("rewrite provider failed", "provider", p.Name(), "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}

	return "", fmt.Errorf("%w: %w", ErrAllProvidersFailed, errors.Join(errs...))
}

func (c *Chain) attempt(ctx context.Context, p Provider, prompt string) (string, error) {
	if c.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.AttemptTimeout)
		defer cancel()
	}

	text, err := p.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", errEmptyResponse
	}
	return text, nil
}

func (c *Chain) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
