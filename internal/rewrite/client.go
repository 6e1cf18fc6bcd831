package rewrite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"uniqtext/internal/model"
)

// ErrRewriteTimeout is returned when the completion did not finish before the deadline.
var ErrRewriteTimeout = errors.New("rewrite deadline exceeded")

const DefaultDeadline = 25 * time.Second

// Completer turns a prompt into text. *Chain is the production implementation.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Client runs the completion under a hard wall-clock deadline. The call runs
// on its own goroutine which also gets the deadline context; a completer that
// ignores the context is abandoned when the deadline fires and its late
// result is dropped.
type Client struct {
	completer Completer
	deadline  time.Duration
	logger    *slog.Logger
}

func NewClient(c Completer, deadline time.Duration, logger *slog.Logger) *Client {
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{completer: c, deadline: deadline, logger: logger}
}

type completion struct {
	text string
	err  error
}

// Rewrite returns the raw payload of the service. It never panics; every
// failure, including a panic inside the completer, comes back as an error.
func (c *Client) Rewrite(ctx context.Context, p model.ProductRecord, d model.DescriptionRecord) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.deadline)
	defer cancel()

	prompt := BuildPrompt(p, d)

	// buffered so an abandoned worker can always finish its send
	done := make(chan completion, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- completion{err: fmt.Errorf("rewrite worker panicked: %v", r)}
			}
		}()
		text, err := c.completer.Complete(ctx, prompt)
		done <- completion{text: text, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && errors.Is(res.err, context.DeadlineExceeded) && ctx.Err() != nil {
			return "", fmt.Errorf("%w after %s: %w", ErrRewriteTimeout, c.deadline, res.err)
		}
		return res.text, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.logger.Warn("rewrite deadline exceeded, abandoning call", "deadline", c.deadline, "title", p.Title)
			return "", fmt.Errorf("%w after %s", ErrRewriteTimeout, c.deadline)
		}
		return "", ctx.Err()
	}
}
