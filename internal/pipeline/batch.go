package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"uniqtext/internal/model"
)

// MaxURLs is the most URLs a single run accepts.
const MaxURLs = 4

var (
	ErrTooManyURLs = errors.New("too many URLs")
	ErrNoURLs      = errors.New("no URLs given")
)

// Task processes one URL. *Pipeline implements it.
type Task interface {
	Run(ctx context.Context, url string) model.RunOutcome
}

// Runner starts one worker per URL, all at once, and waits for every one.
type Runner struct {
	task    Task
	maxURLs int
	logger  *slog.Logger
}

func NewRunner(task Task, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{task: task, maxURLs: MaxURLs, logger: logger}
}

// Run checks the URL count before any work starts and returns the outcomes
// in input order. Cancelling ctx makes the in-flight stages fail fast.
func (r *Runner) Run(ctx context.Context, urls []string) ([]model.RunOutcome, error) {
	if len(urls) == 0 {
		return nil, ErrNoURLs
	}
	if len(urls) > r.maxURLs {
		return nil, fmt.Errorf("%w: got %d, at most %d per run", ErrTooManyURLs, len(urls), r.maxURLs)
	}

	r.logger.Info("batch started", "urls", len(urls))

	outcomes := make([]model.RunOutcome, len(urls))
	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			outcomes[i] = r.runOne(ctx, url)
		}(i, url)
	}
	wg.Wait()

	ok, failed := Tally(outcomes)
	r.logger.Info("batch finished", "succeeded", ok, "failed", failed)
	return outcomes, nil
}

// runOne keeps a panicking task from taking its siblings down.
func (r *Runner) runOne(ctx context.Context, url string) (out model.RunOutcome) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("task panicked", "url", url, "panic", rec)
			out = model.RunOutcome{
				URL:     url,
				Err:     fmt.Errorf("task panicked: %v", rec),
				Elapsed: time.Since(start),
			}
		}
	}()
	return r.task.Run(ctx, url)
}

func Tally(outcomes []model.RunOutcome) (succeeded, failed int) {
	for _, o := range outcomes {
		if o.Succeeded {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}

// ParseURLList splits comma separated input, trims every entry and drops
// empty and repeated ones, keeping the first occurrence order.
func ParseURLList(input string) []string {
	var urls []string
	seen := make(map[string]bool)
	for _, u := range strings.Split(input, ",") {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
	}
	return urls
}
