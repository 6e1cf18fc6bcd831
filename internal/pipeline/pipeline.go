package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"uniqtext/internal/crawler"
	"uniqtext/internal/model"
	"uniqtext/internal/observability"
	"uniqtext/internal/rewrite"
)

type Stage int

const (
	StageFetching Stage = iota
	StageExtracting
	StageRewriting
	StageStoring
	StageSucceeded
)

func (s Stage) String() string {
	switch s {
	case StageFetching:
		return "fetching"
	case StageExtracting:
		return "extracting"
	case StageRewriting:
		return "rewriting"
	case StageStoring:
		return "storing"
	case StageSucceeded:
		return "succeeded"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type Rewriter interface {
	Rewrite(ctx context.Context, p model.ProductRecord, d model.DescriptionRecord) (string, error)
}

type Store interface {
	Append(ctx context.Context, row model.OutputRow) error
}

// Mirror receives a copy of every stored row. Its failures are only logged.
type Mirror interface {
	Save(ctx context.Context, row model.OutputRow) error
}

// Pipeline processes one URL: fetch, extract, rewrite, store. Any stage
// failure ends the run for that URL; nothing is retried.
type Pipeline struct {
	fetcher   Fetcher
	extractor *crawler.Extractor
	rewriter  Rewriter
	store     Store
	mirror    Mirror
	logger    *slog.Logger
}

type Option func(*Pipeline)

func WithMirror(m Mirror) Option {
	return func(p *Pipeline) { p.mirror = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

func New(f Fetcher, e *crawler.Extractor, r Rewriter, s Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:   f,
		extractor: e,
		rewriter:  r,
		store:     s,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run never returns an error; the outcome carries the failed stage and cause.
func (p *Pipeline) Run(ctx context.Context, url string) model.RunOutcome {
	start := time.Now()
	log := p.logger.With("url", url)
	log.Info("processing started")

	stage, err := p.process(ctx, url, log)
	out := model.RunOutcome{
		URL:       url,
		Succeeded: err == nil,
		Stage:     stage.String(),
		Err:       err,
		Elapsed:   time.Since(start),
	}

	if err != nil {
		observability.PipelineOutcomes.WithLabelValues("failed", stage.String()).Inc()
		log.Error("processing failed", "stage", stage.String(), "error", err, "elapsed", out.Elapsed)
		return out
	}
	observability.PipelineOutcomes.WithLabelValues("succeeded", stage.String()).Inc()
	log.Info("processing finished", "elapsed", out.Elapsed)
	return out
}

func (p *Pipeline) process(ctx context.Context, url string, log *slog.Logger) (Stage, error) {
	done := observeStage(StageFetching)
	page, err := p.fetcher.Fetch(ctx, url)
	done()
	if err != nil {
		return StageFetching, err
	}

	done = observeStage(StageExtracting)
	doc, err := crawler.NewDocument(page)
	if err != nil {
		done()
		return StageExtracting, fmt.Errorf("parse html: %w", err)
	}
	product, err := p.extractor.Parse(doc)
	if err != nil {
		done()
		return StageExtracting, err
	}
	desc := crawler.Description(doc)
	done()
	log.Debug("card extracted", "title", product.Title, "article", product.Article,
		"base_desc_len", len(desc.BaseDesc), "detail_desc_len", len(desc.DetailDesc))

	done = observeStage(StageRewriting)
	text, err := p.rewriter.Rewrite(ctx, product, desc)
	if err != nil {
		done()
		return StageRewriting, err
	}
	result, err := rewrite.Decode(text)
	done()
	if err != nil {
		return StageRewriting, err
	}

	row := model.NewOutputRow(url, product, result)

	done = observeStage(StageStoring)
	err = p.store.Append(ctx, row)
	done()
	if err != nil {
		return StageStoring, err
	}

	if p.mirror != nil {
		if err := p.mirror.Save(ctx, row); err != nil {
			log.Warn("row stored but mirror failed", "error", err)
		}
	}
	return StageSucceeded, nil
}

func observeStage(s Stage) func() {
	start := time.Now()
	return func() {
		observability.StageDuration.WithLabelValues(s.String()).Observe(time.Since(start).Seconds())
	}
}
