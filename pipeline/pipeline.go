// Package pipeline runs batches of source records through transformation
// and assembly on a bounded worker pool and hands the resulting search
// documents to a Sink.
//
// A record that is excluded, fails to transform, or fails schema validation
// is logged and counted; it never stops the batch. Only a sink failure or
// context cancellation ends a run early.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/c360studio/isamples/assemble"
	"github.com/c360studio/isamples/core"
	"github.com/c360studio/isamples/schema"
	"github.com/c360studio/isamples/transform"
)

// DefaultWorkers is the pool size when none is configured.
const DefaultWorkers = 4

// Input is one raw source record. Smithsonian rows are JSON objects of
// column name to value.
type Input struct {
	Authority core.Authority
	Raw       []byte
	// Identifier, when set, restricts a record that yields several samples
	// to the one with this sample identifier.
	Identifier string
	// Origin names where the record came from, for logs.
	Origin string
}

// Stats summarizes a run.
type Stats struct {
	RunID    string
	Inputs   int64
	Indexed  int64
	Excluded int64
	Invalid  int64
	Failed   int64
	Duration time.Duration
}

type counters struct {
	inputs, indexed, excluded, invalid, failed atomic.Int64
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers sets how many inputs are processed concurrently.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithIncludeH3 controls whether canonical records carry H3 cells.
func WithIncludeH3(include bool) Option {
	return func(p *Pipeline) {
		p.includeH3 = include
	}
}

// WithValidator checks every canonical record before assembly.
func WithValidator(v *schema.Validator) Option {
	return func(p *Pipeline) {
		p.validator = v
	}
}

// WithAssembler replaces the default assembler.
func WithAssembler(a *assemble.Assembler) Option {
	return func(p *Pipeline) {
		p.assembler = a
	}
}

// WithMetrics records outcomes in m.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// Pipeline transforms, validates, assembles, and writes records.
type Pipeline struct {
	deps      transform.Dependencies
	sink      Sink
	assembler *assemble.Assembler
	validator *schema.Validator
	workers   int
	includeH3 bool
	metrics   *Metrics
	logger    *slog.Logger
}

// New creates a pipeline writing to sink.
func New(deps transform.Dependencies, sink Sink, opts ...Option) *Pipeline {
	p := &Pipeline{
		deps:      deps,
		sink:      sink,
		workers:   DefaultWorkers,
		includeH3: true,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.assembler == nil {
		p.assembler = assemble.New(assemble.WithLogger(p.logger))
	}
	return p
}

// Run processes inputs and returns the run's counts. The error is non-nil
// only when the sink failed or ctx was cancelled; the stats are valid either
// way.
func (p *Pipeline) Run(ctx context.Context, inputs []Input) (Stats, error) {
	runID := uuid.NewString()
	logger := p.logger.With(slog.String("run_id", runID))
	start := time.Now()
	logger.Info("Pipeline run started", slog.Int("inputs", len(inputs)), slog.Int("workers", p.workers))

	var c counters
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, in := range inputs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			c.inputs.Add(1)
			return p.process(gctx, logger, in, &c)
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	stats := Stats{
		RunID:    runID,
		Inputs:   c.inputs.Load(),
		Indexed:  c.indexed.Load(),
		Excluded: c.excluded.Load(),
		Invalid:  c.invalid.Load(),
		Failed:   c.failed.Load(),
		Duration: time.Since(start),
	}
	p.metrics.observeRun(stats.Duration)
	logger.Info("Pipeline run finished",
		slog.Int64("indexed", stats.Indexed),
		slog.Int64("excluded", stats.Excluded),
		slog.Int64("invalid", stats.Invalid),
		slog.Int64("failed", stats.Failed),
		slog.Duration("duration", stats.Duration))
	return stats, err
}

// process handles one input. Only sink errors are returned.
func (p *Pipeline) process(ctx context.Context, logger *slog.Logger, in Input, c *counters) error {
	authority := string(in.Authority)
	logger = logger.With(slog.String("authority", authority))
	if in.Origin != "" {
		logger = logger.With(slog.String("origin", in.Origin))
	}

	tr, err := transform.New(in.Authority, in.Raw, p.deps)
	if err != nil {
		c.failed.Add(1)
		p.metrics.recordOutcome(authority, OutcomeFailed)
		logger.Error("Record could not be parsed", slog.String("error", err.Error()))
		return nil
	}

	for _, t := range p.selected(tr, in.Identifier) {
		id := t.SampleIdentifier()
		rec, err := transform.Transform(ctx, t, p.includeH3)
		switch {
		case core.IsExclusion(err):
			c.excluded.Add(1)
			p.metrics.recordOutcome(authority, OutcomeExcluded)
			logger.Info("Record excluded", slog.String("identifier", id), slog.String("reason", err.Error()))
			continue
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.failed.Add(1)
			p.metrics.recordOutcome(authority, OutcomeFailed)
			logger.Error("Record transform failed", slog.String("identifier", id), slog.String("error", err.Error()))
			continue
		}

		if p.validator != nil {
			if err := p.validator.Validate(rec); err != nil {
				c.invalid.Add(1)
				p.metrics.recordOutcome(authority, OutcomeInvalid)
				logger.Warn("Record failed schema validation", slog.String("identifier", id), slog.String("error", err.Error()))
				continue
			}
		}

		doc, err := p.assembler.Assemble(rec, t.Authority())
		if err != nil {
			c.failed.Add(1)
			p.metrics.recordOutcome(authority, OutcomeFailed)
			logger.Error("Record assembly failed", slog.String("identifier", id), slog.String("error", err.Error()))
			continue
		}
		if err := p.sink.Write(ctx, doc); err != nil {
			return fmt.Errorf("sink: %w", err)
		}
		c.indexed.Add(1)
		p.metrics.recordOutcome(authority, OutcomeIndexed)
	}
	return nil
}

// selected returns the transformers to run for tr: all of them, or the one
// matching identifier.
func (p *Pipeline) selected(tr transform.Transformer, identifier string) []transform.Transformer {
	all := transform.Expand(tr)
	if identifier == "" {
		return all
	}
	for _, t := range all {
		if t.SampleIdentifier() == identifier {
			return []transform.Transformer{t}
		}
	}
	p.logger.Warn("Identifier not found in record", slog.String("identifier", identifier))
	return nil
}

// ErrNoInputs is returned by callers that refuse to start an empty run.
var ErrNoInputs = errors.New("no input records")
