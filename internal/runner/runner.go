// Package runner evaluates catalog snippets in the sandbox and routes each
// one to the evaluator for its category.
package runner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/snippetlab/internal/capture"
	"github.com/GriffinCanCode/snippetlab/internal/catalog"
	"github.com/GriffinCanCode/snippetlab/internal/engine"
	"github.com/GriffinCanCode/snippetlab/internal/infrastructure/logging"
	"github.com/GriffinCanCode/snippetlab/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/snippetlab/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/snippetlab/internal/sandbox"
)

// Sources is the part of the catalog the runner reads from.
type Sources interface {
	Get(id string) (catalog.Snippet, error)
	Source(ctx context.Context, id string) (string, error)
}

// Runner evaluates snippets. It is safe for concurrent use; every
// evaluation gets its own runtime and capture channel.
type Runner struct {
	sources Sources
	config  sandbox.Config
	logger  *logging.Logger
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer
}

// Option configures a Runner.
type Option func(*Runner)

// WithTracer opens a span per evaluation and tags console log lines with
// the trace id.
func WithTracer(t *tracing.Tracer) Option {
	return func(r *Runner) { r.tracer = t }
}

// New creates a runner. metrics may be nil.
func New(sources Sources, config sandbox.Config, logger *logging.Logger, metrics *monitoring.Metrics, opts ...Option) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Runner{
		sources: sources,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EvaluateID looks up id and evaluates it.
func (r *Runner) EvaluateID(ctx context.Context, id string) (engine.Result, error) {
	s, err := r.sources.Get(id)
	if err != nil {
		return nil, err
	}
	return r.Evaluate(ctx, s), nil
}

// Evaluate produces the presentation result for one snippet.
func (r *Runner) Evaluate(ctx context.Context, s catalog.Snippet) (res engine.Result) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var span *tracing.Span
	if r.tracer != nil {
		span, ctx = r.tracer.StartSpan(ctx, "evaluate")
		span.SetTag("snippet", s.ID)
		span.SetTag("category", string(s.Category))
	}

	sink := r.logger.Snippet(s.ID).With(tracing.Fields(ctx)...)
	ctx = capture.WithChannel(ctx, capture.NewChannel(sink))

	timer := monitoring.NewTimer(r.metrics, string(s.Category))
	defer func() {
		outcome := string(res.Kind())
		if ctx.Err() != nil {
			outcome = "cancelled"
		}
		d := timer.Stop(outcome)
		if span != nil {
			span.SetTag("outcome", outcome)
			span.Finish()
			r.tracer.Submit(span)
		}
		r.logger.Debug("Snippet evaluated",
			zap.String("snippet", s.ID),
			zap.String("outcome", outcome),
			zap.Duration("duration", d),
		)
	}()

	var mod *sandbox.Module
	defer func() {
		if mod != nil {
			mod.Close()
		}
	}()
	loadModule := func(ctx context.Context) (engine.Exports, error) {
		code, err := r.sources.Source(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		m, err := sandbox.Load(ctx, r.config, sandbox.Source{Name: s.ID, Language: s.Language, Code: code})
		if err != nil {
			return nil, err
		}
		mod = m
		return m.Exports(), nil
	}
	loadSource := func(ctx context.Context) (string, error) {
		return r.sources.Source(ctx, s.ID)
	}

	switch s.Category {
	case catalog.Script:
		iso := sandbox.NewIsolate(r.config, s.Language)
		return engine.NewScriptEvaluator(iso, sink).Evaluate(ctx, loadModule, loadSource)
	case catalog.Component:
		return engine.NewComponentEvaluator(sink).Evaluate(ctx, loadModule)
	default:
		r.logger.Error("Unknown snippet category",
			zap.String("snippet", s.ID),
			zap.String("category", string(s.Category)),
		)
		return engine.Diagnostic{Message: fmt.Sprintf("Unsupported snippet category %q.", s.Category)}
	}
}
