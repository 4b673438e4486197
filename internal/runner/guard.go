package runner

import (
	"context"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/snippetlab/internal/catalog"
	"github.com/GriffinCanCode/snippetlab/internal/engine"
	"github.com/GriffinCanCode/snippetlab/internal/infrastructure/resilience"
)

// Suspended is the result for a snippet whose breaker is open.
var Suspended = engine.Diagnostic{Message: "Evaluation suspended: this snippet timed out repeatedly. Try again shortly."}

type guarded struct {
	next     Evaluator
	breakers *resilience.Set
	logger   *zap.Logger
}

// Guarded trips a per-snippet breaker when next keeps returning TimedOut.
// Cancelled evaluations release the breaker without counting.
func Guarded(next Evaluator, breakers *resilience.Set, logger *zap.Logger) Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return guarded{next: next, breakers: breakers, logger: logger}
}

func (g guarded) Evaluate(ctx context.Context, s catalog.Snippet) engine.Result {
	b := g.breakers.Get(s.ID)
	if err := b.Allow(); err != nil {
		g.logger.Debug("Evaluation refused", zap.String("snippet", s.ID), zap.Error(err))
		return Suspended
	}

	res := g.next.Evaluate(ctx, s)
	if ctx.Err() != nil {
		b.Release()
		return res
	}
	b.Report(res != TimedOut)
	return res
}
