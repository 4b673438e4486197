package runner

import (
	"context"
	"errors"
	"time"

	"github.com/GriffinCanCode/snippetlab/internal/catalog"
	"github.com/GriffinCanCode/snippetlab/internal/engine"
)

// TimedOut is the result of an evaluation cut off by its deadline.
var TimedOut = engine.Diagnostic{Message: "Evaluation timed out."}

// Evaluator produces the result for one snippet.
type Evaluator interface {
	Evaluate(ctx context.Context, s catalog.Snippet) engine.Result
}

type bounded struct {
	next    Evaluator
	timeout time.Duration
}

// Bounded cuts every evaluation of next off after timeout and reports it as
// TimedOut. A zero timeout returns next unchanged.
func Bounded(next Evaluator, timeout time.Duration) Evaluator {
	if timeout <= 0 {
		return next
	}
	return bounded{next: next, timeout: timeout}
}

func (b bounded) Evaluate(ctx context.Context, s catalog.Snippet) engine.Result {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	res := b.next.Evaluate(ctx, s)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return TimedOut
	}
	return res
}
