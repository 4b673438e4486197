// Package viewer owns the selection lifecycle: every selection starts a new
// evaluation cycle and only the newest cycle may publish its result.
package viewer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/snippetlab/internal/catalog"
	"github.com/GriffinCanCode/snippetlab/internal/engine"
	"github.com/GriffinCanCode/snippetlab/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/snippetlab/internal/runner"
	"github.com/GriffinCanCode/snippetlab/internal/shared/id"
)

// Evaluator produces the result for one snippet. The runner satisfies it.
type Evaluator interface {
	Evaluate(ctx context.Context, s catalog.Snippet) engine.Result
}

// Frame is one published display update.
type Frame struct {
	Cycle     id.CycleID
	Snippet   catalog.Snippet
	Result    engine.Result
	Published time.Time
}

// Publisher receives frames in publication order. It is called while the
// viewer holds its lock and must not call back into the viewer.
type Publisher func(Frame)

// Option configures a Viewer.
type Option func(*Viewer)

// WithTimeout bounds every cycle; a cycle that runs out of time publishes
// runner.TimedOut. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(v *Viewer) { v.timeout = d }
}

// WithLogger sets the operator logger.
func WithLogger(logger *zap.Logger) Option {
	return func(v *Viewer) { v.logger = logger }
}

// WithMetrics records cycle counts.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(v *Viewer) { v.metrics = m }
}

// WithPublisher registers a callback for published frames.
func WithPublisher(p Publisher) Option {
	return func(v *Viewer) { v.publish = p }
}

// Viewer runs at most one current cycle and displays its result.
type Viewer struct {
	eval    runner.Evaluator
	timeout time.Duration
	logger  *zap.Logger
	metrics *monitoring.Metrics
	publish Publisher

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu      sync.Mutex
	current id.CycleID
	cancel  context.CancelFunc
	frame   Frame
	shown   bool
	stale   int64
	closed  bool
}

// New creates a viewer that evaluates selections with eval.
func New(eval Evaluator, opts ...Option) *Viewer {
	base, stop := context.WithCancel(context.Background())
	v := &Viewer{
		eval:   eval,
		logger: zap.NewNop(),
		base:   base,
		stop:   stop,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.eval = runner.Bounded(eval, v.timeout)
	return v
}

// Select starts a new cycle for s and supersedes the current one. The
// superseded cycle's context is cancelled and its result will never be
// published. It returns an empty id after Close.
func (v *Viewer) Select(s catalog.Snippet) id.CycleID {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ""
	}
	if v.cancel != nil {
		v.cancel()
	}

	cycle := id.NewCycleID()
	ctx, cancel := context.WithCancel(v.base)
	v.current = cycle
	v.cancel = cancel
	v.wg.Add(1)
	v.mu.Unlock()

	if v.metrics != nil {
		v.metrics.IncCycles()
	}
	v.logger.Debug("Cycle started",
		zap.String("cycle", cycle.String()),
		zap.String("snippet", s.ID),
	)

	go v.run(ctx, cancel, cycle, s)
	return cycle
}

func (v *Viewer) run(ctx context.Context, cancel context.CancelFunc, cycle id.CycleID, s catalog.Snippet) {
	defer v.wg.Done()
	defer cancel()

	res := v.eval.Evaluate(ctx, s)
	v.commit(Frame{Cycle: cycle, Snippet: s, Result: res, Published: time.Now()})
}

// commit publishes f if its cycle is still current. The check and the
// publication happen under one lock so a newer selection cannot interleave.
// Superseded cycles are counted even when they finish after Close.
func (v *Viewer) commit(f Frame) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if f.Cycle != v.current {
		v.stale++
		if v.metrics != nil {
			v.metrics.IncStale()
		}
		v.logger.Debug("Stale cycle dropped",
			zap.String("cycle", f.Cycle.String()),
			zap.String("current", v.current.String()),
			zap.String("snippet", f.Snippet.ID),
		)
		return false
	}
	if v.closed {
		return false
	}

	v.frame = f
	v.shown = true
	if v.publish != nil {
		v.publish(f)
	}
	return true
}

// Current returns the displayed frame, if any cycle has published.
func (v *Viewer) Current() (Frame, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frame, v.shown
}

// Cycle returns the id of the newest cycle.
func (v *Viewer) Cycle() id.CycleID {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Stale returns how many superseded cycles finished and were dropped.
func (v *Viewer) Stale() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stale
}

// Close cancels the running cycle and waits for every cycle to finish.
func (v *Viewer) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.mu.Unlock()

	v.stop()
	v.wg.Wait()
}
