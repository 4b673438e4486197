package viewer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/snippetlab/internal/catalog"
	"github.com/GriffinCanCode/snippetlab/internal/engine"
	"github.com/GriffinCanCode/snippetlab/internal/runner"
)

// gatedEvaluator blocks each snippet until its gate is released and records
// whether the evaluation saw its context cancelled.
type gatedEvaluator struct {
	mu        sync.Mutex
	gates     map[string]chan struct{}
	started   chan string
	cancelled map[string]bool
}

func newGated(ids ...string) *gatedEvaluator {
	g := &gatedEvaluator{
		gates:     make(map[string]chan struct{}),
		started:   make(chan string, 16),
		cancelled: make(map[string]bool),
	}
	for _, id := range ids {
		g.gates[id] = make(chan struct{})
	}
	return g
}

func (g *gatedEvaluator) Evaluate(ctx context.Context, s catalog.Snippet) engine.Result {
	g.started <- s.ID
	g.mu.Lock()
	gate := g.gates[s.ID]
	g.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if ctx.Err() != nil {
		g.mu.Lock()
		g.cancelled[s.ID] = true
		g.mu.Unlock()
		return engine.Diagnostic{Message: "Evaluation cancelled."}
	}
	return engine.Diagnostic{Message: "result of " + s.ID}
}

func (g *gatedEvaluator) release(id string) { close(g.gates[id]) }

func (g *gatedEvaluator) wasCancelled(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cancelled[id]
}

type recorder struct {
	mu     sync.Mutex
	frames []Frame
	ch     chan Frame
}

func newRecorder() *recorder { return &recorder{ch: make(chan Frame, 16)} }

func (r *recorder) publish(f Frame) {
	r.mu.Lock()
	r.frames = append(r.frames, f)
	r.mu.Unlock()
	r.ch <- f
}

func (r *recorder) next(t *testing.T) Frame {
	t.Helper()
	select {
	case f := <-r.ch:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no frame published")
		return Frame{}
	}
}

func (r *recorder) all() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Frame(nil), r.frames...)
}

func snippet(id string) catalog.Snippet {
	return catalog.Snippet{ID: id, Category: catalog.Script}
}

func message(f Frame) string {
	return f.Result.(engine.Diagnostic).Message
}

func TestSelectPublishes(t *testing.T) {
	rec := newRecorder()
	v := New(newGated(), WithPublisher(rec.publish))
	defer v.Close()

	_, ok := v.Current()
	assert.False(t, ok)

	cycle := v.Select(snippet("a"))
	f := rec.next(t)

	assert.Equal(t, cycle, f.Cycle)
	assert.Equal(t, "result of a", message(f))

	cur, ok := v.Current()
	require.True(t, ok)
	assert.Equal(t, cycle, cur.Cycle)
}

func TestSupersededCycleNeverPublishes(t *testing.T) {
	eval := newGated("a")
	rec := newRecorder()
	v := New(eval, WithPublisher(rec.publish))
	defer v.Close()

	first := v.Select(snippet("a"))
	require.Equal(t, "a", <-eval.started)

	second := v.Select(snippet("b"))
	f := rec.next(t)
	assert.Equal(t, second, f.Cycle)

	// The slow cycle completes after the fast one has been displayed
	eval.release("a")
	v.Close()

	assert.True(t, eval.wasCancelled("a"))
	assert.Equal(t, int64(1), v.Stale())
	for _, f := range rec.all() {
		assert.NotEqual(t, first, f.Cycle)
	}
	cur, ok := v.Current()
	require.True(t, ok)
	assert.Equal(t, "result of b", message(cur))
}

func TestRapidSelectionsDisplayOnlyLast(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	eval := newGated(ids...)
	rec := newRecorder()
	v := New(eval, WithPublisher(rec.publish))

	var last = v.Select(snippet(ids[0]))
	for _, id := range ids[1:] {
		last = v.Select(snippet(id))
	}
	for range ids {
		<-eval.started
	}

	// Release in reverse so older cycles finish last
	for i := len(ids) - 1; i >= 0; i-- {
		eval.release(ids[i])
	}
	f := rec.next(t)
	v.Close()

	assert.Equal(t, last, f.Cycle)
	assert.Len(t, rec.all(), 1)
	assert.Equal(t, int64(len(ids)-1), v.Stale())
}

func TestCycleIDsIncrease(t *testing.T) {
	v := New(newGated())
	defer v.Close()

	a := v.Select(snippet("a"))
	b := v.Select(snippet("b"))
	assert.Less(t, a.String(), b.String())
	assert.Equal(t, b, v.Cycle())
}

type blockingEvaluator struct{}

func (blockingEvaluator) Evaluate(ctx context.Context, _ catalog.Snippet) engine.Result {
	<-ctx.Done()
	return engine.Diagnostic{Message: "Evaluation cancelled."}
}

func TestTimeoutPublishesDiagnostic(t *testing.T) {
	rec := newRecorder()
	v := New(blockingEvaluator{}, WithTimeout(20*time.Millisecond), WithPublisher(rec.publish))
	defer v.Close()

	v.Select(snippet("slow"))
	f := rec.next(t)
	assert.Equal(t, runner.TimedOut, f.Result)
}

func TestCloseCancelsAndWaits(t *testing.T) {
	rec := newRecorder()
	v := New(blockingEvaluator{}, WithPublisher(rec.publish))

	v.Select(snippet("slow"))
	v.Close()

	assert.Empty(t, rec.all())
	assert.Zero(t, v.Stale())
	assert.Empty(t, v.Select(snippet("late")))
}
