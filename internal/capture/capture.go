// Package capture records what a snippet writes to its console channel.
//
// A Channel is an explicit handle, usually carried in a context.Context,
// instead of a process-wide console swap. Capture attaches a tap to the
// channel for the synchronous window of one call and detaches it on every
// exit path. Lines keep flowing to the operator sink while a tap is attached.
package capture

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// Record is the value returned by a captured call together with every line
// written to the channel while it ran.
type Record[T any] struct {
	Result T
	Logs   []string
}

type tap struct {
	lines []string
}

// Channel is a console sink shared by a snippet and its host.
type Channel struct {
	sink *zap.Logger

	mu   sync.Mutex
	taps []*tap
}

// NewChannel creates a channel that forwards every line to sink.
func NewChannel(sink *zap.Logger) *Channel {
	if sink == nil {
		sink = zap.NewNop()
	}
	return &Channel{sink: sink}
}

// Log serializes args into one line and delivers it to the sink and to all
// attached taps.
func (c *Channel) Log(args ...any) {
	c.emit("log", Line(args...))
}

// Warn behaves like Log but reports at warn level on the sink.
func (c *Channel) Warn(args ...any) {
	c.emit("warn", Line(args...))
}

// Error behaves like Log but reports at error level on the sink.
func (c *Channel) Error(args ...any) {
	c.emit("error", Line(args...))
}

func (c *Channel) emit(level, line string) {
	switch level {
	case "warn":
		c.sink.Warn("console", zap.String("line", line))
	case "error":
		c.sink.Error("console", zap.String("line", line))
	default:
		c.sink.Info("console", zap.String("line", line))
	}

	c.mu.Lock()
	for _, t := range c.taps {
		t.lines = append(t.lines, line)
	}
	c.mu.Unlock()
}

// Active reports how many captures are currently attached.
func (c *Channel) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.taps)
}

func (c *Channel) attach() *tap {
	t := &tap{}
	c.mu.Lock()
	c.taps = append(c.taps, t)
	c.mu.Unlock()
	return t
}

func (c *Channel) detach(t *tap) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, cur := range c.taps {
		if cur == t {
			c.taps = append(c.taps[:i], c.taps[i+1:]...)
			break
		}
	}
	return t.lines
}

// Capture runs fn with a tap attached to c. The tap is released even when fn
// returns an error or panics. Lines captured before a failure are still
// returned in the record.
func Capture[T any](c *Channel, fn func() (T, error)) (rec Record[T], err error) {
	t := c.attach()
	defer func() {
		rec.Logs = c.detach(t)
		if rec.Logs == nil {
			rec.Logs = []string{}
		}
	}()

	rec.Result, err = fn()
	return rec, err
}

// Line joins the serialized form of args with single spaces.
func Line(args ...any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = Format(a)
	}
	return strings.Join(parts, " ")
}

var encoder = sonic.Config{
	SortMapKeys:    true,
	ValidateString: true,
}.Froze()

// Format renders one value for display. Strings pass through verbatim,
// everything else is encoded as indented JSON, falling back to fmt.Sprint
// when encoding fails.
func Format(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	out, err := encoder.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(out)
}

type ctxKey struct{}

// WithChannel returns a context carrying c.
func WithChannel(ctx context.Context, c *Channel) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the channel carried by ctx, or nil.
func FromContext(ctx context.Context) *Channel {
	c, _ := ctx.Value(ctxKey{}).(*Channel)
	return c
}

// Ensure returns ctx and its channel, creating one backed by sink when ctx
// does not carry one yet.
func Ensure(ctx context.Context, sink *zap.Logger) (context.Context, *Channel) {
	if c := FromContext(ctx); c != nil {
		return ctx, c
	}
	c := NewChannel(sink)
	return WithChannel(ctx, c), c
}
