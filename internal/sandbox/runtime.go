package sandbox

import (
	"context"
	"fmt"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/snippetlab/internal/capture"
)

// Runtime wraps a goja VM bound to one console channel.
type Runtime struct {
	vm      *goja.Runtime
	config  Config
	console *capture.Channel

	stringify goja.Callable
	timerID   int64
	stop      func() bool
}

// newRuntime creates a VM whose console is the channel carried by ctx.
// Cancelling ctx interrupts any script running in the VM.
func newRuntime(ctx context.Context, config Config) (*Runtime, error) {
	vm := goja.New()

	if config.MaxCallStackSize > 0 {
		vm.SetMaxCallStackSize(config.MaxCallStackSize)
	}
	if config.MaxRenderDepth <= 0 {
		config.MaxRenderDepth = DefaultConfig().MaxRenderDepth
	}

	console := capture.FromContext(ctx)
	if console == nil {
		console = capture.NewChannel(nil)
	}

	r := &Runtime{
		vm:      vm,
		config:  config,
		console: console,
	}

	json := vm.Get("JSON").ToObject(vm)
	stringify, ok := goja.AssertFunction(json.Get("stringify"))
	if !ok {
		return nil, fmt.Errorf("sandbox: JSON.stringify unavailable")
	}
	r.stringify = stringify

	r.stop = context.AfterFunc(ctx, func() {
		vm.Interrupt(ctx.Err())
	})

	return r, nil
}

// setupGlobals configures global objects for module evaluation
func (r *Runtime) setupGlobals() error {
	// Node-style globals are supplied per module, never globally
	for _, name := range []string{"require", "process", "module", "exports"} {
		if err := r.vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}

	if r.config.EnableConsole {
		if err := r.vm.Set("console", r.newConsole()); err != nil {
			return err
		}
	}

	return r.setupTimers()
}

// setupTimers installs inert timer functions when enabled. Deferred work
// never runs, so it is never attributed to a capture.
func (r *Runtime) setupTimers() error {
	if !r.config.EnableTimers {
		return nil
	}
	schedule := func(goja.FunctionCall) goja.Value {
		r.timerID++
		return r.vm.ToValue(r.timerID)
	}
	cancel := func(goja.FunctionCall) goja.Value { return goja.Undefined() }

	for name, fn := range map[string]func(goja.FunctionCall) goja.Value{
		"setTimeout":    schedule,
		"setInterval":   schedule,
		"clearTimeout":  cancel,
		"clearInterval": cancel,
	} {
		if err := r.vm.Set(name, fn); err != nil {
			return err
		}
	}
	return nil
}

// newConsole creates a console object forwarding to the runtime's channel
func (r *Runtime) newConsole() *goja.Object {
	console := r.vm.NewObject()
	for _, level := range []string{"log", "info", "debug", "warn", "error"} {
		_ = console.Set(level, r.makeConsoleFunc(level))
	}
	return console
}

// makeConsoleFunc creates a console function
func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		args := make([]any, len(call.Arguments))
		for i, arg := range call.Arguments {
			args[i] = r.consoleArg(arg)
		}

		switch level {
		case "warn":
			r.console.Warn(args...)
		case "error":
			r.console.Error(args...)
		default:
			r.console.Log(args...)
		}
		return goja.Undefined()
	}
}

func (r *Runtime) consoleArg(v goja.Value) any {
	if _, isObj := v.(*goja.Object); !isObj {
		if s, ok := v.Export().(string); ok {
			return s
		}
	}
	return &Value{rt: r, v: v}
}

// fromJS converts a value returned to Go. Elements are rendered to HTML,
// undefined becomes nil, primitive strings become Go strings and everything
// else stays wrapped.
func (r *Runtime) fromJS(v goja.Value) (any, error) {
	if v == nil || goja.IsUndefined(v) {
		return nil, nil
	}
	if isElement(v) {
		return r.renderRoot(v)
	}
	if _, isObj := v.(*goja.Object); !isObj {
		if s, ok := v.Export().(string); ok {
			return s, nil
		}
	}
	return &Value{rt: r, v: v}, nil
}

// Close releases the cancellation hook.
func (r *Runtime) Close() error {
	if r.stop != nil {
		r.stop()
	}
	return nil
}
