package engine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/snippetlab/internal/capture"
)

// Entry points tried on script modules, in priority order.
var scriptEntryPoints = []string{"demo", "run"}

const scriptGuidance = "Export a demo() or run() function, or leave console.log(...) calls " +
	"at the top level and they will appear here."

var cancelled = Diagnostic{Message: "Evaluation cancelled."}

// ScriptEvaluator resolves what a plain script snippet outputs.
type ScriptEvaluator struct {
	isolate Isolate
	logger  *zap.Logger
}

// NewScriptEvaluator creates an evaluator that replays top-level statements
// through iso and reports operator-facing failures to logger.
func NewScriptEvaluator(iso Isolate, logger *zap.Logger) *ScriptEvaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScriptEvaluator{isolate: iso, logger: logger}
}

// Evaluate loads the module and its source concurrently and produces exactly
// one Result. It never returns an error; failures become Diagnostics.
func (e *ScriptEvaluator) Evaluate(ctx context.Context, loadModule ModuleLoader, loadSource SourceLoader) (res Result) {
	defer recoverResult(&res, e.logger, "script")

	ctx, ch := capture.Ensure(ctx, e.logger)

	var (
		exports Exports
		source  string
		g       errgroup.Group
	)
	g.Go(safely(func() (err error) {
		exports, err = loadModule(ctx)
		return err
	}))
	g.Go(safely(func() (err error) {
		source, err = loadSource(ctx)
		return err
	}))
	err := g.Wait()
	if ctx.Err() != nil {
		return cancelled
	}
	if err != nil {
		e.logger.Error("failed to load script module", zap.Error(err))
		return Diagnostic{Message: "Failed to load script module."}
	}

	primary, invoked := e.invokeEntryPoint(ch, exports)
	if ctx.Err() != nil {
		return cancelled
	}

	topLogs, err := replay(ctx, e.isolate, ch, source)
	if ctx.Err() != nil {
		return cancelled
	}
	if err != nil {
		// Many valid snippets cannot run standalone; absence of the block is
		// the only visible symptom.
		e.logger.Debug("top-level replay failed", zap.Error(err))
		topLogs = nil
	}

	var top *html.Node
	if len(topLogs) > 0 {
		top = element(atom.Div, "top-level",
			element(atom.Div, "caption", text("Console output (top-level):")),
			logBlock(topLogs),
		)
	}

	if !invoked && top == nil {
		return introspect(exports)
	}
	return Rendered{Root: element(atom.Div, "script-result", primary, top)}
}

// invokeEntryPoint calls the first entry point the module exports. invoked
// is true only when a call happened and returned normally.
func (e *ScriptEvaluator) invokeEntryPoint(ch *capture.Channel, exports Exports) (*html.Node, bool) {
	for _, name := range scriptEntryPoints {
		fn, ok := exports.Callable(name)
		if !ok {
			continue
		}
		label := name + "()"

		rec, err := capture.Capture(ch, func() (any, error) {
			return fn.Call()
		})
		if err != nil {
			e.logger.Warn("error invoking entry point", zap.String("entry", label), zap.Error(err))
			return element(atom.Div, "primary error", text("Error invoking "+label+".")), false
		}

		outcome := element(atom.Div, "outcome",
			element(atom.B, "", text(label+" →")),
			text(" "),
			valueNode(rec.Result),
		)
		return element(atom.Div, "primary", outcome, logBlock(rec.Logs)), true
	}
	return nil, false
}

func valueNode(v any) *html.Node {
	switch val := v.(type) {
	case *html.Node:
		return element(atom.Span, "value", val)
	case nil:
		return element(atom.Span, "value", text("undefined"))
	default:
		return element(atom.Span, "value", text(capture.Format(val)))
	}
}

// introspect builds the fallback view listing every exported callable.
func introspect(exports Exports) Result {
	var b strings.Builder
	b.WriteString("No visible output.\n")
	b.WriteString(scriptGuidance)

	sigs := exports.Callables()
	if len(sigs) > 0 {
		b.WriteString("\n\nExported functions:")
		for _, sig := range sigs {
			fmt.Fprintf(&b, "\n%s(%d args)", sig.Name, sig.Arity)
		}
	}
	return Empty{Hint: b.String()}
}

// safely converts a panic in a loader goroutine into an error.
func safely(fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("loader panic: %v", r)
			}
		}()
		return fn()
	}
}

func recoverResult(res *Result, logger *zap.Logger, evaluator string) {
	if r := recover(); r != nil {
		logger.Error("evaluator panic", zap.String("evaluator", evaluator), zap.Any("panic", r))
		*res = Diagnostic{Message: "Evaluation failed."}
	}
}
