package engine

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/net/html/atom"

	"github.com/GriffinCanCode/snippetlab/internal/capture"
)

// Entry points tried on component modules, in priority order.
var componentEntryPoints = []string{"Preview", "default"}

const (
	noRenderableMessage = "No renderable found: the module exports neither Preview nor a default component."
	loadFailedMessage   = "Failed to load component."
)

// ComponentEvaluator resolves and instantiates the renderable a component
// snippet exports.
type ComponentEvaluator struct {
	logger *zap.Logger
}

// NewComponentEvaluator creates a component evaluator.
func NewComponentEvaluator(logger *zap.Logger) *ComponentEvaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComponentEvaluator{logger: logger}
}

// Evaluate loads the module, picks its entry point and property source and
// renders it. It never returns an error.
func (e *ComponentEvaluator) Evaluate(ctx context.Context, loadModule ModuleLoader) (res Result) {
	defer recoverResult(&res, e.logger, "component")

	ctx, _ = capture.Ensure(ctx, e.logger)

	exports, err := loadModule(ctx)
	if ctx.Err() != nil {
		return cancelled
	}
	if err != nil {
		e.logger.Error("component load failed", zap.Error(err))
		return Diagnostic{Message: loadFailedMessage}
	}

	comp, name, ok := resolveRenderable(exports)
	if !ok {
		return Diagnostic{Message: noRenderableMessage}
	}

	props, err := resolveProps(exports, comp)
	if err != nil {
		e.logger.Error("component load failed", zap.String("entry", name), zap.Error(err))
		return Diagnostic{Message: loadFailedMessage}
	}

	node, err := comp.Render(props)
	if ctx.Err() != nil {
		return cancelled
	}
	if err != nil {
		e.logger.Error("component load failed", zap.String("entry", name), zap.Error(err))
		return Diagnostic{Message: loadFailedMessage}
	}
	return Rendered{Root: element(atom.Div, "component-result", node)}
}

func resolveRenderable(exports Exports) (Renderable, string, bool) {
	for _, name := range componentEntryPoints {
		if r, ok := exports.Renderable(name); ok {
			return r, name, true
		}
	}
	return nil, "", false
}

// resolveProps applies the property sources in priority order. The first
// source present wins even when it yields an empty mapping.
func resolveProps(exports Exports, comp Renderable) (Props, error) {
	if fn, ok := exports.Callable("getPreviewProps"); ok {
		v, err := fn.Call()
		if err != nil {
			return nil, err
		}
		return toProps(v), nil
	}
	if v, ok := exports.Value("previewProps"); ok {
		return toProps(v), nil
	}
	if carrier, ok := comp.(PreviewPropsCarrier); ok {
		if p, ok := carrier.PreviewProps(); ok {
			return toProps(p), nil
		}
	}
	return Props{}, nil
}
