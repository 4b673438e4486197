package engine

import (
	"context"
	"sort"

	"golang.org/x/net/html"
)

// Props is the property mapping a Renderable is instantiated with.
type Props map[string]any

// Callable is an exported function.
type Callable interface {
	Call(args ...any) (any, error)
	// Arity is the number of declared parameters.
	Arity() int
}

// Renderable can be instantiated with props into a displayable tree.
type Renderable interface {
	Render(props Props) (*html.Node, error)
}

// PreviewPropsCarrier is implemented by renderables that bundle a static
// default property mapping.
type PreviewPropsCarrier interface {
	PreviewProps() (Props, bool)
}

// Exporter is implemented by values that wrap a foreign runtime value and
// can convert it to plain Go data.
type Exporter interface {
	Export() any
}

// Exports is everything a module makes publicly available. The shape is
// discovered at runtime through the accessors below.
type Exports map[string]any

// Callable returns the export name when it is callable.
func (e Exports) Callable(name string) (Callable, bool) {
	fn, ok := e[name].(Callable)
	return fn, ok
}

// HasCallable reports whether name is exported as a callable.
func (e Exports) HasCallable(name string) bool {
	_, ok := e.Callable(name)
	return ok
}

// Value returns the export name when it is present and not callable.
func (e Exports) Value(name string) (any, bool) {
	v, ok := e[name]
	if !ok {
		return nil, false
	}
	if _, fn := v.(Callable); fn {
		return nil, false
	}
	return v, true
}

// HasValue reports whether name is exported as plain data.
func (e Exports) HasValue(name string) bool {
	_, ok := e.Value(name)
	return ok
}

// Renderable returns the export name when it can be rendered.
func (e Exports) Renderable(name string) (Renderable, bool) {
	r, ok := e[name].(Renderable)
	return r, ok
}

// Signature describes an exported callable.
type Signature struct {
	Name  string
	Arity int
}

// Callables lists every callable export sorted by name.
func (e Exports) Callables() []Signature {
	out := make([]Signature, 0, len(e))
	for name, v := range e {
		if fn, ok := v.(Callable); ok {
			out = append(out, Signature{Name: name, Arity: fn.Arity()})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ModuleLoader asynchronously obtains a module's exports.
type ModuleLoader func(ctx context.Context) (Exports, error)

// SourceLoader obtains the exact source text of a snippet.
type SourceLoader func(ctx context.Context) (string, error)

// toProps converts a resolved property value to Props. Values that are not
// mappings resolve to an empty mapping.
func toProps(v any) Props {
	if ex, ok := v.(Exporter); ok {
		v = ex.Export()
	}
	switch m := v.(type) {
	case Props:
		if m == nil {
			return Props{}
		}
		return m
	case map[string]any:
		if m == nil {
			return Props{}
		}
		return Props(m)
	default:
		return Props{}
	}
}
