package sandbox

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/dop251/goja"
	"golang.org/x/net/html"

	"github.com/GriffinCanCode/snippetlab/internal/engine"
)

//go:embed prelude.js
var preludeSource string

var prelude = goja.MustCompile("prelude.js", preludeSource, false)

// Module is a snippet evaluated as an ES module inside its own runtime.
type Module struct {
	rt      *Runtime
	exports engine.Exports
}

// Load compiles src, evaluates it and collects its exports. The console of
// the runtime is the capture channel carried by ctx.
func Load(ctx context.Context, config Config, src Source) (*Module, error) {
	code, err := transformModule(src)
	if err != nil {
		return nil, err
	}

	rt, err := newRuntime(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := rt.setupGlobals(); err != nil {
		rt.Close()
		return nil, err
	}
	if _, err := rt.vm.RunProgram(prelude); err != nil {
		rt.Close()
		return nil, fmt.Errorf("sandbox: prelude: %w", err)
	}

	exports, err := rt.evaluate(src.Name, code)
	if err != nil {
		rt.Close()
		return nil, err
	}

	return &Module{rt: rt, exports: rt.collectExports(exports)}, nil
}

// Exports returns the module's public bindings.
func (m *Module) Exports() engine.Exports { return m.exports }

// Close releases the runtime.
func (m *Module) Close() error { return m.rt.Close() }

// evaluate runs a CommonJS body and returns its module.exports object.
func (r *Runtime) evaluate(name, code string) (*goja.Object, error) {
	wrapped, err := r.vm.RunScript(name, "(function (exports, require, module) {\n"+code+"\n})")
	if err != nil {
		return nil, err
	}
	body, ok := goja.AssertFunction(wrapped)
	if !ok {
		return nil, fmt.Errorf("sandbox: %s did not compile to a function", name)
	}

	module := r.vm.NewObject()
	exports := r.vm.NewObject()
	if err := module.Set("exports", exports); err != nil {
		return nil, err
	}

	if _, err := body(goja.Undefined(), exports, r.vm.ToValue(r.require), module); err != nil {
		return nil, err
	}
	return module.Get("exports").ToObject(r.vm), nil
}

// require resolves the only import snippets may use.
func (r *Runtime) require(call goja.FunctionCall) goja.Value {
	switch name := call.Argument(0).String(); name {
	case "react", "react/jsx-runtime":
		return r.vm.Get("__react")
	default:
		panic(r.vm.NewGoError(fmt.Errorf("%w: %q", ErrUnsupportedImport, name)))
	}
}

func (r *Runtime) collectExports(obj *goja.Object) engine.Exports {
	out := make(engine.Exports, len(obj.Keys()))
	for _, key := range obj.Keys() {
		v := obj.Get(key)
		if fn, ok := goja.AssertFunction(v); ok {
			out[key] = &Function{rt: r, name: key, obj: v.ToObject(r.vm), fn: fn}
			continue
		}
		if v == nil || goja.IsUndefined(v) {
			out[key] = nil
			continue
		}
		out[key] = &Value{rt: r, v: v}
	}
	return out
}

// Function is an exported JavaScript function. It is callable and can be
// rendered as a component.
type Function struct {
	rt   *Runtime
	name string
	obj  *goja.Object
	fn   goja.Callable
}

// Call invokes the function with Go arguments.
func (f *Function) Call(args ...any) (any, error) {
	vals := make([]goja.Value, len(args))
	for i, a := range args {
		vals[i] = f.rt.toJS(a)
	}
	out, err := f.fn(goja.Undefined(), vals...)
	if err != nil {
		return nil, err
	}
	return f.rt.fromJS(out)
}

// Arity returns the declared parameter count.
func (f *Function) Arity() int {
	return int(f.obj.Get("length").ToInteger())
}

// Render instantiates the function as a component with props.
func (f *Function) Render(props engine.Props) (*html.Node, error) {
	el := f.rt.vm.NewObject()
	_ = el.Set("$$typeof", elementMarker)
	_ = el.Set("type", f.obj)
	_ = el.Set("props", f.rt.toJS(props))
	return f.rt.renderRoot(el)
}

// PreviewProps returns the previewProps property bundled with the function.
func (f *Function) PreviewProps() (engine.Props, bool) {
	v := f.obj.Get("previewProps")
	if v == nil || goja.IsUndefined(v) {
		return nil, false
	}
	if m, ok := v.Export().(map[string]any); ok {
		return engine.Props(m), true
	}
	return engine.Props{}, true
}

func (f *Function) String() string {
	return "[Function: " + f.name + "]"
}

// toJS converts Go data to a value owned by the runtime. Wrapped values are
// unwrapped so identity survives the round trip.
func (r *Runtime) toJS(v any) goja.Value {
	switch t := v.(type) {
	case nil:
		return goja.Undefined()
	case *Value:
		return t.v
	case *Function:
		return t.obj
	case engine.Props:
		return r.objectOf(t)
	case map[string]any:
		return r.objectOf(t)
	case []any:
		items := make([]any, len(t))
		for i, item := range t {
			items[i] = r.toJS(item)
		}
		return r.vm.NewArray(items...)
	default:
		return r.vm.ToValue(v)
	}
}

func (r *Runtime) objectOf(m map[string]any) *goja.Object {
	obj := r.vm.NewObject()
	for k, item := range m {
		_ = obj.Set(k, r.toJS(item))
	}
	return obj
}
