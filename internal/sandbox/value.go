package sandbox

import (
	"errors"

	"github.com/dop251/goja"
)

var errNotSerializable = errors.New("sandbox: value has no JSON form")

// Value is a JavaScript value handed to Go. It encodes itself with the VM's
// own JSON.stringify so key order and JS semantics survive.
type Value struct {
	rt *Runtime
	v  goja.Value
}

// Export converts the value to plain Go data.
func (v *Value) Export() any {
	if v.v == nil || goja.IsUndefined(v.v) || goja.IsNull(v.v) {
		return nil
	}
	return v.v.Export()
}

// MarshalJSON implements json.Marshaler.
func (v *Value) MarshalJSON() ([]byte, error) {
	if _, isFn := goja.AssertFunction(v.v); isFn || goja.IsUndefined(v.v) {
		return nil, errNotSerializable
	}
	out, err := v.rt.stringify(goja.Undefined(), v.v)
	if err != nil {
		return nil, err
	}
	if goja.IsUndefined(out) {
		return nil, errNotSerializable
	}
	return []byte(out.String()), nil
}

// String returns a console-style description of the value.
func (v *Value) String() string {
	if v.v == nil || goja.IsUndefined(v.v) {
		return "undefined"
	}
	if _, isFn := goja.AssertFunction(v.v); isFn {
		name := v.v.ToObject(v.rt.vm).Get("name")
		if name == nil || name.String() == "" {
			return "[Function (anonymous)]"
		}
		return "[Function: " + name.String() + "]"
	}
	return v.v.String()
}
