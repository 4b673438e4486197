package sandbox

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/dop251/goja"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Markers written by the prelude's element factory. Strings survive a round
// trip through Go data, symbols would not.
const (
	elementMarker  = "snippet.element"
	fragmentMarker = "snippet.fragment"
)

// Style properties React leaves without a px suffix.
var unitless = map[string]bool{
	"opacity": true, "zIndex": true, "fontWeight": true, "lineHeight": true,
	"flex": true, "flexGrow": true, "flexShrink": true, "order": true, "zoom": true,
}

func isElement(v goja.Value) bool {
	obj, ok := v.(*goja.Object)
	if !ok {
		return false
	}
	marker := obj.Get("$$typeof")
	return marker != nil && marker.String() == elementMarker
}

// renderRoot renders v into a detached container element.
func (r *Runtime) renderRoot(v goja.Value) (*html.Node, error) {
	root := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Div,
		Data:     "div",
		Attr:     []html.Attribute{{Key: "class", Val: "snippet-root"}},
	}
	if err := r.renderInto(root, v, 0); err != nil {
		return nil, err
	}
	return root, nil
}

func (r *Runtime) renderInto(parent *html.Node, v goja.Value, depth int) error {
	if depth > r.config.MaxRenderDepth {
		return ErrRenderDepth
	}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}

	obj, isObj := v.(*goja.Object)
	if !isObj {
		if _, ok := v.Export().(bool); ok {
			return nil
		}
		parent.AppendChild(&html.Node{Type: html.TextNode, Data: v.String()})
		return nil
	}

	if obj.ClassName() == "Array" {
		n := obj.Get("length").ToInteger()
		for i := int64(0); i < n; i++ {
			if err := r.renderInto(parent, obj.Get(strconv.FormatInt(i, 10)), depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	if _, isFn := goja.AssertFunction(obj); isFn {
		return nil
	}
	if !isElement(obj) {
		return ErrInvalidChild
	}

	typ := obj.Get("type")
	props := obj.Get("props")

	if component, ok := goja.AssertFunction(typ); ok {
		if props == nil || goja.IsUndefined(props) {
			props = r.vm.NewObject()
		}
		var (
			out goja.Value
			err error
		)
		if r.isClassComponent(typ) {
			out, err = r.renderClass(typ, props)
		} else {
			out, err = component(goja.Undefined(), props)
		}
		if err != nil {
			return err
		}
		return r.renderInto(parent, out, depth+1)
	}

	tag := typ.String()
	children := goja.Undefined()
	var propsObj *goja.Object
	if props != nil && !goja.IsUndefined(props) && !goja.IsNull(props) {
		propsObj = props.ToObject(r.vm)
		if c := propsObj.Get("children"); c != nil {
			children = c
		}
	}

	if tag == fragmentMarker {
		return r.renderInto(parent, children, depth+1)
	}

	node := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	if propsObj != nil {
		for _, key := range propsObj.Keys() {
			if key == "children" {
				continue
			}
			if attr, ok := r.attribute(key, propsObj.Get(key)); ok {
				node.Attr = append(node.Attr, attr)
			}
		}
	}
	if err := r.renderInto(node, children, depth+1); err != nil {
		return err
	}
	parent.AppendChild(node)
	return nil
}

// isClassComponent reports whether typ must be constructed rather than
// called: its prototype extends Component or defines render.
func (r *Runtime) isClassComponent(typ goja.Value) bool {
	proto, ok := typ.ToObject(r.vm).Get("prototype").(*goja.Object)
	if !ok {
		return false
	}
	if marker := proto.Get("isReactComponent"); marker != nil && !goja.IsUndefined(marker) {
		return true
	}
	_, hasRender := goja.AssertFunction(proto.Get("render"))
	return hasRender
}

// renderClass constructs a class component and returns its render output.
// Lifecycle methods never run.
func (r *Runtime) renderClass(typ, props goja.Value) (goja.Value, error) {
	inst, err := r.vm.New(typ, props)
	if err != nil {
		return nil, err
	}
	render, ok := goja.AssertFunction(inst.Get("render"))
	if !ok {
		return nil, ErrNoRender
	}
	return render(inst)
}

// attribute maps one JSX prop to an HTML attribute.
func (r *Runtime) attribute(key string, v goja.Value) (html.Attribute, bool) {
	switch key {
	case "key", "ref", "dangerouslySetInnerHTML":
		return html.Attribute{}, false
	}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return html.Attribute{}, false
	}
	if _, isFn := goja.AssertFunction(v); isFn {
		return html.Attribute{}, false
	}

	name := attributeName(key)
	if b, ok := v.Export().(bool); ok {
		if !b {
			return html.Attribute{}, false
		}
		return html.Attribute{Key: name}, true
	}
	if key == "style" {
		if obj, ok := v.(*goja.Object); ok {
			return html.Attribute{Key: name, Val: r.styleText(obj)}, true
		}
	}
	return html.Attribute{Key: name, Val: v.String()}, true
}

func attributeName(key string) string {
	switch key {
	case "className":
		return "class"
	case "htmlFor":
		return "for"
	}
	if strings.Contains(key, "-") {
		return key
	}
	return strings.ToLower(key)
}

func (r *Runtime) styleText(style *goja.Object) string {
	parts := make([]string, 0, len(style.Keys()))
	for _, key := range style.Keys() {
		v := style.Get(key)
		if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
			continue
		}
		val := v.String()
		switch v.Export().(type) {
		case int64, float64:
			if !unitless[key] && val != "0" {
				val += "px"
			}
		}
		parts = append(parts, fmt.Sprintf("%s:%s", kebab(key), val))
	}
	return strings.Join(parts, ";")
}

func kebab(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsUpper(r) {
			b.WriteByte('-')
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
