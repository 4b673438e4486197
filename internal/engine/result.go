package engine

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Kind identifies a Result variant.
type Kind string

const (
	KindRendered   Kind = "rendered"
	KindDiagnostic Kind = "diagnostic"
	KindEmpty      Kind = "empty"
)

// Result is the outcome of one evaluation cycle. Exactly one variant is
// produced per cycle and it fully determines what the viewer displays.
type Result interface {
	Kind() Kind
	// Node builds the display tree for the result.
	Node() *html.Node
}

// Rendered carries a displayable tree.
type Rendered struct {
	Root *html.Node
}

// Diagnostic carries a human-readable failure message.
type Diagnostic struct {
	Message string
}

// Empty is the designed "nothing to show" state with guidance text.
type Empty struct {
	Hint string
}

func (Rendered) Kind() Kind   { return KindRendered }
func (Diagnostic) Kind() Kind { return KindDiagnostic }
func (Empty) Kind() Kind      { return KindEmpty }

func (r Rendered) Node() *html.Node {
	if r.Root == nil {
		return element(atom.Div, "rendered")
	}
	return r.Root
}

func (d Diagnostic) Node() *html.Node {
	return element(atom.Div, "diagnostic", text(d.Message))
}

func (e Empty) Node() *html.Node {
	return element(atom.Div, "empty", element(atom.Pre, "", text(e.Hint)))
}

// WriteHTML renders r as HTML.
func WriteHTML(w io.Writer, r Result) error {
	return html.Render(w, r.Node())
}

// HTML renders r as an HTML string.
func HTML(r Result) string {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, r); err != nil {
		return ""
	}
	return buf.String()
}

// Text renders r as plain text, one line per block element.
func Text(r Result) string {
	var b strings.Builder
	writeText(&b, r.Node())
	return strings.TrimRight(b.String(), "\n")
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if n.DataAtom == atom.Br {
			b.WriteByte('\n')
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if n.Type == html.ElementNode && isBlock(n.DataAtom) {
		if s := b.String(); s != "" && !strings.HasSuffix(s, "\n") {
			b.WriteByte('\n')
		}
	}
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.Div, atom.P, atom.Pre, atom.Li, atom.Ul, atom.Ol, atom.Section,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.Table, atom.Tr:
		return true
	}
	return false
}
