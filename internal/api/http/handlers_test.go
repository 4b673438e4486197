package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/GriffinCanCode/snippetlab/internal/catalog"
	"github.com/GriffinCanCode/snippetlab/internal/engine"
	"github.com/GriffinCanCode/snippetlab/internal/infrastructure/monitoring"
)

type fakeSnippets struct {
	items   []catalog.Snippet
	sources map[string]string
}

func (f *fakeSnippets) List() []catalog.Snippet { return f.items }

func (f *fakeSnippets) ByCategory(category catalog.Category) []catalog.Snippet {
	var out []catalog.Snippet
	for _, s := range f.items {
		if s.Category == category {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeSnippets) Get(id string) (catalog.Snippet, error) {
	for _, s := range f.items {
		if s.ID == id {
			return s, nil
		}
	}
	return catalog.Snippet{}, catalog.ErrNotFound
}

func (f *fakeSnippets) Source(_ context.Context, id string) (string, error) {
	if _, err := f.Get(id); err != nil {
		return "", err
	}
	src, ok := f.sources[id]
	if !ok {
		return "", catalog.ErrNotText
	}
	return src, nil
}

func (f *fakeSnippets) Counts() map[catalog.Category]int {
	counts := make(map[catalog.Category]int)
	for _, s := range f.items {
		counts[s.Category]++
	}
	return counts
}

type fakeEvaluator map[string]engine.Result

func (f fakeEvaluator) Evaluate(_ context.Context, s catalog.Snippet) engine.Result {
	return f[s.ID]
}

func unsafeNode() *html.Node {
	div := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	script := &html.Node{Type: html.ElementNode, Data: "script", DataAtom: atom.Script}
	script.AppendChild(&html.Node{Type: html.TextNode, Data: "alert(1)"})
	p := &html.Node{Type: html.ElementNode, Data: "p", DataAtom: atom.P}
	p.AppendChild(&html.Node{Type: html.TextNode, Data: "safe"})
	div.AppendChild(script)
	div.AppendChild(p)
	return div
}

func setupRouter(t *testing.T, sanitize bool) (*gin.Engine, *monitoring.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	snippets := &fakeSnippets{
		items: []catalog.Snippet{
			{ID: "js/a.js", Category: catalog.Script, Language: "javascript", Title: "a"},
			{ID: "js/bin.js", Category: catalog.Script, Language: "javascript", Title: "bin"},
			{ID: "jsx/B.jsx", Category: catalog.Component, Language: "jsx", Title: "B <b>"},
		},
		sources: map[string]string{
			"js/a.js":   "export const a = 1;\n",
			"jsx/B.jsx": "export default () => <b/>;\n",
		},
	}
	eval := fakeEvaluator{
		"js/a.js":   engine.Diagnostic{Message: "boom"},
		"js/bin.js": engine.Empty{Hint: "nothing"},
		"jsx/B.jsx": engine.Rendered{Root: unsafeNode()},
	}
	metrics := monitoring.NewMetrics(nil)

	r := gin.New()
	r.UseRawPath = true
	r.SetHTMLTemplate(ViewTemplate())
	NewHandlers(snippets, eval, metrics, sanitize, nil).Register(r)
	return r, metrics
}

func do(r http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRoot(t *testing.T) {
	r, _ := setupRouter(t, true)

	w := do(r, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "snippetlab")
}

func TestHealth(t *testing.T) {
	r, metrics := setupRouter(t, true)
	metrics.IncStale()

	w := do(r, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status   string         `json:"status"`
		Snippets map[string]int `json:"snippets"`
		Stats    map[string]any `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, map[string]int{"script": 2, "component": 1}, body.Snippets)
	assert.EqualValues(t, 1, body.Stats["stale_cycles"])
}

func TestListSnippets(t *testing.T) {
	r, _ := setupRouter(t, true)

	tests := []struct {
		query string
		code  int
		count int
	}{
		{"", http.StatusOK, 3},
		{"?category=script", http.StatusOK, 2},
		{"?category=component", http.StatusOK, 1},
		{"?category=widget", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := do(r, http.MethodGet, "/snippets"+tt.query)
			require.Equal(t, tt.code, w.Code)
			if tt.code != http.StatusOK {
				return
			}
			var body struct {
				Snippets []catalog.Snippet `json:"snippets"`
				Count    int               `json:"count"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.count, body.Count)
			assert.Len(t, body.Snippets, tt.count)
		})
	}
}

func TestGetSource(t *testing.T) {
	r, _ := setupRouter(t, true)

	w := do(r, http.MethodGet, "/snippets/js%2Fa.js/source")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "export const a = 1;\n", w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))

	tag := w.Header().Get("ETag")
	require.NotEmpty(t, tag)
	req := httptest.NewRequest(http.MethodGet, "/snippets/js%2Fa.js/source", nil)
	req.Header.Set("If-None-Match", tag)
	cached := httptest.NewRecorder()
	r.ServeHTTP(cached, req)
	assert.Equal(t, http.StatusNotModified, cached.Code)
	assert.Empty(t, cached.Body.String())

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/snippets/js%2Fnone.js/source").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(r, http.MethodGet, "/snippets/js%2Fbin.js/source").Code)
}

func TestEvaluate(t *testing.T) {
	r, _ := setupRouter(t, true)

	w := do(r, http.MethodPost, "/snippets/js%2Fa.js/evaluate")
	require.Equal(t, http.StatusOK, w.Code)

	var resp EvaluateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "js/a.js", resp.Snippet)
	assert.Equal(t, "diagnostic", resp.Kind)
	assert.Equal(t, "boom", resp.Text)
	assert.Contains(t, resp.HTML, "boom")

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/snippets/nope/evaluate").Code)
}

func TestEvaluateSanitizes(t *testing.T) {
	r, _ := setupRouter(t, true)

	var resp EvaluateResponse
	w := do(r, http.MethodPost, "/snippets/jsx%2FB.jsx/evaluate")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotContains(t, resp.HTML, "<script>")
	assert.Contains(t, resp.HTML, "<p>safe</p>")

	r, _ = setupRouter(t, false)
	w = do(r, http.MethodPost, "/snippets/jsx%2FB.jsx/evaluate")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.HTML, "<script>alert(1)</script>")
}

func TestView(t *testing.T) {
	r, _ := setupRouter(t, true)

	w := do(r, http.MethodGet, "/snippets/jsx%2FB.jsx/view")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "<title>B &lt;b&gt;</title>")
	assert.Contains(t, body, `<main class="result rendered">`)
	assert.Contains(t, body, "<p>safe</p>")
	assert.NotContains(t, body, "alert(1)")

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/snippets/x/view").Code)
}

func TestFailInternal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	NewHandlers(&fakeSnippets{}, fakeEvaluator{}, nil, false, nil).fail(c, errors.New("disk on fire"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "disk on fire")
}
