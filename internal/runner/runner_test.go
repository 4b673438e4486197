package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/snippetlab/internal/catalog"
	"github.com/GriffinCanCode/snippetlab/internal/engine"
	"github.com/GriffinCanCode/snippetlab/internal/infrastructure/logging"
	"github.com/GriffinCanCode/snippetlab/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/snippetlab/internal/sandbox"
)

var snippets = map[string]string{
	"js/demo.js": `export function demo() { console.log("x"); return 42; }`,
	"js/uniq.js": "export function uniq(arr) { return Array.from(new Set(arr)); }\n" +
		"console.log(uniq([1, 1, 2, 3, 3]));\n",
	"js/quiet.js":      `export function add(a, b) { return a + b; }`,
	"js/greet.js":      `export const demo = () => "hello";`,
	"js/broken.js":     `throw new Error("at load");`,
	"ts/typed.ts":      `export function run(): string { const n: number = 2; return "n=" + n; }`,
	"jsx/Hello.jsx":    `export default function Hello() { return <h1>Hello</h1>; }`,
	"jsx/Imports.jsx":  `import fs from "fs"; export default function () { return <p>{fs}</p>; }`,
	"tsx/Greeting.tsx": "export function Preview({ name }: { name: string }) { return <p>Hi {name}</p>; }\n" +
		"export const previewProps = { name: \"Ada\" };\n",
	"tsx/Nothing.tsx": `export const value = 1;`,
}

func newRunner(t *testing.T, logger *logging.Logger, metrics *monitoring.Metrics) (*Runner, *catalog.Catalog) {
	t.Helper()
	root := t.TempDir()
	for name, content := range snippets {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	cat, err := catalog.Open(context.Background(), catalog.Config{Root: root}, nil)
	require.NoError(t, err)
	return New(cat, sandbox.DefaultConfig(), logger, metrics), cat
}

func evaluate(t *testing.T, r *Runner, id string) engine.Result {
	t.Helper()
	res, err := r.EvaluateID(context.Background(), id)
	require.NoError(t, err)
	return res
}

func TestScriptDemo(t *testing.T) {
	r, _ := newRunner(t, nil, nil)

	res := evaluate(t, r, "js/demo.js")
	require.Equal(t, engine.KindRendered, res.Kind())
	assert.Equal(t, "demo() → 42\nx", engine.Text(res))
}

func TestScriptDemoStringIsVerbatim(t *testing.T) {
	r, _ := newRunner(t, nil, nil)

	res := evaluate(t, r, "js/greet.js")
	require.Equal(t, engine.KindRendered, res.Kind())
	assert.Equal(t, "demo() → hello", engine.Text(res))
	assert.NotContains(t, engine.HTML(res), "&#34;")
}

func TestScriptTopLevelReplay(t *testing.T) {
	r, _ := newRunner(t, nil, nil)

	res := evaluate(t, r, "js/uniq.js")
	require.Equal(t, engine.KindRendered, res.Kind())
	assert.Equal(t, "Console output (top-level):\n[\n  1,\n  2,\n  3\n]", engine.Text(res))
}

func TestScriptIntrospection(t *testing.T) {
	r, _ := newRunner(t, nil, nil)

	res := evaluate(t, r, "js/quiet.js")
	require.Equal(t, engine.KindEmpty, res.Kind())
	assert.Contains(t, res.(engine.Empty).Hint, "Exported functions:\nadd(2 args)")
}

func TestScriptLoadFailure(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r, _ := newRunner(t, &logging.Logger{Logger: zap.New(core)}, nil)

	res := evaluate(t, r, "js/broken.js")
	assert.Equal(t, engine.Diagnostic{Message: "Failed to load script module."}, res)
	assert.NotZero(t, logs.FilterMessage("failed to load script module").Len())
}

func TestTypeScriptScript(t *testing.T) {
	r, _ := newRunner(t, nil, nil)

	res := evaluate(t, r, "ts/typed.ts")
	assert.Equal(t, "run() → n=2", engine.Text(res))
}

func TestComponents(t *testing.T) {
	r, _ := newRunner(t, nil, nil)

	res := evaluate(t, r, "jsx/Hello.jsx")
	require.Equal(t, engine.KindRendered, res.Kind())
	doc := goquery.NewDocumentFromNode(res.Node())
	assert.Equal(t, "Hello", doc.Find(".component-result .snippet-root h1").Text())

	res = evaluate(t, r, "tsx/Greeting.tsx")
	require.Equal(t, engine.KindRendered, res.Kind())
	assert.Equal(t, "Hi Ada", engine.Text(res))

	assert.Equal(t, engine.Diagnostic{Message: "Failed to load component."}, evaluate(t, r, "jsx/Imports.jsx"))
	assert.Equal(t, engine.KindDiagnostic, evaluate(t, r, "tsx/Nothing.tsx").Kind())
}

func TestUnknownSnippet(t *testing.T) {
	r, _ := newRunner(t, nil, nil)

	_, err := r.EvaluateID(context.Background(), "js/none.js")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestCancelledEvaluation(t *testing.T) {
	metrics := monitoring.NewMetrics(nil)
	r, cat := newRunner(t, nil, metrics)
	s, err := cat.Get("js/demo.js")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := r.Evaluate(ctx, s)

	assert.Equal(t, engine.KindDiagnostic, res.Kind())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Evaluations.WithLabelValues("script", "cancelled")))
}

func TestMetricsRecorded(t *testing.T) {
	metrics := monitoring.NewMetrics(nil)
	r, _ := newRunner(t, nil, metrics)

	evaluate(t, r, "js/demo.js")
	evaluate(t, r, "jsx/Hello.jsx")
	evaluate(t, r, "js/quiet.js")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Evaluations.WithLabelValues("script", "rendered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Evaluations.WithLabelValues("script", "empty")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Evaluations.WithLabelValues("component", "rendered")))
}

func TestConsoleMirroredToSnippetLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r, _ := newRunner(t, &logging.Logger{Logger: zap.New(core)}, nil)

	evaluate(t, r, "js/demo.js")

	entries := logs.FilterMessage("console").FilterField(zap.String("snippet", "js/demo.js")).All()
	require.NotEmpty(t, entries)
	assert.Equal(t, "x", entries[0].ContextMap()["line"])
}

func TestConcurrentEvaluations(t *testing.T) {
	r, _ := newRunner(t, nil, nil)

	done := make(chan string, 8)
	for i := 0; i < 8; i++ {
		go func() {
			res, err := r.EvaluateID(context.Background(), "js/demo.js")
			if err != nil {
				done <- err.Error()
				return
			}
			done <- engine.Text(res)
		}()
	}
	for i := 0; i < 8; i++ {
		assert.Equal(t, "demo() → 42\nx", <-done)
	}
}

type stallingEvaluator struct{}

func (stallingEvaluator) Evaluate(ctx context.Context, _ catalog.Snippet) engine.Result {
	<-ctx.Done()
	return engine.Diagnostic{Message: "Evaluation cancelled."}
}

func TestBounded(t *testing.T) {
	var unbounded Evaluator = stallingEvaluator{}
	assert.Equal(t, unbounded, Bounded(unbounded, 0))

	res := Bounded(stallingEvaluator{}, 10*time.Millisecond).Evaluate(context.Background(), catalog.Snippet{ID: "x"})
	assert.Equal(t, TimedOut, res)
}

func TestBoundedRealLoop(t *testing.T) {
	r, cat := newRunner(t, nil, nil)
	s, err := cat.Get("js/demo.js")
	require.NoError(t, err)

	res := Bounded(r, 5*time.Second).Evaluate(context.Background(), s)
	assert.Equal(t, "demo() → 42\nx", engine.Text(res))
}
