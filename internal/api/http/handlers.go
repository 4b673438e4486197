package http

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/snippetlab/internal/catalog"
	"github.com/GriffinCanCode/snippetlab/internal/engine"
	"github.com/GriffinCanCode/snippetlab/internal/infrastructure/logging"
	"github.com/GriffinCanCode/snippetlab/internal/infrastructure/monitoring"
)

// Snippets is the catalog surface the handlers read.
type Snippets interface {
	List() []catalog.Snippet
	ByCategory(category catalog.Category) []catalog.Snippet
	Get(id string) (catalog.Snippet, error)
	Source(ctx context.Context, id string) (string, error)
	Counts() map[catalog.Category]int
}

// Evaluator produces the result for one snippet.
type Evaluator interface {
	Evaluate(ctx context.Context, s catalog.Snippet) engine.Result
}

// Handlers contains all HTTP handlers
type Handlers struct {
	snippets Snippets
	eval     Evaluator
	metrics  *monitoring.Metrics
	policy   *bluemonday.Policy
	logger   *logging.Logger
}

// NewHandlers creates a new handler set. Rendered output is sanitized when
// sanitize is set.
func NewHandlers(snippets Snippets, eval Evaluator, metrics *monitoring.Metrics, sanitize bool, logger *logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.NewNop()
	}
	h := &Handlers{
		snippets: snippets,
		eval:     eval,
		metrics:  metrics,
		logger:   logger,
	}
	if sanitize {
		h.policy = Policy()
	}
	return h
}

// Policy returns the sanitizer applied to rendered snippet output.
func Policy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowStyling()
	p.AllowDataAttributes()
	p.AllowAttrs("hidden").Globally()
	return p
}

// EvaluateResponse is the JSON form of a presentation result.
type EvaluateResponse struct {
	Snippet string `json:"snippet"`
	Kind    string `json:"kind"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

// Root describes the service
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "snippetlab",
		"endpoints": []string{
			"GET /health",
			"GET /snippets",
			"GET /snippets/:id/source",
			"POST /snippets/:id/evaluate",
			"GET /snippets/:id/view",
			"GET /stream",
			"GET /metrics",
		},
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	body := gin.H{
		"status":   "healthy",
		"snippets": h.snippets.Counts(),
	}
	if h.metrics != nil {
		snap := h.metrics.Snapshot()
		body["stats"] = gin.H{
			"requests":           snap.TotalRequests,
			"errors":             snap.TotalErrors,
			"evaluations":        snap.Evaluations,
			"stale_cycles":       snap.StaleCycles,
			"active_streams":     snap.ActiveStreams,
			"mean_evaluation_ms": snap.MeanEvaluationMS,
			"uptime_seconds":     snap.UptimeSeconds,
		}
	}
	c.JSON(http.StatusOK, body)
}

// ListSnippets lists the catalog, optionally filtered by ?category=
func (h *Handlers) ListSnippets(c *gin.Context) {
	var list []catalog.Snippet
	switch category := catalog.Category(c.Query("category")); category {
	case "":
		list = h.snippets.List()
	case catalog.Script, catalog.Component:
		list = h.snippets.ByCategory(category)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category " + string(category)})
		return
	}
	if list == nil {
		list = []catalog.Snippet{}
	}
	c.JSON(http.StatusOK, gin.H{"snippets": list, "count": len(list)})
}

// GetSource returns the exact source text of a snippet
func (h *Handlers) GetSource(c *gin.Context) {
	src, err := h.snippets.Source(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	tag := etag(src)
	c.Header("ETag", tag)
	if c.GetHeader("If-None-Match") == tag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(src))
}

// etag is a strong validator over the decoded source text.
func etag(src string) string {
	sum := sha256.Sum256([]byte(src))
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

// Evaluate runs a snippet and returns its result as JSON
func (h *Handlers) Evaluate(c *gin.Context) {
	s, err := h.snippets.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	res := h.eval.Evaluate(c.Request.Context(), s)
	c.JSON(http.StatusOK, EvaluateResponse{
		Snippet: s.ID,
		Kind:    string(res.Kind()),
		HTML:    h.render(res),
		Text:    engine.Text(res),
	})
}

// View runs a snippet and returns a standalone HTML page
func (h *Handlers) View(c *gin.Context) {
	s, err := h.snippets.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	res := h.eval.Evaluate(c.Request.Context(), s)
	c.HTML(http.StatusOK, viewTemplateName, viewData{
		Snippet: s,
		Kind:    string(res.Kind()),
		Body:    template.HTML(h.render(res)),
	})
}

// render serializes a result, sanitizing it when a policy is set.
func (h *Handlers) render(res engine.Result) string {
	out := engine.HTML(res)
	if h.policy != nil {
		out = h.policy.Sanitize(out)
	}
	return out
}

func (h *Handlers) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, catalog.ErrNotText):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
