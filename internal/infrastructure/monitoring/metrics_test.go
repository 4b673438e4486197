package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsIsolatedRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(nil)
	})
}

func TestRecordEvaluation(t *testing.T) {
	m := NewMetrics(nil)

	timer := NewTimer(m, "script")
	timer.Stop("rendered")
	m.RecordEvaluation("component", "diagnostic", 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("script", "rendered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("component", "diagnostic")))

	snap := m.Snapshot()
	assert.EqualValues(t, 2, snap.Evaluations)
	assert.Greater(t, snap.MeanEvaluationMS, 0.0)
}

func TestStaleAndStreams(t *testing.T) {
	m := NewMetrics(nil)

	m.IncCycles()
	m.IncStale()
	m.IncWSConnections()
	m.IncWSConnections()
	m.DecWSConnections()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CyclesStale))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WSConnections))
	assert.EqualValues(t, 1, m.Snapshot().StaleCycles)
	assert.EqualValues(t, 1, m.Snapshot().ActiveStreams)
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics(nil)

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/snippets/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, path := range []string{"/snippets/a", "/snippets/b", "/missing"} {
		w := httptest.NewRecorder()
		req, err := http.NewRequest(http.MethodGet, path, nil)
		require.NoError(t, err)
		router.ServeHTTP(w, req)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/snippets/:id", "204")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))

	snap := m.Snapshot()
	assert.EqualValues(t, 3, snap.TotalRequests)
	assert.EqualValues(t, 1, snap.TotalErrors)
}
