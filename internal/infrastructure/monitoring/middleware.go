package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// Route templates keep snippet ids out of label values
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		respSize := int64(c.Writer.Size())
		if respSize < 0 {
			respSize = 0
		}

		metrics.RecordHTTPRequest(c.Request.Method, path, status, time.Since(start), respSize)
	}
}

// Timer measures an evaluation
type Timer struct {
	start    time.Time
	metrics  *Metrics
	category string
}

// NewTimer starts timing an evaluation of a snippet in category
func NewTimer(metrics *Metrics, category string) *Timer {
	return &Timer{
		start:    time.Now(),
		metrics:  metrics,
		category: category,
	}
}

// Stop records the evaluation with the kind of result it produced
func (t *Timer) Stop(kind string) time.Duration {
	d := time.Since(t.start)
	if t.metrics != nil {
		t.metrics.RecordEvaluation(t.category, kind, d)
	}
	return d
}
