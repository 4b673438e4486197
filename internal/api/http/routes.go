package http

import "github.com/gin-gonic/gin"

// Register mounts the snippet routes on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	snippets := r.Group("/snippets")
	snippets.GET("", h.ListSnippets)
	snippets.GET("/:id/source", h.GetSource)
	snippets.POST("/:id/evaluate", h.Evaluate)
	snippets.GET("/:id/view", h.View)
}
