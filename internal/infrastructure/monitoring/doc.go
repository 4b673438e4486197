/*
Package monitoring provides Prometheus metrics for the snippet server.

Collectors are registered with the registerer passed to NewMetrics, so a
server and its tests each own an isolated registry.

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)
	router.Use(monitoring.Middleware(metrics))

	timer := monitoring.NewTimer(metrics, "script")
	// ... evaluate ...
	timer.Stop("rendered")

Expose the registry with promhttp:

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
*/
package monitoring
