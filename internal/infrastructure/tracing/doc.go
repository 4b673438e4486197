/*
Package tracing correlates a request with the evaluations it triggers.

Every HTTP request gets a root span and an X-Trace-ID response header. The
runner opens a child span per evaluation, and the trace id is attached to the
snippet's console log lines so one request can be followed through the log.

	tracer := tracing.New(logger)
	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "evaluate")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

Finished spans are written to the "trace" logger at debug level, or at warn
level when they carry an error.
*/
package tracing
