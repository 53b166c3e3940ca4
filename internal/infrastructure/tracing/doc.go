/*
Package tracing provides lightweight request tracing.

Each HTTP request gets a span. Callers may continue an existing trace by
sending X-Trace-ID and X-Span-ID; the response always carries the IDs of the
request's span. Handlers add detail with Annotate:

	tracer := tracing.New("membrane", logger)
	defer tracer.Close()
	router.Use(tracing.HTTPMiddleware(tracer))

	func (h *Handlers) StartRun(c *gin.Context) {
		tracing.Annotate(c.Request.Context(), "scenario", id)
	}

Finished spans are logged by a background collector: errors at error level,
everything else at debug level.
*/
package tracing
