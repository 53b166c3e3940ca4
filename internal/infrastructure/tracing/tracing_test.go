package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/membrane/internal/shared/id"
)

func newTracer() (*Tracer, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return New("test", zap.New(core)), logs
}

func TestSpansShareTrace(t *testing.T) {
	tracer, _ := newTracer()
	defer tracer.Close()

	root, ctx := tracer.StartSpan(context.Background(), "root")
	child, ctx := tracer.StartSpan(ctx, "child")

	assert.True(t, id.HasPrefix(root.TraceID.String(), id.TracePrefix))
	assert.Equal(t, root.TraceID, child.TraceID)
	assert.Equal(t, root.SpanID, child.ParentID)
	assert.Empty(t, root.ParentID)
	assert.Same(t, child, SpanFromContext(ctx))

	Annotate(ctx, "scenario", "revoke")
	assert.Equal(t, "revoke", child.Tags["scenario"])
	Annotate(context.Background(), "ignored", "x")
}

func TestRemoteParent(t *testing.T) {
	tracer, _ := newTracer()
	defer tracer.Close()

	ctx := WithRemoteParent(context.Background(), "trace_remote", "span_remote")
	span, _ := tracer.StartSpan(ctx, "op")
	assert.Equal(t, id.TraceID("trace_remote"), span.TraceID)
	assert.Equal(t, id.SpanID("span_remote"), span.ParentID)

	assert.Equal(t, context.Background(), WithRemoteParent(context.Background(), "", "span_remote"))
}

func TestCloseFlushesSpans(t *testing.T) {
	tracer, logs := newTracer()

	ok, _ := tracer.StartSpan(context.Background(), "ok")
	ok.Finish()
	tracer.Submit(ok)

	failed, _ := tracer.StartSpan(context.Background(), "failed")
	failed.SetError(errors.New("boom"))
	failed.Finish()
	tracer.Submit(failed)

	tracer.Close()
	tracer.Close()
	tracer.Submit(ok)

	assert.Equal(t, 1, logs.FilterMessage("span completed").Len())
	require.Equal(t, 1, logs.FilterMessage("span completed with error").Len())
	assert.Equal(t, "failed", logs.FilterMessage("span completed with error").All()[0].ContextMap()["operation"])
}

func TestHTTPMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tracer, logs := newTracer()

	r := gin.New()
	r.Use(HTTPMiddleware(tracer))
	r.GET("/runs/:id", func(c *gin.Context) {
		Annotate(c.Request.Context(), "run", c.Param("id"))
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/runs/run_1", nil)
	req.Header.Set(TraceHeader, "trace_caller")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "trace_caller", w.Header().Get(TraceHeader))
	assert.NotEmpty(t, w.Header().Get(SpanHeader))

	tracer.Close()
	entries := logs.FilterMessage("span completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "GET /runs/:id", fields["operation"])
	assert.Equal(t, "204", fields["tag.http.status"])
	assert.Equal(t, "run_1", fields["tag.run"])
}
