package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/stretchr/testify/assert"
)

func TestTraceFunctionOpensSegment(t *testing.T) {
	tracer := NewTracer("recipegraph-test")
	boom := errors.New("boom")

	var sawSegment bool
	err := tracer.TraceFunction(context.Background(), "ingest", func(ctx context.Context) error {
		sawSegment = xray.GetSegment(ctx) != nil
		tracer.AddAnnotation(ctx, "source", "file")
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.True(t, sawSegment)
}

func TestTracerMiddlewarePassesThrough(t *testing.T) {
	tracer := NewTracer("recipegraph-test")
	h := tracer.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
