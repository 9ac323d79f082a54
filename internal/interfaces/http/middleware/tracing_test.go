package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })
	return sr
}

// tracedRouter builds a router serving GET /charging/orders with the
// tracing middleware plus any extra middlewares, responding with status.
func tracedRouter(status int, extra ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{Enabled: true, ServiceName: "charging-backend"}))
	for _, mw := range extra {
		router.Use(mw)
	}
	router.GET("/charging/orders", func(c *gin.Context) {
		c.JSON(status, gin.H{})
	})
	return router
}

func serveTraced(router *gin.Engine, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/charging/orders", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func findHTTPSpan(t *testing.T, sr *tracetest.SpanRecorder) sdktrace.ReadOnlySpan {
	t.Helper()

	for _, span := range sr.Ended() {
		if span.Name() == "GET /charging/orders" {
			return span
		}
	}
	require.Fail(t, "HTTP span not found")
	return nil
}

func spanRequestID(span sdktrace.ReadOnlySpan) (string, bool) {
	for _, attr := range span.Attributes() {
		if attr.Key == "request_id" {
			return attr.Value.AsString(), true
		}
	}
	return "", false
}

func TestTracingWithConfig_Disabled(t *testing.T) {
	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{Enabled: false, ServiceName: "charging-backend"}))
	router.GET("/charging/orders", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})

	w := serveTraced(router, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTracingWithConfig_Enabled(t *testing.T) {
	sr := setupTestTracer(t)

	w := serveTraced(tracedRouter(http.StatusOK), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	findHTTPSpan(t, sr)
}

func TestTracing_DefaultConfig(t *testing.T) {
	sr := setupTestTracer(t)

	router := gin.New()
	router.Use(Tracing())
	router.GET("/charging/orders", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})

	w := serveTraced(router, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	require.GreaterOrEqual(t, len(sr.Ended()), 1)
}

func TestTracingAttributeInjector_RequestIDFromHeader(t *testing.T) {
	sr := setupTestTracer(t)

	router := tracedRouter(http.StatusOK, TracingAttributeInjector())
	serveTraced(router, map[string]string{"X-Request-ID": "req-abc-123"})

	got, found := spanRequestID(findHTTPSpan(t, sr))
	require.True(t, found, "request_id attribute not found in span")
	assert.Equal(t, "req-abc-123", got)
}

func TestTracingAttributeInjector_RequestIDFromContext(t *testing.T) {
	sr := setupTestTracer(t)

	router := gin.New()
	// The generated id stored by RequestID must land on the span
	router.Use(RequestID())
	router.Use(TracingWithConfig(TracingConfig{Enabled: true, ServiceName: "charging-backend"}))
	router.Use(TracingAttributeInjector())
	router.GET("/charging/orders", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})

	serveTraced(router, nil)

	got, found := spanRequestID(findHTTPSpan(t, sr))
	require.True(t, found, "request_id attribute not found in span")
	assert.NotEmpty(t, got)
}

func TestTracingAttributeInjector_WithNoSpan(t *testing.T) {
	otel.SetTracerProvider(noop.NewTracerProvider())

	router := gin.New()
	router.Use(TracingAttributeInjector())
	router.GET("/charging/orders", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})

	w := serveTraced(router, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSpanErrorMarker(t *testing.T) {
	tests := []struct {
		name            string
		status          int
		wantDescription string
	}{
		{"not found", http.StatusNotFound, "Not Found"},
		{"conflict", http.StatusConflict, "Conflict"},
		{"bad request", http.StatusBadRequest, "Client Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr := setupTestTracer(t)

			router := tracedRouter(tt.status, SpanErrorMarker())
			w := serveTraced(router, nil)
			assert.Equal(t, tt.status, w.Code)

			span := findHTTPSpan(t, sr)
			assert.Equal(t, codes.Error, span.Status().Code)
			assert.Equal(t, tt.wantDescription, span.Status().Description)
		})
	}

	t.Run("server error", func(t *testing.T) {
		sr := setupTestTracer(t)

		router := tracedRouter(http.StatusInternalServerError, SpanErrorMarker())
		serveTraced(router, nil)

		// otelgin may already mark 5xx responses, so only the code is checked
		span := findHTTPSpan(t, sr)
		assert.Equal(t, codes.Error, span.Status().Code)
	})

	t.Run("success untouched", func(t *testing.T) {
		sr := setupTestTracer(t)

		router := tracedRouter(http.StatusOK, SpanErrorMarker())
		serveTraced(router, nil)

		span := findHTTPSpan(t, sr)
		assert.NotEqual(t, codes.Error, span.Status().Code)
	})

	t.Run("no recording span", func(t *testing.T) {
		otel.SetTracerProvider(noop.NewTracerProvider())

		router := gin.New()
		router.Use(SpanErrorMarker())
		router.GET("/charging/orders", func(c *gin.Context) {
			c.JSON(http.StatusInternalServerError, gin.H{})
		})

		w := serveTraced(router, nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestDefaultTracingConfig(t *testing.T) {
	cfg := DefaultTracingConfig()

	assert.Equal(t, "charging-backend", cfg.ServiceName)
	assert.True(t, cfg.Enabled)
}

func TestGetTraceRequestID(t *testing.T) {
	t.Run("context value wins over header", func(t *testing.T) {
		router := gin.New()
		router.Use(func(c *gin.Context) {
			c.Set("request_id", "context-request-id")
			c.Next()
		})
		router.GET("/charging/orders", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"request_id": getTraceRequestID(c)})
		})

		w := serveTraced(router, map[string]string{"X-Request-ID": "header-request-id"})
		assert.Contains(t, w.Body.String(), "context-request-id")
	})

	t.Run("falls back to header", func(t *testing.T) {
		router := gin.New()
		router.GET("/charging/orders", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"request_id": getTraceRequestID(c)})
		})

		w := serveTraced(router, map[string]string{"X-Request-ID": "header-request-id"})
		assert.Contains(t, w.Body.String(), "header-request-id")
	})

	t.Run("oversized header is truncated", func(t *testing.T) {
		router := gin.New()
		router.GET("/charging/orders", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"length": len(getTraceRequestID(c))})
		})

		w := serveTraced(router, map[string]string{"X-Request-ID": strings.Repeat("a", 300)})
		assert.Contains(t, w.Body.String(), `"length":128`)
	})
}
