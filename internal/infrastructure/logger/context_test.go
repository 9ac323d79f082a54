package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// bufferedLogger returns a debug-level JSON logger writing into buf.
func bufferedLogger(buf *bytes.Buffer) *zap.Logger {
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(buf), zapcore.DebugLevel)
	return zap.New(core)
}

// noopSpanContext returns a context carrying a span whose SpanContext is
// invalid, which is what the noop tracer produces.
func noopSpanContext(t *testing.T) (context.Context, trace.Span) {
	t.Helper()
	tracer := noop.NewTracerProvider().Tracer("charging")
	return tracer.Start(context.Background(), "charging.resolve")
}

func TestWithContext_RoundTrip(t *testing.T) {
	log := zaptest.NewLogger(t)

	ctx := WithContext(context.Background(), log)
	assert.Equal(t, log, FromContext(ctx))
}

func TestFromContext_Fallbacks(t *testing.T) {
	// Missing logger yields a usable no-op
	assert.NotNil(t, FromContext(context.Background()))

	// A wrong-typed value under the key is ignored
	ctx := context.WithValue(context.Background(), LoggerKey, "not a logger")
	log := FromContext(ctx)
	assert.NotNil(t, log)
	assert.NotPanics(t, func() { log.Info("charge committed") })
}

func TestContextEnrichment(t *testing.T) {
	log := zaptest.NewLogger(t)
	ctx := context.Background()

	ctx, log = WithRequestID(ctx, log, "req-1")
	ctx, log = WithCustomerID(ctx, log, "org-acme")
	ctx, log = WithOrderID(ctx, log, "order-7")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "org-acme", GetCustomerID(ctx))
	assert.Equal(t, "order-7", GetOrderID(ctx))
	assert.NotNil(t, log)

	// The logger stored in the chained context is the enriched one
	assert.Equal(t, log, FromContext(ctx))
}

func TestContextEnrichment_EmptyContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetCustomerID(ctx))
	assert.Empty(t, GetOrderID(ctx))
}

func TestWithRequestID_Overrides(t *testing.T) {
	log := zaptest.NewLogger(t)

	ctx, _ := WithRequestID(context.Background(), log, "first-id")
	ctx, _ = WithRequestID(ctx, log, "second-id")

	assert.Equal(t, "second-id", GetRequestID(ctx))
}

func TestContextKeysAreDistinct(t *testing.T) {
	keys := []contextKey{LoggerKey, RequestIDKey, CustomerIDKey, OrderIDKey}
	seen := make(map[contextKey]bool)
	for _, k := range keys {
		assert.False(t, seen[k], "duplicate context key %q", k)
		seen[k] = true
	}
}

func TestTraceIDs_NoSpan(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetSpanID(ctx))
}

func TestTraceIDs_InvalidSpanContext(t *testing.T) {
	ctx, span := noopSpanContext(t)
	defer span.End()

	assert.False(t, trace.SpanFromContext(ctx).SpanContext().IsValid())
	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetSpanID(ctx))
}

func TestWithTraceContext_NoValidSpan(t *testing.T) {
	base := zap.NewNop()

	// Without a span the logger comes back untouched
	assert.Equal(t, base, WithTraceContext(context.Background(), base))

	// An invalid span context also leaves the logger untouched
	ctx, span := noopSpanContext(t)
	defer span.End()
	assert.Equal(t, base, WithTraceContext(ctx, base))
}

func TestL(t *testing.T) {
	cl := L(context.Background())
	assert.NotNil(t, cl)
	assert.NotNil(t, cl.ctx)
	assert.NotNil(t, cl.logger)

	log := zaptest.NewLogger(t)
	cl = L(WithContext(context.Background(), log))
	assert.Equal(t, log, cl.logger)
}

func TestWithLogger(t *testing.T) {
	log := zaptest.NewLogger(t)
	cl := WithLogger(context.Background(), log)

	assert.NotNil(t, cl)
	assert.Equal(t, log, cl.logger)
}

func TestContextLogger_With(t *testing.T) {
	var buf bytes.Buffer
	base := bufferedLogger(&buf)

	ctx := context.Background()
	child := WithLogger(ctx, base).With(zap.String("concept", "usage"))

	assert.Equal(t, ctx, child.ctx)
	assert.NotEqual(t, base, child.logger)

	child.Info("accounting recorded")
	assert.Contains(t, buf.String(), `"concept":"usage"`)
}

func TestContextLogger_LevelsAndAccessors(t *testing.T) {
	cl := WithLogger(context.Background(), zap.NewNop())

	assert.NotPanics(t, func() {
		cl.Debug("debug message")
		cl.Info("info message")
		cl.Warn("warn message")
		cl.Error("error message")
		cl.Zap().Info("via zap")
		cl.Sugar().Infof("charge %s", "committed")
		cl.With(zap.String("a", "1")).With(zap.String("b", "2")).Info("chained")
	})
}

func TestContextLogger_InjectsContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := bufferedLogger(&buf)

	ctx := context.Background()
	ctx = context.WithValue(ctx, RequestIDKey, "req-123")
	ctx = context.WithValue(ctx, CustomerIDKey, "org-acme")
	ctx = context.WithValue(ctx, OrderIDKey, "order-789")
	ctx = WithContext(ctx, base)

	L(ctx).Info("charge committed", zap.String("concept", "recurring"))

	output := buf.String()
	assert.Contains(t, output, `"request_id":"req-123"`)
	assert.Contains(t, output, `"customer_id":"org-acme"`)
	assert.Contains(t, output, `"order_id":"order-789"`)
	assert.Contains(t, output, `"concept":"recurring"`)
	assert.Contains(t, output, `"msg":"charge committed"`)
}

func TestContextLogger_OmitsEmptyContextFields(t *testing.T) {
	var buf bytes.Buffer

	WithLogger(context.Background(), bufferedLogger(&buf)).Info("resolving")

	output := buf.String()
	assert.Contains(t, output, `"msg":"resolving"`)
	assert.NotContains(t, output, "request_id")
	assert.NotContains(t, output, "customer_id")
	assert.NotContains(t, output, "order_id")
}

func TestContextLogger_NilLogger(t *testing.T) {
	cl := &ContextLogger{ctx: context.Background()}
	assert.NotPanics(t, func() { cl.Info("charge committed") })
}
