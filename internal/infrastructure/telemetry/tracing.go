package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName identifies spans started through this package.
const TracerName = "charging-backend"

// SpanOption configures how a span is started.
type SpanOption func(*spanOptions)

type spanOptions struct {
	attributes []attribute.KeyValue
	kind       trace.SpanKind
}

func (o *spanOptions) startOptions() []trace.SpanStartOption {
	opts := []trace.SpanStartOption{trace.WithSpanKind(o.kind)}
	if len(o.attributes) > 0 {
		opts = append(opts, trace.WithAttributes(o.attributes...))
	}
	return opts
}

// WithAttribute attaches an attribute at span start.
func WithAttribute(key string, value interface{}) SpanOption {
	return func(opts *spanOptions) {
		opts.attributes = append(opts.attributes, toAttribute(key, value))
	}
}

// WithSpanKind overrides the default internal span kind.
func WithSpanKind(kind trace.SpanKind) SpanOption {
	return func(opts *spanOptions) {
		opts.kind = kind
	}
}

// StartSpan starts a span on the global tracer. The caller ends it.
//
//	ctx, span := telemetry.StartSpan(ctx, "charging.resolve")
//	defer span.End()
func StartSpan(ctx context.Context, spanName string, opts ...SpanOption) (context.Context, trace.Span) {
	options := &spanOptions{kind: trace.SpanKindInternal}
	for _, opt := range opts {
		opt(options)
	}
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, spanName, options.startOptions()...)
}

// StartServiceSpan starts a span named {service}.{method}, the convention
// used for application service entry points.
func StartServiceSpan(ctx context.Context, service, method string, opts ...SpanOption) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("%s.%s", service, method), opts...)
}

// kvToAttributes converts alternating key-value arguments. Pairs with a
// non-string key and a trailing key without a value are dropped.
func kvToAttributes(keyValues []interface{}) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(keyValues)/2)
	for i := 0; i+1 < len(keyValues); i += 2 {
		key, ok := keyValues[i].(string)
		if !ok {
			continue
		}
		attrs = append(attrs, toAttribute(key, keyValues[i+1]))
	}
	return attrs
}

// SetAttributes attaches alternating key-value pairs to the span.
//
//	telemetry.SetAttributes(span, "order_id", orderID, "concept", concept)
func SetAttributes(span trace.Span, keyValues ...interface{}) {
	if span == nil {
		return
	}
	span.SetAttributes(kvToAttributes(keyValues)...)
}

// SetAttribute attaches one attribute to the span.
func SetAttribute(span trace.Span, key string, value interface{}) {
	if span == nil {
		return
	}
	span.SetAttributes(toAttribute(key, value))
}

// RecordError records err on the span and flips its status to error.
// Nil span and nil err are both no-ops.
func RecordError(span trace.Span, err error, opts ...trace.EventOption) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err, opts...)
	span.SetStatus(codes.Error, err.Error())
}

// SetOK marks the span successful explicitly.
func SetOK(span trace.Span) {
	if span == nil {
		return
	}
	span.SetStatus(codes.Ok, "")
}

// AddEvent records a timestamped event with alternating key-value
// attributes, such as a committed charge or a released charge lock.
func AddEvent(span trace.Span, name string, keyValues ...interface{}) {
	if span == nil {
		return
	}
	span.AddEvent(name, trace.WithAttributes(kvToAttributes(keyValues)...))
}

// SpanFromContext returns the active span in ctx.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// ContextWithSpan stores span in a new context.
func ContextWithSpan(ctx context.Context, span trace.Span) context.Context {
	return trace.ContextWithSpan(ctx, span)
}

// activeSpanContext pulls the span context out of ctx. A context without
// a span yields the zero value, which reports invalid ids.
func activeSpanContext(ctx context.Context) trace.SpanContext {
	if span := trace.SpanFromContext(ctx); span != nil {
		return span.SpanContext()
	}
	return trace.SpanContext{}
}

// GetTraceID returns the active trace id in hex, or "".
func GetTraceID(ctx context.Context) string {
	if id := activeSpanContext(ctx).TraceID(); id.IsValid() {
		return id.String()
	}
	return ""
}

// GetSpanID returns the active span id in hex, or "".
func GetSpanID(ctx context.Context) string {
	if id := activeSpanContext(ctx).SpanID(); id.IsValid() {
		return id.String()
	}
	return ""
}

// toAttribute maps Go values onto the typed attribute constructors.
// Anything without a direct mapping is stringified.
func toAttribute(key string, value interface{}) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case []bool:
		return attribute.BoolSlice(key, v)
	case []int:
		return attribute.IntSlice(key, v)
	case []int64:
		return attribute.Int64Slice(key, v)
	case []float64:
		return attribute.Float64Slice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	}
	return attribute.String(key, fmt.Sprintf("%v", value))
}

// String keys for span attributes. The attribute.Key values in
// metrics.go cover metric labels.
const (
	SpanAttrOrderID    = "order_id"
	SpanAttrOrderState = "order_state"
	SpanAttrItemID     = "item_id"

	SpanAttrCustomerID   = "customer_id"
	SpanAttrCustomerName = "customer_name"

	SpanAttrConcept   = "concept"
	SpanAttrAmount    = "amount"
	SpanAttrCurrency  = "currency"
	SpanAttrProductID = "product_id"

	SpanAttrPaymentGateway = "payment_gateway"
	SpanAttrCheckoutURL    = "checkout_url"
)
