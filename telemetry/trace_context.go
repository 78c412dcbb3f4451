package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
)

// dataCarrier adapts an event data map to the OTel TextMapCarrier
// interface. Only string values participate; non-string values under
// propagation keys are ignored on read and overwritten on write.
type dataCarrier map[string]any

func (c dataCarrier) Get(key string) string {
	s, _ := c[key].(string)
	return s
}

func (c dataCarrier) Set(key, value string) {
	c[key] = value
}

func (c dataCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// Inject writes the trace context from ctx into data using the global
// propagator, so handlers doing their own I/O can continue the trace from
// the event payload. With the W3C propagator this adds "traceparent" (and
// "tracestate" when present) keys. A nil data map is a no-op.
func Inject(ctx context.Context, data map[string]any) {
	if data == nil {
		return
	}
	otel.GetTextMapPropagator().Inject(ctx, dataCarrier(data))
}

// Extract returns a context carrying the trace context found in data,
// using the global propagator. When data holds no (or invalid) trace keys
// the returned context is ctx unchanged.
func Extract(ctx context.Context, data map[string]any) context.Context {
	if data == nil {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, dataCarrier(data))
}
