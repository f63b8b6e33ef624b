// Package oteltrace adapts OpenTelemetry to the observability.Tracer port.
package oteltrace

import (
	"context"

	"github.com/Zhima-Mochi/marketplace/app/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const componentKey = attribute.Key("marketplace.component")

type tracer struct {
	t         trace.Tracer
	component attribute.KeyValue
}

// New returns a tracer from the globally installed provider. Every span it starts is internal
// and tagged with component.
func New(component string) observability.Tracer {
	return NewWithProvider(otel.GetTracerProvider(), component)
}

func NewWithProvider(tp trace.TracerProvider, component string) observability.Tracer {
	if component == "" {
		component = "marketplace"
	}
	return &tracer{
		t:         tp.Tracer("github.com/Zhima-Mochi/marketplace/app"),
		component: componentKey.String(component),
	}
}

func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := make([]attribute.KeyValue, 0, len(attrs)+1)
	all = append(all, t.component)
	all = append(all, attrs...)
	return t.t.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(all...),
	)
}
