package application

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	infraobs "github.com/Zhima-Mochi/marketplace/app/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/marketplace/app/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/marketplace/app/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/marketplace/app/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/marketplace/app/internal/observability"
	"github.com/Zhima-Mochi/marketplace/app/internal/pkg/apperr"
)

type harness struct {
	in    *Instrumentation
	spans *tracetest.SpanRecorder
	logs  *observer.ObservedLogs
	reg   *prometheus.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	core, logs := observer.New(zapcore.DebugLevel)
	reg := prometheus.NewRegistry()
	tel := infraobs.NewMarketplace(
		oteltrace.NewWithProvider(tp, "test"),
		zaplogger.Wrap(zap.New(core)),
		prometrics.NewWithRegisterer(reg, "", ""),
	)
	return &harness{in: NewInstrumentation(tel, "order-service"), spans: spans, logs: logs, reg: reg}
}

func TestRunSuccess(t *testing.T) {
	h := newHarness(t)

	_, run := h.in.Start(context.Background(), "order.create", "CreateOrder")
	run.Field(observability.OrderID("o-1"))
	run.End(nil)

	ended := h.spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "UC.CreateOrder", ended[0].Name())
	assert.Equal(t, codes.Ok, ended[0].Status().Code)

	done := h.logs.FilterMessage("use_case_done").AllUntimed()
	require.Len(t, done, 1)
	fields := done[0].ContextMap()
	assert.Equal(t, "success", fields["outcome"])
	assert.Equal(t, "OK", fields["status"])
	assert.Equal(t, "o-1", fields["order_id"])
	assert.Equal(t, "order.create", fields["use_case"])
	assert.Equal(t, "order-service", fields["service"])
	assert.NotEmpty(t, fields["trace_id"])

	n, err := testutil.GatherAndCount(h.reg, string(observability.MUsecaseRequests))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunFailureUsesKindAsStatus(t *testing.T) {
	h := newHarness(t)

	_, run := h.in.Start(context.Background(), "payment.charge", "Charge")
	run.End(apperr.Conflict("already paid"))

	ended := h.spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "CONFLICT", ended[0].Status().Description)

	fields := h.logs.FilterMessage("use_case_done").AllUntimed()[0].ContextMap()
	assert.Equal(t, "error", fields["outcome"])
	assert.Equal(t, "CONFLICT", fields["status"])
	assert.Equal(t, "conflict", fields["error_kind"])
}

func TestRunExplicitFailStatusWins(t *testing.T) {
	h := newHarness(t)

	_, run := h.in.Start(context.Background(), "order.cancel", "CancelOrder")
	run.Fail("RESTORE_FAILED")
	run.End(errors.New("boom"))

	fields := h.logs.FilterMessage("use_case_done").AllUntimed()[0].ContextMap()
	assert.Equal(t, "RESTORE_FAILED", fields["status"])
	assert.Equal(t, "boom", fields["error"])
	assert.NotContains(t, fields, "error_kind")
}

func TestExternalOutcome(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.in.External(ctx, "payment-gateway", "sale", func(ctx context.Context) error { return ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)
	require.NoError(t, h.in.External(context.Background(), "payment-gateway", "sale", func(context.Context) error { return nil }))

	n, err := testutil.GatherAndCount(h.reg, string(observability.MExternalRequests))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNilTelemetry(t *testing.T) {
	in := NewInstrumentation(nil, "svc")
	assert.NotPanics(t, func() {
		_, run := in.Start(context.Background(), "x", "X")
		run.End(errors.New("boom"))
	})
}
