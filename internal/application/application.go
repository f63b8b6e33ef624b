package application

import (
	"context"
	"strings"
	"time"

	"github.com/Zhima-Mochi/marketplace/app/internal/domain/outbox"
	"github.com/Zhima-Mochi/marketplace/app/internal/observability"
	"github.com/Zhima-Mochi/marketplace/app/internal/observability/logctx"
	"github.com/Zhima-Mochi/marketplace/app/internal/pkg/apperr"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	SpanPrefix     = "UC."
	publishPeer    = "outbox"
	publishTimeout = 300 * time.Millisecond
)

type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}

// Instrumentation holds the RED instruments shared by the use cases of one service.
type Instrumentation struct {
	tracer observability.Tracer
	log    observability.Logger

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

// NewInstrumentation binds tel to a service name. A nil tel records nothing.
func NewInstrumentation(tel observability.Observability, service string) *Instrumentation {
	if tel == nil {
		tel = observability.Nop()
	}
	m := tel.Metrics()
	return &Instrumentation{
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", service)),
		reqCounter:   m.Counter(observability.MUsecaseRequests),
		durHistogram: m.Histogram(observability.MUsecaseDuration),
		extCounter:   m.Counter(observability.MExternalRequests),
		extHistogram: m.Histogram(observability.MExternalRequestDuration),
	}
}

func (in *Instrumentation) Logger() observability.Logger { return in.log }

// Run tracks a single use case execution from Start to End.
type Run struct {
	in      *Instrumentation
	ctx     context.Context
	useCase string
	start   time.Time
	outcome string
	status  string
	fields  []observability.Field

	Span trace.Span
	Log  observability.Logger
}

// Start opens the UC.<spanName> span and a request logger tagged with useCase.
func (in *Instrumentation) Start(ctx context.Context, useCase, spanName string, attrs ...attribute.KeyValue) (context.Context, *Run) {
	attrs = append([]attribute.KeyValue{attribute.String("use_case", useCase)}, attrs...)
	ctx, span := in.tracer.Start(ctx, SpanPrefix+spanName, attrs...)
	ctx, logger := logctx.Enrich(ctx, in.log, observability.F("use_case", useCase))
	return ctx, &Run{
		in:      in,
		ctx:     ctx,
		useCase: useCase,
		start:   time.Now(),
		outcome: "success",
		status:  "OK",
		Span:    span,
		Log:     logger,
	}
}

// Fail marks the run as failed with a machine-readable status.
func (r *Run) Fail(status string) {
	r.outcome, r.status = "error", status
}

// Status overrides the status text of a successful run.
func (r *Run) Status(status string) {
	r.status = status
}

// Field adds fields to the closing use_case_done line.
func (r *Run) Field(fields ...observability.Field) {
	r.fields = append(r.fields, fields...)
}

// End closes the span, records RED metrics and writes use_case_done.
func (r *Run) End(err error) {
	if err != nil && r.outcome == "success" {
		r.outcome = "error"
		if r.status == "OK" {
			r.status = strings.ToUpper(string(apperr.KindOf(err)))
		}
	}
	lat := time.Since(r.start).Seconds()

	if r.Span != nil {
		if err != nil {
			r.Span.RecordError(err)
			r.Span.SetStatus(codes.Error, r.status)
		} else {
			r.Span.SetStatus(codes.Ok, r.status)
		}
		r.Span.End()
	}

	r.in.reqCounter.Add(1,
		observability.L("use_case", r.useCase),
		observability.Outcome(r.outcome),
	)
	r.in.durHistogram.Observe(lat,
		observability.L("use_case", r.useCase),
	)

	fields := []observability.Field{
		observability.F("outcome", r.outcome),
		observability.F("status", r.status),
		observability.F("latency_seconds", lat),
	}
	fields = append(fields, r.fields...)
	if sc := trace.SpanContextFromContext(r.ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	if err != nil {
		fields = append(fields, observability.Err(err))
	}
	r.Log.Info("use_case_done", fields...)
}

// External times a call to a collaborator outside the process and records it under peer/endpoint.
func (in *Instrumentation) External(ctx context.Context, peer, endpoint string, call func(ctx context.Context) error) error {
	start := time.Now()
	err := call(ctx)
	outcome := "success"
	switch {
	case err != nil && ctx.Err() != nil:
		outcome = "canceled"
	case err != nil:
		outcome = "error"
	}
	in.extCounter.Add(1,
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
		observability.Outcome(outcome),
	)
	in.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
	)
	return err
}

// Publish hands e to pub after the state change it describes is committed. Failures are
// returned for logging only; the committed change stands.
func (in *Instrumentation) Publish(ctx context.Context, pub outbox.Publisher, e outbox.Event) error {
	if pub == nil {
		return nil
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	err := in.External(pubCtx, publishPeer, e.EventName(), func(ctx context.Context) error {
		return pub.Publish(ctx, e)
	})
	if err == nil && pubCtx.Err() != nil {
		err = pubCtx.Err()
	}
	return err
}

// IDGenerator issues opaque unique identifiers.
type IDGenerator interface {
	NewID() string
}
