// Package httppresentation exposes the marketplace use cases over HTTP.
package httppresentation

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	appInventory "github.com/Zhima-Mochi/marketplace/app/internal/application/inventory"
	appOrder "github.com/Zhima-Mochi/marketplace/app/internal/application/order"
	appPayment "github.com/Zhima-Mochi/marketplace/app/internal/application/payment"
	appReview "github.com/Zhima-Mochi/marketplace/app/internal/application/review"
	"github.com/Zhima-Mochi/marketplace/app/internal/application/storeview"
	"github.com/Zhima-Mochi/marketplace/app/internal/observability"
	"github.com/Zhima-Mochi/marketplace/app/internal/observability/logctx"
)

const (
	componentHTTPHandler = "http_server"
	tracerName           = "marketplace.http"
	headerRequestID      = "X-Request-ID"
)

type Services struct {
	Orders   *appOrder.Service
	Payments *appPayment.Service
	Catalog  *appInventory.Catalog
	Reviews  *appReview.Service
	Store    *storeview.Projector
	// LowStockThreshold is used by /store/low-stock when the query omits one.
	LowStockThreshold int
	// Metrics, when set, is mounted at /metrics.
	Metrics http.Handler
}

type Handler struct {
	svc Services
	log observability.Logger
	tel observability.Observability
}

func NewHandler(svc Services, logger observability.Logger, tel observability.Observability) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = tel.Logger()
	}
	return &Handler{
		svc: svc,
		log: baseLogger.With(observability.F("component", componentHTTPHandler)),
		tel: tel,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP, middleware.Recoverer)

	// trace, request logger, access log, metrics, then the handler
	h.handle(r, http.MethodGet, "/health", h.handleHealth)

	h.handle(r, http.MethodPost, "/orders", h.handleCreateOrder)
	h.handle(r, http.MethodGet, "/orders/{id}", h.handleGetOrder)
	h.handle(r, http.MethodPatch, "/orders/{id}/status", h.handleUpdateOrderStatus)
	h.handle(r, http.MethodPost, "/orders/{id}/cancel", h.handleCancelOrder)

	h.handle(r, http.MethodGet, "/payments/client-token", h.handleClientToken)
	h.handle(r, http.MethodPost, "/payments/charge", h.handleCharge)
	h.handle(r, http.MethodGet, "/payments/history", h.handlePaymentHistory)

	h.handle(r, http.MethodPost, "/products", h.handleAddProduct)
	h.handle(r, http.MethodPatch, "/products/{id}", h.handleUpdateProduct)

	h.handle(r, http.MethodPost, "/reviews", h.handleCreateReview)

	h.handle(r, http.MethodGet, "/store/orders", h.handleStoreOrders)
	h.handle(r, http.MethodGet, "/store/payments", h.handleStorePayments)
	h.handle(r, http.MethodGet, "/store/reviews", h.handleStoreReviews)
	h.handle(r, http.MethodGet, "/store/stats", h.handleStoreStats)
	h.handle(r, http.MethodGet, "/store/low-stock", h.handleLowStock)

	if h.svc.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.svc.Metrics)
	}
	return r
}

func (h *Handler) handle(r chi.Router, method, route string, handler http.HandlerFunc) {
	wrapped := h.withTrace(
		ObservabilityMiddleware(
			h.log,
			func(r *http.Request) string { return r.Header.Get(headerRequestID) },
			actorLabel,
		)(
			h.withAccessLog(
				h.withHTTPMetrics(route, handler),
			),
		),
	)
	r.Method(method, route, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		wrapped.ServeHTTP(w, req.WithContext(contextWithRoute(req.Context(), route)))
	}))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// withAccessLog writes one http_access line per request through the request logger.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace starts the server span, continuing a W3C traceparent when the caller sent one.
// 5xx responses mark the span as failed; the actor scope is recorded for filtering.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracer := otel.Tracer(tracerName)
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		template := routeFromContext(parentCtx)
		if template == "unknown" {
			template = r.URL.Path
		}

		ctxWithSpan, span := tracer.Start(parentCtx,
			r.Method+" "+template,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", template),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
				attribute.String("marketplace.actor_scope", scopeAttr(r)),
			),
		)
		defer span.End()

		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(lrw, r.WithContext(ctxWithSpan))
		span.SetAttributes(attribute.Int("http.status_code", lrw.status))
		if lrw.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(lrw.status))
		}
	})
}

// withHTTPMetrics counts and times requests to one route. Instruments are bound to the route
// once, at registration.
func (h *Handler) withHTTPMetrics(route string, next http.Handler) http.Handler {
	requests := h.tel.Metrics().Counter(observability.MHTTPRequests)
	durations := h.tel.Metrics().Histogram(observability.MHTTPRequestDuration)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		labels := []observability.Label{
			observability.L("method", r.Method),
			observability.L("route", route),
			observability.L("status", strconv.Itoa(lrw.status)),
		}
		requests.Add(1, labels...)
		durations.Observe(time.Since(start).Seconds(), labels...)
	})
}

// scopeAttr names the caller's scope without identifying them.
func scopeAttr(r *http.Request) string {
	act, err := actorFromRequest(r)
	if err != nil {
		return "none"
	}
	return string(act.Scope)
}

type routeKey struct{}

// contextWithRoute records the chi route pattern, not the raw path, for span names and logs.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
