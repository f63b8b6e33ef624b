package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/marketplace/app/internal/application"
	"github.com/Zhima-Mochi/marketplace/app/internal/application/storeview"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/actor"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/audit"
	domorder "github.com/Zhima-Mochi/marketplace/app/internal/domain/order"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/marketplace/app/internal/domain/payment"
	"github.com/Zhima-Mochi/marketplace/app/internal/observability"
	"github.com/Zhima-Mochi/marketplace/app/internal/pkg/apperr"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	paymentService        = "payment-service"
	useCaseClientToken    = "payment.client_token"
	useCaseCharge         = "payment.charge"
	useCaseHistory        = "payment.history"
	useCaseStorePayments  = "payment.store_payments"
	gatewayPeer           = "payment-gateway"
	gatewayEndpointSale   = "sale"
	gatewayEndpointToken  = "client_token"
	gatewayDeclinedReason = "payment declined"
)

var (
	ErrRepository = errors.New("payment: repository failure")
	errDeclined   = errors.New("payment: declined by gateway")
)

type ChargeInput struct {
	OrderID string
	Nonce   string
	Method  string
}

type ChargeResult struct {
	Payment *dompay.Payment
	Order   *domorder.Order
}

// Service reconciles gateway settlements with orders.
type Service struct {
	orders    domorder.Repository
	payments  dompay.Repository
	gateway   Gateway
	guard     ChargeGuard
	projector *storeview.Projector
	ids       application.IDGenerator
	publisher outbox.Publisher
	trail     audit.Trail
	in        *application.Instrumentation
	charges   observability.Counter
}

// NewService wires payment reconciliation. publisher and trail may be nil.
func NewService(
	orders domorder.Repository,
	payments dompay.Repository,
	gateway Gateway,
	guard ChargeGuard,
	projector *storeview.Projector,
	ids application.IDGenerator,
	publisher outbox.Publisher,
	trail audit.Trail,
	tel observability.Observability,
) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Service{
		orders:    orders,
		payments:  payments,
		gateway:   gateway,
		guard:     guard,
		projector: projector,
		ids:       ids,
		publisher: publisher,
		trail:     trail,
		in:        application.NewInstrumentation(tel, paymentService),
		charges:   tel.Metrics().Counter(observability.MPaymentCharges),
	}
}

func (s *Service) ClientToken(ctx context.Context) (_ string, err error) {
	ctx, run := s.in.Start(ctx, useCaseClientToken, "ClientToken")
	defer func() { run.End(err) }()

	var token string
	err = s.in.External(ctx, gatewayPeer, gatewayEndpointToken, func(ctx context.Context) error {
		var gwErr error
		token, gwErr = s.gateway.GenerateClientToken(ctx)
		return gwErr
	})
	if err != nil {
		run.Fail("GATEWAY_TOKEN_FAILED")
		return "", apperr.Wrap(apperr.KindGateway, "could not create client token", err)
	}
	return token, nil
}

// Charge settles an order's whole total through the gateway.
//
// A per-order charge marker is taken before the gateway is called, so two concurrent charges of
// one order cannot both reach the provider. A declined charge releases the marker and leaves no
// trace besides the log line; the order is untouched. A settled charge keeps the marker, records
// the Payment and marks the order Paid, moving it to Processing if it was Pending.
func (s *Service) Charge(ctx context.Context, cmd ChargeInput) (_ *ChargeResult, err error) {
	ctx, run := s.in.Start(ctx, useCaseCharge, "Charge",
		attribute.String("order.id", cmd.OrderID),
	)
	defer func() { run.End(err) }()
	run.Field(observability.OrderID(cmd.OrderID))

	if cmd.OrderID == "" {
		run.Fail("ORDER_ID_REQUIRED")
		return nil, apperr.Validation("order id is required")
	}
	if strings.TrimSpace(cmd.Nonce) == "" {
		run.Fail("NONCE_REQUIRED")
		return nil, apperr.Validation("payment nonce is required")
	}

	o, err := s.orders.Get(ctx, cmd.OrderID)
	if err != nil {
		run.Fail("ORDER_LOOKUP_FAILED")
		return nil, wrapRepositoryError(err)
	}
	if o.Reserving {
		run.Fail("ORDER_RESERVING")
		return nil, apperr.Wrap(apperr.KindConflict, "order is still being created", domorder.ErrReserving)
	}
	if o.IsPaid() {
		run.Fail("ORDER_ALREADY_PAID")
		return nil, apperr.Wrap(apperr.KindConflict, "order already paid", domorder.ErrAlreadyPaid)
	}
	if o.Status == domorder.StatusCanceled {
		run.Fail("ORDER_CANCELED")
		return nil, apperr.Validation("canceled orders cannot be charged")
	}
	if o.TotalAmount <= 0 {
		run.Fail("AMOUNT_INVALID")
		return nil, apperr.Validation("order total must be greater than zero")
	}
	run.Field(observability.F("amount", o.TotalAmount), observability.F("order_number", o.Number))

	acquired, err := s.guard.Acquire(ctx, o.ID)
	if err != nil {
		run.Fail("CHARGE_GUARD_FAILED")
		return nil, apperr.Wrap(apperr.KindInternal, "charge guard", err)
	}
	if !acquired {
		run.Fail("CHARGE_IN_PROGRESS")
		s.charges.Add(1, observability.Outcome("duplicate"))
		return nil, apperr.Conflict("a charge for this order is already in progress or settled")
	}

	var sale *SaleResult
	gwErr := s.in.External(ctx, gatewayPeer, gatewayEndpointSale, func(ctx context.Context) error {
		var callErr error
		sale, callErr = s.gateway.Sale(ctx, SaleRequest{
			Amount:         o.TotalAmount,
			Nonce:          cmd.Nonce,
			OrderReference: o.Number,
		})
		if callErr == nil && (sale == nil || !sale.Success) {
			return errDeclined
		}
		return callErr
	})
	if gwErr != nil {
		s.release(ctx, run.Log, o.ID)
		run.Fail("GATEWAY_DECLINED")
		if errors.Is(gwErr, errDeclined) {
			s.charges.Add(1, observability.Outcome("declined"))
		} else {
			s.charges.Add(1, observability.Outcome("error"))
		}
		return nil, gatewayError(sale, gwErr)
	}
	s.charges.Add(1, observability.Outcome("settled"))
	run.Field(observability.F("transaction_id", sale.TransactionID))
	run.Span.AddEvent("payment.gateway_settled", trace.WithAttributes(
		attribute.String("payment.transaction_id", sale.TransactionID),
	))

	// From here on the customer has been charged; the marker stays so nothing charges again.
	pm, err := dompay.New(s.ids.NewID(), o.ID, sale.TransactionID, o.TotalAmount, dompay.StatusSettled, dompay.ParseMethod(cmd.Method))
	if err != nil {
		run.Fail("DOMAIN_CONSTRUCTION_FAILED")
		return nil, apperr.Wrap(apperr.KindInternal, "payment settled at gateway as "+sale.TransactionID, err)
	}
	if err := s.payments.Insert(ctx, pm); err != nil {
		run.Fail("REPO_INSERT_FAILED")
		run.Log.Error("settled_payment_not_recorded",
			observability.OrderID(o.ID),
			observability.F("transaction_id", sale.TransactionID),
			observability.Err(err),
		)
		return nil, apperr.Wrap(apperr.KindInternal, "payment settled at gateway as "+sale.TransactionID+" but was not recorded", err)
	}

	paid, err := s.orders.MarkPaid(ctx, o.ID)
	if err != nil {
		run.Fail("ORDER_MARK_PAID_FAILED")
		run.Log.Error("settled_payment_order_not_updated",
			observability.OrderID(o.ID),
			observability.F("payment_id", pm.ID),
			observability.Err(err),
		)
		return nil, wrapRepositoryError(err)
	}

	s.record(ctx, run.Log, audit.Entry{
		OrderID: o.ID,
		Action:  audit.ActionPaymentSettle,
		From:    string(o.Status),
		To:      string(paid.Status),
		Detail:  fmt.Sprintf("transaction=%s amount=%d", sale.TransactionID, pm.Amount),
		At:      time.Now().UTC(),
	})
	if err := s.in.Publish(ctx, s.publisher, dompay.NewSettledEvent(pm, o.Number)); err != nil {
		run.Log.Warn("event_publish_failed",
			observability.F("event", "payment.settled"),
			observability.F("aggregate_id", o.ID),
			observability.Err(err),
		)
	}
	return &ChargeResult{Payment: pm, Order: paid}, nil
}

// History lists the payments of userID's orders, newest first unless f asks otherwise.
func (s *Service) History(ctx context.Context, userID string, f storeview.Filter) (_ storeview.Page[storeview.PaymentView], err error) {
	ctx, run := s.in.Start(ctx, useCaseHistory, "PaymentHistory",
		attribute.String("user.id", userID),
	)
	defer func() { run.End(err) }()

	if userID == "" {
		run.Fail("USER_ID_REQUIRED")
		return storeview.Page[storeview.PaymentView]{}, apperr.Validation("user id is required")
	}
	orders, err := s.orders.List(ctx, domorder.ListFilter{UserID: userID})
	if err != nil {
		run.Fail("ORDER_LIST_FAILED")
		return storeview.Page[storeview.PaymentView]{}, wrapRepositoryError(err)
	}
	views, err := s.projector.PaymentViews(ctx, "", orders, f)
	if err != nil {
		run.Fail("PAYMENT_VIEW_FAILED")
		return storeview.Page[storeview.PaymentView]{}, err
	}
	return storeview.Paginate(views, f), nil
}

// StorePayments is the store-scoped payment view. StoreAmount on each entry is the store's
// derived share of one shared settlement, not a payout.
func (s *Service) StorePayments(ctx context.Context, act actor.Context, f storeview.Filter) (storeview.Page[storeview.PaymentView], error) {
	return s.projector.Payments(ctx, act, f)
}

func (s *Service) release(ctx context.Context, logger observability.Logger, orderID string) {
	if err := s.guard.Release(context.WithoutCancel(ctx), orderID); err != nil {
		logger.Error("charge_marker_release_failed",
			observability.OrderID(orderID),
			observability.Err(err),
		)
	}
}

func (s *Service) record(ctx context.Context, logger observability.Logger, e audit.Entry) {
	if s.trail == nil {
		return
	}
	e.ID = s.ids.NewID()
	if err := s.in.External(ctx, "audit", string(e.Action), func(ctx context.Context) error {
		return s.trail.Record(ctx, e)
	}); err != nil {
		logger.Warn("audit_record_failed",
			observability.OrderID(e.OrderID),
			observability.F("action", string(e.Action)),
			observability.Err(err),
		)
	}
}

// gatewayError surfaces the provider's reason verbatim.
func gatewayError(sale *SaleResult, err error) error {
	if !errors.Is(err, errDeclined) {
		return &apperr.Error{Kind: apperr.KindGateway, Err: err}
	}
	reason := gatewayDeclinedReason
	if sale != nil && sale.FailureReason != "" {
		reason = sale.FailureReason
	}
	return apperr.New(apperr.KindGateway, reason)
}

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domorder.ErrNotFound):
		return apperr.Wrap(apperr.KindNotFound, "order not found", err)
	case errors.Is(err, domorder.ErrAlreadyPaid):
		return apperr.Wrap(apperr.KindConflict, "order already paid", err)
	case errors.Is(err, domorder.ErrInvalidStateTransition):
		return apperr.Wrap(apperr.KindConflict, "order changed while charging", err)
	case errors.Is(err, domorder.ErrReserving):
		return apperr.Wrap(apperr.KindConflict, "order is still being created", err)
	case errors.Is(err, dompay.ErrConflict):
		return apperr.Wrap(apperr.KindConflict, "payment already exists", err)
	default:
		return apperr.Wrap(apperr.KindInternal, "payment", fmt.Errorf("%w: %w", ErrRepository, err))
	}
}
