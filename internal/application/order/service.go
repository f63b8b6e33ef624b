package order

import (
	"context"

	"github.com/Zhima-Mochi/marketplace/app/internal/application"
	"github.com/Zhima-Mochi/marketplace/app/internal/application/storeview"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/actor"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/audit"
	domain "github.com/Zhima-Mochi/marketplace/app/internal/domain/order"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/outbox"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/product"
	"github.com/Zhima-Mochi/marketplace/app/internal/observability"
	"github.com/Zhima-Mochi/marketplace/app/internal/pkg/apperr"
)

const orderService = "order-service"

// Service runs the order lifecycle: saga-style creation against the inventory ledger,
// status changes by the owning stores, and cancellation with exactly-once stock restore.
type Service struct {
	orders    domain.Repository
	products  product.Repository
	ledger    StockLedger
	ids       IDGenerator
	publisher outbox.Publisher
	trail     audit.Trail

	in            *application.Instrumentation
	compensations observability.Counter // stock_compensations_total{reason,outcome}
}

// NewService wires the lifecycle manager. publisher and trail may be nil.
func NewService(
	orders domain.Repository,
	products product.Repository,
	ledger StockLedger,
	ids IDGenerator,
	publisher outbox.Publisher,
	trail audit.Trail,
	tel observability.Observability,
) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Service{
		orders:        orders,
		products:      products,
		ledger:        ledger,
		ids:           ids,
		publisher:     publisher,
		trail:         trail,
		in:            application.NewInstrumentation(tel, orderService),
		compensations: tel.Metrics().Counter(observability.MStockCompensations),
	}
}

// authorize lets superadmins through and store operators only when at least one line of o is theirs.
func (s *Service) authorize(ctx context.Context, act actor.Context, o *domain.Order) error {
	if err := act.Validate(); err != nil {
		return apperr.Wrap(apperr.KindUnauthorized, "invalid actor", err)
	}
	if act.IsSuperadmin() {
		return nil
	}
	if !act.IsStore() {
		return apperr.Unauthorized("only store operators or superadmins can change orders")
	}
	storeOf, err := storeview.StoreOf(ctx, s.products, o)
	if err != nil {
		return wrapRepositoryError(err)
	}
	for _, st := range storeOf {
		if st == act.StoreID {
			return nil
		}
	}
	return apperr.Unauthorized("order has no items from this store")
}

func (s *Service) record(ctx context.Context, logger observability.Logger, e audit.Entry) {
	if s.trail == nil {
		return
	}
	if e.ID == "" {
		e.ID = s.ids.NewID()
	}
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

func (s *Service) publish(ctx context.Context, logger observability.Logger, e outbox.Event) {
	if err := s.in.Publish(ctx, s.publisher, e); err != nil {
		logger.Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("aggregate_id", e.AggregateID()),
			observability.Err(err),
		)
	}
}
