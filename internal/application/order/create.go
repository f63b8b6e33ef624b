package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/marketplace/app/internal/application/inventory"
	domain "github.com/Zhima-Mochi/marketplace/app/internal/domain/order"
	"github.com/Zhima-Mochi/marketplace/app/internal/observability"
	"github.com/Zhima-Mochi/marketplace/app/internal/pkg/apperr"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const useCaseOrderCreate = "order.create"

type ItemInput struct {
	ProductID string
	Quantity  int
}

type CreateOrderInput struct {
	UserID   string
	Items    []ItemInput
	Shipping domain.ShippingInfo
}

// CreateOrder validates every line, persists a Pending order with snapshotted prices and then
// decrements stock one line at a time. The order is stored as reserving until the last line is
// taken, so it cannot be canceled, moved or paid before its stock exists. If a decrement fails,
// lines already taken are restored in reverse order and the order is deleted before the
// decrement error is returned.
func (s *Service) CreateOrder(ctx context.Context, cmd CreateOrderInput) (_ *domain.Order, err error) {
	ctx, run := s.in.Start(ctx, useCaseOrderCreate, "CreateOrder",
		attribute.String("order.user_id", cmd.UserID),
		attribute.Int("order.lines", len(cmd.Items)),
	)
	defer func() { run.End(err) }()

	lines, err := mergeLines(cmd)
	if err != nil {
		run.Fail("INPUT_INVALID")
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		run.Fail("CONTEXT_CANCELED")
		return nil, err
	}

	validation, err := s.ledger.ValidateForOrder(ctx, lines)
	if err != nil {
		run.Fail("VALIDATION_FAILED")
		return nil, err
	}

	items := make([]domain.Item, 0, len(lines))
	for _, ln := range lines {
		items = append(items, domain.Item{
			ProductID: ln.ProductID,
			Quantity:  ln.Quantity,
			Price:     validation.Products[ln.ProductID].Price,
		})
	}
	now := time.Now().UTC()
	entity, err := domain.New(s.ids.NewID(), s.ids.NewOrderNumber(now), cmd.UserID, items, cmd.Shipping)
	if err != nil {
		run.Fail("DOMAIN_CONSTRUCTION_FAILED")
		return nil, apperr.Wrap(apperr.KindValidation, "invalid order", err)
	}
	run.Field(observability.OrderID(entity.ID), observability.F("order_number", entity.Number))
	run.Span.SetAttributes(attribute.String("order.id", entity.ID))

	entity.Reserving = true
	if err := s.orders.Insert(ctx, entity); err != nil {
		run.Fail("REPO_INSERT_FAILED")
		return nil, wrapRepositoryError(err)
	}

	taken := make([]inventory.Line, 0, len(lines))
	for _, ln := range lines {
		stock, decErr := s.ledger.Decrement(ctx, ln.ProductID, ln.Quantity)
		if decErr != nil {
			run.Fail("DECREMENT_FAILED")
			run.Field(observability.F("failed_product_id", ln.ProductID))
			if compErr := s.compensate(ctx, run.Log, entity, taken, decErr); compErr != nil {
				run.Fail("COMPENSATION_FAILED")
				return nil, errors.Join(decErr, compErr)
			}
			return nil, decErr
		}
		taken = append(taken, ln)
		run.Log.Info("stock_decremented",
			observability.OrderID(entity.ID),
			observability.ProductID(ln.ProductID),
			observability.F("quantity", ln.Quantity),
			observability.F("stock", stock),
		)
	}

	if err := s.orders.Confirm(ctx, entity.ID); err != nil {
		run.Fail("CONFIRM_FAILED")
		confirmErr := wrapRepositoryError(err)
		if compErr := s.compensate(ctx, run.Log, entity, taken, confirmErr); compErr != nil {
			run.Fail("COMPENSATION_FAILED")
			return nil, errors.Join(confirmErr, compErr)
		}
		return nil, confirmErr
	}
	entity.Reserving = false

	run.Span.AddEvent("order.created", trace.WithAttributes(
		attribute.String("order.id", entity.ID),
		attribute.Int64("order.total", entity.TotalAmount),
	))
	s.publish(ctx, run.Log, domain.NewCreatedEvent(entity))
	return entity, nil
}

// compensate undoes a partially applied creation. It runs to completion even if ctx was canceled.
func (s *Service) compensate(ctx context.Context, logger observability.Logger, o *domain.Order, taken []inventory.Line, cause error) error {
	ctx = context.WithoutCancel(ctx)
	reason := string(apperr.KindOf(cause))

	var errs []error
	for i := len(taken) - 1; i >= 0; i-- {
		ln := taken[i]
		if _, err := s.ledger.Restore(ctx, ln.ProductID, ln.Quantity); err != nil {
			s.compensations.Add(1, observability.L("reason", reason), observability.Outcome("error"))
			logger.Error("stock_compensation_failed",
				observability.OrderID(o.ID),
				observability.ProductID(ln.ProductID),
				observability.F("quantity", ln.Quantity),
				observability.Err(err),
			)
			errs = append(errs, fmt.Errorf("restore %s x%d: %w", ln.ProductID, ln.Quantity, err))
			continue
		}
		s.compensations.Add(1, observability.L("reason", reason), observability.Outcome("success"))
		logger.Info("stock_compensated",
			observability.OrderID(o.ID),
			observability.ProductID(ln.ProductID),
			observability.F("quantity", ln.Quantity),
		)
	}

	if err := s.orders.Delete(ctx, o.ID); err != nil {
		logger.Error("order_delete_failed", observability.OrderID(o.ID), observability.Err(err))
		errs = append(errs, fmt.Errorf("delete order %s: %w", o.ID, err))
	}
	if len(errs) == 0 {
		return nil
	}
	return apperr.Wrap(apperr.KindInternal, "order compensation incomplete", errors.Join(errs...))
}

// mergeLines validates the request and folds repeated products into one line, keeping first-seen order.
func mergeLines(cmd CreateOrderInput) ([]inventory.Line, error) {
	if strings.TrimSpace(cmd.UserID) == "" {
		return nil, apperr.Validation("user id is required")
	}
	if len(cmd.Items) == 0 {
		return nil, apperr.Validation("at least one item is required")
	}
	if strings.TrimSpace(cmd.Shipping.Address) == "" {
		return nil, apperr.Validation("shipping address is required")
	}

	index := make(map[string]int, len(cmd.Items))
	lines := make([]inventory.Line, 0, len(cmd.Items))
	for _, it := range cmd.Items {
		if it.ProductID == "" {
			return nil, apperr.Validation("product id is required")
		}
		if it.Quantity <= 0 {
			return nil, apperr.Validation(fmt.Sprintf("quantity for product %s must be greater than zero", it.ProductID))
		}
		if i, ok := index[it.ProductID]; ok {
			lines[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(lines)
		lines = append(lines, inventory.Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines, nil
}
