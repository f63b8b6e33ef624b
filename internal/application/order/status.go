package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/marketplace/app/internal/domain/actor"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/audit"
	domain "github.com/Zhima-Mochi/marketplace/app/internal/domain/order"
	"github.com/Zhima-Mochi/marketplace/app/internal/observability"
	"github.com/Zhima-Mochi/marketplace/app/internal/pkg/apperr"

	"go.opentelemetry.io/otel/attribute"
)

const (
	useCaseOrderUpdateStatus = "order.update_status"
	useCaseOrderCancel       = "order.cancel"
)

// UpdateStatus moves an order along its lifecycle on behalf of an owning store or a superadmin.
//
// There is no version token: two operators updating the same order concurrently are
// last-writer-wins, bounded by the state machine, and a terminal order is never overwritten.
// Each change lands in the audit trail with the status it replaced. Canceled delegates to Cancel.
func (s *Service) UpdateStatus(ctx context.Context, act actor.Context, orderID, status string) (_ *domain.Order, err error) {
	ctx, run := s.in.Start(ctx, useCaseOrderUpdateStatus, "UpdateOrderStatus",
		attribute.String("order.id", orderID),
		attribute.String("order.status_requested", status),
		attribute.String("actor.scope", string(act.Scope)),
	)
	defer func() { run.End(err) }()
	run.Field(observability.OrderID(orderID), observability.F("requested", status))

	next, err := domain.ParseStatus(status)
	if err != nil {
		run.Fail("STATUS_INVALID")
		return nil, apperr.Wrap(apperr.KindValidation, fmt.Sprintf("unknown order status %q", status), err)
	}

	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		run.Fail("ORDER_LOOKUP_FAILED")
		return nil, wrapRepositoryError(err)
	}
	if err := s.authorize(ctx, act, o); err != nil {
		run.Fail("ACTOR_REJECTED")
		return nil, err
	}
	if o.Reserving {
		run.Fail("ORDER_RESERVING")
		return nil, wrapRepositoryError(domain.ErrReserving)
	}
	if o.Status.Terminal() {
		run.Fail("ORDER_TERMINAL")
		return nil, apperr.Wrap(apperr.KindValidation, "invalid status transition", domain.ErrInvalidStateTransition)
	}
	if next == domain.StatusCanceled {
		run.Status("DELEGATED_CANCEL")
		return s.Cancel(ctx, act, orderID)
	}
	if !domain.CanTransition(o.Status, next) {
		run.Fail("TRANSITION_REJECTED")
		return nil, apperr.Wrap(apperr.KindValidation,
			fmt.Sprintf("invalid status transition %s -> %s", o.Status, next), domain.ErrInvalidStateTransition)
	}

	previous, err := s.orders.UpdateStatus(ctx, orderID, next)
	if err != nil {
		run.Fail("REPO_UPDATE_FAILED")
		return nil, wrapRepositoryError(err)
	}
	if previous != o.Status {
		// Another writer moved the order between our read and our write.
		run.Log.Warn("order_status_overwritten",
			observability.OrderID(orderID),
			observability.F("read", string(o.Status)),
			observability.F("replaced", string(previous)),
			observability.F("written", string(next)),
		)
	}

	s.record(ctx, run.Log, audit.Entry{
		OrderID:      orderID,
		Action:       audit.ActionStatusChanged,
		From:         string(previous),
		To:           string(next),
		ActorScope:   string(act.Scope),
		ActorStoreID: act.StoreID,
		ActorUserID:  act.UserID,
		At:           time.Now().UTC(),
	})
	s.publish(ctx, run.Log, domain.NewStatusChangedEvent(orderID, previous, next, string(act.Scope), act.StoreID))

	updated, err := s.orders.Get(ctx, orderID)
	if err != nil {
		run.Fail("ORDER_RELOAD_FAILED")
		return nil, wrapRepositoryError(err)
	}
	return updated, nil
}

// Cancel cancels a non-terminal order and restores its stock. The repository performs the
// transition as a single conditional write and reports whether this call made it, so stock is
// restored exactly once however many cancels race. Canceling a canceled order is a no-op.
func (s *Service) Cancel(ctx context.Context, act actor.Context, orderID string) (_ *domain.Order, err error) {
	ctx, run := s.in.Start(ctx, useCaseOrderCancel, "CancelOrder",
		attribute.String("order.id", orderID),
		attribute.String("actor.scope", string(act.Scope)),
	)
	defer func() { run.End(err) }()
	run.Field(observability.OrderID(orderID))

	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		run.Fail("ORDER_LOOKUP_FAILED")
		return nil, wrapRepositoryError(err)
	}
	if err := s.authorize(ctx, act, o); err != nil {
		run.Fail("ACTOR_REJECTED")
		return nil, err
	}

	canceled, previous, changed, err := s.orders.MarkCanceled(ctx, orderID)
	if err != nil {
		run.Fail("REPO_CANCEL_FAILED")
		return nil, wrapRepositoryError(err)
	}
	if !changed {
		run.Status("ALREADY_CANCELED")
		return canceled, nil
	}

	restoreErr := s.restoreAll(ctx, run.Log, canceled)
	s.record(ctx, run.Log, audit.Entry{
		OrderID:      orderID,
		Action:       audit.ActionCanceled,
		From:         string(previous),
		To:           string(domain.StatusCanceled),
		ActorScope:   string(act.Scope),
		ActorStoreID: act.StoreID,
		ActorUserID:  act.UserID,
		At:           time.Now().UTC(),
	})
	if restoreErr != nil {
		run.Fail("STOCK_RESTORE_FAILED")
		return canceled, restoreErr
	}
	s.publish(ctx, run.Log, domain.NewCanceledEvent(canceled, previous, string(act.Scope), act.StoreID))
	return canceled, nil
}

func (s *Service) restoreAll(ctx context.Context, logger observability.Logger, o *domain.Order) error {
	ctx = context.WithoutCancel(ctx)

	var errs []error
	for _, it := range o.Items {
		stock, err := s.ledger.Restore(ctx, it.ProductID, it.Quantity)
		if err != nil {
			s.compensations.Add(1, observability.L("reason", "cancel"), observability.Outcome("error"))
			logger.Error("stock_restore_failed",
				observability.OrderID(o.ID),
				observability.ProductID(it.ProductID),
				observability.F("quantity", it.Quantity),
				observability.Err(err),
			)
			errs = append(errs, fmt.Errorf("restore %s x%d: %w", it.ProductID, it.Quantity, err))
			continue
		}
		s.compensations.Add(1, observability.L("reason", "cancel"), observability.Outcome("success"))
		logger.Info("stock_restored",
			observability.OrderID(o.ID),
			observability.ProductID(it.ProductID),
			observability.F("quantity", it.Quantity),
			observability.F("stock", stock),
		)
	}
	if len(errs) == 0 {
		return nil
	}
	return apperr.Wrap(apperr.KindInternal, "order canceled but stock restore incomplete", errors.Join(errs...))
}
