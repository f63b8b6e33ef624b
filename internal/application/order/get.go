package order

import (
	"context"

	"github.com/Zhima-Mochi/marketplace/app/internal/application/storeview"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/actor"
	"github.com/Zhima-Mochi/marketplace/app/internal/pkg/apperr"

	"go.opentelemetry.io/otel/attribute"
)

const useCaseOrderGet = "order.get"

// Get returns the order as act may see it: whole for a superadmin or the ordering customer,
// limited to the store's own lines for a store operator.
func (s *Service) Get(ctx context.Context, act actor.Context, orderID string) (_ storeview.OrderView, err error) {
	ctx, run := s.in.Start(ctx, useCaseOrderGet, "GetOrder",
		attribute.String("order.id", orderID),
		attribute.String("actor.scope", string(act.Scope)),
	)
	defer func() { run.End(err) }()

	if err := act.Validate(); err != nil {
		run.Fail("ACTOR_INVALID")
		return storeview.OrderView{}, apperr.Wrap(apperr.KindUnauthorized, "invalid actor", err)
	}
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		run.Fail("ORDER_LOOKUP_FAILED")
		return storeview.OrderView{}, wrapRepositoryError(err)
	}

	switch {
	case act.IsSuperadmin():
		view, _ := storeview.ProjectOrder(o, "", nil)
		return view, nil
	case act.IsCustomer():
		if o.UserID != act.UserID {
			run.Fail("NOT_OWNER")
			return storeview.OrderView{}, apperr.Unauthorized("order belongs to another user")
		}
		view, _ := storeview.ProjectOrder(o, "", nil)
		return view, nil
	}

	storeOf, err := storeview.StoreOf(ctx, s.products, o)
	if err != nil {
		run.Fail("PRODUCT_LOOKUP_FAILED")
		return storeview.OrderView{}, wrapRepositoryError(err)
	}
	view, ok := storeview.ProjectOrder(o, act.StoreID, storeOf)
	if !ok {
		run.Fail("NOT_OWNER")
		return storeview.OrderView{}, apperr.Unauthorized("order has no items from this store")
	}
	return view, nil
}
