package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "github.com/Zhima-Mochi/marketplace/app/internal/domain/order"
)

// StoreResolver maps product ids to their owning store.
type StoreResolver interface {
	StoreOf(productIDs []string) map[string]string
}

type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
	stores StoreResolver
}

// NewOrderRepository needs stores only for List filters that name a store.
func NewOrderRepository(stores StoreResolver) *OrderRepository {
	return &OrderRepository{
		orders: make(map[string]*domain.Order),
		stores: stores,
	}
}

func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	_ = ctx
	if o == nil || o.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[o.ID]; exists {
		return domain.ErrConflict
	}
	for _, existing := range r.orders {
		if existing.Number == o.Number {
			return domain.ErrConflict
		}
	}
	r.orders[o.ID] = o.Clone()
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o.Clone(), nil
}

func (r *OrderRepository) GetMany(ctx context.Context, ids []string) (map[string]*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*domain.Order, len(ids))
	for _, id := range ids {
		if o, ok := r.orders[id]; ok {
			out[id] = o.Clone()
		}
	}
	return out, nil
}

func (r *OrderRepository) Confirm(ctx context.Context, id string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	return o.Confirm()
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.orders, id)
	return nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, next domain.Status) (domain.Status, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	previous := o.Status
	if err := o.TransitionTo(next); err != nil {
		return previous, err
	}
	return previous, nil
}

func (r *OrderRepository) MarkCanceled(ctx context.Context, id string) (*domain.Order, domain.Status, bool, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, "", false, domain.ErrNotFound
	}
	previous := o.Status
	if o.Reserving {
		return o.Clone(), previous, false, domain.ErrReserving
	}
	switch previous {
	case domain.StatusCanceled:
		return o.Clone(), previous, false, nil
	case domain.StatusDelivered:
		return o.Clone(), previous, false, domain.ErrInvalidStateTransition
	}
	if err := o.TransitionTo(domain.StatusCanceled); err != nil {
		return o.Clone(), previous, false, err
	}
	return o.Clone(), previous, true, nil
}

func (r *OrderRepository) MarkPaid(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if err := o.MarkPaid(); err != nil {
		return o.Clone(), err
	}
	return o.Clone(), nil
}

func (r *OrderRepository) List(ctx context.Context, f domain.ListFilter) ([]*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Order, 0)
	for _, o := range r.orders {
		if o.Reserving || !f.Matches(o) {
			continue
		}
		if f.StoreID != "" && !r.touchesStore(o, f.StoreID) {
			continue
		}
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *OrderRepository) HasPurchased(ctx context.Context, userID, productID string) (bool, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, o := range r.orders {
		if o.Reserving || o.UserID != userID || o.Status == domain.StatusCanceled {
			continue
		}
		for _, it := range o.Items {
			if it.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *OrderRepository) touchesStore(o *domain.Order, storeID string) bool {
	if r.stores == nil {
		return false
	}
	for _, s := range r.stores.StoreOf(o.ProductIDs()) {
		if s == storeID {
			return true
		}
	}
	return false
}
