package order

import (
	"context"
	"time"
)

// ListFilter narrows List. Zero values mean "any". StoreID matches orders with at least one
// line whose product belongs to that store.
type ListFilter struct {
	UserID  string
	StoreID string
	Status  Status
	From    time.Time
	To      time.Time
}

// Matches applies the non-store parts of f to o.
func (f ListFilter) Matches(o *Order) bool {
	if f.UserID != "" && o.UserID != f.UserID {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if !f.From.IsZero() && o.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && o.CreatedAt.After(f.To) {
		return false
	}
	return true
}

type Repository interface {
	// Insert persists the order and its lines together.
	Insert(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	GetMany(ctx context.Context, ids []string) (map[string]*Order, error)
	// Confirm clears Reserving once every line's stock has been taken.
	Confirm(ctx context.Context, id string) error
	// Delete removes an order whose creation was compensated.
	Delete(ctx context.Context, id string) error
	// UpdateStatus moves the order to next if the state machine allows it from the stored status,
	// as one conditional write, and returns the status it replaced. Concurrent callers are
	// last-writer-wins; a terminal order is never overwritten.
	UpdateStatus(ctx context.Context, id string, next Status) (Status, error)
	// MarkCanceled cancels the order unless it is already terminal. changed is true only for the
	// call that performed the transition. A Delivered order yields ErrInvalidStateTransition.
	MarkCanceled(ctx context.Context, id string) (o *Order, previous Status, changed bool, err error)
	// MarkPaid sets PaymentStatus=Paid and moves Pending to Processing in one step.
	MarkPaid(ctx context.Context, id string) (*Order, error)
	// List returns matching confirmed orders, newest first.
	List(ctx context.Context, f ListFilter) ([]*Order, error)
	// HasPurchased reports whether userID has a confirmed, non-canceled order containing productID.
	HasPurchased(ctx context.Context, userID, productID string) (bool, error)
}
