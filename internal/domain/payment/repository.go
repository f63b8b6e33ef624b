package payment

import "context"

// Repository stores payments. Payments are never deleted.
type Repository interface {
	Insert(ctx context.Context, p *Payment) error
	Get(ctx context.Context, id string) (*Payment, error)
	// ListByOrders returns payments linked to any of orderIDs, newest first.
	ListByOrders(ctx context.Context, orderIDs []string) ([]*Payment, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
}
