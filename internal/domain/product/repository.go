package product

import "context"

type Repository interface {
	Insert(ctx context.Context, p *Product) error
	Get(ctx context.Context, id string) (*Product, error)
	// GetMany returns the products that exist among ids, keyed by id.
	GetMany(ctx context.Context, ids []string) (map[string]*Product, error)
	// UpdateDetails writes name, price and active. Stock is never written here.
	UpdateDetails(ctx context.Context, p *Product) error
	// SetStock stores an operator's absolute stock correction and returns it.
	SetStock(ctx context.Context, id string, stock int) (int, error)
	// DecrementStock subtracts quantity only if stock >= quantity, as one atomic step, and returns the new stock.
	// It fails with ErrInsufficientStock when the condition does not hold and ErrNotFound when id is unknown.
	DecrementStock(ctx context.Context, id string, quantity int) (int, error)
	// IncrementStock adds quantity unconditionally and returns the new stock.
	IncrementStock(ctx context.Context, id string, quantity int) (int, error)
	ListByStore(ctx context.Context, storeID string) ([]*Product, error)
}
