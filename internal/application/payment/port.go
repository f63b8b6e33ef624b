package payment

import "context"

type SaleRequest struct {
	Amount int64
	Nonce  string
	// OrderReference is the human-facing order number, shown on the provider's side.
	OrderReference string
}

type SaleResult struct {
	Success       bool
	TransactionID string
	Status        string
	Amount        int64
	FailureReason string
}

// Gateway is the external payment provider. Sale is synchronous; the core neither retries it
// nor bounds it with its own timeout.
type Gateway interface {
	GenerateClientToken(ctx context.Context) (string, error)
	Sale(ctx context.Context, req SaleRequest) (*SaleResult, error)
}

// ChargeGuard holds a per-order charge marker. Acquire is atomic and reports false when the
// marker is already held. A marker is released only when the gateway declined the charge.
type ChargeGuard interface {
	Acquire(ctx context.Context, orderID string) (bool, error)
	Release(ctx context.Context, orderID string) error
}
