package order

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/marketplace/app/internal/application"
	"github.com/Zhima-Mochi/marketplace/app/internal/application/inventory"
)

type IDGenerator interface {
	application.IDGenerator
	// NewOrderNumber returns a human-facing number unique across orders.
	NewOrderNumber(now time.Time) string
}

// StockLedger is the part of the inventory ledger order flows depend on.
type StockLedger interface {
	ValidateForOrder(ctx context.Context, lines []inventory.Line) (*inventory.Validation, error)
	Decrement(ctx context.Context, productID string, qty int) (int, error)
	Restore(ctx context.Context, productID string, qty int) (int, error)
}
