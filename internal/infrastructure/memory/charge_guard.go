package memory

import (
	"context"
	"sync"
)

// ChargeGuard holds one charge marker per order for the life of the process.
type ChargeGuard struct {
	mu      sync.Mutex
	markers map[string]struct{}
}

func NewChargeGuard() *ChargeGuard {
	return &ChargeGuard{markers: make(map[string]struct{})}
}

// Acquire returns false if the marker for orderID is already held.
func (g *ChargeGuard) Acquire(ctx context.Context, orderID string) (bool, error) {
	_ = ctx

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, held := g.markers[orderID]; held {
		return false, nil
	}
	g.markers[orderID] = struct{}{}
	return true, nil
}

func (g *ChargeGuard) Release(ctx context.Context, orderID string) error {
	_ = ctx

	g.mu.Lock()
	delete(g.markers, orderID)
	g.mu.Unlock()
	return nil
}
