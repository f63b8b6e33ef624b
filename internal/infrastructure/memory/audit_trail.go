package memory

import (
	"context"
	"sync"

	"github.com/Zhima-Mochi/marketplace/app/internal/domain/audit"
)

type AuditTrail struct {
	mu      sync.RWMutex
	entries map[string][]audit.Entry
}

func NewAuditTrail() *AuditTrail {
	return &AuditTrail{entries: make(map[string][]audit.Entry)}
}

func (t *AuditTrail) Record(ctx context.Context, e audit.Entry) error {
	_ = ctx

	t.mu.Lock()
	t.entries[e.OrderID] = append(t.entries[e.OrderID], e)
	t.mu.Unlock()
	return nil
}

func (t *AuditTrail) ListByOrder(ctx context.Context, orderID string) ([]audit.Entry, error) {
	_ = ctx

	t.mu.RLock()
	defer t.mu.RUnlock()

	return append([]audit.Entry(nil), t.entries[orderID]...), nil
}
