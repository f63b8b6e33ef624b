// Package audit records who changed an order and from what. Status updates are last-writer-wins,
// so the trail is where overwritten transitions stay visible.
package audit

import (
	"context"
	"time"
)

type Action string

const (
	ActionStatusChanged Action = "status_changed"
	ActionCanceled      Action = "canceled"
	ActionPaymentSettle Action = "payment_settled"
)

type Entry struct {
	ID           string
	OrderID      string
	Action       Action
	From         string
	To           string
	ActorScope   string
	ActorStoreID string
	ActorUserID  string
	Detail       string
	At           time.Time
}

type Trail interface {
	Record(ctx context.Context, e Entry) error
	// ListByOrder returns the order's entries oldest first.
	ListByOrder(ctx context.Context, orderID string) ([]Entry, error)
}
