package order

import "time"

type EventItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
}

// CreatedEvent is emitted once an order is persisted and all of its stock has been taken.
type CreatedEvent struct {
	OrderID     string      `json:"order_id"`
	Number      string      `json:"number"`
	UserID      string      `json:"user_id"`
	TotalAmount int64       `json:"total_amount"`
	Items       []EventItem `json:"items"`
	OccurredAt  time.Time   `json:"occurred_at"`
}

func (CreatedEvent) EventName() string { return "order.created" }

func (e CreatedEvent) AggregateID() string { return e.OrderID }

func NewCreatedEvent(o *Order) CreatedEvent {
	items := make([]EventItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, EventItem{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price})
	}
	return CreatedEvent{
		OrderID:     o.ID,
		Number:      o.Number,
		UserID:      o.UserID,
		TotalAmount: o.TotalAmount,
		Items:       items,
		OccurredAt:  time.Now().UTC(),
	}
}

// StatusChangedEvent records a non-cancel status change and who made it.
type StatusChangedEvent struct {
	OrderID    string    `json:"order_id"`
	From       Status    `json:"from"`
	To         Status    `json:"to"`
	ActorScope string    `json:"actor_scope"`
	ActorStore string    `json:"actor_store,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (StatusChangedEvent) EventName() string { return "order.status_changed" }

func (e StatusChangedEvent) AggregateID() string { return e.OrderID }

func NewStatusChangedEvent(orderID string, from, to Status, scope, storeID string) StatusChangedEvent {
	return StatusChangedEvent{
		OrderID:    orderID,
		From:       from,
		To:         to,
		ActorScope: scope,
		ActorStore: storeID,
		OccurredAt: time.Now().UTC(),
	}
}

// CanceledEvent is emitted by the call that performed the cancellation, after stock was restored.
type CanceledEvent struct {
	OrderID    string      `json:"order_id"`
	Previous   Status      `json:"previous"`
	Restored   []EventItem `json:"restored"`
	ActorScope string      `json:"actor_scope"`
	ActorStore string      `json:"actor_store,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

func (CanceledEvent) EventName() string { return "order.canceled" }

func (e CanceledEvent) AggregateID() string { return e.OrderID }

func NewCanceledEvent(o *Order, previous Status, scope, storeID string) CanceledEvent {
	restored := make([]EventItem, 0, len(o.Items))
	for _, it := range o.Items {
		restored = append(restored, EventItem{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price})
	}
	return CanceledEvent{
		OrderID:    o.ID,
		Previous:   previous,
		Restored:   restored,
		ActorScope: scope,
		ActorStore: storeID,
		OccurredAt: time.Now().UTC(),
	}
}
