package payment

import "time"

type SettledEvent struct {
	PaymentID     string    `json:"payment_id"`
	OrderID       string    `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	TransactionID string    `json:"transaction_id"`
	Amount        int64     `json:"amount"`
	Method        Method    `json:"method"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func (SettledEvent) EventName() string { return "payment.settled" }

func (e SettledEvent) AggregateID() string { return e.OrderID }

func NewSettledEvent(p *Payment, orderNumber string) SettledEvent {
	return SettledEvent{
		PaymentID:     p.ID,
		OrderID:       p.OrderID,
		OrderNumber:   orderNumber,
		TransactionID: p.TransactionID,
		Amount:        p.Amount,
		Method:        p.Method,
		OccurredAt:    time.Now().UTC(),
	}
}
