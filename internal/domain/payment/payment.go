package payment

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("payment: not found")
	ErrConflict      = errors.New("payment: already exists")
	ErrInvalidAmount = errors.New("payment: amount must be greater than zero")
	ErrOrderRequired = errors.New("payment: order id is required")
)

type Status string

const (
	StatusAuthorized Status = "authorized"
	StatusSettled    Status = "settled"
	StatusFailed     Status = "failed"
	StatusVoided     Status = "voided"
)

type Method string

const (
	MethodCard   Method = "card"
	MethodPayPal Method = "paypal"
	MethodOther  Method = "other"
)

// ParseMethod maps an unknown or empty method to MethodCard.
func ParseMethod(s string) Method {
	switch Method(s) {
	case MethodPayPal, MethodOther:
		return Method(s)
	default:
		return MethodCard
	}
}

// Payment is a settlement of one whole order. Amount is the order total, never a per-store share.
type Payment struct {
	ID            string
	OrderID       string
	TransactionID string
	Amount        int64
	Status        Status
	Method        Method
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func New(id, orderID, transactionID string, amount int64, status Status, method Method) (*Payment, error) {
	if orderID == "" {
		return nil, ErrOrderRequired
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if status == "" {
		status = StatusSettled
	}
	now := time.Now().UTC()
	return &Payment{
		ID:            id,
		OrderID:       orderID,
		TransactionID: transactionID,
		Amount:        amount,
		Status:        status,
		Method:        method,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (p *Payment) Clone() *Payment {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
