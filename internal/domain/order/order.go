package order

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound               = errors.New("order: not found")
	ErrConflict               = errors.New("order: already exists")
	ErrInvalidQuantity        = errors.New("order: quantity must be greater than zero")
	ErrInvalidPrice           = errors.New("order: price must be zero or greater")
	ErrNoItems                = errors.New("order: at least one item is required")
	ErrUserRequired           = errors.New("order: user id is required")
	ErrShippingRequired       = errors.New("order: shipping address is required")
	ErrInvalidStatus          = errors.New("order: invalid status")
	ErrInvalidStateTransition = errors.New("order: invalid status transition")
	ErrAlreadyPaid            = errors.New("order: already paid")
	ErrReserving              = errors.New("order: stock is still being reserved")
)

type Status string

const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
	StatusCanceled   Status = "Canceled"
)

// Statuses lists every order status in lifecycle order.
var Statuses = []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCanceled}

// ParseStatus accepts a status name case-insensitively.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	return "", ErrInvalidStatus
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCanceled
}

type PaymentStatus string

const (
	PaymentPaid   PaymentStatus = "Paid"
	PaymentUnpaid PaymentStatus = "Unpaid"
)

// Item is one order line. Price is the product price captured when the order was created.
type Item struct {
	ProductID string
	Quantity  int
	Price     int64
}

func (i Item) Subtotal() int64 { return i.Price * int64(i.Quantity) }

type ShippingInfo struct {
	Name       string
	Phone      string
	Address    string
	City       string
	PostalCode string
	Country    string
}

type Order struct {
	ID            string
	Number        string
	UserID        string
	Items         []Item
	Status        Status
	PaymentStatus PaymentStatus
	TotalAmount   int64
	Shipping      ShippingInfo
	CreatedAt     time.Time
	UpdatedAt     time.Time
	// Reserving is set while checkout is still taking stock for the order. Such an order
	// cannot change status or be paid, and reads that list orders skip it.
	Reserving bool
}

// New builds a Pending, Unpaid order whose total is the sum of the snapshotted line subtotals.
func New(id, number, userID string, items []Item, shipping ShippingInfo) (*Order, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserRequired
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	if strings.TrimSpace(shipping.Address) == "" {
		return nil, ErrShippingRequired
	}
	lines := make([]Item, len(items))
	for i, it := range items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if it.Price < 0 {
			return nil, ErrInvalidPrice
		}
		lines[i] = it
	}

	now := time.Now().UTC()
	o := &Order{
		ID:            id,
		Number:        number,
		UserID:        userID,
		Items:         lines,
		Status:        StatusPending,
		PaymentStatus: PaymentUnpaid,
		Shipping:      shipping,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	o.TotalAmount = SumItems(o.Items)
	return o, nil
}

// SumItems is Σ(price × quantity) over items.
func SumItems(items []Item) int64 {
	var total int64
	for _, it := range items {
		total += it.Subtotal()
	}
	return total
}

// TransitionTo moves the order along the lifecycle state machine.
func (o *Order) TransitionTo(next Status) error {
	if o.Reserving {
		return ErrReserving
	}
	st, err := stateFor(o.Status)
	if err != nil {
		return err
	}
	nextState, err := st.To(o, next)
	if err != nil {
		return err
	}
	o.Status = nextState.Status()
	o.touch()
	return nil
}

// MarkPaid records a settlement: the order becomes Paid and a Pending order starts Processing.
func (o *Order) MarkPaid() error {
	if o.Reserving {
		return ErrReserving
	}
	if o.PaymentStatus == PaymentPaid {
		return ErrAlreadyPaid
	}
	if o.Status == StatusCanceled {
		return ErrInvalidStateTransition
	}
	o.PaymentStatus = PaymentPaid
	if o.Status == StatusPending {
		o.Status = StatusProcessing
	}
	o.touch()
	return nil
}

// Confirm ends the reservation window opened by checkout.
func (o *Order) Confirm() error {
	if !o.Reserving {
		return ErrInvalidStateTransition
	}
	o.Reserving = false
	o.touch()
	return nil
}

func (o *Order) IsPaid() bool { return o.PaymentStatus == PaymentPaid }

// Quantities merges lines per product.
func (o *Order) Quantities() map[string]int {
	out := make(map[string]int, len(o.Items))
	for _, it := range o.Items {
		out[it.ProductID] += it.Quantity
	}
	return out
}

func (o *Order) ProductIDs() []string {
	seen := make(map[string]struct{}, len(o.Items))
	ids := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	return ids
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]Item(nil), o.Items...)
	return &clone
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
