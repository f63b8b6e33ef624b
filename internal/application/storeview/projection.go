// Package storeview projects shared orders, payments and reviews onto the slice one store owns.
//
// An order can mix products from several stores. A store-scoped view keeps only the caller's
// lines and recomputes totals over them, so no other store's items, prices or quantities leak,
// not even through an aggregate. An empty store id means the unscoped (superadmin) view.
package storeview

import (
	"time"

	"github.com/Zhima-Mochi/marketplace/app/internal/domain/order"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/payment"
)

// OrderView is an order as one store, or an unscoped caller, may see it.
type OrderView struct {
	ID            string
	Number        string
	UserID        string
	StoreID       string
	Items         []order.Item
	Status        order.Status
	PaymentStatus order.PaymentStatus
	// Total is Σ(price × quantity) over Items: the store's share when scoped, the order total otherwise.
	Total     int64
	Shipping  order.ShippingInfo
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (v OrderView) Scoped() bool { return v.StoreID != "" }

// PaymentView is a payment seen through its order.
//
// StoreAmount is a derived slice of the shared payment, computed like OrderView.Total. It is not
// a separate settlement: the gateway settled Amount once for the whole order. Amount is only
// filled for unscoped views.
type PaymentView struct {
	ID            string
	OrderID       string
	OrderNumber   string
	StoreID       string
	TransactionID string
	Status        payment.Status
	Method        payment.Method
	Amount        int64
	StoreAmount   int64
	CreatedAt     time.Time
}

type ReviewView struct {
	ID               string
	ProductID        string
	UserID           string
	Rating           int
	Comment          string
	VerifiedPurchase bool
	CreatedAt        time.Time
}

// ProjectOrder returns o as seen by storeID. ok is false when no line of o belongs to storeID.
// storeOf maps product id to owning store and is ignored for unscoped projections.
func ProjectOrder(o *order.Order, storeID string, storeOf map[string]string) (OrderView, bool) {
	if o == nil {
		return OrderView{}, false
	}
	view := OrderView{
		ID:            o.ID,
		Number:        o.Number,
		UserID:        o.UserID,
		StoreID:       storeID,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		Shipping:      o.Shipping,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if storeID == "" {
		view.Items = append([]order.Item(nil), o.Items...)
		view.Total = o.TotalAmount
		return view, true
	}

	for _, it := range o.Items {
		if storeOf[it.ProductID] == storeID {
			view.Items = append(view.Items, it)
		}
	}
	if len(view.Items) == 0 {
		return OrderView{}, false
	}
	view.Total = order.SumItems(view.Items)
	return view, true
}

// ProjectPayment returns p as seen by storeID through its order o.
func ProjectPayment(p *payment.Payment, o *order.Order, storeID string, storeOf map[string]string) (PaymentView, bool) {
	if p == nil || o == nil || p.OrderID != o.ID {
		return PaymentView{}, false
	}
	ov, ok := ProjectOrder(o, storeID, storeOf)
	if !ok {
		return PaymentView{}, false
	}
	view := PaymentView{
		ID:            p.ID,
		OrderID:       p.OrderID,
		OrderNumber:   o.Number,
		StoreID:       storeID,
		TransactionID: p.TransactionID,
		Status:        p.Status,
		Method:        p.Method,
		StoreAmount:   ov.Total,
		CreatedAt:     p.CreatedAt,
	}
	if storeID == "" {
		view.Amount = p.Amount
		view.StoreAmount = p.Amount
	}
	return view, true
}
