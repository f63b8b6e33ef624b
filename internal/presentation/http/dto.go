package httppresentation

import (
	"time"

	"github.com/Zhima-Mochi/marketplace/app/internal/application/storeview"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/order"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/payment"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/product"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/review"
)

type shippingDTO struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

func (s shippingDTO) toDomain() order.ShippingInfo {
	return order.ShippingInfo{
		Name:       s.Name,
		Phone:      s.Phone,
		Address:    s.Address,
		City:       s.City,
		PostalCode: s.PostalCode,
		Country:    s.Country,
	}
}

func shippingFrom(s order.ShippingInfo) shippingDTO {
	return shippingDTO{
		Name:       s.Name,
		Phone:      s.Phone,
		Address:    s.Address,
		City:       s.City,
		PostalCode: s.PostalCode,
		Country:    s.Country,
	}
}

type orderItemResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
	Subtotal  int64  `json:"subtotal"`
}

type orderResponse struct {
	ID            string              `json:"id"`
	Number        string              `json:"order_number"`
	UserID        string              `json:"user_id"`
	StoreID       string              `json:"store_id,omitempty"`
	Items         []orderItemResponse `json:"items"`
	Status        order.Status        `json:"status"`
	PaymentStatus order.PaymentStatus `json:"payment_status"`
	Total         int64               `json:"total"`
	Shipping      shippingDTO         `json:"shipping_info"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func orderFromView(v storeview.OrderView) orderResponse {
	items := make([]orderItemResponse, 0, len(v.Items))
	for _, it := range v.Items {
		items = append(items, orderItemResponse{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
			Subtotal:  it.Subtotal(),
		})
	}
	return orderResponse{
		ID:            v.ID,
		Number:        v.Number,
		UserID:        v.UserID,
		StoreID:       v.StoreID,
		Items:         items,
		Status:        v.Status,
		PaymentStatus: v.PaymentStatus,
		Total:         v.Total,
		Shipping:      shippingFrom(v.Shipping),
		CreatedAt:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,
	}
}

// orderFromDomain renders the full order; only callers allowed to see every line use it.
func orderFromDomain(o *order.Order) orderResponse {
	v, _ := storeview.ProjectOrder(o, "", nil)
	return orderFromView(v)
}

type paymentResponse struct {
	ID            string         `json:"id"`
	OrderID       string         `json:"order_id"`
	OrderNumber   string         `json:"order_number,omitempty"`
	StoreID       string         `json:"store_id,omitempty"`
	TransactionID string         `json:"transaction_id"`
	Status        payment.Status `json:"status"`
	Method        payment.Method `json:"method"`
	Amount        int64          `json:"amount,omitempty"`
	StoreAmount   int64          `json:"store_amount"`
	CreatedAt     time.Time      `json:"created_at"`
}

func paymentFromView(v storeview.PaymentView) paymentResponse {
	return paymentResponse{
		ID:            v.ID,
		OrderID:       v.OrderID,
		OrderNumber:   v.OrderNumber,
		StoreID:       v.StoreID,
		TransactionID: v.TransactionID,
		Status:        v.Status,
		Method:        v.Method,
		Amount:        v.Amount,
		StoreAmount:   v.StoreAmount,
		CreatedAt:     v.CreatedAt,
	}
}

func paymentFromDomain(p *payment.Payment, o *order.Order) paymentResponse {
	v, ok := storeview.ProjectPayment(p, o, "", nil)
	if !ok {
		return paymentResponse{ID: p.ID, OrderID: p.OrderID, TransactionID: p.TransactionID,
			Status: p.Status, Method: p.Method, Amount: p.Amount, StoreAmount: p.Amount, CreatedAt: p.CreatedAt}
	}
	return paymentFromView(v)
}

type productResponse struct {
	ID        string    `json:"id"`
	StoreID   string    `json:"store_id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	Stock     int       `json:"stock"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func productFromDomain(p *product.Product) productResponse {
	return productResponse{
		ID:        p.ID,
		StoreID:   p.StoreID,
		Name:      p.Name,
		Price:     p.Price,
		Stock:     p.Stock,
		Active:    p.Active,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type reviewResponse struct {
	ID               string    `json:"id"`
	ProductID        string    `json:"product_id"`
	UserID           string    `json:"user_id"`
	Rating           int       `json:"rating"`
	Comment          string    `json:"comment,omitempty"`
	VerifiedPurchase bool      `json:"verified_purchase"`
	CreatedAt        time.Time `json:"created_at"`
}

func reviewFromView(v storeview.ReviewView) reviewResponse {
	return reviewResponse{
		ID:               v.ID,
		ProductID:        v.ProductID,
		UserID:           v.UserID,
		Rating:           v.Rating,
		Comment:          v.Comment,
		VerifiedPurchase: v.VerifiedPurchase,
		CreatedAt:        v.CreatedAt,
	}
}

func reviewFromDomain(r *review.Review, verified bool) reviewResponse {
	return reviewResponse{
		ID:               r.ID,
		ProductID:        r.ProductID,
		UserID:           r.UserID,
		Rating:           r.Rating,
		Comment:          r.Comment,
		VerifiedPurchase: verified,
		CreatedAt:        r.CreatedAt,
	}
}

type pageResponse[D any] struct {
	Items      []D `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
}

func pageFrom[T, D any](p storeview.Page[T], conv func(T) D) pageResponse[D] {
	items := make([]D, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, conv(it))
	}
	return pageResponse[D]{
		Items:      items,
		Total:      p.Total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: p.TotalPages,
	}
}

type lowStockResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
}

type statsResponse struct {
	StoreID           string             `json:"store_id,omitempty"`
	OrderCount        int                `json:"order_count"`
	CountsByStatus    map[string]int     `json:"counts_by_status"`
	Revenue           int64              `json:"revenue"`
	LowStockThreshold int                `json:"low_stock_threshold"`
	LowStock          []lowStockResponse `json:"low_stock"`
}

func statsFrom(s *storeview.Stats) statsResponse {
	counts := make(map[string]int, len(s.CountsByStatus))
	for k, v := range s.CountsByStatus {
		counts[string(k)] = v
	}
	low := make([]lowStockResponse, 0, len(s.LowStock))
	for _, it := range s.LowStock {
		low = append(low, lowStockResponse{ProductID: it.ProductID, Name: it.Name, Stock: it.Stock})
	}
	return statsResponse{
		StoreID:           s.StoreID,
		OrderCount:        s.OrderCount,
		CountsByStatus:    counts,
		Revenue:           s.Revenue,
		LowStockThreshold: s.LowStockThreshold,
		LowStock:          low,
	}
}
