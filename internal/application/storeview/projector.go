package storeview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/marketplace/app/internal/application"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/actor"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/order"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/payment"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/product"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/review"
	"github.com/Zhima-Mochi/marketplace/app/internal/observability"
	"github.com/Zhima-Mochi/marketplace/app/internal/pkg/apperr"

	"go.opentelemetry.io/otel/attribute"
)

const (
	storeViewService = "storeview-service"
	useCaseOrders    = "storeview.orders"
	useCasePayments  = "storeview.payments"
	useCaseReviews   = "storeview.reviews"
	useCaseStats     = "storeview.stats"

	DefaultLowStockThreshold = 5
)

var ErrRepository = errors.New("storeview: repository failure")

type Projector struct {
	orders   order.Repository
	payments payment.Repository
	reviews  review.Repository
	products product.Repository
	lowStock int
	in       *application.Instrumentation
}

// NewProjector builds a projector. lowStockThreshold <= 0 selects DefaultLowStockThreshold.
func NewProjector(
	orders order.Repository,
	payments payment.Repository,
	reviews review.Repository,
	products product.Repository,
	lowStockThreshold int,
	tel observability.Observability,
) *Projector {
	if lowStockThreshold <= 0 {
		lowStockThreshold = DefaultLowStockThreshold
	}
	return &Projector{
		orders:   orders,
		payments: payments,
		reviews:  reviews,
		products: products,
		lowStock: lowStockThreshold,
		in:       application.NewInstrumentation(tel, storeViewService),
	}
}

// ScopeOf returns the store a caller is limited to, or "" for superadmins.
func ScopeOf(act actor.Context) (string, error) {
	if err := act.Validate(); err != nil {
		return "", apperr.Wrap(apperr.KindUnauthorized, "invalid actor", err)
	}
	switch {
	case act.IsSuperadmin():
		return "", nil
	case act.IsStore():
		return act.StoreID, nil
	default:
		return "", apperr.Unauthorized("store views require a store or superadmin actor")
	}
}

// StoreOf resolves the owning store of every product referenced by orders.
func (p *Projector) StoreOf(ctx context.Context, orders ...*order.Order) (map[string]string, error) {
	return StoreOf(ctx, p.products, orders...)
}

// StoreOf resolves the owning store of every product referenced by orders.
func StoreOf(ctx context.Context, products product.Repository, orders ...*order.Order) (map[string]string, error) {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, o := range orders {
		for _, id := range o.ProductIDs() {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return map[string]string{}, nil
	}
	found, err := products.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(found))
	for id, pr := range found {
		out[id] = pr.StoreID
	}
	return out, nil
}

func (p *Projector) Orders(ctx context.Context, act actor.Context, f Filter) (_ Page[OrderView], err error) {
	ctx, run := p.in.Start(ctx, useCaseOrders, "StoreOrders",
		attribute.String("actor.scope", string(act.Scope)),
		attribute.String("store.id", act.StoreID),
	)
	defer func() { run.End(err) }()

	views, err := p.orderViews(ctx, act, f)
	if err != nil {
		run.Fail("ORDER_VIEW_FAILED")
		return Page[OrderView]{}, err
	}
	sortByTime(views, func(v OrderView) time.Time { return v.CreatedAt }, f.Ascending)
	page := Paginate(views, f)
	run.Field(observability.F("matched", page.Total))
	return page, nil
}

func (p *Projector) orderViews(ctx context.Context, act actor.Context, f Filter) ([]OrderView, error) {
	storeID, err := ScopeOf(act)
	if err != nil {
		return nil, err
	}
	status, err := parseStatus(f.Status)
	if err != nil {
		return nil, err
	}
	orders, err := p.orders.List(ctx, f.orderFilter(storeID, status))
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	storeOf, err := p.scopedStoreOf(ctx, storeID, orders)
	if err != nil {
		return nil, err
	}

	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		if v, ok := ProjectOrder(o, storeID, storeOf); ok {
			views = append(views, v)
		}
	}
	return views, nil
}

// Payments lists payments whose order has at least one line owned by the caller's store. Status
// filters on the payment status; dates filter on when the payment was recorded.
func (p *Projector) Payments(ctx context.Context, act actor.Context, f Filter) (_ Page[PaymentView], err error) {
	ctx, run := p.in.Start(ctx, useCasePayments, "StorePayments",
		attribute.String("actor.scope", string(act.Scope)),
		attribute.String("store.id", act.StoreID),
	)
	defer func() { run.End(err) }()

	storeID, err := ScopeOf(act)
	if err != nil {
		run.Fail("ACTOR_REJECTED")
		return Page[PaymentView]{}, err
	}
	orders, err := p.orders.List(ctx, order.ListFilter{StoreID: storeID})
	if err != nil {
		run.Fail("ORDER_LIST_FAILED")
		return Page[PaymentView]{}, wrapRepositoryError(err)
	}
	views, err := p.paymentViews(ctx, storeID, orders, f)
	if err != nil {
		run.Fail("PAYMENT_VIEW_FAILED")
		return Page[PaymentView]{}, err
	}
	page := Paginate(views, f)
	run.Field(observability.F("matched", page.Total))
	return page, nil
}

// PaymentViews projects the payments of orders for storeID, filtered and sorted by f but not paginated.
func (p *Projector) PaymentViews(ctx context.Context, storeID string, orders []*order.Order, f Filter) ([]PaymentView, error) {
	return p.paymentViews(ctx, storeID, orders, f)
}

func (p *Projector) paymentViews(ctx context.Context, storeID string, orders []*order.Order, f Filter) ([]PaymentView, error) {
	if len(orders) == 0 {
		return []PaymentView{}, nil
	}
	byID := make(map[string]*order.Order, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}
	payments, err := p.payments.ListByOrders(ctx, ids)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	storeOf, err := p.scopedStoreOf(ctx, storeID, orders)
	if err != nil {
		return nil, err
	}

	views := make([]PaymentView, 0, len(payments))
	for _, pm := range payments {
		if f.Status != "" && string(pm.Status) != f.Status {
			continue
		}
		if !f.inRange(pm.CreatedAt) {
			continue
		}
		if v, ok := ProjectPayment(pm, byID[pm.OrderID], storeID, storeOf); ok {
			views = append(views, v)
		}
	}
	sortByTime(views, func(v PaymentView) time.Time { return v.CreatedAt }, f.Ascending)
	return views, nil
}

// Reviews lists reviews of the caller's products with a derived verified-purchase flag.
func (p *Projector) Reviews(ctx context.Context, act actor.Context, f Filter) (_ Page[ReviewView], err error) {
	ctx, run := p.in.Start(ctx, useCaseReviews, "StoreReviews",
		attribute.String("actor.scope", string(act.Scope)),
		attribute.String("store.id", act.StoreID),
	)
	defer func() { run.End(err) }()

	storeID, err := ScopeOf(act)
	if err != nil {
		run.Fail("ACTOR_REJECTED")
		return Page[ReviewView]{}, err
	}

	var reviews []*review.Review
	if storeID == "" {
		reviews, err = p.reviews.ListAll(ctx)
	} else {
		var owned []*product.Product
		owned, err = p.products.ListByStore(ctx, storeID)
		if err == nil {
			ids := make([]string, 0, len(owned))
			for _, pr := range owned {
				ids = append(ids, pr.ID)
			}
			reviews, err = p.reviews.ListByProducts(ctx, ids)
		}
	}
	if err != nil {
		run.Fail("REVIEW_LIST_FAILED")
		return Page[ReviewView]{}, wrapRepositoryError(err)
	}

	views := make([]ReviewView, 0, len(reviews))
	for _, rv := range reviews {
		if !f.inRange(rv.CreatedAt) {
			continue
		}
		verified, err := p.orders.HasPurchased(ctx, rv.UserID, rv.ProductID)
		if err != nil {
			run.Fail("PURCHASE_LOOKUP_FAILED")
			return Page[ReviewView]{}, wrapRepositoryError(err)
		}
		views = append(views, ReviewView{
			ID:               rv.ID,
			ProductID:        rv.ProductID,
			UserID:           rv.UserID,
			Rating:           rv.Rating,
			Comment:          rv.Comment,
			VerifiedPurchase: verified,
			CreatedAt:        rv.CreatedAt,
		})
	}
	sortByTime(views, func(v ReviewView) time.Time { return v.CreatedAt }, f.Ascending)
	page := Paginate(views, f)
	run.Field(observability.F("matched", page.Total))
	return page, nil
}

type LowStockItem struct {
	ProductID string
	Name      string
	Stock     int
}

// Stats aggregates over the caller's slice of orders and products only.
type Stats struct {
	StoreID        string
	OrderCount     int
	CountsByStatus map[order.Status]int
	// Revenue is Σ Total over paid, non-canceled order views.
	Revenue           int64
	LowStockThreshold int
	LowStock          []LowStockItem
}

// Stats honors the date and status parts of f; pagination does not apply. Low-stock products
// are only listed for store-scoped callers.
func (p *Projector) Stats(ctx context.Context, act actor.Context, f Filter) (_ *Stats, err error) {
	ctx, run := p.in.Start(ctx, useCaseStats, "StoreStats",
		attribute.String("actor.scope", string(act.Scope)),
		attribute.String("store.id", act.StoreID),
	)
	defer func() { run.End(err) }()

	views, err := p.orderViews(ctx, act, f)
	if err != nil {
		run.Fail("ORDER_VIEW_FAILED")
		return nil, err
	}
	storeID := ""
	if act.IsStore() {
		storeID = act.StoreID
	}

	stats := &Stats{
		StoreID:           storeID,
		OrderCount:        len(views),
		CountsByStatus:    make(map[order.Status]int, len(order.Statuses)),
		LowStockThreshold: p.lowStock,
		LowStock:          []LowStockItem{},
	}
	for _, s := range order.Statuses {
		stats.CountsByStatus[s] = 0
	}
	for _, v := range views {
		stats.CountsByStatus[v.Status]++
		if v.PaymentStatus == order.PaymentPaid && v.Status != order.StatusCanceled {
			stats.Revenue += v.Total
		}
	}

	if storeID != "" {
		owned, err := p.products.ListByStore(ctx, storeID)
		if err != nil {
			run.Fail("PRODUCT_LIST_FAILED")
			return nil, wrapRepositoryError(err)
		}
		for _, pr := range owned {
			if pr.Stock <= p.lowStock {
				stats.LowStock = append(stats.LowStock, LowStockItem{ProductID: pr.ID, Name: pr.Name, Stock: pr.Stock})
			}
		}
	}
	run.Field(observability.F("orders", stats.OrderCount), observability.F("revenue", stats.Revenue))
	return stats, nil
}

func (p *Projector) scopedStoreOf(ctx context.Context, storeID string, orders []*order.Order) (map[string]string, error) {
	if storeID == "" {
		return nil, nil
	}
	storeOf, err := p.StoreOf(ctx, orders...)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	return storeOf, nil
}

func parseStatus(s string) (order.Status, error) {
	if s == "" {
		return "", nil
	}
	st, err := order.ParseStatus(s)
	if err != nil {
		return "", apperr.Wrap(apperr.KindValidation, fmt.Sprintf("unknown order status %q", s), err)
	}
	return st, nil
}

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	return apperr.Wrap(apperr.KindInternal, "storeview", fmt.Errorf("%w: %w", ErrRepository, err))
}
