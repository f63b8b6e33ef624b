package order

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/marketplace/app/internal/application/inventory"
	domain "github.com/Zhima-Mochi/marketplace/app/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/marketplace/app/internal/domain/outbox"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/product"
	"github.com/Zhima-Mochi/marketplace/app/internal/infrastructure/id"
	"github.com/Zhima-Mochi/marketplace/app/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/marketplace/app/internal/infrastructure/outbox"
)

var errStorageDown = errors.New("storage down")

// flakyProducts fails stock writes for selected products.
type flakyProducts struct {
	*memory.ProductRepository
	failDecrement map[string]error
	failIncrement map[string]error
	// beforeDecrement runs ahead of every decrement.
	beforeDecrement func(ctx context.Context, id string)
}

func (f *flakyProducts) DecrementStock(ctx context.Context, id string, qty int) (int, error) {
	if f.beforeDecrement != nil {
		f.beforeDecrement(ctx, id)
	}
	if err, ok := f.failDecrement[id]; ok {
		return 0, err
	}
	return f.ProductRepository.DecrementStock(ctx, id, qty)
}

func (f *flakyProducts) IncrementStock(ctx context.Context, id string, qty int) (int, error) {
	if err, ok := f.failIncrement[id]; ok {
		return 0, err
	}
	return f.ProductRepository.IncrementStock(ctx, id, qty)
}

// trackedOrders remembers the last inserted order id.
type trackedOrders struct {
	*memory.OrderRepository
	mu   sync.Mutex
	last string
}

func (r *trackedOrders) Insert(ctx context.Context, o *domain.Order) error {
	r.mu.Lock()
	r.last = o.ID
	r.mu.Unlock()
	return r.OrderRepository.Insert(ctx, o)
}

func (r *trackedOrders) lastID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

type recorder struct {
	mu     sync.Mutex
	events []domoutbox.Event
}

func (r *recorder) handle(_ context.Context, e domoutbox.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventName())
	}
	return out
}

type fixture struct {
	svc      *Service
	products *flakyProducts
	orders   *trackedOrders
	trail    *memory.AuditTrail
	events   *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	products := &flakyProducts{
		ProductRepository: memory.NewProductRepository(),
		failDecrement:     map[string]error{},
		failIncrement:     map[string]error{},
	}
	orders := &trackedOrders{OrderRepository: memory.NewOrderRepository(products.ProductRepository)}
	trail := memory.NewAuditTrail()
	events := &recorder{}
	bus := outbox.NewBus(nil)
	bus.Subscribe(outbox.AllEvents, events.handle)

	ledger := inventory.NewLedger(products, nil)
	return &fixture{
		svc:      NewService(orders, products, ledger, id.New(), bus, trail, nil),
		products: products,
		orders:   orders,
		trail:    trail,
		events:   events,
	}
}

func (f *fixture) seed(t *testing.T, id, storeID string, price int64, stock int) {
	t.Helper()
	p, err := product.New(id, storeID, "product "+id, price, stock)
	require.NoError(t, err)
	require.NoError(t, f.products.Insert(context.Background(), p))
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.products.Get(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func (f *fixture) create(t *testing.T, lines ...ItemInput) *domain.Order {
	t.Helper()
	o, err := f.svc.CreateOrder(context.Background(), orderInput("u1", lines...))
	require.NoError(t, err)
	return o
}

func orderInput(user string, lines ...ItemInput) CreateOrderInput {
	return CreateOrderInput{
		UserID:   user,
		Items:    lines,
		Shipping: domain.ShippingInfo{Name: "U", Address: "1 Main St", City: "X", Country: "ID"},
	}
}
