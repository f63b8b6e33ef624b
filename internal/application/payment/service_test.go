package payment

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Zhima-Mochi/marketplace/app/internal/application/storeview"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/actor"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/audit"
	domorder "github.com/Zhima-Mochi/marketplace/app/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/marketplace/app/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/marketplace/app/internal/domain/payment"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/product"
	"github.com/Zhima-Mochi/marketplace/app/internal/infrastructure/id"
	"github.com/Zhima-Mochi/marketplace/app/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/marketplace/app/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/marketplace/app/internal/pkg/apperr"
)

// fakeGateway approves unless decline or err is set. hold, when non-nil, blocks every sale until closed.
type fakeGateway struct {
	mu      sync.Mutex
	decline string
	err     error
	hold    chan struct{}
	calls   atomic.Int32
}

func (g *fakeGateway) GenerateClientToken(context.Context) (string, error) {
	return "token-123", nil
}

func (g *fakeGateway) Sale(_ context.Context, req SaleRequest) (*SaleResult, error) {
	g.calls.Add(1)
	if g.hold != nil {
		<-g.hold
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	if g.decline != "" {
		return &SaleResult{Success: false, Status: "processor_declined", Amount: req.Amount, FailureReason: g.decline}, nil
	}
	return &SaleResult{Success: true, TransactionID: "txn-" + req.OrderReference, Status: "submitted_for_settlement", Amount: req.Amount}, nil
}

func (g *fakeGateway) set(decline string, err error) {
	g.mu.Lock()
	g.decline, g.err = decline, err
	g.mu.Unlock()
}

type fixture struct {
	svc      *Service
	gateway  *fakeGateway
	orders   *memory.OrderRepository
	payments *memory.PaymentRepository
	products *memory.ProductRepository
	trail    *memory.AuditTrail
	events   []string
	mu       sync.Mutex
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		gateway:  &fakeGateway{},
		products: memory.NewProductRepository(),
		payments: memory.NewPaymentRepository(),
		trail:    memory.NewAuditTrail(),
	}
	f.orders = memory.NewOrderRepository(f.products)
	bus := outbox.NewBus(nil)
	bus.Subscribe(outbox.AllEvents, func(_ context.Context, e domoutbox.Event) error {
		f.mu.Lock()
		f.events = append(f.events, e.EventName())
		f.mu.Unlock()
		return nil
	})
	projector := storeview.NewProjector(f.orders, f.payments, memory.NewReviewRepository(), f.products, 0, nil)
	f.svc = NewService(f.orders, f.payments, f.gateway, memory.NewChargeGuard(), projector, id.New(), bus, f.trail, nil)
	return f
}

// placeOrder stores a Pending order for user. Unknown products are created in store "store-<id>".
func (f *fixture) placeOrder(t *testing.T, user string, items ...domorder.Item) *domorder.Order {
	t.Helper()
	ctx := context.Background()
	for _, it := range items {
		if _, err := f.products.Get(ctx, it.ProductID); errors.Is(err, product.ErrNotFound) {
			p, err := product.New(it.ProductID, "store-"+it.ProductID, "product", it.Price, 100)
			require.NoError(t, err)
			require.NoError(t, f.products.Insert(ctx, p))
		}
	}
	gen := id.New()
	o, err := domorder.New(gen.NewID(), gen.NewOrderNumber(time.Now()), user, items, domorder.ShippingInfo{Address: "1 Main St"})
	require.NoError(t, err)
	require.NoError(t, f.orders.Insert(ctx, o))
	return o
}

func (f *fixture) paymentsFor(t *testing.T, orderID string) []*dompay.Payment {
	t.Helper()
	ps, err := f.payments.ListByOrders(context.Background(), []string{orderID})
	require.NoError(t, err)
	return ps
}

func TestChargeSettles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.placeOrder(t, "u1", domorder.Item{ProductID: "p1", Quantity: 2, Price: 150})

	res, err := f.svc.Charge(ctx, ChargeInput{OrderID: o.ID, Nonce: "fake-valid-nonce", Method: "paypal"})
	require.NoError(t, err)

	assert.Equal(t, int64(300), res.Payment.Amount)
	assert.Equal(t, dompay.StatusSettled, res.Payment.Status)
	assert.Equal(t, dompay.MethodPayPal, res.Payment.Method)
	assert.Equal(t, "txn-"+o.Number, res.Payment.TransactionID)
	assert.Equal(t, domorder.PaymentPaid, res.Order.PaymentStatus)
	assert.Equal(t, domorder.StatusProcessing, res.Order.Status)

	stored, err := f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPaid())
	assert.Len(t, f.paymentsFor(t, o.ID), 1)
	assert.Equal(t, []string{"payment.settled"}, f.events)

	entries, err := f.trail.ListByOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionPaymentSettle, entries[0].Action)
}

func TestChargeDeclinedLeavesOrderUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.placeOrder(t, "u1", domorder.Item{ProductID: "p1", Quantity: 1, Price: 500})
	f.gateway.set("Insufficient Funds", nil)

	_, err := f.svc.Charge(ctx, ChargeInput{OrderID: o.ID, Nonce: "n"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindGateway, apperr.KindOf(err))
	assert.Equal(t, "Insufficient Funds", apperr.Message(err))

	stored, err := f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domorder.PaymentUnpaid, stored.PaymentStatus)
	assert.Equal(t, domorder.StatusPending, stored.Status)
	assert.Empty(t, f.paymentsFor(t, o.ID))
	assert.Empty(t, f.events)

	// The marker was released, so a later attempt can still settle.
	f.gateway.set("", nil)
	_, err = f.svc.Charge(ctx, ChargeInput{OrderID: o.ID, Nonce: "n"})
	require.NoError(t, err)
	assert.Len(t, f.paymentsFor(t, o.ID), 1)
}

func TestChargeGatewayTransportError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.placeOrder(t, "u1", domorder.Item{ProductID: "p1", Quantity: 1, Price: 500})
	boom := errors.New("connection reset")
	f.gateway.set("", boom)

	_, err := f.svc.Charge(ctx, ChargeInput{OrderID: o.ID, Nonce: "n"})
	assert.Equal(t, apperr.KindGateway, apperr.KindOf(err))
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, f.paymentsFor(t, o.ID))
}

func TestChargeTwiceConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.placeOrder(t, "u1", domorder.Item{ProductID: "p1", Quantity: 1, Price: 500})

	_, err := f.svc.Charge(ctx, ChargeInput{OrderID: o.ID, Nonce: "n"})
	require.NoError(t, err)
	_, err = f.svc.Charge(ctx, ChargeInput{OrderID: o.ID, Nonce: "n"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, int32(1), f.gateway.calls.Load())
}

func TestChargeConcurrentReachesGatewayOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.placeOrder(t, "u1", domorder.Item{ProductID: "p1", Quantity: 1, Price: 500})
	f.gateway.hold = make(chan struct{})

	const attempts = 8
	var settled, conflicts atomic.Int32
	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		g.Go(func() error {
			_, err := f.svc.Charge(ctx, ChargeInput{OrderID: o.ID, Nonce: "n"})
			switch {
			case err == nil:
				settled.Add(1)
			case apperr.KindOf(err) == apperr.KindConflict:
				conflicts.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	// The losers fail on the marker while the winner's sale is still in flight.
	require.Eventually(t, func() bool {
		return conflicts.Load() == attempts-1
	}, 2*time.Second, 5*time.Millisecond)
	close(f.gateway.hold)
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), settled.Load())
	assert.Equal(t, int32(1), f.gateway.calls.Load())
	assert.Len(t, f.paymentsFor(t, o.ID), 1)
}

func TestChargeRejectsInvalidRequests(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.placeOrder(t, "u1", domorder.Item{ProductID: "p1", Quantity: 1, Price: 500})
	canceled := f.placeOrder(t, "u1", domorder.Item{ProductID: "p1", Quantity: 1, Price: 500})
	_, _, _, err := f.orders.MarkCanceled(ctx, canceled.ID)
	require.NoError(t, err)

	tests := []struct {
		name  string
		input ChargeInput
		kind  apperr.Kind
	}{
		{"missing order", ChargeInput{Nonce: "n"}, apperr.KindValidation},
		{"missing nonce", ChargeInput{OrderID: o.ID}, apperr.KindValidation},
		{"unknown order", ChargeInput{OrderID: "nope", Nonce: "n"}, apperr.KindNotFound},
		{"canceled order", ChargeInput{OrderID: canceled.ID, Nonce: "n"}, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Charge(ctx, tt.input)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
	assert.Zero(t, f.gateway.calls.Load())
}

func TestClientToken(t *testing.T) {
	f := newFixture(t)
	token, err := f.svc.ClientToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-123", token)
}

func TestHistoryAndStorePayments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mixed := f.placeOrder(t, "u1",
		domorder.Item{ProductID: "a1", Quantity: 1, Price: 10},
		domorder.Item{ProductID: "b1", Quantity: 2, Price: 20},
	)
	other := f.placeOrder(t, "u2", domorder.Item{ProductID: "b1", Quantity: 1, Price: 20})
	for _, o := range []*domorder.Order{mixed, other} {
		_, err := f.svc.Charge(ctx, ChargeInput{OrderID: o.ID, Nonce: "n"})
		require.NoError(t, err)
	}

	page, err := f.svc.History(ctx, "u1", storeview.Filter{})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, int64(50), page.Items[0].Amount)

	_, err = f.svc.History(ctx, "", storeview.Filter{})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	storeA, err := f.svc.StorePayments(ctx, actor.Store("store-a1"), storeview.Filter{})
	require.NoError(t, err)
	require.Equal(t, 1, storeA.Total)
	assert.Equal(t, int64(10), storeA.Items[0].StoreAmount)
	assert.Zero(t, storeA.Items[0].Amount)

	storeB, err := f.svc.StorePayments(ctx, actor.Store("store-b1"), storeview.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, storeB.Total)
}
