package httppresentation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appInventory "github.com/Zhima-Mochi/marketplace/app/internal/application/inventory"
	appOrder "github.com/Zhima-Mochi/marketplace/app/internal/application/order"
	appPayment "github.com/Zhima-Mochi/marketplace/app/internal/application/payment"
	appReview "github.com/Zhima-Mochi/marketplace/app/internal/application/review"
	"github.com/Zhima-Mochi/marketplace/app/internal/application/storeview"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/product"
	"github.com/Zhima-Mochi/marketplace/app/internal/infrastructure/gateway"
	"github.com/Zhima-Mochi/marketplace/app/internal/infrastructure/id"
	"github.com/Zhima-Mochi/marketplace/app/internal/infrastructure/memory"
)

type testServer struct {
	srv      *httptest.Server
	products *memory.ProductRepository
}

func newTestServer(t *testing.T, metrics http.Handler) *testServer {
	t.Helper()
	products := memory.NewProductRepository()
	orders := memory.NewOrderRepository(products)
	payments := memory.NewPaymentRepository()
	reviews := memory.NewReviewRepository()
	ids := id.New()

	projector := storeview.NewProjector(orders, payments, reviews, products, 0, nil)
	ledger := appInventory.NewLedger(products, nil)
	h := NewHandler(Services{
		Orders:   appOrder.NewService(orders, products, ledger, ids, nil, memory.NewAuditTrail(), nil),
		Payments: appPayment.NewService(orders, payments, gateway.NewSimulated(gateway.Options{SuccessRate: 1}), memory.NewChargeGuard(), projector, ids, nil, nil, nil),
		Catalog:  appInventory.NewCatalog(products, ids, nil),
		Reviews:  appReview.NewService(reviews, products, orders, ids, nil),
		Store:    projector,
		Metrics:  metrics,
	}, nil, nil)

	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, products: products}
}

func (ts *testServer) seed(t *testing.T, id, storeID string, price int64, stock int) {
	t.Helper()
	p, err := product.New(id, storeID, "product "+id, price, stock)
	require.NoError(t, err)
	require.NoError(t, ts.products.Insert(context.Background(), p))
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Kind    string          `json:"kind"`
}

func (ts *testServer) do(t *testing.T, method, path string, headers map[string]string, body any) (int, response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, &buf)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var out response
	if res.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	}
	return res.StatusCode, out
}

func createOrderBody(lines map[string]int) map[string]any {
	items := make([]map[string]any, 0, len(lines))
	for pid, qty := range lines {
		items = append(items, map[string]any{"product_id": pid, "quantity": qty})
	}
	return map[string]any{
		"items":         items,
		"shipping_info": map[string]string{"name": "U", "address": "1 Main St", "city": "X", "country": "ID"},
	}
}

func decodeOrder(t *testing.T, r response) orderResponse {
	t.Helper()
	var o orderResponse
	require.NoError(t, json.Unmarshal(r.Data, &o))
	return o
}

var (
	storeA     = map[string]string{headerStoreID: "A"}
	storeC     = map[string]string{headerStoreID: "C"}
	superadmin = map[string]string{headerActorScope: "superadmin"}
	customer   = map[string]string{headerUserID: "u1"}
)

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	res, err := http.Get(ts.srv.URL + "/health")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.NotEmpty(t, res.Header.Get(headerRequestID))
}

func TestCreateOrderAndStoreScopedGet(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.seed(t, "p1", "A", 100, 5)
	ts.seed(t, "p2", "B", 250, 5)

	code, res := ts.do(t, http.MethodPost, "/orders", customer, createOrderBody(map[string]int{"p1": 2, "p2": 1}))
	require.Equal(t, http.StatusCreated, code, res.Message)
	created := decodeOrder(t, res)
	assert.Equal(t, int64(450), created.Total)
	assert.Equal(t, "Pending", string(created.Status))

	code, res = ts.do(t, http.MethodGet, "/orders/"+created.ID, storeA, nil)
	require.Equal(t, http.StatusOK, code)
	scoped := decodeOrder(t, res)
	assert.Equal(t, "A", scoped.StoreID)
	require.Len(t, scoped.Items, 1)
	assert.Equal(t, "p1", scoped.Items[0].ProductID)
	assert.Equal(t, int64(200), scoped.Total)

	code, res = ts.do(t, http.MethodGet, "/orders/"+created.ID, storeC, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "unauthorized", res.Kind)

	code, _ = ts.do(t, http.MethodGet, "/orders/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.seed(t, "p1", "A", 100, 1)

	code, res := ts.do(t, http.MethodPost, "/orders", customer, createOrderBody(map[string]int{"p1": 2}))
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "insufficient_stock", res.Kind)
	assert.False(t, res.Success)
}

func TestCreateOrderRejectsUnknownFields(t *testing.T) {
	ts := newTestServer(t, nil)
	code, res := ts.do(t, http.MethodPost, "/orders", nil, map[string]any{"bogus": true})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", res.Kind)
}

func TestUserComesFromActorHeaders(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.seed(t, "p1", "A", 100, 5)

	code, res := ts.do(t, http.MethodPost, "/orders", nil, createOrderBody(map[string]int{"p1": 1}))
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "unauthorized", res.Kind)

	body := createOrderBody(map[string]int{"p1": 1})
	body["user_id"] = "someone-else"
	code, res = ts.do(t, http.MethodPost, "/orders", customer, body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", res.Kind)

	code, res = ts.do(t, http.MethodGet, "/payments/history?user_id=u1", nil, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "unauthorized", res.Kind)

	code, _ = ts.do(t, http.MethodPost, "/reviews", nil, map[string]any{"product_id": "p1", "rating": 4})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestUpdateStatusAndCancel(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.seed(t, "p1", "A", 100, 5)
	ts.seed(t, "p2", "B", 300, 5)
	_, res := ts.do(t, http.MethodPost, "/orders", customer, createOrderBody(map[string]int{"p1": 1, "p2": 1}))
	orderID := decodeOrder(t, res).ID

	code, _ := ts.do(t, http.MethodPatch, "/orders/"+orderID+"/status", customer, map[string]string{"status": "processing"})
	assert.Equal(t, http.StatusForbidden, code)

	code, res = ts.do(t, http.MethodPatch, "/orders/"+orderID+"/status", storeA, map[string]string{"status": "processing"})
	require.Equal(t, http.StatusOK, code, res.Message)
	updated := decodeOrder(t, res)
	assert.Equal(t, "Processing", string(updated.Status))
	require.Len(t, updated.Items, 1, "store response only carries its own lines")

	code, res = ts.do(t, http.MethodPatch, "/orders/"+orderID+"/status", superadmin, map[string]string{"status": "bogus"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", res.Kind)

	code, res = ts.do(t, http.MethodPost, "/orders/"+orderID+"/cancel", superadmin, nil)
	require.Equal(t, http.StatusOK, code, res.Message)
	assert.Equal(t, "Canceled", string(decodeOrder(t, res).Status))

	p1, err := ts.products.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p1.Stock)

	code, res = ts.do(t, http.MethodPatch, "/orders/"+orderID+"/status", superadmin, map[string]string{"status": "processing"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", res.Kind)
}

func TestChargeAndDuplicate(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.seed(t, "p1", "A", 100, 5)
	_, res := ts.do(t, http.MethodPost, "/orders", customer, createOrderBody(map[string]int{"p1": 3}))
	orderID := decodeOrder(t, res).ID

	charge := map[string]string{"order_id": orderID, "payment_method_nonce": "fake-valid-nonce"}
	code, res := ts.do(t, http.MethodPost, "/payments/charge", nil, charge)
	require.Equal(t, http.StatusOK, code, res.Message)
	var body chargeResponse
	require.NoError(t, json.Unmarshal(res.Data, &body))
	assert.Equal(t, int64(300), body.Payment.Amount)
	assert.Equal(t, "Paid", string(body.Order.PaymentStatus))
	assert.Equal(t, "Processing", string(body.Order.Status))

	code, res = ts.do(t, http.MethodPost, "/payments/charge", nil, charge)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", res.Kind)

	code, res = ts.do(t, http.MethodGet, "/payments/history", customer, nil)
	require.Equal(t, http.StatusOK, code)
	var page pageResponse[paymentResponse]
	require.NoError(t, json.Unmarshal(res.Data, &page))
	assert.Equal(t, 1, page.Total)
}

func TestStoreViews(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.seed(t, "p1", "A", 100, 5)
	ts.seed(t, "p2", "B", 300, 5)
	for i := 0; i < 3; i++ {
		code, res := ts.do(t, http.MethodPost, "/orders", customer, createOrderBody(map[string]int{"p1": 1, "p2": 1}))
		require.Equal(t, http.StatusCreated, code, res.Message)
	}

	code, res := ts.do(t, http.MethodGet, "/store/orders?limit=2&page=2&sort=asc", storeA, nil)
	require.Equal(t, http.StatusOK, code, res.Message)
	var page pageResponse[orderResponse]
	require.NoError(t, json.Unmarshal(res.Data, &page))
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(100), page.Items[0].Total)

	code, res = ts.do(t, http.MethodGet, "/store/stats", storeA, nil)
	require.Equal(t, http.StatusOK, code)
	var stats statsResponse
	require.NoError(t, json.Unmarshal(res.Data, &stats))
	assert.Equal(t, 3, stats.OrderCount)
	assert.Equal(t, 3, stats.CountsByStatus["Pending"])
	require.Len(t, stats.LowStock, 1)
	assert.Equal(t, 2, stats.LowStock[0].Stock)

	code, res = ts.do(t, http.MethodGet, "/store/low-stock?threshold=2", storeA, nil)
	require.Equal(t, http.StatusOK, code, res.Message)
	var low []productResponse
	require.NoError(t, json.Unmarshal(res.Data, &low))
	require.Len(t, low, 1)
	assert.Equal(t, "p1", low[0].ID)

	code, res = ts.do(t, http.MethodGet, "/store/orders?sort=sideways", storeA, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", res.Kind)

	code, _ = ts.do(t, http.MethodGet, "/store/orders?fromDate=yesterday", storeA, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = ts.do(t, http.MethodGet, "/store/orders", customer, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestProductsAndReviews(t *testing.T) {
	ts := newTestServer(t, nil)

	code, res := ts.do(t, http.MethodPost, "/products", storeA, map[string]any{"name": "mug", "price": 900, "stock": 4})
	require.Equal(t, http.StatusCreated, code, res.Message)
	var p productResponse
	require.NoError(t, json.Unmarshal(res.Data, &p))
	assert.Equal(t, "A", p.StoreID)

	code, _ = ts.do(t, http.MethodPatch, "/products/"+p.ID, storeC, map[string]any{"stock": 10})
	assert.Equal(t, http.StatusForbidden, code)

	code, res = ts.do(t, http.MethodPatch, "/products/"+p.ID, storeA, map[string]any{"stock": 10})
	require.Equal(t, http.StatusOK, code, res.Message)
	require.NoError(t, json.Unmarshal(res.Data, &p))
	assert.Equal(t, 10, p.Stock)

	review := map[string]any{"product_id": p.ID, "rating": 5, "comment": "great"}
	code, res = ts.do(t, http.MethodPost, "/reviews", customer, review)
	require.Equal(t, http.StatusCreated, code, res.Message)
	var rv reviewResponse
	require.NoError(t, json.Unmarshal(res.Data, &rv))
	assert.Equal(t, "u1", rv.UserID)
	assert.False(t, rv.VerifiedPurchase)

	code, res = ts.do(t, http.MethodPost, "/reviews", customer, review)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", res.Kind)
}

func TestMetricsMounted(t *testing.T) {
	ts := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	}))
	res, err := http.Get(ts.srv.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
