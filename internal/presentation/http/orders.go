package httppresentation

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	appOrder "github.com/Zhima-Mochi/marketplace/app/internal/application/order"
	"github.com/Zhima-Mochi/marketplace/app/internal/application/storeview"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/actor"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/order"
)

type orderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type createOrderRequest struct {
	Items    []orderItemRequest `json:"items"`
	Shipping shippingDTO        `json:"shipping_info"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	userID, err := userFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	items := make([]appOrder.ItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, appOrder.ItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	o, err := h.svc.Orders.CreateOrder(r.Context(), appOrder.CreateOrderInput{
		UserID:   userID,
		Items:    items,
		Shipping: req.Shipping.toDomain(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, orderFromDomain(o), "order created")
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	act, err := actorFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.svc.Orders.Get(r.Context(), act, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, orderFromView(view), "")
}

func (h *Handler) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	act, err := actorFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Status == "" {
		writeError(w, r, missingParam("status"))
		return
	}
	o, err := h.svc.Orders.UpdateStatus(r.Context(), act, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeOrderFor(w, r, act, o, "order status updated")
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	act, err := actorFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.svc.Orders.Cancel(r.Context(), act, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeOrderFor(w, r, act, o, "order canceled")
}

// writeOrderFor renders a mutated order through the caller's scope so a store operator only
// gets its own lines back.
func (h *Handler) writeOrderFor(w http.ResponseWriter, r *http.Request, act actor.Context, o *order.Order, message string) {
	if !act.IsStore() {
		writeData(w, http.StatusOK, orderFromDomain(o), message)
		return
	}
	storeOf, err := h.svc.Store.StoreOf(r.Context(), o)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, _ := storeview.ProjectOrder(o, act.StoreID, storeOf)
	writeData(w, http.StatusOK, orderFromView(view), message)
}
