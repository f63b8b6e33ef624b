package httppresentation

import (
	"net/http"
	"strconv"

	"github.com/Zhima-Mochi/marketplace/app/internal/application/storeview"
	"github.com/Zhima-Mochi/marketplace/app/internal/domain/actor"
	"github.com/Zhima-Mochi/marketplace/app/internal/pkg/apperr"
)

// storeRequest parses the actor and list filter shared by every /store route.
func storeRequest(w http.ResponseWriter, r *http.Request) (actor.Context, storeview.Filter, bool) {
	act, err := actorFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return actor.Context{}, storeview.Filter{}, false
	}
	f, err := filterFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return actor.Context{}, storeview.Filter{}, false
	}
	return act, f, true
}

func (h *Handler) handleStoreOrders(w http.ResponseWriter, r *http.Request) {
	act, f, ok := storeRequest(w, r)
	if !ok {
		return
	}
	page, err := h.svc.Store.Orders(r.Context(), act, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, pageFrom(page, orderFromView), "")
}

func (h *Handler) handleStorePayments(w http.ResponseWriter, r *http.Request) {
	act, f, ok := storeRequest(w, r)
	if !ok {
		return
	}
	page, err := h.svc.Payments.StorePayments(r.Context(), act, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, pageFrom(page, paymentFromView), "")
}

func (h *Handler) handleStoreReviews(w http.ResponseWriter, r *http.Request) {
	act, f, ok := storeRequest(w, r)
	if !ok {
		return
	}
	page, err := h.svc.Store.Reviews(r.Context(), act, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, pageFrom(page, reviewFromView), "")
}

func (h *Handler) handleStoreStats(w http.ResponseWriter, r *http.Request) {
	act, f, ok := storeRequest(w, r)
	if !ok {
		return
	}
	stats, err := h.svc.Store.Stats(r.Context(), act, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, statsFrom(stats), "")
}

// handleLowStock lists the calling store's products at or below threshold, lowest first.
func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	act, err := actorFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !act.IsStore() {
		writeError(w, r, apperr.Unauthorized("low stock is listed per store"))
		return
	}
	threshold := h.svc.LowStockThreshold
	if v := r.URL.Query().Get("threshold"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, apperr.Validation("threshold must be a non-negative integer"))
			return
		}
		threshold = n
	}
	products, err := h.svc.Catalog.LowStock(r.Context(), act.StoreID, threshold)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items := make([]productResponse, 0, len(products))
	for _, p := range products {
		items = append(items, productFromDomain(p))
	}
	writeData(w, http.StatusOK, items, "")
}
