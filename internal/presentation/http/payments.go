package httppresentation

import (
	"net/http"

	appPayment "github.com/Zhima-Mochi/marketplace/app/internal/application/payment"
)

type chargeRequest struct {
	OrderID string `json:"order_id"`
	Nonce   string `json:"payment_method_nonce"`
	Method  string `json:"method"`
}

type chargeResponse struct {
	Payment paymentResponse `json:"payment"`
	Order   orderResponse   `json:"order"`
}

func (h *Handler) handleClientToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.svc.Payments.ClientToken(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"client_token": token}, "")
}

func (h *Handler) handleCharge(w http.ResponseWriter, r *http.Request) {
	var req chargeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Payments.Charge(r.Context(), appPayment.ChargeInput{
		OrderID: req.OrderID,
		Nonce:   req.Nonce,
		Method:  req.Method,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, chargeResponse{
		Payment: paymentFromDomain(res.Payment, res.Order),
		Order:   orderFromDomain(res.Order),
	}, "payment settled")
}

func (h *Handler) handlePaymentHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f, err := filterFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.svc.Payments.History(r.Context(), userID, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, pageFrom(page, paymentFromView), "")
}
