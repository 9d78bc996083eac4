package httpapi

import (
	"net/http"

	"covoy.app/internal/audit"
	"covoy.app/internal/payments"
)

type createOrderRequest struct {
	Amount        int64            `json:"amount"`
	Purpose       payments.Purpose `json:"purpose"`
	RideRequestID string           `json:"ride_request_id"`
}

func (a *API) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	order, err := a.payments.CreateOrder(r.Context(), identity(r.Context()), req.Amount, req.Purpose, req.RideRequestID)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "payment_order_created", map[string]any{
		"order_id": order.OrderID,
		"amount":   order.Amount,
		"purpose":  string(req.Purpose),
	})
	writeJSON(w, http.StatusOK, order)
}

func (a *API) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var cb payments.Callback
	if err := decodeJSON(w, r, &cb); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	settlement, err := a.payments.Settle(r.Context(), identity(r.Context()), cb)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "payment_settled", map[string]any{
		"order_id":   cb.OrderID,
		"payment_id": cb.PaymentID,
		"purpose":    string(cb.Purpose),
	})
	writeJSON(w, http.StatusOK, settlement)
}
