package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"techstore/internal/auth"
	"techstore/internal/errs"
	"techstore/internal/models"
)

type createSessionRequest struct {
	Items        []models.CartLine   `json:"items"`
	CustomerInfo models.CustomerInfo `json:"customer_info"`
}

func (h *Handler) CreatePaymentSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, "CreatePaymentSession", errs.Validation("invalid request body: %v", err))
		return
	}

	session, err := h.Checkout.CreatePaymentSession(r.Context(), auth.CustomerID(r.Context()), req.Items, req.CustomerInfo)
	if err != nil {
		h.fail(w, "CreatePaymentSession", err)
		return
	}
	h.ok(w, http.StatusCreated, "Payment session created", session)
}

func (h *Handler) PaymentSessionStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		h.fail(w, "PaymentSessionStatus", errs.Validation("session id is required"))
		return
	}

	session, err := h.Checkout.Status(r.Context(), sessionID)
	if err != nil {
		h.fail(w, "PaymentSessionStatus", err)
		return
	}
	h.ok(w, http.StatusOK, "", session)
}

type confirmPaymentRequest struct {
	PaymentMethod string `json:"payment_method,omitempty"`
}

func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		h.fail(w, "ConfirmPayment", errs.Validation("session id is required"))
		return
	}

	var req confirmPaymentRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	result, err := h.Checkout.ConfirmPayment(r.Context(), sessionID, req.PaymentMethod)
	if err != nil {
		h.fail(w, "ConfirmPayment", err)
		return
	}
	h.ok(w, http.StatusOK, "Payment confirmed", result)
}

func (h *Handler) CancelPaymentSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		h.fail(w, "CancelPaymentSession", errs.Validation("session id is required"))
		return
	}

	if err := h.Checkout.CancelPayment(r.Context(), sessionID); err != nil {
		h.fail(w, "CancelPaymentSession", err)
		return
	}
	h.ok(w, http.StatusOK, "Payment session cancelled", nil)
}

type cashPaymentRequest struct {
	Items        []models.CartLine   `json:"items"`
	CustomerInfo models.CustomerInfo `json:"customer_info"`
}

func (h *Handler) ProcessCashPayment(w http.ResponseWriter, r *http.Request) {
	var req cashPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, "ProcessCashPayment", errs.Validation("invalid request body: %v", err))
		return
	}

	result, err := h.Checkout.ProcessCashPayment(r.Context(), req.Items, req.CustomerInfo)
	if err != nil {
		h.fail(w, "ProcessCashPayment", err)
		return
	}
	h.ok(w, http.StatusOK, "Cash payment processed", result)
}
