package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"techstore/internal/errs"
)

type createPreOrderRequest struct {
	CustomerID               int64   `json:"customer_id"`
	ProductID                int64   `json:"product_id"`
	Quantity                 int     `json:"quantity"`
	ExpectedPrice            float64 `json:"expected_price"`
	Notes                    string  `json:"notes,omitempty"`
	ExpectedAvailabilityDate string  `json:"expected_availability_date,omitempty"`
	DepositPercent           int     `json:"deposit_percent,omitempty"`
	PaymentMethod            string  `json:"payment_method,omitempty"`
}

func (h *Handler) CreatePreOrder(w http.ResponseWriter, r *http.Request) {
	var req createPreOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, "CreatePreOrder", errs.Validation("invalid request body: %v", err))
		return
	}

	switch req.DepositPercent {
	case 0, 25, 50, 100:
	default:
		h.fail(w, "CreatePreOrder", errs.Validation("deposit_percent must be 0, 25, 50 or 100"))
		return
	}

	var expected *time.Time
	if req.ExpectedAvailabilityDate != "" {
		parsed, err := time.Parse("2006-01-02", req.ExpectedAvailabilityDate)
		if err != nil {
			h.fail(w, "CreatePreOrder", errs.Validation("invalid expected_availability_date, want YYYY-MM-DD"))
			return
		}
		expected = &parsed
	}

	if req.Quantity <= 0 {
		h.fail(w, "CreatePreOrder", errs.Validation("quantity must be positive"))
		return
	}

	// Pre-orders are for out-of-stock products only. Remaining units go
	// through a regular order first.
	product, err := h.Catalog.Product(r.Context(), req.ProductID)
	if err != nil {
		h.fail(w, "CreatePreOrder", err)
		return
	}
	if product.Stock > 0 {
		h.fail(w, "CreatePreOrder", errs.Validation("product %q has %d in stock; place a regular order", product.Name, product.Stock))
		return
	}

	po, err := h.PreOrders.Create(r.Context(), req.CustomerID, req.ProductID, req.Quantity, req.ExpectedPrice, req.Notes, expected)
	if err != nil {
		h.fail(w, "CreatePreOrder", err)
		return
	}

	if req.DepositPercent > 0 {
		amount := po.TotalPrice() * float64(req.DepositPercent) / 100
		method := req.PaymentMethod
		if method == "" {
			method = "Cash"
		}
		if _, err := h.PreOrders.AddDepositPayment(r.Context(), po.ID, amount, method, "", "initial deposit"); err != nil {
			h.fail(w, "CreatePreOrder", err)
			return
		}
		if po, err = h.PreOrders.Get(r.Context(), po.ID); err != nil {
			h.fail(w, "CreatePreOrder", err)
			return
		}
	}
	h.ok(w, http.StatusCreated, "Pre-order created", po)
}

func (h *Handler) GetPreOrder(w http.ResponseWriter, r *http.Request) {
	preOrderID, err := idParam(r, "preOrderID")
	if err != nil {
		h.fail(w, "GetPreOrder", err)
		return
	}

	po, err := h.PreOrders.Get(r.Context(), preOrderID)
	if err != nil {
		h.fail(w, "GetPreOrder", err)
		return
	}
	h.ok(w, http.StatusOK, "", po)
}

func (h *Handler) ListPreOrders(w http.ResponseWriter, r *http.Request) {
	if status := r.URL.Query().Get("status"); status != "" {
		pos, err := h.PreOrders.ByStatus(r.Context(), status)
		if err != nil {
			h.fail(w, "ListPreOrders", err)
			return
		}
		h.ok(w, http.StatusOK, "", pos)
		return
	}

	pos, err := h.PreOrders.Active(r.Context())
	if err != nil {
		h.fail(w, "ListPreOrders", err)
		return
	}
	h.ok(w, http.StatusOK, "", pos)
}

func (h *Handler) RecentPreOrders(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.fail(w, "RecentPreOrders", errs.Validation("invalid limit %q", raw))
			return
		}
		limit = parsed
	}

	pos, err := h.PreOrders.Recent(r.Context(), limit)
	if err != nil {
		h.fail(w, "RecentPreOrders", err)
		return
	}
	h.ok(w, http.StatusOK, "", pos)
}

func (h *Handler) PreOrderStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.PreOrders.Stats(r.Context())
	if err != nil {
		h.fail(w, "PreOrderStats", err)
		return
	}
	h.ok(w, http.StatusOK, "", stats)
}

type addPaymentRequest struct {
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
	Notes         string  `json:"notes,omitempty"`
}

func (h *Handler) AddPreOrderPayment(w http.ResponseWriter, r *http.Request) {
	preOrderID, err := idParam(r, "preOrderID")
	if err != nil {
		h.fail(w, "AddPreOrderPayment", err)
		return
	}

	var req addPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, "AddPreOrderPayment", errs.Validation("invalid request body: %v", err))
		return
	}

	payment, err := h.PreOrders.AddDepositPayment(r.Context(), preOrderID, req.Amount, req.PaymentMethod, "", req.Notes)
	if err != nil {
		h.fail(w, "AddPreOrderPayment", err)
		return
	}
	h.ok(w, http.StatusCreated, "Payment recorded", payment)
}

func (h *Handler) PreOrderPayments(w http.ResponseWriter, r *http.Request) {
	preOrderID, err := idParam(r, "preOrderID")
	if err != nil {
		h.fail(w, "PreOrderPayments", err)
		return
	}

	payments, err := h.PreOrders.Payments(r.Context(), preOrderID)
	if err != nil {
		h.fail(w, "PreOrderPayments", err)
		return
	}

	total, err := h.PreOrders.TotalPaid(r.Context(), preOrderID)
	if err != nil {
		h.fail(w, "PreOrderPayments", err)
		return
	}
	h.ok(w, http.StatusOK, "", map[string]interface{}{
		"payments":   payments,
		"total_paid": total,
	})
}

func (h *Handler) MarkPreOrderReady(w http.ResponseWriter, r *http.Request) {
	preOrderID, err := idParam(r, "preOrderID")
	if err != nil {
		h.fail(w, "MarkPreOrderReady", err)
		return
	}

	if err := h.PreOrders.MarkReadyForPickup(r.Context(), preOrderID); err != nil {
		h.fail(w, "MarkPreOrderReady", err)
		return
	}
	h.ok(w, http.StatusOK, "Pre-order marked ready for pickup", nil)
}

type completePreOrderRequest struct {
	PaymentMethod string `json:"payment_method"`
}

func (h *Handler) CompletePreOrder(w http.ResponseWriter, r *http.Request) {
	preOrderID, err := idParam(r, "preOrderID")
	if err != nil {
		h.fail(w, "CompletePreOrder", err)
		return
	}

	var req completePreOrderRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.PaymentMethod == "" {
		req.PaymentMethod = "Cash"
	}

	orderID, err := h.PreOrders.Complete(r.Context(), preOrderID, req.PaymentMethod)
	if err != nil {
		h.fail(w, "CompletePreOrder", err)
		return
	}
	h.ok(w, http.StatusOK, "Pre-order completed", map[string]int64{"order_id": orderID})
}

func (h *Handler) CancelPreOrder(w http.ResponseWriter, r *http.Request) {
	preOrderID, err := idParam(r, "preOrderID")
	if err != nil {
		h.fail(w, "CancelPreOrder", err)
		return
	}

	var req cancelOrderRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Reason == "" {
		req.Reason = "customer request"
	}

	refund, err := h.PreOrders.Cancel(r.Context(), preOrderID, req.Reason)
	if err != nil {
		h.fail(w, "CancelPreOrder", err)
		return
	}
	h.ok(w, http.StatusOK, "Pre-order cancelled", refund)
}

func (h *Handler) DeletePreOrder(w http.ResponseWriter, r *http.Request) {
	preOrderID, err := idParam(r, "preOrderID")
	if err != nil {
		h.fail(w, "DeletePreOrder", err)
		return
	}

	if err := h.PreOrders.Delete(r.Context(), preOrderID); err != nil {
		h.fail(w, "DeletePreOrder", err)
		return
	}
	h.ok(w, http.StatusOK, "Pre-order deleted", nil)
}

func (h *Handler) UpdatePreOrderStatus(w http.ResponseWriter, r *http.Request) {
	preOrderID, err := idParam(r, "preOrderID")
	if err != nil {
		h.fail(w, "UpdatePreOrderStatus", err)
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, "UpdatePreOrderStatus", errs.Validation("invalid request body: %v", err))
		return
	}

	if err := h.PreOrders.UpdateStatus(r.Context(), preOrderID, req.Status); err != nil {
		h.fail(w, "UpdatePreOrderStatus", err)
		return
	}
	h.ok(w, http.StatusOK, "Pre-order status updated", nil)
}

type availabilityRequest struct {
	ExpectedAvailabilityDate string `json:"expected_availability_date"`
}

func (h *Handler) UpdatePreOrderAvailability(w http.ResponseWriter, r *http.Request) {
	preOrderID, err := idParam(r, "preOrderID")
	if err != nil {
		h.fail(w, "UpdatePreOrderAvailability", err)
		return
	}

	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, "UpdatePreOrderAvailability", errs.Validation("invalid request body: %v", err))
		return
	}

	var expected *time.Time
	if req.ExpectedAvailabilityDate != "" {
		parsed, err := time.Parse("2006-01-02", req.ExpectedAvailabilityDate)
		if err != nil {
			h.fail(w, "UpdatePreOrderAvailability", errs.Validation("invalid expected_availability_date, want YYYY-MM-DD"))
			return
		}
		expected = &parsed
	}

	if err := h.PreOrders.UpdateAvailabilityDate(r.Context(), preOrderID, expected); err != nil {
		h.fail(w, "UpdatePreOrderAvailability", err)
		return
	}
	h.ok(w, http.StatusOK, "Availability date updated", nil)
}
