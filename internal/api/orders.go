package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"techstore/internal/auth"
	"techstore/internal/errs"
	"techstore/internal/models"
)

type createOrderRequest struct {
	CustomerID    int64              `json:"customer_id"`
	Items         []models.OrderLine `json:"items"`
	Status        string             `json:"status,omitempty"`
	PaymentMethod string             `json:"payment_method,omitempty"`
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, "CreateOrder", errs.Validation("invalid request body: %v", err))
		return
	}

	status := models.OrderPending
	if req.Status != "" {
		parsed, err := models.ParseOrderStatus(req.Status)
		if err != nil {
			h.fail(w, "CreateOrder", errs.Validation("%v", err))
			return
		}
		status = parsed
	}

	orderID, err := h.Orders.Create(r.Context(), req.CustomerID, req.Items, status, req.PaymentMethod)
	if err != nil {
		h.fail(w, "CreateOrder", err)
		return
	}
	h.ok(w, http.StatusCreated, "Order created", map[string]int64{"order_id": orderID})
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := idParam(r, "orderID")
	if err != nil {
		h.fail(w, "GetOrder", err)
		return
	}

	orderData, err := h.Orders.Get(r.Context(), orderID)
	if err != nil {
		h.fail(w, "GetOrder", err)
		return
	}
	h.ok(w, http.StatusOK, "", orderData)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	status := r.URL.Query().Get("status")

	orders, total, err := h.Orders.Paginated(r.Context(), status, page, pageSize)
	if err != nil {
		h.fail(w, "ListOrders", err)
		return
	}
	h.ok(w, http.StatusOK, "", map[string]interface{}{
		"orders": orders,
		"total":  total,
	})
}

func (h *Handler) OrderStatusSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Orders.StatusSummary(r.Context())
	if err != nil {
		h.fail(w, "OrderStatusSummary", err)
		return
	}
	h.ok(w, http.StatusOK, "", summary)
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := idParam(r, "orderID")
	if err != nil {
		h.fail(w, "CancelOrder", err)
		return
	}

	var req cancelOrderRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Reason == "" {
		req.Reason = "customer request"
	}

	result, err := h.Orders.CancelOrder(r.Context(), orderID, req.Reason)
	if err != nil {
		h.fail(w, "CancelOrder", err)
		return
	}
	h.ok(w, http.StatusOK, "Order cancelled", result)
}

type cancelItemsRequest struct {
	ItemIDs []int64 `json:"item_ids"`
	Reason  string  `json:"reason"`
}

func (h *Handler) CancelOrderItems(w http.ResponseWriter, r *http.Request) {
	orderID, err := idParam(r, "orderID")
	if err != nil {
		h.fail(w, "CancelOrderItems", err)
		return
	}

	var req cancelItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, "CancelOrderItems", errs.Validation("invalid request body: %v", err))
		return
	}

	result, err := h.Orders.CancelOrderItems(r.Context(), orderID, req.ItemIDs, req.Reason)
	if err != nil {
		h.fail(w, "CancelOrderItems", err)
		return
	}
	h.ok(w, http.StatusOK, "Items cancelled", result)
}

type cancelSingleItemRequest struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes,omitempty"`
}

func (h *Handler) CancelSingleItem(w http.ResponseWriter, r *http.Request) {
	orderID, err := idParam(r, "orderID")
	if err != nil {
		h.fail(w, "CancelSingleItem", err)
		return
	}
	productID, err := idParam(r, "productID")
	if err != nil {
		h.fail(w, "CancelSingleItem", err)
		return
	}

	var req cancelSingleItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, "CancelSingleItem", errs.Validation("invalid request body: %v", err))
		return
	}
	if req.Reason == "" {
		h.fail(w, "CancelSingleItem", errs.Validation("cancellation reason is required"))
		return
	}

	result, err := h.Orders.CancelSingleItem(r.Context(), orderID, productID, req.Reason, auth.CustomerID(r.Context()), req.Notes)
	if err != nil {
		h.fail(w, "CancelSingleItem", err)
		return
	}
	h.ok(w, http.StatusOK, "Item cancelled", result)
}

type cancelQuantityRequest struct {
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
	Notes    string `json:"notes,omitempty"`
}

func (h *Handler) CancelItemQuantity(w http.ResponseWriter, r *http.Request) {
	orderID, err := idParam(r, "orderID")
	if err != nil {
		h.fail(w, "CancelItemQuantity", err)
		return
	}
	itemID, err := idParam(r, "itemID")
	if err != nil {
		h.fail(w, "CancelItemQuantity", err)
		return
	}

	var req cancelQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, "CancelItemQuantity", errs.Validation("invalid request body: %v", err))
		return
	}

	result, err := h.Orders.CancelItemQuantity(r.Context(), orderID, itemID, req.Quantity, req.Reason, auth.CustomerID(r.Context()), req.Notes)
	if err != nil {
		h.fail(w, "CancelItemQuantity", err)
		return
	}

	message := fmt.Sprintf("Cancelled %d x %s", result.CancelledQuantity, result.ProductName)
	h.ok(w, http.StatusOK, message, result)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := idParam(r, "orderID")
	if err != nil {
		h.fail(w, "UpdateOrderStatus", err)
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, "UpdateOrderStatus", errs.Validation("invalid request body: %v", err))
		return
	}

	if err := h.Orders.UpdateStatus(r.Context(), orderID, req.Status); err != nil {
		h.fail(w, "UpdateOrderStatus", err)
		return
	}
	h.ok(w, http.StatusOK, "Order status updated", nil)
}

func (h *Handler) OrderCancellationHistory(w http.ResponseWriter, r *http.Request) {
	orderID, err := idParam(r, "orderID")
	if err != nil {
		h.fail(w, "OrderCancellationHistory", err)
		return
	}

	history, err := h.Cancellations.ByOrder(orderID)
	if err != nil {
		h.fail(w, "OrderCancellationHistory", err)
		return
	}
	h.ok(w, http.StatusOK, "", history)
}
