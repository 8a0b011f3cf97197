package api

import (
	"encoding/json"
	"net/http"

	"techstore/internal/auth"
	"techstore/internal/errs"
)

type cartItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.Orders.Cart(r.Context(), auth.CustomerID(r.Context()))
	if err != nil {
		h.fail(w, "GetCart", err)
		return
	}
	h.ok(w, http.StatusOK, "", cart)
}

func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, "AddToCart", errs.Validation("invalid request body: %v", err))
		return
	}

	orderID, err := h.Orders.AddToCart(r.Context(), auth.CustomerID(r.Context()), req.ProductID, req.Quantity)
	if err != nil {
		h.fail(w, "AddToCart", err)
		return
	}
	h.ok(w, http.StatusOK, "Item added to cart", map[string]int64{"order_id": orderID})
}

func (h *Handler) UpdateCartQuantity(w http.ResponseWriter, r *http.Request) {
	productID, err := idParam(r, "productID")
	if err != nil {
		h.fail(w, "UpdateCartQuantity", err)
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, "UpdateCartQuantity", errs.Validation("invalid request body: %v", err))
		return
	}

	if err := h.Orders.UpdateCartQuantity(r.Context(), auth.CustomerID(r.Context()), productID, req.Quantity); err != nil {
		h.fail(w, "UpdateCartQuantity", err)
		return
	}
	h.ok(w, http.StatusOK, "Cart updated", nil)
}

func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	productID, err := idParam(r, "productID")
	if err != nil {
		h.fail(w, "RemoveFromCart", err)
		return
	}

	if err := h.Orders.RemoveFromCart(r.Context(), auth.CustomerID(r.Context()), productID); err != nil {
		h.fail(w, "RemoveFromCart", err)
		return
	}
	h.ok(w, http.StatusOK, "Item removed from cart", nil)
}
