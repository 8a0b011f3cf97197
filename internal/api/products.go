package api

import "net/http"

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := idParam(r, "productID")
	if err != nil {
		h.fail(w, "GetProduct", err)
		return
	}

	product, err := h.Catalog.Product(r.Context(), productID)
	if err != nil {
		h.fail(w, "GetProduct", err)
		return
	}
	h.ok(w, http.StatusOK, "", product)
}

func (h *Handler) ProductStock(w http.ResponseWriter, r *http.Request) {
	productID, err := idParam(r, "productID")
	if err != nil {
		h.fail(w, "ProductStock", err)
		return
	}

	status, err := h.Catalog.StockStatus(r.Context(), productID)
	if err != nil {
		h.fail(w, "ProductStock", err)
		return
	}
	h.ok(w, http.StatusOK, "", status)
}
