// Package api exposes the storefront over HTTP. Handlers decode, call one
// service method, and write the JSON envelope; no business rules live here.
package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"techstore/internal/catalog"
	"techstore/internal/checkout"
	"techstore/internal/customer"
	"techstore/internal/errs"
	"techstore/internal/logger"
	"techstore/internal/notification"
	"techstore/internal/order"
	"techstore/internal/order/storage"
	"techstore/internal/preorder"
	"techstore/internal/utils"
)

type Handler struct {
	Orders        *order.Service
	PreOrders     *preorder.Service
	Checkout      *checkout.Service
	Catalog       *catalog.Service
	Customers     *customer.Service
	Notifications *notification.Service
	Cancellations *storage.CancellationStore
	Logger        *logger.Logger
}

func NewHandler(
	orders *order.Service,
	preOrders *preorder.Service,
	checkoutSvc *checkout.Service,
	catalogSvc *catalog.Service,
	customers *customer.Service,
	notifications *notification.Service,
	cancellations *storage.CancellationStore,
	log *logger.Logger,
) *Handler {
	return &Handler{
		Orders:        orders,
		PreOrders:     preOrders,
		Checkout:      checkoutSvc,
		Catalog:       catalogSvc,
		Customers:     customers,
		Notifications: notifications,
		Cancellations: cancellations,
		Logger:        log,
	}
}

// fail logs the error and writes the envelope with the mapped status.
func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if h.Logger != nil {
		h.Logger.Error("API", op+": "+err.Error())
	}
	utils.WriteJSON(w, errs.HTTPStatus(err), utils.ErrorResponse(err.Error()))
}

func (h *Handler) ok(w http.ResponseWriter, status int, message string, data interface{}) {
	utils.WriteJSON(w, status, utils.SuccessResponse(message, data))
}

// idParam parses a numeric chi URL parameter.
func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.Validation("invalid %s %q", name, raw)
	}
	return id, nil
}
