package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"techstore/internal/auth"
	"techstore/internal/utils"
)

// Router builds the full route tree. Checkout session endpoints are public
// so the storefront can stage a payment before the customer logs in;
// everything touching an identified cart or staff surface sits behind the
// JWT middleware.
func Router(h *Handler, jwtSecret string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("ok", nil))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public product reads.
		r.Get("/products/{productID}", h.GetProduct)
		r.Get("/products/{productID}/stock", h.ProductStock)

		// Public checkout surface.
		r.Route("/payment", func(r chi.Router) {
			r.Post("/sessions", h.CreatePaymentSession)
			r.Get("/sessions/{sessionID}", h.PaymentSessionStatus)
			r.Post("/sessions/{sessionID}/confirm", h.ConfirmPayment)
			r.Post("/sessions/{sessionID}/cancel", h.CancelPaymentSession)
		})

		// Authenticated customer surface.
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(jwtSecret))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.GetCart)
				r.Post("/items", h.AddToCart)
				r.Put("/items/{productID}", h.UpdateCartQuantity)
				r.Delete("/items/{productID}", h.RemoveFromCart)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.ListNotifications)
				r.Post("/{notificationID}/read", h.MarkNotificationRead)
				r.Post("/read-all", h.MarkAllNotificationsRead)
				r.Delete("/", h.ClearNotifications)
			})

			r.Get("/orders/{orderID}", h.GetOrder)
			r.Post("/orders/{orderID}/cancel", h.CancelOrder)
			r.Post("/orders/{orderID}/cancel-items", h.CancelOrderItems)

			r.Get("/preorders/{preOrderID}", h.GetPreOrder)
			r.Get("/preorders/{preOrderID}/payments", h.PreOrderPayments)
			r.Post("/preorders/{preOrderID}/cancel", h.CancelPreOrder)
		})

		// Staff surface.
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(jwtSecret))
			r.Use(auth.RequireStaff)

			r.Post("/orders", h.CreateOrder)
			r.Get("/orders", h.ListOrders)
			r.Get("/orders/summary", h.OrderStatusSummary)
			r.Put("/orders/{orderID}/status", h.UpdateOrderStatus)
			r.Post("/orders/{orderID}/items/{productID}/cancel", h.CancelSingleItem)
			r.Post("/orders/{orderID}/items/{itemID}/cancel-quantity", h.CancelItemQuantity)
			r.Get("/orders/{orderID}/cancellations", h.OrderCancellationHistory)

			r.Post("/preorders", h.CreatePreOrder)
			r.Get("/preorders", h.ListPreOrders)
			r.Get("/preorders/recent", h.RecentPreOrders)
			r.Get("/preorders/stats", h.PreOrderStats)
			r.Post("/preorders/{preOrderID}/payments", h.AddPreOrderPayment)
			r.Post("/preorders/{preOrderID}/ready", h.MarkPreOrderReady)
			r.Post("/preorders/{preOrderID}/complete", h.CompletePreOrder)
			r.Put("/preorders/{preOrderID}/status", h.UpdatePreOrderStatus)
			r.Put("/preorders/{preOrderID}/availability", h.UpdatePreOrderAvailability)
			r.Delete("/preorders/{preOrderID}", h.DeletePreOrder)

			r.Post("/payment/cash", h.ProcessCashPayment)
		})
	})

	return r
}
