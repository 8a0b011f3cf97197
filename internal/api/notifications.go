package api

import (
	"net/http"

	"techstore/internal/auth"
)

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	unreadOnly := r.URL.Query().Get("unread") == "true"

	notifications, err := h.Notifications.For(r.Context(), auth.CustomerID(r.Context()), unreadOnly)
	if err != nil {
		h.fail(w, "ListNotifications", err)
		return
	}
	h.ok(w, http.StatusOK, "", notifications)
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	notificationID, err := idParam(r, "notificationID")
	if err != nil {
		h.fail(w, "MarkNotificationRead", err)
		return
	}

	if err := h.Notifications.MarkRead(r.Context(), auth.CustomerID(r.Context()), notificationID); err != nil {
		h.fail(w, "MarkNotificationRead", err)
		return
	}
	h.ok(w, http.StatusOK, "Notification marked read", nil)
}

func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	count, err := h.Notifications.MarkAllRead(r.Context(), auth.CustomerID(r.Context()))
	if err != nil {
		h.fail(w, "MarkAllNotificationsRead", err)
		return
	}
	h.ok(w, http.StatusOK, "Notifications marked read", map[string]int64{"marked": count})
}

func (h *Handler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	count, err := h.Notifications.Clear(r.Context(), auth.CustomerID(r.Context()))
	if err != nil {
		h.fail(w, "ClearNotifications", err)
		return
	}
	h.ok(w, http.StatusOK, "Notifications cleared", map[string]int64{"deleted": count})
}
