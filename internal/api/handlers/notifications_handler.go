package handlers

import (
	"net/http"

	"github.com/modelmagic/portal/internal/services"
)

type NotificationsHandler struct {
	notifications services.NotificationService
}

func NewNotificationsHandler(notifications services.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications}
}

func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	viewer, err := viewerFrom(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	page, size := pageParams(r)
	unreadOnly := r.URL.Query().Get("unread") == "true"
	items, total, err := h.notifications.List(r.Context(), viewer.UserID, unreadOnly, page, size)
	if err != nil {
		fail(w, r, err)
		return
	}
	unread, err := h.notifications.UnreadCount(r.Context(), viewer.UserID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writePage(w, r, map[string]any{"items": items, "unread_count": unread}, page, size, total)
}

func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	viewer, err := viewerFrom(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.notifications.MarkRead(r.Context(), id, viewer.UserID); err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, map[string]any{"id": id, "read": true})
}

func (h *NotificationsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	viewer, err := viewerFrom(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	n, err := h.notifications.MarkAllRead(r.Context(), viewer.UserID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, map[string]int64{"updated": n})
}
