package handler

import (
	"net/http"
	"strconv"

	"github.com/xenking/instasupply/internal/domain/apperr"
	"github.com/xenking/instasupply/internal/domain/notification"
)

var errNotificationNotFound = &apperr.NotFoundError{Entity: "notification", Message: "Notification not found"}

type inboxResponse struct {
	Success       bool                 `json:"success"`
	Count         int                  `json:"count"`
	Total         int                  `json:"total"`
	UnreadCount   int                  `json:"unreadCount"`
	Page          int                  `json:"page"`
	Pages         int                  `json:"pages"`
	Notifications []notification.Entry `json:"notifications"`
	GroupedByDate []notification.Group `json:"groupedByDate"`
}

type notificationEnvelope struct {
	Success      bool               `json:"success"`
	Message      string             `json:"message"`
	Notification notification.Entry `json:"notification"`
}

type markAllResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Count   int64  `json:"count"`
}

// ListNotifications returns a page of the inbox grouped by date.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := notification.Filter{
		SupplierID: supplierID(r),
		Type:       notification.Type(q.Get("type")),
	}
	if raw := q.Get("isRead"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			handleError(w, r, apperr.Validationf("Invalid isRead: %s", raw), "")
			return
		}
		f.IsRead = &v
	}
	var err error
	if f.Page, err = queryInt(r, "page"); err != nil {
		handleError(w, r, err, "")
		return
	}
	if f.Limit, err = queryInt(r, "limit"); err != nil {
		handleError(w, r, err, "")
		return
	}

	inbox, err := h.notifications.List(r.Context(), f)
	if err != nil {
		handleError(w, r, err, "Failed to fetch notifications")
		return
	}
	entries, groups := inbox.Entries, inbox.Groups
	if entries == nil {
		entries = []notification.Entry{}
	}
	if groups == nil {
		groups = []notification.Group{}
	}
	writeJSON(w, r, http.StatusOK, inboxResponse{
		Success:       true,
		Count:         len(entries),
		Total:         inbox.Total,
		UnreadCount:   inbox.UnreadCount,
		Page:          inbox.Page,
		Pages:         pages(inbox.Total, inbox.Limit),
		Notifications: entries,
		GroupedByDate: groups,
	})
}

// MarkNotificationRead marks one notification as read.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		handleError(w, r, errNotificationNotFound, "")
		return
	}
	n, err := h.notifications.MarkRead(r.Context(), supplierID(r), id)
	if err != nil {
		handleError(w, r, err, "Failed to mark notification as read")
		return
	}
	now := h.now()
	writeJSON(w, r, http.StatusOK, notificationEnvelope{
		Success: true,
		Message: "Notification marked as read",
		Notification: notification.Entry{
			Notification: *n,
			TimeAgo:      notification.TimeAgo(n.CreatedAt, now),
			DateGroup:    notification.DateGroup(n.CreatedAt, now),
		},
	})
}

// MarkAllNotificationsRead marks the whole inbox as read.
func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.notifications.MarkAllRead(r.Context(), supplierID(r))
	if err != nil {
		handleError(w, r, err, "Failed to mark all notifications as read")
		return
	}
	writeJSON(w, r, http.StatusOK, markAllResponse{
		Success: true,
		Message: "All notifications marked as read",
		Count:   n,
	})
}

// DeleteNotification removes one notification.
func (h *Handler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		handleError(w, r, errNotificationNotFound, "")
		return
	}
	if err := h.notifications.Delete(r.Context(), supplierID(r), id); err != nil {
		handleError(w, r, err, "Failed to delete notification")
		return
	}
	writeMessage(w, r, http.StatusOK, "Notification deleted successfully")
}
