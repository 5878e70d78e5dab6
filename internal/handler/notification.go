package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/home-service-booking/internal/model"
	"github.com/iliyamo/home-service-booking/internal/repository"
)

// NotificationHandler exposes the consumer-visible read/ack surface over
// notification records.  Delivery itself is the worker's business; these
// endpoints only let a user browse and acknowledge their own records.
type NotificationHandler struct {
	Notifications *repository.NotificationRepo
}

// NewNotificationHandler constructs a NotificationHandler.
func NewNotificationHandler(notifications *repository.NotificationRepo) *NotificationHandler {
	if notifications == nil {
		panic("nil repository passed to NewNotificationHandler")
	}
	return &NotificationHandler{Notifications: notifications}
}

type notificationResp struct {
	ID        uint64                    `json:"id"`
	Type      string                    `json:"type"`
	Channel   string                    `json:"channel"`
	Payload   model.NotificationPayload `json:"payload"`
	Status    string                    `json:"status"`
	Read      bool                      `json:"read"`
	CreatedAt time.Time                 `json:"created_at"`
}

// List handles GET /v1/notifications.
func (h *NotificationHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	records, err := h.Notifications.ListByUser(c.Request().Context(), userID, limit)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]notificationResp, 0, len(records))
	for _, n := range records {
		out = append(out, notificationResp{
			ID:        n.ID,
			Type:      n.Type,
			Channel:   string(n.Channel),
			Payload:   n.Payload,
			Status:    string(n.Status),
			Read:      n.ReadAt != nil,
			CreatedAt: n.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": out})
}

// MarkRead handles PUT /v1/notifications/:id/read.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid notification id"})
	}
	if err := h.Notifications.MarkRead(c.Request().Context(), id, userID, time.Now().UTC()); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkAllRead handles PUT /v1/notifications/read-all.
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	n, err := h.Notifications.MarkAllRead(c.Request().Context(), userID, time.Now().UTC())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": n})
}

// Delete handles DELETE /v1/notifications/:id.
func (h *NotificationHandler) Delete(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid notification id"})
	}
	if err := h.Notifications.Delete(c.Request().Context(), id, userID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
