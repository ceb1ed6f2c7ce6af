package handler

import (
	"net/http"
	"strconv"
	"time"

	appmw "github.com/detodo/marketplace-backend/internal/middleware"
	"github.com/detodo/marketplace-backend/internal/model"
	"github.com/detodo/marketplace-backend/internal/service"
	"github.com/labstack/echo/v4"
)

type NotificationHandler struct {
	svc service.NotificationService
}

func NewNotificationHandler(svc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

type NotificationResponse struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Title     string  `json:"title"`
	Body      string  `json:"body,omitempty"`
	ProductID *string `json:"productId,omitempty"`
	TradeID   *string `json:"tradeId,omitempty"`
	Read      bool    `json:"read"`
	CreatedAt string  `json:"createdAt"`
}

func toNotificationResponse(n model.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Body:      n.Body,
		ProductID: n.ProductID,
		TradeID:   n.TradeID,
		Read:      n.ReadAt != nil,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
}

func (h *NotificationHandler) List(c echo.Context) error {
	unreadOnly := c.QueryParam("unread_only") != "false"
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	list, unreadCount, err := h.svc.List(c.Request().Context(), appmw.IdentityFrom(c).UserID, unreadOnly, limit)
	if err != nil {
		return writeError(c, err, "fetch notifications")
	}
	resp := make([]NotificationResponse, 0, len(list))
	for _, n := range list {
		resp = append(resp, toNotificationResponse(n))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"notifications": resp,
		"unreadCount":   unreadCount,
	})
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	if err := h.svc.MarkAllRead(c.Request().Context(), appmw.IdentityFrom(c).UserID); err != nil {
		return writeError(c, err, "mark notifications read")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
