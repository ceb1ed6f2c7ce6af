package handler

import (
	"net/http"

	appmw "github.com/detodo/marketplace-backend/internal/middleware"
	"github.com/detodo/marketplace-backend/internal/model"
	"github.com/detodo/marketplace-backend/internal/service"
	"github.com/labstack/echo/v4"
)

type MessageHandler struct {
	svc service.MessageService
}

func NewMessageHandler(svc service.MessageService) *MessageHandler {
	return &MessageHandler{svc: svc}
}

type PostMessageRequest struct {
	Body string `json:"body"`
}

func (h *MessageHandler) List(c echo.Context) error {
	msgs, err := h.svc.List(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err, "fetch messages")
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"messages": msgs})
}

func (h *MessageHandler) Post(c echo.Context) error {
	var req PostMessageRequest
	if err := c.Bind(&req); err != nil {
		return badJSON(c)
	}
	msg, err := h.svc.Post(c.Request().Context(), c.Param("id"), appmw.IdentityFrom(c), req.Body)
	if err != nil {
		return writeError(c, err, "post message")
	}
	return c.JSON(http.StatusCreated, msg)
}
