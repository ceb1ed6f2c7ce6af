package handler

import (
	"net/http"
	"time"

	appmw "github.com/detodo/marketplace-backend/internal/middleware"
	"github.com/detodo/marketplace-backend/internal/model"
	"github.com/detodo/marketplace-backend/internal/service"
	"github.com/labstack/echo/v4"
)

type TradeHandler struct {
	svc service.TradeService
}

func NewTradeHandler(svc service.TradeService) *TradeHandler {
	return &TradeHandler{svc: svc}
}

type TradeResponse struct {
	ID                 string  `json:"id"`
	OfferedProductID   string  `json:"offeredProductId"`
	RequestedProductID string  `json:"requestedProductId"`
	ProposerID         string  `json:"proposerId"`
	OwnerID            string  `json:"ownerId"`
	Status             string  `json:"status"`
	CreatedAt          string  `json:"createdAt"`
	ResolvedAt         *string `json:"resolvedAt,omitempty"`
}

type ProposeTradeRequest struct {
	OfferedProductID   string `json:"offeredProductId"`
	RequestedProductID string `json:"requestedProductId"`
}

func (h *TradeHandler) Propose(c echo.Context) error {
	var req ProposeTradeRequest
	if err := c.Bind(&req); err != nil {
		return badJSON(c)
	}
	t, err := h.svc.Propose(c.Request().Context(), appmw.IdentityFrom(c), service.ProposeInput{
		OfferedProductID:   req.OfferedProductID,
		RequestedProductID: req.RequestedProductID,
	})
	if err != nil {
		return writeError(c, err, "propose trade")
	}
	return c.JSON(http.StatusCreated, toTradeResponse(t))
}

func (h *TradeHandler) List(c echo.Context) error {
	list, err := h.svc.ListFor(c.Request().Context(), appmw.IdentityFrom(c))
	if err != nil {
		return writeError(c, err, "fetch trades")
	}
	resp := make([]TradeResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toTradeResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"trades": resp})
}

func (h *TradeHandler) Get(c echo.Context) error {
	t, err := h.svc.Get(c.Request().Context(), c.Param("id"), appmw.IdentityFrom(c))
	if err != nil {
		return writeError(c, err, "fetch trade")
	}
	return c.JSON(http.StatusOK, toTradeResponse(t))
}

func (h *TradeHandler) Approve(c echo.Context) error {
	return h.resolve(c, service.DecisionApprove)
}

func (h *TradeHandler) Reject(c echo.Context) error {
	return h.resolve(c, service.DecisionReject)
}

func (h *TradeHandler) resolve(c echo.Context, d service.Decision) error {
	t, err := h.svc.Resolve(c.Request().Context(), c.Param("id"), appmw.IdentityFrom(c), d)
	if err != nil {
		return writeError(c, err, string(d)+" trade")
	}
	return c.JSON(http.StatusOK, toTradeResponse(t))
}

func toTradeResponse(t *model.Trade) TradeResponse {
	resp := TradeResponse{
		ID:                 t.ID,
		OfferedProductID:   t.OfferedProductID,
		RequestedProductID: t.RequestedProductID,
		ProposerID:         t.ProposerID,
		OwnerID:            t.OwnerID,
		Status:             string(t.Status),
		CreatedAt:          t.CreatedAt.Format(time.RFC3339),
	}
	if t.ResolvedAt != nil {
		s := t.ResolvedAt.Format(time.RFC3339)
		resp.ResolvedAt = &s
	}
	return resp
}
