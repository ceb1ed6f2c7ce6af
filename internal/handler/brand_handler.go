package handler

import (
	"net/http"

	"github.com/detodo/marketplace-backend/internal/model"
	"github.com/detodo/marketplace-backend/internal/service"
	"github.com/labstack/echo/v4"
)

type BrandHandler struct {
	svc service.BrandService
}

func NewBrandHandler(svc service.BrandService) *BrandHandler {
	return &BrandHandler{svc: svc}
}

func (h *BrandHandler) List(c echo.Context) error {
	brands, err := h.svc.List(c.Request().Context())
	if err != nil {
		return writeError(c, err, "fetch brands")
	}
	if brands == nil {
		brands = []model.Brand{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"brands": brands})
}
