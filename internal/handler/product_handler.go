package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	appmw "github.com/detodo/marketplace-backend/internal/middleware"
	"github.com/detodo/marketplace-backend/internal/model"
	"github.com/detodo/marketplace-backend/internal/service"
	"github.com/labstack/echo/v4"
)

type ProductHandler struct {
	svc service.ProductService
}

func NewProductHandler(svc service.ProductService) *ProductHandler {
	return &ProductHandler{svc: svc}
}

type ProductResponse struct {
	ID             string   `json:"id"`
	SellerID       string   `json:"sellerId"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Price          string   `json:"price"`
	Currency       string   `json:"currency"`
	Condition      string   `json:"condition,omitempty"`
	Brand          string   `json:"brand,omitempty"`
	Images         []string `json:"images"`
	OpenToTrade    bool     `json:"openToTrade"`
	Status         string   `json:"status"`
	SoldAt         *string  `json:"soldAt,omitempty"`
	SoldViaTradeID *string  `json:"soldViaTradeId,omitempty"`
	CreatedAt      string   `json:"createdAt"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int               `json:"total"`
}

// amount accepts a price sent either as a JSON number or as a string.
type amount string

func (a *amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*a = amount(n.String())
	return nil
}

type CreateProductRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       amount   `json:"price"`
	Currency    string   `json:"currency"`
	Condition   string   `json:"condition"`
	Brand       string   `json:"brand"`
	Images      []string `json:"images"`
	OpenToTrade bool     `json:"openToTrade"`
}

type UpdateProductRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *amount  `json:"price"`
	Currency    *string  `json:"currency"`
	Condition   *string  `json:"condition"`
	Brand       *string  `json:"brand"`
	Images      []string `json:"images"`
	OpenToTrade *bool    `json:"openToTrade"`
}

func (h *ProductHandler) Create(c echo.Context) error {
	var req CreateProductRequest
	if err := c.Bind(&req); err != nil {
		return badJSON(c)
	}
	p, err := h.svc.Create(c.Request().Context(), appmw.IdentityFrom(c), service.CreateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       string(req.Price),
		Currency:    req.Currency,
		Condition:   req.Condition,
		Brand:       req.Brand,
		Images:      req.Images,
		OpenToTrade: req.OpenToTrade,
	})
	if err != nil {
		return writeError(c, err, "create product")
	}
	return c.JSON(http.StatusCreated, toProductResponse(p))
}

func (h *ProductHandler) Get(c echo.Context) error {
	p, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err, "fetch product")
	}
	return c.JSON(http.StatusOK, toProductResponse(p))
}

func (h *ProductHandler) Search(c echo.Context) error {
	name := c.QueryParam("q")
	if name == "" {
		name = c.QueryParam("name")
	}
	includeSold, _ := strconv.ParseBool(c.QueryParam("include_sold"))
	list, err := h.svc.Search(c.Request().Context(), service.SearchInput{
		Name:        name,
		Brand:       c.QueryParam("brand"),
		MinPrice:    c.QueryParam("min_price"),
		MaxPrice:    c.QueryParam("max_price"),
		IncludeSold: includeSold,
	})
	if err != nil {
		return writeError(c, err, "search products")
	}
	return c.JSON(http.StatusOK, toProductList(list))
}

func (h *ProductHandler) ListMine(c echo.Context) error {
	list, err := h.svc.ListBySeller(c.Request().Context(), appmw.IdentityFrom(c).UserID)
	if err != nil {
		return writeError(c, err, "fetch products")
	}
	return c.JSON(http.StatusOK, toProductList(list))
}

func (h *ProductHandler) Update(c echo.Context) error {
	var req UpdateProductRequest
	if err := c.Bind(&req); err != nil {
		return badJSON(c)
	}
	in := service.UpdateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Currency:    req.Currency,
		Condition:   req.Condition,
		Brand:       req.Brand,
		Images:      req.Images,
		OpenToTrade: req.OpenToTrade,
	}
	if req.Price != nil {
		price := string(*req.Price)
		in.Price = &price
	}
	p, err := h.svc.Update(c.Request().Context(), c.Param("id"), appmw.IdentityFrom(c), in)
	if err != nil {
		return writeError(c, err, "update product")
	}
	return c.JSON(http.StatusOK, toProductResponse(p))
}

func (h *ProductHandler) MarkSold(c echo.Context) error {
	p, err := h.svc.MarkSold(c.Request().Context(), c.Param("id"), appmw.IdentityFrom(c))
	if err != nil {
		return writeError(c, err, "mark product sold")
	}
	return c.JSON(http.StatusOK, toProductResponse(p))
}

func (h *ProductHandler) Delete(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("id"), appmw.IdentityFrom(c)); err != nil {
		return writeError(c, err, "delete product")
	}
	return c.NoContent(http.StatusNoContent)
}

func toProductResponse(p *model.Product) ProductResponse {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	resp := ProductResponse{
		ID:             p.ID,
		SellerID:       p.SellerID,
		Name:           p.Name,
		Description:    p.Description,
		Price:          p.Price.StringFixed(2),
		Currency:       p.Currency,
		Condition:      p.Condition,
		Brand:          p.Brand,
		Images:         images,
		OpenToTrade:    p.OpenToTrade,
		Status:         string(p.Status),
		SoldViaTradeID: p.SoldViaTradeID,
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
	}
	if p.SoldAt != nil {
		s := p.SoldAt.Format(time.RFC3339)
		resp.SoldAt = &s
	}
	return resp
}

func toProductList(list []model.Product) ProductListResponse {
	resp := ProductListResponse{
		Products: make([]ProductResponse, 0, len(list)),
		Total:    len(list),
	}
	for i := range list {
		resp.Products = append(resp.Products, toProductResponse(&list[i]))
	}
	return resp
}
