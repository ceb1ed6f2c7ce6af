package handler

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"

	"github.com/detodo/marketplace-backend/internal/authz"
	appmw "github.com/detodo/marketplace-backend/internal/middleware"
	"github.com/detodo/marketplace-backend/internal/model"
	"github.com/detodo/marketplace-backend/internal/service"
	"github.com/labstack/echo/v4"
)

// --- Mock services ---

type mockProductService struct {
	createFn   func(ctx context.Context, seller authz.Identity, in service.CreateProductInput) (*model.Product, error)
	getFn      func(ctx context.Context, id string) (*model.Product, error)
	searchFn   func(ctx context.Context, in service.SearchInput) ([]model.Product, error)
	listFn     func(ctx context.Context, sellerID string) ([]model.Product, error)
	updateFn   func(ctx context.Context, id string, actor authz.Identity, in service.UpdateProductInput) (*model.Product, error)
	markSoldFn func(ctx context.Context, id string, actor authz.Identity) (*model.Product, error)
	deleteFn   func(ctx context.Context, id string, actor authz.Identity) error
}

func (m *mockProductService) Create(ctx context.Context, seller authz.Identity, in service.CreateProductInput) (*model.Product, error) {
	if m.createFn != nil {
		return m.createFn(ctx, seller, in)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockProductService) Get(ctx context.Context, id string) (*model.Product, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockProductService) Search(ctx context.Context, in service.SearchInput) ([]model.Product, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, in)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockProductService) ListBySeller(ctx context.Context, sellerID string) ([]model.Product, error) {
	if m.listFn != nil {
		return m.listFn(ctx, sellerID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockProductService) Update(ctx context.Context, id string, actor authz.Identity, in service.UpdateProductInput) (*model.Product, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, actor, in)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockProductService) MarkSold(ctx context.Context, id string, actor authz.Identity) (*model.Product, error) {
	if m.markSoldFn != nil {
		return m.markSoldFn(ctx, id, actor)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockProductService) Delete(ctx context.Context, id string, actor authz.Identity) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id, actor)
	}
	return fmt.Errorf("not implemented")
}

type mockTradeService struct {
	proposeFn func(ctx context.Context, proposer authz.Identity, in service.ProposeInput) (*model.Trade, error)
	resolveFn func(ctx context.Context, id string, actor authz.Identity, d service.Decision) (*model.Trade, error)
	getFn     func(ctx context.Context, id string, actor authz.Identity) (*model.Trade, error)
	listFn    func(ctx context.Context, actor authz.Identity) ([]model.Trade, error)
}

func (m *mockTradeService) Propose(ctx context.Context, proposer authz.Identity, in service.ProposeInput) (*model.Trade, error) {
	if m.proposeFn != nil {
		return m.proposeFn(ctx, proposer, in)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockTradeService) Resolve(ctx context.Context, id string, actor authz.Identity, d service.Decision) (*model.Trade, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, id, actor, d)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockTradeService) Get(ctx context.Context, id string, actor authz.Identity) (*model.Trade, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id, actor)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockTradeService) ListFor(ctx context.Context, actor authz.Identity) ([]model.Trade, error) {
	if m.listFn != nil {
		return m.listFn(ctx, actor)
	}
	return nil, fmt.Errorf("not implemented")
}

type mockSubscriptionService struct {
	activated   map[string]string
	deactivated []string
	err         error
}

func (m *mockSubscriptionService) Activate(_ context.Context, uid, customerID string) error {
	if m.err != nil {
		return m.err
	}
	if m.activated == nil {
		m.activated = map[string]string{}
	}
	m.activated[uid] = customerID
	return nil
}

func (m *mockSubscriptionService) DeactivateByCustomer(_ context.Context, customerID string) error {
	if m.err != nil {
		return m.err
	}
	m.deactivated = append(m.deactivated, customerID)
	return nil
}

// --- Test Helpers ---

// asUser wraps h so it runs as if RequireAuth had accepted id.
func asUser(id authz.Identity, h echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		appmw.WithIdentity(c, id)
		return h(c)
	}
}

func doRequest(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}
