package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/detodo/marketplace-backend/internal/model"
	"github.com/detodo/marketplace-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- in-memory store shared by the fake repositories ---

type memStore struct {
	mu       sync.Mutex
	seq      int64
	products map[string]model.Product
	trades   map[string]model.Trade
	messages []model.Message
	users    map[string]model.User
}

func newMemStore() *memStore {
	return &memStore{
		products: map[string]model.Product{},
		trades:   map[string]model.Trade{},
		users:    map[string]model.User{},
	}
}

// tick hands out strictly increasing creation times so ordering is deterministic.
func (m *memStore) tick() time.Time {
	m.seq++
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(m.seq) * time.Second)
}

func (m *memStore) product(id string) model.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id]
}

func (m *memStore) trade(id string) model.Trade {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trades[id]
}

type fakeProductRepo struct{ s *memStore }

func (r *fakeProductRepo) Create(_ context.Context, p *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = r.s.tick()
	r.s.products[p.ID] = *p
	return nil
}

func (r *fakeProductRepo) FindByID(_ context.Context, id string) (*model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *fakeProductRepo) Search(_ context.Context, f repository.ProductFilter) ([]model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Product
	for _, p := range r.s.products {
		if !f.IncludeSold && p.IsSold() {
			continue
		}
		if f.Name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Name)) {
			continue
		}
		if f.Brand != "" && p.Brand != f.Brand {
			continue
		}
		if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeProductRepo) ListBySeller(_ context.Context, sellerID string) ([]model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Product
	for _, p := range r.s.products {
		if p.SellerID == sellerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeProductRepo) UpdateIfAvailable(_ context.Context, id, sellerID string, fields map[string]interface{}) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok || p.SellerID != sellerID || p.Status != model.ProductStatusAvailable {
		return 0, nil
	}
	for k, v := range fields {
		switch k {
		case "name":
			p.Name = v.(string)
		case "description":
			p.Description = v.(string)
		case "price":
			p.Price = v.(decimal.Decimal)
		case "currency":
			p.Currency = v.(string)
		case "condition":
			p.Condition = v.(string)
		case "brand":
			p.Brand = v.(string)
		case "images":
			var images []string
			if err := json.Unmarshal([]byte(v.(string)), &images); err != nil {
				return 0, err
			}
			p.Images = images
		case "open_to_trade":
			p.OpenToTrade = v.(bool)
		case "status":
			p.Status = v.(model.ProductStatus)
		case "sold_at":
			at := v.(time.Time)
			p.SoldAt = &at
		}
	}
	r.s.products[id] = p
	return 1, nil
}

func (r *fakeProductRepo) MarkSoldIfAvailable(ctx context.Context, id, sellerID string, at time.Time) (int64, error) {
	return r.UpdateIfAvailable(ctx, id, sellerID, map[string]interface{}{
		"status":  model.ProductStatusSold,
		"sold_at": at,
	})
}

func (r *fakeProductRepo) DeleteIfAvailable(_ context.Context, id, sellerID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok || p.SellerID != sellerID || p.IsSold() {
		return 0, nil
	}
	delete(r.s.products, id)
	return 1, nil
}

type fakeTradeRepo struct {
	s *memStore
	// beforeApprove runs outside the lock, between the service's pre-check and the write.
	beforeApprove func()
}

func (r *fakeTradeRepo) Create(_ context.Context, t *model.Trade) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = r.s.tick()
	r.s.trades[t.ID] = *t
	return nil
}

func (r *fakeTradeRepo) FindByID(_ context.Context, id string) (*model.Trade, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.trades[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (r *fakeTradeRepo) ListForUser(_ context.Context, uid string) ([]model.Trade, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Trade
	for _, t := range r.s.trades {
		if t.ProposerID == uid || t.OwnerID == uid {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeTradeRepo) RejectIfPending(_ context.Context, id, ownerID string, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.trades[id]
	if !ok || t.OwnerID != ownerID || t.Status != model.TradeStatusPending {
		return 0, nil
	}
	t.Status = model.TradeStatusRejected
	t.ResolvedAt = &at
	r.s.trades[id] = t
	return 1, nil
}

// Approve mirrors the transactional repository: every precondition is checked
// under one lock before anything is written.
func (r *fakeTradeRepo) Approve(_ context.Context, t *model.Trade, at time.Time) error {
	if r.beforeApprove != nil {
		r.beforeApprove()
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.trades[t.ID]
	if !ok || cur.OwnerID != t.OwnerID || cur.Status != model.TradeStatusPending {
		return repository.ErrStaleState
	}
	ids := []string{t.OfferedProductID, t.RequestedProductID}
	for _, pid := range ids {
		p, ok := r.s.products[pid]
		if !ok || p.Status != model.ProductStatusAvailable {
			return repository.ErrStaleState
		}
	}
	cur.Status = model.TradeStatusApproved
	cur.ResolvedAt = &at
	r.s.trades[t.ID] = cur
	tradeID := t.ID
	for _, pid := range ids {
		p := r.s.products[pid]
		p.Status = model.ProductStatusSold
		p.SoldAt = &at
		p.SoldViaTradeID = &tradeID
		r.s.products[pid] = p
	}
	return nil
}

type fakeMessageRepo struct{ s *memStore }

func (r *fakeMessageRepo) Create(_ context.Context, msg *model.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.CreatedAt = r.s.tick()
	r.s.messages = append(r.s.messages, *msg)
	return nil
}

func (r *fakeMessageRepo) ListByProduct(_ context.Context, productID string) ([]model.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Message
	for _, m := range r.s.messages {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeUserRepo struct{ s *memStore }

func (r *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	r.s.users[u.ID] = *u
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) SetSubscription(_ context.Context, id string, active bool, customerID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return 0, nil
	}
	u.SubscriptionActive = active
	if customerID != "" {
		u.StripeCustomerID = customerID
	}
	r.s.users[id] = u
	return 1, nil
}

func (r *fakeUserRepo) SetSubscriptionByCustomer(_ context.Context, customerID string, active bool) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, u := range r.s.users {
		if u.StripeCustomerID == customerID {
			u.SubscriptionActive = active
			r.s.users[id] = u
			n++
		}
	}
	return n, nil
}

type fakeIssuer struct{}

func (fakeIssuer) Issue(uid, email, role string) (string, error) {
	return "tok-" + uid, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []model.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n *model.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, *n)
}

func (r *recordingNotifier) types(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.sent {
		if n.UserID == userID {
			out = append(out, n.Type)
		}
	}
	return out
}

type fakeNotificationRepo struct {
	mu        sync.Mutex
	items     []model.Notification
	createErr error
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	r.items = append(r.items, *n)
	return nil
}

func (r *fakeNotificationRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Notification
	for i := len(r.items) - 1; i >= 0 && len(out) < limit; i-- {
		n := r.items[i]
		if n.UserID != userID || (unreadOnly && n.ReadAt != nil) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkAllRead(_ context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].UserID == userID && r.items[i].ReadAt == nil {
			r.items[i].ReadAt = &at
		}
	}
	return nil
}

func (r *fakeNotificationRepo) CountUnread(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, item := range r.items {
		if item.UserID == userID && item.ReadAt == nil {
			n++
		}
	}
	return n, nil
}
