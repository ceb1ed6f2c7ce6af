package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/detodo/marketplace-backend/internal/authz"
	"github.com/detodo/marketplace-backend/internal/metrics"
	"github.com/detodo/marketplace-backend/internal/model"
	"github.com/detodo/marketplace-backend/internal/repository"
	"gorm.io/gorm"
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

type ProposeInput struct {
	OfferedProductID   string
	RequestedProductID string
}

type TradeService interface {
	Propose(ctx context.Context, proposer authz.Identity, in ProposeInput) (*model.Trade, error)
	Resolve(ctx context.Context, tradeID string, actor authz.Identity, decision Decision) (*model.Trade, error)
	Get(ctx context.Context, tradeID string, actor authz.Identity) (*model.Trade, error)
	ListFor(ctx context.Context, actor authz.Identity) ([]model.Trade, error)
}

type tradeService struct {
	trades   repository.TradeRepository
	products repository.ProductRepository
	notifier Notifier
	now      func() time.Time
}

// NewTradeService builds the trade engine. notifier may be nil.
func NewTradeService(trades repository.TradeRepository, products repository.ProductRepository, notifier Notifier) TradeService {
	return &tradeService{
		trades:   trades,
		products: products,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *tradeService) Propose(ctx context.Context, proposer authz.Identity, in ProposeInput) (*model.Trade, error) {
	if proposer.IsZero() {
		return nil, ErrForbidden
	}
	offeredID := strings.TrimSpace(in.OfferedProductID)
	requestedID := strings.TrimSpace(in.RequestedProductID)
	if offeredID == "" {
		return nil, invalid("offered_product_id", "is required")
	}
	if requestedID == "" {
		return nil, invalid("requested_product_id", "is required")
	}

	offered, err := s.products.FindByID(ctx, offeredID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	requested, err := s.products.FindByID(ctx, requestedID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	if err := authz.Authorize(proposer, offered, authz.IsSeller); err != nil {
		return nil, err
	}
	if requested.SellerID == proposer.UserID {
		return nil, invalid("requested_product_id", "cannot trade with your own listing")
	}
	if offered.IsSold() || requested.IsSold() {
		return nil, conflict("product already sold")
	}

	t := &model.Trade{
		OfferedProductID:   offered.ID,
		RequestedProductID: requested.ID,
		ProposerID:         proposer.UserID,
		OwnerID:            requested.SellerID,
		Status:             model.TradeStatusPending,
	}
	if err := s.trades.Create(ctx, t); err != nil {
		return nil, err
	}
	metrics.IncTradeEvent("proposed")
	notify(ctx, s.notifier, &model.Notification{
		UserID:    t.OwnerID,
		Type:      model.NotificationTradeProposed,
		Title:     "New trade offer",
		Body:      fmt.Sprintf("Someone offered %q for your %q.", offered.Name, requested.Name),
		ProductID: strPtr(requested.ID),
		TradeID:   strPtr(t.ID),
	})
	return t, nil
}

func (s *tradeService) Resolve(ctx context.Context, tradeID string, actor authz.Identity, decision Decision) (*model.Trade, error) {
	if decision != DecisionApprove && decision != DecisionReject {
		return nil, invalid("decision", "must be approve or reject")
	}
	t, err := s.trades.FindByID(ctx, tradeID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	if err := authz.Authorize(actor, t, authz.IsProposalOwner); err != nil {
		return nil, err
	}
	if t.Status.IsTerminal() {
		return nil, conflict("trade already resolved")
	}

	if decision == DecisionReject {
		return s.reject(ctx, t)
	}
	return s.approve(ctx, t)
}

func (s *tradeService) reject(ctx context.Context, t *model.Trade) (*model.Trade, error) {
	at := s.now()
	n, err := s.trades.RejectIfPending(ctx, t.ID, t.OwnerID, at)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, conflict("trade already resolved")
	}
	t.Status = model.TradeStatusRejected
	t.ResolvedAt = &at
	metrics.IncTradeEvent("rejected")
	s.notifyResolved(ctx, t, model.NotificationTradeRejected, "Trade offer declined")
	return t, nil
}

func (s *tradeService) approve(ctx context.Context, t *model.Trade) (*model.Trade, error) {
	for _, pid := range []string{t.OfferedProductID, t.RequestedProductID} {
		p, err := s.products.FindByID(ctx, pid)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, conflict("a product in this trade no longer exists")
		}
		if err != nil {
			return nil, err
		}
		if !p.Status.CanTransition(model.ProductStatusSold) {
			return nil, conflict("a product in this trade is already sold")
		}
	}

	at := s.now()
	if err := s.trades.Approve(ctx, t, at); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			metrics.IncTradeEvent("approve_conflict")
			return nil, conflict("trade lost a concurrent resolution")
		}
		return nil, err
	}
	t.Status = model.TradeStatusApproved
	t.ResolvedAt = &at
	metrics.IncTradeEvent("approved")
	for range []string{t.OfferedProductID, t.RequestedProductID} {
		metrics.IncProductTransition(string(model.ProductStatusSold), "trade")
	}
	s.notifyResolved(ctx, t, model.NotificationTradeApproved, "Trade offer accepted")
	return t, nil
}

func (s *tradeService) notifyResolved(ctx context.Context, t *model.Trade, typ, title string) {
	notify(ctx, s.notifier, &model.Notification{
		UserID:    t.ProposerID,
		Type:      typ,
		Title:     title,
		ProductID: strPtr(t.RequestedProductID),
		TradeID:   strPtr(t.ID),
	})
}

func (s *tradeService) Get(ctx context.Context, tradeID string, actor authz.Identity) (*model.Trade, error) {
	t, err := s.trades.FindByID(ctx, tradeID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	if err := authz.Authorize(actor, t, authz.IsParticipant); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *tradeService) ListFor(ctx context.Context, actor authz.Identity) ([]model.Trade, error) {
	if actor.IsZero() {
		return nil, ErrForbidden
	}
	return s.trades.ListForUser(ctx, actor.UserID)
}
