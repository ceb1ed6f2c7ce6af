package service

import (
	"context"
	"strings"

	"github.com/detodo/marketplace-backend/internal/repository"
)

// SubscriptionService toggles the paid-listing flag on user accounts in
// response to billing events.
type SubscriptionService interface {
	Activate(ctx context.Context, uid, customerID string) error
	DeactivateByCustomer(ctx context.Context, customerID string) error
}

type subscriptionService struct {
	users repository.UserRepository
}

func NewSubscriptionService(users repository.UserRepository) SubscriptionService {
	return &subscriptionService{users: users}
}

func (s *subscriptionService) Activate(ctx context.Context, uid, customerID string) error {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return invalid("client_reference_id", "is required")
	}
	n, err := s.users.SetSubscription(ctx, uid, true, strings.TrimSpace(customerID))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *subscriptionService) DeactivateByCustomer(ctx context.Context, customerID string) error {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return invalid("customer", "is required")
	}
	n, err := s.users.SetSubscriptionByCustomer(ctx, customerID, false)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
