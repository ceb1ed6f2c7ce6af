package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/detodo/marketplace-backend/internal/authz"
	"github.com/detodo/marketplace-backend/internal/model"
	"github.com/detodo/marketplace-backend/internal/repository"
)

const maxMessageLen = 2000

type MessageService interface {
	Post(ctx context.Context, productID string, sender authz.Identity, body string) (*model.Message, error)
	List(ctx context.Context, productID string) ([]model.Message, error)
}

type messageService struct {
	messages repository.MessageRepository
	products repository.ProductRepository
	notifier Notifier
}

// NewMessageService builds the product thread store. notifier may be nil.
func NewMessageService(messages repository.MessageRepository, products repository.ProductRepository, notifier Notifier) MessageService {
	return &messageService{messages: messages, products: products, notifier: notifier}
}

func (s *messageService) Post(ctx context.Context, productID string, sender authz.Identity, body string) (*model.Message, error) {
	if sender.IsZero() {
		return nil, ErrForbidden
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, invalid("body", "is required")
	}
	if utf8.RuneCountInString(body) > maxMessageLen {
		return nil, invalid("body", "is too long")
	}
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	msg := &model.Message{
		ProductID: productID,
		SenderID:  sender.UserID,
		Body:      body,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	if p.SellerID != sender.UserID {
		notify(ctx, s.notifier, &model.Notification{
			UserID:    p.SellerID,
			Type:      model.NotificationMessage,
			Title:     "New question on " + p.Name,
			Body:      body,
			ProductID: strPtr(p.ID),
		})
	}
	return msg, nil
}

func (s *messageService) List(ctx context.Context, productID string) ([]model.Message, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, translateNotFound(err)
	}
	return s.messages.ListByProduct(ctx, productID)
}
