package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/detodo/marketplace-backend/internal/logger"
	"github.com/detodo/marketplace-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

const maxWebhookBytes = 64 << 10

// WebhookHandler consumes Stripe billing events and flips subscription state.
type WebhookHandler struct {
	svc    service.SubscriptionService
	secret string
}

func NewWebhookHandler(svc service.SubscriptionService, secret string) *WebhookHandler {
	return &WebhookHandler{svc: svc, secret: secret}
}

func (h *WebhookHandler) Stripe(c echo.Context) error {
	if h.secret == "" {
		return c.JSON(http.StatusServiceUnavailable, NewErrorResponse("not_configured", "webhook secret is not set"))
	}
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBytes))
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "failed to read body"))
	}
	event, err := webhook.ConstructEventWithOptions(payload, c.Request().Header.Get("Stripe-Signature"), h.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid_signature", "signature verification failed"))
	}

	ctx := c.Request().Context()
	log := logger.L().With(zap.String("event_id", event.ID), zap.String("type", string(event.Type)))

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "malformed checkout session"))
		}
		if sess.ClientReferenceID == "" {
			log.Warn("checkout session has no client reference", zap.String("session_id", sess.ID))
			return c.JSON(http.StatusOK, map[string]bool{"received": true})
		}
		customerID := ""
		if sess.Customer != nil {
			customerID = sess.Customer.ID
		}
		err = h.svc.Activate(ctx, sess.ClientReferenceID, customerID)
	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "malformed subscription"))
		}
		customerID := ""
		if sub.Customer != nil {
			customerID = sub.Customer.ID
		}
		err = h.svc.DeactivateByCustomer(ctx, customerID)
	default:
		log.Debug("ignoring webhook event")
		return c.JSON(http.StatusOK, map[string]bool{"received": true})
	}

	if err != nil {
		// events that can never apply are acknowledged so Stripe stops retrying
		switch {
		case errors.Is(err, service.ErrNotFound):
			log.Warn("webhook references unknown account")
			return c.JSON(http.StatusOK, map[string]bool{"received": true})
		case errors.Is(err, service.ErrValidation):
			log.Warn("webhook event cannot be applied", zap.Error(err))
			return c.JSON(http.StatusOK, map[string]bool{"received": true})
		}
		return writeError(c, err, "apply webhook")
	}
	log.Info("subscription updated")
	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
