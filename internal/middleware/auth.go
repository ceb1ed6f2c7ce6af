package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/detodo/marketplace-backend/internal/authz"
	"github.com/detodo/marketplace-backend/internal/logger"
	"github.com/detodo/marketplace-backend/internal/model"
	"github.com/detodo/marketplace-backend/internal/response"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const identityKey = "identity"

// IdentityVerifier turns a bearer token into a verified identity.
type IdentityVerifier interface {
	Verify(ctx context.Context, raw string) (authz.Identity, error)
}

// UserLookup resolves the stored account behind a verified identity.
type UserLookup interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

func deny(c echo.Context, status int, code, message string) error {
	return c.JSON(status, response.NewError(code, message))
}

type AuthMiddleware struct {
	verifier IdentityVerifier
	users    UserLookup
}

func NewAuthMiddleware(verifier IdentityVerifier, users UserLookup) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, users: users}
}

func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			return deny(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		}
		raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		ctx := c.Request().Context()
		id, err := m.verifier.Verify(ctx, raw)
		if err != nil {
			return deny(c, http.StatusUnauthorized, "invalid_token", "invalid or expired token")
		}

		// subscription state lives in the users table, not in the token
		if m.users != nil {
			u, err := m.users.FindByID(ctx, id.UserID)
			switch {
			case err == nil:
				id.SubscriptionActive = u.SubscriptionActive
				if id.Role == "" {
					id.Role = u.Role
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				id.SubscriptionActive = false
			default:
				logger.L().Error("load user for identity", zap.String("uid", id.UserID), zap.Error(err))
				return deny(c, http.StatusInternalServerError, "internal_error", "failed to load account")
			}
		}

		c.Set("uid", id.UserID)
		c.Set(identityKey, id)
		return next(c)
	}
}

// RequireSubscription refuses callers without an active subscription when
// enabled. It must run after RequireAuth.
func RequireSubscription(enabled bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !enabled {
				return next(c)
			}
			if !IdentityFrom(c).SubscriptionActive {
				return deny(c, http.StatusForbidden, "subscription_required", "an active subscription is required to list products")
			}
			return next(c)
		}
	}
}

// IdentityFrom returns the identity stored by RequireAuth, or the zero identity.
func IdentityFrom(c echo.Context) authz.Identity {
	id, _ := c.Get(identityKey).(authz.Identity)
	return id
}

// WithIdentity stores id on the context the way RequireAuth does.
func WithIdentity(c echo.Context, id authz.Identity) {
	c.Set("uid", id.UserID)
	c.Set(identityKey, id)
}

// FirebaseVerifier validates Firebase ID tokens.
type FirebaseVerifier struct {
	client *auth.Client
}

func NewFirebaseVerifier(ctx context.Context, projectID string) (*FirebaseVerifier, error) {
	if projectID == "" {
		return nil, errors.New("FIREBASE_PROJECT_ID is not set")
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}
	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, raw string) (authz.Identity, error) {
	tok, err := v.client.VerifyIDToken(ctx, raw)
	if err != nil {
		return authz.Identity{}, err
	}
	email, _ := tok.Claims["email"].(string)
	return authz.Identity{UserID: tok.UID, Email: email}, nil
}
