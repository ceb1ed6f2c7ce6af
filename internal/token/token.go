// Package token issues and verifies the HS256 session tokens handed out at login.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/detodo/marketplace-backend/internal/authz"
	"github.com/golang-jwt/jwt/v5"
)

const DefaultTTL = 7 * 24 * time.Hour

var ErrInvalidToken = errors.New("invalid or expired token")

type Claims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{secret: []byte(secret), ttl: ttl}
}

func (m *Manager) Issue(uid, email, role string) (string, error) {
	if role == "" {
		role = "user"
	}
	now := time.Now()
	claims := Claims{
		UID:   uid,
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify implements the identity provider contract for locally issued tokens.
func (m *Manager) Verify(_ context.Context, raw string) (authz.Identity, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return authz.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UID == "" {
		return authz.Identity{}, fmt.Errorf("%w: missing uid", ErrInvalidToken)
	}
	return authz.Identity{UserID: claims.UID, Email: claims.Email, Role: claims.Role}, nil
}
