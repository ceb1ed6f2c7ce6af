package handler

import (
	"errors"
	"net/http"
	"time"

	appmw "github.com/detodo/marketplace-backend/internal/middleware"
	"github.com/detodo/marketplace-backend/internal/model"
	"github.com/detodo/marketplace-backend/internal/service"
	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	svc service.AuthService
}

func NewAuthHandler(svc service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID                 string `json:"id"`
	Email              string `json:"email"`
	Name               string `json:"name"`
	Role               string `json:"role"`
	SubscriptionActive bool   `json:"subscriptionActive"`
	CreatedAt          string `json:"createdAt"`
}

type SessionResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return badJSON(c)
	}
	sess, err := h.svc.Register(c.Request().Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		return writeError(c, err, "register")
	}
	return c.JSON(http.StatusCreated, toSessionResponse(sess))
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return badJSON(c)
	}
	sess, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, NewErrorResponse("invalid_credentials", err.Error()))
		}
		return writeError(c, err, "login")
	}
	return c.JSON(http.StatusOK, toSessionResponse(sess))
}

func (h *AuthHandler) Me(c echo.Context) error {
	u, err := h.svc.Me(c.Request().Context(), appmw.IdentityFrom(c).UserID)
	if err != nil {
		return writeError(c, err, "fetch account")
	}
	return c.JSON(http.StatusOK, toUserResponse(u))
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               u.Name,
		Role:               u.Role,
		SubscriptionActive: u.SubscriptionActive,
		CreatedAt:          u.CreatedAt.Format(time.RFC3339),
	}
}

func toSessionResponse(s *service.Session) SessionResponse {
	return SessionResponse{Token: s.Token, User: toUserResponse(s.User)}
}
