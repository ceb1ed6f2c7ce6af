package handler

import (
	"net/http"
	"time"

	"github.com/detodo/marketplace-backend/internal/service"
	"github.com/labstack/echo/v4"
)

// UserHandler serves the public seller profile shown next to listings.
type UserHandler struct {
	svc service.AuthService
}

func NewUserHandler(svc service.AuthService) *UserHandler {
	return &UserHandler{svc: svc}
}

type PublicUserResponse struct {
	ID          string  `json:"id"`
	DisplayName *string `json:"displayName"`
	MemberSince string  `json:"memberSince"`
}

func (h *UserHandler) GetPublic(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid id"))
	}
	u, err := h.svc.Me(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err, "fetch user")
	}
	return c.JSON(http.StatusOK, PublicUserResponse{
		ID:          u.ID,
		DisplayName: strPtrOrNil(u.Name),
		MemberSince: u.CreatedAt.Format(time.RFC3339),
	})
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
