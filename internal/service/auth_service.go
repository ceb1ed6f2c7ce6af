package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/detodo/marketplace-backend/internal/model"
	"github.com/detodo/marketplace-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

const minPasswordLen = 8

// TokenIssuer signs session tokens for authenticated users.
type TokenIssuer interface {
	Issue(uid, email, role string) (string, error)
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

type Session struct {
	Token string
	User  *model.User
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	Me(ctx context.Context, uid string) (*model.User, error)
}

type authService struct {
	users  repository.UserRepository
	tokens TokenIssuer
	cost   int
}

func NewAuthService(users repository.UserRepository, tokens TokenIssuer) AuthService {
	return &authService{users: users, tokens: tokens, cost: bcrypt.DefaultCost}
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", invalid("email", "is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", invalid("email", "is not a valid address")
	}
	return email, nil
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < minPasswordLen {
		return nil, invalid("password", "must be at least 8 characters")
	}
	// bcrypt ignores input past 72 bytes
	if len(in.Password) > 72 {
		return nil, invalid("password", "must be at most 72 bytes")
	}

	_, err = s.users.FindByEmail(ctx, email)
	if err == nil {
		return nil, conflict("email already registered")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(in.Name),
		Role:         "user",
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflict("email already registered")
		}
		return nil, err
	}
	return s.session(u)
}

func (s *authService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.session(u)
}

func (s *authService) Me(ctx context.Context, uid string) (*model.User, error) {
	u, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return u, nil
}

func (s *authService) session(u *model.User) (*Session, error) {
	tok, err := s.tokens.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, err
	}
	return &Session{Token: tok, User: u}, nil
}
