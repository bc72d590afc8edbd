package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/shopico/shop-api/internal/users"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidRefresh     = errors.New("invalid refresh token")
)

type UserStore interface {
	Create(ctx context.Context, u *users.User) error
	ByEmail(ctx context.Context, email string) (*users.User, error)
	ByID(ctx context.Context, id string) (*users.User, error)
	UpdatePassword(ctx context.Context, id, hash string) error
}

// RefreshStore tracks which refresh tokens are live. A token missing from
// the store is treated as revoked.
type RefreshStore interface {
	Save(ctx context.Context, userID, tokenID string, ttl time.Duration) error
	Exists(ctx context.Context, userID, tokenID string) (bool, error)
	Delete(ctx context.Context, userID, tokenID string) error
}

type TokenPair struct {
	Access  string
	Refresh string
}

type Service struct {
	Users      UserStore
	Tokens     *TokenManager
	Refresh    RefreshStore
	BcryptCost int
	Log        *zap.Logger
}

func (s *Service) Register(ctx context.Context, name, email, password string) (*users.User, TokenPair, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.BcryptCost)
	if err != nil {
		return nil, TokenPair{}, err
	}

	u := &users.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         users.RoleUser,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		return nil, TokenPair{}, err
	}

	pair, err := s.issuePair(ctx, u.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.Log.Info("user registered", zap.String("user_id", u.ID))
	return u, pair, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*users.User, TokenPair, error) {
	u, err := s.Users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, TokenPair{}, ErrInvalidCredentials
		}
		return nil, TokenPair{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.issuePair(ctx, u.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

func (s *Service) ResetPassword(ctx context.Context, email, currentPassword, newPassword string) error {
	u, err := s.Users.ByEmail(ctx, email)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(currentPassword)) != nil {
		return ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.BcryptCost)
	if err != nil {
		return err
	}
	return s.Users.UpdatePassword(ctx, u.ID, string(hash))
}

// RefreshPair rotates a refresh token: the presented token must verify and
// still be present in the store; it is revoked before the new pair is
// issued.
func (s *Service) RefreshPair(ctx context.Context, refreshToken string) (TokenPair, error) {
	userID, tokenID, err := s.Tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, ErrInvalidRefresh
	}
	ok, err := s.Refresh.Exists(ctx, userID, tokenID)
	if err != nil {
		return TokenPair{}, err
	}
	if !ok {
		return TokenPair{}, ErrInvalidRefresh
	}
	if err := s.Refresh.Delete(ctx, userID, tokenID); err != nil {
		return TokenPair{}, err
	}
	return s.issuePair(ctx, userID)
}

// Logout revokes the presented refresh token. Bad tokens are ignored: the
// endpoint always succeeds.
func (s *Service) Logout(ctx context.Context, refreshToken string) {
	userID, tokenID, err := s.Tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return
	}
	_ = s.Refresh.Delete(ctx, userID, tokenID)
}

func (s *Service) issuePair(ctx context.Context, userID string) (TokenPair, error) {
	access, err := s.Tokens.Access(userID)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, tokenID, err := s.Tokens.Refresh(userID)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.Refresh.Save(ctx, userID, tokenID, s.Tokens.RefreshTTL); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}
