package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid or expired token")

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type claims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies the access/refresh token pair. The two
// token kinds use separate secrets and carry a type claim so one can never
// stand in for the other.
type TokenManager struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

func (m *TokenManager) Access(userID string) (string, error) {
	return m.sign(m.AccessSecret, tokenTypeAccess, userID, uuid.NewString(), m.AccessTTL)
}

// Refresh returns the signed token and its id; the id is what gets
// persisted in the refresh store.
func (m *TokenManager) Refresh(userID string) (token, tokenID string, err error) {
	tokenID = uuid.NewString()
	token, err = m.sign(m.RefreshSecret, tokenTypeRefresh, userID, tokenID, m.RefreshTTL)
	return token, tokenID, err
}

func (m *TokenManager) sign(secret []byte, typ, userID, tokenID string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        tokenID,
			Issuer:    m.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := t.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (m *TokenManager) VerifyAccess(token string) (userID string, err error) {
	c, err := m.verify(m.AccessSecret, tokenTypeAccess, token)
	if err != nil {
		return "", err
	}
	return c.Subject, nil
}

func (m *TokenManager) VerifyRefresh(token string) (userID, tokenID string, err error) {
	c, err := m.verify(m.RefreshSecret, tokenTypeRefresh, token)
	if err != nil {
		return "", "", err
	}
	return c.Subject, c.ID, nil
}

func (m *TokenManager) verify(secret []byte, typ, token string) (*claims, error) {
	var c claims
	t, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !t.Valid {
		return nil, ErrInvalidToken
	}
	if c.TokenType != typ || c.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &c, nil
}
