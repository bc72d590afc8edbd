package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/shopico/shop-api/internal/users"
)

type memUsers struct {
	mu      sync.Mutex
	byID    map[string]*users.User
	byEmail map[string]*users.User
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*users.User{}, byEmail: map[string]*users.User{}}
}

func (m *memUsers) Create(_ context.Context, u *users.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[u.Email]; ok {
		return users.ErrEmailTaken
	}
	cp := *u
	m.byID[u.ID] = &cp
	m.byEmail[u.Email] = &cp
	return nil
}

func (m *memUsers) ByEmail(_ context.Context, email string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byEmail[email]
	if !ok {
		return nil, users.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) ByID(_ context.Context, id string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return users.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

type memRefresh struct {
	mu   sync.Mutex
	live map[string]bool
}

func newMemRefresh() *memRefresh { return &memRefresh{live: map[string]bool{}} }

func (m *memRefresh) key(userID, tokenID string) string { return userID + ":" + tokenID }

func (m *memRefresh) Save(_ context.Context, userID, tokenID string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.live[m.key(userID, tokenID)] = true
	return nil
}

func (m *memRefresh) Exists(_ context.Context, userID, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live[m.key(userID, tokenID)], nil
}

func (m *memRefresh) Delete(_ context.Context, userID, tokenID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.live, m.key(userID, tokenID))
	return nil
}

func newTestAuthService() (*Service, *memUsers, *memRefresh) {
	us := newMemUsers()
	rs := newMemRefresh()
	svc := &Service{
		Users:      us,
		Tokens:     newTestManager(),
		Refresh:    rs,
		BcryptCost: bcrypt.MinCost,
		Log:        zap.NewNop(),
	}
	return svc, us, rs
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := newTestAuthService()
	ctx := context.Background()

	u, pair, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, users.RoleUser, u.Role)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)
	assert.NotEqual(t, "hunter22", u.PasswordHash)

	got, pair2, err := svc.Login(ctx, "ada@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.NotEmpty(t, pair2.Access)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestAuthService()
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22")
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, "Imposter", "ada@example.com", "hunter23")
	assert.ErrorIs(t, err, users.ErrEmailTaken)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, _ := newTestAuthService()
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshRotation(t *testing.T) {
	svc, _, _ := newTestAuthService()
	ctx := context.Background()

	_, pair, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22")
	require.NoError(t, err)

	pair2, err := svc.RefreshPair(ctx, pair.Refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, pair2.Access)

	// the old refresh token was rotated away
	_, err = svc.RefreshPair(ctx, pair.Refresh)
	assert.ErrorIs(t, err, ErrInvalidRefresh)

	// the new one works
	_, err = svc.RefreshPair(ctx, pair2.Refresh)
	assert.NoError(t, err)
}

func TestRefresh_UnknownToken(t *testing.T) {
	svc, _, _ := newTestAuthService()
	ctx := context.Background()

	// well-signed but never issued through the store
	token, _, err := svc.Tokens.Refresh("ghost-user")
	require.NoError(t, err)

	_, err = svc.RefreshPair(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidRefresh)

	_, err = svc.RefreshPair(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestLogoutRevokesRefresh(t *testing.T) {
	svc, _, _ := newTestAuthService()
	ctx := context.Background()

	_, pair, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22")
	require.NoError(t, err)

	svc.Logout(ctx, pair.Refresh)

	_, err = svc.RefreshPair(ctx, pair.Refresh)
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestResetPassword(t *testing.T) {
	svc, _, _ := newTestAuthService()
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22")
	require.NoError(t, err)

	err = svc.ResetPassword(ctx, "ada@example.com", "wrong", "newpass1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = svc.ResetPassword(ctx, "missing@example.com", "hunter22", "newpass1")
	assert.ErrorIs(t, err, users.ErrNotFound)

	err = svc.ResetPassword(ctx, "ada@example.com", "hunter22", "newpass1")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "ada@example.com", "newpass1")
	assert.NoError(t, err)
	_, _, err = svc.Login(ctx, "ada@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
