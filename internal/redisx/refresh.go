package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RefreshTokens persists issued refresh tokens so the refresh endpoint can
// reject tokens that were never issued or were already rotated away.
type RefreshTokens struct{ R *redis.Client }

func (s *RefreshTokens) Save(ctx context.Context, userID, tokenID string, ttl time.Duration) error {
	key := fmt.Sprintf(KeyRefreshToken, userID, tokenID)
	return s.R.Set(ctx, key, "1", ttl).Err()
}

func (s *RefreshTokens) Exists(ctx context.Context, userID, tokenID string) (bool, error) {
	key := fmt.Sprintf(KeyRefreshToken, userID, tokenID)
	n, err := s.R.Exists(ctx, key).Result()
	return n > 0, err
}

func (s *RefreshTokens) Delete(ctx context.Context, userID, tokenID string) error {
	key := fmt.Sprintf(KeyRefreshToken, userID, tokenID)
	return s.R.Del(ctx, key).Err()
}
