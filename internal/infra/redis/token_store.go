package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// tokenKey is the fixed slot the credential token lives under.
const tokenKey = "coined:token"

// TokenStore keeps the credential token in Redis, for kiosk-style
// deployments where several devices share one signed-in station profile.
type TokenStore struct {
	client *redis.Client
}

func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

func (s *TokenStore) Load(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, tokenKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

func (s *TokenStore) Save(ctx context.Context, token string) error {
	// No TTL: the portal decides token expiry, the store just holds it.
	return s.client.Set(ctx, tokenKey, token, 0).Err()
}

func (s *TokenStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, tokenKey).Err()
}
