package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/karyana-pos/karyana-pos/internal/platform/httpx"
)

// TokenStore keeps opaque API tokens in Redis with a sliding TTL.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenStore constructs a TokenStore.
func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl}
}

// Create issues a fresh token for userID.
func (ts *TokenStore) Create(ctx context.Context, userID int64) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	if err := ts.client.Set(ctx, ts.key(token), userID, ts.ttl).Err(); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return token, nil
}

// Resolve maps a token to its user id and refreshes the TTL.
func (ts *TokenStore) Resolve(ctx context.Context, token string) (int64, error) {
	value, err := ts.client.Get(ctx, ts.key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, httpx.ErrUnauthorized
	}
	if err != nil {
		return 0, fmt.Errorf("resolve token: %w", err)
	}
	userID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse token payload: %w", err)
	}
	ts.client.Expire(ctx, ts.key(token), ts.ttl)
	return userID, nil
}

// Destroy invalidates a token.
func (ts *TokenStore) Destroy(ctx context.Context, token string) error {
	return ts.client.Del(ctx, ts.key(token)).Err()
}

func (ts *TokenStore) key(token string) string {
	return "session:" + token
}

var _ SessionPort = (*TokenStore)(nil)
