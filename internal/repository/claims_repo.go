package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/lumostories/telemetry-api/internal/models"
)

const claimsKeyPrefix = "identity:claims:"

// ErrUserNotFound is returned when no claims document exists for the uid.
var ErrUserNotFound = errors.New("user claims not found")

// ClaimsStore reads and writes the identity-claims document attached to a
// user. The backing store is external and eventually consistent; concurrent
// writers race at its consistency level (last write wins).
type ClaimsStore interface {
	Get(ctx context.Context, uid string) (models.UserClaims, error)
	Set(ctx context.Context, uid string, claims models.UserClaims) error
}

type redisClaimsStore struct {
	client *redis.Client
}

// NewClaimsStore constructs the Redis-backed identity-claims adapter.
func NewClaimsStore(client *redis.Client) ClaimsStore {
	return &redisClaimsStore{client: client}
}

func claimsKey(uid string) string {
	return claimsKeyPrefix + strings.TrimSpace(uid)
}

func (s *redisClaimsStore) Get(ctx context.Context, uid string) (models.UserClaims, error) {
	if strings.TrimSpace(uid) == "" {
		return models.UserClaims{}, fmt.Errorf("uid must not be empty")
	}

	payload, err := s.client.Get(ctx, claimsKey(uid)).Result()
	if err == redis.Nil {
		return models.UserClaims{}, ErrUserNotFound
	}
	if err != nil {
		return models.UserClaims{}, fmt.Errorf("failed to read claims: %w", err)
	}

	var claims models.UserClaims
	if err := json.Unmarshal([]byte(payload), &claims); err != nil {
		return models.UserClaims{}, fmt.Errorf("failed to decode claims: %w", err)
	}

	return claims, nil
}

func (s *redisClaimsStore) Set(ctx context.Context, uid string, claims models.UserClaims) error {
	if strings.TrimSpace(uid) == "" {
		return fmt.Errorf("uid must not be empty")
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return fmt.Errorf("failed to encode claims: %w", err)
	}

	if err := s.client.Set(ctx, claimsKey(uid), payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to write claims: %w", err)
	}

	return nil
}
