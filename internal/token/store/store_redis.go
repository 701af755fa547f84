package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"wardgate/internal/sentinel"
	"wardgate/internal/token/models"
	"wardgate/pkg/domain"
)

const (
	keyPrefixToken    = "wardgate:token:"
	keyPrefixConsumed = "wardgate:token-consumed:"
)

// RedisStore persists tokens in the shared store so any instance can redeem
// a token issued by another. Expiry is enforced twice: by the TTL on the key
// and by the expiry check on read.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore wraps a connected redis client.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

// redisToken is the wire representation; the domain model stays free of
// serialization tags.
type redisToken struct {
	ID             string    `json:"id"`
	GuardianID     string    `json:"guardian_id"`
	MinorID        string    `json:"minor_id"`
	Action         string    `json:"action"`
	RelationshipID string    `json:"relationship_id"`
	AccessLevel    string    `json:"access_level"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

func (s *RedisStore) Save(ctx context.Context, token *models.Token) error {
	payload, err := json.Marshal(redisToken{
		ID:             token.ID.String(),
		GuardianID:     token.GuardianID.String(),
		MinorID:        token.MinorID.String(),
		Action:         token.Action.String(),
		RelationshipID: token.RelationshipID.String(),
		AccessLevel:    token.AccessLevel.String(),
		CreatedAt:      token.CreatedAt,
		ExpiresAt:      token.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}

	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("token already expired at save: %w", sentinel.ErrExpired)
	}
	if err := s.client.Set(ctx, keyPrefixToken+token.ID.String(), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (s *RedisStore) Find(ctx context.Context, id domain.TokenID) (*models.Token, error) {
	raw, err := s.client.Get(ctx, keyPrefixToken+id.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}

	var wire redisToken
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("unmarshal token: %w", err)
	}

	consumed, err := s.client.Exists(ctx, keyPrefixConsumed+id.String()).Result()
	if err != nil {
		return nil, fmt.Errorf("read token consumption: %w", err)
	}

	return &models.Token{
		ID:             domain.TokenID(wire.ID),
		GuardianID:     domain.GuardianID(wire.GuardianID),
		MinorID:        domain.MinorID(wire.MinorID),
		Action:         domain.Action(wire.Action),
		RelationshipID: domain.RelationshipID(wire.RelationshipID),
		AccessLevel:    domain.AccessLevel(wire.AccessLevel),
		CreatedAt:      wire.CreatedAt,
		ExpiresAt:      wire.ExpiresAt,
		Consumed:       consumed > 0,
	}, nil
}

// Consume flips the single-use marker via SET NX, the shared store's atomic
// set-if-not-exists primitive. Concurrent consumers of one token see exactly
// one success.
func (s *RedisStore) Consume(ctx context.Context, id domain.TokenID) error {
	exists, err := s.client.Exists(ctx, keyPrefixToken+id.String()).Result()
	if err != nil {
		return fmt.Errorf("check token existence: %w", err)
	}
	if exists == 0 {
		return sentinel.ErrNotFound
	}

	// Marker outlives the token slightly so a racing redeem after expiry
	// still reports ALREADY_USED rather than NOT_FOUND.
	set, err := s.client.SetNX(ctx, keyPrefixConsumed+id.String(), "1", 2*time.Hour).Result()
	if err != nil {
		return fmt.Errorf("consume token: %w", err)
	}
	if !set {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

// DeleteExpired is a no-op for redis: key TTLs already collect expired tokens.
func (s *RedisStore) DeleteExpired(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}
