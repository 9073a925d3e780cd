package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrTokenInvalid is returned for unknown, expired or already used tokens.
var ErrTokenInvalid = errors.New("session: confirmation token invalid")

// Tokens issues single-use confirmation tokens bound to a subject.
type Tokens struct {
	client *redis.Client
}

func NewTokens(client *redis.Client) *Tokens {
	return &Tokens{client: client}
}

func tokenKey(purpose, token string) string {
	return "confirm:" + purpose + ":" + token
}

// Issue stores a fresh token for subject that expires after ttl.
func (t *Tokens) Issue(ctx context.Context, purpose, subject string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	if err := t.client.Set(ctx, tokenKey(purpose, token), subject, ttl).Err(); err != nil {
		return "", fmt.Errorf("session: issue %s token: %w", purpose, err)
	}
	return token, nil
}

// Consume returns the subject of token and invalidates it.
func (t *Tokens) Consume(ctx context.Context, purpose, token string) (string, error) {
	subject, err := t.client.GetDel(ctx, tokenKey(purpose, token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenInvalid
	}
	if err != nil {
		return "", fmt.Errorf("session: consume %s token: %w", purpose, err)
	}
	return subject, nil
}
