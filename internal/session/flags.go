// Package session keeps the per-session state derived from identity changes:
// the durable routing flags and the resolved role.
package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Flags are the three durable values the router reads before a role is resolved.
type Flags struct {
	UserID   string
	LoggedIn bool
	Admin    bool
}

// FlagStore persists Flags per session id.
type FlagStore interface {
	// Get returns zero Flags when nothing is stored for the session.
	Get(ctx context.Context, sessionID string) (Flags, error)
	Set(ctx context.Context, sessionID string, f Flags, ttl time.Duration) error
	Remove(ctx context.Context, sessionID string) error
}

const (
	fieldUserID   = "userID"
	fieldLoggedIn = "isLoggedIn"
	fieldAdmin    = "isAdmin"
)

// RedisFlags stores flags in a hash per session.
type RedisFlags struct {
	client *redis.Client
	prefix string
}

func NewRedisFlags(client *redis.Client) *RedisFlags {
	return &RedisFlags{client: client, prefix: "session:"}
}

func (r *RedisFlags) key(sessionID string) string {
	return r.prefix + sessionID
}

func (r *RedisFlags) Get(ctx context.Context, sessionID string) (Flags, error) {
	vals, err := r.client.HGetAll(ctx, r.key(sessionID)).Result()
	if err != nil {
		return Flags{}, fmt.Errorf("session: read flags: %w", err)
	}
	if len(vals) == 0 {
		return Flags{}, nil
	}
	loggedIn, _ := strconv.ParseBool(vals[fieldLoggedIn])
	admin, _ := strconv.ParseBool(vals[fieldAdmin])
	return Flags{UserID: vals[fieldUserID], LoggedIn: loggedIn, Admin: admin}, nil
}

func (r *RedisFlags) Set(ctx context.Context, sessionID string, f Flags, ttl time.Duration) error {
	key := r.key(sessionID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldUserID, f.UserID,
			fieldLoggedIn, strconv.FormatBool(f.LoggedIn),
			fieldAdmin, strconv.FormatBool(f.Admin),
		)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("session: write flags: %w", err)
	}
	return nil
}

func (r *RedisFlags) Remove(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("session: remove flags: %w", err)
	}
	return nil
}
