package session

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harentsoaR/clinic-portal/internal/identity"
	"github.com/harentsoaR/clinic-portal/internal/models"
	"github.com/harentsoaR/clinic-portal/internal/store"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisFlagsRoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	flags := NewRedisFlags(client)

	got, err := flags.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, Flags{}, got)

	require.NoError(t, flags.Set(ctx, "s1", Flags{UserID: "u1", LoggedIn: true, Admin: true}, time.Minute))
	got, err = flags.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, Flags{UserID: "u1", LoggedIn: true, Admin: true}, got)
	assert.Equal(t, "true", mr.HGet("session:s1", "isAdmin"))

	mr.FastForward(2 * time.Minute)
	got, err = flags.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, got.LoggedIn)
}

func TestTokensAreSingleUse(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	tokens := NewTokens(client)

	tok, err := tokens.Issue(ctx, "delete", "u1", time.Minute)
	require.NoError(t, err)

	_, err = tokens.Consume(ctx, "other", tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	subject, err := tokens.Consume(ctx, "delete", tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", subject)

	_, err = tokens.Consume(ctx, "delete", tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	tok, err = tokens.Issue(ctx, "delete", "u1", time.Minute)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	_, err = tokens.Consume(ctx, "delete", tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func newResolver(t *testing.T) (*Resolver, *store.Memory, *RedisFlags) {
	t.Helper()
	_, client := newRedis(t)
	mem := store.NewMemory()
	flags := NewRedisFlags(client)
	return NewResolver(mem, flags, zap.NewNop()), mem, flags
}

func TestOnChangeInitialisesAndTearsDown(t *testing.T) {
	ctx := context.Background()
	r, mem, flags := newResolver(t)
	mem.Seed(store.Users, "u1", store.Fields{models.FieldUserRole: "Staff"})

	r.OnChange(ctx, identity.Change{Kind: identity.SignedIn, Identity: identity.Identity{ID: "u1"}, SessionID: "s1", TTL: time.Hour})
	st, err := r.State(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, State{SessionID: "s1", IdentityID: "u1", LoggedIn: true, Admin: true, Role: models.RoleStaff}, st)

	r.OnChange(ctx, identity.Change{Kind: identity.SignedOut, Identity: identity.Identity{ID: "u1"}, SessionID: "s1"})
	f, err := flags.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, Flags{}, f)
}

func TestResolveRole(t *testing.T) {
	ctx := context.Background()
	r, mem, _ := newResolver(t)
	mem.Seed(store.Users, "p1", store.Fields{models.FieldUserRole: "Patient"})
	mem.Seed(store.Users, "d1", store.Fields{models.FieldUserRole: "Doctor"})

	role, err := r.ResolveRole(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.RolePatient, role)

	role, err = r.ResolveRole(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, role)

	role, err = r.ResolveRole(ctx, "missing")
	assert.ErrorIs(t, err, ErrNoProfile)
	assert.Equal(t, models.RoleUnknown, role)

	mem.Fail = func(op, collection, id string) error { return errors.New("unavailable") }
	role, err = r.ResolveRole(ctx, "p1")
	assert.Error(t, err)
	assert.Equal(t, models.RoleUnknown, role)
}

func TestSignInWithoutProfileIsNotAdmin(t *testing.T) {
	ctx := context.Background()
	r, _, flags := newResolver(t)

	r.OnChange(ctx, identity.Change{Kind: identity.SignedIn, Identity: identity.Identity{ID: "new"}, SessionID: "s2", TTL: time.Hour})
	f, err := flags.Get(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, Flags{UserID: "new", LoggedIn: true}, f)
}

func TestRefreshAfterPromotion(t *testing.T) {
	ctx := context.Background()
	r, mem, flags := newResolver(t)
	mem.Seed(store.Users, "u1", store.Fields{models.FieldUserRole: "Patient"})
	r.OnChange(ctx, identity.Change{Kind: identity.SignedIn, Identity: identity.Identity{ID: "u1"}, SessionID: "s1", TTL: time.Hour})

	mem.Seed(store.Users, "u1", store.Fields{models.FieldUserRole: "Staff"})
	require.NoError(t, r.Refresh(ctx, "s1", "u1"))

	f, err := flags.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, f.Admin)
}
