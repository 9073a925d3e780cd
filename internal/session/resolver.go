package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/harentsoaR/clinic-portal/internal/apperr"
	"github.com/harentsoaR/clinic-portal/internal/identity"
	"github.com/harentsoaR/clinic-portal/internal/models"
	"github.com/harentsoaR/clinic-portal/internal/store"
)

// ErrNoProfile means the identity is signed in but has no users document yet.
var ErrNoProfile = apperr.NotFound("Profile not completed")

// State is the session view derived from the stored flags.
type State struct {
	SessionID  string      `json:"sessionId"`
	IdentityID string      `json:"identityId"`
	LoggedIn   bool        `json:"isLoggedIn"`
	Admin      bool        `json:"isAdmin"`
	Role       models.Role `json:"role"`
}

// Resolver turns identity changes into session flags and resolves roles.
type Resolver struct {
	store store.Store
	flags FlagStore
	log   *zap.Logger
}

func NewResolver(s store.Store, flags FlagStore, log *zap.Logger) *Resolver {
	return &Resolver{store: s, flags: flags, log: log}
}

// OnChange is subscribed to the identity provider. It initialises the
// session on sign-in and tears it down on sign-out.
func (r *Resolver) OnChange(ctx context.Context, ch identity.Change) {
	log := r.log.With(zap.String("identity_id", ch.Identity.ID), zap.String("session_id", ch.SessionID))
	switch ch.Kind {
	case identity.SignedIn:
		role, err := r.ResolveRole(ctx, ch.Identity.ID)
		if err != nil && !errors.Is(err, ErrNoProfile) {
			log.Warn("role not resolved at sign-in", zap.Error(err))
		}
		f := Flags{UserID: ch.Identity.ID, LoggedIn: true, Admin: role.IsStaff()}
		if err := r.flags.Set(ctx, ch.SessionID, f, ch.TTL); err != nil {
			log.Error("failed to store session flags", zap.Error(err))
		}
	case identity.SignedOut:
		if err := r.flags.Remove(ctx, ch.SessionID); err != nil {
			log.Error("failed to remove session flags", zap.Error(err))
		}
	}
}

// ResolveRole reads the users document of identityID. A missing document
// yields ErrNoProfile; any other read failure is logged and yields
// RoleUnknown with the error.
func (r *Resolver) ResolveRole(ctx context.Context, identityID string) (models.Role, error) {
	doc, err := r.store.GetDocument(ctx, store.Users, identityID)
	if errors.Is(err, store.ErrNotFound) {
		return models.RoleUnknown, ErrNoProfile
	}
	if err != nil {
		r.log.Warn("role lookup failed", zap.String("identity_id", identityID), zap.Error(err))
		return models.RoleUnknown, fmt.Errorf("session: resolve role: %w", err)
	}
	var u models.User
	if err := store.Decode(doc, &u); err != nil {
		return models.RoleUnknown, err
	}
	return models.ParseRole(u.Role), nil
}

// State returns the flags of sessionID with the role resolved fresh from the store.
func (r *Resolver) State(ctx context.Context, sessionID string) (State, error) {
	f, err := r.flags.Get(ctx, sessionID)
	if err != nil {
		return State{}, err
	}
	st := State{SessionID: sessionID, IdentityID: f.UserID, LoggedIn: f.LoggedIn, Admin: f.Admin}
	if !f.LoggedIn {
		return st, nil
	}
	st.Role, _ = r.ResolveRole(ctx, f.UserID)
	return st, nil
}

// Refresh rewrites the admin flag of a live session after its role changed.
func (r *Resolver) Refresh(ctx context.Context, sessionID, identityID string) error {
	role, err := r.ResolveRole(ctx, identityID)
	if err != nil {
		return err
	}
	f, err := r.flags.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if !f.LoggedIn {
		return nil
	}
	f.Admin = role.IsStaff()
	return r.flags.Set(ctx, sessionID, f, 0)
}
