// Package identity is the authentication boundary: password and federated
// identities, password reset, credential changes and sign-in/sign-out events.
package identity

import (
	"context"
	"sync"
	"time"

	"github.com/harentsoaR/clinic-portal/internal/apperr"
)

const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

var (
	ErrInvalidCredentials = apperr.Unauthorized("Invalid credentials")
	ErrEmailInUse         = apperr.Conflict("An account with this email already exists")
	ErrWeakPassword       = apperr.Validation("Password must be at least 8 characters")
	ErrResetTokenInvalid  = apperr.Validation("The reset link is invalid or has expired")
	ErrUnknownIdentity    = apperr.NotFound("Account not found")
)

// MinPasswordLength applies to new and changed passwords.
const MinPasswordLength = 8

type Identity struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Provider string `json:"provider"`
}

// Session is a signed-in identity with its bearer token.
type Session struct {
	Identity  Identity  `json:"identity"`
	ID        string    `json:"sessionId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	// NewIdentity is set when this sign-in created the identity.
	NewIdentity bool `json:"newIdentity"`
}

type ChangeKind string

const (
	SignedIn  ChangeKind = "signed_in"
	SignedOut ChangeKind = "signed_out"
)

// Change is delivered to subscribers on every sign-in and sign-out.
type Change struct {
	Kind      ChangeKind
	Identity  Identity
	SessionID string
	TTL       time.Duration
}

type Listener func(ctx context.Context, ch Change)

// Hub fans identity changes out to subscribers, synchronously and in
// subscription order.
type Hub struct {
	mu        sync.RWMutex
	next      int
	order     []int
	listeners map[int]Listener
}

func NewHub() *Hub {
	return &Hub{listeners: map[int]Listener{}}
}

// Subscribe registers l and returns its cancel function.
func (h *Hub) Subscribe(l Listener) (cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	h.listeners[id] = l
	h.order = append(h.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.listeners, id)
			for i, v := range h.order {
				if v == id {
					h.order = append(h.order[:i:i], h.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (h *Hub) Publish(ctx context.Context, ch Change) {
	h.mu.RLock()
	ls := make([]Listener, 0, len(h.order))
	for _, id := range h.order {
		ls = append(ls, h.listeners[id])
	}
	h.mu.RUnlock()
	for _, l := range ls {
		l(ctx, ch)
	}
}
