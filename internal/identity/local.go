package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harentsoaR/clinic-portal/internal/apperr"
	"github.com/harentsoaR/clinic-portal/internal/store"
	"github.com/harentsoaR/clinic-portal/internal/utils"
)

// ResetMailer delivers password reset tokens.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

type record struct {
	ID               string    `bson:"_id,omitempty"`
	Email            string    `bson:"email"`
	PasswordHash     string    `bson:"passwordHash,omitempty"`
	Provider         string    `bson:"provider"`
	FederatedSubject string    `bson:"federatedSubject,omitempty"`
	ResetTokenHash   string    `bson:"resetTokenHash,omitempty"`
	ResetExpiresAt   time.Time `bson:"resetExpiresAt,omitempty"`
	CreatedAt        time.Time `bson:"createdAt"`
}

func (r record) identity() Identity {
	return Identity{ID: r.ID, Email: r.Email, Provider: r.Provider}
}

// Local keeps identities in the document store and signs its own session tokens.
type Local struct {
	store    store.Store
	signer   *utils.TokenSigner
	cost     int
	mailer   ResetMailer
	verifier TokenVerifier
	hub      *Hub
	log      *zap.Logger
	resetTTL time.Duration
	now      func() time.Time
}

type LocalOptions struct {
	BcryptCost int
	Mailer     ResetMailer
	Verifier   TokenVerifier
	ResetTTL   time.Duration
}

func NewLocal(s store.Store, signer *utils.TokenSigner, log *zap.Logger, opts LocalOptions) *Local {
	if opts.ResetTTL == 0 {
		opts.ResetTTL = time.Hour
	}
	return &Local{
		store:    s,
		signer:   signer,
		cost:     opts.BcryptCost,
		mailer:   opts.Mailer,
		verifier: opts.Verifier,
		hub:      NewHub(),
		log:      log,
		resetTTL: opts.ResetTTL,
		now:      time.Now,
	}
}

// Subscribe registers l for sign-in and sign-out changes.
func (p *Local) Subscribe(l Listener) func() {
	return p.hub.Subscribe(l)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (p *Local) findBy(ctx context.Context, field string, value any) (*record, error) {
	docs, err := p.store.Query(ctx, store.Identities, store.Query{Field: field, Equals: value})
	if err != nil {
		return nil, fmt.Errorf("identity: lookup by %s: %w", field, err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	var r record
	if err := store.Decode(docs[0], &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (p *Local) get(ctx context.Context, id string) (*record, error) {
	doc, err := p.store.GetDocument(ctx, store.Identities, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnknownIdentity
	}
	if err != nil {
		return nil, fmt.Errorf("identity: get %s: %w", id, err)
	}
	var r record
	if err := store.Decode(doc, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// SignIn opens a session for an identity and notifies subscribers.
func (p *Local) SignIn(ctx context.Context, id Identity, newIdentity bool) (*Session, error) {
	token, sessionID, err := p.signer.GenerateJWT(id.ID)
	if err != nil {
		return nil, fmt.Errorf("identity: sign token: %w", err)
	}
	sess := &Session{
		Identity:    id,
		ID:          sessionID,
		Token:       token,
		ExpiresAt:   p.now().Add(p.signer.TTL()),
		NewIdentity: newIdentity,
	}
	p.hub.Publish(ctx, Change{Kind: SignedIn, Identity: id, SessionID: sessionID, TTL: p.signer.TTL()})
	p.log.Info("identity signed in", zap.String("identity_id", id.ID), zap.String("provider", id.Provider))
	return sess, nil
}

// SignOut notifies subscribers that the session ended.
func (p *Local) SignOut(ctx context.Context, identityID, sessionID string) error {
	p.hub.Publish(ctx, Change{Kind: SignedOut, Identity: Identity{ID: identityID}, SessionID: sessionID})
	p.log.Info("identity signed out", zap.String("identity_id", identityID))
	return nil
}

// Authenticate checks an email/password pair and opens a session.
func (p *Local) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	r, err := p.findBy(ctx, "email", normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if r == nil || r.PasswordHash == "" || !utils.CheckPasswordHash(password, r.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return p.SignIn(ctx, r.identity(), false)
}

// VerifyPassword checks the current password of an identity without opening
// a session. Identities without a password confirm with an empty one.
func (p *Local) VerifyPassword(ctx context.Context, identityID, password string) error {
	r, err := p.get(ctx, identityID)
	if err != nil {
		return err
	}
	if r.PasswordHash == "" && password == "" {
		return nil
	}
	if r.PasswordHash == "" || !utils.CheckPasswordHash(password, r.PasswordHash) {
		return apperr.Validation("The current password is incorrect.")
	}
	return nil
}

// CreateIdentity registers an email/password identity. It does not sign in.
func (p *Local) CreateIdentity(ctx context.Context, email, password string) (*Identity, error) {
	email = normalizeEmail(email)
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	existing, err := p.findBy(ctx, "email", email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailInUse
	}
	hash, err := utils.HashPassword(password, p.cost)
	if err != nil {
		return nil, fmt.Errorf("identity: hash password: %w", err)
	}
	r := record{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Provider:     ProviderPassword,
		CreatedAt:    p.now().UTC(),
	}
	if err := p.create(ctx, r); err != nil {
		return nil, err
	}
	id := r.identity()
	return &id, nil
}

func (p *Local) create(ctx context.Context, r record) error {
	fields, err := store.Encode(r)
	if err != nil {
		return err
	}
	if _, err := p.store.CreateDocument(ctx, store.Identities, r.ID, fields); err != nil {
		if errors.Is(err, store.ErrExists) {
			return ErrEmailInUse
		}
		return fmt.Errorf("identity: create: %w", err)
	}
	return nil
}

// AuthenticateFederated signs in with a federated ID token, creating or
// linking the identity on first use.
func (p *Local) AuthenticateFederated(ctx context.Context, token string) (*Session, error) {
	if p.verifier == nil {
		return nil, apperr.New(apperr.KindPermanent, "Federated sign-in is not configured")
	}
	claims, err := p.verifier.Verify(ctx, token)
	if err != nil {
		p.log.Warn("federated token rejected", zap.Error(err))
		return nil, ErrInvalidCredentials
	}

	r, err := p.findBy(ctx, "federatedSubject", claims.Subject)
	if err != nil {
		return nil, err
	}
	if r != nil {
		return p.SignIn(ctx, r.identity(), false)
	}

	email := normalizeEmail(claims.Email)
	if email != "" {
		linked, err := p.findBy(ctx, "email", email)
		if err != nil {
			return nil, err
		}
		if linked != nil {
			if err := p.store.UpdateDocument(ctx, store.Identities, linked.ID, store.Fields{"federatedSubject": claims.Subject}); err != nil {
				return nil, fmt.Errorf("identity: link federated subject: %w", err)
			}
			return p.SignIn(ctx, linked.identity(), false)
		}
	}

	created := record{
		ID:               uuid.NewString(),
		Email:            email,
		Provider:         ProviderGoogle,
		FederatedSubject: claims.Subject,
		CreatedAt:        p.now().UTC(),
	}
	if err := p.create(ctx, created); err != nil {
		return nil, err
	}
	return p.SignIn(ctx, created.identity(), true)
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// SendPasswordReset mails a reset token. Unknown emails succeed silently.
func (p *Local) SendPasswordReset(ctx context.Context, email string) error {
	r, err := p.findBy(ctx, "email", normalizeEmail(email))
	if err != nil {
		return err
	}
	if r == nil {
		p.log.Info("password reset requested for unknown email")
		return nil
	}
	if p.mailer == nil {
		return apperr.New(apperr.KindPermanent, "Password reset email is not configured")
	}
	token := uuid.NewString()
	err = p.store.UpdateDocument(ctx, store.Identities, r.ID, store.Fields{
		"resetTokenHash": hashToken(token),
		"resetExpiresAt": p.now().Add(p.resetTTL).UTC(),
	})
	if err != nil {
		return fmt.Errorf("identity: store reset token: %w", err)
	}
	if err := p.mailer.SendPasswordReset(ctx, r.Email, token); err != nil {
		return apperr.Wrap(apperr.KindTransient, "Could not send the reset email. Please try again.", err)
	}
	return nil
}

// ResetPassword sets a new password using a mailed reset token.
func (p *Local) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}
	r, err := p.findBy(ctx, "resetTokenHash", hashToken(token))
	if err != nil {
		return err
	}
	if r == nil || p.now().After(r.ResetExpiresAt) {
		return ErrResetTokenInvalid
	}
	hash, err := utils.HashPassword(newPassword, p.cost)
	if err != nil {
		return fmt.Errorf("identity: hash password: %w", err)
	}
	return p.store.UpdateDocument(ctx, store.Identities, r.ID, store.Fields{
		"passwordHash":   hash,
		"resetTokenHash": "",
	})
}

func (p *Local) UpdatePassword(ctx context.Context, identityID, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}
	hash, err := utils.HashPassword(newPassword, p.cost)
	if err != nil {
		return fmt.Errorf("identity: hash password: %w", err)
	}
	err = p.store.UpdateDocument(ctx, store.Identities, identityID, store.Fields{"passwordHash": hash})
	if errors.Is(err, store.ErrNotFound) {
		return ErrUnknownIdentity
	}
	return err
}

func (p *Local) UpdateEmail(ctx context.Context, identityID, newEmail string) error {
	newEmail = normalizeEmail(newEmail)
	existing, err := p.findBy(ctx, "email", newEmail)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != identityID {
		return ErrEmailInUse
	}
	err = p.store.UpdateDocument(ctx, store.Identities, identityID, store.Fields{"email": newEmail})
	if errors.Is(err, store.ErrNotFound) {
		return ErrUnknownIdentity
	}
	return err
}

// IdentityEmail returns the sign-in email of identityID.
func (p *Local) IdentityEmail(ctx context.Context, identityID string) (string, error) {
	r, err := p.get(ctx, identityID)
	if err != nil {
		return "", err
	}
	return r.Email, nil
}

func (p *Local) DeleteIdentity(ctx context.Context, identityID string) error {
	return p.store.DeleteDocument(ctx, store.Identities, identityID)
}
