package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/harentsoaR/clinic-portal/internal/apperr"
	"github.com/harentsoaR/clinic-portal/internal/store"
	"github.com/harentsoaR/clinic-portal/internal/utils"
)

type fakeMailer struct {
	email, token string
	err          error
}

func (f *fakeMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	f.email, f.token = email, token
	return f.err
}

type fakeVerifier struct {
	claims FederatedClaims
	err    error
}

func (f fakeVerifier) Verify(ctx context.Context, token string) (FederatedClaims, error) {
	return f.claims, f.err
}

func newTestProvider(t *testing.T, opts LocalOptions) (*Local, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	opts.BcryptCost = bcrypt.MinCost
	p := NewLocal(mem, utils.NewTokenSigner("secret", time.Hour), zap.NewNop(), opts)
	return p, mem
}

func TestCreateAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t, LocalOptions{})

	id, err := p.CreateIdentity(ctx, " Ana@Example.com ", "password123")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", id.Email)

	_, err = p.CreateIdentity(ctx, "ana@example.com", "password456")
	assert.ErrorIs(t, err, ErrEmailInUse)

	var changes []Change
	cancel := p.Subscribe(func(ctx context.Context, ch Change) { changes = append(changes, ch) })
	defer cancel()

	sess, err := p.Authenticate(ctx, "ana@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, id.ID, sess.Identity.ID)
	assert.NotEmpty(t, sess.Token)
	require.Len(t, changes, 1)
	assert.Equal(t, SignedIn, changes[0].Kind)
	assert.Equal(t, sess.ID, changes[0].SessionID)

	_, err = p.Authenticate(ctx, "ana@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = p.Authenticate(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateIdentityRejectsShortPassword(t *testing.T) {
	p, _ := newTestProvider(t, LocalOptions{})
	_, err := p.CreateIdentity(context.Background(), "a@a.com", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestSignOutNotifiesAndCancelStops(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t, LocalOptions{})

	var kinds []ChangeKind
	cancel := p.Subscribe(func(ctx context.Context, ch Change) { kinds = append(kinds, ch.Kind) })
	require.NoError(t, p.SignOut(ctx, "u1", "s1"))
	cancel()
	cancel()
	require.NoError(t, p.SignOut(ctx, "u1", "s2"))

	assert.Equal(t, []ChangeKind{SignedOut}, kinds)
}

func TestPasswordResetFlow(t *testing.T) {
	ctx := context.Background()
	mailer := &fakeMailer{}
	p, _ := newTestProvider(t, LocalOptions{Mailer: mailer})

	_, err := p.CreateIdentity(ctx, "ana@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, p.SendPasswordReset(ctx, "nobody@example.com"))
	assert.Empty(t, mailer.token)

	require.NoError(t, p.SendPasswordReset(ctx, "ANA@example.com"))
	assert.Equal(t, "ana@example.com", mailer.email)
	require.NotEmpty(t, mailer.token)

	assert.ErrorIs(t, p.ResetPassword(ctx, "bogus", "newpassword1"), ErrResetTokenInvalid)
	require.NoError(t, p.ResetPassword(ctx, mailer.token, "newpassword1"))

	_, err = p.Authenticate(ctx, "ana@example.com", "newpassword1")
	assert.NoError(t, err)
	assert.ErrorIs(t, p.ResetPassword(ctx, mailer.token, "another-one"), ErrResetTokenInvalid)
}

func TestPasswordResetExpires(t *testing.T) {
	ctx := context.Background()
	mailer := &fakeMailer{}
	p, _ := newTestProvider(t, LocalOptions{Mailer: mailer, ResetTTL: time.Minute})
	_, err := p.CreateIdentity(ctx, "ana@example.com", "password123")
	require.NoError(t, err)
	require.NoError(t, p.SendPasswordReset(ctx, "ana@example.com"))

	p.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.ErrorIs(t, p.ResetPassword(ctx, mailer.token, "newpassword1"), ErrResetTokenInvalid)
}

func TestPasswordResetMailFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t, LocalOptions{Mailer: &fakeMailer{err: errors.New("smtp down")}})
	_, err := p.CreateIdentity(ctx, "ana@example.com", "password123")
	require.NoError(t, err)

	err = p.SendPasswordReset(ctx, "ana@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
}

func TestPasswordResetWithoutMailerWritesNothing(t *testing.T) {
	ctx := context.Background()
	p, mem := newTestProvider(t, LocalOptions{})
	_, err := p.CreateIdentity(ctx, "ana@example.com", "password123")
	require.NoError(t, err)

	mem.ResetCalls()
	err = p.SendPasswordReset(ctx, "ana@example.com")
	assert.Equal(t, apperr.KindPermanent, apperr.Classify(err))
	assert.Empty(t, mem.Writes())
}

func TestUpdateEmailAndPassword(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t, LocalOptions{})
	a, err := p.CreateIdentity(ctx, "a@a.com", "password123")
	require.NoError(t, err)
	_, err = p.CreateIdentity(ctx, "b@b.com", "password123")
	require.NoError(t, err)

	assert.ErrorIs(t, p.UpdateEmail(ctx, a.ID, "b@b.com"), ErrEmailInUse)
	require.NoError(t, p.UpdateEmail(ctx, a.ID, "c@c.com"))
	require.NoError(t, p.UpdatePassword(ctx, a.ID, "password999"))

	require.NoError(t, p.VerifyPassword(ctx, a.ID, "password999"))
	assert.Error(t, p.VerifyPassword(ctx, a.ID, "password123"))

	_, err = p.Authenticate(ctx, "c@c.com", "password999")
	assert.NoError(t, err)

	assert.ErrorIs(t, p.UpdatePassword(ctx, "missing", "password999"), ErrUnknownIdentity)
}

func TestAuthenticateFederated(t *testing.T) {
	ctx := context.Background()
	p, mem := newTestProvider(t, LocalOptions{Verifier: fakeVerifier{claims: FederatedClaims{Subject: "g-1", Email: "Ana@Example.com"}}})

	first, err := p.AuthenticateFederated(ctx, "token")
	require.NoError(t, err)
	assert.True(t, first.NewIdentity)
	assert.Equal(t, ProviderGoogle, first.Identity.Provider)

	second, err := p.AuthenticateFederated(ctx, "token")
	require.NoError(t, err)
	assert.False(t, second.NewIdentity)
	assert.Equal(t, first.Identity.ID, second.Identity.ID)

	docs, err := mem.ListCollection(ctx, store.Identities)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestAuthenticateFederatedLinksExistingEmail(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t, LocalOptions{Verifier: fakeVerifier{claims: FederatedClaims{Subject: "g-2", Email: "a@a.com"}}})
	existing, err := p.CreateIdentity(ctx, "a@a.com", "password123")
	require.NoError(t, err)

	sess, err := p.AuthenticateFederated(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, sess.Identity.ID)
	assert.False(t, sess.NewIdentity)
}

func TestAuthenticateFederatedRejectsBadToken(t *testing.T) {
	p, _ := newTestProvider(t, LocalOptions{Verifier: fakeVerifier{err: errors.New("bad signature")}})
	_, err := p.AuthenticateFederated(context.Background(), "token")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
