package identity

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/idtoken"
)

// FederatedClaims are the verified claims of a federated ID token.
type FederatedClaims struct {
	Subject string
	Email   string
}

// TokenVerifier checks a federated ID token.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (FederatedClaims, error)
}

// GoogleVerifier validates Google ID tokens for one OAuth client id.
type GoogleVerifier struct {
	ClientID string
}

func (g GoogleVerifier) Verify(ctx context.Context, token string) (FederatedClaims, error) {
	if g.ClientID == "" {
		return FederatedClaims{}, errors.New("identity: google client id not configured")
	}
	payload, err := idtoken.Validate(ctx, token, g.ClientID)
	if err != nil {
		return FederatedClaims{}, fmt.Errorf("identity: validate google token: %w", err)
	}
	email, _ := payload.Claims["email"].(string)
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return FederatedClaims{}, errors.New("identity: google email not verified")
	}
	return FederatedClaims{Subject: payload.Subject, Email: email}, nil
}
