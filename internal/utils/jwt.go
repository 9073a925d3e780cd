package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrNoSecret = errors.New("JWT secret is not configured")

// Claims identify the signed-in identity and its session. The role is not
// carried; it is re-read from the store on every gated request.
type Claims struct {
	IdentityID string `json:"identityId"`
	jwt.RegisteredClaims
}

// SessionID is the token id.
func (c *Claims) SessionID() string {
	return c.ID
}

// TokenSigner issues and validates HS256 session tokens.
type TokenSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenSigner(secret string, ttl time.Duration) *TokenSigner {
	return &TokenSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL is the lifetime of issued tokens.
func (s *TokenSigner) TTL() time.Duration {
	return s.ttl
}

// GenerateJWT creates a token for identityID under a new session id.
func (s *TokenSigner) GenerateJWT(identityID string) (token string, sessionID string, err error) {
	if len(s.secret) == 0 {
		return "", "", ErrNoSecret
	}
	now := s.now()
	sessionID = uuid.NewString()
	claims := &Claims{
		IdentityID: identityID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   identityID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", err
	}
	return token, sessionID, nil
}

// ValidateJWT parses and verifies a token string.
func (s *TokenSigner) ValidateJWT(tokenStr string) (*Claims, error) {
	if len(s.secret) == 0 {
		return nil, ErrNoSecret
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.IdentityID == "" || claims.ID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
