// Package identity issues and verifies the bearer tokens that identify callers.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"folio/internal/config"
	"folio/internal/services"
)

const component = "identity"

// Tokens signs and verifies HS256 tokens whose subject is the user id.
type Tokens struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// Option configures optional Tokens behavior.
type Option func(*Tokens)

// WithClock overrides the time source used for issuing and validation.
func WithClock(now func() time.Time) Option {
	return func(t *Tokens) {
		if now != nil {
			t.now = now
		}
	}
}

// New builds a token service from cfg. A signing secret is required.
func New(cfg config.Identity, opts ...Option) (*Tokens, error) {
	secret := strings.TrimSpace(cfg.JWTSecret)
	if secret == "" {
		return nil, errors.New("identity.jwt_secret is required (set FOLIO_JWT_SECRET)")
	}
	ttl := time.Duration(cfg.TokenTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = time.Hour
	}
	t := &Tokens{
		secret:   []byte(secret),
		issuer:   strings.TrimSpace(cfg.Issuer),
		audience: strings.TrimSpace(cfg.Audience),
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Issue signs a token for userID and returns it with its expiry.
func (t *Tokens) Issue(userID string) (string, time.Time, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", time.Time{}, services.Wrap(services.ErrValidation, component, "issue token", "user id is required", nil)
	}
	now := t.now().UTC()
	expires := now.Add(t.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		ID:        uuid.NewString(),
	}
	if t.issuer != "" {
		claims.Issuer = t.issuer
	}
	if t.audience != "" {
		claims.Audience = jwt.ClaimStrings{t.audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Authenticate implements services.Authenticator. Any rejected token reports
// ErrUnauthorized.
func (t *Tokens) Authenticate(_ context.Context, credential string) (services.Identity, error) {
	credential = strings.TrimSpace(credential)
	credential = strings.TrimSpace(strings.TrimPrefix(credential, "Bearer "))
	if credential == "" {
		return services.Identity{}, services.Wrap(services.ErrUnauthorized, component, "authenticate", "credential is required", nil)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	if t.audience != "" {
		opts = append(opts, jwt.WithAudience(t.audience))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(credential, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, opts...)
	if err != nil {
		return services.Identity{}, services.Wrap(services.ErrUnauthorized, component, "authenticate", rejection(err), err)
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return services.Identity{}, services.Wrap(services.ErrUnauthorized, component, "authenticate", "token has no subject", nil)
	}
	return services.Identity{UserID: subject}, nil
}

// rejection describes a jwt parse failure for operators.
func rejection(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "token is expired"
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return "token is not active yet"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "token signature is invalid"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
		return "token was issued for another service"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "token is malformed"
	default:
		return "token is invalid"
	}
}
