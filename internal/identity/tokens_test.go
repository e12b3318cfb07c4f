package identity_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"folio/internal/config"
	"folio/internal/identity"
	"folio/internal/services"
	"folio/internal/testsupport"
)

func newTokens(t *testing.T, now func() time.Time) *identity.Tokens {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	tokens, err := identity.New(cfg.Identity, identity.WithClock(now))
	if err != nil {
		t.Fatalf("identity.New: %v", err)
	}
	return tokens
}

func TestIssueAndAuthenticate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tokens := newTokens(t, func() time.Time { return now })

	token, expires, err := tokens.Issue("author-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !expires.After(now) {
		t.Fatalf("expiry %v not after %v", expires, now)
	}
	caller, err := tokens.Authenticate(context.Background(), "Bearer "+token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if caller.UserID != "author-1" {
		t.Fatalf("caller = %+v", caller)
	}
}

func TestAuthenticateRejections(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	tokens := newTokens(t, func() time.Time { return clock })
	token, _, err := tokens.Issue("author-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	otherCfg := testsupport.NewConfig(t)
	otherCfg.Identity.JWTSecret = strings.Repeat("x", 40)
	other, err := identity.New(otherCfg.Identity, identity.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("identity.New: %v", err)
	}
	forged, _, err := other.Issue("author-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "author-1",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	cases := []struct {
		name       string
		credential string
		at         time.Time
		hint       string
	}{
		{"empty", "  ", now, "credential is required"},
		{"garbage", "not-a-token", now, "malformed"},
		{"wrong secret", forged, now, "signature"},
		{"alg none", unsigned, now, "invalid"},
		{"expired", token, now.Add(48 * time.Hour), "expired"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clock = tc.at
			_, err := tokens.Authenticate(context.Background(), tc.credential)
			if !errors.Is(err, services.ErrUnauthorized) {
				t.Fatalf("err = %v, want unauthorized", err)
			}
			if !strings.Contains(err.Error(), tc.hint) {
				t.Fatalf("err = %v, want mention of %q", err, tc.hint)
			}
		})
	}
}

func TestAuthenticateRejectsForeignAudience(t *testing.T) {
	now := time.Now()
	cfg := testsupport.NewConfig(t)
	issuer, err := identity.New(config.Identity{
		JWTSecret:       cfg.Identity.JWTSecret,
		Issuer:          cfg.Identity.Issuer,
		Audience:        "another-service",
		TokenTTLMinutes: 5,
	})
	if err != nil {
		t.Fatalf("identity.New: %v", err)
	}
	token, _, err := issuer.Issue("author-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	verifier := newTokens(t, func() time.Time { return now })
	if _, err := verifier.Authenticate(context.Background(), token); !errors.Is(err, services.ErrUnauthorized) {
		t.Fatalf("err = %v, want unauthorized", err)
	}
}

func TestNewRequiresSecret(t *testing.T) {
	if _, err := identity.New(config.Identity{TokenTTLMinutes: 10}); err == nil {
		t.Fatal("expected error without secret")
	}
	tokens, err := identity.New(config.Identity{JWTSecret: testsupport.TestSecret})
	if err != nil {
		t.Fatalf("identity.New: %v", err)
	}
	if _, _, err := tokens.Issue("  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("blank user err = %v, want validation", err)
	}
}
