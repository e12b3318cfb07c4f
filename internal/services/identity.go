package services

import (
	"context"
	"strings"
)

// Identity is the verified caller of a user-facing operation.
type Identity struct {
	UserID string
}

// Authenticator turns an opaque credential into an Identity. Implementations
// return an error matching ErrUnauthorized when the credential is rejected.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (Identity, error)
}

// RequireOwner fails with ErrOwnershipMismatch unless ownerID belongs to the caller.
func RequireOwner(caller Identity, ownerID, component, operation string) error {
	if strings.TrimSpace(caller.UserID) == "" {
		return Wrap(ErrUnauthorized, component, operation, "caller identity missing", nil)
	}
	if caller.UserID != ownerID {
		return Wrap(ErrOwnershipMismatch, component, operation, "record belongs to another user", nil)
	}
	return nil
}
