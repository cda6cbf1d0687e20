// Package provider talks to the external identity provider. All auth
// correctness (password checks, token signing, OAuth exchanges) lives on the
// provider side; this package only forwards credentials and decodes results.
package provider

import (
	"context"
	"fmt"
)

// User is the provider's auth account record.
type User struct {
	ID       string
	Email    string
	Metadata map[string]any
}

// Identity is a verified (id, email) pair resolved from a bearer token.
// It is scoped to a single request and never cached.
type Identity struct {
	ID    string
	Email string
}

// Session is the token pair issued by the provider. Never persisted locally.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Authenticator is the auth surface required from the provider.
type Authenticator interface {
	SignUp(ctx context.Context, email, password string) (*User, *Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*User, *Session, error)
	SignInWithIDToken(ctx context.Context, providerName, idToken string) (*User, *Session, error)
	ExchangeCode(ctx context.Context, code string) (*User, *Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	UserFromToken(ctx context.Context, accessToken string) (*Identity, error)
}

// Structured error codes reported by the provider. Handlers map these to
// HTTP statuses; anything unrecognized becomes a 500.
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeInvalidGrant       = "invalid_grant"
	CodeBadJWT             = "bad_jwt"
	CodeRefreshNotFound    = "refresh_token_not_found"
	CodeUserExists         = "user_already_exists"
	CodeEmailExists        = "email_exists"
	CodeEmailInvalid       = "email_address_invalid"
	CodeWeakPassword       = "weak_password"
	CodeValidationFailed   = "validation_failed"
)

// Error is a structured provider failure.
type Error struct {
	Code    string // machine-readable code, one of the Code* constants or provider-specific
	Status  int    // HTTP status reported by the provider, 0 if not an HTTP failure
	Message string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("provider: %s", e.Message)
	}
	return fmt.Sprintf("provider: %s (%s)", e.Message, e.Code)
}
