package models

import "github.com/askme/backend/internal/provider"

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

func (r *SignupRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	}
	if r.Username == "" {
		errors["username"] = "Username is required"
	}

	return errors
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	}

	return errors
}

type GoogleAuthRequest struct {
	IDToken string `json:"id_token"`
}

type CallbackRequest struct {
	Code string `json:"code"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthUser is the user block returned by auth endpoints. Username is nil
// when the identity has no profile yet (password login before reconciliation).
type AuthUser struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	Username *string `json:"username"`
}

// AuthResponse is the common body of the auth endpoints. Session is omitted
// on signup (the provider may require email confirmation first).
type AuthResponse struct {
	Message string            `json:"message"`
	User    *AuthUser         `json:"user,omitempty"`
	Session *provider.Session `json:"session,omitempty"`
}
