package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/askme/backend/internal/middleware"
	"github.com/askme/backend/internal/models"
	"github.com/askme/backend/internal/provider"
	"github.com/askme/backend/internal/services"
)

type AuthHandler struct {
	auth     provider.Authenticator
	profiles *services.ProfileService
	logger   *slog.Logger
}

func NewAuthHandler(auth provider.Authenticator, profiles *services.ProfileService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, profiles: profiles, logger: logger}
}

// Signup creates an auth account with the provider, then a profile with the
// chosen username. The two steps are not atomic: if the profile insert
// fails the auth account survives, the caller gets a 500 and must retry.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	// Reject a taken username before touching the provider. The storage
	// uniqueness constraint still backstops the race window.
	if _, err := h.profiles.ByUsername(ctx, req.Username); err == nil {
		writeJSON(w, http.StatusConflict, models.NewErrorResponse("Username already exists"))
		return
	} else if !errors.Is(err, services.ErrProfileNotFound) {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Signup failed"))
		return
	}

	user, _, err := h.auth.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		h.logger.Error("signup failed", slog.String("error", err.Error()))
		writeProviderError(w, err, "Signup failed")
		return
	}
	if user == nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Failed to create user"))
		return
	}

	prof, err := h.profiles.Create(ctx, user.ID, req.Username, req.Email)
	if err != nil {
		if errors.Is(err, services.ErrUsernameTaken) {
			writeJSON(w, http.StatusConflict, models.NewErrorResponse("Username already exists"))
			return
		}
		h.logger.Error("profile creation failed", slog.String("user", user.ID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Profile creation failed"))
		return
	}

	writeJSON(w, http.StatusCreated, models.AuthResponse{
		Message: "User created successfully",
		User:    &models.AuthUser{ID: user.ID, Email: user.Email, Username: &prof.Username},
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	user, sess, err := h.auth.SignInWithPassword(ctx, req.Email, req.Password)
	if err != nil {
		writeProviderError(w, err, "Invalid credentials")
		return
	}
	if user == nil || sess == nil {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Invalid credentials"))
		return
	}

	// Password login does not reconcile: an identity without a profile gets
	// a null username.
	var username *string
	if prof, err := h.profiles.ByID(ctx, user.ID); err == nil {
		username = &prof.Username
	}

	writeJSON(w, http.StatusOK, models.AuthResponse{
		Message: "Login successful",
		User:    &models.AuthUser{ID: user.ID, Email: user.Email, Username: username},
		Session: sess,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.auth.SignOut(ctx, middleware.BearerToken(r.Context())); err != nil {
		writeProviderError(w, err, "Logout failed")
		return
	}
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Logged out successfully"})
}

func (h *AuthHandler) GoogleAuth(w http.ResponseWriter, r *http.Request) {
	var req models.GoogleAuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if req.IDToken == "" {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Google ID token is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	user, sess, err := h.auth.SignInWithIDToken(ctx, "google", req.IDToken)
	if err != nil || user == nil || sess == nil {
		if err != nil {
			h.logger.Error("google auth failed", slog.String("error", err.Error()))
		}
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Google authentication failed"))
		return
	}

	h.finishOAuth(ctx, w, user, sess, "Google authentication successful")
}

func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	var req models.CallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if req.Code == "" {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("OAuth code is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	user, sess, err := h.auth.ExchangeCode(ctx, req.Code)
	if err != nil || user == nil || sess == nil {
		if err != nil {
			h.logger.Error("code exchange failed", slog.String("error", err.Error()))
		}
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("OAuth authentication failed"))
		return
	}

	h.finishOAuth(ctx, w, user, sess, "OAuth authentication successful")
}

// finishOAuth reconciles the provider identity into a profile and responds
// with the user and session. Shared by the id-token and code flows.
func (h *AuthHandler) finishOAuth(ctx context.Context, w http.ResponseWriter, user *provider.User, sess *provider.Session, message string) {
	prof, err := h.profiles.Reconcile(ctx, user)
	if err != nil {
		h.logger.Error("profile reconciliation failed", slog.String("user", user.ID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Profile creation failed"))
		return
	}

	writeJSON(w, http.StatusOK, models.AuthResponse{
		Message: message,
		User:    &models.AuthUser{ID: user.ID, Email: user.Email, Username: &prof.Username},
		Session: sess,
	})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if req.RefreshToken == "" {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Refresh token is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	sess, err := h.auth.RefreshSession(ctx, req.RefreshToken)
	if err != nil {
		writeProviderError(w, err, "Token refresh failed")
		return
	}

	writeJSON(w, http.StatusOK, models.AuthResponse{
		Message: "Token refreshed successfully",
		Session: sess,
	})
}
