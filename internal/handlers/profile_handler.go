package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/askme/backend/internal/middleware"
	"github.com/askme/backend/internal/models"
	"github.com/askme/backend/internal/services"
)

type ProfileHandler struct {
	profiles  *services.ProfileService
	questions *services.QuestionService
	logger    *slog.Logger
}

func NewProfileHandler(profiles *services.ProfileService, questions *services.QuestionService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, questions: questions, logger: logger}
}

// GetPublicProfile returns the public page for a username: profile fields
// plus all answered questions, most recently answered first.
func (h *ProfileHandler) GetPublicProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	prof, err := h.profiles.ByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, services.ErrProfileNotFound) {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("User not found"))
			return
		}
		h.logger.Error("profile lookup failed", slog.String("username", username), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load profile"))
		return
	}

	answered, err := h.questions.AnsweredFor(ctx, username)
	if err != nil {
		h.logger.Error("answered questions lookup failed", slog.String("username", username), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load questions"))
		return
	}

	writeJSON(w, http.StatusOK, models.PublicProfileResponse{
		User:              prof.Public(),
		AnsweredQuestions: answered,
	})
}

// GetOwnQuestions returns both partitions of the caller's question set.
// The identity must own the requested username.
func (h *ProfileHandler) GetOwnQuestions(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	unanswered, answered, err := h.questions.ListFor(ctx, identity, username)
	if err != nil {
		if errors.Is(err, services.ErrNotOwner) {
			writeJSON(w, http.StatusForbidden, models.NewErrorResponse("Unauthorized"))
			return
		}
		h.logger.Error("question list failed", slog.String("username", username), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load questions"))
		return
	}

	writeJSON(w, http.StatusOK, models.OwnQuestionsResponse{
		UnansweredQuestions: unanswered,
		AnsweredQuestions:   answered,
	})
}
