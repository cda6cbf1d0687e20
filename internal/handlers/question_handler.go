package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/askme/backend/internal/middleware"
	"github.com/askme/backend/internal/models"
	"github.com/askme/backend/internal/services"
)

type QuestionHandler struct {
	questions *services.QuestionService
	logger    *slog.Logger
}

func NewQuestionHandler(questions *services.QuestionService, logger *slog.Logger) *QuestionHandler {
	return &QuestionHandler{questions: questions, logger: logger}
}

// Submit accepts an anonymous question for an existing receiver.
func (h *QuestionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitQuestionRequest
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

	q, err := h.questions.Submit(ctx, req.Receiver, req.Question)
	if err != nil {
		if errors.Is(err, services.ErrReceiverNotFound) {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("User not found"))
			return
		}
		h.logger.Error("question submit failed", slog.String("receiver", req.Receiver), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to submit question"))
		return
	}

	writeJSON(w, http.StatusCreated, models.QuestionResponse{
		Message:  "Question submitted successfully",
		Question: *q,
	})
}

// Answer sets the answer on the caller's own question.
func (h *QuestionHandler) Answer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid question id"))
		return
	}

	var req models.AnswerQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return
	}

	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	q, err := h.questions.Answer(ctx, identity, id, req.Answer)
	if err != nil {
		h.writeQuestionError(w, err, id, "Failed to answer question")
		return
	}

	writeJSON(w, http.StatusOK, models.QuestionResponse{
		Message:  "Question answered successfully",
		Question: *q,
	})
}

// Delete removes the caller's own question in either state.
func (h *QuestionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid question id"))
		return
	}

	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.questions.Delete(ctx, identity, id); err != nil {
		h.writeQuestionError(w, err, id, "Failed to delete question")
		return
	}

	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Question deleted successfully"})
}

// Dashboard returns the caller's recent questions and true totals.
func (h *QuestionHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	dash, err := h.questions.Dashboard(ctx, identity)
	if err != nil {
		if errors.Is(err, services.ErrProfileNotFound) {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("User profile not found"))
			return
		}
		h.logger.Error("dashboard failed", slog.String("user", identity.ID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load dashboard"))
		return
	}

	writeJSON(w, http.StatusOK, dash)
}

func (h *QuestionHandler) writeQuestionError(w http.ResponseWriter, err error, id int64, fallback string) {
	switch {
	case errors.Is(err, services.ErrQuestionNotFound):
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Question not found"))
	case errors.Is(err, services.ErrNotOwner):
		writeJSON(w, http.StatusForbidden, models.NewErrorResponse("Unauthorized"))
	default:
		h.logger.Error("question mutation failed", slog.Int64("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse(fallback))
	}
}
