package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	appMiddleware "github.com/askme/backend/internal/middleware"
	"github.com/askme/backend/internal/models"
	"github.com/askme/backend/internal/provider"
	"github.com/askme/backend/internal/services"
)

// NewRouter wires middleware, handlers and routes. Route-level auth: the
// protected group resolves the bearer identity before any handler runs.
func NewRouter(logger *slog.Logger, auth provider.Authenticator, profiles *services.ProfileService, questions *services.QuestionService) *chi.Mux {
	authHandler := NewAuthHandler(auth, profiles, logger)
	profileHandler := NewProfileHandler(profiles, questions, logger)
	questionHandler := NewQuestionHandler(questions, logger)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(appMiddleware.Logger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.HealthResponse{
			Status:  "healthy",
			Message: "AskMe API is running",
		})
	})

	r.Post("/auth/signup", authHandler.Signup)
	r.Post("/auth/login", authHandler.Login)
	r.Post("/auth/google", authHandler.GoogleAuth)
	r.Post("/auth/callback", authHandler.OAuthCallback)
	r.Post("/auth/refresh", authHandler.Refresh)

	r.Get("/user/{username}", profileHandler.GetPublicProfile)
	r.Post("/questions", questionHandler.Submit)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.RequireAuth(auth))

		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/user/{username}/questions", profileHandler.GetOwnQuestions)
		r.Post("/questions/{id}/answer", questionHandler.Answer)
		r.Delete("/questions/{id}", questionHandler.Delete)
		r.Get("/dashboard", questionHandler.Dashboard)
	})

	return r
}
