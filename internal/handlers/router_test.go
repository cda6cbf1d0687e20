package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askme/backend/internal/handlers"
	"github.com/askme/backend/internal/models"
	"github.com/askme/backend/internal/provider"
	"github.com/askme/backend/internal/services"
	"github.com/askme/backend/internal/store"
)

// fixture runs the full router over the local authenticator and in-memory
// store, mirroring the dev wiring in cmd/server.
type fixture struct {
	t      *testing.T
	router http.Handler
	local  *provider.Local
	mem    *store.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	local := provider.NewLocal("test-secret")
	mem := store.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	profiles := services.NewProfileService(mem)
	questions := services.NewQuestionService(mem, mem)

	return &fixture{
		t:      t,
		router: handlers.NewRouter(logger, local, profiles, questions),
		local:  local,
		mem:    mem,
	}
}

func (f *fixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	f.t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

// signup registers a user through the API and logs in for a session.
func (f *fixture) signup(username, email, password string) *provider.Session {
	f.t.Helper()

	rec := f.do(http.MethodPost, "/auth/signup", "", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	require.Equal(f.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(f.t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[models.AuthResponse](f.t, rec)
	require.NotNil(f.t, resp.Session)
	return resp.Session
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	resp := decode[models.HealthResponse](t, rec)
	assert.Equal(t, "healthy", resp.Status)
}

func TestSignupFlow(t *testing.T) {
	f := newFixture(t)

	t.Run("creates user and profile", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/auth/signup", "", map[string]string{
			"username": "alice",
			"email":    "alice@example.com",
			"password": "secret123",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		resp := decode[models.AuthResponse](t, rec)
		assert.Equal(t, "User created successfully", resp.Message)
		require.NotNil(t, resp.User)
		require.NotNil(t, resp.User.Username)
		assert.Equal(t, "alice", *resp.User.Username)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/auth/signup", "", map[string]string{"email": "x@example.com"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		resp := decode[models.ErrorResponse](t, rec)
		assert.Contains(t, resp.Fields, "password")
		assert.Contains(t, resp.Fields, "username")
	})

	t.Run("duplicate username with a different email", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/auth/signup", "", map[string]string{
			"username": "alice",
			"email":    "alice2@example.com",
			"password": "secret123",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)

		resp := decode[models.ErrorResponse](t, rec)
		assert.Equal(t, "Username already exists", resp.Error)
	})

	t.Run("duplicate email", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/auth/signup", "", map[string]string{
			"username": "alice2",
			"email":    "alice@example.com",
			"password": "secret123",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		resp := decode[models.ErrorResponse](t, rec)
		assert.Equal(t, "Signup failed", resp.Error)
		assert.NotEmpty(t, resp.Details)
	})
}

func TestLoginFlow(t *testing.T) {
	f := newFixture(t)
	f.signup("alice", "alice@example.com", "secret123")

	t.Run("valid credentials", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/auth/login", "", map[string]string{
			"email":    "alice@example.com",
			"password": "secret123",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decode[models.AuthResponse](t, rec)
		assert.Equal(t, "Login successful", resp.Message)
		require.NotNil(t, resp.Session)
		assert.NotEmpty(t, resp.Session.AccessToken)
		require.NotNil(t, resp.User.Username)
		assert.Equal(t, "alice", *resp.User.Username)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/auth/login", "", map[string]string{
			"email":    "alice@example.com",
			"password": "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		resp := decode[models.ErrorResponse](t, rec)
		assert.Equal(t, "Invalid credentials", resp.Error)
	})

	t.Run("identity without profile gets null username", func(t *testing.T) {
		_, _, err := f.local.SignUp(context.Background(), "ghost@example.com", "secret123")
		require.NoError(t, err)

		rec := f.do(http.MethodPost, "/auth/login", "", map[string]string{
			"email":    "ghost@example.com",
			"password": "secret123",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decode[models.AuthResponse](t, rec)
		assert.Nil(t, resp.User.Username)
	})
}

func TestQuestionLifecycle(t *testing.T) {
	f := newFixture(t)
	aliceSess := f.signup("alice", "alice@example.com", "secret123")

	rec := f.do(http.MethodPost, "/questions", "", map[string]string{
		"receiver": "alice",
		"question": "What is your favorite color?",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	submitted := decode[models.QuestionResponse](t, rec)
	assert.Equal(t, "Question submitted successfully", submitted.Message)
	assert.False(t, submitted.Question.Answered)
	qID := submitted.Question.ID

	t.Run("unknown receiver", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/questions", "", map[string]string{
			"receiver": "nobody",
			"question": "Hello?",
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("answer requires auth", func(t *testing.T) {
		rec := f.do(http.MethodPost, fmt.Sprintf("/questions/%d/answer", qID), "", map[string]string{"answer": "A"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("owner answers and the public page shows it", func(t *testing.T) {
		rec := f.do(http.MethodPost, fmt.Sprintf("/questions/%d/answer", qID), aliceSess.AccessToken, map[string]string{
			"answer": "Blue",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		answered := decode[models.QuestionResponse](t, rec)
		assert.True(t, answered.Question.Answered)
		require.NotNil(t, answered.Question.Answer)
		assert.Equal(t, "Blue", *answered.Question.Answer)
		require.NotNil(t, answered.Question.AnsweredAt)

		rec = f.do(http.MethodGet, "/user/alice", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		page := decode[models.PublicProfileResponse](t, rec)
		assert.Equal(t, "alice", page.User.Username)
		require.Len(t, page.AnsweredQuestions, 1)
		assert.Equal(t, qID, page.AnsweredQuestions[0].ID)
	})

	t.Run("answer nonexistent question", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/questions/999/answer", aliceSess.AccessToken, map[string]string{"answer": "A"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid question id", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/questions/abc/answer", aliceSess.AccessToken, map[string]string{"answer": "A"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("foreign answer and delete are forbidden", func(t *testing.T) {
		bobSess := f.signup("bob", "bob@example.com", "secret123")

		rec := f.do(http.MethodPost, fmt.Sprintf("/questions/%d/answer", qID), bobSess.AccessToken, map[string]string{
			"answer": "not mine",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = f.do(http.MethodDelete, fmt.Sprintf("/questions/%d", qID), bobSess.AccessToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		stored, err := f.mem.QuestionByID(context.Background(), qID)
		require.NoError(t, err)
		require.NotNil(t, stored.Answer)
		assert.Equal(t, "Blue", *stored.Answer)
	})

	t.Run("owner deletes", func(t *testing.T) {
		rec := f.do(http.MethodDelete, fmt.Sprintf("/questions/%d", qID), aliceSess.AccessToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.do(http.MethodGet, "/user/alice", "", nil)
		page := decode[models.PublicProfileResponse](t, rec)
		assert.Empty(t, page.AnsweredQuestions)
	})
}

func TestPublicProfileNotFound(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/user/nobody", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	resp := decode[models.ErrorResponse](t, rec)
	assert.Equal(t, "User not found", resp.Error)
}

func TestOwnQuestions(t *testing.T) {
	f := newFixture(t)
	aliceSess := f.signup("alice", "alice@example.com", "secret123")
	bobSess := f.signup("bob", "bob@example.com", "secret123")

	rec := f.do(http.MethodPost, "/questions", "", map[string]string{"receiver": "alice", "question": "one"})
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decode[models.QuestionResponse](t, rec).Question

	rec = f.do(http.MethodPost, "/questions", "", map[string]string{"receiver": "alice", "question": "two"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(http.MethodPost, fmt.Sprintf("/questions/%d/answer", first.ID), aliceSess.AccessToken, map[string]string{
		"answer": "answered one",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	t.Run("owner sees both partitions", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/user/alice/questions", aliceSess.AccessToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decode[models.OwnQuestionsResponse](t, rec)
		require.Len(t, resp.UnansweredQuestions, 1)
		assert.Equal(t, "two", resp.UnansweredQuestions[0].Question)
		require.Len(t, resp.AnsweredQuestions, 1)
		assert.Equal(t, "one", resp.AnsweredQuestions[0].Question)
	})

	t.Run("other identities are rejected", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/user/alice/questions", bobSess.AccessToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestGoogleAuthFlow(t *testing.T) {
	f := newFixture(t)

	idToken := func(t *testing.T, claims jwt.MapClaims) string {
		t.Helper()
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("google"))
		require.NoError(t, err)
		return tok
	}

	t.Run("creates a profile from the token claims", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/auth/google", "", map[string]string{
			"id_token": idToken(t, jwt.MapClaims{"email": "carol@example.com", "name": "Carol Baker"}),
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decode[models.AuthResponse](t, rec)
		assert.Equal(t, "Google authentication successful", resp.Message)
		require.NotNil(t, resp.User.Username)
		assert.Equal(t, "carolbaker", *resp.User.Username)
		require.NotNil(t, resp.Session)
	})

	t.Run("repeat sign-in reuses the profile", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/auth/google", "", map[string]string{
			"id_token": idToken(t, jwt.MapClaims{"email": "carol@example.com", "name": "Carol Baker"}),
		})
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decode[models.AuthResponse](t, rec)
		assert.Equal(t, "carolbaker", *resp.User.Username)
	})

	t.Run("colliding derived username gets an id suffix", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/auth/google", "", map[string]string{
			"id_token": idToken(t, jwt.MapClaims{"email": "carol@other.example", "name": "Carol Baker"}),
		})
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decode[models.AuthResponse](t, rec)
		require.NotNil(t, resp.User.Username)
		assert.NotEqual(t, "carolbaker", *resp.User.Username)
		assert.Contains(t, *resp.User.Username, "carolbaker_")
	})

	t.Run("missing id token", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/auth/google", "", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed id token", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/auth/google", "", map[string]string{"id_token": "garbage"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		resp := decode[models.ErrorResponse](t, rec)
		assert.Equal(t, "Google authentication failed", resp.Error)
	})
}

func TestOAuthCallbackFlow(t *testing.T) {
	f := newFixture(t)

	t.Run("exchanges the code and reconciles a profile", func(t *testing.T) {
		code := f.local.MintCode("dave@example.com", map[string]any{"preferred_username": "Dave Smith"})

		rec := f.do(http.MethodPost, "/auth/callback", "", map[string]string{"code": code})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decode[models.AuthResponse](t, rec)
		assert.Equal(t, "OAuth authentication successful", resp.Message)
		require.NotNil(t, resp.User.Username)
		assert.Equal(t, "davesmith", *resp.User.Username)
	})

	t.Run("spent code", func(t *testing.T) {
		code := f.local.MintCode("erin@example.com", nil)

		rec := f.do(http.MethodPost, "/auth/callback", "", map[string]string{"code": code})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.do(http.MethodPost, "/auth/callback", "", map[string]string{"code": code})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing code", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/auth/callback", "", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRefreshAndLogout(t *testing.T) {
	f := newFixture(t)
	sess := f.signup("alice", "alice@example.com", "secret123")

	t.Run("refresh rotates the session", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": sess.RefreshToken})
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decode[models.AuthResponse](t, rec)
		require.NotNil(t, resp.Session)
		assert.NotEqual(t, sess.RefreshToken, resp.Session.RefreshToken)
		sess = resp.Session
	})

	t.Run("missing refresh token", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/auth/refresh", "", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("logout invalidates the refresh token", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/auth/logout", sess.AccessToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decode[models.MessageResponse](t, rec)
		assert.Equal(t, "Logged out successfully", resp.Message)

		rec = f.do(http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": sess.RefreshToken})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestDashboardEndpoint(t *testing.T) {
	f := newFixture(t)
	sess := f.signup("alice", "alice@example.com", "secret123")

	for i := 0; i < 3; i++ {
		rec := f.do(http.MethodPost, "/questions", "", map[string]string{
			"receiver": "alice",
			"question": fmt.Sprintf("q%d", i),
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := f.do(http.MethodGet, "/dashboard", sess.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	dash := decode[models.DashboardResponse](t, rec)
	assert.Equal(t, "alice", dash.User.Username)
	assert.Equal(t, "/user/alice", dash.User.ProfileURL)
	assert.Len(t, dash.UnansweredQuestions, 3)
	assert.Equal(t, 3, dash.Stats.UnansweredCount)
	assert.Equal(t, 3, dash.Stats.TotalQuestions)

	t.Run("requires auth", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/dashboard", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("identity without profile", func(t *testing.T) {
		_, ghost, err := f.local.SignUp(context.Background(), "ghost@example.com", "secret123")
		require.NoError(t, err)

		rec := f.do(http.MethodGet, "/dashboard", ghost.AccessToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		resp := decode[models.ErrorResponse](t, rec)
		assert.Equal(t, "User profile not found", resp.Error)
	})
}
