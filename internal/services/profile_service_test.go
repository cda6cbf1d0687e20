package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askme/backend/internal/models"
	"github.com/askme/backend/internal/provider"
	"github.com/askme/backend/internal/store"
)

func TestNormalizeUsername(t *testing.T) {
	cases := map[string]string{
		"Carol":        "carol",
		"Dave Smith":   "davesmith",
		"user_01":      "user_01",
		"a-b_c":        "a-b_c",
		"Ünïcode!":     "ncode",
		"...":          "",
		"MiXeD-42_ok!": "mixed-42_ok",
	}

	for input, want := range cases {
		assert.Equal(t, want, normalizeUsername(input), "input %q", input)
	}
}

func TestDeriveUsername(t *testing.T) {
	t.Run("prefers provider metadata", func(t *testing.T) {
		user := &provider.User{
			ID:       "11111111-aaaa",
			Email:    "carol@example.com",
			Metadata: map[string]any{"preferred_username": "Carol_B"},
		}
		assert.Equal(t, "carol_b", deriveUsername(user))
	})

	t.Run("falls back to metadata name", func(t *testing.T) {
		user := &provider.User{
			ID:       "11111111-aaaa",
			Email:    "carol@example.com",
			Metadata: map[string]any{"name": "Carol Baker"},
		}
		assert.Equal(t, "carolbaker", deriveUsername(user))
	})

	t.Run("falls back to email local-part", func(t *testing.T) {
		user := &provider.User{ID: "11111111-aaaa", Email: "carol@example.com"}
		assert.Equal(t, "carol", deriveUsername(user))
	})

	t.Run("falls back to id prefix when nothing usable", func(t *testing.T) {
		user := &provider.User{ID: "11111111-aaaa", Email: "", Metadata: map[string]any{"name": "..."}}
		assert.Equal(t, "user_11111111", deriveUsername(user))
	})
}

func TestProfileServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates profile with explicit username", func(t *testing.T) {
		svc := NewProfileService(store.NewMemory())

		prof, err := svc.Create(ctx, "id-1", "bob", "bob@example.com")
		require.NoError(t, err)
		assert.Equal(t, "bob", prof.Username)
		assert.Equal(t, "bob@example.com", prof.Email)
		assert.False(t, prof.CreatedAt.IsZero())
	})

	t.Run("rejects taken username regardless of email", func(t *testing.T) {
		svc := NewProfileService(store.NewMemory())

		_, err := svc.Create(ctx, "id-1", "bob", "bob@example.com")
		require.NoError(t, err)

		_, err = svc.Create(ctx, "id-2", "bob", "other@example.com")
		assert.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("insert race surfaces as profile creation failure", func(t *testing.T) {
		svc := NewProfileService(&racingProfileStore{})

		_, err := svc.Create(ctx, "id-1", "bob", "bob@example.com")
		assert.ErrorIs(t, err, ErrProfileCreationFailed)
	})
}

func TestProfileServiceReconcile(t *testing.T) {
	ctx := context.Background()
	svc := NewProfileService(store.NewMemory())

	carol := &provider.User{ID: "11111111-aaaa-bbbb", Email: "carol@example.com"}

	prof, err := svc.Reconcile(ctx, carol)
	require.NoError(t, err)
	assert.Equal(t, "carol", prof.Username)

	t.Run("idempotent for the same identity", func(t *testing.T) {
		again, err := svc.Reconcile(ctx, carol)
		require.NoError(t, err)
		assert.Equal(t, prof.ID, again.ID)
		assert.Equal(t, "carol", again.Username)
	})

	t.Run("colliding candidate gets id suffix", func(t *testing.T) {
		other := &provider.User{ID: "22222222-cccc-dddd", Email: "carol@other.example"}

		prof2, err := svc.Reconcile(ctx, other)
		require.NoError(t, err)
		assert.Equal(t, "carol_22222222", prof2.Username)
	})
}

// racingProfileStore simulates losing the duplicate-username insert race:
// the pre-check sees no profile but the insert hits the unique constraint.
type racingProfileStore struct{}

func (s *racingProfileStore) InsertProfile(ctx context.Context, p *models.Profile) error {
	return store.ErrConflict
}

func (s *racingProfileStore) ProfileByID(ctx context.Context, id string) (*models.Profile, error) {
	return nil, store.ErrNotFound
}

func (s *racingProfileStore) ProfileByUsername(ctx context.Context, username string) (*models.Profile, error) {
	return nil, store.ErrNotFound
}
