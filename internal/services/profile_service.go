package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/askme/backend/internal/models"
	"github.com/askme/backend/internal/provider"
	"github.com/askme/backend/internal/store"
)

var (
	ErrProfileNotFound       = errors.New("profile not found")
	ErrUsernameTaken         = errors.New("username already exists")
	ErrProfileCreationFailed = errors.New("profile creation failed")
)

// ProfileService owns the profiles table and the reconciliation of provider
// identities into local profiles.
type ProfileService struct {
	profiles store.ProfileStore
}

func NewProfileService(profiles store.ProfileStore) *ProfileService {
	return &ProfileService{profiles: profiles}
}

func (s *ProfileService) ByUsername(ctx context.Context, username string) (*models.Profile, error) {
	prof, err := s.profiles.ProfileByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return prof, nil
}

func (s *ProfileService) ByID(ctx context.Context, id string) (*models.Profile, error) {
	prof, err := s.profiles.ProfileByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return prof, nil
}

// Create inserts a profile with an explicitly chosen username (signup path).
// A pre-check surfaces a taken username as ErrUsernameTaken; losing the
// insert race after passing the pre-check is ErrProfileCreationFailed, and
// the caller must retry.
func (s *ProfileService) Create(ctx context.Context, id, username, email string) (*models.Profile, error) {
	_, err := s.profiles.ProfileByUsername(ctx, username)
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	prof := &models.Profile{
		ID:        id,
		Username:  username,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.profiles.InsertProfile(ctx, prof); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileCreationFailed, err)
	}
	return prof, nil
}

// Reconcile returns the profile for a provider identity, creating one on
// first OAuth login. It is idempotent keyed by the identity id: if an
// earlier insert failed after the auth account was created, the next login
// lands here again and retries.
func (s *ProfileService) Reconcile(ctx context.Context, user *provider.User) (*models.Profile, error) {
	prof, err := s.profiles.ProfileByID(ctx, user.ID)
	if err == nil {
		return prof, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	username := deriveUsername(user)

	_, err = s.profiles.ProfileByUsername(ctx, username)
	if err == nil {
		username = username + "_" + idPrefix(user.ID)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	prof = &models.Profile{
		ID:        user.ID,
		Username:  username,
		Email:     user.Email,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.profiles.InsertProfile(ctx, prof); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileCreationFailed, err)
	}
	return prof, nil
}

// deriveUsername picks a candidate username: provider metadata first, then
// the email local-part, then a fallback derived from the identity id.
func deriveUsername(user *provider.User) string {
	var candidate string
	if preferred, ok := user.Metadata["preferred_username"].(string); ok && preferred != "" {
		candidate = preferred
	} else if name, ok := user.Metadata["name"].(string); ok && name != "" {
		candidate = name
	} else if at := strings.Index(user.Email, "@"); at > 0 {
		candidate = user.Email[:at]
	}

	candidate = normalizeUsername(candidate)
	if candidate == "" {
		candidate = "user_" + idPrefix(user.ID)
	}
	return candidate
}

// normalizeUsername keeps alphanumerics, '_' and '-', lowercased.
func normalizeUsername(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' || r == '-':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	return b.String()
}

func idPrefix(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
