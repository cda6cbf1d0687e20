// Package store persists profiles and questions through the provider's
// relational tables. Uniqueness of usernames is enforced by the storage
// layer; callers treat ErrConflict on insert as the loser of that race.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/askme/backend/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("duplicate key")
)

// ListOptions controls ordering and paging on question queries.
type ListOptions struct {
	OrderBy string // column name, e.g. "created_at"
	Desc    bool
	Limit   int // 0 means no limit
}

type ProfileStore interface {
	InsertProfile(ctx context.Context, p *models.Profile) error
	ProfileByID(ctx context.Context, id string) (*models.Profile, error)
	ProfileByUsername(ctx context.Context, username string) (*models.Profile, error)
}

type QuestionStore interface {
	InsertQuestion(ctx context.Context, q *models.Question) (*models.Question, error)
	QuestionByID(ctx context.Context, id int64) (*models.Question, error)
	// QuestionsByReceiver lists the receiver's questions, optionally
	// filtered by answered state (nil means both).
	QuestionsByReceiver(ctx context.Context, receiver string, answered *bool, opts ListOptions) ([]models.Question, error)
	CountQuestionsByReceiver(ctx context.Context, receiver string, answered bool) (int, error)
	AnswerQuestion(ctx context.Context, id int64, answer string, answeredAt time.Time) (*models.Question, error)
	DeleteQuestion(ctx context.Context, id int64) error
}
