package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/askme/backend/internal/models"
)

// Memory is an in-process implementation of both stores, used when no
// provider is configured and in tests. It enforces the same unique-username
// invariant the relational store does.
type Memory struct {
	mu        sync.RWMutex
	profiles  map[string]*models.Profile // by id
	usernames map[string]string          // username -> id
	questions map[int64]*models.Question
	nextID    int64
}

func NewMemory() *Memory {
	return &Memory{
		profiles:  make(map[string]*models.Profile),
		usernames: make(map[string]string),
		questions: make(map[int64]*models.Question),
	}
}

func (m *Memory) InsertProfile(ctx context.Context, p *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.usernames[p.Username]; taken {
		return ErrConflict
	}
	if _, exists := m.profiles[p.ID]; exists {
		return ErrConflict
	}

	stored := *p
	m.profiles[p.ID] = &stored
	m.usernames[p.Username] = p.ID
	return nil
}

func (m *Memory) ProfileByID(ctx context.Context, id string) (*models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, exists := m.profiles[id]
	if !exists {
		return nil, ErrNotFound
	}
	result := *p
	return &result, nil
}

func (m *Memory) ProfileByUsername(ctx context.Context, username string) (*models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, exists := m.usernames[username]
	if !exists {
		return nil, ErrNotFound
	}
	result := *m.profiles[id]
	return &result, nil
}

func (m *Memory) InsertQuestion(ctx context.Context, q *models.Question) (*models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	stored := *q
	stored.ID = m.nextID
	m.questions[stored.ID] = &stored

	result := stored
	return &result, nil
}

func (m *Memory) QuestionByID(ctx context.Context, id int64) (*models.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q, exists := m.questions[id]
	if !exists {
		return nil, ErrNotFound
	}
	result := *q
	return &result, nil
}

func (m *Memory) QuestionsByReceiver(ctx context.Context, receiver string, answered *bool, opts ListOptions) ([]models.Question, error) {
	m.mu.RLock()
	result := make([]models.Question, 0)
	for _, q := range m.questions {
		if q.Receiver != receiver {
			continue
		}
		if answered != nil && q.Answered != *answered {
			continue
		}
		result = append(result, *q)
	}
	m.mu.RUnlock()

	if opts.OrderBy != "" {
		sort.Slice(result, func(i, j int) bool {
			a, b := orderKey(&result[i], opts.OrderBy), orderKey(&result[j], opts.OrderBy)
			if opts.Desc {
				return a.After(b)
			}
			return a.Before(b)
		})
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}

func orderKey(q *models.Question, column string) time.Time {
	if column == "answered_at" && q.AnsweredAt != nil {
		return *q.AnsweredAt
	}
	return q.CreatedAt
}

func (m *Memory) CountQuestionsByReceiver(ctx context.Context, receiver string, answered bool) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, q := range m.questions {
		if q.Receiver == receiver && q.Answered == answered {
			count++
		}
	}
	return count, nil
}

func (m *Memory) AnswerQuestion(ctx context.Context, id int64, answer string, answeredAt time.Time) (*models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, exists := m.questions[id]
	if !exists {
		return nil, ErrNotFound
	}

	q.Answer = &answer
	q.Answered = true
	at := answeredAt
	q.AnsweredAt = &at

	result := *q
	return &result, nil
}

func (m *Memory) DeleteQuestion(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.questions[id]; !exists {
		return ErrNotFound
	}
	delete(m.questions, id)
	return nil
}
