package services

import (
	"context"
	"errors"
	"time"

	"github.com/askme/backend/internal/models"
	"github.com/askme/backend/internal/provider"
	"github.com/askme/backend/internal/store"
)

var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrReceiverNotFound = errors.New("receiver not found")
	ErrNotOwner         = errors.New("caller does not own this resource")
)

const dashboardPageSize = 10

// QuestionService owns the questions table. Mutations are guarded: the
// caller's identity must resolve to the profile owning the question.
type QuestionService struct {
	questions store.QuestionStore
	profiles  store.ProfileStore
}

func NewQuestionService(questions store.QuestionStore, profiles store.ProfileStore) *QuestionService {
	return &QuestionService{questions: questions, profiles: profiles}
}

// Submit records an anonymous question for receiver. No authentication:
// anyone may ask, but the receiver must exist.
func (s *QuestionService) Submit(ctx context.Context, receiver, text string) (*models.Question, error) {
	if _, err := s.profiles.ProfileByUsername(ctx, receiver); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrReceiverNotFound
		}
		return nil, err
	}

	q := &models.Question{
		Receiver:  receiver,
		Question:  text,
		Answered:  false,
		CreatedAt: time.Now().UTC(),
	}
	return s.questions.InsertQuestion(ctx, q)
}

// AnsweredFor returns the public feed: answered questions only, most
// recently answered first.
func (s *QuestionService) AnsweredFor(ctx context.Context, username string) ([]models.Question, error) {
	answered := true
	return s.questions.QuestionsByReceiver(ctx, username, &answered, store.ListOptions{
		OrderBy: "answered_at",
		Desc:    true,
	})
}

// ListFor returns the receiver's full question set partitioned into
// unanswered and answered, newest first. Guarded: the identity must own
// the username.
func (s *QuestionService) ListFor(ctx context.Context, identity *provider.Identity, username string) (unanswered, answered []models.Question, err error) {
	if err := s.requireOwner(ctx, identity, username); err != nil {
		return nil, nil, err
	}

	all, err := s.questions.QuestionsByReceiver(ctx, username, nil, store.ListOptions{
		OrderBy: "created_at",
		Desc:    true,
	})
	if err != nil {
		return nil, nil, err
	}

	unanswered = make([]models.Question, 0)
	answered = make([]models.Question, 0)
	for _, q := range all {
		if q.Answered {
			answered = append(answered, q)
		} else {
			unanswered = append(unanswered, q)
		}
	}
	return unanswered, answered, nil
}

// Answer sets the answer on a question. Unanswered -> answered is the only
// transition; answering again just overwrites with the newer answer.
func (s *QuestionService) Answer(ctx context.Context, identity *provider.Identity, id int64, answer string) (*models.Question, error) {
	q, err := s.questions.QuestionByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}

	if err := s.requireOwner(ctx, identity, q.Receiver); err != nil {
		return nil, err
	}

	updated, err := s.questions.AnswerQuestion(ctx, id, answer, time.Now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}
	return updated, nil
}

// Delete removes a question in either state. Guarded like Answer.
func (s *QuestionService) Delete(ctx context.Context, identity *provider.Identity, id int64) error {
	q, err := s.questions.QuestionByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrQuestionNotFound
		}
		return err
	}

	if err := s.requireOwner(ctx, identity, q.Receiver); err != nil {
		return err
	}

	if err := s.questions.DeleteQuestion(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrQuestionNotFound
		}
		return err
	}
	return nil
}

// Dashboard returns the caller's most recent questions in both states plus
// true totals. The totals come from count queries, not from the sizes of
// the limited pages.
func (s *QuestionService) Dashboard(ctx context.Context, identity *provider.Identity) (*models.DashboardResponse, error) {
	prof, err := s.profiles.ProfileByID(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	unansweredFlag, answeredFlag := false, true

	unanswered, err := s.questions.QuestionsByReceiver(ctx, prof.Username, &unansweredFlag, store.ListOptions{
		OrderBy: "created_at",
		Desc:    true,
		Limit:   dashboardPageSize,
	})
	if err != nil {
		return nil, err
	}

	answered, err := s.questions.QuestionsByReceiver(ctx, prof.Username, &answeredFlag, store.ListOptions{
		OrderBy: "answered_at",
		Desc:    true,
		Limit:   dashboardPageSize,
	})
	if err != nil {
		return nil, err
	}

	unansweredCount, err := s.questions.CountQuestionsByReceiver(ctx, prof.Username, false)
	if err != nil {
		return nil, err
	}
	answeredCount, err := s.questions.CountQuestionsByReceiver(ctx, prof.Username, true)
	if err != nil {
		return nil, err
	}

	return &models.DashboardResponse{
		User: models.DashboardUser{
			Username:   prof.Username,
			ProfileURL: "/user/" + prof.Username,
		},
		UnansweredQuestions: unanswered,
		RecentAnswers:       answered,
		Stats: models.DashboardStats{
			TotalQuestions:  unansweredCount + answeredCount,
			UnansweredCount: unansweredCount,
			AnsweredCount:   answeredCount,
		},
	}, nil
}

// requireOwner resolves the identity's own profile and compares its
// username (case-sensitive) to the resource owner. Callers with no profile
// are rejected the same way as mismatches.
func (s *QuestionService) requireOwner(ctx context.Context, identity *provider.Identity, owner string) error {
	prof, err := s.profiles.ProfileByID(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotOwner
		}
		return err
	}
	if prof.Username != owner {
		return ErrNotOwner
	}
	return nil
}
