package models

import "time"

// Profile links a provider identity to a public username. ID is the
// provider's user id; username is unique and case-sensitive.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// PublicProfile is safe to share with anonymous visitors (no email).
type PublicProfile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

func (p *Profile) Public() PublicProfile {
	return PublicProfile{
		ID:        p.ID,
		Username:  p.Username,
		CreatedAt: p.CreatedAt,
	}
}

// PublicProfileResponse is the body of GET /user/{username}.
type PublicProfileResponse struct {
	User              PublicProfile `json:"user"`
	AnsweredQuestions []Question    `json:"answered_questions"`
}

// OwnQuestionsResponse is the body of GET /user/{username}/questions.
type OwnQuestionsResponse struct {
	UnansweredQuestions []Question `json:"unanswered_questions"`
	AnsweredQuestions   []Question `json:"answered_questions"`
}
