package models

import "time"

// Question is an anonymous question addressed to a receiver username.
// Invariant: Answered is true iff Answer and AnsweredAt are both set.
type Question struct {
	ID         int64      `json:"id"`
	Receiver   string     `json:"receiver"`
	Question   string     `json:"question"`
	Answer     *string    `json:"answer"`
	Answered   bool       `json:"answered"`
	CreatedAt  time.Time  `json:"created_at"`
	AnsweredAt *time.Time `json:"answered_at"`
}

type SubmitQuestionRequest struct {
	Receiver string `json:"receiver"`
	Question string `json:"question"`
}

func (r *SubmitQuestionRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Receiver == "" {
		errors["receiver"] = "Receiver is required"
	}
	if r.Question == "" {
		errors["question"] = "Question is required"
	}

	return errors
}

type AnswerQuestionRequest struct {
	Answer string `json:"answer"`
}

func (r *AnswerQuestionRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Answer == "" {
		errors["answer"] = "Answer is required"
	}

	return errors
}

// QuestionResponse is the body of POST /questions and POST /questions/{id}/answer.
type QuestionResponse struct {
	Message  string   `json:"message"`
	Question Question `json:"question"`
}

// DashboardUser is the caller block on the dashboard.
type DashboardUser struct {
	Username   string `json:"username"`
	ProfileURL string `json:"profile_url"`
}

// DashboardStats carries true totals from dedicated count queries, not the
// sizes of the limited pages below.
type DashboardStats struct {
	TotalQuestions  int `json:"total_questions"`
	UnansweredCount int `json:"unanswered_count"`
	AnsweredCount   int `json:"answered_count"`
}

// DashboardResponse is the body of GET /dashboard.
type DashboardResponse struct {
	User                DashboardUser  `json:"user"`
	UnansweredQuestions []Question     `json:"unanswered_questions"`
	RecentAnswers       []Question     `json:"recent_answers"`
	Stats               DashboardStats `json:"stats"`
}
