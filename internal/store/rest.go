package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/askme/backend/internal/models"
)

const (
	profilesTable  = "profiles"
	questionsTable = "questions"
)

// Config holds the REST store's connection settings.
type Config struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// REST reads and writes tables through a PostgREST-compatible endpoint.
// Filters are equality predicates (`col=eq.value`), ordering and limits are
// query parameters, and exact counts come from the Content-Range header.
type REST struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewREST(cfg Config) *REST {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &REST{baseURL: cfg.BaseURL, apiKey: cfg.APIKey, http: client}
}

func (s *REST) InsertProfile(ctx context.Context, p *models.Profile) error {
	var rows []models.Profile
	if err := s.write(ctx, http.MethodPost, profilesTable, nil, p, &rows); err != nil {
		return err
	}
	if len(rows) > 0 {
		*p = rows[0]
	}
	return nil
}

func (s *REST) ProfileByID(ctx context.Context, id string) (*models.Profile, error) {
	return s.oneProfile(ctx, url.Values{"id": {"eq." + id}})
}

func (s *REST) ProfileByUsername(ctx context.Context, username string) (*models.Profile, error) {
	return s.oneProfile(ctx, url.Values{"username": {"eq." + username}})
}

func (s *REST) oneProfile(ctx context.Context, filters url.Values) (*models.Profile, error) {
	filters.Set("select", "*")
	filters.Set("limit", "1")

	var rows []models.Profile
	if err := s.get(ctx, profilesTable, filters, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// questionRecord is the insert shape: the id column is assigned by the store.
type questionRecord struct {
	Receiver  string    `json:"receiver"`
	Question  string    `json:"question"`
	Answered  bool      `json:"answered"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *REST) InsertQuestion(ctx context.Context, q *models.Question) (*models.Question, error) {
	rec := questionRecord{
		Receiver:  q.Receiver,
		Question:  q.Question,
		Answered:  q.Answered,
		CreatedAt: q.CreatedAt,
	}

	var rows []models.Question
	if err := s.write(ctx, http.MethodPost, questionsTable, nil, rec, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert returned no rows")
	}
	return &rows[0], nil
}

func (s *REST) QuestionByID(ctx context.Context, id int64) (*models.Question, error) {
	filters := url.Values{"id": {"eq." + strconv.FormatInt(id, 10)}}
	filters.Set("select", "*")
	filters.Set("limit", "1")

	var rows []models.Question
	if err := s.get(ctx, questionsTable, filters, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (s *REST) QuestionsByReceiver(ctx context.Context, receiver string, answered *bool, opts ListOptions) ([]models.Question, error) {
	filters := url.Values{"receiver": {"eq." + receiver}}
	filters.Set("select", "*")
	if answered != nil {
		filters.Set("answered", "eq."+strconv.FormatBool(*answered))
	}
	if opts.OrderBy != "" {
		order := opts.OrderBy
		if opts.Desc {
			order += ".desc"
		}
		filters.Set("order", order)
	}
	if opts.Limit > 0 {
		filters.Set("limit", strconv.Itoa(opts.Limit))
	}

	rows := []models.Question{}
	if err := s.get(ctx, questionsTable, filters, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *REST) CountQuestionsByReceiver(ctx context.Context, receiver string, answered bool) (int, error) {
	filters := url.Values{
		"receiver": {"eq." + receiver},
		"answered": {"eq." + strconv.FormatBool(answered)},
	}

	req, err := s.newRequest(ctx, http.MethodHead, questionsTable, filters, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Prefer", "count=exact")

	resp, err := s.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("count %s: %s", questionsTable, resp.Status)
	}

	return parseExactCount(resp.Header.Get("Content-Range"))
}

func (s *REST) AnswerQuestion(ctx context.Context, id int64, answer string, answeredAt time.Time) (*models.Question, error) {
	filters := url.Values{"id": {"eq." + strconv.FormatInt(id, 10)}}
	changes := map[string]any{
		"answer":      answer,
		"answered":    true,
		"answered_at": answeredAt,
	}

	var rows []models.Question
	if err := s.write(ctx, http.MethodPatch, questionsTable, filters, changes, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (s *REST) DeleteQuestion(ctx context.Context, id int64) error {
	filters := url.Values{"id": {"eq." + strconv.FormatInt(id, 10)}}

	var rows []models.Question
	if err := s.write(ctx, http.MethodDelete, questionsTable, filters, nil, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *REST) get(ctx context.Context, table string, filters url.Values, out any) error {
	req, err := s.newRequest(ctx, http.MethodGet, table, filters, nil)
	if err != nil {
		return err
	}
	return s.send(req, table, out)
}

func (s *REST) write(ctx context.Context, method, table string, filters url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s record: %w", table, err)
		}
	}

	req, err := s.newRequest(ctx, method, table, filters, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "return=representation")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(req, table, out)
}

func (s *REST) newRequest(ctx context.Context, method, table string, filters url.Values, body []byte) (*http.Request, error) {
	u := s.baseURL + "/rest/v1/" + table
	if len(filters) > 0 {
		u += "?" + filters.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	return req, nil
}

// restError is PostgREST's error body. Code 23505 is the unique_violation
// SQLSTATE, which backs the username uniqueness invariant.
type restError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *REST) send(req *http.Request, table string, out any) error {
	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e restError
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if resp.StatusCode == http.StatusConflict || e.Code == "23505" {
			return ErrConflict
		}
		if e.Message != "" {
			return fmt.Errorf("%s %s: %s", req.Method, table, e.Message)
		}
		return fmt.Errorf("%s %s: %s", req.Method, table, resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", table, err)
	}
	return nil
}

// parseExactCount extracts the total from a Content-Range header ("0-9/42").
func parseExactCount(contentRange string) (int, error) {
	idx := strings.LastIndex(contentRange, "/")
	if idx < 0 {
		return 0, fmt.Errorf("missing count in Content-Range %q", contentRange)
	}
	total := contentRange[idx+1:]
	if total == "*" {
		return 0, nil
	}
	return strconv.Atoi(total)
}
