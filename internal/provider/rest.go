package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a REST client for a GoTrue-compatible auth endpoint. Requests
// carry the project API key; per-user calls additionally carry the caller's
// access token as the bearer credential.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type restUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (u *restUser) user() *User {
	return &User{ID: u.ID, Email: u.Email, Metadata: u.UserMetadata}
}

// authPayload covers both response shapes the auth endpoint produces: a
// session with a nested user, or a bare user object (signup pending email
// confirmation).
type authPayload struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	User         *restUser `json:"user"`
	restUser
}

func (p *authPayload) result() (*User, *Session) {
	u := p.User
	if u == nil {
		u = &p.restUser
	}

	var sess *Session
	if p.AccessToken != "" {
		sess = &Session{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken}
	}
	if u.ID == "" {
		return nil, sess
	}
	return u.user(), sess
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*User, *Session, error) {
	var out authPayload
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", "", body, &out); err != nil {
		return nil, nil, err
	}
	user, sess := out.result()
	return user, sess, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*User, *Session, error) {
	body := map[string]string{"email": email, "password": password}
	return c.tokenGrant(ctx, "password", body)
}

func (c *Client) SignInWithIDToken(ctx context.Context, providerName, idToken string) (*User, *Session, error) {
	body := map[string]string{"provider": providerName, "id_token": idToken}
	return c.tokenGrant(ctx, "id_token", body)
}

func (c *Client) ExchangeCode(ctx context.Context, code string) (*User, *Session, error) {
	body := map[string]string{"auth_code": code}
	return c.tokenGrant(ctx, "pkce", body)
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	body := map[string]string{"refresh_token": refreshToken}
	_, sess, err := c.tokenGrant(ctx, "refresh_token", body)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, &Error{Code: CodeRefreshNotFound, Message: "no session returned"}
	}
	return sess, nil
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil)
}

func (c *Client) UserFromToken(ctx context.Context, accessToken string) (*Identity, error) {
	var out restUser
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, &Error{Code: CodeBadJWT, Status: http.StatusUnauthorized, Message: "no user for token"}
	}
	return &Identity{ID: out.ID, Email: out.Email}, nil
}

func (c *Client) tokenGrant(ctx context.Context, grant string, body any) (*User, *Session, error) {
	var out authPayload
	path := "/auth/v1/token?grant_type=" + grant
	if err := c.do(ctx, http.MethodPost, path, "", body, &out); err != nil {
		return nil, nil, err
	}
	user, sess := out.result()
	return user, sess, nil
}

// restError is the provider's error body. Older deployments use
// error/error_description, newer ones error_code/msg.
type restError struct {
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Err              string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.apiKey)
	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e restError
		_ = json.NewDecoder(resp.Body).Decode(&e)
		code := e.ErrorCode
		if code == "" {
			code = e.Err
		}
		msg := e.Msg
		if msg == "" {
			msg = e.ErrorDescription
		}
		if msg == "" {
			msg = resp.Status
		}
		return &Error{Code: code, Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Message: fmt.Sprintf("decoding response: %v", err)}
	}
	return nil
}
