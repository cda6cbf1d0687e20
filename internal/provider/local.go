package provider

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Local is an in-process Authenticator used when no provider URL is
// configured, and in tests. Accounts live in memory; sessions are HS256
// tokens minted locally. ID tokens are accepted without signature
// verification, so this is strictly a development backend.
type Local struct {
	secret []byte

	mu       sync.RWMutex
	byEmail  map[string]*localAccount
	byID     map[string]*localAccount
	refresh  map[string]string // refresh token -> user id
	codes    map[string]string // one-shot auth code -> user id
}

type localAccount struct {
	id       string
	email    string
	hash     []byte
	metadata map[string]any
}

func NewLocal(secret string) *Local {
	return &Local{
		secret:  []byte(secret),
		byEmail: make(map[string]*localAccount),
		byID:    make(map[string]*localAccount),
		refresh: make(map[string]string),
		codes:   make(map[string]string),
	}
}

func (l *Local) SignUp(ctx context.Context, email, password string) (*User, *Session, error) {
	if email == "" {
		return nil, nil, &Error{Code: CodeEmailInvalid, Status: http.StatusBadRequest, Message: "email is required"}
	}
	if len(password) < 6 {
		return nil, nil, &Error{Code: CodeWeakPassword, Status: http.StatusBadRequest, Message: "password must be at least 6 characters"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.byEmail[email]; exists {
		return nil, nil, &Error{Code: CodeUserExists, Status: http.StatusUnprocessableEntity, Message: "user already registered"}
	}

	acc := &localAccount{id: uuid.New().String(), email: email, hash: hash}
	l.byEmail[email] = acc
	l.byID[acc.id] = acc

	sess, err := l.mintSessionLocked(acc)
	if err != nil {
		return nil, nil, err
	}
	return acc.user(), sess, nil
}

func (l *Local) SignInWithPassword(ctx context.Context, email, password string) (*User, *Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, exists := l.byEmail[email]
	if !exists {
		return nil, nil, &Error{Code: CodeInvalidCredentials, Status: http.StatusBadRequest, Message: "invalid login credentials"}
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return nil, nil, &Error{Code: CodeInvalidCredentials, Status: http.StatusBadRequest, Message: "invalid login credentials"}
	}

	sess, err := l.mintSessionLocked(acc)
	if err != nil {
		return nil, nil, err
	}
	return acc.user(), sess, nil
}

// SignInWithIDToken decodes the token claims without verifying the issuer
// signature. Good enough for local development, never for production.
func (l *Local) SignInWithIDToken(ctx context.Context, providerName, idToken string) (*User, *Session, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return nil, nil, &Error{Code: CodeBadJWT, Status: http.StatusUnauthorized, Message: "malformed id token"}
	}

	email, _ := claims["email"].(string)
	if email == "" {
		return nil, nil, &Error{Code: CodeBadJWT, Status: http.StatusUnauthorized, Message: "id token missing email"}
	}

	metadata := map[string]any{}
	if name, ok := claims["name"].(string); ok && name != "" {
		metadata["name"] = name
	}
	if preferred, ok := claims["preferred_username"].(string); ok && preferred != "" {
		metadata["preferred_username"] = preferred
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	acc := l.ensureAccountLocked(email, metadata)
	sess, err := l.mintSessionLocked(acc)
	if err != nil {
		return nil, nil, err
	}
	return acc.user(), sess, nil
}

func (l *Local) ExchangeCode(ctx context.Context, code string) (*User, *Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id, exists := l.codes[code]
	if !exists {
		return nil, nil, &Error{Code: CodeInvalidGrant, Status: http.StatusUnauthorized, Message: "invalid auth code"}
	}
	delete(l.codes, code)

	acc := l.byID[id]
	sess, err := l.mintSessionLocked(acc)
	if err != nil {
		return nil, nil, err
	}
	return acc.user(), sess, nil
}

func (l *Local) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id, exists := l.refresh[refreshToken]
	if !exists {
		return nil, &Error{Code: CodeRefreshNotFound, Status: http.StatusUnauthorized, Message: "refresh token not found"}
	}
	delete(l.refresh, refreshToken)

	return l.mintSessionLocked(l.byID[id])
}

func (l *Local) SignOut(ctx context.Context, accessToken string) error {
	identity, err := l.UserFromToken(ctx, accessToken)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for token, id := range l.refresh {
		if id == identity.ID {
			delete(l.refresh, token)
		}
	}
	return nil
}

func (l *Local) UserFromToken(ctx context.Context, accessToken string) (*Identity, error) {
	token, err := jwt.Parse(accessToken, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return l.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, &Error{Code: CodeBadJWT, Status: http.StatusUnauthorized, Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, &Error{Code: CodeBadJWT, Status: http.StatusUnauthorized, Message: "invalid token claims"}
	}
	sub, _ := claims["sub"].(string)

	l.mu.RLock()
	acc, exists := l.byID[sub]
	l.mu.RUnlock()
	if !exists {
		return nil, &Error{Code: CodeBadJWT, Status: http.StatusUnauthorized, Message: "unknown user"}
	}

	return &Identity{ID: acc.id, Email: acc.email}, nil
}

// MintCode registers an account for email (creating it if needed) and
// returns a one-shot auth code for the code-exchange flow.
func (l *Local) MintCode(email string, metadata map[string]any) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc := l.ensureAccountLocked(email, metadata)
	code := uuid.New().String()
	l.codes[code] = acc.id
	return code
}

func (l *Local) ensureAccountLocked(email string, metadata map[string]any) *localAccount {
	if acc, exists := l.byEmail[email]; exists {
		return acc
	}
	acc := &localAccount{id: uuid.New().String(), email: email, metadata: metadata}
	l.byEmail[email] = acc
	l.byID[acc.id] = acc
	return acc
}

func (l *Local) mintSessionLocked(acc *localAccount) (*Session, error) {
	claims := jwt.MapClaims{
		"sub":   acc.id,
		"email": acc.email,
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	access, err := token.SignedString(l.secret)
	if err != nil {
		return nil, err
	}

	refresh := uuid.New().String()
	l.refresh[refresh] = acc.id

	return &Session{AccessToken: access, RefreshToken: refresh}, nil
}

func (a *localAccount) user() *User {
	return &User{ID: a.id, Email: a.email, Metadata: a.metadata}
}
