// Package session holds the storefront's auth state: the token pair issued
// by the auth service and the signed-in user. It implements rest.TokenSource
// so every service client attaches the current access token automatically.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/storefront-sync/internal/rest"
)

var ErrNotAuthenticated = errors.New("not authenticated")

// refreshLeeway is how close to expiry the access token may get before
// EnsureFresh refreshes it.
const refreshLeeway = 30 * time.Second

// User is the signed-in user as reported by the auth service.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// authResponse is the auth service's reply to register, login and refresh.
type authResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *User     `json:"user"`
}

// Session is safe for concurrent use by all service clients.
type Session struct {
	client *rest.Client

	mu        sync.Mutex
	access    string
	refresh   string
	expiresAt time.Time
	user      *User
}

// New creates a session over the auth service client.
func New(client *rest.Client) *Session {
	return &Session{client: client}
}

// Token returns the current access token, implementing rest.TokenSource.
// It never blocks on a refresh; call EnsureFresh before request bursts.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access
}

// Authenticated reports whether a login or register has succeeded.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access != ""
}

// User returns a copy of the signed-in user, or nil.
func (s *Session) User() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Register creates an account and signs in.
func (s *Session) Register(ctx context.Context, email, password, name string) error {
	var resp authResponse
	err := s.client.Post(ctx, "/auth/register", map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
	}, &resp)
	if err != nil {
		return err
	}
	s.store(resp)
	return nil
}

// Login signs in with an existing account.
func (s *Session) Login(ctx context.Context, email, password string) error {
	var resp authResponse
	err := s.client.Post(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return err
	}
	s.store(resp)
	return nil
}

// EnsureFresh refreshes the token pair when the access token is within
// refreshLeeway of expiry.
func (s *Session) EnsureFresh(ctx context.Context) error {
	s.mu.Lock()
	refresh := s.refresh
	needsRefresh := s.access != "" && time.Until(s.expiresAt) < refreshLeeway
	s.mu.Unlock()

	if refresh == "" {
		if s.Authenticated() {
			return nil
		}
		return ErrNotAuthenticated
	}
	if !needsRefresh {
		return nil
	}

	var resp authResponse
	err := s.client.Post(ctx, "/auth/refresh", map[string]string{
		"refresh_token": refresh,
	}, &resp)
	if err != nil {
		return err
	}
	s.store(resp)
	return nil
}

// Logout drops the token pair and user.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = ""
	s.refresh = ""
	s.expiresAt = time.Time{}
	s.user = nil
}

func (s *Session) store(resp authResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = resp.AccessToken
	s.refresh = resp.RefreshToken
	s.expiresAt = tokenExpiry(resp.AccessToken, resp.ExpiresAt)
	if resp.User != nil {
		s.user = resp.User
	}
}

// tokenExpiry reads the exp claim from the access token. The client holds
// no signing secret, so the token is parsed without verification; the
// response's expires_at field is the fallback.
func tokenExpiry(token string, fallback time.Time) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		log.Printf("[Session] Could not parse access token expiry: %v", err)
		return fallback
	}
	if claims.ExpiresAt == nil {
		return fallback
	}
	return claims.ExpiresAt.Time
}
