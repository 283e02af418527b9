// Package auth implements the identity provider capability: login, logout,
// authentication state and the current user id, persisted as a JWT session
// token in the local store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/bookmart/storefront/internal/domain/cart"
	"github.com/bookmart/storefront/internal/infrastructure/localstore"
)

// tokenKey is the blob store key holding the session token
const tokenKey = "storefront:token"

// Common errors
var (
	ErrNotAuthenticated = errors.New("auth: not authenticated")
	ErrInvalidToken     = errors.New("auth: invalid session token")
)

// Claims are the session token claims issued by the storefront API
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// LoginClient exchanges credentials for a session token
type LoginClient interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// SessionManager owns the session token and derives the current identity
// from it. Identity changes are pushed to registered listeners; the cart
// engine reacts to those pushes, it never asks.
type SessionManager struct {
	blobs  localstore.BlobStore
	login  LoginClient
	logger *zap.Logger

	mu        sync.RWMutex
	token     string
	claims    *Claims
	listeners []func(cart.Identity)
}

// SessionOption is a functional option for configuring the session manager
type SessionOption func(*SessionManager)

// WithLogger sets the logger for the session manager
func WithLogger(logger *zap.Logger) SessionOption {
	return func(m *SessionManager) {
		m.logger = logger
	}
}

// NewSessionManager creates a session manager over the given token storage
// and login client
func NewSessionManager(blobs localstore.BlobStore, login LoginClient, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		blobs:  blobs,
		login:  login,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Restore loads a previously persisted session token at startup.
// An absent, unparsable or expired token leaves the session anonymous.
func (m *SessionManager) Restore(ctx context.Context) {
	raw, ok, err := m.blobs.Get(ctx, tokenKey)
	if err != nil || !ok || raw == "" {
		return
	}

	claims, err := parseClaims(raw)
	if err != nil {
		m.logger.Warn("discarding unusable persisted session token", zap.Error(err))
		_ = m.blobs.Remove(ctx, tokenKey)
		return
	}

	m.mu.Lock()
	m.token = raw
	m.claims = claims
	m.mu.Unlock()

	m.logger.Info("session restored", zap.String("user_id", claims.UserID))
	m.notify()
}

// Login exchanges credentials for a session token, persists it and pushes
// the new authenticated identity to listeners
func (m *SessionManager) Login(ctx context.Context, email, password string) error {
	token, err := m.login.Login(ctx, email, password)
	if err != nil {
		return err
	}

	claims, err := parseClaims(token)
	if err != nil {
		return err
	}

	if err := m.blobs.Set(ctx, tokenKey, token); err != nil {
		m.logger.Warn("session token not persisted, session is memory-only", zap.Error(err))
	}

	m.mu.Lock()
	m.token = token
	m.claims = claims
	m.mu.Unlock()

	m.logger.Info("logged in", zap.String("user_id", claims.UserID))
	m.notify()
	return nil
}

// Logout drops the session and pushes the guest identity to listeners
func (m *SessionManager) Logout(ctx context.Context) {
	m.clearSession(ctx)
	m.logger.Info("logged out")
	m.notify()
}

// Teardown is the 401 handler: the server no longer accepts our token, so
// the session is dropped exactly as on logout. Wire this into the remote
// client's unauthorized handler.
func (m *SessionManager) Teardown() {
	m.clearSession(context.Background())
	m.logger.Warn("session invalidated by server, logging out")
	m.notify()
}

// IsAuthenticated reports whether a non-expired session token is held
func (m *SessionManager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.claims != nil && !expired(m.claims)
}

// CurrentUserID returns the authenticated user id, if any
func (m *SessionManager) CurrentUserID() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.claims == nil || expired(m.claims) {
		return "", false
	}
	return m.claims.UserID, true
}

// Identity returns the current identity tag
func (m *SessionManager) Identity() cart.Identity {
	if userID, ok := m.CurrentUserID(); ok {
		return cart.Authenticated(userID)
	}
	return cart.Guest()
}

// Token returns the raw session token, or empty when anonymous.
// This is the token source for the remote API client.
func (m *SessionManager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.claims == nil || expired(m.claims) {
		return ""
	}
	return m.token
}

// OnChange registers a listener for identity changes. Listeners are invoked
// synchronously, in registration order, after every login, logout, teardown
// and restore.
func (m *SessionManager) OnChange(fn func(cart.Identity)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *SessionManager) clearSession(ctx context.Context) {
	if err := m.blobs.Remove(ctx, tokenKey); err != nil {
		m.logger.Warn("failed to remove persisted session token", zap.Error(err))
	}

	m.mu.Lock()
	m.token = ""
	m.claims = nil
	m.mu.Unlock()
}

func (m *SessionManager) notify() {
	identity := m.Identity()

	m.mu.RLock()
	listeners := make([]func(cart.Identity), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.RUnlock()

	for _, fn := range listeners {
		fn(identity)
	}
}

// parseClaims extracts the claims without verifying the signature: this is
// a client, the server owns the signing secret and verifies on every call.
// Expired tokens are rejected here so a stale session never presents as
// authenticated.
func parseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		// Fall back to the standard subject claim
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	if expired(claims) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func expired(claims *Claims) bool {
	return claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now())
}
