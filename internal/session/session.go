// Package session provides admin session management for the storefront API.
package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	CookieName = "admin-token"
	issuer     = "storefront"
	adminRole  = "admin"
	defaultTTL = 12 * time.Hour
)

var (
	ErrInvalidPassword = errors.New("invalid admin password")
	ErrNoToken         = errors.New("no admin token presented")
	ErrInvalidToken    = errors.New("invalid admin token")
	ErrTokenRevoked    = errors.New("admin token has been revoked")
)

// Data represents an authenticated admin session.
type Data struct {
	TokenID   string    `json:"token_id"`
	Subject   string    `json:"subject"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Manager exchanges the shared admin password for signed tokens and validates them.
type Manager struct {
	store    Store
	password []byte
	secret   []byte
	ttl      time.Duration
	secure   bool
	now      func() time.Time
}

type ManagerConfig struct {
	Password string
	Secret   string
	TTL      time.Duration
	Secure   bool
}

// Store tracks revoked token ids until they would have expired anyway.
type Store interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	Close() error
}

func NewManager(store Store, cfg ManagerConfig) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if cfg.Password == "" {
		return nil, fmt.Errorf("admin password is required")
	}
	if len(cfg.Secret) < 32 {
		return nil, fmt.Errorf("admin token secret must be at least 32 bytes")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &Manager{
		store:    store,
		password: []byte(cfg.Password),
		secret:   []byte(cfg.Secret),
		ttl:      ttl,
		secure:   cfg.Secure,
		now:      time.Now,
	}, nil
}

func (m *Manager) Close() error {
	if m == nil || m.store == nil {
		return nil
	}
	return m.store.Close()
}

// Login checks the password, issues a token and sets it as an HttpOnly cookie.
func (m *Manager) Login(w http.ResponseWriter, password string) (string, *Data, error) {
	if subtle.ConstantTimeCompare([]byte(password), m.password) != 1 {
		return "", nil, ErrInvalidPassword
	}

	token, data, err := m.issue()
	if err != nil {
		return "", nil, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})

	return token, data, nil
}

// Authenticate validates the token presented on the request, from the cookie or a bearer header.
func (m *Manager) Authenticate(ctx context.Context, r *http.Request) (*Data, error) {
	raw := tokenFromRequest(r)
	if raw == "" {
		return nil, ErrNoToken
	}

	data, err := m.parse(raw)
	if err != nil {
		return nil, err
	}

	revoked, err := m.store.IsRevoked(ctx, data.TokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	return data, nil
}

// Logout revokes the presented token, if any, and clears the cookie.
func (m *Manager) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var revokeErr error
	if raw := tokenFromRequest(r); raw != "" {
		if data, err := m.parse(raw); err == nil {
			remaining := data.ExpiresAt.Sub(m.now())
			if remaining > 0 {
				revokeErr = m.store.Revoke(ctx, data.TokenID, remaining)
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})

	return revokeErr
}

func (m *Manager) issue() (string, *Data, error) {
	now := m.now()
	data := &Data{
		TokenID:   uuid.NewString(),
		Subject:   adminRole,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: adminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        data.TokenID,
			Issuer:    issuer,
			Subject:   data.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(data.ExpiresAt),
		},
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign admin token: %w", err)
	}
	return signed, data, nil
}

func (m *Manager) parse(raw string) (*Data, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Role != adminRole || c.ID == "" {
		return nil, ErrInvalidToken
	}

	data := &Data{
		TokenID: c.ID,
		Subject: c.Subject,
	}
	if c.IssuedAt != nil {
		data.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		data.ExpiresAt = c.ExpiresAt.Time
	}
	return data, nil
}

func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
