package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

// ErrInvalidUserID is returned when creating a session without a user id.
var ErrInvalidUserID = errors.New("userID is required")

// SessionStore defines the persistence contract for session tokens.
type SessionStore interface {
	Save(token, userID string, expiresAt, absoluteExpiresAt time.Time) error
	Get(token string) (SessionRecord, bool, error)
	Delete(token string) error
	PurgeExpired(now time.Time) error
}

// SessionRecord captures a session row retrieved from the backing store.
type SessionRecord struct {
	Token             string
	UserID            string
	ExpiresAt         time.Time
	AbsoluteExpiresAt time.Time
}

// SessionOption configures a SessionManager instance.
type SessionOption func(*SessionManager)

// WithStore injects a custom SessionStore implementation.
func WithStore(store SessionStore) SessionOption {
	return func(m *SessionManager) {
		m.store = store
	}
}

// WithTokenLength sets the byte length of newly issued tokens.
func WithTokenLength(length int) SessionOption {
	return func(m *SessionManager) {
		if length > 0 {
			m.tokenLength = length
		}
	}
}

// WithIdleTimeout enables idle expiration. Validate refreshes the session
// expiry on activity, capped by the absolute TTL.
func WithIdleTimeout(timeout time.Duration) SessionOption {
	return func(m *SessionManager) {
		if timeout > 0 {
			m.idleTimeout = timeout
		}
	}
}

// SessionManager issues and validates opaque session tokens against a
// backing store.
type SessionManager struct {
	store        SessionStore
	absoluteTTL  time.Duration
	idleTimeout  time.Duration
	tokenLength  int
	tokenFactory func(int) (string, error)
}

// NewSessionManager constructs a SessionManager with the provided absolute
// TTL. Without a configured store it falls back to the in-memory store,
// which suits single-instance deployments.
func NewSessionManager(ttl time.Duration, opts ...SessionOption) *SessionManager {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	m := &SessionManager{
		absoluteTTL:  ttl,
		tokenLength:  32,
		tokenFactory: newSessionToken,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	if m.store == nil {
		m.store = NewMemorySessionStore()
	}
	return m
}

// idleExpiry picks the next expiry for a session touched at now. Without an
// idle timeout the session lives to its absolute deadline.
func (m *SessionManager) idleExpiry(now, absolute time.Time) time.Time {
	if m.idleTimeout <= 0 {
		return absolute
	}
	e := now.Add(m.idleTimeout)
	if e.After(absolute) {
		return absolute
	}
	return e
}

// Create issues a new session token for the provided user identifier.
func (m *SessionManager) Create(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, ErrInvalidUserID
	}
	token, err := m.tokenFactory(m.tokenLength)
	if err != nil {
		return "", time.Time{}, err
	}

	now := time.Now()
	absolute := now.Add(m.absoluteTTL)
	expiresAt := m.idleExpiry(now, absolute)
	if err := m.store.Save(token, userID, expiresAt.UTC(), absolute.UTC()); err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Validate resolves the token to its user when the session is still live,
// refreshing the idle expiry as a side effect. Expired rows are deleted.
func (m *SessionManager) Validate(token string) (string, time.Time, bool, error) {
	if token == "" {
		return "", time.Time{}, false, nil
	}
	record, ok, err := m.store.Get(token)
	if err != nil || !ok {
		return "", time.Time{}, false, err
	}

	now := time.Now()
	absolute := record.AbsoluteExpiresAt
	if absolute.IsZero() {
		// Rows written before absolute TTLs existed carry only one deadline.
		absolute = record.ExpiresAt
	}
	if now.After(record.ExpiresAt) || now.After(absolute) {
		_ = m.store.Delete(token)
		return "", time.Time{}, false, nil
	}

	expiresAt := record.ExpiresAt
	if m.idleTimeout > 0 {
		if refreshed := m.idleExpiry(now, absolute); refreshed.After(expiresAt) {
			if err := m.store.Save(record.Token, record.UserID, refreshed.UTC(), absolute.UTC()); err != nil {
				return "", time.Time{}, false, err
			}
			expiresAt = refreshed
		}
	}
	return record.UserID, expiresAt, true, nil
}

// Revoke deletes the session token from the backing store.
func (m *SessionManager) Revoke(token string) error {
	if token == "" {
		return nil
	}
	return m.store.Delete(token)
}

// PurgeExpired removes any expired sessions from the backing store.
func (m *SessionManager) PurgeExpired() error {
	return m.store.PurgeExpired(time.Now())
}

// Ping verifies the backing store is reachable when it exposes a ping.
func (m *SessionManager) Ping(ctx context.Context) error {
	if m == nil || m.store == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if pinger, ok := m.store.(interface{ Ping(context.Context) error }); ok {
		return pinger.Ping(ctx)
	}
	return nil
}

func newSessionToken(length int) (string, error) {
	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}
