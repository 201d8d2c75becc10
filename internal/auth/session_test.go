package auth

import (
	"errors"
	"testing"
	"time"
)

func TestCreateRequiresUserID(t *testing.T) {
	manager := NewSessionManager(time.Hour)
	if _, _, err := manager.Create(""); !errors.Is(err, ErrInvalidUserID) {
		t.Fatalf("expected ErrInvalidUserID, got %v", err)
	}
}

func TestCreateAndValidateRoundTrip(t *testing.T) {
	manager := NewSessionManager(time.Hour)
	token, expiresAt, err := manager.Create("user-1")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if token == "" {
		t.Fatal("expected a token")
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expected future expiry, got %v", expiresAt)
	}

	userID, _, ok, err := manager.Validate(token)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if !ok || userID != "user-1" {
		t.Fatalf("expected valid session for user-1, got ok=%v user=%q", ok, userID)
	}
}

func TestValidateRejectsUnknownAndEmptyTokens(t *testing.T) {
	manager := NewSessionManager(time.Hour)
	if _, _, ok, err := manager.Validate(""); err != nil || ok {
		t.Fatalf("expected empty token rejection, got ok=%v err=%v", ok, err)
	}
	if _, _, ok, err := manager.Validate("bogus"); err != nil || ok {
		t.Fatalf("expected unknown token rejection, got ok=%v err=%v", ok, err)
	}
}

func TestValidateDropsExpiredSessions(t *testing.T) {
	store := NewMemorySessionStore()
	manager := NewSessionManager(time.Hour, WithStore(store))
	expired := time.Now().Add(-time.Minute).UTC()
	if err := store.Save("stale", "user-1", expired, expired); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	if _, _, ok, err := manager.Validate("stale"); err != nil || ok {
		t.Fatalf("expected expired session rejection, got ok=%v err=%v", ok, err)
	}
	// Validation removes the stale row.
	if _, found, _ := store.Get("stale"); found {
		t.Fatal("expected expired session deleted")
	}
}

func TestIdleTimeoutRefreshesOnActivity(t *testing.T) {
	store := NewMemorySessionStore()
	manager := NewSessionManager(time.Hour, WithStore(store), WithIdleTimeout(10*time.Minute))
	token, firstExpiry, err := manager.Create("user-1")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if time.Until(firstExpiry) > 11*time.Minute {
		t.Fatalf("expected idle expiry near 10m, got %v", time.Until(firstExpiry))
	}

	// Simulate the last refresh being close to expiry.
	record, _, _ := store.Get(token)
	if err := store.Save(token, record.UserID, time.Now().Add(time.Minute).UTC(), record.AbsoluteExpiresAt); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	_, refreshed, ok, err := manager.Validate(token)
	if err != nil || !ok {
		t.Fatalf("Validate returned ok=%v err=%v", ok, err)
	}
	if time.Until(refreshed) < 9*time.Minute {
		t.Fatalf("expected validation to push the expiry out, got %v", time.Until(refreshed))
	}
}

func TestIdleRefreshNeverPassesAbsoluteTTL(t *testing.T) {
	store := NewMemorySessionStore()
	manager := NewSessionManager(time.Hour, WithStore(store), WithIdleTimeout(10*time.Minute))
	absolute := time.Now().Add(2 * time.Minute).UTC()
	if err := store.Save("near-end", "user-1", time.Now().Add(time.Minute).UTC(), absolute); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	_, expiresAt, ok, err := manager.Validate("near-end")
	if err != nil || !ok {
		t.Fatalf("Validate returned ok=%v err=%v", ok, err)
	}
	if expiresAt.After(absolute) {
		t.Fatalf("expected refresh capped at the absolute TTL, got %v past %v", expiresAt, absolute)
	}
}

func TestRevoke(t *testing.T) {
	manager := NewSessionManager(time.Hour)
	token, _, err := manager.Create("user-1")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := manager.Revoke(token); err != nil {
		t.Fatalf("Revoke returned error: %v", err)
	}
	if _, _, ok, _ := manager.Validate(token); ok {
		t.Fatal("expected revoked token to be rejected")
	}
	// Revoking nothing is a no-op.
	if err := manager.Revoke(""); err != nil {
		t.Fatalf("empty revoke returned error: %v", err)
	}
}

func TestPurgeExpired(t *testing.T) {
	store := NewMemorySessionStore()
	manager := NewSessionManager(time.Hour, WithStore(store))
	expired := time.Now().Add(-time.Minute).UTC()
	if err := store.Save("stale", "user-1", expired, expired); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	token, _, err := manager.Create("user-2")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := manager.PurgeExpired(); err != nil {
		t.Fatalf("PurgeExpired returned error: %v", err)
	}
	if _, found, _ := store.Get("stale"); found {
		t.Fatal("expected expired session purged")
	}
	if _, found, _ := store.Get(token); !found {
		t.Fatal("expected live session kept")
	}
}

func TestWithTokenLength(t *testing.T) {
	manager := NewSessionManager(time.Hour, WithTokenLength(16))
	token, _, err := manager.Create("user-1")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	// Hex encoding doubles the byte length.
	if len(token) != 32 {
		t.Fatalf("expected 32 hex characters, got %d", len(token))
	}
}
