package storage

import (
	"errors"
	"strings"
	"testing"
)

func TestCreateUserValidation(t *testing.T) {
	store := newTestStorage(t)

	if _, err := store.CreateUser(CreateUserParams{Name: "A", Email: "bad-email", Password: "sup3rsecret"}); !IsKind(err, KindInvalidInput) {
		t.Fatalf("expected invalid email error, got %v", err)
	}
	if _, err := store.CreateUser(CreateUserParams{Name: "", Email: "a@example.com", Password: "sup3rsecret"}); !IsKind(err, KindInvalidInput) {
		t.Fatalf("expected name error, got %v", err)
	}
	if _, err := store.CreateUser(CreateUserParams{Name: "A", Email: "a@example.com", Password: "short"}); !IsKind(err, KindInvalidInput) {
		t.Fatalf("expected password error, got %v", err)
	}
}

func TestCreateUserNormalizesAndRejectsDuplicates(t *testing.T) {
	store := newTestStorage(t)
	user, err := store.CreateUser(CreateUserParams{Name: "Listener", Email: "  Listener@Example.COM ", Password: "sup3rsecret"})
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	if user.Email != "listener@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.ProfilePicture == "" {
		t.Fatal("expected default profile picture")
	}
	if user.LikedSongs == nil || user.FollowedArtists == nil {
		t.Fatal("expected relation sets to be initialized")
	}
	if strings.Contains(user.PasswordHash, "sup3rsecret") {
		t.Fatal("password must not be stored in clear")
	}

	if _, err := store.CreateUser(CreateUserParams{Name: "Other", Email: "listener@example.com", Password: "sup3rsecret"}); !IsKind(err, KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAuthenticateUser(t *testing.T) {
	store := newTestStorage(t)
	seedUser(t, store, "listener@example.com")

	if _, err := store.AuthenticateUser("listener@example.com", "sup3rsecret"); err != nil {
		t.Fatalf("expected login to succeed, got %v", err)
	}
	if _, err := store.AuthenticateUser("listener@example.com", "wrongpass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := store.AuthenticateUser("nobody@example.com", "sup3rsecret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown email, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	store := newTestStorage(t)
	user := seedUser(t, store, "listener@example.com")

	if err := store.ChangePassword(user.ID, "wrongpass", "n3wsecret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected current password check, got %v", err)
	}
	if err := store.ChangePassword(user.ID, "sup3rsecret", "short"); !IsKind(err, KindInvalidInput) {
		t.Fatalf("expected new password validation, got %v", err)
	}
	if err := store.ChangePassword(user.ID, "sup3rsecret", "n3wsecret"); err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}
	if _, err := store.AuthenticateUser("listener@example.com", "n3wsecret"); err != nil {
		t.Fatalf("expected new password to work, got %v", err)
	}
}

func TestUpdateUserRejectsDuplicateEmail(t *testing.T) {
	store := newTestStorage(t)
	seedUser(t, store, "first@example.com")
	second := seedUser(t, store, "second@example.com")

	email := "first@example.com"
	if _, err := store.UpdateUser(second.ID, UserUpdate{Email: &email}); !IsKind(err, KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	store := newTestStorage(t)
	departing := seedUser(t, store, "departing@example.com")
	remaining := seedUser(t, store, "remaining@example.com")
	artist := seedArtist(t, store, "Night Shift")
	song := seedSong(t, store, artist.ID, nil, "first-light")

	owned := seedPlaylist(t, store, departing.ID, "Owned Mix", true)
	shared := seedPlaylist(t, store, remaining.ID, "Shared Mix", true)
	if _, err := store.AddCollaborator(shared.ID, departing.ID); err != nil {
		t.Fatalf("AddCollaborator returned error: %v", err)
	}

	if _, err := store.ToggleLikeSong(departing.ID, song.ID); err != nil {
		t.Fatalf("ToggleLikeSong returned error: %v", err)
	}
	if _, err := store.ToggleFollowArtist(departing.ID, artist.ID); err != nil {
		t.Fatalf("ToggleFollowArtist returned error: %v", err)
	}
	if _, err := store.ToggleFollowPlaylist(remaining.ID, owned.ID); err != nil {
		t.Fatalf("ToggleFollowPlaylist returned error: %v", err)
	}

	if err := store.DeleteUser(departing.ID); err != nil {
		t.Fatalf("DeleteUser returned error: %v", err)
	}

	if _, ok := store.GetUser(departing.ID); ok {
		t.Fatal("expected user removed")
	}
	if _, ok := store.GetPlaylist(owned.ID); ok {
		t.Fatal("expected owned playlist removed")
	}
	sharedNow, _ := store.GetPlaylist(shared.ID)
	if containsID(sharedNow.Collaborators, departing.ID) {
		t.Fatal("expected collaborator slot cleared")
	}
	artistNow, _ := store.GetArtist(artist.ID)
	if artistNow.Followers != 0 {
		t.Fatalf("expected follower count released, got %d", artistNow.Followers)
	}
	songNow, _ := store.GetSong(song.ID)
	if songNow.Likes != 0 {
		t.Fatalf("expected like count released, got %d", songNow.Likes)
	}
	remainingNow, _ := store.GetUser(remaining.ID)
	if containsID(remainingNow.FollowedPlaylists, owned.ID) {
		t.Fatal("expected dangling playlist follow scrubbed")
	}
}
