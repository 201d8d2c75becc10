package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"harmonia/internal/models"
)

func TestPlaylistsListHidesPrivateFromGuests(t *testing.T) {
	handler, store := newTestHandler(t)
	creator := seedAPIUser(t, store, "creator@example.com", false)
	admin := seedAPIUser(t, store, "admin@example.com", true)
	seedAPIPlaylist(t, store, creator.ID, "Public Mix", true)
	seedAPIPlaylist(t, store, creator.ID, "Private Mix", false)

	w := httptest.NewRecorder()
	handler.Playlists(w, httptest.NewRequest(http.MethodGet, "/api/playlists", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var body struct {
		Playlists []models.Playlist `json:"playlists"`
		Total     int               `json:"totalPlaylists"`
	}
	decodeBody(t, w, &body)
	if body.Total != 1 {
		t.Fatalf("expected guests to see one playlist, got %d", body.Total)
	}

	w = httptest.NewRecorder()
	handler.Playlists(w, authedRequest(httptest.NewRequest(http.MethodGet, "/api/playlists", nil), admin))
	decodeBody(t, w, &body)
	if body.Total != 2 {
		t.Fatalf("expected admins to see both playlists, got %d", body.Total)
	}
}

func TestCreatePlaylistRequiresAuthentication(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	handler.Playlists(w, jsonRequest(t, http.MethodPost, "/api/playlists", map[string]string{
		"name":        "Late Drive",
		"description": "A generous helping of repeat listens.",
	}))
	requireErrorShape(t, w, http.StatusUnauthorized, "authentication required")
}

func TestCreatePlaylist(t *testing.T) {
	handler, store := newTestHandler(t)
	user := seedAPIUser(t, store, "creator@example.com", false)

	w := httptest.NewRecorder()
	handler.Playlists(w, authedRequest(jsonRequest(t, http.MethodPost, "/api/playlists", map[string]string{
		"name":        "Late Drive",
		"description": "A generous helping of repeat listens.",
	}), user))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	var playlist models.Playlist
	decodeBody(t, w, &playlist)
	if playlist.CreatorID != user.ID || !playlist.IsPublic {
		t.Fatalf("unexpected playlist %+v", playlist)
	}
}

func TestPlaylistGetEnforcesVisibility(t *testing.T) {
	handler, store := newTestHandler(t)
	creator := seedAPIUser(t, store, "creator@example.com", false)
	stranger := seedAPIUser(t, store, "stranger@example.com", false)
	hidden := seedAPIPlaylist(t, store, creator.ID, "Private Mix", false)

	w := httptest.NewRecorder()
	handler.PlaylistByID(w, httptest.NewRequest(http.MethodGet, "/api/playlists/"+hidden.ID, nil))
	requireErrorShape(t, w, http.StatusUnauthorized, "authentication required")

	w = httptest.NewRecorder()
	handler.PlaylistByID(w, authedRequest(httptest.NewRequest(http.MethodGet, "/api/playlists/"+hidden.ID, nil), stranger))
	requireErrorShape(t, w, http.StatusForbidden, "this playlist is private")

	w = httptest.NewRecorder()
	handler.PlaylistByID(w, authedRequest(httptest.NewRequest(http.MethodGet, "/api/playlists/"+hidden.ID, nil), creator))
	if w.Code != http.StatusOK {
		t.Fatalf("expected creator access, got %d (%s)", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	handler.PlaylistByID(w, httptest.NewRequest(http.MethodGet, "/api/playlists/missing", nil))
	requireErrorShape(t, w, http.StatusNotFound, "playlist not found")
}

func TestPlaylistEditPolicy(t *testing.T) {
	handler, store := newTestHandler(t)
	creator := seedAPIUser(t, store, "creator@example.com", false)
	collaborator := seedAPIUser(t, store, "collab@example.com", false)
	stranger := seedAPIUser(t, store, "stranger@example.com", false)
	playlist := seedAPIPlaylist(t, store, creator.ID, "Late Drive", true)
	if _, err := store.AddCollaborator(playlist.ID, collaborator.ID); err != nil {
		t.Fatalf("AddCollaborator returned error: %v", err)
	}

	name := "Later Drive"
	w := httptest.NewRecorder()
	handler.PlaylistByID(w, authedRequest(jsonRequest(t, http.MethodPut, "/api/playlists/"+playlist.ID, map[string]string{
		"name": name,
	}), stranger))
	requireErrorShape(t, w, http.StatusForbidden, "not authorized to modify this playlist")

	w = httptest.NewRecorder()
	handler.PlaylistByID(w, authedRequest(jsonRequest(t, http.MethodPut, "/api/playlists/"+playlist.ID, map[string]string{
		"name": name,
	}), collaborator))
	if w.Code != http.StatusOK {
		t.Fatalf("expected collaborator edit, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestPlaylistVisibilityChangeIsCreatorOnly(t *testing.T) {
	handler, store := newTestHandler(t)
	creator := seedAPIUser(t, store, "creator@example.com", false)
	collaborator := seedAPIUser(t, store, "collab@example.com", false)
	playlist := seedAPIPlaylist(t, store, creator.ID, "Late Drive", true)
	if _, err := store.AddCollaborator(playlist.ID, collaborator.ID); err != nil {
		t.Fatalf("AddCollaborator returned error: %v", err)
	}

	w := httptest.NewRecorder()
	handler.PlaylistByID(w, authedRequest(jsonRequest(t, http.MethodPut, "/api/playlists/"+playlist.ID, map[string]interface{}{
		"isPublic": false,
	}), collaborator))
	requireErrorShape(t, w, http.StatusForbidden, "only the playlist creator can change visibility")

	w = httptest.NewRecorder()
	handler.PlaylistByID(w, authedRequest(jsonRequest(t, http.MethodPut, "/api/playlists/"+playlist.ID, map[string]interface{}{
		"isPublic": false,
	}), creator))
	if w.Code != http.StatusOK {
		t.Fatalf("expected creator to flip visibility, got %d (%s)", w.Code, w.Body.String())
	}
	var updated models.Playlist
	decodeBody(t, w, &updated)
	if updated.IsPublic {
		t.Fatal("expected playlist made private")
	}
}

func TestPlaylistMembershipRoutes(t *testing.T) {
	handler, store := newTestHandler(t)
	creator := seedAPIUser(t, store, "creator@example.com", false)
	artist := seedAPIArtist(t, store, "Night Shift")
	song := seedAPISong(t, store, artist.ID, "first-light")
	playlist := seedAPIPlaylist(t, store, creator.ID, "Late Drive", true)

	w := httptest.NewRecorder()
	handler.PlaylistByID(w, authedRequest(jsonRequest(t, http.MethodPut, "/api/playlists/"+playlist.ID+"/add-songs", map[string][]string{
		"songIds": {song.ID, "unknown"},
	}), creator))
	if w.Code != http.StatusOK {
		t.Fatalf("expected add-songs to succeed, got %d (%s)", w.Code, w.Body.String())
	}
	var updated models.Playlist
	decodeBody(t, w, &updated)
	if len(updated.Songs) != 1 || updated.Songs[0] != song.ID {
		t.Fatalf("expected known song added, got %v", updated.Songs)
	}

	w = httptest.NewRecorder()
	handler.PlaylistByID(w, authedRequest(httptest.NewRequest(http.MethodPut, "/api/playlists/"+playlist.ID+"/remove-song/"+song.ID, nil), creator))
	if w.Code != http.StatusOK {
		t.Fatalf("expected remove-song to succeed, got %d (%s)", w.Code, w.Body.String())
	}
	decodeBody(t, w, &updated)
	if len(updated.Songs) != 0 {
		t.Fatalf("expected song removed, got %v", updated.Songs)
	}

	// Removing the song again is an invalid state, not a silent no-op.
	w = httptest.NewRecorder()
	handler.PlaylistByID(w, authedRequest(httptest.NewRequest(http.MethodPut, "/api/playlists/"+playlist.ID+"/remove-song/"+song.ID, nil), creator))
	requireErrorShape(t, w, http.StatusBadRequest, "")
}

func TestPlaylistCollaboratorRoutesAreOwnerOnly(t *testing.T) {
	handler, store := newTestHandler(t)
	creator := seedAPIUser(t, store, "creator@example.com", false)
	friend := seedAPIUser(t, store, "friend@example.com", false)
	playlist := seedAPIPlaylist(t, store, creator.ID, "Late Drive", true)

	w := httptest.NewRecorder()
	handler.PlaylistByID(w, authedRequest(httptest.NewRequest(http.MethodPut, "/api/playlists/"+playlist.ID+"/collaborators/"+friend.ID, nil), friend))
	requireErrorShape(t, w, http.StatusForbidden, "only the playlist creator can do this")

	w = httptest.NewRecorder()
	handler.PlaylistByID(w, authedRequest(httptest.NewRequest(http.MethodPut, "/api/playlists/"+playlist.ID+"/collaborators/"+friend.ID, nil), creator))
	if w.Code != http.StatusOK {
		t.Fatalf("expected collaborator added, got %d (%s)", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	handler.PlaylistByID(w, authedRequest(httptest.NewRequest(http.MethodDelete, "/api/playlists/"+playlist.ID+"/collaborators/"+friend.ID, nil), creator))
	if w.Code != http.StatusOK {
		t.Fatalf("expected collaborator removed, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestPlaylistDeleteIsOwnerOnly(t *testing.T) {
	handler, store := newTestHandler(t)
	creator := seedAPIUser(t, store, "creator@example.com", false)
	collaborator := seedAPIUser(t, store, "collab@example.com", false)
	playlist := seedAPIPlaylist(t, store, creator.ID, "Late Drive", true)
	if _, err := store.AddCollaborator(playlist.ID, collaborator.ID); err != nil {
		t.Fatalf("AddCollaborator returned error: %v", err)
	}

	w := httptest.NewRecorder()
	handler.PlaylistByID(w, authedRequest(httptest.NewRequest(http.MethodDelete, "/api/playlists/"+playlist.ID, nil), collaborator))
	requireErrorShape(t, w, http.StatusForbidden, "only the playlist creator can do this")

	w = httptest.NewRecorder()
	handler.PlaylistByID(w, authedRequest(httptest.NewRequest(http.MethodDelete, "/api/playlists/"+playlist.ID, nil), creator))
	if w.Code != http.StatusOK {
		t.Fatalf("expected creator delete, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestMyPlaylists(t *testing.T) {
	handler, store := newTestHandler(t)
	creator := seedAPIUser(t, store, "creator@example.com", false)
	friend := seedAPIUser(t, store, "friend@example.com", false)
	seedAPIPlaylist(t, store, creator.ID, "Creator Mix", true)
	shared := seedAPIPlaylist(t, store, friend.ID, "Friend Mix", false)
	if _, err := store.AddCollaborator(shared.ID, creator.ID); err != nil {
		t.Fatalf("AddCollaborator returned error: %v", err)
	}

	w := httptest.NewRecorder()
	handler.MyPlaylists(w, authedRequest(httptest.NewRequest(http.MethodGet, "/api/playlists/me", nil), creator))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var playlists []models.Playlist
	decodeBody(t, w, &playlists)
	if len(playlists) != 2 {
		t.Fatalf("expected created plus collaborated playlists, got %d", len(playlists))
	}
}
