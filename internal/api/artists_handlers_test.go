package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"harmonia/internal/models"
)

func TestArtistsListShape(t *testing.T) {
	handler, store := newTestHandler(t)
	seedAPIArtist(t, store, "Night Shift")
	seedAPIArtist(t, store, "Morning Chorus")

	w := httptest.NewRecorder()
	handler.Artists(w, httptest.NewRequest(http.MethodGet, "/api/artists?limit=1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var body struct {
		Artists []models.Artist `json:"artists"`
		Page    int             `json:"page"`
		Pages   int             `json:"pages"`
		Total   int             `json:"totalArtists"`
	}
	decodeBody(t, w, &body)
	if len(body.Artists) != 1 || body.Pages != 2 || body.Total != 2 {
		t.Fatalf("unexpected page shape %+v", body)
	}
}

func TestCreateArtistMultipart(t *testing.T) {
	handler, store := newTestHandler(t)
	admin := seedAPIUser(t, store, "admin@example.com", true)
	uploader := &fakeUploader{}
	handler.Media = uploader

	r := multipartRequest(t, "/api/artists", map[string]string{
		"name":   "Night Shift",
		"bio":    "Late night electronica from a converted warehouse.",
		"genres": "electronic, ambient",
	}, multipartFile{field: "image", filename: "press.jpg", contentType: "image/jpeg", contents: "img"})
	w := httptest.NewRecorder()
	handler.Artists(w, authedRequest(r, admin))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	var artist models.Artist
	decodeBody(t, w, &artist)
	if len(artist.Genres) != 2 {
		t.Fatalf("expected comma separated genres split, got %v", artist.Genres)
	}
	if uploader.count() != 1 {
		t.Fatalf("expected image pushed, got %d uploads", uploader.count())
	}

	// Non-multipart creation is rejected before touching storage.
	w = httptest.NewRecorder()
	handler.Artists(w, authedRequest(jsonRequest(t, http.MethodPost, "/api/artists", map[string]string{}), admin))
	requireErrorShape(t, w, http.StatusBadRequest, "expected multipart form data")
}

func TestCreateArtistRequiresAdmin(t *testing.T) {
	handler, store := newTestHandler(t)
	member := seedAPIUser(t, store, "member@example.com", false)

	r := multipartRequest(t, "/api/artists", map[string]string{"name": "Night Shift"})
	w := httptest.NewRecorder()
	handler.Artists(w, authedRequest(r, member))
	requireErrorShape(t, w, http.StatusForbidden, "admin access required")

	w = httptest.NewRecorder()
	handler.Artists(w, multipartRequest(t, "/api/artists", map[string]string{"name": "Night Shift"}))
	requireErrorShape(t, w, http.StatusUnauthorized, "authentication required")
}

func TestArtistTopSongsRoute(t *testing.T) {
	handler, store := newTestHandler(t)
	artist := seedAPIArtist(t, store, "Night Shift")
	seedAPISong(t, store, artist.ID, "quiet-track")
	loud := seedAPISong(t, store, artist.ID, "loud-track")
	if _, err := store.RecordPlay(loud.ID); err != nil {
		t.Fatalf("RecordPlay returned error: %v", err)
	}

	w := httptest.NewRecorder()
	handler.ArtistByID(w, httptest.NewRequest(http.MethodGet, "/api/artists/"+artist.ID+"/top-songs?limit=1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var songs []models.Song
	decodeBody(t, w, &songs)
	if len(songs) != 1 || songs[0].ID != loud.ID {
		t.Fatalf("expected the most played song first, got %+v", songs)
	}

	w = httptest.NewRecorder()
	handler.ArtistByID(w, httptest.NewRequest(http.MethodGet, "/api/artists/missing/top-songs", nil))
	requireErrorShape(t, w, http.StatusNotFound, "artist not found")
}

func TestArtistUpdateAndDelete(t *testing.T) {
	handler, store := newTestHandler(t)
	admin := seedAPIUser(t, store, "admin@example.com", true)
	artist := seedAPIArtist(t, store, "Night Shift")

	w := httptest.NewRecorder()
	handler.ArtistByID(w, authedRequest(jsonRequest(t, http.MethodPut, "/api/artists/"+artist.ID, map[string]interface{}{
		"isVerified": false,
	}), admin))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var updated models.Artist
	decodeBody(t, w, &updated)
	if updated.IsVerified {
		t.Fatal("expected verification cleared")
	}

	w = httptest.NewRecorder()
	handler.ArtistByID(w, authedRequest(httptest.NewRequest(http.MethodDelete, "/api/artists/"+artist.ID, nil), admin))
	if w.Code != http.StatusOK {
		t.Fatalf("expected delete to succeed, got %d (%s)", w.Code, w.Body.String())
	}
	if _, ok := store.GetArtist(artist.ID); ok {
		t.Fatal("expected artist removed")
	}
}
