package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"harmonia/internal/auth"
	"harmonia/internal/media"
	"harmonia/internal/models"
	"harmonia/internal/storage"
)

func newTestHandler(t *testing.T) (*Handler, *storage.Storage) {
	t.Helper()
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "harmonia.json"))
	if err != nil {
		t.Fatalf("NewStorage returned error: %v", err)
	}
	return NewHandler(store, auth.NewSessionManager(time.Hour)), store
}

func seedAPIUser(t *testing.T, store *storage.Storage, email string, admin bool) models.User {
	t.Helper()
	user, err := store.CreateUser(storage.CreateUserParams{
		Name:     "Listener",
		Email:    email,
		Password: "sup3rsecret",
		IsAdmin:  admin,
	})
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	return user
}

func seedAPIArtist(t *testing.T, store *storage.Storage, name string) models.Artist {
	t.Helper()
	artist, err := store.CreateArtist(storage.CreateArtistParams{
		Name:   name,
		Bio:    "Late night electronica from a converted warehouse.",
		Genres: []string{"electronic"},
	})
	if err != nil {
		t.Fatalf("CreateArtist returned error: %v", err)
	}
	return artist
}

func seedAPISong(t *testing.T, store *storage.Storage, artistID, title string) models.Song {
	t.Helper()
	song, err := store.CreateSong(storage.CreateSongParams{
		Title:           title,
		ArtistID:        artistID,
		DurationSeconds: 180,
		AudioURL:        "https://cdn.harmonia.dev/harmonia/songs/" + title + ".mp3",
	})
	if err != nil {
		t.Fatalf("CreateSong returned error: %v", err)
	}
	return song
}

func seedAPIPlaylist(t *testing.T, store *storage.Storage, creatorID, name string, public bool) models.Playlist {
	t.Helper()
	playlist, err := store.CreatePlaylist(storage.CreatePlaylistParams{
		Name:        name,
		Description: "A generous helping of repeat listens.",
		CreatorID:   creatorID,
		IsPublic:    &public,
	})
	if err != nil {
		t.Fatalf("CreatePlaylist returned error: %v", err)
	}
	return playlist
}

// authedRequest attaches the user the way the server auth middleware would.
func authedRequest(r *http.Request, user models.User) *http.Request {
	return r.WithContext(ContextWithUser(r.Context(), user))
}

func jsonRequest(t *testing.T, method, target string, payload interface{}) *http.Request {
	t.Helper()
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		body = bytes.NewReader(encoded)
	}
	r := httptest.NewRequest(method, target, body)
	if payload != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	return r
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(dest); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

// requireErrorShape asserts the error envelope used across the API.
func requireErrorShape(t *testing.T, w *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected status %d, got %d (%s)", status, w.Code, w.Body.String())
	}
	var body map[string]string
	decodeBody(t, w, &body)
	if body["status"] != "error" {
		t.Fatalf("expected error status marker, got %+v", body)
	}
	if message != "" && body["message"] != message {
		t.Fatalf("expected message %q, got %q", message, body["message"])
	}
}

// fakeUploader mimics the media client contract, temp removal included.
type fakeUploader struct {
	mu      sync.Mutex
	uploads []media.FileUpload
	fail    error
}

func (f *fakeUploader) Upload(_ context.Context, upload media.FileUpload) (string, error) {
	_ = os.Remove(upload.LocalPath)
	f.mu.Lock()
	f.uploads = append(f.uploads, upload)
	f.mu.Unlock()
	if f.fail != nil {
		return "", f.fail
	}
	return "https://cdn.harmonia.dev/" + upload.Folder + "/" + upload.Filename, nil
}

func (f *fakeUploader) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

type multipartFile struct {
	field       string
	filename    string
	contentType string
	contents    string
}

func multipartRequest(t *testing.T, target string, values map[string]string, files ...multipartFile) *http.Request {
	t.Helper()
	var buffer bytes.Buffer
	writer := multipart.NewWriter(&buffer)
	for name, value := range values {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("write form field: %v", err)
		}
	}
	for _, file := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.field, file.filename))
		header.Set("Content-Type", file.contentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("create form part: %v", err)
		}
		if _, err := io.Copy(part, strings.NewReader(file.contents)); err != nil {
			t.Fatalf("write form part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	r := httptest.NewRequest(http.MethodPost, target, &buffer)
	r.Header.Set("Content-Type", writer.FormDataContentType())
	return r
}
