package api

import (
	"fmt"
	"net/http"
	"strings"

	"harmonia/internal/models"
	"harmonia/internal/storage"
)

type createPlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	CoverImage  string `json:"coverImage"`
	IsPublic    *bool  `json:"isPublic"`
}

type updatePlaylistRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	CoverImage  *string `json:"coverImage"`
	IsPublic    *bool   `json:"isPublic"`
}

type addSongsRequest struct {
	SongIDs []string `json:"songIds"`
}

func (h *Handler) Playlists(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		page, err := parsePage(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		user, _ := UserFromContext(r.Context())
		result, err := h.Store.ListPlaylists(storage.PlaylistFilter{
			Search:         strings.TrimSpace(r.URL.Query().Get("search")),
			IncludePrivate: user.IsAdmin,
			Page:           page,
		})
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"playlists":      result.Playlists,
			"page":           result.Page,
			"pages":          result.Pages,
			"totalPlaylists": result.Total,
		})
	case http.MethodPost:
		user, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		params := storage.CreatePlaylistParams{CreatorID: user.ID}
		if isMultipart(r) {
			form, err := parseUploadForm(r, fileFieldSpec{"image": imageContentTypes})
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			defer form.discard()
			params.Name = form.value("name")
			params.Description = form.value("description")
			if raw := form.value("isPublic"); raw != "" {
				public := parseBoolField(raw)
				params.IsPublic = &public
			}
			if form.file("image") != nil {
				coverURL, err := form.uploadFile(r.Context(), h.Media, "image", mediaFolderPlaylists)
				if err != nil {
					writeStorageError(w, err)
					return
				}
				params.CoverImage = coverURL
			}
		} else {
			var req createPlaylistRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			params.Name = req.Name
			params.Description = req.Description
			params.CoverImage = req.CoverImage
			params.IsPublic = req.IsPublic
		}
		playlist, err := h.Store.CreatePlaylist(params)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, playlist)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

// MyPlaylists lists playlists the caller created or collaborates on.
func (h *Handler) MyPlaylists(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.Store.ListUserPlaylists(user.ID))
}

// PlaylistByID routes /api/playlists/{id} and its nested membership and
// collaborator operations.
func (h *Handler) PlaylistByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/playlists/"), "/")
	if rest == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("playlist id missing"))
		return
	}
	segments := strings.Split(rest, "/")
	id := segments[0]

	playlist, ok := h.Store.GetPlaylist(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("playlist not found"))
		return
	}

	if len(segments) > 1 {
		switch segments[1] {
		case "add-songs":
			if len(segments) == 2 {
				h.addPlaylistSongs(w, r, playlist)
				return
			}
		case "remove-song":
			if len(segments) == 3 {
				h.removePlaylistSong(w, r, playlist, segments[2])
				return
			}
		case "collaborators":
			if len(segments) == 3 {
				h.playlistCollaborator(w, r, playlist, segments[2])
				return
			}
		}
		writeError(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		if _, ok := h.ensurePlaylistView(w, r, playlist); !ok {
			return
		}
		writeJSON(w, http.StatusOK, playlist)
	case http.MethodPut:
		user, ok := h.ensurePlaylistEdit(w, r, playlist)
		if !ok {
			return
		}
		update := storage.PlaylistUpdate{}
		if isMultipart(r) {
			form, err := parseUploadForm(r, fileFieldSpec{"image": imageContentTypes})
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			defer form.discard()
			if name := form.value("name"); name != "" {
				update.Name = &name
			}
			if description := form.value("description"); description != "" {
				update.Description = &description
			}
			if raw := form.value("isPublic"); raw != "" {
				public := parseBoolField(raw)
				update.IsPublic = &public
			}
			if form.file("image") != nil {
				coverURL, err := form.uploadFile(r.Context(), h.Media, "image", mediaFolderPlaylists)
				if err != nil {
					writeStorageError(w, err)
					return
				}
				update.CoverImage = &coverURL
			}
		} else {
			var req updatePlaylistRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			update.Name = req.Name
			update.Description = req.Description
			update.CoverImage = req.CoverImage
			update.IsPublic = req.IsPublic
		}
		// Collaborators may edit content but only the creator controls
		// visibility.
		if update.IsPublic != nil && *update.IsPublic != playlist.IsPublic {
			if playlist.CreatorID != user.ID && !user.IsAdmin {
				writeError(w, http.StatusForbidden, fmt.Errorf("only the playlist creator can change visibility"))
				return
			}
		}
		updated, err := h.Store.UpdatePlaylist(playlist.ID, update)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if _, ok := h.ensurePlaylistOwner(w, r, playlist); !ok {
			return
		}
		if err := h.Store.DeletePlaylist(playlist.ID); err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Playlist removed"})
	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

func (h *Handler) addPlaylistSongs(w http.ResponseWriter, r *http.Request, playlist models.Playlist) {
	if !requireMethod(w, r, http.MethodPut) {
		return
	}
	if _, ok := h.ensurePlaylistEdit(w, r, playlist); !ok {
		return
	}
	var req addSongsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	updated, err := h.Store.AddPlaylistSongs(playlist.ID, req.SongIDs)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) removePlaylistSong(w http.ResponseWriter, r *http.Request, playlist models.Playlist, songID string) {
	if !requireMethod(w, r, http.MethodPut) {
		return
	}
	if _, ok := h.ensurePlaylistEdit(w, r, playlist); !ok {
		return
	}
	updated, err := h.Store.RemovePlaylistSong(playlist.ID, songID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) playlistCollaborator(w http.ResponseWriter, r *http.Request, playlist models.Playlist, userID string) {
	switch r.Method {
	case http.MethodPut:
		if _, ok := h.ensurePlaylistOwner(w, r, playlist); !ok {
			return
		}
		updated, err := h.Store.AddCollaborator(playlist.ID, userID)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if _, ok := h.ensurePlaylistOwner(w, r, playlist); !ok {
			return
		}
		updated, err := h.Store.RemoveCollaborator(playlist.ID, userID)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	default:
		w.Header().Set("Allow", "PUT, DELETE")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}
