package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"harmonia/internal/storage"
)

type updateAlbumRequest struct {
	Title       *string `json:"title"`
	ReleaseDate *string `json:"releaseDate"`
	Genre       *string `json:"genre"`
	Description *string `json:"description"`
	CoverImage  *string `json:"coverImage"`
	IsExplicit  *bool   `json:"isExplicit"`
}

// parseReleaseDate accepts a bare date or a full RFC 3339 timestamp.
func parseReleaseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("releaseDate is required")
	}
	if date, err := time.Parse("2006-01-02", raw); err == nil {
		return date, nil
	}
	if date, err := time.Parse(time.RFC3339, raw); err == nil {
		return date, nil
	}
	return time.Time{}, fmt.Errorf("releaseDate must be YYYY-MM-DD or RFC 3339")
}

func parseBoolField(raw string) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && value
}

func (h *Handler) Albums(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		page, err := parsePage(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		result, err := h.Store.ListAlbums(storage.AlbumFilter{
			Genre:    strings.TrimSpace(r.URL.Query().Get("genre")),
			ArtistID: strings.TrimSpace(r.URL.Query().Get("artist")),
			Search:   strings.TrimSpace(r.URL.Query().Get("search")),
			Page:     page,
		})
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"albums":      result.Albums,
			"page":        result.Page,
			"pages":       result.Pages,
			"totalAlbums": result.Total,
		})
	case http.MethodPost:
		if _, ok := h.requireAdmin(w, r); !ok {
			return
		}
		if !isMultipart(r) {
			writeError(w, http.StatusBadRequest, fmt.Errorf("expected multipart form data"))
			return
		}
		form, err := parseUploadForm(r, fileFieldSpec{"image": imageContentTypes})
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		defer form.discard()

		releaseDate, err := parseReleaseDate(form.value("releaseDate"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		params := storage.CreateAlbumParams{
			Title:       form.value("title"),
			ArtistID:    form.value("artist"),
			ReleaseDate: releaseDate,
			Genre:       form.value("genre"),
			Description: form.value("description"),
			IsExplicit:  parseBoolField(form.value("isExplicit")),
		}
		if form.file("image") != nil {
			coverURL, err := form.uploadFile(r.Context(), h.Media, "image", mediaFolderAlbums)
			if err != nil {
				writeStorageError(w, err)
				return
			}
			params.CoverImage = coverURL
		}
		album, err := h.Store.CreateAlbum(params)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, album)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

func (h *Handler) NewReleases(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, h.Store.NewReleases(parseLimit(r, 10)))
}

func (h *Handler) AlbumByID(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/albums/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, fmt.Errorf("album not found"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		album, ok := h.Store.GetAlbum(id)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("album not found"))
			return
		}
		writeJSON(w, http.StatusOK, album)
	case http.MethodPut:
		if _, ok := h.requireAdmin(w, r); !ok {
			return
		}
		update := storage.AlbumUpdate{}
		if isMultipart(r) {
			form, err := parseUploadForm(r, fileFieldSpec{"image": imageContentTypes})
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			defer form.discard()
			if title := form.value("title"); title != "" {
				update.Title = &title
			}
			if raw := form.value("releaseDate"); raw != "" {
				releaseDate, err := parseReleaseDate(raw)
				if err != nil {
					writeError(w, http.StatusBadRequest, err)
					return
				}
				update.ReleaseDate = &releaseDate
			}
			if genre := form.value("genre"); genre != "" {
				update.Genre = &genre
			}
			if description := form.value("description"); description != "" {
				update.Description = &description
			}
			if raw := form.value("isExplicit"); raw != "" {
				explicit := parseBoolField(raw)
				update.IsExplicit = &explicit
			}
			if form.file("image") != nil {
				coverURL, err := form.uploadFile(r.Context(), h.Media, "image", mediaFolderAlbums)
				if err != nil {
					writeStorageError(w, err)
					return
				}
				update.CoverImage = &coverURL
			}
		} else {
			var req updateAlbumRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			update.Title = req.Title
			update.Genre = req.Genre
			update.Description = req.Description
			update.CoverImage = req.CoverImage
			update.IsExplicit = req.IsExplicit
			if req.ReleaseDate != nil {
				releaseDate, err := parseReleaseDate(*req.ReleaseDate)
				if err != nil {
					writeError(w, http.StatusBadRequest, err)
					return
				}
				update.ReleaseDate = &releaseDate
			}
		}
		album, err := h.Store.UpdateAlbum(id, update)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, album)
	case http.MethodDelete:
		if _, ok := h.requireAdmin(w, r); !ok {
			return
		}
		if err := h.Store.DeleteAlbum(id); err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Album removed"})
	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}
