package api

import (
	"fmt"
	"net/http"
	"strings"

	"harmonia/internal/storage"
)

type updateArtistRequest struct {
	Name       *string  `json:"name"`
	Bio        *string  `json:"bio"`
	Genres     []string `json:"genres"`
	Image      *string  `json:"image"`
	IsVerified *bool    `json:"isVerified"`
}

// Artists serves the collection: public listing on GET, admin creation on
// POST. Creation is multipart so the artist image can ride along.
func (h *Handler) Artists(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		page, err := parsePage(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		result, err := h.Store.ListArtists(storage.ArtistFilter{
			Genre:  strings.TrimSpace(r.URL.Query().Get("genre")),
			Search: strings.TrimSpace(r.URL.Query().Get("search")),
			Page:   page,
		})
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"artists":      result.Artists,
			"page":         result.Page,
			"pages":        result.Pages,
			"totalArtists": result.Total,
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

		params := storage.CreateArtistParams{
			Name:   form.value("name"),
			Bio:    form.value("bio"),
			Genres: splitListField(form.value("genres")),
		}
		if form.file("image") != nil {
			imageURL, err := form.uploadFile(r.Context(), h.Media, "image", mediaFolderArtists)
			if err != nil {
				writeStorageError(w, err)
				return
			}
			params.Image = imageURL
		}
		artist, err := h.Store.CreateArtist(params)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, artist)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

func (h *Handler) TopArtists(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, h.Store.TopArtists(parseLimit(r, 10)))
}

func (h *Handler) ArtistByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/artists/"), "/")
	if rest == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("artist id missing"))
		return
	}
	if id, ok := strings.CutSuffix(rest, "/top-songs"); ok {
		h.artistTopSongs(w, r, strings.Trim(id, "/"))
		return
	}
	if strings.Contains(rest, "/") {
		writeError(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		artist, ok := h.Store.GetArtist(rest)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("artist not found"))
			return
		}
		writeJSON(w, http.StatusOK, artist)
	case http.MethodPut:
		if _, ok := h.requireAdmin(w, r); !ok {
			return
		}
		update := storage.ArtistUpdate{}
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
			if bio := form.value("bio"); bio != "" {
				update.Bio = &bio
			}
			if genres := splitListField(form.value("genres")); len(genres) > 0 {
				update.Genres = &genres
			}
			if form.file("image") != nil {
				imageURL, err := form.uploadFile(r.Context(), h.Media, "image", mediaFolderArtists)
				if err != nil {
					writeStorageError(w, err)
					return
				}
				update.Image = &imageURL
			}
		} else {
			var req updateArtistRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			update.Name = req.Name
			update.Bio = req.Bio
			if req.Genres != nil {
				update.Genres = &req.Genres
			}
			update.Image = req.Image
			update.IsVerified = req.IsVerified
		}
		artist, err := h.Store.UpdateArtist(rest, update)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, artist)
	case http.MethodDelete:
		if _, ok := h.requireAdmin(w, r); !ok {
			return
		}
		if err := h.Store.DeleteArtist(rest); err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Artist removed"})
	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

func (h *Handler) artistTopSongs(w http.ResponseWriter, r *http.Request, artistID string) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if artistID == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("artist id missing"))
		return
	}
	songs, err := h.Store.ArtistTopSongs(artistID, parseLimit(r, 5))
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

// splitListField decodes a comma separated multipart value into a slice.
func splitListField(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
