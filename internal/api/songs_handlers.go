package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"harmonia/internal/media"
	"harmonia/internal/storage"
)

type updateSongRequest struct {
	Title           *string   `json:"title"`
	AlbumID         *string   `json:"album"`
	DurationSeconds *int      `json:"duration"`
	AudioURL        *string   `json:"audioUrl"`
	CoverImage      *string   `json:"coverImage"`
	Genre           *string   `json:"genre"`
	FeaturedArtists *[]string `json:"featuredArtists"`
	IsExplicit      *bool     `json:"isExplicit"`
}

func (h *Handler) Songs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		page, err := parsePage(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		result, err := h.Store.ListSongs(storage.SongFilter{
			Genre:    strings.TrimSpace(r.URL.Query().Get("genre")),
			ArtistID: strings.TrimSpace(r.URL.Query().Get("artist")),
			AlbumID:  strings.TrimSpace(r.URL.Query().Get("album")),
			Search:   strings.TrimSpace(r.URL.Query().Get("search")),
			Page:     page,
		})
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"songs":      result.Songs,
			"page":       result.Page,
			"pages":      result.Pages,
			"totalSongs": result.Total,
		})
	case http.MethodPost:
		h.createSong(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

// createSong accepts a multipart form carrying the audio track plus an
// optional cover image. Both files are pushed to the media host in
// parallel before the catalog record is written.
func (h *Handler) createSong(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}
	if !isMultipart(r) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("expected multipart form data"))
		return
	}
	form, err := parseUploadForm(r, fileFieldSpec{
		"audio": audioContentTypes,
		"image": imageContentTypes,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	defer form.discard()

	audio := form.file("audio")
	if audio == nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("audio file is required"))
		return
	}
	duration, err := strconv.Atoi(strings.TrimSpace(form.value("duration")))
	if err != nil || duration <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("duration must be a positive integer"))
		return
	}
	if h.Media == nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("media uploads are not configured"))
		return
	}

	uploads := []media.FileUpload{{
		LocalPath:   audio.tempPath,
		Folder:      mediaFolderSongs,
		Filename:    audio.originalName,
		ContentType: audio.contentType,
	}}
	image := form.file("image")
	if image != nil {
		uploads = append(uploads, media.FileUpload{
			LocalPath:   image.tempPath,
			Folder:      mediaFolderSongs,
			Filename:    image.originalName,
			ContentType: image.contentType,
		})
	}
	// The uploader removes the temp files, so they leave the form first.
	delete(form.files, "audio")
	delete(form.files, "image")

	urls, err := media.UploadAll(r.Context(), h.Media, uploads...)
	if err != nil {
		writeStorageError(w, err)
		return
	}

	params := storage.CreateSongParams{
		Title:           form.value("title"),
		ArtistID:        form.value("artist"),
		DurationSeconds: duration,
		AudioURL:        urls[0],
		Genre:           form.value("genre"),
		FeaturedArtists: splitListField(form.value("featuredArtists")),
		IsExplicit:      parseBoolField(form.value("isExplicit")),
	}
	if albumID := form.value("album"); albumID != "" {
		params.AlbumID = &albumID
	}
	if image != nil {
		params.CoverImage = urls[1]
	}

	song, err := h.Store.CreateSong(params)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, song)
}

func (h *Handler) TopSongs(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, h.Store.TopSongs(parseLimit(r, 10)))
}

func (h *Handler) SongByID(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/songs/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, fmt.Errorf("song not found"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		// Fetching a song counts as a play.
		song, err := h.Store.RecordPlay(id)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, song)
	case http.MethodPut:
		if _, ok := h.requireAdmin(w, r); !ok {
			return
		}
		var req updateSongRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		song, err := h.Store.UpdateSong(id, storage.SongUpdate{
			Title:           req.Title,
			AlbumID:         req.AlbumID,
			DurationSeconds: req.DurationSeconds,
			AudioURL:        req.AudioURL,
			CoverImage:      req.CoverImage,
			Genre:           req.Genre,
			FeaturedArtists: req.FeaturedArtists,
			IsExplicit:      req.IsExplicit,
		})
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, song)
	case http.MethodDelete:
		if _, ok := h.requireAdmin(w, r); !ok {
			return
		}
		if err := h.Store.DeleteSong(id); err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Song removed"})
	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}
