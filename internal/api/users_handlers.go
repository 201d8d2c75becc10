package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"harmonia/internal/models"
	"harmonia/internal/storage"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type updateProfileRequest struct {
	Name           *string `json:"name"`
	Email          *string `json:"email"`
	ProfilePicture *string `json:"profilePicture"`
}

type userResponse struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Email             string   `json:"email"`
	ProfilePicture    string   `json:"profilePicture"`
	IsAdmin           bool     `json:"isAdmin"`
	LikedSongs        []string `json:"likedSongs"`
	LikedAlbums       []string `json:"likedAlbums"`
	FollowedArtists   []string `json:"followedArtists"`
	FollowedPlaylists []string `json:"followedPlaylists"`
	CreatedAt         string   `json:"createdAt"`
}

type authResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expiresAt"`
	User      userResponse `json:"user"`
}

func newUserResponse(user models.User) userResponse {
	return userResponse{
		ID:                user.ID,
		Name:              user.Name,
		Email:             user.Email,
		ProfilePicture:    user.ProfilePicture,
		IsAdmin:           user.IsAdmin,
		LikedSongs:        append([]string{}, user.LikedSongs...),
		LikedAlbums:       append([]string{}, user.LikedAlbums...),
		FollowedArtists:   append([]string{}, user.FollowedArtists...),
		FollowedPlaylists: append([]string{}, user.FollowedPlaylists...),
		CreatedAt:         user.CreatedAt.Format(time.RFC3339Nano),
	}
}

func newAuthResponse(user models.User, token string, expires time.Time) authResponse {
	return authResponse{
		Token:     token,
		ExpiresAt: expires.UTC().Format(time.RFC3339Nano),
		User:      newUserResponse(user),
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := h.Store.CreateUser(storage.CreateUserParams{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeStorageError(w, err)
		return
	}

	token, expiresAt, err := h.sessionManager().Create(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	setSessionCookie(w, r, token, expiresAt)
	writeJSON(w, http.StatusCreated, newAuthResponse(user, token, expiresAt))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := h.Store.AuthenticateUser(req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid credentials"))
		return
	}

	token, expiresAt, err := h.sessionManager().Create(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	setSessionCookie(w, r, token, expiresAt)
	writeJSON(w, http.StatusOK, newAuthResponse(user, token, expiresAt))
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if token := ExtractToken(r); token != "" {
		if err := h.sessionManager().Revoke(token); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}
	clearSessionCookie(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		user, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, newUserResponse(user))
	case http.MethodPut:
		user, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		update := storage.UserUpdate{}
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
			if email := form.value("email"); email != "" {
				update.Email = &email
			}
			if form.file("image") != nil {
				pictureURL, err := form.uploadFile(r.Context(), h.Media, "image", mediaFolderUsers)
				if err != nil {
					writeStorageError(w, err)
					return
				}
				update.ProfilePicture = &pictureURL
			}
		} else {
			var req updateProfileRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			update.Name = req.Name
			update.Email = req.Email
			update.ProfilePicture = req.ProfilePicture
		}
		updated, err := h.Store.UpdateUser(user.ID, update)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newUserResponse(updated))
	default:
		w.Header().Set("Allow", "GET, PUT")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

func (h *Handler) Password(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPut) {
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.Store.ChangePassword(user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}
	users := h.Store.ListUsers()
	response := make([]userResponse, 0, len(users))
	for _, user := range users {
		response = append(response, newUserResponse(user))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) UserByID(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/users/"), "/")
	if id == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("user id missing"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		requester, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		if requester.ID != id && !requester.IsAdmin {
			writeError(w, http.StatusForbidden, fmt.Errorf("forbidden"))
			return
		}
		user, ok := h.Store.GetUser(id)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("user not found"))
			return
		}
		writeJSON(w, http.StatusOK, newUserResponse(user))
	case http.MethodDelete:
		if _, ok := h.requireAdmin(w, r); !ok {
			return
		}
		if err := h.Store.DeleteUser(id); err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "User removed"})
	default:
		w.Header().Set("Allow", "GET, DELETE")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

// Toggle routes flip a like/follow relation and answer with the direction
// taken plus the refreshed relation array.

func (h *Handler) LikeSong(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPut) {
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	songID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/users/like-song/"), "/")
	if songID == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("song id missing"))
		return
	}
	result, err := h.Store.ToggleLikeSong(user.ID, songID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	message := "Song unliked"
	if result.Added {
		message = "Song liked"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":    message,
		"likedSongs": result.User.LikedSongs,
	})
}

func (h *Handler) LikeAlbum(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPut) {
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	albumID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/users/like-album/"), "/")
	if albumID == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("album id missing"))
		return
	}
	result, err := h.Store.ToggleLikeAlbum(user.ID, albumID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	message := "Album unliked"
	if result.Added {
		message = "Album liked"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":     message,
		"likedAlbums": result.User.LikedAlbums,
	})
}

func (h *Handler) FollowArtist(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPut) {
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	artistID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/users/follow-artist/"), "/")
	if artistID == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("artist id missing"))
		return
	}
	result, err := h.Store.ToggleFollowArtist(user.ID, artistID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	message := "Artist unfollowed"
	if result.Added {
		message = "Artist followed"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":         message,
		"followedArtists": result.User.FollowedArtists,
	})
}

func (h *Handler) FollowPlaylist(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPut) {
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	playlistID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/users/follow-playlist/"), "/")
	if playlistID == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("playlist id missing"))
		return
	}
	playlist, ok := h.Store.GetPlaylist(playlistID)
	if ok && !playlist.CanView(user.ID, user.IsAdmin) {
		writeError(w, http.StatusForbidden, fmt.Errorf("this playlist is private"))
		return
	}
	result, err := h.Store.ToggleFollowPlaylist(user.ID, playlistID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	message := "Playlist unfollowed"
	if result.Added {
		message = "Playlist followed"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":           message,
		"followedPlaylists": result.User.FollowedPlaylists,
	})
}
