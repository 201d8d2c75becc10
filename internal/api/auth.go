package api

import (
	"context"
	"fmt"
	"net/http"

	"harmonia/internal/models"
)

type contextKey string

const userContextKey contextKey = "authenticatedUser"

// ContextWithUser stores the authenticated user in the provided context.
func ContextWithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext retrieves the authenticated user from context if present.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userContextKey).(models.User)
	return user, ok
}

// AuthenticateRequest validates the session token on the request and
// returns the user.
func (h *Handler) AuthenticateRequest(r *http.Request) (models.User, error) {
	token := ExtractToken(r)
	if token == "" {
		return models.User{}, fmt.Errorf("missing session token")
	}
	userID, _, ok, err := h.sessionManager().Validate(token)
	if err != nil {
		return models.User{}, err
	}
	if !ok {
		return models.User{}, fmt.Errorf("invalid or expired session")
	}
	user, exists := h.Store.GetUser(userID)
	if !exists {
		return models.User{}, fmt.Errorf("account not found")
	}
	return user, nil
}

func (h *Handler) requireAuthenticatedUser(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("authentication required"))
		return models.User{}, false
	}
	return user, true
}

func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return models.User{}, false
	}
	if !user.IsAdmin {
		writeError(w, http.StatusForbidden, fmt.Errorf("admin access required"))
		return models.User{}, false
	}
	return user, true
}

// ensurePlaylistView enforces the read policy: public playlists are open,
// private ones admit the creator, collaborators and admins.
func (h *Handler) ensurePlaylistView(w http.ResponseWriter, r *http.Request, playlist models.Playlist) (models.User, bool) {
	if playlist.IsPublic {
		user, _ := UserFromContext(r.Context())
		return user, true
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return models.User{}, false
	}
	if !playlist.CanView(user.ID, user.IsAdmin) {
		writeError(w, http.StatusForbidden, fmt.Errorf("this playlist is private"))
		return models.User{}, false
	}
	return user, true
}

// ensurePlaylistEdit admits the creator and collaborators.
func (h *Handler) ensurePlaylistEdit(w http.ResponseWriter, r *http.Request, playlist models.Playlist) (models.User, bool) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return models.User{}, false
	}
	if !playlist.CanEdit(user.ID) {
		writeError(w, http.StatusForbidden, fmt.Errorf("not authorized to modify this playlist"))
		return models.User{}, false
	}
	return user, true
}

// ensurePlaylistOwner admits the creator alone, plus admins.
func (h *Handler) ensurePlaylistOwner(w http.ResponseWriter, r *http.Request, playlist models.Playlist) (models.User, bool) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return models.User{}, false
	}
	if playlist.CreatorID != user.ID && !user.IsAdmin {
		writeError(w, http.StatusForbidden, fmt.Errorf("only the playlist creator can do this"))
		return models.User{}, false
	}
	return user, true
}
