package storage

import (
	"sort"
	"strings"
	"time"

	"harmonia/internal/models"
)

const (
	playlistNameMinLength        = 3
	playlistNameMaxLength        = 50
	playlistDescriptionMinLength = 10
	playlistDescriptionMaxLength = 200
)

type CreatePlaylistParams struct {
	Name        string
	Description string
	CoverImage  string
	CreatorID   string
	IsPublic    *bool
}

func validatePlaylistName(name string) error {
	if len(name) < playlistNameMinLength || len(name) > playlistNameMaxLength {
		return InvalidInputError("name must be between %d and %d characters", playlistNameMinLength, playlistNameMaxLength)
	}
	return nil
}

func validatePlaylistDescription(description string) error {
	if len(description) < playlistDescriptionMinLength || len(description) > playlistDescriptionMaxLength {
		return InvalidInputError("description must be between %d and %d characters", playlistDescriptionMinLength, playlistDescriptionMaxLength)
	}
	return nil
}

func (s *Storage) CreatePlaylist(params CreatePlaylistParams) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := strings.TrimSpace(params.Name)
	if err := validatePlaylistName(name); err != nil {
		return models.Playlist{}, err
	}
	description := strings.TrimSpace(params.Description)
	if err := validatePlaylistDescription(description); err != nil {
		return models.Playlist{}, err
	}
	if _, ok := s.data.Users[params.CreatorID]; !ok {
		return models.Playlist{}, NotFoundError("user not found")
	}

	cover := strings.TrimSpace(params.CoverImage)
	if cover == "" {
		cover = models.DefaultCoverImage
	}
	isPublic := true
	if params.IsPublic != nil {
		isPublic = *params.IsPublic
	}

	id := s.generateID()
	now := time.Now().UTC()
	playlist := models.Playlist{
		ID:            id,
		Name:          name,
		Description:   description,
		CoverImage:    cover,
		CreatorID:     params.CreatorID,
		Songs:         []string{},
		IsPublic:      isPublic,
		Collaborators: []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	s.data.Playlists[id] = playlist
	if err := s.persist(); err != nil {
		delete(s.data.Playlists, id)
		return models.Playlist{}, err
	}

	return playlist, nil
}

func (s *Storage) GetPlaylist(id string) (models.Playlist, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	playlist, ok := s.data.Playlists[id]
	return playlist, ok
}

// PlaylistFilter narrows and paginates the playlist listing. Private
// playlists are excluded unless IncludePrivate is set.
type PlaylistFilter struct {
	Search         string
	IncludePrivate bool
	Page           Page
}

// PlaylistPage is one page of the playlist listing ordered by followers.
type PlaylistPage struct {
	Playlists []models.Playlist
	Page      int
	Pages     int
	Total     int
}

func (s *Storage) ListPlaylists(filter PlaylistFilter) (PlaylistPage, error) {
	page, err := filter.Page.normalized()
	if err != nil {
		return PlaylistPage{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]models.Playlist, 0, len(s.data.Playlists))
	for _, playlist := range s.data.Playlists {
		if !playlist.IsPublic && !filter.IncludePrivate {
			continue
		}
		if !matchesSearch(filter.Search, playlist.Name, playlist.Description) {
			continue
		}
		matched = append(matched, playlist)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Followers != matched[j].Followers {
			return matched[i].Followers > matched[j].Followers
		}
		return matched[i].ID < matched[j].ID
	})

	window, pages := paginate(matched, page)
	return PlaylistPage{Playlists: window, Page: page.Number, Pages: pages, Total: len(matched)}, nil
}

// ListUserPlaylists returns every playlist the user created or collaborates
// on, newest first.
func (s *Storage) ListUserPlaylists(userID string) []models.Playlist {
	s.mu.RLock()
	defer s.mu.RUnlock()

	playlists := make([]models.Playlist, 0)
	for _, playlist := range s.data.Playlists {
		if playlist.CreatorID == userID || containsID(playlist.Collaborators, userID) {
			playlists = append(playlists, playlist)
		}
	}
	sort.Slice(playlists, func(i, j int) bool {
		if !playlists[i].CreatedAt.Equal(playlists[j].CreatedAt) {
			return playlists[i].CreatedAt.After(playlists[j].CreatedAt)
		}
		return playlists[i].ID < playlists[j].ID
	})
	return playlists
}

// PlaylistUpdate represents mutable playlist fields; nil pointers leave the
// current value untouched.
type PlaylistUpdate struct {
	Name        *string
	Description *string
	CoverImage  *string
	IsPublic    *bool
}

func (s *Storage) UpdatePlaylist(id string, update PlaylistUpdate) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	playlist, ok := updatedData.Playlists[id]
	if !ok {
		return models.Playlist{}, NotFoundError("playlist not found")
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if err := validatePlaylistName(name); err != nil {
			return models.Playlist{}, err
		}
		playlist.Name = name
	}
	if update.Description != nil {
		description := strings.TrimSpace(*update.Description)
		if err := validatePlaylistDescription(description); err != nil {
			return models.Playlist{}, err
		}
		playlist.Description = description
	}
	if update.CoverImage != nil {
		if cover := strings.TrimSpace(*update.CoverImage); cover != "" {
			playlist.CoverImage = cover
		}
	}
	if update.IsPublic != nil {
		playlist.IsPublic = *update.IsPublic
	}

	playlist.UpdatedAt = time.Now().UTC()
	updatedData.Playlists[id] = playlist
	if err := s.persistDataset(updatedData); err != nil {
		return models.Playlist{}, err
	}

	s.data = updatedData

	return playlist, nil
}

// DeletePlaylist removes the playlist and drops its id from every
// follower's collection.
func (s *Storage) DeletePlaylist(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	if _, ok := updatedData.Playlists[id]; !ok {
		return NotFoundError("playlist not found")
	}

	delete(updatedData.Playlists, id)

	now := time.Now().UTC()
	for userID, user := range updatedData.Users {
		if containsID(user.FollowedPlaylists, id) {
			user.FollowedPlaylists = removeID(user.FollowedPlaylists, id)
			user.UpdatedAt = now
			updatedData.Users[userID] = user
		}
	}

	if err := s.persistDataset(updatedData); err != nil {
		return err
	}

	s.data = updatedData

	return nil
}

// AddPlaylistSongs appends the given songs in request order. Ids that do not
// resolve to a song and ids already present are skipped rather than
// rejected, so a partially stale request still lands the valid additions.
func (s *Storage) AddPlaylistSongs(id string, songIDs []string) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	playlist, ok := updatedData.Playlists[id]
	if !ok {
		return models.Playlist{}, NotFoundError("playlist not found")
	}
	if len(songIDs) == 0 {
		return models.Playlist{}, InvalidInputError("songIds are required")
	}

	changed := false
	for _, songID := range songIDs {
		trimmed := strings.TrimSpace(songID)
		if trimmed == "" {
			continue
		}
		if _, ok := updatedData.Songs[trimmed]; !ok {
			continue
		}
		if containsID(playlist.Songs, trimmed) {
			continue
		}
		playlist.Songs = append(playlist.Songs, trimmed)
		changed = true
	}

	if !changed {
		return playlist, nil
	}

	playlist.UpdatedAt = time.Now().UTC()
	updatedData.Playlists[id] = playlist
	if err := s.persistDataset(updatedData); err != nil {
		return models.Playlist{}, err
	}

	s.data = updatedData

	return playlist, nil
}

// RemovePlaylistSong removes one song; the song must currently be listed.
func (s *Storage) RemovePlaylistSong(id, songID string) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	playlist, ok := updatedData.Playlists[id]
	if !ok {
		return models.Playlist{}, NotFoundError("playlist not found")
	}
	if !containsID(playlist.Songs, songID) {
		return models.Playlist{}, InvalidStateError("song is not in the playlist")
	}

	playlist.Songs = removeID(playlist.Songs, songID)
	playlist.UpdatedAt = time.Now().UTC()
	updatedData.Playlists[id] = playlist
	if err := s.persistDataset(updatedData); err != nil {
		return models.Playlist{}, err
	}

	s.data = updatedData

	return playlist, nil
}

// AddCollaborator grants a user edit access to the playlist.
func (s *Storage) AddCollaborator(playlistID, userID string) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	playlist, ok := updatedData.Playlists[playlistID]
	if !ok {
		return models.Playlist{}, NotFoundError("playlist not found")
	}
	if _, ok := updatedData.Users[userID]; !ok {
		return models.Playlist{}, NotFoundError("user not found")
	}
	if playlist.CreatorID == userID {
		return models.Playlist{}, InvalidStateError("creator cannot be added as a collaborator")
	}
	if containsID(playlist.Collaborators, userID) {
		return models.Playlist{}, InvalidStateError("user is already a collaborator")
	}

	playlist.Collaborators = append(playlist.Collaborators, userID)
	playlist.UpdatedAt = time.Now().UTC()
	updatedData.Playlists[playlistID] = playlist
	if err := s.persistDataset(updatedData); err != nil {
		return models.Playlist{}, err
	}

	s.data = updatedData

	return playlist, nil
}

// RemoveCollaborator revokes edit access; the user must currently be a
// collaborator.
func (s *Storage) RemoveCollaborator(playlistID, userID string) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	playlist, ok := updatedData.Playlists[playlistID]
	if !ok {
		return models.Playlist{}, NotFoundError("playlist not found")
	}
	if !containsID(playlist.Collaborators, userID) {
		return models.Playlist{}, InvalidStateError("user is not a collaborator")
	}

	playlist.Collaborators = removeID(playlist.Collaborators, userID)
	playlist.UpdatedAt = time.Now().UTC()
	updatedData.Playlists[playlistID] = playlist
	if err := s.persistDataset(updatedData); err != nil {
		return models.Playlist{}, err
	}

	s.data = updatedData

	return playlist, nil
}
