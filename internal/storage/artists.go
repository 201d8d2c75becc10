package storage

import (
	"sort"
	"strings"
	"time"

	"harmonia/internal/models"
)

type CreateArtistParams struct {
	Name   string
	Bio    string
	Genres []string
	Image  string
}

func (s *Storage) CreateArtist(params CreateArtistParams) (models.Artist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := strings.TrimSpace(params.Name)
	bio := strings.TrimSpace(params.Bio)
	genres := normalizeGenres(params.Genres)
	if name == "" || bio == "" || len(genres) == 0 {
		return models.Artist{}, InvalidInputError("name, bio and genres are required")
	}
	for _, artist := range s.data.Artists {
		if strings.EqualFold(artist.Name, name) {
			return models.Artist{}, ConflictError("artist already exists")
		}
	}

	image := strings.TrimSpace(params.Image)
	if image == "" {
		image = models.DefaultArtistImage
	}

	id := s.generateID()
	now := time.Now().UTC()
	artist := models.Artist{
		ID:         id,
		Name:       name,
		Bio:        bio,
		Image:      image,
		Genres:     genres,
		Albums:     []string{},
		Songs:      []string{},
		IsVerified: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	s.data.Artists[id] = artist
	if err := s.persist(); err != nil {
		delete(s.data.Artists, id)
		return models.Artist{}, err
	}

	return artist, nil
}

func normalizeGenres(input []string) []string {
	genres := make([]string, 0, len(input))
	for _, genre := range input {
		trimmed := strings.TrimSpace(genre)
		if trimmed == "" {
			continue
		}
		genres = append(genres, trimmed)
	}
	return genres
}

func (s *Storage) GetArtist(id string) (models.Artist, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	artist, ok := s.data.Artists[id]
	return artist, ok
}

// ArtistFilter narrows and paginates the artist listing.
type ArtistFilter struct {
	Genre  string
	Search string
	Page   Page
}

// ArtistPage is one page of the artist listing ordered by follower count.
type ArtistPage struct {
	Artists []models.Artist
	Page    int
	Pages   int
	Total   int
}

func (s *Storage) ListArtists(filter ArtistFilter) (ArtistPage, error) {
	page, err := filter.Page.normalized()
	if err != nil {
		return ArtistPage{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]models.Artist, 0, len(s.data.Artists))
	for _, artist := range s.data.Artists {
		if filter.Genre != "" && !artistHasGenre(artist, filter.Genre) {
			continue
		}
		if !matchesSearch(filter.Search, artist.Name, artist.Bio) {
			continue
		}
		matched = append(matched, artist)
	}
	sortArtistsByFollowers(matched)

	window, pages := paginate(matched, page)
	return ArtistPage{Artists: window, Page: page.Number, Pages: pages, Total: len(matched)}, nil
}

// TopArtists returns the most followed artists, capped at limit.
func (s *Storage) TopArtists(limit int) []models.Artist {
	s.mu.RLock()
	defer s.mu.RUnlock()

	artists := make([]models.Artist, 0, len(s.data.Artists))
	for _, artist := range s.data.Artists {
		artists = append(artists, artist)
	}
	sortArtistsByFollowers(artists)
	if limit > 0 && len(artists) > limit {
		artists = artists[:limit]
	}
	return artists
}

// ArtistTopSongs returns the artist's songs ordered by play count.
func (s *Storage) ArtistTopSongs(artistID string, limit int) ([]models.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Artists[artistID]; !ok {
		return nil, NotFoundError("artist not found")
	}

	songs := make([]models.Song, 0)
	for _, song := range s.data.Songs {
		if song.ArtistID == artistID {
			songs = append(songs, song)
		}
	}
	sort.Slice(songs, func(i, j int) bool {
		if songs[i].Plays != songs[j].Plays {
			return songs[i].Plays > songs[j].Plays
		}
		return songs[i].ID < songs[j].ID
	})
	if limit > 0 && len(songs) > limit {
		songs = songs[:limit]
	}
	return songs, nil
}

func artistHasGenre(artist models.Artist, genre string) bool {
	for _, existing := range artist.Genres {
		if strings.EqualFold(existing, genre) {
			return true
		}
	}
	return false
}

func sortArtistsByFollowers(artists []models.Artist) {
	sort.Slice(artists, func(i, j int) bool {
		if artists[i].Followers != artists[j].Followers {
			return artists[i].Followers > artists[j].Followers
		}
		return artists[i].ID < artists[j].ID
	})
}

// ArtistUpdate represents mutable artist fields; nil pointers leave the
// current value untouched.
type ArtistUpdate struct {
	Name       *string
	Bio        *string
	Genres     *[]string
	Image      *string
	IsVerified *bool
}

func (s *Storage) UpdateArtist(id string, update ArtistUpdate) (models.Artist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	artist, ok := updatedData.Artists[id]
	if !ok {
		return models.Artist{}, NotFoundError("artist not found")
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return models.Artist{}, InvalidInputError("name cannot be empty")
		}
		for existingID, existing := range updatedData.Artists {
			if existingID == id {
				continue
			}
			if strings.EqualFold(existing.Name, name) {
				return models.Artist{}, ConflictError("artist already exists")
			}
		}
		artist.Name = name
	}
	if update.Bio != nil {
		bio := strings.TrimSpace(*update.Bio)
		if bio == "" {
			return models.Artist{}, InvalidInputError("bio cannot be empty")
		}
		artist.Bio = bio
	}
	if update.Genres != nil {
		genres := normalizeGenres(*update.Genres)
		if len(genres) == 0 {
			return models.Artist{}, InvalidInputError("genres cannot be empty")
		}
		artist.Genres = genres
	}
	if update.Image != nil {
		if image := strings.TrimSpace(*update.Image); image != "" {
			artist.Image = image
		}
	}
	if update.IsVerified != nil {
		artist.IsVerified = *update.IsVerified
	}

	artist.UpdatedAt = time.Now().UTC()
	updatedData.Artists[id] = artist
	if err := s.persistDataset(updatedData); err != nil {
		return models.Artist{}, err
	}

	s.data = updatedData

	return artist, nil
}

// DeleteArtist removes the artist together with every song and album it
// owns, then scrubs the dangling ids from playlists and user libraries.
func (s *Storage) DeleteArtist(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	if _, ok := updatedData.Artists[id]; !ok {
		return NotFoundError("artist not found")
	}

	removedSongs := make(map[string]struct{})
	for songID, song := range updatedData.Songs {
		if song.ArtistID == id {
			delete(updatedData.Songs, songID)
			removedSongs[songID] = struct{}{}
		}
	}

	removedAlbums := make(map[string]struct{})
	for albumID, album := range updatedData.Albums {
		if album.ArtistID == id {
			delete(updatedData.Albums, albumID)
			removedAlbums[albumID] = struct{}{}
		}
	}

	// Songs by other artists may reference a deleted album.
	now := time.Now().UTC()
	for songID, song := range updatedData.Songs {
		if song.AlbumID == nil {
			continue
		}
		if _, gone := removedAlbums[*song.AlbumID]; gone {
			song.AlbumID = nil
			song.UpdatedAt = now
			updatedData.Songs[songID] = song
		}
	}

	delete(updatedData.Artists, id)

	scrubRemovedSongs(updatedData, removedSongs, now)
	for userID, user := range updatedData.Users {
		changed := false
		if containsID(user.FollowedArtists, id) {
			user.FollowedArtists = removeID(user.FollowedArtists, id)
			changed = true
		}
		for albumID := range removedAlbums {
			if containsID(user.LikedAlbums, albumID) {
				user.LikedAlbums = removeID(user.LikedAlbums, albumID)
				changed = true
			}
		}
		if changed {
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

// scrubRemovedSongs drops deleted song ids from albums, playlists and
// liked sets.
func scrubRemovedSongs(data dataset, removed map[string]struct{}, now time.Time) {
	if len(removed) == 0 {
		return
	}
	for albumID, album := range data.Albums {
		filtered := album.Songs
		changed := false
		for songID := range removed {
			if containsID(filtered, songID) {
				filtered = removeID(filtered, songID)
				changed = true
			}
		}
		if changed {
			album.Songs = filtered
			album.UpdatedAt = now
			data.Albums[albumID] = album
		}
	}
	for playlistID, playlist := range data.Playlists {
		filtered := playlist.Songs
		changed := false
		for songID := range removed {
			if containsID(filtered, songID) {
				filtered = removeID(filtered, songID)
				changed = true
			}
		}
		if changed {
			playlist.Songs = filtered
			playlist.UpdatedAt = now
			data.Playlists[playlistID] = playlist
		}
	}
	for userID, user := range data.Users {
		filtered := user.LikedSongs
		changed := false
		for songID := range removed {
			if containsID(filtered, songID) {
				filtered = removeID(filtered, songID)
				changed = true
			}
		}
		if changed {
			user.LikedSongs = filtered
			user.UpdatedAt = now
			data.Users[userID] = user
		}
	}
}
