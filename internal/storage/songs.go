package storage

import (
	"sort"
	"strings"
	"time"

	"harmonia/internal/models"
)

type CreateSongParams struct {
	Title           string
	ArtistID        string
	AlbumID         *string
	DurationSeconds int
	AudioURL        string
	CoverImage      string
	Genre           string
	FeaturedArtists []string
	IsExplicit      bool
}

func (s *Storage) CreateSong(params CreateSongParams) (models.Song, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	title := strings.TrimSpace(params.Title)
	if title == "" {
		return models.Song{}, InvalidInputError("title is required")
	}
	if params.DurationSeconds <= 0 {
		return models.Song{}, InvalidInputError("duration must be a positive number of seconds")
	}
	audioURL := strings.TrimSpace(params.AudioURL)
	if audioURL == "" {
		return models.Song{}, InvalidInputError("audioUrl is required")
	}

	updatedData := cloneDataset(s.data)

	artist, ok := updatedData.Artists[params.ArtistID]
	if !ok {
		return models.Song{}, NotFoundError("artist not found")
	}

	featured := make([]string, 0, len(params.FeaturedArtists))
	for _, featuredID := range params.FeaturedArtists {
		trimmed := strings.TrimSpace(featuredID)
		if trimmed == "" {
			continue
		}
		if _, ok := updatedData.Artists[trimmed]; !ok {
			return models.Song{}, NotFoundError("featured artist not found")
		}
		if !containsID(featured, trimmed) {
			featured = append(featured, trimmed)
		}
	}

	cover := strings.TrimSpace(params.CoverImage)
	if cover == "" {
		cover = models.DefaultCoverImage
	}

	id := s.generateID()
	now := time.Now().UTC()
	song := models.Song{
		ID:              id,
		Title:           title,
		ArtistID:        artist.ID,
		DurationSeconds: params.DurationSeconds,
		AudioURL:        audioURL,
		CoverImage:      cover,
		Genre:           strings.TrimSpace(params.Genre),
		FeaturedArtists: featured,
		IsExplicit:      params.IsExplicit,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if params.AlbumID != nil && strings.TrimSpace(*params.AlbumID) != "" {
		albumID := strings.TrimSpace(*params.AlbumID)
		album, ok := updatedData.Albums[albumID]
		if !ok {
			return models.Song{}, NotFoundError("album not found")
		}
		song.AlbumID = &albumID
		album.Songs = append(album.Songs, id)
		album.UpdatedAt = now
		updatedData.Albums[albumID] = album
	}

	updatedData.Songs[id] = song
	artist.Songs = append(artist.Songs, id)
	artist.UpdatedAt = now
	updatedData.Artists[artist.ID] = artist

	if err := s.persistDataset(updatedData); err != nil {
		return models.Song{}, err
	}

	s.data = updatedData

	return song, nil
}

func (s *Storage) GetSong(id string) (models.Song, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	song, ok := s.data.Songs[id]
	return song, ok
}

// RecordPlay bumps the play counter. Reads are the hot path, so the bump is
// persisted with the simple insert idiom rather than a full clone.
func (s *Storage) RecordPlay(id string) (models.Song, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	song, ok := s.data.Songs[id]
	if !ok {
		return models.Song{}, NotFoundError("song not found")
	}

	previous := song
	song.Plays++
	s.data.Songs[id] = song
	if err := s.persist(); err != nil {
		s.data.Songs[id] = previous
		return models.Song{}, err
	}

	return song, nil
}

// SongFilter narrows and paginates the song listing.
type SongFilter struct {
	Genre    string
	ArtistID string
	AlbumID  string
	Search   string
	Page     Page
}

// SongPage is one page of the song listing ordered by recency.
type SongPage struct {
	Songs []models.Song
	Page  int
	Pages int
	Total int
}

func (s *Storage) ListSongs(filter SongFilter) (SongPage, error) {
	page, err := filter.Page.normalized()
	if err != nil {
		return SongPage{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]models.Song, 0, len(s.data.Songs))
	for _, song := range s.data.Songs {
		if filter.Genre != "" && !strings.EqualFold(song.Genre, filter.Genre) {
			continue
		}
		if filter.ArtistID != "" && song.ArtistID != filter.ArtistID {
			continue
		}
		if filter.AlbumID != "" && (song.AlbumID == nil || *song.AlbumID != filter.AlbumID) {
			continue
		}
		if !matchesSearch(filter.Search, song.Title) {
			continue
		}
		matched = append(matched, song)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	window, pages := paginate(matched, page)
	return SongPage{Songs: window, Page: page.Number, Pages: pages, Total: len(matched)}, nil
}

// TopSongs returns the most played songs, capped at limit.
func (s *Storage) TopSongs(limit int) []models.Song {
	s.mu.RLock()
	defer s.mu.RUnlock()

	songs := make([]models.Song, 0, len(s.data.Songs))
	for _, song := range s.data.Songs {
		songs = append(songs, song)
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
	return songs
}

// SongUpdate represents mutable song fields; nil pointers leave the current
// value untouched.
type SongUpdate struct {
	Title           *string
	AlbumID         *string
	DurationSeconds *int
	AudioURL        *string
	CoverImage      *string
	Genre           *string
	FeaturedArtists *[]string
	IsExplicit      *bool
}

func (s *Storage) UpdateSong(id string, update SongUpdate) (models.Song, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	song, ok := updatedData.Songs[id]
	if !ok {
		return models.Song{}, NotFoundError("song not found")
	}

	now := time.Now().UTC()

	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return models.Song{}, InvalidInputError("title cannot be empty")
		}
		song.Title = title
	}
	if update.DurationSeconds != nil {
		if *update.DurationSeconds <= 0 {
			return models.Song{}, InvalidInputError("duration must be a positive number of seconds")
		}
		song.DurationSeconds = *update.DurationSeconds
	}
	if update.AudioURL != nil {
		if audioURL := strings.TrimSpace(*update.AudioURL); audioURL != "" {
			song.AudioURL = audioURL
		}
	}
	if update.CoverImage != nil {
		if cover := strings.TrimSpace(*update.CoverImage); cover != "" {
			song.CoverImage = cover
		}
	}
	if update.Genre != nil {
		song.Genre = strings.TrimSpace(*update.Genre)
	}
	if update.IsExplicit != nil {
		song.IsExplicit = *update.IsExplicit
	}
	if update.FeaturedArtists != nil {
		featured := make([]string, 0, len(*update.FeaturedArtists))
		for _, featuredID := range *update.FeaturedArtists {
			trimmed := strings.TrimSpace(featuredID)
			if trimmed == "" {
				continue
			}
			if _, ok := updatedData.Artists[trimmed]; !ok {
				return models.Song{}, NotFoundError("featured artist not found")
			}
			if !containsID(featured, trimmed) {
				featured = append(featured, trimmed)
			}
		}
		song.FeaturedArtists = featured
	}

	if update.AlbumID != nil {
		next := strings.TrimSpace(*update.AlbumID)
		current := ""
		if song.AlbumID != nil {
			current = *song.AlbumID
		}
		if next != current {
			if current != "" {
				if album, ok := updatedData.Albums[current]; ok {
					album.Songs = removeID(album.Songs, id)
					album.UpdatedAt = now
					updatedData.Albums[current] = album
				}
			}
			if next == "" {
				song.AlbumID = nil
			} else {
				album, ok := updatedData.Albums[next]
				if !ok {
					return models.Song{}, NotFoundError("album not found")
				}
				if !containsID(album.Songs, id) {
					album.Songs = append(album.Songs, id)
				}
				album.UpdatedAt = now
				updatedData.Albums[next] = album
				song.AlbumID = &next
			}
		}
	}

	song.UpdatedAt = now
	updatedData.Songs[id] = song
	if err := s.persistDataset(updatedData); err != nil {
		return models.Song{}, err
	}

	s.data = updatedData

	return song, nil
}

// DeleteSong removes the song and every reference held by artists, albums,
// playlists and liked collections.
func (s *Storage) DeleteSong(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	song, ok := updatedData.Songs[id]
	if !ok {
		return NotFoundError("song not found")
	}

	delete(updatedData.Songs, id)

	now := time.Now().UTC()
	if artist, ok := updatedData.Artists[song.ArtistID]; ok {
		if containsID(artist.Songs, id) {
			artist.Songs = removeID(artist.Songs, id)
			artist.UpdatedAt = now
			updatedData.Artists[artist.ID] = artist
		}
	}

	scrubRemovedSongs(updatedData, map[string]struct{}{id: {}}, now)

	if err := s.persistDataset(updatedData); err != nil {
		return err
	}

	s.data = updatedData

	return nil
}
