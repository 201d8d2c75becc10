package storage

import (
	"sort"
	"strings"
	"time"

	"harmonia/internal/models"
)

const (
	albumTitleMinLength       = 3
	albumTitleMaxLength       = 100
	albumDescriptionMinLength = 10
	albumDescriptionMaxLength = 200
)

type CreateAlbumParams struct {
	Title       string
	ArtistID    string
	ReleaseDate time.Time
	Genre       string
	Description string
	CoverImage  string
	IsExplicit  bool
}

func (s *Storage) CreateAlbum(params CreateAlbumParams) (models.Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	title := strings.TrimSpace(params.Title)
	if len(title) < albumTitleMinLength || len(title) > albumTitleMaxLength {
		return models.Album{}, InvalidInputError("title must be between %d and %d characters", albumTitleMinLength, albumTitleMaxLength)
	}
	description := strings.TrimSpace(params.Description)
	if description != "" && (len(description) < albumDescriptionMinLength || len(description) > albumDescriptionMaxLength) {
		return models.Album{}, InvalidInputError("description must be between %d and %d characters", albumDescriptionMinLength, albumDescriptionMaxLength)
	}
	if params.ReleaseDate.IsZero() {
		return models.Album{}, InvalidInputError("releaseDate is required")
	}

	updatedData := cloneDataset(s.data)

	artist, ok := updatedData.Artists[params.ArtistID]
	if !ok {
		return models.Album{}, NotFoundError("artist not found")
	}

	cover := strings.TrimSpace(params.CoverImage)
	if cover == "" {
		cover = models.DefaultCoverImage
	}

	id := s.generateID()
	now := time.Now().UTC()
	album := models.Album{
		ID:          id,
		Title:       title,
		ArtistID:    artist.ID,
		ReleaseDate: params.ReleaseDate.UTC(),
		CoverImage:  cover,
		Songs:       []string{},
		Genre:       strings.TrimSpace(params.Genre),
		Description: description,
		IsExplicit:  params.IsExplicit,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	updatedData.Albums[id] = album
	artist.Albums = append(artist.Albums, id)
	artist.UpdatedAt = now
	updatedData.Artists[artist.ID] = artist

	if err := s.persistDataset(updatedData); err != nil {
		return models.Album{}, err
	}

	s.data = updatedData

	return album, nil
}

func (s *Storage) GetAlbum(id string) (models.Album, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	album, ok := s.data.Albums[id]
	return album, ok
}

// AlbumFilter narrows and paginates the album listing.
type AlbumFilter struct {
	Genre    string
	ArtistID string
	Search   string
	Page     Page
}

// AlbumPage is one page of the album listing ordered by release date.
type AlbumPage struct {
	Albums []models.Album
	Page   int
	Pages  int
	Total  int
}

func (s *Storage) ListAlbums(filter AlbumFilter) (AlbumPage, error) {
	page, err := filter.Page.normalized()
	if err != nil {
		return AlbumPage{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]models.Album, 0, len(s.data.Albums))
	for _, album := range s.data.Albums {
		if filter.Genre != "" && !strings.EqualFold(album.Genre, filter.Genre) {
			continue
		}
		if filter.ArtistID != "" && album.ArtistID != filter.ArtistID {
			continue
		}
		if !matchesSearch(filter.Search, album.Title, album.Description) {
			continue
		}
		matched = append(matched, album)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].ReleaseDate.Equal(matched[j].ReleaseDate) {
			return matched[i].ReleaseDate.After(matched[j].ReleaseDate)
		}
		return matched[i].ID < matched[j].ID
	})

	window, pages := paginate(matched, page)
	return AlbumPage{Albums: window, Page: page.Number, Pages: pages, Total: len(matched)}, nil
}

// NewReleases returns the most recently added albums, capped at limit.
func (s *Storage) NewReleases(limit int) []models.Album {
	s.mu.RLock()
	defer s.mu.RUnlock()

	albums := make([]models.Album, 0, len(s.data.Albums))
	for _, album := range s.data.Albums {
		albums = append(albums, album)
	}
	sort.Slice(albums, func(i, j int) bool {
		if !albums[i].CreatedAt.Equal(albums[j].CreatedAt) {
			return albums[i].CreatedAt.After(albums[j].CreatedAt)
		}
		return albums[i].ID < albums[j].ID
	})
	if limit > 0 && len(albums) > limit {
		albums = albums[:limit]
	}
	return albums
}

// AlbumUpdate represents mutable album fields; nil pointers leave the
// current value untouched.
type AlbumUpdate struct {
	Title       *string
	ReleaseDate *time.Time
	Genre       *string
	Description *string
	CoverImage  *string
	IsExplicit  *bool
}

func (s *Storage) UpdateAlbum(id string, update AlbumUpdate) (models.Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	album, ok := updatedData.Albums[id]
	if !ok {
		return models.Album{}, NotFoundError("album not found")
	}

	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if len(title) < albumTitleMinLength || len(title) > albumTitleMaxLength {
			return models.Album{}, InvalidInputError("title must be between %d and %d characters", albumTitleMinLength, albumTitleMaxLength)
		}
		album.Title = title
	}
	if update.ReleaseDate != nil {
		if update.ReleaseDate.IsZero() {
			return models.Album{}, InvalidInputError("releaseDate cannot be empty")
		}
		album.ReleaseDate = update.ReleaseDate.UTC()
	}
	if update.Genre != nil {
		album.Genre = strings.TrimSpace(*update.Genre)
	}
	if update.Description != nil {
		description := strings.TrimSpace(*update.Description)
		if description != "" && (len(description) < albumDescriptionMinLength || len(description) > albumDescriptionMaxLength) {
			return models.Album{}, InvalidInputError("description must be between %d and %d characters", albumDescriptionMinLength, albumDescriptionMaxLength)
		}
		album.Description = description
	}
	if update.CoverImage != nil {
		if cover := strings.TrimSpace(*update.CoverImage); cover != "" {
			album.CoverImage = cover
		}
	}
	if update.IsExplicit != nil {
		album.IsExplicit = *update.IsExplicit
	}

	album.UpdatedAt = time.Now().UTC()
	updatedData.Albums[id] = album
	if err := s.persistDataset(updatedData); err != nil {
		return models.Album{}, err
	}

	s.data = updatedData

	return album, nil
}

// DeleteAlbum detaches the album from its artist and songs and drops the
// album id from liked collections. Songs survive with the album reference
// cleared.
func (s *Storage) DeleteAlbum(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	album, ok := updatedData.Albums[id]
	if !ok {
		return NotFoundError("album not found")
	}

	delete(updatedData.Albums, id)

	now := time.Now().UTC()
	if artist, ok := updatedData.Artists[album.ArtistID]; ok {
		if containsID(artist.Albums, id) {
			artist.Albums = removeID(artist.Albums, id)
			artist.UpdatedAt = now
			updatedData.Artists[artist.ID] = artist
		}
	}

	for songID, song := range updatedData.Songs {
		if song.AlbumID != nil && *song.AlbumID == id {
			song.AlbumID = nil
			song.UpdatedAt = now
			updatedData.Songs[songID] = song
		}
	}

	for userID, user := range updatedData.Users {
		if containsID(user.LikedAlbums, id) {
			user.LikedAlbums = removeID(user.LikedAlbums, id)
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
