package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"harmonia/internal/models"
)

type dataset struct {
	Users     map[string]models.User     `json:"users"`
	Artists   map[string]models.Artist   `json:"artists"`
	Albums    map[string]models.Album    `json:"albums"`
	Songs     map[string]models.Song     `json:"songs"`
	Playlists map[string]models.Playlist `json:"playlists"`
}

// Storage is the JSON document store. Every mutation takes the write lock
// and persists a full snapshot before it becomes visible, so multi-document
// updates (reference mirrors, toggle counter/set pairs, cascades) commit or
// roll back as one unit.
type Storage struct {
	mu       sync.RWMutex
	filePath string
	data     dataset
	// persistOverride allows tests to intercept persist operations.
	persistOverride func(dataset) error
}

func NewStorage(path string) (*Storage, error) {
	store := &Storage{filePath: path}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Storage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	file, err := os.Open(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		s.data = newDataset()
		return nil
	} else if err != nil {
		return fmt.Errorf("open store file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&s.data); err != nil {
		if errors.Is(err, io.EOF) {
			s.data = newDataset()
			return nil
		}
		return fmt.Errorf("decode store file: %w", err)
	}

	s.ensureDatasetInitializedLocked()

	return nil
}

func newDataset() dataset {
	return dataset{
		Users:     make(map[string]models.User),
		Artists:   make(map[string]models.Artist),
		Albums:    make(map[string]models.Album),
		Songs:     make(map[string]models.Song),
		Playlists: make(map[string]models.Playlist),
	}
}

func (s *Storage) ensureDatasetInitializedLocked() {
	if s.data.Users == nil {
		s.data.Users = make(map[string]models.User)
	}
	if s.data.Artists == nil {
		s.data.Artists = make(map[string]models.Artist)
	}
	if s.data.Albums == nil {
		s.data.Albums = make(map[string]models.Album)
	}
	if s.data.Songs == nil {
		s.data.Songs = make(map[string]models.Song)
	}
	if s.data.Playlists == nil {
		s.data.Playlists = make(map[string]models.Playlist)
	}
}

func (s *Storage) persist() error {
	return s.persistDataset(s.data)
}

func (s *Storage) persistDataset(data dataset) error {
	if s.persistOverride != nil {
		if err := s.persistOverride(data); err != nil {
			return err
		}
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "store-*.json")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpPath := tmpFile.Name()
	success := false
	defer func() {
		if !success {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	encoder := json.NewEncoder(tmpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("flush store file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp store file: %w", err)
	}

	if err := os.Rename(tmpPath, s.filePath); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	success = true
	return nil
}

func cloneDataset(src dataset) dataset {
	clone := dataset{}

	if src.Users != nil {
		clone.Users = make(map[string]models.User, len(src.Users))
		for id, user := range src.Users {
			cloned := user
			cloned.LikedSongs = cloneIDs(user.LikedSongs)
			cloned.LikedAlbums = cloneIDs(user.LikedAlbums)
			cloned.FollowedArtists = cloneIDs(user.FollowedArtists)
			cloned.FollowedPlaylists = cloneIDs(user.FollowedPlaylists)
			clone.Users[id] = cloned
		}
	}

	if src.Artists != nil {
		clone.Artists = make(map[string]models.Artist, len(src.Artists))
		for id, artist := range src.Artists {
			cloned := artist
			cloned.Genres = cloneIDs(artist.Genres)
			cloned.Albums = cloneIDs(artist.Albums)
			cloned.Songs = cloneIDs(artist.Songs)
			clone.Artists[id] = cloned
		}
	}

	if src.Albums != nil {
		clone.Albums = make(map[string]models.Album, len(src.Albums))
		for id, album := range src.Albums {
			cloned := album
			cloned.Songs = cloneIDs(album.Songs)
			clone.Albums[id] = cloned
		}
	}

	if src.Songs != nil {
		clone.Songs = make(map[string]models.Song, len(src.Songs))
		for id, song := range src.Songs {
			cloned := song
			cloned.FeaturedArtists = cloneIDs(song.FeaturedArtists)
			if song.AlbumID != nil {
				albumID := *song.AlbumID
				cloned.AlbumID = &albumID
			}
			clone.Songs[id] = cloned
		}
	}

	if src.Playlists != nil {
		clone.Playlists = make(map[string]models.Playlist, len(src.Playlists))
		for id, playlist := range src.Playlists {
			cloned := playlist
			cloned.Songs = cloneIDs(playlist.Songs)
			cloned.Collaborators = cloneIDs(playlist.Collaborators)
			clone.Playlists[id] = cloned
		}
	}

	return clone
}

func cloneIDs(ids []string) []string {
	if ids == nil {
		return nil
	}
	return append([]string(nil), ids...)
}

func (s *Storage) generateID() string {
	return uuid.NewString()
}

func containsID(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) []string {
	filtered := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing == id {
			continue
		}
		filtered = append(filtered, existing)
	}
	return filtered
}

func decrementCounter(n int) int {
	if n <= 0 {
		return 0
	}
	return n - 1
}
