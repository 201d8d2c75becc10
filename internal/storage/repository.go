package storage

import (
	"harmonia/internal/models"
)

// Repository exposes the datastore operations required by API handlers.
type Repository interface {
	CreateUser(params CreateUserParams) (models.User, error)
	AuthenticateUser(email, password string) (models.User, error)
	ListUsers() []models.User
	GetUser(id string) (models.User, bool)
	FindUserByEmail(email string) (models.User, bool)
	UpdateUser(id string, update UserUpdate) (models.User, error)
	ChangePassword(id, current, next string) error
	DeleteUser(id string) error

	CreateArtist(params CreateArtistParams) (models.Artist, error)
	GetArtist(id string) (models.Artist, bool)
	ListArtists(filter ArtistFilter) (ArtistPage, error)
	TopArtists(limit int) []models.Artist
	ArtistTopSongs(artistID string, limit int) ([]models.Song, error)
	UpdateArtist(id string, update ArtistUpdate) (models.Artist, error)
	DeleteArtist(id string) error

	CreateAlbum(params CreateAlbumParams) (models.Album, error)
	GetAlbum(id string) (models.Album, bool)
	ListAlbums(filter AlbumFilter) (AlbumPage, error)
	NewReleases(limit int) []models.Album
	UpdateAlbum(id string, update AlbumUpdate) (models.Album, error)
	DeleteAlbum(id string) error

	CreateSong(params CreateSongParams) (models.Song, error)
	GetSong(id string) (models.Song, bool)
	RecordPlay(id string) (models.Song, error)
	ListSongs(filter SongFilter) (SongPage, error)
	TopSongs(limit int) []models.Song
	UpdateSong(id string, update SongUpdate) (models.Song, error)
	DeleteSong(id string) error

	CreatePlaylist(params CreatePlaylistParams) (models.Playlist, error)
	GetPlaylist(id string) (models.Playlist, bool)
	ListPlaylists(filter PlaylistFilter) (PlaylistPage, error)
	ListUserPlaylists(userID string) []models.Playlist
	UpdatePlaylist(id string, update PlaylistUpdate) (models.Playlist, error)
	DeletePlaylist(id string) error
	AddPlaylistSongs(id string, songIDs []string) (models.Playlist, error)
	RemovePlaylistSong(id, songID string) (models.Playlist, error)
	AddCollaborator(playlistID, userID string) (models.Playlist, error)
	RemoveCollaborator(playlistID, userID string) (models.Playlist, error)

	ToggleLikeSong(userID, songID string) (ToggleResult, error)
	ToggleLikeAlbum(userID, albumID string) (ToggleResult, error)
	ToggleFollowArtist(userID, artistID string) (ToggleResult, error)
	ToggleFollowPlaylist(userID, playlistID string) (ToggleResult, error)
	ReconcileRelationCounters() error
}

var _ Repository = (*Storage)(nil)
