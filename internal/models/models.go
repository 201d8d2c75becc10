package models

import (
	"time"
)

// Default artwork served when an entity is created without an image upload.
const (
	DefaultProfilePicture = "https://cdn.harmonia.dev/static/default-avatar.png"
	DefaultArtistImage    = "https://cdn.harmonia.dev/static/default-artist.png"
	DefaultCoverImage     = "https://cdn.harmonia.dev/static/default-cover.png"
)

type User struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"`
	ProfilePicture    string    `json:"profilePicture"`
	IsAdmin           bool      `json:"isAdmin"`
	LikedSongs        []string  `json:"likedSongs"`
	LikedAlbums       []string  `json:"likedAlbums"`
	FollowedArtists   []string  `json:"followedArtists"`
	FollowedPlaylists []string  `json:"followedPlaylists"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type Artist struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Bio        string    `json:"bio"`
	Image      string    `json:"image"`
	Genres     []string  `json:"genres"`
	Followers  int       `json:"followers"`
	Albums     []string  `json:"albums"`
	Songs      []string  `json:"songs"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type Album struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	ArtistID    string    `json:"artist"`
	ReleaseDate time.Time `json:"releaseDate"`
	CoverImage  string    `json:"coverImage"`
	Songs       []string  `json:"songs"`
	Genre       string    `json:"genre,omitempty"`
	Likes       int       `json:"likes"`
	Description string    `json:"description,omitempty"`
	IsExplicit  bool      `json:"isExplicit"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Song struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	ArtistID        string    `json:"artist"`
	AlbumID         *string   `json:"album,omitempty"`
	DurationSeconds int       `json:"duration"`
	AudioURL        string    `json:"audioUrl"`
	CoverImage      string    `json:"coverImage"`
	Genre           string    `json:"genre,omitempty"`
	Plays           int       `json:"plays"`
	Likes           int       `json:"likes"`
	FeaturedArtists []string  `json:"featuredArtists"`
	IsExplicit      bool      `json:"isExplicit"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type Playlist struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	CoverImage    string    `json:"coverImage"`
	CreatorID     string    `json:"creator"`
	Songs         []string  `json:"songs"`
	IsPublic      bool      `json:"isPublic"`
	Followers     int       `json:"followers"`
	Collaborators []string  `json:"collaborators"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// CanEdit reports whether the user may manage the playlist's songs and
// metadata. Visibility and collaborator management remain creator-only.
func (p Playlist) CanEdit(userID string) bool {
	if p.CreatorID == userID {
		return true
	}
	return containsID(p.Collaborators, userID)
}

// IsCollaborator reports whether the user is listed as a collaborator.
func (p Playlist) IsCollaborator(userID string) bool {
	return containsID(p.Collaborators, userID)
}

// CanView reports whether the user may read the playlist.
func (p Playlist) CanView(userID string, isAdmin bool) bool {
	if p.IsPublic || isAdmin {
		return true
	}
	return p.CanEdit(userID)
}

func containsID(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
