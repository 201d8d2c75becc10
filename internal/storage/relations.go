package storage

import (
	"time"

	"harmonia/internal/models"
)

// ToggleResult reports the direction a toggle resolved to and the user
// document after the flip.
type ToggleResult struct {
	Added bool
	User  models.User
}

// Toggles flip membership in one of the user's relation sets and move the
// matching counter on the target document in the same snapshot, so the pair
// can never drift apart. The store mutex serializes concurrent toggles on
// the same user/object pair.

func (s *Storage) ToggleLikeSong(userID, songID string) (ToggleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	user, ok := updatedData.Users[userID]
	if !ok {
		return ToggleResult{}, NotFoundError("user not found")
	}
	song, ok := updatedData.Songs[songID]
	if !ok {
		return ToggleResult{}, NotFoundError("song not found")
	}

	now := time.Now().UTC()
	var added bool
	if containsID(user.LikedSongs, songID) {
		user.LikedSongs = removeID(user.LikedSongs, songID)
		song.Likes = decrementCounter(song.Likes)
	} else {
		user.LikedSongs = append(user.LikedSongs, songID)
		song.Likes++
		added = true
	}
	user.UpdatedAt = now
	song.UpdatedAt = now
	updatedData.Users[userID] = user
	updatedData.Songs[songID] = song

	if err := s.persistDataset(updatedData); err != nil {
		return ToggleResult{}, err
	}

	s.data = updatedData

	return ToggleResult{Added: added, User: user}, nil
}

func (s *Storage) ToggleLikeAlbum(userID, albumID string) (ToggleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	user, ok := updatedData.Users[userID]
	if !ok {
		return ToggleResult{}, NotFoundError("user not found")
	}
	album, ok := updatedData.Albums[albumID]
	if !ok {
		return ToggleResult{}, NotFoundError("album not found")
	}

	now := time.Now().UTC()
	var added bool
	if containsID(user.LikedAlbums, albumID) {
		user.LikedAlbums = removeID(user.LikedAlbums, albumID)
		album.Likes = decrementCounter(album.Likes)
	} else {
		user.LikedAlbums = append(user.LikedAlbums, albumID)
		album.Likes++
		added = true
	}
	user.UpdatedAt = now
	album.UpdatedAt = now
	updatedData.Users[userID] = user
	updatedData.Albums[albumID] = album

	if err := s.persistDataset(updatedData); err != nil {
		return ToggleResult{}, err
	}

	s.data = updatedData

	return ToggleResult{Added: added, User: user}, nil
}

func (s *Storage) ToggleFollowArtist(userID, artistID string) (ToggleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	user, ok := updatedData.Users[userID]
	if !ok {
		return ToggleResult{}, NotFoundError("user not found")
	}
	artist, ok := updatedData.Artists[artistID]
	if !ok {
		return ToggleResult{}, NotFoundError("artist not found")
	}

	now := time.Now().UTC()
	var added bool
	if containsID(user.FollowedArtists, artistID) {
		user.FollowedArtists = removeID(user.FollowedArtists, artistID)
		artist.Followers = decrementCounter(artist.Followers)
	} else {
		user.FollowedArtists = append(user.FollowedArtists, artistID)
		artist.Followers++
		added = true
	}
	user.UpdatedAt = now
	artist.UpdatedAt = now
	updatedData.Users[userID] = user
	updatedData.Artists[artistID] = artist

	if err := s.persistDataset(updatedData); err != nil {
		return ToggleResult{}, err
	}

	s.data = updatedData

	return ToggleResult{Added: added, User: user}, nil
}

func (s *Storage) ToggleFollowPlaylist(userID, playlistID string) (ToggleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	user, ok := updatedData.Users[userID]
	if !ok {
		return ToggleResult{}, NotFoundError("user not found")
	}
	playlist, ok := updatedData.Playlists[playlistID]
	if !ok {
		return ToggleResult{}, NotFoundError("playlist not found")
	}

	now := time.Now().UTC()
	var added bool
	if containsID(user.FollowedPlaylists, playlistID) {
		user.FollowedPlaylists = removeID(user.FollowedPlaylists, playlistID)
		playlist.Followers = decrementCounter(playlist.Followers)
	} else {
		user.FollowedPlaylists = append(user.FollowedPlaylists, playlistID)
		playlist.Followers++
		added = true
	}
	user.UpdatedAt = now
	playlist.UpdatedAt = now
	updatedData.Users[userID] = user
	updatedData.Playlists[playlistID] = playlist

	if err := s.persistDataset(updatedData); err != nil {
		return ToggleResult{}, err
	}

	s.data = updatedData

	return ToggleResult{Added: added, User: user}, nil
}

// ReconcileRelationCounters recomputes every like/follower counter from the
// relation sets. Stores without snapshot semantics can interrupt a toggle
// between its two writes; running this at startup repairs the drift and
// reports it as a partial failure so operators can see it happened.
func (s *Storage) ReconcileRelationCounters() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	songLikes := make(map[string]int)
	albumLikes := make(map[string]int)
	artistFollows := make(map[string]int)
	playlistFollows := make(map[string]int)
	for _, user := range updatedData.Users {
		for _, id := range user.LikedSongs {
			songLikes[id]++
		}
		for _, id := range user.LikedAlbums {
			albumLikes[id]++
		}
		for _, id := range user.FollowedArtists {
			artistFollows[id]++
		}
		for _, id := range user.FollowedPlaylists {
			playlistFollows[id]++
		}
	}

	drifted := false
	for id, song := range updatedData.Songs {
		if song.Likes != songLikes[id] {
			song.Likes = songLikes[id]
			updatedData.Songs[id] = song
			drifted = true
		}
	}
	for id, album := range updatedData.Albums {
		if album.Likes != albumLikes[id] {
			album.Likes = albumLikes[id]
			updatedData.Albums[id] = album
			drifted = true
		}
	}
	for id, artist := range updatedData.Artists {
		if artist.Followers != artistFollows[id] {
			artist.Followers = artistFollows[id]
			updatedData.Artists[id] = artist
			drifted = true
		}
	}
	for id, playlist := range updatedData.Playlists {
		if playlist.Followers != playlistFollows[id] {
			playlist.Followers = playlistFollows[id]
			updatedData.Playlists[id] = playlist
			drifted = true
		}
	}

	if !drifted {
		return nil
	}

	if err := s.persistDataset(updatedData); err != nil {
		return err
	}
	s.data = updatedData

	return PartialFailureError("relation counters drifted from relation sets and were repaired", nil)
}
