package storage

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"harmonia/internal/models"
)

const (
	passwordHashSaltLength = 16
	passwordHashKeyLength  = 32
	passwordHashIterations = 120000

	passwordMinLength = 6
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type CreateUserParams struct {
	Name     string
	Email    string
	Password string
	IsAdmin  bool
}

func (s *Storage) CreateUser(params CreateUserParams) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalizedEmail := strings.TrimSpace(strings.ToLower(params.Email))
	if normalizedEmail == "" || !strings.Contains(normalizedEmail, "@") {
		return models.User{}, InvalidInputError("a valid email is required")
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return models.User{}, InvalidInputError("name is required")
	}
	if len(params.Password) < passwordMinLength {
		return models.User{}, InvalidInputError("password must be at least %d characters", passwordMinLength)
	}
	for _, user := range s.data.Users {
		if user.Email == normalizedEmail {
			return models.User{}, ConflictError("user already exists")
		}
	}

	hashed, err := hashPassword(params.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	id := s.generateID()
	now := time.Now().UTC()
	user := models.User{
		ID:                id,
		Name:              name,
		Email:             normalizedEmail,
		PasswordHash:      hashed,
		ProfilePicture:    models.DefaultProfilePicture,
		IsAdmin:           params.IsAdmin,
		LikedSongs:        []string{},
		LikedAlbums:       []string{},
		FollowedArtists:   []string{},
		FollowedPlaylists: []string{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	s.data.Users[id] = user
	if err := s.persist(); err != nil {
		delete(s.data.Users, id)
		return models.User{}, err
	}

	return user, nil
}

func (s *Storage) ListUsers() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.data.Users))
	for _, user := range s.data.Users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users
}

func (s *Storage) GetUser(id string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.data.Users[id]
	return user, ok
}

// FindUserByEmail looks up a user by their normalized email address.
func (s *Storage) FindUserByEmail(email string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	normalizedEmail := strings.TrimSpace(strings.ToLower(email))
	for _, user := range s.data.Users {
		if user.Email == normalizedEmail {
			return user, true
		}
	}
	return models.User{}, false
}

// AuthenticateUser verifies credentials and returns the matching user on success.
func (s *Storage) AuthenticateUser(email, password string) (models.User, error) {
	if password == "" {
		return models.User{}, InvalidInputError("password is required")
	}
	user, ok := s.FindUserByEmail(email)
	if !ok {
		return models.User{}, ErrInvalidCredentials
	}
	if err := verifyPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}
	return user, nil
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, passwordHashSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	derived := pbkdf2.Key([]byte(password), salt, passwordHashIterations, passwordHashKeyLength, sha256.New)
	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedKey := base64.RawStdEncoding.EncodeToString(derived)
	return fmt.Sprintf("pbkdf2$sha256$%d$%s$%s", passwordHashIterations, encodedSalt, encodedKey), nil
}

func verifyPassword(encodedHash, candidate string) error {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 5 {
		return fmt.Errorf("verify password: invalid hash format")
	}
	if parts[0] != "pbkdf2" || parts[1] != "sha256" {
		return fmt.Errorf("verify password: unsupported hash identifier")
	}
	iterations, err := strconv.Atoi(parts[2])
	if err != nil || iterations <= 0 {
		return fmt.Errorf("verify password: invalid iteration count")
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return fmt.Errorf("verify password: decode salt: %w", err)
	}
	storedKey, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("verify password: decode hash: %w", err)
	}
	derived := pbkdf2.Key([]byte(candidate), salt, iterations, len(storedKey), sha256.New)
	if len(derived) != len(storedKey) || subtle.ConstantTimeCompare(derived, storedKey) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}

// UserUpdate represents the profile fields a user may change.
type UserUpdate struct {
	Name           *string
	Email          *string
	ProfilePicture *string
}

// UpdateUser mutates profile metadata while enforcing email uniqueness.
func (s *Storage) UpdateUser(id string, update UserUpdate) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	user, ok := updatedData.Users[id]
	if !ok {
		return models.User{}, NotFoundError("user not found")
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return models.User{}, InvalidInputError("name cannot be empty")
		}
		user.Name = name
	}

	if update.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*update.Email))
		if email == "" || !strings.Contains(email, "@") {
			return models.User{}, InvalidInputError("a valid email is required")
		}
		for existingID, existing := range updatedData.Users {
			if existingID == user.ID {
				continue
			}
			if existing.Email == email {
				return models.User{}, ConflictError("email %s already in use", email)
			}
		}
		user.Email = email
	}

	if update.ProfilePicture != nil {
		if picture := strings.TrimSpace(*update.ProfilePicture); picture != "" {
			user.ProfilePicture = picture
		}
	}

	user.UpdatedAt = time.Now().UTC()
	updatedData.Users[id] = user
	if err := s.persistDataset(updatedData); err != nil {
		return models.User{}, err
	}

	s.data = updatedData

	return user, nil
}

// ChangePassword verifies the current password before storing a new hash.
func (s *Storage) ChangePassword(id, current, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.data.Users[id]
	if !ok {
		return NotFoundError("user not found")
	}
	if err := verifyPassword(user.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}
	if len(next) < passwordMinLength {
		return InvalidInputError("password must be at least %d characters", passwordMinLength)
	}

	hashed, err := hashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	updatedData := cloneDataset(s.data)
	user = updatedData.Users[id]
	user.PasswordHash = hashed
	user.UpdatedAt = time.Now().UTC()
	updatedData.Users[id] = user
	if err := s.persistDataset(updatedData); err != nil {
		return err
	}

	s.data = updatedData

	return nil
}

// DeleteUser removes the user, their playlists, and every reference held by
// other documents (collaborator slots, playlist follower counts).
func (s *Storage) DeleteUser(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	user, ok := updatedData.Users[id]
	if !ok {
		return NotFoundError("user not found")
	}

	delete(updatedData.Users, id)

	removedPlaylists := make(map[string]struct{})
	for playlistID, playlist := range updatedData.Playlists {
		if playlist.CreatorID == id {
			delete(updatedData.Playlists, playlistID)
			removedPlaylists[playlistID] = struct{}{}
			continue
		}
		if containsID(playlist.Collaborators, id) {
			playlist.Collaborators = removeID(playlist.Collaborators, id)
			playlist.UpdatedAt = time.Now().UTC()
			updatedData.Playlists[playlistID] = playlist
		}
	}

	// The departing user's toggles release their counter contributions.
	for _, artistID := range user.FollowedArtists {
		if artist, ok := updatedData.Artists[artistID]; ok {
			artist.Followers = decrementCounter(artist.Followers)
			updatedData.Artists[artistID] = artist
		}
	}
	for _, albumID := range user.LikedAlbums {
		if album, ok := updatedData.Albums[albumID]; ok {
			album.Likes = decrementCounter(album.Likes)
			updatedData.Albums[albumID] = album
		}
	}
	for _, songID := range user.LikedSongs {
		if song, ok := updatedData.Songs[songID]; ok {
			song.Likes = decrementCounter(song.Likes)
			updatedData.Songs[songID] = song
		}
	}
	for _, playlistID := range user.FollowedPlaylists {
		if playlist, ok := updatedData.Playlists[playlistID]; ok {
			playlist.Followers = decrementCounter(playlist.Followers)
			updatedData.Playlists[playlistID] = playlist
		}
	}

	for userID, other := range updatedData.Users {
		if userID == id {
			continue
		}
		filtered := other.FollowedPlaylists
		changed := false
		for playlistID := range removedPlaylists {
			if containsID(filtered, playlistID) {
				filtered = removeID(filtered, playlistID)
				changed = true
			}
		}
		if changed {
			other.FollowedPlaylists = filtered
			other.UpdatedAt = time.Now().UTC()
			updatedData.Users[userID] = other
		}
	}

	if err := s.persistDataset(updatedData); err != nil {
		return err
	}

	s.data = updatedData

	return nil
}
