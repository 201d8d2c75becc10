package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"harmonia/internal/storage"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"message": err.Error(), "status": "error"})
}

// WriteError is an exported helper for returning JSON API errors.
func WriteError(w http.ResponseWriter, status int, err error) {
	writeError(w, status, err)
}

// writeStorageError maps the storage error taxonomy onto HTTP statuses.
func writeStorageError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid credentials"))
		return
	}
	switch storage.KindOf(err) {
	case storage.KindNotFound:
		writeError(w, http.StatusNotFound, err)
	case storage.KindForbidden:
		writeError(w, http.StatusForbidden, err)
	case storage.KindUnauthorized:
		writeError(w, http.StatusUnauthorized, err)
	case storage.KindInvalidInput, storage.KindInvalidState, storage.KindConflict:
		writeError(w, http.StatusBadRequest, err)
	case storage.KindUpstream:
		writeError(w, http.StatusBadGateway, err)
	case storage.KindPartialFailure:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeError(w, http.StatusInternalServerError, fmt.Errorf("internal server error"))
	}
}

func decodeJSON(r *http.Request, dest interface{}) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}
