package server

import (
	"encoding/json"
	"net/http"

	"Playly/apperr"
	"Playly/logger"
)

// respondJSON writes a JSON body with the given status.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Error("Failed to encode response", logger.ErrorField(err))
		}
	}
}

// respondMessage writes a {"message": ...} JSON body.
func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

// respondError maps a classified error to its HTTP status. Storage errors
// are logged with their cause and surfaced as a generic message.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case apperr.IsValidation(err):
		respondMessage(w, http.StatusBadRequest, err.Error())
	case apperr.IsNotFound(err):
		respondMessage(w, http.StatusNotFound, err.Error())
	case apperr.IsStorage(err):
		logger.Error("Storage operation failed", logger.ErrorField(err))
		respondMessage(w, http.StatusInternalServerError, "Server error")
	default:
		logger.Error("Unclassified failure", logger.ErrorField(err))
		respondMessage(w, http.StatusInternalServerError, "Server error")
	}
}
