package server

import (
	"encoding/json"
	"net/http"

	"Playly/logger"
	"Playly/model"
)

type playlistTitleRequest struct {
	Title string `json:"title"`
}

type toggleSongResponse struct {
	Action   model.ToggleAction `json:"action"`
	Playlist *model.Playlist    `json:"playlist"`
}

// GetPlaylistsHandler lists the authenticated user's playlists.
func (h *APIHandler) GetPlaylistsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	playlists, err := h.playlistRepo.GetPlaylists(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, playlists)
}

// GetPlaylistTracksHandler resolves a playlist's member IDs to songs.
// Members that no longer exist or are not yet ready are skipped.
func (h *APIHandler) GetPlaylistTracksHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	playlistID, err := pathID(r, "id")
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid playlist ID")
		return
	}

	playlist, err := h.playlistRepo.GetPlaylist(r.Context(), userID, playlistID)
	if err != nil {
		respondError(w, err)
		return
	}

	byID, err := h.songRepo.GetSongsByIDs(r.Context(), playlist.SongIDs)
	if err != nil {
		respondError(w, err)
		return
	}

	tracks := make([]*model.Song, 0, len(playlist.SongIDs))
	for _, id := range playlist.SongIDs {
		song, found := byID[id]
		if !found || song.Status != model.SongStatusReady {
			continue
		}
		tracks = append(tracks, song)
	}
	respondJSON(w, http.StatusOK, tracks)
}

// CreatePlaylistHandler creates an empty playlist for the authenticated user.
func (h *APIHandler) CreatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req playlistTitleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	playlist, err := h.playlistRepo.CreatePlaylist(r.Context(), userID, req.Title)
	if err != nil {
		respondError(w, err)
		return
	}

	logger.Info("Playlist created",
		logger.Int64("userID", userID),
		logger.Int64("playlistID", playlist.ID))
	respondJSON(w, http.StatusCreated, playlist)
}

// RenamePlaylistHandler updates a playlist's title.
func (h *APIHandler) RenamePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	playlistID, err := pathID(r, "id")
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid playlist ID")
		return
	}

	var req playlistTitleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	playlist, err := h.playlistRepo.RenamePlaylist(r.Context(), userID, playlistID, req.Title)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, playlist)
}

// ToggleSongHandler adds the song to the playlist if absent, removes it if
// present, and reports which happened.
func (h *APIHandler) ToggleSongHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	playlistID, err := pathID(r, "id")
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid playlist ID")
		return
	}
	songID, err := pathID(r, "songId")
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid song ID")
		return
	}

	playlist, action, err := h.playlistRepo.ToggleSong(r.Context(), userID, playlistID, songID)
	if err != nil {
		respondError(w, err)
		return
	}

	logger.Info("Playlist membership toggled",
		logger.Int64("playlistID", playlistID),
		logger.Int64("songID", songID),
		logger.String("action", string(action)))
	respondJSON(w, http.StatusOK, toggleSongResponse{Action: action, Playlist: playlist})
}

// DeletePlaylistHandler deletes a playlist and its memberships.
func (h *APIHandler) DeletePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	playlistID, err := pathID(r, "id")
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid playlist ID")
		return
	}

	if err := h.playlistRepo.DeletePlaylist(r.Context(), userID, playlistID); err != nil {
		respondError(w, err)
		return
	}

	logger.Info("Playlist deleted",
		logger.Int64("userID", userID),
		logger.Int64("playlistID", playlistID))
	respondMessage(w, http.StatusOK, "Playlist deleted")
}
