package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"Playly/core/ingest"
	"Playly/logger"
)

// maxUploadBytes caps the total multipart body size for a song batch.
const maxUploadBytes = 200 << 20

// UploadSongsHandler ingests a batch of audio files. Admin only.
func (h *APIHandler) UploadSongsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	source := r.FormValue("source")
	headers := r.MultipartForm.File["files"]

	files := make([]ingest.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			respondMessage(w, http.StatusBadRequest, "Failed to read uploaded file")
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			respondMessage(w, http.StatusBadRequest, "Failed to read uploaded file")
			return
		}
		files = append(files, ingest.UploadFile{
			Name:     fh.Filename,
			MIMEType: fh.Header.Get("Content-Type"),
			Data:     data,
		})
	}

	songs, err := h.pipeline.Ingest(r.Context(), userID, source, files)
	if err != nil {
		respondError(w, err)
		return
	}

	logger.Info("Song batch ingested",
		logger.Int64("userID", userID),
		logger.Int("count", len(songs)))
	respondJSON(w, http.StatusCreated, songs)
}

// GetSongsHandler lists the full catalog, newest first.
func (h *APIHandler) GetSongsHandler(w http.ResponseWriter, r *http.Request) {
	songs, err := h.songRepo.GetAllSongs(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, songs)
}

// GetSongHandler returns a single song by ID.
func (h *APIHandler) GetSongHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid song ID")
		return
	}

	song, err := h.songRepo.GetSongByID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	if song == nil {
		respondMessage(w, http.StatusNotFound, "Song not found")
		return
	}
	respondJSON(w, http.StatusOK, song)
}

// TrendingHandler returns the top slice of ready songs by play count.
func (h *APIHandler) TrendingHandler(w http.ResponseWriter, r *http.Request) {
	songs, err := h.ranker.Trending(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, songs)
}

// PlayCountHandler records a playback and returns the updated song.
func (h *APIHandler) PlayCountHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid song ID")
		return
	}

	song, err := h.songRepo.IncrementPlayCount(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, song)
}

// DownloadCountHandler records a download and returns the updated song.
func (h *APIHandler) DownloadCountHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid song ID")
		return
	}

	song, err := h.songRepo.IncrementDownloadCount(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, song)
}

func pathID(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[key], 10, 64)
}
