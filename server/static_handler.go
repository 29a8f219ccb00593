package server

import (
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"Playly/logger"
)

// StaticHandler proxies object store content under /static/. The object
// path is everything after the prefix, e.g. /static/songs/7/audio.mp3.
func (h *APIHandler) StaticHandler(w http.ResponseWriter, r *http.Request) {
	objectPath := strings.TrimPrefix(r.URL.Path, "/static/")
	if objectPath == "" || strings.Contains(objectPath, "..") {
		respondMessage(w, http.StatusBadRequest, "Invalid object path")
		return
	}

	object, err := h.store.Open(r.Context(), objectPath)
	if err != nil {
		logger.Warn("Failed to open object", logger.String("path", objectPath), logger.ErrorField(err))
		respondMessage(w, http.StatusNotFound, "Object not found")
		return
	}
	defer object.Close()

	if contentType := mime.TypeByExtension(path.Ext(objectPath)); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Cache-Control", "public, max-age=86400")

	if _, err := io.Copy(w, object); err != nil {
		// The MinIO object reader surfaces missing keys on first read,
		// so a 404-worthy error can land here after headers are sent.
		logger.Warn("Failed to stream object", logger.String("path", objectPath), logger.ErrorField(err))
	}
}
