package model

import "time"

// Song status values. A song starts as pending when its catalog row is
// created, becomes ready once its audio object is uploaded and the row is
// patched with the resolved URL, and is marked failed when an upload step
// errors out. Only ready songs are surfaced to playback-facing reads.
const (
	SongStatusPending = "pending"
	SongStatusReady   = "ready"
	SongStatusFailed  = "failed"
)

// Sentinel defaults for tags absent from the uploaded file's metadata.
const (
	UnknownTitle  = "Unknown Title"
	UnknownArtist = "Unknown Artist"
	UnknownAlbum  = "Unknown Album"
	UnknownGenre  = "Unknown Genre"
)

// Song represents a catalog entry in the shared song library.
type Song struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"userId"`
	Source        string    `json:"source"`
	AudioURL      string    `json:"audioUrl,omitempty"` // empty until the object upload completes
	CoverURL      string    `json:"coverUrl,omitempty"`
	Title         string    `json:"title"`
	Artist        string    `json:"artist"`
	Album         string    `json:"album"`
	Genre         string    `json:"genre"`
	Duration      float64   `json:"duration"` // seconds
	PlayCount     int64     `json:"playCount"`
	DownloadCount int64     `json:"downloadCount"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
