package model

import "time"

// Playlist is a named collection of song references owned by one user.
// SongIDs are soft references into the catalog: an id may dangle after the
// referenced song disappears, and resolution simply drops it.
type Playlist struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Title     string    `json:"title"`
	SongIDs   []int64   `json:"songIds"` // insertion order
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Contains reports whether songID is a member of the playlist.
func (p *Playlist) Contains(songID int64) bool {
	for _, id := range p.SongIDs {
		if id == songID {
			return true
		}
	}
	return false
}

// ToggleAction describes the outcome of a membership toggle.
type ToggleAction string

const (
	ToggleAdded   ToggleAction = "added"
	ToggleRemoved ToggleAction = "removed"
)
