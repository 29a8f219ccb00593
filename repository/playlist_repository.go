package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"Playly/apperr"
	"Playly/model"
)

// PlaylistRepository defines the interface for playlist data operations.
// Every lookup is scoped by the owning user id: a playlist id supplied by a
// caller is never trusted on its own.
type PlaylistRepository interface {
	CreatePlaylist(ctx context.Context, userID int64, title string) (*model.Playlist, error)
	GetPlaylists(ctx context.Context, userID int64) ([]*model.Playlist, error)
	GetPlaylist(ctx context.Context, userID, playlistID int64) (*model.Playlist, error)
	RenamePlaylist(ctx context.Context, userID, playlistID int64, title string) (*model.Playlist, error)
	ToggleSong(ctx context.Context, userID, playlistID, songID int64) (*model.Playlist, model.ToggleAction, error)
	DeletePlaylist(ctx context.Context, userID, playlistID int64) error
}

// mysqlPlaylistRepository implements PlaylistRepository for MySQL.
//
// Membership lives in its own relation with a UNIQUE (playlist_id, song_id)
// key, so toggles are row-level operations rather than a read-modify-write
// over a whole aggregate. Two concurrent toggles serialize at the store.
type mysqlPlaylistRepository struct {
	db *sql.DB
}

// NewMySQLPlaylistRepository creates a new mysqlPlaylistRepository.
func NewMySQLPlaylistRepository(db *sql.DB) PlaylistRepository {
	return &mysqlPlaylistRepository{db: db}
}

// CreatePlaylist appends a new empty playlist to the user's collection and
// returns exactly the entry just created.
func (r *mysqlPlaylistRepository) CreatePlaylist(ctx context.Context, userID int64, title string) (*model.Playlist, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.Validation("playlist title is required")
	}

	now := time.Now()
	query := `INSERT INTO playlists (user_id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, userID, title, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to execute CreatePlaylist: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert ID for CreatePlaylist: %w", err)
	}

	return &model.Playlist{
		ID:        id,
		UserID:    userID,
		Title:     title,
		SongIDs:   []int64{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetPlaylists returns the user's playlists with their membership ids. A
// user with no playlists gets an empty slice, not an error.
func (r *mysqlPlaylistRepository) GetPlaylists(ctx context.Context, userID int64) ([]*model.Playlist, error) {
	query := `SELECT id, user_id, title, created_at, updated_at FROM playlists
	           WHERE user_id = ? ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists for user %d: %w", userID, err)
	}
	defer rows.Close()

	playlists := make([]*model.Playlist, 0)
	for rows.Next() {
		p := &model.Playlist{SongIDs: []int64{}}
		if err := rows.Scan(&p.ID, &p.UserID, &p.Title, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan playlist in GetPlaylists: %w", err)
		}
		playlists = append(playlists, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetPlaylists: %w", err)
	}

	for _, p := range playlists {
		ids, err := r.memberIDs(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		p.SongIDs = ids
	}
	return playlists, nil
}

// GetPlaylist returns one playlist owned by the user, with membership ids.
func (r *mysqlPlaylistRepository) GetPlaylist(ctx context.Context, userID, playlistID int64) (*model.Playlist, error) {
	query := `SELECT id, user_id, title, created_at, updated_at FROM playlists
	           WHERE id = ? AND user_id = ?`
	p := &model.Playlist{}
	err := r.db.QueryRowContext(ctx, query, playlistID, userID).
		Scan(&p.ID, &p.UserID, &p.Title, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.NotFound("playlist", playlistID)
		}
		return nil, fmt.Errorf("failed to scan playlist %d: %w", playlistID, err)
	}

	ids, err := r.memberIDs(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.SongIDs = ids
	return p, nil
}

// RenamePlaylist sets a new title on an existing playlist.
func (r *mysqlPlaylistRepository) RenamePlaylist(ctx context.Context, userID, playlistID int64, title string) (*model.Playlist, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.Validation("playlist title is required")
	}

	// Existence is checked separately: a no-op rename reports zero affected
	// rows on MySQL, which would otherwise be indistinguishable from a
	// missing playlist.
	if _, err := r.GetPlaylist(ctx, userID, playlistID); err != nil {
		return nil, err
	}

	query := `UPDATE playlists SET title = ?, updated_at = ? WHERE id = ? AND user_id = ?`
	if _, err := r.db.ExecContext(ctx, query, title, time.Now(), playlistID, userID); err != nil {
		return nil, fmt.Errorf("failed to execute RenamePlaylist for playlist %d: %w", playlistID, err)
	}

	return r.GetPlaylist(ctx, userID, playlistID)
}

// ToggleSong removes songID from the playlist when present, adds it when
// absent. The delete-then-insert sequence is atomic per row; the unique key
// on (playlist_id, song_id) makes a duplicate insert from a concurrent
// toggle a no-op instead of a double entry.
func (r *mysqlPlaylistRepository) ToggleSong(ctx context.Context, userID, playlistID, songID int64) (*model.Playlist, model.ToggleAction, error) {
	if _, err := r.GetPlaylist(ctx, userID, playlistID); err != nil {
		return nil, "", err
	}

	del := `DELETE FROM playlist_songs WHERE playlist_id = ? AND song_id = ?`
	res, err := r.db.ExecContext(ctx, del, playlistID, songID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to execute toggle delete for playlist %d: %w", playlistID, err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get affected rows for toggle on playlist %d: %w", playlistID, err)
	}

	action := model.ToggleRemoved
	if removed == 0 {
		ins := `INSERT IGNORE INTO playlist_songs (playlist_id, song_id, created_at) VALUES (?, ?, ?)`
		if _, err := r.db.ExecContext(ctx, ins, playlistID, songID, time.Now()); err != nil {
			return nil, "", fmt.Errorf("failed to execute toggle insert for playlist %d: %w", playlistID, err)
		}
		action = model.ToggleAdded
	}

	updated, err := r.GetPlaylist(ctx, userID, playlistID)
	if err != nil {
		return nil, "", err
	}
	return updated, action, nil
}

// DeletePlaylist removes one playlist from the user's collection. The
// membership rows cascade with it.
func (r *mysqlPlaylistRepository) DeletePlaylist(ctx context.Context, userID, playlistID int64) error {
	query := `DELETE FROM playlists WHERE id = ? AND user_id = ?`
	res, err := r.db.ExecContext(ctx, query, playlistID, userID)
	if err != nil {
		return fmt.Errorf("failed to execute DeletePlaylist for playlist %d: %w", playlistID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows for DeletePlaylist: %w", err)
	}
	if rows == 0 {
		return apperr.NotFound("playlist", playlistID)
	}
	return nil
}

// memberIDs returns a playlist's song ids in insertion order.
func (r *mysqlPlaylistRepository) memberIDs(ctx context.Context, playlistID int64) ([]int64, error) {
	query := `SELECT song_id FROM playlist_songs WHERE playlist_id = ? ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query members for playlist %d: %w", playlistID, err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan member id for playlist %d: %w", playlistID, err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for playlist %d members: %w", playlistID, err)
	}
	return ids, nil
}
