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

// SongRepository defines the interface for catalog data operations.
type SongRepository interface {
	CreateSong(ctx context.Context, song *model.Song) (int64, error)
	GetSongByID(ctx context.Context, id int64) (*model.Song, error)
	GetSongsByIDs(ctx context.Context, ids []int64) (map[int64]*model.Song, error)
	GetAllSongs(ctx context.Context) ([]*model.Song, error)
	CountReadySongs(ctx context.Context) (int64, error)
	ListTrending(ctx context.Context, limit int64) ([]*model.Song, error)
	SetSongReady(ctx context.Context, id int64, audioURL, coverURL string) error
	MarkSongFailed(ctx context.Context, id int64) error
	IncrementPlayCount(ctx context.Context, id int64) (*model.Song, error)
	IncrementDownloadCount(ctx context.Context, id int64) (*model.Song, error)
}

// mysqlSongRepository implements SongRepository for MySQL.
type mysqlSongRepository struct {
	db *sql.DB
}

// NewMySQLSongRepository creates a new mysqlSongRepository.
func NewMySQLSongRepository(db *sql.DB) SongRepository {
	return &mysqlSongRepository{db: db}
}

const songColumns = `id, user_id, source, audio_url, cover_url, title, artist, album, genre,
	duration, play_count, download_count, status, created_at, updated_at`

func scanSong(scanner interface{ Scan(...interface{}) error }) (*model.Song, error) {
	song := &model.Song{}
	var audioURL, coverURL sql.NullString
	err := scanner.Scan(&song.ID, &song.UserID, &song.Source, &audioURL, &coverURL,
		&song.Title, &song.Artist, &song.Album, &song.Genre, &song.Duration,
		&song.PlayCount, &song.DownloadCount, &song.Status, &song.CreatedAt, &song.UpdatedAt)
	if err != nil {
		return nil, err
	}
	song.AudioURL = audioURL.String
	song.CoverURL = coverURL.String
	return song, nil
}

// CreateSong adds a new catalog entry and returns its id. The entry starts
// in pending status with no audio URL; the ingestion pipeline patches it
// once the object upload completes.
func (r *mysqlSongRepository) CreateSong(ctx context.Context, song *model.Song) (int64, error) {
	query := `INSERT INTO songs (user_id, source, title, artist, album, genre, duration, status, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement for CreateSong: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	res, err := stmt.ExecContext(ctx, song.UserID, song.Source, song.Title, song.Artist,
		song.Album, song.Genre, song.Duration, model.SongStatusPending, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to execute CreateSong: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for CreateSong: %w", err)
	}
	return id, nil
}

// GetSongByID retrieves a song by its ID. Returns (nil, nil) when absent.
func (r *mysqlSongRepository) GetSongByID(ctx context.Context, id int64) (*model.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs WHERE id = ?`
	song, err := scanSong(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan song by ID %d: %w", id, err)
	}
	return song, nil
}

// GetSongsByIDs retrieves the songs with the given ids, keyed by id. Ids
// without a matching catalog row are simply absent from the result.
func (r *mysqlSongRepository) GetSongsByIDs(ctx context.Context, ids []int64) (map[int64]*model.Song, error) {
	result := make(map[int64]*model.Song, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := `SELECT ` + songColumns + ` FROM songs WHERE id IN (` + placeholders + `)`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan song in GetSongsByIDs: %w", err)
		}
		result[song.ID] = song
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetSongsByIDs: %w", err)
	}
	return result, nil
}

// GetAllSongs retrieves every catalog entry, newest first. Pending and
// failed entries are included so orphans stay discoverable.
func (r *mysqlSongRepository) GetAllSongs(ctx context.Context) ([]*model.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	songs := make([]*model.Song, 0)
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan song in GetAllSongs: %w", err)
		}
		songs = append(songs, song)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetAllSongs: %w", err)
	}
	return songs, nil
}

// CountReadySongs returns the number of playable catalog entries.
func (r *mysqlSongRepository) CountReadySongs(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM songs WHERE status = ?`, model.SongStatusReady).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count songs: %w", err)
	}
	return count, nil
}

// ListTrending returns up to limit ready songs ordered by descending play
// count. The ascending id tiebreak keeps the order deterministic.
func (r *mysqlSongRepository) ListTrending(ctx context.Context, limit int64) ([]*model.Song, error) {
	if limit <= 0 {
		return []*model.Song{}, nil
	}

	query := `SELECT ` + songColumns + ` FROM songs WHERE status = ?
	           ORDER BY play_count DESC, id ASC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, model.SongStatusReady, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trending songs: %w", err)
	}
	defer rows.Close()

	songs := make([]*model.Song, 0, limit)
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan song in ListTrending: %w", err)
		}
		songs = append(songs, song)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in ListTrending: %w", err)
	}
	return songs, nil
}

// SetSongReady patches the resolved object URLs onto a song and marks it ready.
func (r *mysqlSongRepository) SetSongReady(ctx context.Context, id int64, audioURL, coverURL string) error {
	var cover sql.NullString
	if coverURL != "" {
		cover = sql.NullString{String: coverURL, Valid: true}
	}

	query := `UPDATE songs SET audio_url = ?, cover_url = ?, status = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, audioURL, cover, model.SongStatusReady, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to execute SetSongReady for song ID %d: %w", id, err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return apperr.NotFound("song", id)
	}
	return nil
}

// MarkSongFailed flags a song whose upload step did not complete. The row
// is kept as an orphan record rather than rolled back.
func (r *mysqlSongRepository) MarkSongFailed(ctx context.Context, id int64) error {
	query := `UPDATE songs SET status = ?, updated_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, model.SongStatusFailed, time.Now(), id); err != nil {
		return fmt.Errorf("failed to execute MarkSongFailed for song ID %d: %w", id, err)
	}
	return nil
}

// IncrementPlayCount atomically bumps a song's play counter and returns the
// updated song.
func (r *mysqlSongRepository) IncrementPlayCount(ctx context.Context, id int64) (*model.Song, error) {
	return r.incrementCounter(ctx, id, "play_count")
}

// IncrementDownloadCount atomically bumps a song's download counter and
// returns the updated song.
func (r *mysqlSongRepository) IncrementDownloadCount(ctx context.Context, id int64) (*model.Song, error) {
	return r.incrementCounter(ctx, id, "download_count")
}

func (r *mysqlSongRepository) incrementCounter(ctx context.Context, id int64, column string) (*model.Song, error) {
	// Single-statement arithmetic update: safe under concurrent increments.
	query := fmt.Sprintf(`UPDATE songs SET %s = %s + 1, updated_at = ? WHERE id = ?`, column, column)
	res, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to increment %s for song ID %d: %w", column, id, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows for song ID %d: %w", id, err)
	}
	if rows == 0 {
		return nil, apperr.NotFound("song", id)
	}

	song, err := r.GetSongByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if song == nil {
		return nil, apperr.NotFound("song", id)
	}
	return song, nil
}
