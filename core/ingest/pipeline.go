// Package ingest turns uploaded audio files into durable catalog entries
// spanning the metadata store and the object store.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"Playly/apperr"
	"Playly/core/metadata"
	"Playly/logger"
	"Playly/model"
	"Playly/repository"
)

// ObjectStore is the object-storage surface the pipeline needs.
type ObjectStore interface {
	Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error)
}

// UploadFile is one raw file from an upload request.
type UploadFile struct {
	Name     string
	MIMEType string
	Data     []byte
}

// MaxBatchSize caps files per upload request.
const MaxBatchSize = 5

// allowedMIMETypes is the audio allow-list. Anything else rejects the
// whole batch before any side effect.
var allowedMIMETypes = map[string]string{
	"audio/mpeg": ".mp3",
	"audio/wav":  ".wav",
	"audio/ogg":  ".ogg",
	"audio/flac": ".flac",
	"audio/aac":  ".aac",
}

// Pipeline orchestrates metadata extraction, catalog writes and object
// uploads for song ingestion.
type Pipeline struct {
	songs repository.SongRepository
	store ObjectStore
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(songs repository.SongRepository, store ObjectStore) *Pipeline {
	return &Pipeline{songs: songs, store: store}
}

// Ingest validates the whole batch eagerly, then processes each file:
// extract tags, persist a pending catalog row to obtain a stable id, upload
// the audio (and embedded cover, if any) under that id, and patch the row
// with the resolved URLs.
//
// Validation failures happen before any write, so a rejected batch creates
// zero catalog entries. A failure after a row was created leaves that row
// behind as an orphan (status pending or failed, no audio URL); orphans are
// not rolled back or retried here.
func (p *Pipeline) Ingest(ctx context.Context, uploaderID int64, source string, files []UploadFile) ([]*model.Song, error) {
	if err := validateBatch(source, files); err != nil {
		return nil, err
	}

	songs := make([]*model.Song, 0, len(files))
	for _, file := range files {
		song, err := p.ingestOne(ctx, uploaderID, source, file)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}
	return songs, nil
}

func validateBatch(source string, files []UploadFile) error {
	if strings.TrimSpace(source) == "" {
		return apperr.Validation("source is required")
	}
	if len(files) == 0 {
		return apperr.Validation("at least one file is required")
	}
	if len(files) > MaxBatchSize {
		return apperr.Validation("at most %d files per upload", MaxBatchSize)
	}
	for _, file := range files {
		if len(file.Data) == 0 {
			return apperr.Validation("file %q is empty", file.Name)
		}
		if _, ok := allowedMIMETypes[file.MIMEType]; !ok {
			return apperr.Validation("invalid file type %q for %q: only audio files are allowed", file.MIMEType, file.Name)
		}
	}
	return nil
}

func (p *Pipeline) ingestOne(ctx context.Context, uploaderID int64, source string, file UploadFile) (*model.Song, error) {
	tags := metadata.Extract(file.Data, file.MIMEType)

	song := &model.Song{
		UserID:   uploaderID,
		Source:   source,
		Title:    tags.Title,
		Artist:   tags.Artist,
		Album:    tags.Album,
		Genre:    tags.Genre,
		Duration: tags.Duration,
		Status:   model.SongStatusPending,
	}

	id, err := p.songs.CreateSong(ctx, song)
	if err != nil {
		return nil, apperr.Storage("create song", err)
	}
	song.ID = id

	// The catalog id scopes the object path, so uploads never collide
	// across songs regardless of the original filename.
	audioURL, err := p.store.Upload(ctx, audioObjectPath(id, file), file.Data, file.MIMEType)
	if err != nil {
		logger.Error("Audio upload failed, leaving orphan record",
			logger.Int64("songId", id),
			logger.String("filename", file.Name),
			logger.ErrorField(err),
		)
		if markErr := p.songs.MarkSongFailed(ctx, id); markErr != nil {
			logger.Warn("Failed to mark orphan song", logger.Int64("songId", id), logger.ErrorField(markErr))
		}
		return nil, apperr.Storage("upload audio", err)
	}

	var coverURL string
	if tags.Cover != nil {
		coverPath := fmt.Sprintf("songs/%d/cover%s", id, tags.Cover.Ext)
		coverURL, err = p.store.Upload(ctx, coverPath, tags.Cover.Data, tags.Cover.MIMEType)
		if err != nil {
			// A missing cover doesn't make the song unplayable.
			logger.Warn("Cover upload failed, keeping song without cover",
				logger.Int64("songId", id),
				logger.ErrorField(err),
			)
			coverURL = ""
		}
	}

	if err := p.songs.SetSongReady(ctx, id, audioURL, coverURL); err != nil {
		logger.Error("Failed to patch song record after upload",
			logger.Int64("songId", id),
			logger.ErrorField(err),
		)
		return nil, apperr.Storage("patch song record", err)
	}

	song.AudioURL = audioURL
	song.CoverURL = coverURL
	song.Status = model.SongStatusReady

	logger.Info("Song ingested",
		logger.Int64("songId", id),
		logger.Int64("uploaderId", uploaderID),
		logger.String("title", song.Title),
		logger.String("source", source),
	)
	return song, nil
}

func audioObjectPath(id int64, file UploadFile) string {
	ext := filepath.Ext(file.Name)
	if ext == "" {
		ext = allowedMIMETypes[file.MIMEType]
	}
	return fmt.Sprintf("songs/%d/audio%s", id, ext)
}
