// Package trending derives the popularity-ranked subset of the catalog.
package trending

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"Playly/apperr"
	"Playly/logger"
	"Playly/model"
	"Playly/repository"

	"github.com/redis/go-redis/v9"
)

// cutoffRatio is the percentile of the catalog returned by Trending.
const cutoffRatio = 0.35

const (
	cacheKey = "trending:songs"
	cacheTTL = 60 * time.Second
)

// Ranker computes the trending subset, with a short-lived Redis cache in
// front of the ranked read. The cache is optional: a nil client disables it.
type Ranker struct {
	songs repository.SongRepository
	cache *redis.Client
}

// NewRanker creates a trending ranker.
func NewRanker(songs repository.SongRepository, cache *redis.Client) *Ranker {
	return &Ranker{songs: songs, cache: cache}
}

// CutoffCount returns how many songs the ranker yields for a catalog of the
// given size: ceil(total * 0.35), 0 for an empty catalog.
func CutoffCount(total int64) int64 {
	if total <= 0 {
		return 0
	}
	return int64(math.Ceil(float64(total) * cutoffRatio))
}

// Trending returns the top percentile of ready songs by play count. An
// empty catalog yields an empty slice, not an error.
func (r *Ranker) Trending(ctx context.Context) ([]*model.Song, error) {
	if cached, ok := r.fromCache(ctx); ok {
		return cached, nil
	}

	total, err := r.songs.CountReadySongs(ctx)
	if err != nil {
		return nil, apperr.Storage("count songs", err)
	}

	limit := CutoffCount(total)
	if limit == 0 {
		return []*model.Song{}, nil
	}

	songs, err := r.songs.ListTrending(ctx, limit)
	if err != nil {
		return nil, apperr.Storage("list trending songs", err)
	}

	r.toCache(ctx, songs)
	return songs, nil
}

func (r *Ranker) fromCache(ctx context.Context) ([]*model.Song, bool) {
	if r.cache == nil {
		return nil, false
	}

	payload, err := r.cache.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("Trending cache read failed", logger.ErrorField(err))
		}
		return nil, false
	}

	var songs []*model.Song
	if err := json.Unmarshal(payload, &songs); err != nil {
		logger.Warn("Trending cache payload invalid", logger.ErrorField(err))
		return nil, false
	}
	return songs, true
}

func (r *Ranker) toCache(ctx context.Context, songs []*model.Song) {
	if r.cache == nil {
		return
	}

	payload, err := json.Marshal(songs)
	if err != nil {
		logger.Warn("Failed to marshal trending songs for cache", logger.ErrorField(err))
		return
	}
	if err := r.cache.Set(ctx, cacheKey, payload, cacheTTL).Err(); err != nil {
		logger.Warn("Trending cache write failed", logger.ErrorField(err))
	}
}
