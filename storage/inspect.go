package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

// ObjectInfo describes one stored object for bucket inspection.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// BucketStats aggregates size and count per top-level prefix.
type BucketStats struct {
	TotalObjects int
	TotalSize    int64
	ByPrefix     map[string]int64
}

// ListObjects lists objects under prefix and collects bucket statistics.
// Used by the minio CLI command to inspect what the catalog references.
func (s *Store) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, *BucketStats, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	stats := &BucketStats{ByPrefix: make(map[string]int64)}
	var objects []ObjectInfo

	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}

		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
		})

		stats.TotalObjects++
		stats.TotalSize += object.Size

		top := object.Key
		if idx := strings.Index(top, "/"); idx >= 0 {
			top = top[:idx]
		}
		stats.ByPrefix[top] += object.Size
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, stats, nil
}

// FormatSize renders a byte count for CLI output.
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
