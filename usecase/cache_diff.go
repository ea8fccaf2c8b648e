package usecase

import (
	"sort"

	"channel-insight/domain/model"
)

// DiffResult partitions a fresh listing against the cached snapshot
type DiffResult struct {
	// NewIDs are fresh ids absent from the cache, in listing order
	NewIDs []string
	// KnownIDs are fresh ids already cached, in listing order
	KnownIDs []string
	// MergedFromCache holds every cached video in snapshot order. Cache-only
	// ids are retained.
	MergedFromCache []model.Video
}

type CacheDiffEngine struct{}

func NewCacheDiffEngine() *CacheDiffEngine {
	return &CacheDiffEngine{}
}

// Diff expects cached in snapshot order (see SortSnapshot). Duplicate fresh
// ids are reported once.
func (e *CacheDiffEngine) Diff(freshIDs []string, cached []model.CacheSnapshotEntry) DiffResult {
	cachedIDs := make(map[string]struct{}, len(cached))
	result := DiffResult{MergedFromCache: make([]model.Video, 0, len(cached))}
	for _, entry := range cached {
		if _, dup := cachedIDs[entry.ItemID]; dup {
			continue
		}
		cachedIDs[entry.ItemID] = struct{}{}
		video := entry.Video
		video.ID = entry.ItemID
		result.MergedFromCache = append(result.MergedFromCache, video)
	}

	seen := make(map[string]struct{}, len(freshIDs))
	for _, id := range freshIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := cachedIDs[id]; ok {
			result.KnownIDs = append(result.KnownIDs, id)
		} else {
			result.NewIDs = append(result.NewIDs, id)
		}
	}
	return result
}

// Merge puts fresh videos first, then cached videos in their given order,
// and truncates to ceiling (ceiling <= 0 means unbounded). On an id present
// in both, the fresh video wins.
func (e *CacheDiffEngine) Merge(fresh, fromCache []model.Video, ceiling int) []model.Video {
	merged := make([]model.Video, 0, len(fresh)+len(fromCache))
	seen := make(map[string]struct{}, len(fresh)+len(fromCache))
	for _, group := range [][]model.Video{fresh, fromCache} {
		for _, v := range group {
			if _, dup := seen[v.ID]; dup {
				continue
			}
			seen[v.ID] = struct{}{}
			merged = append(merged, v)
		}
	}
	if ceiling > 0 && len(merged) > ceiling {
		merged = merged[:ceiling]
	}
	return merged
}

// SortSnapshot orders entries by LastUpdated desc, then Position asc
func SortSnapshot(entries []model.CacheSnapshotEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].LastUpdated.Equal(entries[j].LastUpdated) {
			return entries[i].LastUpdated.After(entries[j].LastUpdated)
		}
		return entries[i].Position < entries[j].Position
	})
}
