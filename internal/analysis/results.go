package analysis

import (
	"sort"
	"sync"
)

// Results holds the derived collections the periodic jobs produce. Each job
// replaces its whole collection on a successful cycle; readers always see
// either the previous complete result set or the new one, never a mix.
type Results struct {
	mu            sync.RWMutex
	paths         []*ConversionPath
	dropOffs      []*DropOffAnalysis
	optimizations []*JourneyOptimization
}

// NewResults creates an empty result store.
func NewResults() *Results {
	return &Results{}
}

// ReplaceConversionPaths overwrites the mined path collection, sorted by
// frequency descending.
func (r *Results) ReplaceConversionPaths(paths []*ConversionPath) {
	sorted := append([]*ConversionPath(nil), paths...)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].Frequency > sorted[b].Frequency
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = sorted
}

// ReplaceDropOffs overwrites the drop-off collection, sorted by impact score
// descending.
func (r *Results) ReplaceDropOffs(analyses []*DropOffAnalysis) {
	sorted := append([]*DropOffAnalysis(nil), analyses...)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].ImpactScore > sorted[b].ImpactScore
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropOffs = sorted
}

// ReplaceOptimizations overwrites the optimization collection, sorted by
// projected conversion increase descending. No history is retained.
func (r *Results) ReplaceOptimizations(opts []*JourneyOptimization) {
	sorted := append([]*JourneyOptimization(nil), opts...)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].Projected.ConversionIncrease > sorted[b].Projected.ConversionIncrease
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	r.optimizations = sorted
}

// TopConversionPaths returns up to limit paths by frequency descending.
// limit <= 0 returns everything. The returned slice is a copy owned by the
// caller.
func (r *Results) TopConversionPaths(limit int) []*ConversionPath {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*ConversionPath(nil), r.paths[:capLimit(len(r.paths), limit)]...)
}

// TopDropOffs returns up to limit analyses by impact score descending.
func (r *Results) TopDropOffs(limit int) []*DropOffAnalysis {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*DropOffAnalysis(nil), r.dropOffs[:capLimit(len(r.dropOffs), limit)]...)
}

// TopOptimizations returns up to limit optimizations by projected conversion
// increase descending.
func (r *Results) TopOptimizations(limit int) []*JourneyOptimization {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*JourneyOptimization(nil), r.optimizations[:capLimit(len(r.optimizations), limit)]...)
}

// Counts returns the sizes of the three collections.
func (r *Results) Counts() (paths, dropOffs, optimizations int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.paths), len(r.dropOffs), len(r.optimizations)
}

func capLimit(size, limit int) int {
	if limit <= 0 || limit > size {
		return size
	}
	return limit
}
