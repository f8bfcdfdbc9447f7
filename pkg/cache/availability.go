package cache

import (
	"sort"

	"github.com/rs/zerolog"
)

// CacheRef points at one cached asset.
type CacheRef struct {
	Namespace Namespace
	Filename  string
}

// AvailabilityChecker decides whether every asset of an ad unit is cached.
type AvailabilityChecker struct {
	store  *Store
	logger zerolog.Logger
}

// NewAvailabilityChecker creates a checker backed by store.
func NewAvailabilityChecker(store *Store, logger zerolog.Logger) *AvailabilityChecker {
	return &AvailabilityChecker{
		store:  store,
		logger: logger.With().Str("component", "availability").Logger(),
	}
}

// AllCached returns true iff every referenced asset exists and is non-empty.
func (c *AvailabilityChecker) AllCached(refs map[string]CacheRef) bool {
	_, missing := c.FirstMissing(refs)
	return !missing
}

// FirstMissing checks assets in name order and stops at the first one that
// is missing or empty, returning its name.
func (c *AvailabilityChecker) FirstMissing(refs map[string]CacheRef) (string, bool) {
	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ref := refs[name]
		if c.store.Exists(ref.Namespace, ref.Filename) {
			continue
		}
		c.logger.Warn().
			Str("asset", name).
			Str("namespace", ref.Namespace.Dir()).
			Str("file", ref.Filename).
			Msg("Asset not cached")
		AvailabilityChecks.WithLabelValues("missing").Inc()
		return name, true
	}

	AvailabilityChecks.WithLabelValues("ready").Inc()
	return "", false
}
