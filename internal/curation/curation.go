// Package curation partitions a display's catalog into Recommended, More and
// Legacy tiers and decides which modes are risky to switch to.
package curation

import (
	"cmp"
	"slices"

	"github.com/eliteGoblin/focusd/resmenu/internal/domain"
)

const (
	// RecommendedPoolSize is how many pool entries seed Recommended before
	// the current and native modes are backfilled.
	RecommendedPoolSize = 6

	// Legacy thresholds.
	legacyMinWidth      = 1280
	legacyMinHeight     = 800
	legacyNativePercent = 45
)

// Compare is the mode ranking: area desc, HiDPI first, refresh desc,
// platform identifier desc. It never returns 0 for distinct identifiers.
func Compare(a, b domain.DisplayMode) int {
	if c := cmp.Compare(b.Area(), a.Area()); c != 0 {
		return c
	}
	if a.HiDPI != b.HiDPI {
		if a.HiDPI {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(b.RefreshMilliHz, a.RefreshMilliHz); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

type resolutionKey struct {
	width, height int
	hidpi         bool
}

func keyOf(m domain.DisplayMode) resolutionKey {
	return resolutionKey{width: m.Width, height: m.Height, hidpi: m.HiDPI}
}

// Collapse keeps one representative per (width, height, HiDPI), the best by
// Compare, and returns them sorted by Compare.
func Collapse(modes []domain.DisplayMode) []domain.DisplayMode {
	sorted := slices.Clone(modes)
	slices.SortFunc(sorted, Compare)

	seen := make(map[resolutionKey]bool, len(sorted))
	out := make([]domain.DisplayMode, 0, len(sorted))
	for _, m := range sorted {
		k := keyOf(m)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, m)
	}
	return out
}

// Native returns the entry with the greatest physical pixel count; ties go
// to the higher refresh rate, then the higher identifier.
func Native(collapsed []domain.DisplayMode) (domain.DisplayMode, bool) {
	if len(collapsed) == 0 {
		return domain.DisplayMode{}, false
	}
	best := collapsed[0]
	for _, m := range collapsed[1:] {
		switch {
		case m.PixelArea() != best.PixelArea():
			if m.PixelArea() > best.PixelArea() {
				best = m
			}
		case m.RefreshMilliHz != best.RefreshMilliHz:
			if m.RefreshMilliHz > best.RefreshMilliHz {
				best = m
			}
		case m.ID > best.ID:
			best = m
		}
	}
	return best, true
}

// IsLegacyResolution applies the legacy predicate against the native mode.
// The 45% bound is strict: exactly 45% is not legacy.
func IsLegacyResolution(m, native domain.DisplayMode) bool {
	if m.Width < legacyMinWidth || m.Height < legacyMinHeight {
		return true
	}
	return m.Area()*100 < native.Area()*legacyNativePercent
}

// Curate builds the tiers for a display.
func Curate(d domain.Display) domain.Tiers {
	collapsed := Collapse(d.Modes)
	native, hasNative := Native(collapsed)

	pool := make([]domain.DisplayMode, 0, len(collapsed))
	for _, m := range collapsed {
		if m.HiDPI {
			pool = append(pool, m)
		}
	}
	if len(pool) == 0 {
		pool = collapsed
	}

	inRecommended := make(map[resolutionKey]bool)
	recommended := make([]domain.DisplayMode, 0, RecommendedPoolSize+2)
	add := func(m domain.DisplayMode) {
		k := keyOf(m)
		if inRecommended[k] {
			return
		}
		inRecommended[k] = true
		recommended = append(recommended, m)
	}

	for i := 0; i < len(pool) && i < RecommendedPoolSize; i++ {
		add(pool[i])
	}
	for _, m := range collapsed {
		if m.SameResolution(d.Current) {
			add(m)
			break
		}
	}
	if hasNative {
		add(native)
	}
	slices.SortFunc(recommended, Compare)

	tiers := domain.Tiers{
		Recommended: recommended,
		More:        []domain.DisplayMode{},
		Legacy:      []domain.DisplayMode{},
		Native:      native,
		HasNative:   hasNative,
	}
	for _, m := range collapsed {
		if inRecommended[keyOf(m)] {
			continue
		}
		if IsLegacyResolution(m, native) {
			tiers.Legacy = append(tiers.Legacy, m)
		} else {
			tiers.More = append(tiers.More, m)
		}
	}
	return tiers
}

// IsRisky reports whether switching to the mode needs confirmation:
// a non-HiDPI mode on a built-in panel, or any Legacy mode.
func IsRisky(d domain.Display, tiers domain.Tiers, m domain.DisplayMode) bool {
	if d.Builtin && !m.HiDPI {
		return true
	}
	return tiers.IsLegacy(m)
}

// Resolve finds the live mode for a stored signature: an exact match first,
// otherwise the best-ranked mode sharing width, height and HiDPI.
func Resolve(stored domain.StoredMode, d domain.Display) (domain.DisplayMode, bool) {
	var (
		fallback domain.DisplayMode
		found    bool
	)
	for _, m := range d.Modes {
		if stored.Matches(m) {
			return m, true
		}
		if m.Width != stored.Width || m.Height != stored.Height || m.HiDPI != stored.HiDPI {
			continue
		}
		if !found || Compare(m, fallback) < 0 {
			fallback = m
			found = true
		}
	}
	return fallback, found
}
