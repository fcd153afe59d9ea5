// Package usecase contains application business logic.
package usecase

import (
	"cmp"
	"context"
	"math"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/resmenu/internal/domain"
)

// CatalogImpl implements domain.Catalog on top of a DisplayBackend.
type CatalogImpl struct {
	backend domain.DisplayBackend
	logger  *zap.Logger
}

// NewCatalog creates a new mode catalog.
func NewCatalog(backend domain.DisplayBackend, logger *zap.Logger) domain.Catalog {
	return &CatalogImpl{
		backend: backend,
		logger:  logger,
	}
}

// ListDisplays enumerates active displays and their curated mode lists.
// Enumeration failure yields an empty list, never an error.
func (c *CatalogImpl) ListDisplays(ctx context.Context) []domain.Display {
	infos, err := c.backend.ActiveDisplays()
	if err != nil {
		c.logger.Warn("failed to enumerate displays", zap.Error(err))
		return []domain.Display{}
	}

	displays := make([]domain.Display, 0, len(infos))
	for _, info := range infos {
		if ctx.Err() != nil {
			return []domain.Display{}
		}
		d, err := c.buildDisplay(info)
		if err != nil {
			c.logger.Warn("failed to enumerate display modes",
				zap.Uint32("display", uint32(info.ID)),
				zap.String("name", info.Name),
				zap.Error(err))
			continue
		}
		displays = append(displays, d)
	}

	slices.SortFunc(displays, func(a, b domain.Display) int {
		if n := cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})

	c.logger.Debug("catalog refreshed", zap.Int("displays", len(displays)))
	return displays
}

func (c *CatalogImpl) buildDisplay(info domain.DisplayInfo) (domain.Display, error) {
	current, err := c.backend.CurrentMode(info.ID)
	if err != nil {
		return domain.Display{}, err
	}

	raw, err := c.backend.AllModes(info.ID, true)
	if err != nil {
		return domain.Display{}, err
	}

	usable := make([]domain.DisplayMode, 0, len(raw))
	for _, r := range raw {
		if !c.backend.IsUsableForDesktop(info.ID, r) {
			continue
		}
		usable = append(usable, ToDisplayMode(r))
	}

	modes := Deduplicate(usable)
	return domain.Display{
		ID:      info.ID,
		Name:    info.Name,
		Builtin: c.backend.IsBuiltin(info.ID),
		Current: canonicalCurrent(ToDisplayMode(current), modes),
		Modes:   modes,
	}, nil
}

// canonicalCurrent maps the OS current mode onto the catalog entry with the
// same signature, since deduplication may have dropped its identifier.
func canonicalCurrent(current domain.DisplayMode, modes []domain.DisplayMode) domain.DisplayMode {
	sig := current.Signature()
	for _, m := range modes {
		if sig.Matches(m) {
			return m
		}
	}
	return current
}

// ToDisplayMode rounds the refresh rate to milli-hertz and derives HiDPI.
func ToDisplayMode(r domain.RawMode) domain.DisplayMode {
	return domain.DisplayMode{
		ID:             r.ID,
		Width:          r.Width,
		Height:         r.Height,
		PixelWidth:     r.PixelWidth,
		PixelHeight:    r.PixelHeight,
		RefreshMilliHz: int(math.Round(r.RefreshHz * 1000)),
		HiDPI:          r.PixelWidth > r.Width || r.PixelHeight > r.Height,
	}
}

// CatalogOrder is the canonical catalog ordering: area desc, refresh desc,
// platform identifier desc.
func CatalogOrder(a, b domain.DisplayMode) int {
	if c := cmp.Compare(b.Area(), a.Area()); c != 0 {
		return c
	}
	if c := cmp.Compare(b.RefreshMilliHz, a.RefreshMilliHz); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

// Deduplicate sorts modes into catalog order and keeps the first mode per
// logical signature, so the highest platform identifier survives.
func Deduplicate(modes []domain.DisplayMode) []domain.DisplayMode {
	sorted := slices.Clone(modes)
	slices.SortFunc(sorted, CatalogOrder)

	seen := make(map[domain.StoredMode]bool, len(sorted))
	out := make([]domain.DisplayMode, 0, len(sorted))
	for _, m := range sorted {
		sig := m.Signature()
		if seen[sig] {
			continue
		}
		seen[sig] = true
		out = append(out, m)
	}
	return out
}

// Ensure CatalogImpl implements domain.Catalog.
var _ domain.Catalog = (*CatalogImpl)(nil)
