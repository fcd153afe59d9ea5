// Package domain contains core display-mode entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import (
	"fmt"
	"strconv"
)

// MaxFavorites is the per-display favorites cap.
const MaxFavorites = 4

// DisplayID is the platform display identifier.
// It may be reused across reconnects, so treat it as session-scoped.
type DisplayID uint32

// Key returns the persistence key for the display.
func (id DisplayID) Key() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ModeID is an opaque platform mode token. It is only valid within one
// catalog snapshot and is never persisted.
type ModeID int64

// DisplayInfo is what the OS reports about an active display.
type DisplayInfo struct {
	ID   DisplayID
	Name string
}

// RawMode is a display mode exactly as reported by the OS.
type RawMode struct {
	ID          ModeID
	Width       int // logical points
	Height      int
	PixelWidth  int // physical pixels
	PixelHeight int
	RefreshHz   float64
}

// DisplayMode is a curated, comparable display mode.
type DisplayMode struct {
	ID             ModeID
	Width          int
	Height         int
	PixelWidth     int
	PixelHeight    int
	RefreshMilliHz int
	HiDPI          bool
}

// Area returns the logical pixel area.
func (m DisplayMode) Area() int {
	return m.Width * m.Height
}

// PixelArea returns the physical pixel count.
func (m DisplayMode) PixelArea() int {
	return m.PixelWidth * m.PixelHeight
}

// Signature returns the logical mode signature, the persistable projection.
func (m DisplayMode) Signature() StoredMode {
	return StoredMode{
		Width:          m.Width,
		Height:         m.Height,
		RefreshMilliHz: m.RefreshMilliHz,
		HiDPI:          m.HiDPI,
	}
}

// SameResolution reports whether two modes share (width, height, HiDPI).
func (m DisplayMode) SameResolution(o DisplayMode) bool {
	return m.Width == o.Width && m.Height == o.Height && m.HiDPI == o.HiDPI
}

func (m DisplayMode) String() string {
	return m.Signature().String()
}

// StoredMode is the logical mode signature. It deliberately has no
// platform identifier because those are not stable across reboots.
type StoredMode struct {
	Width          int  `json:"width"`
	Height         int  `json:"height"`
	RefreshMilliHz int  `json:"refresh_mhz"`
	HiDPI          bool `json:"hidpi"`
}

// Matches reports whether the live mode has exactly this signature.
func (s StoredMode) Matches(m DisplayMode) bool {
	return s == m.Signature()
}

// Key returns a compact stable key, e.g. "2560x1440@59940h".
func (s StoredMode) Key() string {
	k := fmt.Sprintf("%dx%d@%d", s.Width, s.Height, s.RefreshMilliHz)
	if s.HiDPI {
		k += "h"
	}
	return k
}

func (s StoredMode) String() string {
	out := fmt.Sprintf("%dx%d @ %s", s.Width, s.Height, FormatRefresh(s.RefreshMilliHz))
	if s.HiDPI {
		out += " HiDPI"
	}
	return out
}

// FormatRefresh renders milli-hertz as a short human string ("60Hz", "59.94Hz").
func FormatRefresh(milliHz int) string {
	if milliHz <= 0 {
		return "--"
	}
	if milliHz%1000 == 0 {
		return fmt.Sprintf("%dHz", milliHz/1000)
	}
	return strconv.FormatFloat(float64(milliHz)/1000, 'f', -1, 64) + "Hz"
}

// Display is one active display with its curated catalog.
// Values are rebuilt on every refresh and never mutated in place.
type Display struct {
	ID      DisplayID
	Name    string
	Builtin bool
	Current DisplayMode
	Modes   []DisplayMode // deduplicated, canonical catalog order
}

// Lookup returns the catalog entry with the given platform identifier.
func (d Display) Lookup(id ModeID) (DisplayMode, bool) {
	for _, m := range d.Modes {
		if m.ID == id {
			return m, true
		}
	}
	return DisplayMode{}, false
}

// Tiers is the curated partition of a display's catalog.
type Tiers struct {
	Recommended []DisplayMode
	More        []DisplayMode
	Legacy      []DisplayMode
	Native      DisplayMode
	HasNative   bool
}

// IsLegacy reports whether the mode's (width, height, HiDPI) representative
// sits in the Legacy tier.
func (t Tiers) IsLegacy(m DisplayMode) bool {
	for _, l := range t.Legacy {
		if l.SameResolution(m) {
			return true
		}
	}
	return false
}

// DisplayView is a display plus its tiers, the unit handed to presenters.
type DisplayView struct {
	Display
	Tiers Tiers
}

// DisplayState is the persisted per-display record.
type DisplayState struct {
	Favorites    []StoredMode    `json:"favorites,omitempty"`
	Previous     *StoredMode     `json:"previous,omitempty"`
	Acknowledged map[string]bool `json:"acknowledged,omitempty"`
}

// NormalizeFavorites drops duplicate logical modes (first occurrence wins)
// and truncates to MaxFavorites.
func NormalizeFavorites(list []StoredMode) []StoredMode {
	out := make([]StoredMode, 0, MaxFavorites)
	seen := make(map[StoredMode]bool, len(list))
	for _, s := range list {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		if len(out) == MaxFavorites {
			break
		}
	}
	return out
}
