package domain

import (
	"context"
	"errors"
)

var (
	// ErrFavoritesFull is returned when adding past MaxFavorites.
	ErrFavoritesFull = errors.New("favorites limit reached")

	// ErrChangeInProgress is returned when a display already has a mode change in flight.
	ErrChangeInProgress = errors.New("mode change already in progress for display")

	// ErrDisplayNotFound is returned for IDs absent from the current snapshot.
	ErrDisplayNotFound = errors.New("display not found")

	// ErrModeNotFound is returned when a requested mode does not resolve.
	ErrModeNotFound = errors.New("mode not available on display")

	// ErrUnsupportedPlatform is returned by the native backend off macOS.
	ErrUnsupportedPlatform = errors.New("native display backend is not supported on this platform")
)

// DisplayBackend is the OS boundary for display enumeration and mode changes.
// Implementation: CoreGraphics on macOS, TOML-backed simulator elsewhere.
type DisplayBackend interface {
	// ActiveDisplays lists the displays currently driven by the OS.
	ActiveDisplays() ([]DisplayInfo, error)

	// CurrentMode returns the live mode of a display.
	CurrentMode(id DisplayID) (RawMode, error)

	// AllModes returns every raw mode. includeLowResolutionDuplicates must be
	// true to see scaled low-resolution modes of older adapters.
	AllModes(id DisplayID, includeLowResolutionDuplicates bool) ([]RawMode, error)

	// IsUsableForDesktop is false for capture/stretched-only modes.
	IsUsableForDesktop(id DisplayID, mode RawMode) bool

	// IsBuiltin reports whether the display is the built-in panel.
	IsBuiltin(id DisplayID) bool

	// BeginConfiguration opens a display configuration transaction.
	BeginConfiguration() (ConfigTransaction, error)
}

// ConfigTransaction is the OS three-phase configuration transaction.
// Callers must end it with exactly one Commit or Cancel.
type ConfigTransaction interface {
	// Configure stages a mode for a display.
	Configure(id DisplayID, mode ModeID) error

	// Commit applies staged changes.
	Commit() error

	// Cancel discards staged changes.
	Cancel()
}

// StateStore is the durable per-display favorites/previous/ack store.
// Every write is atomic and durable before it returns.
type StateStore interface {
	// Favorites returns the ordered favorites (<= MaxFavorites, unique).
	Favorites(displayKey string) ([]StoredMode, error)

	// SetFavorites normalizes (dedupe, cap) and writes the list.
	SetFavorites(displayKey string, list []StoredMode) error

	// PreviousMode returns the stored previous mode, nil if none.
	PreviousMode(displayKey string) (*StoredMode, error)

	// SetPreviousMode replaces the stored previous mode.
	SetPreviousMode(displayKey string, mode StoredMode) error

	// IsRiskAcknowledged reports whether the (display, mode) pair was confirmed.
	IsRiskAcknowledged(displayKey string, mode StoredMode) (bool, error)

	// AcknowledgeRisk records a confirmation. Acknowledgements never expire.
	AcknowledgeRisk(displayKey string, mode StoredMode) error

	// Path returns the backing file path.
	Path() string

	// Close releases resources.
	Close() error
}

// Catalog produces fresh display snapshots.
type Catalog interface {
	// ListDisplays never fails; enumeration errors yield an empty list.
	ListDisplays(ctx context.Context) []Display
}

// Confirmer asks the user a blocking yes/no question.
type Confirmer func(prompt string) bool

// KeyProvider abstracts the source of encryption keys.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}

// ProcessManager handles OS process lookups.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// FindByName returns PIDs of processes matching the pattern.
	FindByName(pattern string) ([]int, error)

	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool

	// GetCurrentPID returns the current process PID.
	GetCurrentPID() int
}
