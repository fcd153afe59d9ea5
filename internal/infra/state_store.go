package infra

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/eliteGoblin/focusd/resmenu/internal/domain"
)

const (
	stateFileName = "state.json"
	stateVersion  = 1
)

// errCorruptState marks a state file that exists but does not parse.
var errCorruptState = errors.New("corrupt state file")

// stateDocument is the on-disk layout of FileStateStore.
type stateDocument struct {
	Version  int                             `json:"version"`
	Displays map[string]*domain.DisplayState `json:"displays"`
}

// FileStateStore implements domain.StateStore using a single JSON file.
// Writers serialize on an flock'd sibling lock file so several resmenu
// processes can share one state file.
type FileStateStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStateStore creates a store at <dataDir>/state.json.
func NewFileStateStore(dataDir string) (*FileStateStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return NewFileStateStoreWithPath(filepath.Join(dataDir, stateFileName)), nil
}

// NewFileStateStoreWithPath creates a store at a specific path (for testing).
func NewFileStateStoreWithPath(path string) *FileStateStore {
	return &FileStateStore{path: path}
}

// Path returns the state file path.
func (s *FileStateStore) Path() string {
	return s.path
}

// Favorites returns the stored favorites for a display.
func (s *FileStateStore) Favorites(displayKey string) ([]domain.StoredMode, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	st := doc.Displays[displayKey]
	if st == nil {
		return []domain.StoredMode{}, nil
	}
	return domain.NormalizeFavorites(st.Favorites), nil
}

// SetFavorites replaces the favorites list for a display.
func (s *FileStateStore) SetFavorites(displayKey string, list []domain.StoredMode) error {
	normalized := domain.NormalizeFavorites(list)
	return s.update(displayKey, func(st *domain.DisplayState) {
		st.Favorites = normalized
	})
}

// PreviousMode returns the stored previous mode, nil if none.
func (s *FileStateStore) PreviousMode(displayKey string) (*domain.StoredMode, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	st := doc.Displays[displayKey]
	if st == nil || st.Previous == nil {
		return nil, nil
	}
	prev := *st.Previous
	return &prev, nil
}

// SetPreviousMode replaces the previous mode for a display.
func (s *FileStateStore) SetPreviousMode(displayKey string, mode domain.StoredMode) error {
	return s.update(displayKey, func(st *domain.DisplayState) {
		st.Previous = &mode
	})
}

// IsRiskAcknowledged reports whether the mode was confirmed on this display.
func (s *FileStateStore) IsRiskAcknowledged(displayKey string, mode domain.StoredMode) (bool, error) {
	doc, err := s.load()
	if err != nil {
		return false, err
	}
	st := doc.Displays[displayKey]
	return st != nil && st.Acknowledged[mode.Key()], nil
}

// AcknowledgeRisk records a confirmation for the (display, mode) pair.
func (s *FileStateStore) AcknowledgeRisk(displayKey string, mode domain.StoredMode) error {
	return s.update(displayKey, func(st *domain.DisplayState) {
		if st.Acknowledged == nil {
			st.Acknowledged = make(map[string]bool)
		}
		st.Acknowledged[mode.Key()] = true
	})
}

// Close is a no-op; every write is already durable.
func (s *FileStateStore) Close() error {
	return nil
}

// load reads the state document. A missing file is an empty document.
func (s *FileStateStore) load() (*stateDocument, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return newStateDocument(), nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	doc := newStateDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w: %w", s.path, errCorruptState, err)
	}
	if doc.Displays == nil {
		doc.Displays = make(map[string]*domain.DisplayState)
	}
	return doc, nil
}

func newStateDocument() *stateDocument {
	return &stateDocument{
		Version:  stateVersion,
		Displays: make(map[string]*domain.DisplayState),
	}
}

// update applies fn to one display's state under the file lock and writes
// the whole document back atomically. A corrupt document is moved aside to
// <path>.corrupt and replaced rather than blocking every future write.
func (s *FileStateStore) update(displayKey string, fn func(*domain.DisplayState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lockFile, err := os.OpenFile(s.path+".lock", os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	defer lockFile.Close()

	if err := unix.Flock(int(lockFile.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer func() { _ = unix.Flock(int(lockFile.Fd()), unix.LOCK_UN) }()

	doc, err := s.load()
	if err != nil {
		if !errors.Is(err, errCorruptState) {
			return err
		}
		if renameErr := os.Rename(s.path, s.path+".corrupt"); renameErr != nil {
			return fmt.Errorf("failed to move corrupt state file aside: %w", renameErr)
		}
		doc = newStateDocument()
	}

	st := doc.Displays[displayKey]
	if st == nil {
		st = &domain.DisplayState{}
		doc.Displays[displayKey] = st
	}
	fn(st)
	doc.Version = stateVersion

	return s.atomicWrite(doc)
}

// atomicWrite writes the document to a temp file, syncs it, then renames it
// over the state file.
func (s *FileStateStore) atomicWrite(doc *stateDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	// Unique per process so concurrent writers never share a temp file.
	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, os.Getpid())
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync temp state file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	success = true
	return nil
}

// Ensure FileStateStore implements domain.StateStore.
var _ domain.StateStore = (*FileStateStore)(nil)
