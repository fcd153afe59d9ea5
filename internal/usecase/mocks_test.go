package usecase

import (
	"errors"
	"fmt"
	"slices"

	"github.com/eliteGoblin/focusd/resmenu/internal/domain"
)

// raw builds a RawMode; scale 2 yields a HiDPI mode.
func raw(id int64, w, h int, hz float64, scale int) domain.RawMode {
	return domain.RawMode{
		ID:          domain.ModeID(id),
		Width:       w,
		Height:      h,
		PixelWidth:  w * scale,
		PixelHeight: h * scale,
		RefreshHz:   hz,
	}
}

// newDuplicateCurrentBackend returns a display whose OS current mode is an
// electrical duplicate that deduplication drops in favour of mode 7.
func newDuplicateCurrentBackend() *mockBackend {
	return &mockBackend{
		displays: []*mockDisplay{{
			info:    domain.DisplayInfo{ID: 4, Name: "Dell U2720Q"},
			current: 5,
			modes: []domain.RawMode{
				raw(5, 1920, 1080, 60, 1),
				raw(7, 1920, 1080, 60.0001, 1),
				raw(20, 2560, 1440, 60, 1),
			},
		}},
	}
}

// mockDisplay is one display known to mockBackend.
type mockDisplay struct {
	info     domain.DisplayInfo
	builtin  bool
	current  domain.ModeID
	modes    []domain.RawMode
	unusable map[domain.ModeID]bool
	modesErr error
}

// mockBackend implements domain.DisplayBackend for testing.
type mockBackend struct {
	displays     []*mockDisplay
	listErr      error
	beginErr     error
	configureErr error
	commitErr    error
	calls        []string
	lowResFlags  []bool
}

func (m *mockBackend) find(id domain.DisplayID) (*mockDisplay, error) {
	for _, d := range m.displays {
		if d.info.ID == id {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no display %d", id)
}

func (m *mockBackend) ActiveDisplays() ([]domain.DisplayInfo, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	infos := make([]domain.DisplayInfo, len(m.displays))
	for i, d := range m.displays {
		infos[i] = d.info
	}
	return infos, nil
}

func (m *mockBackend) CurrentMode(id domain.DisplayID) (domain.RawMode, error) {
	d, err := m.find(id)
	if err != nil {
		return domain.RawMode{}, err
	}
	for _, r := range d.modes {
		if r.ID == d.current {
			return r, nil
		}
	}
	return domain.RawMode{}, errors.New("current mode missing")
}

func (m *mockBackend) AllModes(id domain.DisplayID, includeLowRes bool) ([]domain.RawMode, error) {
	m.lowResFlags = append(m.lowResFlags, includeLowRes)
	d, err := m.find(id)
	if err != nil {
		return nil, err
	}
	if d.modesErr != nil {
		return nil, d.modesErr
	}
	return slices.Clone(d.modes), nil
}

func (m *mockBackend) IsUsableForDesktop(id domain.DisplayID, r domain.RawMode) bool {
	d, err := m.find(id)
	if err != nil {
		return false
	}
	return !d.unusable[r.ID]
}

func (m *mockBackend) IsBuiltin(id domain.DisplayID) bool {
	d, err := m.find(id)
	return err == nil && d.builtin
}

func (m *mockBackend) BeginConfiguration() (domain.ConfigTransaction, error) {
	m.calls = append(m.calls, "begin")
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	return &mockTx{backend: m, staged: map[domain.DisplayID]domain.ModeID{}}, nil
}

// osCalls counts calls that reached the OS transaction.
func (m *mockBackend) osCalls() int {
	return len(m.calls)
}

type mockTx struct {
	backend *mockBackend
	staged  map[domain.DisplayID]domain.ModeID
}

func (t *mockTx) Configure(id domain.DisplayID, mode domain.ModeID) error {
	t.backend.calls = append(t.backend.calls, fmt.Sprintf("configure:%d:%d", id, mode))
	if t.backend.configureErr != nil {
		return t.backend.configureErr
	}
	t.staged[id] = mode
	return nil
}

func (t *mockTx) Commit() error {
	t.backend.calls = append(t.backend.calls, "commit")
	if t.backend.commitErr != nil {
		return t.backend.commitErr
	}
	for id, mode := range t.staged {
		d, err := t.backend.find(id)
		if err != nil {
			return err
		}
		d.current = mode
	}
	return nil
}

func (t *mockTx) Cancel() {
	t.backend.calls = append(t.backend.calls, "cancel")
}

// memStore implements domain.StateStore in memory for testing.
type memStore struct {
	favorites map[string][]domain.StoredMode
	previous  map[string]domain.StoredMode
	acks      map[string]bool
	readErr   error
	writeErr  error
	writes    int
}

func newMemStore() *memStore {
	return &memStore{
		favorites: map[string][]domain.StoredMode{},
		previous:  map[string]domain.StoredMode{},
		acks:      map[string]bool{},
	}
}

func (s *memStore) Favorites(key string) ([]domain.StoredMode, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	return slices.Clone(s.favorites[key]), nil
}

func (s *memStore) SetFavorites(key string, list []domain.StoredMode) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.writes++
	s.favorites[key] = domain.NormalizeFavorites(list)
	return nil
}

func (s *memStore) PreviousMode(key string) (*domain.StoredMode, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	p, ok := s.previous[key]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *memStore) SetPreviousMode(key string, mode domain.StoredMode) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.writes++
	s.previous[key] = mode
	return nil
}

func (s *memStore) IsRiskAcknowledged(key string, mode domain.StoredMode) (bool, error) {
	if s.readErr != nil {
		return false, s.readErr
	}
	return s.acks[key+"/"+mode.Key()], nil
}

func (s *memStore) AcknowledgeRisk(key string, mode domain.StoredMode) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.writes++
	s.acks[key+"/"+mode.Key()] = true
	return nil
}

func (s *memStore) Path() string { return "memory" }

func (s *memStore) Close() error { return nil }

// Ensure test doubles implement the domain interfaces.
var (
	_ domain.DisplayBackend = (*mockBackend)(nil)
	_ domain.StateStore     = (*memStore)(nil)
)
