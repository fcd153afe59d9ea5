package infra

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/eliteGoblin/focusd/resmenu/internal/domain"
)

// SimFixture is the TOML description of a simulated display setup.
type SimFixture struct {
	Displays []SimDisplay `toml:"display"`
}

// SimDisplay is one simulated display.
type SimDisplay struct {
	ID      uint32    `toml:"id"`
	Name    string    `toml:"name"`
	Builtin bool      `toml:"builtin"`
	Current int64     `toml:"current"`
	Modes   []SimMode `toml:"mode"`
}

// SimMode is one simulated raw mode. Zero pixel dimensions default to the
// logical ones.
type SimMode struct {
	ID          int64   `toml:"id"`
	Width       int     `toml:"width"`
	Height      int     `toml:"height"`
	PixelWidth  int     `toml:"pixel_width,omitempty"`
	PixelHeight int     `toml:"pixel_height,omitempty"`
	Refresh     float64 `toml:"refresh"`
	Unusable    bool    `toml:"unusable,omitempty"`
}

func (m SimMode) raw() domain.RawMode {
	r := domain.RawMode{
		ID:          domain.ModeID(m.ID),
		Width:       m.Width,
		Height:      m.Height,
		PixelWidth:  m.PixelWidth,
		PixelHeight: m.PixelHeight,
		RefreshHz:   m.Refresh,
	}
	if r.PixelWidth == 0 {
		r.PixelWidth = r.Width
	}
	if r.PixelHeight == 0 {
		r.PixelHeight = r.Height
	}
	return r
}

// LoadSimFixture reads and validates a TOML fixture.
func LoadSimFixture(path string) (*SimFixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read display fixture: %w", err)
	}
	return ParseSimFixture(data)
}

// ParseSimFixture decodes and validates fixture TOML.
func ParseSimFixture(data []byte) (*SimFixture, error) {
	var fx SimFixture
	if err := toml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("failed to parse display fixture: %w", err)
	}
	if err := fx.validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

func (fx *SimFixture) validate() error {
	seen := make(map[uint32]bool, len(fx.Displays))
	for _, d := range fx.Displays {
		if seen[d.ID] {
			return fmt.Errorf("display fixture: duplicate display id %d", d.ID)
		}
		seen[d.ID] = true
		if !slices.ContainsFunc(d.Modes, func(m SimMode) bool { return m.ID == d.Current }) {
			return fmt.Errorf("display fixture: display %d current mode %d not in mode list", d.ID, d.Current)
		}
	}
	return nil
}

// SimBackend implements domain.DisplayBackend over an in-memory fixture.
// When created from a file, committed changes are written back to it so
// separate CLI invocations observe each other.
type SimBackend struct {
	mu           sync.Mutex
	fixture      SimFixture
	path         string
	configureErr error
	commitErr    error
	commits      int
}

// NewSimBackend creates a simulator from an already loaded fixture.
func NewSimBackend(fx *SimFixture) *SimBackend {
	b := &SimBackend{}
	if fx != nil {
		b.fixture = cloneFixture(*fx)
	}
	return b
}

// NewSimBackendFromFile loads the fixture at path and persists commits to it.
func NewSimBackendFromFile(path string) (*SimBackend, error) {
	fx, err := LoadSimFixture(path)
	if err != nil {
		return nil, err
	}
	b := NewSimBackend(fx)
	b.path = path
	return b, nil
}

// FailConfigure makes every following Configure call return err (nil clears).
func (b *SimBackend) FailConfigure(err error) {
	b.mu.Lock()
	b.configureErr = err
	b.mu.Unlock()
}

// FailCommit makes every following Commit call return err (nil clears).
func (b *SimBackend) FailCommit(err error) {
	b.mu.Lock()
	b.commitErr = err
	b.mu.Unlock()
}

// Connect adds or replaces a display, as after a hot-plug.
func (b *SimBackend) Connect(d SimDisplay) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fixture.Displays = slices.DeleteFunc(b.fixture.Displays, func(x SimDisplay) bool { return x.ID == d.ID })
	b.fixture.Displays = append(b.fixture.Displays, d)
}

// Disconnect removes a display.
func (b *SimBackend) Disconnect(id domain.DisplayID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fixture.Displays = slices.DeleteFunc(b.fixture.Displays, func(x SimDisplay) bool { return x.ID == uint32(id) })
}

// Commits returns how many transactions were committed successfully.
func (b *SimBackend) Commits() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.commits
}

func (b *SimBackend) find(id domain.DisplayID) (*SimDisplay, error) {
	for i := range b.fixture.Displays {
		if b.fixture.Displays[i].ID == uint32(id) {
			return &b.fixture.Displays[i], nil
		}
	}
	return nil, fmt.Errorf("display %d: %w", id, domain.ErrDisplayNotFound)
}

// ActiveDisplays lists the simulated displays in fixture order.
func (b *SimBackend) ActiveDisplays() ([]domain.DisplayInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	infos := make([]domain.DisplayInfo, len(b.fixture.Displays))
	for i, d := range b.fixture.Displays {
		infos[i] = domain.DisplayInfo{ID: domain.DisplayID(d.ID), Name: d.Name}
	}
	return infos, nil
}

// CurrentMode returns the display's current mode.
func (b *SimBackend) CurrentMode(id domain.DisplayID) (domain.RawMode, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.find(id)
	if err != nil {
		return domain.RawMode{}, err
	}
	for _, m := range d.Modes {
		if m.ID == d.Current {
			return m.raw(), nil
		}
	}
	return domain.RawMode{}, fmt.Errorf("display %d: current mode %d: %w", id, d.Current, domain.ErrModeNotFound)
}

// AllModes returns every simulated mode. The simulator has no hidden
// low-resolution duplicates, so the flag has no effect.
func (b *SimBackend) AllModes(id domain.DisplayID, _ bool) ([]domain.RawMode, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.find(id)
	if err != nil {
		return nil, err
	}
	modes := make([]domain.RawMode, len(d.Modes))
	for i, m := range d.Modes {
		modes[i] = m.raw()
	}
	return modes, nil
}

// IsUsableForDesktop reports the fixture's usable flag for the mode.
func (b *SimBackend) IsUsableForDesktop(id domain.DisplayID, mode domain.RawMode) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.find(id)
	if err != nil {
		return false
	}
	for _, m := range d.Modes {
		if domain.ModeID(m.ID) == mode.ID {
			return !m.Unusable
		}
	}
	return false
}

// IsBuiltin reports the fixture's builtin flag.
func (b *SimBackend) IsBuiltin(id domain.DisplayID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, err := b.find(id)
	return err == nil && d.Builtin
}

// BeginConfiguration opens a simulated transaction.
func (b *SimBackend) BeginConfiguration() (domain.ConfigTransaction, error) {
	return &simTransaction{backend: b, staged: make(map[domain.DisplayID]domain.ModeID)}, nil
}

type simTransaction struct {
	backend *SimBackend
	staged  map[domain.DisplayID]domain.ModeID
	done    bool
}

func (t *simTransaction) Configure(id domain.DisplayID, mode domain.ModeID) error {
	b := t.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if t.done {
		return errors.New("display configuration already completed")
	}
	if b.configureErr != nil {
		return b.configureErr
	}
	d, err := b.find(id)
	if err != nil {
		return err
	}
	if !slices.ContainsFunc(d.Modes, func(m SimMode) bool { return domain.ModeID(m.ID) == mode }) {
		return fmt.Errorf("display %d: mode %d: %w", id, mode, domain.ErrModeNotFound)
	}
	t.staged[id] = mode
	return nil
}

func (t *simTransaction) Commit() error {
	b := t.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if t.done {
		return errors.New("display configuration already completed")
	}
	if b.commitErr != nil {
		return b.commitErr
	}

	next := cloneFixture(b.fixture)
	for id, mode := range t.staged {
		for i := range next.Displays {
			if next.Displays[i].ID == uint32(id) {
				next.Displays[i].Current = int64(mode)
			}
		}
	}
	if b.path != "" {
		if err := writeSimFixture(b.path, next); err != nil {
			return err
		}
	}

	b.fixture = next
	b.commits++
	t.done = true
	return nil
}

func (t *simTransaction) Cancel() {
	t.done = true
}

func writeSimFixture(path string, fx SimFixture) error {
	data, err := toml.Marshal(fx)
	if err != nil {
		return fmt.Errorf("failed to encode display fixture: %w", err)
	}
	tmpPath := fmt.Sprintf("%s.%d.tmp", path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write display fixture: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace display fixture: %w", err)
	}
	return nil
}

func cloneFixture(fx SimFixture) SimFixture {
	out := SimFixture{Displays: make([]SimDisplay, len(fx.Displays))}
	for i, d := range fx.Displays {
		d.Modes = slices.Clone(d.Modes)
		out.Displays[i] = d
	}
	return out
}

// Ensure SimBackend implements domain.DisplayBackend.
var _ domain.DisplayBackend = (*SimBackend)(nil)
