package infra

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/resmenu/internal/domain"
)

const simTOML = `
[[display]]
id = 5
name = "Studio Display"
current = 2

  [[display.mode]]
  id = 1
  width = 2560
  height = 1440
  pixel_width = 5120
  pixel_height = 2880
  refresh = 60.0

  [[display.mode]]
  id = 2
  width = 1920
  height = 1080
  refresh = 59.94

  [[display.mode]]
  id = 3
  width = 1920
  height = 1080
  refresh = 24.0
  unusable = true

[[display]]
id = 9
name = "Built-in"
builtin = true
current = 10

  [[display.mode]]
  id = 10
  width = 1512
  height = 982
  pixel_width = 3024
  pixel_height = 1964
  refresh = 120.0
`

func newTestSimBackend(t *testing.T) *SimBackend {
	t.Helper()
	fx, err := ParseSimFixture([]byte(simTOML))
	require.NoError(t, err)
	return NewSimBackend(fx)
}

func TestParseSimFixture(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "valid fixture", input: simTOML},
		{name: "empty fixture", input: ""},
		{
			name:    "malformed toml",
			input:   "[[display]\nid = ",
			wantErr: "failed to parse display fixture",
		},
		{
			name:    "duplicate display",
			input:   "[[display]]\nid = 1\ncurrent = 1\n[[display.mode]]\nid = 1\n[[display]]\nid = 1\ncurrent = 1\n[[display.mode]]\nid = 1\n",
			wantErr: "duplicate display id 1",
		},
		{
			name:    "current mode missing",
			input:   "[[display]]\nid = 1\ncurrent = 7\n[[display.mode]]\nid = 1\n",
			wantErr: "current mode 7 not in mode list",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSimFixture([]byte(tt.input))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSimBackend_Enumeration(t *testing.T) {
	b := newTestSimBackend(t)

	infos, err := b.ActiveDisplays()
	require.NoError(t, err)
	assert.Equal(t, []domain.DisplayInfo{
		{ID: 5, Name: "Studio Display"},
		{ID: 9, Name: "Built-in"},
	}, infos)

	cur, err := b.CurrentMode(5)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeID(2), cur.ID)
	assert.Equal(t, 1920, cur.PixelWidth, "pixel size defaults to logical size")
	assert.InDelta(t, 59.94, cur.RefreshHz, 0.0001)

	modes, err := b.AllModes(5, true)
	require.NoError(t, err)
	assert.Len(t, modes, 3)
	assert.Equal(t, 5120, modes[0].PixelWidth)

	assert.True(t, b.IsUsableForDesktop(5, modes[0]))
	assert.False(t, b.IsUsableForDesktop(5, modes[2]))
	assert.True(t, b.IsBuiltin(9))
	assert.False(t, b.IsBuiltin(5))

	_, err = b.CurrentMode(77)
	assert.ErrorIs(t, err, domain.ErrDisplayNotFound)
}

func TestSimBackend_Transaction(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(b *SimBackend)
		mode        domain.ModeID
		wantErr     bool
		wantCurrent domain.ModeID
	}{
		{
			name:        "commit applies staged mode",
			mode:        1,
			wantCurrent: 1,
		},
		{
			name:        "unknown mode rejected at configure",
			mode:        99,
			wantErr:     true,
			wantCurrent: 2,
		},
		{
			name:        "injected configure failure",
			setup:       func(b *SimBackend) { b.FailConfigure(errors.New("kCGErrorIllegalArgument")) },
			mode:        1,
			wantErr:     true,
			wantCurrent: 2,
		},
		{
			name:        "injected commit failure",
			setup:       func(b *SimBackend) { b.FailCommit(errors.New("kCGErrorFailure")) },
			mode:        1,
			wantErr:     true,
			wantCurrent: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestSimBackend(t)
			if tt.setup != nil {
				tt.setup(b)
			}

			tx, err := b.BeginConfiguration()
			require.NoError(t, err)

			err = tx.Configure(5, tt.mode)
			if err == nil {
				err = tx.Commit()
			}
			if err != nil {
				tx.Cancel()
			}

			if tt.wantErr {
				assert.Error(t, err)
				assert.Zero(t, b.Commits())
			} else {
				assert.NoError(t, err)
				assert.Equal(t, 1, b.Commits())
			}

			cur, err := b.CurrentMode(5)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCurrent, cur.ID)
		})
	}
}

func TestSimBackend_CancelDiscardsStagedMode(t *testing.T) {
	b := newTestSimBackend(t)

	tx, err := b.BeginConfiguration()
	require.NoError(t, err)
	require.NoError(t, tx.Configure(5, 1))
	tx.Cancel()

	assert.Error(t, tx.Commit(), "cancelled transaction cannot commit")
	cur, err := b.CurrentMode(5)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeID(2), cur.ID)
}

func TestSimBackend_HotPlug(t *testing.T) {
	b := newTestSimBackend(t)

	b.Disconnect(9)
	infos, err := b.ActiveDisplays()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, domain.DisplayID(5), infos[0].ID)

	b.Connect(SimDisplay{ID: 11, Name: "Projector", Current: 1, Modes: []SimMode{{ID: 1, Width: 1280, Height: 720, Refresh: 60}}})
	infos, err = b.ActiveDisplays()
	require.NoError(t, err)
	assert.Len(t, infos, 2)
}

func TestSimBackend_PersistsCommitsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "displays.toml")
	require.NoError(t, os.WriteFile(path, []byte(simTOML), 0600))

	b, err := NewSimBackendFromFile(path)
	require.NoError(t, err)

	tx, err := b.BeginConfiguration()
	require.NoError(t, err)
	require.NoError(t, tx.Configure(5, 1))
	require.NoError(t, tx.Commit())

	reloaded, err := NewSimBackendFromFile(path)
	require.NoError(t, err)
	cur, err := reloaded.CurrentMode(5)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeID(1), cur.ID)

	modes, err := reloaded.AllModes(5, true)
	require.NoError(t, err)
	assert.Len(t, modes, 3, "mode list survives the rewrite")
	assert.False(t, reloaded.IsUsableForDesktop(5, modes[2]))
}

func TestNewSimBackendFromFile_Missing(t *testing.T) {
	_, err := NewSimBackendFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read display fixture")
}
