package infra

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/resmenu/internal/domain"
)

// newTestEncryptedStore creates an encrypted store in a temp directory for testing.
func newTestEncryptedStore(t *testing.T) (*EncryptedStateStore, string) {
	t.Helper()
	dataDir := t.TempDir()
	key, err := newStateKey()
	require.NoError(t, err)

	store, err := NewEncryptedStateStore(dataDir, key)
	require.NoError(t, err)

	t.Cleanup(func() { store.Close() })
	return store, dataDir
}

func TestEncryptedStateStore_Favorites(t *testing.T) {
	tests := []struct {
		name   string
		writes [][]domain.StoredMode
		want   []domain.StoredMode
	}{
		{
			name:   "single write keeps order",
			writes: [][]domain.StoredMode{{retna, fhd}},
			want:   []domain.StoredMode{retna, fhd},
		},
		{
			name:   "rewrite replaces list",
			writes: [][]domain.StoredMode{{fhd, qhd}, {qhd75}},
			want:   []domain.StoredMode{qhd75},
		},
		{
			name:   "normalizes duplicates and cap",
			writes: [][]domain.StoredMode{{fhd, fhd, qhd, qhd75, wxga, retna}},
			want:   []domain.StoredMode{fhd, qhd, qhd75, wxga},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestEncryptedStore(t)

			for _, w := range tt.writes {
				require.NoError(t, store.SetFavorites("3", w))
			}

			got, err := store.Favorites("3")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncryptedStateStore_FavoritesEmpty(t *testing.T) {
	store, _ := newTestEncryptedStore(t)

	got, err := store.Favorites("unknown")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEncryptedStateStore_PreviousMode(t *testing.T) {
	store, _ := newTestEncryptedStore(t)

	prev, err := store.PreviousMode("1")
	require.NoError(t, err)
	assert.Nil(t, prev)

	require.NoError(t, store.SetPreviousMode("1", retna))
	require.NoError(t, store.SetPreviousMode("1", fhd))

	prev, err = store.PreviousMode("1")
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, fhd, *prev)
}

func TestEncryptedStateStore_RiskAcknowledgement(t *testing.T) {
	store, _ := newTestEncryptedStore(t)

	require.NoError(t, store.AcknowledgeRisk("1", wxga))
	require.NoError(t, store.AcknowledgeRisk("1", wxga), "acknowledging twice is fine")

	acked, err := store.IsRiskAcknowledged("1", wxga)
	require.NoError(t, err)
	assert.True(t, acked)

	acked, err = store.IsRiskAcknowledged("2", wxga)
	require.NoError(t, err)
	assert.False(t, acked)

	acked, err = store.IsRiskAcknowledged("1", fhd)
	require.NoError(t, err)
	assert.False(t, acked)
}

func TestEncryptedStateStore_Encryption(t *testing.T) {
	tests := []struct {
		name   string
		testFn func(t *testing.T)
	}{
		{
			name: "database file is unreadable without key",
			testFn: func(t *testing.T) {
				dataDir := t.TempDir()
				key, err := newStateKey()
				require.NoError(t, err)

				store, err := NewEncryptedStateStore(dataDir, key)
				require.NoError(t, err)
				require.NoError(t, store.AcknowledgeRisk("display_marker", wxga))
				store.Close()

				rawData, err := os.ReadFile(filepath.Join(dataDir, stateDBName))
				require.NoError(t, err)
				assert.NotContains(t, string(rawData), "display_marker")
				assert.NotContains(t, string(rawData), "risk_ack")
			},
		},
		{
			name: "wrong key fails to open",
			testFn: func(t *testing.T) {
				dataDir := t.TempDir()
				key1, _ := newStateKey()
				key2, _ := newStateKey()

				store1, err := NewEncryptedStateStore(dataDir, key1)
				require.NoError(t, err)
				require.NoError(t, store1.SetPreviousMode("1", fhd))
				store1.Close()

				_, err = NewEncryptedStateStore(dataDir, key2)
				assert.Error(t, err)
			},
		},
		{
			name: "correct key reads data after reopen",
			testFn: func(t *testing.T) {
				dataDir := t.TempDir()
				key, _ := newStateKey()

				store1, err := NewEncryptedStateStore(dataDir, key)
				require.NoError(t, err)
				require.NoError(t, store1.SetFavorites("1", []domain.StoredMode{retna}))
				store1.Close()

				store2, err := NewEncryptedStateStore(dataDir, key)
				require.NoError(t, err)
				defer store2.Close()

				favs, err := store2.Favorites("1")
				require.NoError(t, err)
				assert.Equal(t, []domain.StoredMode{retna}, favs)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.testFn)
	}
}

func TestNewEncryptedStateStoreWithKeyProvider(t *testing.T) {
	dataDir := t.TempDir()
	provider := NewStateKeyProvider(dataDir)

	store, err := NewEncryptedStateStoreWithKeyProvider(dataDir, provider)
	require.NoError(t, err)
	require.NoError(t, store.SetPreviousMode("1", qhd))
	require.NoError(t, store.Close())
	assert.True(t, provider.KeyExists())

	reopened, err := NewEncryptedStateStoreWithKeyProvider(dataDir, provider)
	require.NoError(t, err)
	defer reopened.Close()

	prev, err := reopened.PreviousMode("1")
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, qhd, *prev)
	assert.Equal(t, filepath.Join(dataDir, stateDBName), reopened.Path())
}

func TestNewEncryptedStateStoreWithKeyProvider_LostKey(t *testing.T) {
	dataDir := t.TempDir()
	provider := NewStateKeyProvider(dataDir)

	store, err := NewEncryptedStateStoreWithKeyProvider(dataDir, provider)
	require.NoError(t, err)
	require.NoError(t, store.SetPreviousMode("1", qhd))
	require.NoError(t, store.Close())

	require.NoError(t, os.Remove(filepath.Join(dataDir, stateKeyFileName)))

	_, err = NewEncryptedStateStoreWithKeyProvider(dataDir, provider)
	assert.ErrorIs(t, err, ErrStateKeyMissing)
	assert.False(t, provider.KeyExists(), "no replacement key minted")
}
