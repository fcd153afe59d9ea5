package infra

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/focusd/resmenu/internal/domain"
)

// Ensure sqlcipher driver is registered.
var _ = sqlcipher.ErrBusy

const (
	stateDBName = "state.db"
)

// EncryptedStateStore implements domain.StateStore using a SQLCipher
// encrypted SQLite database. Each write is a single transaction.
type EncryptedStateStore struct {
	db     *sql.DB
	dbPath string
}

// NewEncryptedStateStore opens (or creates) the encrypted state database.
// The key is used as the SQLCipher passphrase via PRAGMA key.
func NewEncryptedStateStore(dataDir string, key []byte) (*EncryptedStateStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, stateDBName)
	keyHex := hex.EncodeToString(key)

	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, keyHex)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}
	// One connection keeps every statement on the keyed handle.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	store := &EncryptedStateStore{
		db:     db,
		dbPath: dbPath,
	}

	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

// NewEncryptedStateStoreWithKeyProvider opens the store with the provider's
// key, minting one when neither key nor database exists yet.
func NewEncryptedStateStoreWithKeyProvider(dataDir string, provider domain.KeyProvider) (*EncryptedStateStore, error) {
	key, err := ensureStateKey(provider, filepath.Join(dataDir, stateDBName))
	if err != nil {
		return nil, fmt.Errorf("failed to load state key: %w", err)
	}
	return NewEncryptedStateStore(dataDir, key)
}

func (s *EncryptedStateStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS favorites (
		display_key TEXT NOT NULL,
		position INTEGER NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		refresh_mhz INTEGER NOT NULL,
		hidpi INTEGER NOT NULL,
		PRIMARY KEY (display_key, position)
	);

	CREATE TABLE IF NOT EXISTS previous_mode (
		display_key TEXT PRIMARY KEY,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		refresh_mhz INTEGER NOT NULL,
		hidpi INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS risk_ack (
		display_key TEXT NOT NULL,
		signature TEXT NOT NULL,
		acknowledged_at INTEGER NOT NULL,
		PRIMARY KEY (display_key, signature)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Favorites returns the stored favorites in insertion order.
func (s *EncryptedStateStore) Favorites(displayKey string) ([]domain.StoredMode, error) {
	rows, err := s.db.Query(`
		SELECT width, height, refresh_mhz, hidpi FROM favorites
		WHERE display_key = ? ORDER BY position`, displayKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	var list []domain.StoredMode
	for rows.Next() {
		var m domain.StoredMode
		if err := rows.Scan(&m.Width, &m.Height, &m.RefreshMilliHz, &m.HiDPI); err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return domain.NormalizeFavorites(list), nil
}

// SetFavorites replaces the favorites list for a display in one transaction.
func (s *EncryptedStateStore) SetFavorites(displayKey string, list []domain.StoredMode) error {
	normalized := domain.NormalizeFavorites(list)
	return s.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM favorites WHERE display_key = ?`, displayKey); err != nil {
			return err
		}
		for i, m := range normalized {
			_, err := tx.Exec(`
				INSERT INTO favorites (display_key, position, width, height, refresh_mhz, hidpi)
				VALUES (?, ?, ?, ?, ?, ?)`,
				displayKey, i, m.Width, m.Height, m.RefreshMilliHz, m.HiDPI)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// PreviousMode returns the stored previous mode, nil if none.
func (s *EncryptedStateStore) PreviousMode(displayKey string) (*domain.StoredMode, error) {
	var m domain.StoredMode
	err := s.db.QueryRow(`
		SELECT width, height, refresh_mhz, hidpi FROM previous_mode WHERE display_key = ?`,
		displayKey).Scan(&m.Width, &m.Height, &m.RefreshMilliHz, &m.HiDPI)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query previous mode: %w", err)
	}
	return &m, nil
}

// SetPreviousMode replaces the previous mode for a display.
func (s *EncryptedStateStore) SetPreviousMode(displayKey string, mode domain.StoredMode) error {
	return s.inTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT OR REPLACE INTO previous_mode (display_key, width, height, refresh_mhz, hidpi, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			displayKey, mode.Width, mode.Height, mode.RefreshMilliHz, mode.HiDPI, time.Now().Unix())
		return err
	})
}

// IsRiskAcknowledged reports whether the (display, mode) pair was confirmed.
func (s *EncryptedStateStore) IsRiskAcknowledged(displayKey string, mode domain.StoredMode) (bool, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM risk_ack WHERE display_key = ? AND signature = ?`,
		displayKey, mode.Key()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query risk acknowledgement: %w", err)
	}
	return n > 0, nil
}

// AcknowledgeRisk records a confirmation. Re-acknowledging keeps the first timestamp.
func (s *EncryptedStateStore) AcknowledgeRisk(displayKey string, mode domain.StoredMode) error {
	return s.inTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT OR IGNORE INTO risk_ack (display_key, signature, acknowledged_at)
			VALUES (?, ?, ?)`,
			displayKey, mode.Key(), time.Now().Unix())
		return err
	})
}

// Path returns the database file path.
func (s *EncryptedStateStore) Path() string {
	return s.dbPath
}

// Close releases the database connection.
func (s *EncryptedStateStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *EncryptedStateStore) inTx(fn func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit state: %w", err)
	}
	return nil
}

// Ensure EncryptedStateStore implements domain.StateStore.
var _ domain.StateStore = (*EncryptedStateStore)(nil)
