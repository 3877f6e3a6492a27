// Package transients implements the ephemeral TTL key-value space used
// for dedup markers, cart snapshots and cached results. Expiry is
// advisory at the storage level: every read checks ExpiresAt, so an
// expired-but-not-yet-purged record behaves exactly like a missing one.
package transients

import (
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// Key prefixes for ephemeral record families. The cleanup job treats
// rows with these prefixes but no expiry as orphaned.
const (
	DedupPrefix = "dedup:"
	CartPrefix  = "cart:"
)

// Transient is a TTL-bound key-value record.
type Transient struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Key       string    `gorm:"uniqueIndex;size:191;not null"`
	Value     string    `gorm:"type:text"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DedupKey builds the suppression key for one visitor/entity/event-kind
// combination. Entity may be empty for visitor-wide windows (checkout).
func DedupKey(kind, visitor, entity string) string {
	if entity == "" {
		return DedupPrefix + kind + ":" + visitor
	}
	return DedupPrefix + kind + ":" + visitor + ":" + entity
}

// CartKey builds the snapshot key for a visitor's cart.
func CartKey(visitor string) string {
	return CartPrefix + visitor
}

// Store reads and writes transient records.
type Store struct {
	dbManager cartridge.DBManager
	logger    *slog.Logger
}

func NewStore(dbManager cartridge.DBManager, logger *slog.Logger) *Store {
	return &Store{
		dbManager: dbManager,
		logger:    logger,
	}
}

// Set stores value under key with the given TTL, superseding any
// previous record for the key.
func (s *Store) Set(key, value string, ttl time.Duration) error {
	if key == "" {
		return fmt.Errorf("transients: empty key")
	}
	if ttl <= 0 {
		return fmt.Errorf("transients: non-positive ttl for %s", key)
	}

	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	db := s.dbManager.GetConnection()
	return sqlite.PerformWrite(s.logger, db, func(tx *gorm.DB) error {
		query := `
			INSERT INTO transients (key, value, expires_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (key) DO UPDATE SET
				value = ?,
				expires_at = ?,
				updated_at = ?
		`
		return tx.Exec(query, key, value, expiresAt, now, now, value, expiresAt, now).Error
	})
}

// Get returns the value for key. Expired records are reported as absent
// even when the row still physically exists.
func (s *Store) Get(key string) (string, bool, error) {
	db := s.dbManager.GetConnection()

	var record Transient
	err := db.Where("key = ?", key).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("transients: failed to read %s: %w", key, err)
	}

	if !record.ExpiresAt.IsZero() && !record.ExpiresAt.After(time.Now().UTC()) {
		return "", false, nil
	}
	return record.Value, true, nil
}

// Exists reports whether a live (unexpired) record is present for key.
func (s *Store) Exists(key string) (bool, error) {
	_, ok, err := s.Get(key)
	return ok, err
}

// Delete removes the record for key, expired or not.
func (s *Store) Delete(key string) error {
	db := s.dbManager.GetConnection()
	return sqlite.PerformWrite(s.logger, db, func(tx *gorm.DB) error {
		return tx.Where("key = ?", key).Delete(&Transient{}).Error
	})
}

// PurgeExpired physically removes up to batchSize expired records and
// returns how many were deleted. Records without an expiry are left
// for PurgeOrphans.
func (s *Store) PurgeExpired(batchSize int) (int64, error) {
	db := s.dbManager.GetConnection()
	now := time.Now().UTC()

	var deleted int64
	err := sqlite.PerformWrite(s.logger, db, func(tx *gorm.DB) error {
		result := tx.Where("expires_at <= ? AND expires_at != ?", now, time.Time{}).
			Limit(batchSize).
			Delete(&Transient{})
		deleted = result.RowsAffected
		return result.Error
	})
	return deleted, err
}

// PurgeOrphans removes ephemeral-prefixed records that lost their
// expiry. A dedup or cart row without an expiry can never expire on its
// own and would otherwise linger forever.
func (s *Store) PurgeOrphans(batchSize int) (int64, error) {
	db := s.dbManager.GetConnection()

	var deleted int64
	err := sqlite.PerformWrite(s.logger, db, func(tx *gorm.DB) error {
		result := tx.Where("(key LIKE ? OR key LIKE ?) AND (expires_at IS NULL OR expires_at = ?)",
			DedupPrefix+"%", CartPrefix+"%", time.Time{}).
			Limit(batchSize).
			Delete(&Transient{})
		deleted = result.RowsAffected
		return result.Error
	})
	return deleted, err
}
