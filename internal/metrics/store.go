package metrics

import (
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Store provides the idempotent increment API over metric counters.
// Increments to the same key serialize through the write transaction;
// increments to different keys carry no ordering guarantee.
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

// Increment adds delta to the counter at (entityID, metric, bucket),
// creating it lazily on first use. Counters are monotonic: negative
// deltas are rejected.
func (s *Store) Increment(entityID, metric, bucket string, delta decimal.Decimal) error {
	if entityID == "" || metric == "" || bucket == "" {
		return fmt.Errorf("metrics: increment requires entity, metric and bucket")
	}
	if delta.IsNegative() {
		return fmt.Errorf("metrics: negative delta %s for %s/%s", delta, entityID, metric)
	}

	db := s.dbManager.GetConnection()
	return sqlite.PerformWrite(s.logger, db, func(tx *gorm.DB) error {
		current, err := readValue(tx, entityID, metric, bucket)
		if err != nil {
			return err
		}

		next := current.Add(delta)
		now := time.Now().UTC()
		query := `
			INSERT INTO metric_counters (entity_id, metric, bucket, value, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (entity_id, metric, bucket) DO UPDATE SET
				value = ?,
				updated_at = ?
		`
		return tx.Exec(query, entityID, metric, bucket, next.String(), now, now, next.String(), now).Error
	})
}

// IncrementCount is a convenience wrapper for whole-number metrics.
func (s *Store) IncrementCount(entityID, metric, bucket string, n int64) error {
	return s.Increment(entityID, metric, bucket, decimal.NewFromInt(n))
}

// Get returns the counter value, or zero when the counter does not exist.
func (s *Store) Get(entityID, metric, bucket string) (decimal.Decimal, error) {
	db := s.dbManager.GetConnection()
	return readValue(db, entityID, metric, bucket)
}

// SumRange sums the daily buckets for a metric between from and to
// (inclusive, YYYY-MM-DD). The lifetime bucket is never included.
func (s *Store) SumRange(entityID, metric, from, to string) (decimal.Decimal, error) {
	db := s.dbManager.GetConnection()

	var counters []Counter
	err := db.Where("entity_id = ? AND metric = ? AND bucket != ? AND bucket >= ? AND bucket <= ?",
		entityID, metric, BucketLifetime, from, to).
		Find(&counters).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("metrics: failed to sum range: %w", err)
	}

	total := decimal.Zero
	for _, c := range counters {
		v, err := decimal.NewFromString(c.Value)
		if err != nil {
			s.logger.Warn("Skipping unparsable counter value",
				slog.String("entity", c.EntityID),
				slog.String("metric", c.Metric),
				slog.String("bucket", c.Bucket))
			continue
		}
		total = total.Add(v)
	}
	return total, nil
}

// DeleteBucket removes one daily bucket. Lifetime counters cannot be
// deleted through this API.
func (s *Store) DeleteBucket(entityID, metric, date string) error {
	if date == BucketLifetime {
		return fmt.Errorf("metrics: refusing to delete lifetime counter for %s/%s", entityID, metric)
	}

	db := s.dbManager.GetConnection()
	return sqlite.PerformWrite(s.logger, db, func(tx *gorm.DB) error {
		return tx.Where("entity_id = ? AND metric = ? AND bucket = ?", entityID, metric, date).
			Delete(&Counter{}).Error
	})
}

// EntityPage returns a stable page of distinct entity ids, ordered so
// the cleanup job can walk all entities across runs.
func (s *Store) EntityPage(offset, limit int) ([]string, error) {
	db := s.dbManager.GetConnection()

	var entityIDs []string
	err := db.Model(&Counter{}).
		Distinct("entity_id").
		Order("entity_id ASC").
		Limit(limit).
		Offset(offset).
		Pluck("entity_id", &entityIDs).Error
	if err != nil {
		return nil, fmt.Errorf("metrics: failed to page entities: %w", err)
	}
	return entityIDs, nil
}

// DateBucketsBefore returns the daily-bucket counters for an entity
// strictly older than cutoff (YYYY-MM-DD). ISO dates compare
// lexicographically, so string comparison is sufficient.
func (s *Store) DateBucketsBefore(entityID, cutoff string) ([]Counter, error) {
	db := s.dbManager.GetConnection()

	var counters []Counter
	err := db.Where("entity_id = ? AND bucket != ? AND bucket < ?", entityID, BucketLifetime, cutoff).
		Order("bucket ASC").
		Find(&counters).Error
	if err != nil {
		return nil, fmt.Errorf("metrics: failed to list old buckets: %w", err)
	}
	return counters, nil
}

func readValue(db *gorm.DB, entityID, metric, bucket string) (decimal.Decimal, error) {
	var counter Counter
	err := db.Where("entity_id = ? AND metric = ? AND bucket = ?", entityID, metric, bucket).
		First(&counter).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("metrics: failed to read counter: %w", err)
	}

	value, err := decimal.NewFromString(counter.Value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("metrics: corrupt counter value %q: %w", counter.Value, err)
	}
	return value, nil
}
