package settings

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge/cache"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// Setting represents a configuration item in the database
type Setting struct {
	ID        uint      `gorm:"primaryKey"`
	Key       string    `gorm:"uniqueIndex;not null"`
	Value     string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:milli"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:milli"`
}

// Setting keys
const (
	KeySchemaVersion  = "db_schema_version"
	KeyLastTableCheck = "last_table_check"
	KeyAdminTracking  = "admin_tracking"
)

// NoticePrefix marks settings rows that are operator-facing notices
// rather than configuration.
const NoticePrefix = "notice:"

// NoticeMissingStorefront flags that tracking was requested before the
// storefront dependencies were wired in.
const NoticeMissingStorefront = NoticePrefix + "missing_storefront"

// SchemaVersion is bumped whenever the table layout changes.
const SchemaVersion = "1"

var adminTrackingCache *cache.Cache[string, bool]

// SetupDefaultSettings initializes default settings in the database
func SetupDefaultSettings(dbConn *gorm.DB) error {
	settings := []Setting{
		{Key: KeySchemaVersion, Value: SchemaVersion},
		{Key: KeyAdminTracking, Value: "false"},
	}
	err := sqlite.PerformWrite(slog.Default(), dbConn, func(tx *gorm.DB) error {
		for _, setting := range settings {
			// Use raw SQL for upsert
			err := tx.Exec(`
                INSERT INTO settings (key, value, created_at, updated_at)
                VALUES (?, ?, ?, ?)
                ON CONFLICT(key) DO NOTHING
            `, setting.Key, setting.Value, time.Now().UTC(), time.Now().UTC()).Error
			if err != nil {
				slog.Default().Error("Failed to upsert setting", slog.String("key", setting.Key), slog.Any("error", err))
				return fmt.Errorf("failed to upsert setting %s: %w", setting.Key, err)
			}
		}
		return nil
	})

	// Initialize the cache
	loadCache(dbConn, slog.Default())

	return err
}

// IsAdminTrackingEnabled reports whether admin visitors should be
// counted. Reads go through a short-lived cache since the tracker
// checks this on every event.
func IsAdminTrackingEnabled() (bool, error) {
	// If the cache isn't initialized yet, admins are not tracked
	if adminTrackingCache == nil {
		return false, nil
	}

	enabled, err := adminTrackingCache.Get(KeyAdminTracking)
	if err != nil {
		return false, fmt.Errorf("failed to check admin tracking: %w", err)
	}
	return enabled, nil
}

// GetSetting retrieves a setting value from the database
func GetSetting(dbConn *gorm.DB, key string) (string, error) {
	var setting Setting
	result := dbConn.Where("key = ?", key).First(&setting)

	if result.Error != nil {
		return "", result.Error
	}

	return setting.Value, nil
}

// UpdateSetting updates a setting in the database using a transaction
func UpdateSetting(dbConn *gorm.DB, key string, value string) error {
	err := sqlite.PerformWrite(slog.Default(), dbConn, func(tx *gorm.DB) error {
		result := tx.Model(&Setting{}).Where("key = ?", key).Update("value", value)
		if result.Error != nil {
			return fmt.Errorf("failed to update setting: %w", result.Error)
		}

		// If no rows were affected, the setting might not exist - try to create it
		if result.RowsAffected == 0 {
			setting := Setting{
				Key:   key,
				Value: value,
			}
			if err := tx.Create(&setting).Error; err != nil {
				return fmt.Errorf("failed to create setting: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Clear and reload the cache after successful update
	if adminTrackingCache != nil {
		adminTrackingCache.Clear()
	}
	loadCache(dbConn, slog.Default())

	return nil
}

// CreateOrUpdateSetting creates a new setting or updates an existing one
func CreateOrUpdateSetting(dbConn *gorm.DB, key string, value string) error {
	return UpdateSetting(dbConn, key, value)
}

// SetLastTableCheck records when table maintenance last ran.
func SetLastTableCheck(dbConn *gorm.DB, t time.Time) error {
	return UpdateSetting(dbConn, KeyLastTableCheck, strconv.FormatInt(t.UTC().Unix(), 10))
}

// GetLastTableCheck returns when table maintenance last ran, or the
// zero time when it never has.
func GetLastTableCheck(dbConn *gorm.DB) (time.Time, error) {
	value, err := GetSetting(dbConn, KeyLastTableCheck)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}

	unix, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid last_table_check value %q: %w", value, err)
	}
	return time.Unix(unix, 0).UTC(), nil
}

// RaiseNotice records an operator-facing notice, keeping the first
// occurrence timestamp.
func RaiseNotice(dbConn *gorm.DB, key string) error {
	return sqlite.PerformWrite(slog.Default(), dbConn, func(tx *gorm.DB) error {
		now := time.Now().UTC()
		return tx.Exec(`
            INSERT INTO settings (key, value, created_at, updated_at)
            VALUES (?, ?, ?, ?)
            ON CONFLICT(key) DO NOTHING
        `, key, now.Format(time.RFC3339), now, now).Error
	})
}

// ListNotices returns all raised operator-facing notices, oldest key
// first. The value of each notice is its first-raised timestamp.
func ListNotices(dbConn *gorm.DB) ([]Setting, error) {
	var notices []Setting
	err := dbConn.Where("key LIKE ?", NoticePrefix+"%").
		Order("key ASC").
		Find(&notices).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notices: %w", err)
	}
	return notices, nil
}

// ClearNotice removes an operator-facing notice.
func ClearNotice(dbConn *gorm.DB, key string) error {
	return sqlite.PerformWrite(slog.Default(), dbConn, func(tx *gorm.DB) error {
		return tx.Where("key = ?", key).Delete(&Setting{}).Error
	})
}

func loadCache(dbConn *gorm.DB, logger *slog.Logger) {
	fetchFunc := func(key string) (bool, error) {
		var value string
		err := dbConn.WithContext(context.Background()).Raw("SELECT value FROM settings WHERE key = ? LIMIT 1", key).Scan(&value).Error
		if err != nil {
			return false, err
		}
		return value == "true" || value == "1", nil
	}
	adminTrackingCache = cache.NewCache[string, bool](logger, 5*time.Minute, fetchFunc)
}
