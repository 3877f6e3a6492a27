package settings_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storepulse/internal/settings"
	"storepulse/internal/testsupport"
)

func TestSetupDefaultSettings(t *testing.T) {
	t.Run("seeds defaults once", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()

		require.NoError(t, settings.SetupDefaultSettings(db))

		version, err := settings.GetSetting(db, settings.KeySchemaVersion)
		require.NoError(t, err)
		assert.Equal(t, settings.SchemaVersion, version)

		tracking, err := settings.GetSetting(db, settings.KeyAdminTracking)
		require.NoError(t, err)
		assert.Equal(t, "false", tracking)
	})

	t.Run("does not overwrite existing values", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()

		require.NoError(t, settings.SetupDefaultSettings(db))
		require.NoError(t, settings.UpdateSetting(db, settings.KeyAdminTracking, "true"))
		require.NoError(t, settings.SetupDefaultSettings(db))

		value, err := settings.GetSetting(db, settings.KeyAdminTracking)
		require.NoError(t, err)
		assert.Equal(t, "true", value, "re-running setup must keep operator changes")
	})
}

func TestIsAdminTrackingEnabled(t *testing.T) {
	t.Run("reflects setting updates through the cache", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		require.NoError(t, settings.SetupDefaultSettings(db))

		enabled, err := settings.IsAdminTrackingEnabled()
		require.NoError(t, err)
		assert.False(t, enabled)

		require.NoError(t, settings.UpdateSetting(db, settings.KeyAdminTracking, "true"))

		enabled, err = settings.IsAdminTrackingEnabled()
		require.NoError(t, err)
		assert.True(t, enabled)
	})
}

func TestLastTableCheck(t *testing.T) {
	t.Run("zero when never recorded", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		require.NoError(t, settings.SetupDefaultSettings(db))

		lastCheck, err := settings.GetLastTableCheck(db)
		require.NoError(t, err)
		assert.True(t, lastCheck.IsZero())
	})

	t.Run("round trips the timestamp at second precision", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		require.NoError(t, settings.SetupDefaultSettings(db))

		now := time.Now().UTC().Truncate(time.Second)
		require.NoError(t, settings.SetLastTableCheck(db, now))

		lastCheck, err := settings.GetLastTableCheck(db)
		require.NoError(t, err)
		assert.True(t, lastCheck.Equal(now))
	})
}

func TestNotices(t *testing.T) {
	t.Run("raise keeps the first occurrence and clear removes it", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		require.NoError(t, settings.SetupDefaultSettings(db))

		require.NoError(t, settings.RaiseNotice(db, settings.NoticeMissingStorefront))

		first, err := settings.GetSetting(db, settings.NoticeMissingStorefront)
		require.NoError(t, err)
		require.NotEmpty(t, first)

		// Raising again must not reset the recorded timestamp
		require.NoError(t, settings.RaiseNotice(db, settings.NoticeMissingStorefront))
		again, err := settings.GetSetting(db, settings.NoticeMissingStorefront)
		require.NoError(t, err)
		assert.Equal(t, first, again)

		require.NoError(t, settings.ClearNotice(db, settings.NoticeMissingStorefront))
		_, err = settings.GetSetting(db, settings.NoticeMissingStorefront)
		assert.Error(t, err)
	})

	t.Run("listing returns raised notices only", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		require.NoError(t, settings.SetupDefaultSettings(db))

		notices, err := settings.ListNotices(db)
		require.NoError(t, err)
		assert.Empty(t, notices, "configuration rows must not appear as notices")

		require.NoError(t, settings.RaiseNotice(db, settings.NoticePrefix+"degraded_storage"))
		require.NoError(t, settings.RaiseNotice(db, settings.NoticeMissingStorefront))

		notices, err = settings.ListNotices(db)
		require.NoError(t, err)
		require.Len(t, notices, 2)
		assert.Equal(t, settings.NoticePrefix+"degraded_storage", notices[0].Key)
		assert.Equal(t, settings.NoticeMissingStorefront, notices[1].Key)
		assert.NotEmpty(t, notices[0].Value)

		require.NoError(t, settings.ClearNotice(db, settings.NoticePrefix+"degraded_storage"))
		notices, err = settings.ListNotices(db)
		require.NoError(t, err)
		require.Len(t, notices, 1)
		assert.Equal(t, settings.NoticeMissingStorefront, notices[0].Key)
	})
}
