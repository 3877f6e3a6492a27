package jobs_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storepulse/internal/config"
	"storepulse/internal/jobs"
	"storepulse/internal/metrics"
	"storepulse/internal/testsupport"
	"storepulse/internal/transients"
)

type cleanupFixture struct {
	job        *jobs.CleanupJob
	metrics    *metrics.Store
	transients *transients.Store
	cfg        *config.Config
}

func newCleanupFixture(t *testing.T, cfg *config.Config) *cleanupFixture {
	t.Helper()

	dbManager, logger := testsupport.SetupTestDBManager(t)
	metricStore := metrics.NewStore(dbManager, logger)
	transientStore := transients.NewStore(dbManager, logger)

	return &cleanupFixture{
		job:        jobs.NewCleanupJob(metricStore, transientStore, logger, cfg),
		metrics:    metricStore,
		transients: transientStore,
		cfg:        cfg,
	}
}

func defaultCleanupConfig() *config.Config {
	return &config.Config{
		Environment:      config.Test,
		RetentionDays:    30,
		CleanupPageSize:  50,
		CleanupMaxPerRun: 5000,
	}
}

func TestCleanupRun(t *testing.T) {
	t.Run("deletes buckets past the cutoff and keeps the rest", func(t *testing.T) {
		f := newCleanupFixture(t, defaultCleanupConfig())
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()

		old := metrics.DayBucket(time.Now().AddDate(0, 0, -31))
		recent := metrics.DayBucket(time.Now().AddDate(0, 0, -29))

		testsupport.SeedCounter(t, db, "p1", metrics.MetricViews, metrics.BucketLifetime, "10")
		testsupport.SeedCounter(t, db, "p1", metrics.MetricViews, old, "4")
		testsupport.SeedCounter(t, db, "p1", metrics.MetricViews, recent, "6")

		require.NoError(t, f.job.Run())

		gone, err := f.metrics.Get("p1", metrics.MetricViews, old)
		require.NoError(t, err)
		assert.True(t, gone.IsZero(), "bucket older than the retention window must be deleted")

		kept, err := f.metrics.Get("p1", metrics.MetricViews, recent)
		require.NoError(t, err)
		assert.Equal(t, "6", kept.String(), "bucket inside the retention window must survive")

		lifetime, err := f.metrics.Get("p1", metrics.MetricViews, metrics.BucketLifetime)
		require.NoError(t, err)
		assert.Equal(t, "10", lifetime.String(), "lifetime counter must never be pruned")
	})

	t.Run("bucket dated exactly at the cutoff survives", func(t *testing.T) {
		f := newCleanupFixture(t, defaultCleanupConfig())
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()

		atCutoff := metrics.DayBucket(time.Now().AddDate(0, 0, -f.cfg.RetentionDays))
		testsupport.SeedCounter(t, db, "p1", metrics.MetricViews, atCutoff, "3")

		require.NoError(t, f.job.Run())

		kept, err := f.metrics.Get("p1", metrics.MetricViews, atCutoff)
		require.NoError(t, err)
		assert.Equal(t, "3", kept.String())
	})

	t.Run("stops early when the per-run cap is hit", func(t *testing.T) {
		cfg := defaultCleanupConfig()
		cfg.CleanupMaxPerRun = 2
		f := newCleanupFixture(t, cfg)
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()

		old := metrics.DayBucket(time.Now().AddDate(0, 0, -40))
		for _, entity := range []string{"a", "b", "c", "d"} {
			testsupport.SeedCounter(t, db, entity, metrics.MetricViews, old, "1")
		}

		require.NoError(t, f.job.Run())

		remaining := 0
		for _, entity := range []string{"a", "b", "c", "d"} {
			value, err := f.metrics.Get(entity, metrics.MetricViews, old)
			require.NoError(t, err)
			if !value.IsZero() {
				remaining++
			}
		}
		assert.Equal(t, 2, remaining, "the cap bounds deletions per run")

		// The next run picks up the remainder with the same cutoff
		require.NoError(t, f.job.Run())
		for _, entity := range []string{"a", "b", "c", "d"} {
			value, err := f.metrics.Get(entity, metrics.MetricViews, old)
			require.NoError(t, err)
			assert.True(t, value.IsZero())
		}
	})

	t.Run("sweeps expired and orphaned transients", func(t *testing.T) {
		f := newCleanupFixture(t, defaultCleanupConfig())
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()

		expired := transients.Transient{
			Key:       "dedup:view:v1:p1",
			Value:     "1",
			ExpiresAt: time.Now().UTC().Add(-time.Hour),
		}
		require.NoError(t, db.Create(&expired).Error)
		orphan := transients.Transient{Key: "cart:v1", Value: "{}"}
		require.NoError(t, db.Create(&orphan).Error)
		require.NoError(t, f.transients.Set("dedup:view:v2:p1", "1", time.Hour))

		require.NoError(t, f.job.Run())

		var count int64
		require.NoError(t, db.Model(&transients.Transient{}).Count(&count).Error)
		assert.Equal(t, int64(1), count, "only the live record survives the sweep")

		_, ok, err := f.transients.Get("dedup:view:v2:p1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("empty database run terminates cleanly", func(t *testing.T) {
		f := newCleanupFixture(t, defaultCleanupConfig())
		require.NoError(t, f.job.Run())
	})
}
