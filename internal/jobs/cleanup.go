package jobs

import (
	"time"

	"log/slog"

	"storepulse/internal/config"
	"storepulse/internal/metrics"
	"storepulse/internal/transients"
)

// CleanupJob prunes daily counter buckets older than the retention
// window and purges dead transient records. Lifetime counters are
// never touched.
type CleanupJob struct {
	metrics    *metrics.Store
	transients *transients.Store
	logger     *slog.Logger
	cfg        *config.Config
}

func NewCleanupJob(metricStore *metrics.Store, transientStore *transients.Store, logger *slog.Logger, cfg *config.Config) *CleanupJob {
	return &CleanupJob{
		metrics:    metricStore,
		transients: transientStore,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run walks entities in pages, deleting expired daily buckets up to
// the per-run cap, then sweeps the transient space. A failed page is
// logged and skipped; the run always terminates. When the cap is hit
// the remainder is left for the next scheduled run, which applies the
// same age cutoff.
func (j *CleanupJob) Run() error {
	cutoff := metrics.DayBucket(time.Now().AddDate(0, 0, -j.cfg.RetentionDays))

	j.logger.Info("Starting counter retention cleanup",
		slog.Int("retention_days", j.cfg.RetentionDays),
		slog.String("cutoff", cutoff))

	deleted := j.pruneOldBuckets(cutoff)
	expired, orphaned := j.sweepTransients()

	j.logger.Info("Cleanup run finished",
		slog.Int("buckets_deleted", deleted),
		slog.Int64("transients_expired", expired),
		slog.Int64("transients_orphaned", orphaned))

	return nil
}

func (j *CleanupJob) pruneOldBuckets(cutoff string) int {
	deleted := 0
	offset := 0
	pageFailures := 0

	for {
		entityIDs, err := j.metrics.EntityPage(offset, j.cfg.CleanupPageSize)
		if err != nil {
			j.logger.Error("Failed to page entities during cleanup",
				slog.Int("offset", offset),
				slog.Any("error", err))
			pageFailures++
			if pageFailures >= 3 {
				break
			}
			offset += j.cfg.CleanupPageSize
			continue
		}
		if len(entityIDs) == 0 {
			break
		}

		for _, entityID := range entityIDs {
			counters, err := j.metrics.DateBucketsBefore(entityID, cutoff)
			if err != nil {
				j.logger.Error("Failed to list old buckets",
					slog.String("entity", entityID),
					slog.Any("error", err))
				continue
			}

			for _, counter := range counters {
				if deleted >= j.cfg.CleanupMaxPerRun {
					j.logger.Info("Cleanup cap reached, deferring remainder to next run",
						slog.Int("cap", j.cfg.CleanupMaxPerRun))
					return deleted
				}
				if err := j.metrics.DeleteBucket(counter.EntityID, counter.Metric, counter.Bucket); err != nil {
					j.logger.Error("Failed to delete expired bucket",
						slog.String("entity", counter.EntityID),
						slog.String("metric", counter.Metric),
						slog.String("bucket", counter.Bucket),
						slog.Any("error", err))
					continue
				}
				deleted++
			}
		}

		offset += j.cfg.CleanupPageSize
	}

	return deleted
}

// sweepTransients removes expired records and ephemeral records whose
// expiry went missing, in bounded batches.
func (j *CleanupJob) sweepTransients() (expired, orphaned int64) {
	batchSize := 1000

	for {
		n, err := j.transients.PurgeExpired(batchSize)
		if err != nil {
			j.logger.Error("Failed to purge expired transients", slog.Any("error", err))
			break
		}
		expired += n
		if n < int64(batchSize) {
			break
		}
		// Small delay between batches to prevent database lock contention
		time.Sleep(100 * time.Millisecond)
	}

	for {
		n, err := j.transients.PurgeOrphans(batchSize)
		if err != nil {
			j.logger.Error("Failed to purge orphaned transients", slog.Any("error", err))
			break
		}
		orphaned += n
		if n < int64(batchSize) {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	return expired, orphaned
}
