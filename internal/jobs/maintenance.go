package jobs

import (
	"time"

	"log/slog"

	"storepulse/internal/config"
	"storepulse/internal/database"
	"storepulse/internal/settings"
)

// MaintenanceJob re-checks the table layout at most once per
// configured interval, consulting the persisted last-check timestamp
// so restarts do not force redundant migrations.
type MaintenanceJob struct {
	dbManager *database.DBManager
	logger    *slog.Logger
	cfg       *config.Config
}

func NewMaintenanceJob(dbManager *database.DBManager, logger *slog.Logger, cfg *config.Config) *MaintenanceJob {
	return &MaintenanceJob{
		dbManager: dbManager,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run performs the table check when it is due.
func (j *MaintenanceJob) Run() error {
	db := j.dbManager.GetConnection()

	lastCheck, err := settings.GetLastTableCheck(db)
	if err != nil {
		j.logger.Warn("Failed to read last table check, forcing one", slog.Any("error", err))
	}

	interval := time.Duration(j.cfg.TableCheckIntervalMins) * time.Minute
	if !lastCheck.IsZero() && time.Since(lastCheck) < interval {
		j.logger.Debug("Table check not due yet",
			slog.Time("last_check", lastCheck))
		return nil
	}

	j.logger.Info("Running scheduled table check")
	if err := j.dbManager.MigrateDatabase(); err != nil {
		return err
	}

	if err := settings.CreateOrUpdateSetting(db, settings.KeySchemaVersion, settings.SchemaVersion); err != nil {
		j.logger.Error("Failed to record schema version", slog.Any("error", err))
	}
	if err := settings.SetLastTableCheck(db, time.Now()); err != nil {
		j.logger.Error("Failed to record table check timestamp", slog.Any("error", err))
	}
	return nil
}
