package v1

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"storepulse/internal/metrics"
)

// MetricsHandler exposes read-only counter values for the dashboard
// and export layers.
type MetricsHandler struct {
	metrics *metrics.Store
}

func NewMetricsHandler(metricStore *metrics.Store) *MetricsHandler {
	return &MetricsHandler{
		metrics: metricStore,
	}
}

// GetCounterAction returns one counter value. Bucket defaults to
// lifetime; pass a YYYY-MM-DD date for a daily bucket.
func (h *MetricsHandler) GetCounterAction(ctx *cartridge.Context) error {
	entityID := ctx.Ctx.Params("entity")
	metric := ctx.Query("metric", metrics.MetricViews)
	bucket := ctx.Query("bucket", metrics.BucketLifetime)

	value, err := h.metrics.Get(entityID, metric, bucket)
	if err != nil {
		ctx.Logger.Error("Failed to read counter",
			slog.String("entity", entityID),
			slog.String("metric", metric),
			slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read counter",
		})
	}

	return ctx.JSON(fiber.Map{
		"entity": entityID,
		"metric": metric,
		"bucket": bucket,
		"value":  value.String(),
	})
}

// GetSummaryAction sums a metric's daily buckets over an inclusive
// date range.
func (h *MetricsHandler) GetSummaryAction(ctx *cartridge.Context) error {
	entityID := ctx.Ctx.Params("entity")
	metric := ctx.Query("metric", metrics.MetricViews)
	from := ctx.Query("from", "")
	to := ctx.Query("to", "")

	if from == "" || to == "" {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "from and to dates are required",
		})
	}

	total, err := h.metrics.SumRange(entityID, metric, from, to)
	if err != nil {
		ctx.Logger.Error("Failed to sum metric range",
			slog.String("entity", entityID),
			slog.String("metric", metric),
			slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to sum metric range",
		})
	}

	return ctx.JSON(fiber.Map{
		"entity": entityID,
		"metric": metric,
		"from":   from,
		"to":     to,
		"total":  total.String(),
	})
}
