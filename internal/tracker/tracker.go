// Package tracker is the event ingestion dispatcher. Each storefront
// lifecycle event flows through one Handle method which gates it (bot,
// identity, dedup window) and issues the matching counter increments.
// Tracking is best-effort: a failed increment is logged and dropped,
// never surfaced to the triggering request.
package tracker

import (
	"fmt"
	"time"

	"log/slog"

	"storepulse/internal/bots"
	"storepulse/internal/carts"
	"storepulse/internal/config"
	"storepulse/internal/metrics"
	"storepulse/internal/sources"
	"storepulse/internal/transients"
	"storepulse/internal/visitors"
)

// Dedup event kinds used in suppression keys.
const (
	dedupView     = "view"
	dedupCheckout = "checkout"
)

// Tracker routes lifecycle events to counter updates.
type Tracker struct {
	metrics    *metrics.Store
	transients *transients.Store
	carts      *carts.Store
	notifier   *Notifier
	cfg        *config.Config
	logger     *slog.Logger
	disabled   bool
}

func NewTracker(
	metricStore *metrics.Store,
	transientStore *transients.Store,
	cartStore *carts.Store,
	notifier *Notifier,
	cfg *config.Config,
	logger *slog.Logger,
) *Tracker {
	return &Tracker{
		metrics:    metricStore,
		transients: transientStore,
		carts:      cartStore,
		notifier:   notifier,
		cfg:        cfg,
		logger:     logger,
	}
}

// Disable turns every Handle method into a no-op. Used when a required
// storefront dependency is missing at startup.
func (t *Tracker) Disable() {
	t.disabled = true
}

// Disabled reports whether tracking is switched off.
func (t *Tracker) Disabled() bool {
	return t.disabled
}

// Notifier exposes the notification hub so external consumers can
// subscribe to tracked events.
func (t *Tracker) Notifier() *Notifier {
	return t.notifier
}

// HandleProductViewed counts one product detail view. Repeat views by
// the same visitor inside the dedup window are suppressed.
func (t *Tracker) HandleProductViewed(event ProductViewed) error {
	if t.disabled || event.EntityID == "" {
		return nil
	}
	if bots.IsBot(event.Client) || !t.countable(event.Visitor) {
		return nil
	}

	dedupKey := transients.DedupKey(dedupView, event.Visitor.ID, event.EntityID)
	seen, err := t.transients.Exists(dedupKey)
	if err != nil {
		return fmt.Errorf("tracker: dedup check failed for view: %w", err)
	}
	if seen {
		return nil
	}

	today := metrics.DayBucket(time.Now())
	if err := t.incrementBoth(event.EntityID, metrics.MetricViews, today, 1); err != nil {
		return err
	}

	if err := t.transients.Set(dedupKey, "1", t.cfg.ViewDedupWindow()); err != nil {
		t.logger.Error("Failed to record view dedup window",
			slog.String("entity", event.EntityID),
			slog.Any("error", err))
	}

	tag := sources.Attribute(event.Referrer, t.cfg.SiteURL)
	if err := t.metrics.IncrementCount(event.EntityID, metrics.SourceMetric(tag), today, 1); err != nil {
		t.logger.Error("Failed to increment source counter",
			slog.String("entity", event.EntityID),
			slog.String("source", tag),
			slog.Any("error", err))
	}

	t.notifier.Emit(NotifyEntityViewed, event)
	return nil
}

// HandleCheckoutOpened counts one checkout open per visitor per dedup
// window, crediting every entity in the cart.
func (t *Tracker) HandleCheckoutOpened(event CheckoutOpened) error {
	if t.disabled || len(event.Items) == 0 || event.OnConfirmationPage {
		return nil
	}
	if bots.IsBot(event.Client) || !t.countable(event.Visitor) {
		return nil
	}

	dedupKey := transients.DedupKey(dedupCheckout, event.Visitor.ID, "")
	seen, err := t.transients.Exists(dedupKey)
	if err != nil {
		return fmt.Errorf("tracker: dedup check failed for checkout: %w", err)
	}
	if seen {
		return nil
	}

	today := metrics.DayBucket(time.Now())
	for _, line := range event.Items {
		if line.EntityID == "" {
			continue
		}
		if err := t.incrementBoth(line.EntityID, metrics.MetricCheckouts, today, 1); err != nil {
			t.logger.Error("Failed to count checkout line",
				slog.String("entity", line.EntityID),
				slog.Any("error", err))
		}
	}

	if err := t.transients.Set(dedupKey, "1", t.cfg.CheckoutDedupWindow()); err != nil {
		t.logger.Error("Failed to record checkout dedup window",
			slog.String("visitor", event.Visitor.ID),
			slog.Any("error", err))
	}
	return nil
}

// HandleAddedToCart counts an add-to-cart. Repeat adds are legitimate
// signal, so there is no dedup window.
func (t *Tracker) HandleAddedToCart(event AddedToCart) error {
	if t.disabled || event.EntityID == "" {
		return nil
	}
	if bots.IsBot(event.Client) || !t.countable(event.Visitor) {
		return nil
	}

	today := metrics.DayBucket(time.Now())
	if err := t.incrementBoth(event.EntityID, metrics.MetricAddToCart, today, 1); err != nil {
		return err
	}

	t.notifier.Emit(NotifyEntityAddedToCart, event)
	return nil
}

// HandleOrderCompleted accumulates donation counts and revenue per
// line item. The order pipeline is trusted, so there is no bot or
// identity gating. One bad line never aborts the rest.
func (t *Tracker) HandleOrderCompleted(event OrderCompleted) error {
	if t.disabled {
		return nil
	}

	today := metrics.DayBucket(time.Now())
	for _, line := range event.Lines {
		if line.EntityID == "" {
			t.logger.Warn("Skipping order line without entity",
				slog.String("order", event.OrderID))
			continue
		}
		if line.Total.IsNegative() {
			t.logger.Warn("Skipping order line with negative total",
				slog.String("order", event.OrderID),
				slog.String("entity", line.EntityID))
			continue
		}

		if err := t.incrementBoth(line.EntityID, metrics.MetricDonations, today, 1); err != nil {
			t.logger.Error("Failed to count order line",
				slog.String("order", event.OrderID),
				slog.String("entity", line.EntityID),
				slog.Any("error", err))
			continue
		}

		if err := t.metrics.Increment(line.EntityID, metrics.MetricRevenue, metrics.BucketLifetime, line.Total); err != nil {
			t.logger.Error("Failed to accumulate lifetime revenue",
				slog.String("order", event.OrderID),
				slog.String("entity", line.EntityID),
				slog.Any("error", err))
		}
		if err := t.metrics.Increment(line.EntityID, metrics.MetricRevenue, today, line.Total); err != nil {
			t.logger.Error("Failed to accumulate daily revenue",
				slog.String("order", event.OrderID),
				slog.String("entity", line.EntityID),
				slog.Any("error", err))
		}
	}

	t.notifier.Emit(NotifyOrderTracked, event)
	return nil
}

// HandleCartUpdated replaces the visitor's cart snapshot. System and
// admin identities never leave snapshots behind.
func (t *Tracker) HandleCartUpdated(event CartUpdated) error {
	if t.disabled || len(event.Snapshot.Items) == 0 {
		return nil
	}
	if bots.IsBot(event.Client) || !t.countable(event.Visitor) {
		return nil
	}

	return t.carts.Save(event.Visitor.ID, event.Snapshot)
}

// countable reports whether the identity qualifies for tracking.
// System traffic is never counted; admins only when the resolver let
// them through as a tracked kind.
func (t *Tracker) countable(identity visitors.Identity) bool {
	return !identity.IsSystem() && !identity.IsAdmin() && identity.ID != ""
}

// incrementBoth bumps the lifetime counter and the daily bucket for
// one metric by n.
func (t *Tracker) incrementBoth(entityID, metric, today string, n int64) error {
	if err := t.metrics.IncrementCount(entityID, metric, metrics.BucketLifetime, n); err != nil {
		return fmt.Errorf("tracker: lifetime %s increment failed for %s: %w", metric, entityID, err)
	}
	if err := t.metrics.IncrementCount(entityID, metric, today, n); err != nil {
		return fmt.Errorf("tracker: daily %s increment failed for %s: %w", metric, entityID, err)
	}
	return nil
}
