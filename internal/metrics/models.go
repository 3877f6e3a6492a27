package metrics

import "time"

// Metric names tracked per entity.
const (
	MetricViews     = "views"
	MetricCheckouts = "checkouts"
	MetricAddToCart = "add_to_cart"
	MetricDonations = "donations"
	MetricRevenue   = "revenue"
)

// BucketLifetime is the bucket key for cumulative counters. Lifetime
// counters are never pruned by retention.
const BucketLifetime = "lifetime"

// Counter is one accumulated value keyed by (entity, metric, bucket).
// Bucket is either BucketLifetime or a UTC calendar date (YYYY-MM-DD).
// Value holds a decimal string so that revenue sums stay exact.
type Counter struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	EntityID  string `gorm:"uniqueIndex:idx_entity_metric_bucket;size:64;not null"`
	Metric    string `gorm:"uniqueIndex:idx_entity_metric_bucket;size:64;not null"`
	Bucket    string `gorm:"uniqueIndex:idx_entity_metric_bucket;size:10;not null"`
	Value     string `gorm:"not null;default:'0'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName keeps the table name explicit for the raw upsert queries.
func (Counter) TableName() string {
	return "metric_counters"
}

// SourceMetric builds the metric name for a traffic source tag.
func SourceMetric(tag string) string {
	return "source:" + tag
}

// DayBucket formats a timestamp as its UTC daily bucket key.
func DayBucket(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
