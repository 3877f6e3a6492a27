// Package carts persists per-visitor cart snapshots in the transient
// key-value space. Each update replaces the previous snapshot whole.
package carts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"storepulse/internal/transients"
)

// Item is one cart line in a snapshot.
type Item struct {
	EntityID string `json:"entity_id"`
	Quantity int    `json:"quantity"`
}

// Snapshot is the latest observed cart state for one visitor.
type Snapshot struct {
	Items     []Item          `json:"items"`
	Total     decimal.Decimal `json:"total"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store saves and loads snapshots.
type Store struct {
	transients *transients.Store
	ttl        time.Duration
}

func NewStore(transientStore *transients.Store, ttl time.Duration) *Store {
	return &Store{
		transients: transientStore,
		ttl:        ttl,
	}
}

// Save replaces the visitor's snapshot. The previous snapshot is
// superseded, not merged.
func (s *Store) Save(visitor string, snapshot Snapshot) error {
	if visitor == "" {
		return fmt.Errorf("carts: empty visitor")
	}
	if snapshot.UpdatedAt.IsZero() {
		snapshot.UpdatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("carts: failed to encode snapshot for %s: %w", visitor, err)
	}
	return s.transients.Set(transients.CartKey(visitor), string(payload), s.ttl)
}

// Load returns the visitor's snapshot, reporting false when none is
// live.
func (s *Store) Load(visitor string) (Snapshot, bool, error) {
	value, ok, err := s.transients.Get(transients.CartKey(visitor))
	if err != nil || !ok {
		return Snapshot{}, false, err
	}

	var snapshot Snapshot
	if err := json.Unmarshal([]byte(value), &snapshot); err != nil {
		return Snapshot{}, false, fmt.Errorf("carts: corrupt snapshot for %s: %w", visitor, err)
	}
	return snapshot, true, nil
}
