package tracker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storepulse/internal/testsupport"
	"storepulse/internal/tracker"
)

func TestNotifier(t *testing.T) {
	t.Run("delivers to every subscriber of the name", func(t *testing.T) {
		notifier := tracker.NewNotifier(testsupport.GetLogger())

		first, second, other := 0, 0, 0
		notifier.Subscribe(tracker.NotifyEntityViewed, func(payload any) { first++ })
		notifier.Subscribe(tracker.NotifyEntityViewed, func(payload any) { second++ })
		notifier.Subscribe(tracker.NotifyOrderTracked, func(payload any) { other++ })

		notifier.Emit(tracker.NotifyEntityViewed, "payload")

		assert.Equal(t, 1, first)
		assert.Equal(t, 1, second)
		assert.Equal(t, 0, other)
	})

	t.Run("a panicking listener does not stop delivery", func(t *testing.T) {
		notifier := tracker.NewNotifier(testsupport.GetLogger())

		delivered := false
		notifier.Subscribe(tracker.NotifyEntityViewed, func(payload any) { panic("listener bug") })
		notifier.Subscribe(tracker.NotifyEntityViewed, func(payload any) { delivered = true })

		assert.NotPanics(t, func() {
			notifier.Emit(tracker.NotifyEntityViewed, nil)
		})
		assert.True(t, delivered)
	})

	t.Run("emit with no subscribers is a no-op", func(t *testing.T) {
		notifier := tracker.NewNotifier(testsupport.GetLogger())
		assert.NotPanics(t, func() {
			notifier.Emit(tracker.NotifyOrderTracked, nil)
		})
	})
}
