package tracker

import (
	"sync"

	"log/slog"
)

// Notification names published to external listeners.
const (
	NotifyEntityViewed      = "entity.viewed"
	NotifyEntityAddedToCart = "entity.added_to_cart"
	NotifyOrderTracked      = "order.tracked"
)

// Listener receives one notification payload. Listeners run
// synchronously in the emitting request's context and must be fast.
type Listener func(payload any)

// Notifier fans notifications out to subscribed listeners. A panicking
// listener is recovered and logged so it cannot fault the triggering
// request.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
	logger    *slog.Logger
}

func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{
		listeners: make(map[string][]Listener),
		logger:    logger,
	}
}

// Subscribe registers a listener for the named notification.
func (n *Notifier) Subscribe(name string, listener Listener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners[name] = append(n.listeners[name], listener)
}

// Emit delivers the payload to every listener of the named
// notification.
func (n *Notifier) Emit(name string, payload any) {
	n.mu.RLock()
	listeners := n.listeners[name]
	n.mu.RUnlock()

	for _, listener := range listeners {
		n.safeInvoke(name, listener, payload)
	}
}

func (n *Notifier) safeInvoke(name string, listener Listener, payload any) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("Notification listener panicked",
				slog.String("notification", name),
				slog.Any("panic", r))
		}
	}()
	listener(payload)
}
