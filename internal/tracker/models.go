package tracker

import (
	"github.com/shopspring/decimal"

	"storepulse/internal/bots"
	"storepulse/internal/carts"
	"storepulse/internal/visitors"
)

// ProductViewed fires when a catalog detail page renders.
type ProductViewed struct {
	EntityID string
	Visitor  visitors.Identity
	Client   bots.Client
	Referrer string
}

// CartLine is one entity/quantity pair inside a cart-scoped event.
type CartLine struct {
	EntityID string
	Quantity int
}

// CheckoutOpened fires when the checkout page renders.
type CheckoutOpened struct {
	Visitor            visitors.Identity
	Client             bots.Client
	Items              []CartLine
	OnConfirmationPage bool
}

// AddedToCart fires when an item lands in the cart.
type AddedToCart struct {
	EntityID string
	Quantity int
	Visitor  visitors.Identity
	Client   bots.Client
}

// OrderLine is one completed-order line item with its settled total.
type OrderLine struct {
	EntityID string
	Quantity int
	Total    decimal.Decimal
}

// OrderCompleted fires server-side when an order reaches its completed
// status. It carries no client metadata: the order pipeline is trusted.
type OrderCompleted struct {
	OrderID string
	Lines   []OrderLine
}

// CartUpdated fires whenever the cart contents change.
type CartUpdated struct {
	Visitor  visitors.Identity
	Client   bots.Client
	Snapshot carts.Snapshot
}
