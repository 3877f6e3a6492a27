package v1

import (
	"time"

	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"github.com/shopspring/decimal"

	"storepulse/internal/bots"
	"storepulse/internal/carts"
	"storepulse/internal/config"
	"storepulse/internal/settings"
	"storepulse/internal/tracker"
	"storepulse/internal/visitors"
)

// VisitorCookieName stores the anonymous visitor token client-side.
const VisitorCookieName = "storepulse_visitor"

// Event type discriminators accepted by the track endpoint.
const (
	EventProductViewed  = "product_viewed"
	EventCheckoutOpened = "checkout_opened"
	EventAddedToCart    = "added_to_cart"
	EventOrderCompleted = "order_completed"
	EventCartUpdated    = "cart_updated"
)

type TrackLineParams struct {
	EntityID string `json:"entityId"`
	Quantity int    `json:"quantity"`
	Total    string `json:"total"`
}

type TrackContextParams struct {
	System bool   `json:"system"`
	Admin  bool   `json:"admin"`
	UserID string `json:"userId"`
}

type TrackEventParams struct {
	Type               string             `json:"type"`
	EntityID           string             `json:"entityId"`
	Quantity           int                `json:"quantity"`
	Referrer           string             `json:"referrer"`
	OrderID            string             `json:"orderId"`
	OnConfirmationPage bool               `json:"onConfirmationPage"`
	Items              []TrackLineParams  `json:"items"`
	CartTotal          string             `json:"cartTotal"`
	Context            TrackContextParams `json:"context"`
}

// TrackHandler receives storefront lifecycle events over HTTP.
type TrackHandler struct {
	tracker *tracker.Tracker
	cfg     *config.Config
}

func NewTrackHandler(t *tracker.Tracker, cfg *config.Config) *TrackHandler {
	return &TrackHandler{
		tracker: t,
		cfg:     cfg,
	}
}

// TrackAction ingests one lifecycle event. Tracking is best-effort so
// the response is 202 regardless of outcome; failures are logged, never
// surfaced to the storefront.
func (h *TrackHandler) TrackAction(ctx *cartridge.Context) error {
	var params TrackEventParams
	if err := ctx.Ctx.BodyParser(&params); err != nil {
		ctx.Logger.Debug("Failed to parse track request", slog.Any("error", err))
		return ctx.SendStatus(http.StatusAccepted)
	}

	client := clientFromRequest(ctx.Ctx)
	identity := h.resolveIdentity(ctx, params.Context)

	if identity.Minted && !bots.IsBot(client) {
		h.issueVisitorCookie(ctx.Ctx, identity.ID)
	}

	if err := h.dispatch(params, identity, client); err != nil {
		ctx.Logger.Error("Failed to track event",
			slog.String("type", params.Type),
			slog.Any("error", err))
	}

	return ctx.SendStatus(http.StatusAccepted)
}

func (h *TrackHandler) dispatch(params TrackEventParams, identity visitors.Identity, client bots.Client) error {
	switch params.Type {
	case EventProductViewed:
		return h.tracker.HandleProductViewed(tracker.ProductViewed{
			EntityID: params.EntityID,
			Visitor:  identity,
			Client:   client,
			Referrer: params.Referrer,
		})

	case EventCheckoutOpened:
		return h.tracker.HandleCheckoutOpened(tracker.CheckoutOpened{
			Visitor:            identity,
			Client:             client,
			Items:              cartLines(params.Items),
			OnConfirmationPage: params.OnConfirmationPage,
		})

	case EventAddedToCart:
		return h.tracker.HandleAddedToCart(tracker.AddedToCart{
			EntityID: params.EntityID,
			Quantity: params.Quantity,
			Visitor:  identity,
			Client:   client,
		})

	case EventOrderCompleted:
		return h.tracker.HandleOrderCompleted(tracker.OrderCompleted{
			OrderID: params.OrderID,
			Lines:   orderLines(params.Items),
		})

	case EventCartUpdated:
		return h.tracker.HandleCartUpdated(tracker.CartUpdated{
			Visitor:  identity,
			Client:   client,
			Snapshot: cartSnapshot(params),
		})
	}

	// Unknown event types are dropped silently
	return nil
}

func (h *TrackHandler) resolveIdentity(ctx *cartridge.Context, reqContext TrackContextParams) visitors.Identity {
	trackAdmins := h.cfg.TrackAdmins
	if !trackAdmins {
		enabled, err := settings.IsAdminTrackingEnabled()
		if err != nil {
			ctx.Logger.Warn("Failed to read admin tracking setting", slog.Any("error", err))
		}
		trackAdmins = enabled
	}

	return visitors.Resolve(visitors.Request{
		SystemContext:  reqContext.System,
		IsAdmin:        reqContext.Admin,
		UserID:         reqContext.UserID,
		PresentedToken: ctx.Ctx.Cookies(VisitorCookieName),
	}, trackAdmins)
}

func (h *TrackHandler) issueVisitorCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     VisitorCookieName,
		Value:    token,
		Expires:  time.Now().Add(h.cfg.VisitorCookieTTL()),
		HTTPOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func clientFromRequest(c *fiber.Ctx) bots.Client {
	userAgent := c.Get("User-Agent")
	if forwardedUA := c.Get("X-Forwarded-User-Agent"); forwardedUA != "" {
		userAgent = forwardedUA
	}
	return bots.Client{
		UserAgent: userAgent,
		Accept:    c.Get("Accept"),
		SecCHUA:   c.Get("Sec-CH-UA"),
	}
}

func cartLines(items []TrackLineParams) []tracker.CartLine {
	lines := make([]tracker.CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, tracker.CartLine{
			EntityID: item.EntityID,
			Quantity: item.Quantity,
		})
	}
	return lines
}

func orderLines(items []TrackLineParams) []tracker.OrderLine {
	lines := make([]tracker.OrderLine, 0, len(items))
	for _, item := range items {
		total, err := decimal.NewFromString(item.Total)
		if err != nil {
			total = decimal.Zero
		}
		lines = append(lines, tracker.OrderLine{
			EntityID: item.EntityID,
			Quantity: item.Quantity,
			Total:    total,
		})
	}
	return lines
}

func cartSnapshot(params TrackEventParams) carts.Snapshot {
	items := make([]carts.Item, 0, len(params.Items))
	for _, item := range params.Items {
		items = append(items, carts.Item{
			EntityID: item.EntityID,
			Quantity: item.Quantity,
		})
	}
	total, err := decimal.NewFromString(params.CartTotal)
	if err != nil {
		total = decimal.Zero
	}
	return carts.Snapshot{
		Items:     items,
		Total:     total,
		UpdatedAt: time.Now().UTC(),
	}
}
