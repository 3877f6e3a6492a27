package v1

import (
	"strings"

	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"storepulse/internal/settings"
)

// NoticesHandler exposes the operator-facing notices raised by the
// engine (missing storefront configuration and similar conditions).
type NoticesHandler struct{}

func NewNoticesHandler() *NoticesHandler {
	return &NoticesHandler{}
}

// ListAction returns every raised notice with its first-raised
// timestamp.
func (h *NoticesHandler) ListAction(ctx *cartridge.Context) error {
	records, err := settings.ListNotices(ctx.DB())
	if err != nil {
		ctx.Logger.Error("Failed to list notices", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list notices",
		})
	}

	notices := make([]fiber.Map, 0, len(records))
	for _, record := range records {
		notices = append(notices, fiber.Map{
			"name":      strings.TrimPrefix(record.Key, settings.NoticePrefix),
			"raised_at": record.Value,
		})
	}

	return ctx.JSON(fiber.Map{
		"notices": notices,
	})
}

// ClearAction dismisses one notice by name.
func (h *NoticesHandler) ClearAction(ctx *cartridge.Context) error {
	name := ctx.Ctx.Params("name")
	if name == "" {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "notice name is required",
		})
	}

	if err := settings.ClearNotice(ctx.DB(), settings.NoticePrefix+name); err != nil {
		ctx.Logger.Error("Failed to clear notice",
			slog.String("notice", name),
			slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to clear notice",
		})
	}

	return ctx.SendStatus(http.StatusNoContent)
}
