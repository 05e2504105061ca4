package api

import (
	"log/slog"

	"keepintouch/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ClearRemindersHandler cancels every scheduled reminder notification and
// removes the mappings. Friends and check-in history are left alone.
func ClearRemindersHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)

		if err := deps.Reminders.ClearAll(c.Context(), userID); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

// WipeDataHandler deletes all of the user's app data: reminders, check-in
// history, friends and the device contact snapshot. The account itself and
// its push subscriptions survive.
func WipeDataHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)

		if err := deps.Reminders.ClearAll(c.Context(), userID); err != nil {
			slog.Warn("Failed to clear reminders during wipe", "error", err)
		}
		if err := deps.History.DeleteAll(c.Context(), userID); err != nil {
			slog.Warn("Failed to delete check-ins during wipe", "error", err)
		}
		if _, err := deps.DB.ExecContext(c.Context(), "DELETE FROM contacts WHERE user_id = ?", userID); err != nil {
			slog.Warn("Failed to delete friends during wipe", "error", err)
		}
		if err := deps.Directory.Replace(c.Context(), userID, []models.DeviceContact{}); err != nil {
			slog.Warn("Failed to clear directory during wipe", "error", err)
		}

		return c.JSON(fiber.Map{"success": true})
	}
}
