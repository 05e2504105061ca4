package api

import (
	"keepintouch/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SyncDirectoryHandler replaces the user's device contact snapshot with the
// one the client uploads. The client owns the snapshot; a sync always wins.
func SyncDirectoryHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)

		var req models.SyncDirectoryRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if err := deps.Directory.Replace(c.Context(), userID, req.Contacts); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		return c.JSON(fiber.Map{
			"success": true,
			"count":   len(req.Contacts),
		})
	}
}

func ListDirectoryHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)

		snapshot, err := deps.Directory.All(c.Context(), userID)
		if err != nil {
			return err
		}

		contacts := make([]models.DeviceContact, 0, len(snapshot))
		for _, dc := range snapshot {
			contacts = append(contacts, dc)
		}
		return c.JSON(contacts)
	}
}
