package api

import (
	"errors"

	"keepintouch/internal/models"
	"keepintouch/internal/service"
	"keepintouch/internal/store"

	"github.com/gofiber/fiber/v2"
)

func BeginCheckInHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)

		var req models.BeginCheckInRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if req.ContactID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Contact ID is required")
		}

		pending, err := deps.CheckIns.Begin(c.Context(), userID, req.ContactID)
		if err != nil {
			if errors.Is(err, store.ErrContactNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Friend not found")
			}
			return err
		}
		return c.Status(fiber.StatusAccepted).JSON(pending)
	}
}

func PendingCheckInHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)

		pending := deps.CheckIns.Pending(userID)
		if pending == nil {
			return fiber.NewError(fiber.StatusNotFound, "No pending check-in")
		}
		return c.JSON(pending)
	}
}

func ConfirmCheckInHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)

		ci, err := deps.CheckIns.Confirm(c.Context(), userID)
		if err != nil {
			if errors.Is(err, service.ErrNoPendingCheckIn) {
				return fiber.NewError(fiber.StatusNotFound, "No pending check-in")
			}
			return err
		}
		return c.JSON(ci)
	}
}

func RequestNoteHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)

		if err := deps.CheckIns.RequestNote(userID); err != nil {
			if errors.Is(err, service.ErrNoPendingCheckIn) {
				return fiber.NewError(fiber.StatusNotFound, "No pending check-in")
			}
			return err
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

func SubmitNoteHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)

		var req models.CheckInNoteRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		ci, err := deps.CheckIns.SubmitNote(c.Context(), userID, req.Note)
		if err != nil {
			if errors.Is(err, service.ErrNoPendingCheckIn) {
				return fiber.NewError(fiber.StatusNotFound, "No pending check-in")
			}
			return err
		}
		return c.JSON(ci)
	}
}

func UndoCheckInHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)

		if err := deps.CheckIns.Undo(userID); err != nil {
			if errors.Is(err, service.ErrNoPendingCheckIn) {
				return fiber.NewError(fiber.StatusNotFound, "No pending check-in")
			}
			return err
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

// ListCheckInsHandler returns the user's full check-in history across all
// friends, newest first.
func ListCheckInsHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)

		history, err := deps.History.All(c.Context(), userID)
		if err != nil {
			return err
		}
		return c.JSON(history)
	}
}
