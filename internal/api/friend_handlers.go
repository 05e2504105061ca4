package api

import (
	"errors"
	"time"

	"keepintouch/internal/models"
	"keepintouch/internal/schedule"
	"keepintouch/internal/store"

	"github.com/gofiber/fiber/v2"
)

const birthdayLayout = "2006-01-02"

func parseBirthday(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(birthdayLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func AddFriendHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)

		var req models.AddFriendRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if req.ContactID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Contact ID is required")
		}

		frequency, err := schedule.ParseFrequency(req.Frequency)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid reminder frequency")
		}
		birthday, err := parseBirthday(req.Birthday)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid birthday, expected YYYY-MM-DD")
		}

		var initialCheckIn *time.Time
		if req.LastCheckIn != "" {
			t, err := time.Parse(birthdayLayout, req.LastCheckIn)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid last check-in date, expected YYYY-MM-DD")
			}
			initialCheckIn = &t
		}

		friend := &models.Friend{
			ContactID: req.ContactID,
			Frequency: frequency,
			Birthday:  birthday,
		}
		saved, err := deps.Friends.AddFriend(c.Context(), userID, friend, initialCheckIn)
		if err != nil {
			if errors.Is(err, store.ErrMissingContactID) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(saved)
	}
}

func ListFriendsHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)

		friends, err := deps.Friends.ListFriends(c.Context(), userID)
		if err != nil {
			return err
		}
		return c.JSON(friends)
	}
}

func GetFriendHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)
		contactID := c.Params("contactId")

		friend, err := deps.Friends.GetFriend(c.Context(), userID, contactID)
		if err != nil {
			if errors.Is(err, store.ErrContactNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Friend not found")
			}
			return err
		}
		return c.JSON(friend)
	}
}

func UpdateFriendHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)
		contactID := c.Params("contactId")

		var req models.UpdateFriendRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		// Load the current row so omitted fields keep their value.
		current, err := deps.Friends.GetFriend(c.Context(), userID, contactID)
		if err != nil {
			if errors.Is(err, store.ErrContactNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Friend not found")
			}
			return err
		}

		if req.Frequency != "" {
			frequency, err := schedule.ParseFrequency(req.Frequency)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid reminder frequency")
			}
			current.Frequency = frequency
		}
		if req.Birthday != nil {
			birthday, err := parseBirthday(*req.Birthday)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid birthday, expected YYYY-MM-DD")
			}
			current.Birthday = birthday
		}

		saved, err := deps.Friends.UpdateFriend(c.Context(), userID, current)
		if err != nil {
			if errors.Is(err, store.ErrContactNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Friend not found")
			}
			return err
		}
		return c.JSON(saved)
	}
}

func DeleteFriendHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)
		contactID := c.Params("contactId")

		if err := deps.Friends.DeleteFriend(c.Context(), userID, contactID); err != nil {
			if errors.Is(err, store.ErrContactNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Friend not found")
			}
			return err
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

// FriendRecentCheckInHandler reports whether the friend was already checked
// in on within the window their frequency implies. Clients use it to skip
// the check-in prompt.
func FriendRecentCheckInHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)
		contactID := c.Params("contactId")

		recent, err := deps.Friends.HasRecentCheckIn(c.Context(), userID, contactID)
		if err != nil {
			if errors.Is(err, store.ErrContactNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Friend not found")
			}
			return err
		}
		return c.JSON(fiber.Map{"checked_in_recently": recent})
	}
}

// FriendCheckInsHandler returns the check-in history for one friend, newest
// first.
func FriendCheckInsHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)
		contactID := c.Params("contactId")

		history, err := deps.History.ForContact(c.Context(), userID, contactID)
		if err != nil {
			return err
		}
		return c.JSON(history)
	}
}
