package api

import (
	"database/sql"
	"os"
	"strings"

	"keepintouch/internal/directory"
	"keepintouch/internal/notify"
	"keepintouch/internal/service"
	"keepintouch/internal/store"

	"github.com/gofiber/fiber/v2"
)

// Deps bundles everything the handlers need. Handlers that only move rows
// (auth, push subscriptions, profile) take the DB directly, the way the rest
// of the codebase does; domain operations go through the services.
type Deps struct {
	DB        *sql.DB
	Directory directory.Directory
	Friends   *service.Friends
	CheckIns  *service.CheckInFlow
	Reminders *notify.ReminderService
	History   *store.CheckInStore
}

func SetupRoutes(app *fiber.App, deps Deps) {
	api := app.Group("/api")

	disableRegistration := strings.ToLower(os.Getenv("DISABLE_REGISTRATION")) == "true"

	api.Get("/config", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"disableRegistration": disableRegistration,
		})
	})

	// Auth routes
	auth := api.Group("/auth")
	if !disableRegistration {
		auth.Post("/register", RegisterHandler(deps.DB))
	}
	auth.Post("/login", LoginHandler(deps.DB))
	auth.Post("/refresh", RefreshTokenHandler(deps.DB))
	auth.Post("/logout", LogoutHandler(deps.DB))

	// VAPID public key endpoint (public, must precede the protected group)
	api.Get("/push/vapid-public-key", VapidPublicKeyHandler())

	// Protected routes
	protected := api.Group("/", AuthMiddleware())

	// Device contact snapshot
	protected.Put("/directory", SyncDirectoryHandler(deps))
	protected.Get("/directory", ListDirectoryHandler(deps))

	// Friend routes
	friends := protected.Group("/friends")
	friends.Post("/", AddFriendHandler(deps))
	friends.Get("/", ListFriendsHandler(deps))
	friends.Get("/:contactId", GetFriendHandler(deps))
	friends.Put("/:contactId", UpdateFriendHandler(deps))
	friends.Delete("/:contactId", DeleteFriendHandler(deps))
	friends.Get("/:contactId/checkins", FriendCheckInsHandler(deps))
	friends.Get("/:contactId/checked-in-recently", FriendRecentCheckInHandler(deps))

	// Check-in flow routes
	checkins := protected.Group("/checkins")
	checkins.Get("/", ListCheckInsHandler(deps))
	checkins.Post("/begin", BeginCheckInHandler(deps))
	checkins.Get("/pending", PendingCheckInHandler(deps))
	checkins.Post("/confirm", ConfirmCheckInHandler(deps))
	checkins.Post("/note/request", RequestNoteHandler(deps))
	checkins.Post("/note", SubmitNoteHandler(deps))
	checkins.Delete("/pending", UndoCheckInHandler(deps))

	// Push subscription routes
	push := protected.Group("/push")
	push.Post("/subscribe", SubscribePushHandler(deps.DB))
	push.Delete("/unsubscribe", UnsubscribePushHandler(deps.DB))

	// User profile routes
	user := protected.Group("/user")
	user.Get("/profile", GetUserProfileHandler(deps.DB))
	user.Put("/email", UpdateUserEmailHandler(deps.DB))

	// Administrative resets
	admin := protected.Group("/admin")
	admin.Delete("/reminders", ClearRemindersHandler(deps))
	admin.Delete("/data", WipeDataHandler(deps))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
