package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"keepintouch/internal/api"
	"keepintouch/internal/database"
	"keepintouch/internal/directory"
	"keepintouch/internal/notify"
	"keepintouch/internal/service"
	"keepintouch/internal/store"
	"keepintouch/pkg/logging"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	logging.Setup()

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./data/keepintouch.db"
	}
	db, err := database.Initialize(dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	dir := directory.New(db)
	contacts := store.NewContactStore(db, dir)
	checkIns := store.NewCheckInStore(db)
	reminderRows := store.NewReminderStore(db)

	scheduler := notify.NewPushScheduler(db)
	reminders := notify.NewReminderService(reminderRows, scheduler)
	friends := service.NewFriends(contacts, checkIns, reminders)

	countdown := service.DefaultCountdown
	if v := os.Getenv("CHECKIN_COUNTDOWN_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			countdown = time.Duration(n) * time.Second
		}
	}
	flow := service.NewCheckInFlow(contacts, checkIns, reminders, countdown)

	if !notify.IsWebPushConfigured() {
		slog.Warn("VAPID keys not set, reminders will fall back to email where configured")
	}

	// Background delivery worker
	enableWorkers := os.Getenv("ENABLE_WORKERS")
	if enableWorkers == "" {
		enableWorkers = "true"
	}
	if enableWorkers == "true" {
		slog.Info("Starting notification delivery worker")
		if err := scheduler.ProcessDue(context.Background()); err != nil {
			slog.Error("Delivery worker error at startup", "error", err)
		}
		go func() {
			ticker := time.NewTicker(1 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				if err := scheduler.ProcessDue(context.Background()); err != nil {
					slog.Error("Delivery worker error", "error", err)
				}
			}
		}()
	} else {
		slog.Info("Background workers disabled", "hint", "set ENABLE_WORKERS=true to enable")
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(logger.New())

	// CORS: restrict to configured origins
	allowedOrigins := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS"))
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:80,http://localhost:5173"
		slog.Warn("Using default ALLOWED_ORIGINS, set the env var for production")
	} else if allowedOrigins != "*" {
		parts := strings.Split(allowedOrigins, ",")
		for i, p := range parts {
			parts[i] = strings.TrimSpace(p)
		}
		allowedOrigins = strings.Join(parts, ",")
	}
	slog.Info("CORS configured", "allowed_origins", allowedOrigins)

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true, // Required for the refresh token cookie
	}))

	api.SetupRoutes(app, api.Deps{
		DB:        db,
		Directory: dir,
		Friends:   friends,
		CheckIns:  flow,
		Reminders: reminders,
		History:   checkIns,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	slog.Info("Server starting", "port", port)
	if err := app.Listen(":" + port); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}
