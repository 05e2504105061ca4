package notify

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// PushPayload is the notification payload delivered to client push
// subscriptions.
type PushPayload struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Tag   string         `json:"tag,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// VapidOptions returns configured VAPID options from environment.
func VapidOptions() *webpush.Options {
	return &webpush.Options{
		Subscriber:      os.Getenv("VAPID_SUBJECT"),
		VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
		TTL:             30,
	}
}

// IsWebPushConfigured checks if VAPID keys are configured.
func IsWebPushConfigured() bool {
	return os.Getenv("VAPID_PUBLIC_KEY") != "" &&
		os.Getenv("VAPID_PRIVATE_KEY") != "" &&
		os.Getenv("VAPID_SUBJECT") != ""
}

// ErrNoSubscriptions signals that the user has nowhere to push to; callers
// may fall back to another channel.
var ErrNoSubscriptions = fmt.Errorf("no push subscriptions for user")

// SendPushToUser sends a push notification to all subscriptions for a user.
// Expired or mismatched subscriptions (404/410/403) are pruned along the way.
func SendPushToUser(db *sql.DB, userID int, payload PushPayload) error {
	if !IsWebPushConfigured() {
		slog.Debug("Web push not configured, skipping notification", "user_id", userID)
		return nil
	}

	rows, err := db.Query(
		"SELECT endpoint, p256dh, auth FROM push_subscriptions WHERE user_id = ?",
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to fetch subscriptions: %w", err)
	}
	defer rows.Close()

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	options := VapidOptions()
	successCount := 0
	failCount := 0
	subscriptionCount := 0

	for rows.Next() {
		subscriptionCount++
		var endpoint, p256dh, auth string
		if err := rows.Scan(&endpoint, &p256dh, &auth); err != nil {
			slog.Warn("Error scanning push subscription", "error", err)
			failCount++
			continue
		}

		subscription := &webpush.Subscription{
			Endpoint: endpoint,
			Keys: webpush.Keys{
				P256dh: p256dh,
				Auth:   auth,
			},
		}

		resp, err := webpush.SendNotification(payloadJSON, subscription, options)
		if err != nil {
			slog.Warn("Failed to send push", "endpoint", endpoint, "error", err)
			failCount++

			// Expired or invalid subscriptions are removed so the client
			// re-subscribes.
			if resp != nil && (resp.StatusCode == 410 || resp.StatusCode == 404) {
				_, _ = db.Exec("DELETE FROM push_subscriptions WHERE endpoint = ?", endpoint)
				slog.Info("Removed expired push subscription", "endpoint", endpoint)
			}
			continue
		}

		if resp != nil {
			if resp.StatusCode >= 400 {
				body, _ := io.ReadAll(resp.Body)
				slog.Warn("Push service error response", "status", resp.StatusCode, "body", string(body))
			}
			resp.Body.Close()

			// 403 means the VAPID keys no longer match this subscription.
			if resp.StatusCode == 403 {
				_, _ = db.Exec("DELETE FROM push_subscriptions WHERE endpoint = ?", endpoint)
				slog.Info("Deleted mismatched push subscription", "endpoint", endpoint)
				failCount++
				continue
			}
		}

		successCount++
	}

	slog.Debug("Push notification summary",
		"user_id", userID, "subscriptions", subscriptionCount,
		"success", successCount, "failed", failCount)

	if subscriptionCount == 0 {
		return ErrNoSubscriptions
	}
	if failCount > 0 && successCount == 0 {
		return fmt.Errorf("failed to send any push notifications (attempted %d)", failCount)
	}
	return nil
}
