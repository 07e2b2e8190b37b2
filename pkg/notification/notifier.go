package notification

import (
	"SpendSnap-Backend/entities"
	"SpendSnap-Backend/internal/utils/mailing"
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

const (
	EventReceiptProcessed = "receipt_processed"
	EventReceiptFailed    = "receipt_failed"
	EventBudgetThreshold  = "budget_threshold"
)

type (
	// Notifier is fire-and-forget: the pipeline never blocks on or retries
	// a failed notification.
	Notifier interface {
		Notify(userID uuid.UUID, eventType string, payload map[string]string)
	}

	// UserReader resolves a user ID to a deliverable address; the user
	// repository satisfies it.
	UserReader interface {
		GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	}

	mailNotifier struct {
		users UserReader
		log   *slog.Logger
	}
)

func NewMailNotifier(users UserReader, log *slog.Logger) Notifier {
	return &mailNotifier{users: users, log: log}
}

func (n *mailNotifier) Notify(userID uuid.UUID, eventType string, payload map[string]string) {
	go func() {
		user, err := n.users.GetByID(context.Background(), userID)
		if err != nil {
			n.log.Warn("notification skipped, user lookup failed", "user_id", userID, "err", err)
			return
		}

		subject, body := renderMail(eventType, payload)
		if err := mailing.SendMail(user.Email, subject, body); err != nil {
			n.log.Warn("notification delivery failed", "user_id", userID, "event", eventType, "err", err)
		}
	}()
}

func renderMail(eventType string, payload map[string]string) (string, string) {
	switch eventType {
	case EventReceiptProcessed:
		return "Your receipt is ready for review",
			fmt.Sprintf("<p>We extracted the details from your receipt (job %s). Open the app to review and confirm.</p>", payload["job_id"])
	case EventReceiptFailed:
		return "We could not read your receipt",
			fmt.Sprintf("<p>Processing failed for job %s: %s.</p>", payload["job_id"], payload["reason"])
	case EventBudgetThreshold:
		return fmt.Sprintf("Budget alert: %s%% of %q used", payload["threshold"], payload["budget_name"]),
			fmt.Sprintf("<p>You have spent %s of your %s budget of %s.</p>", payload["spending"], payload["budget_name"], payload["amount"])
	default:
		return "SpendSnap notification", "<p>You have a new notification.</p>"
	}
}
