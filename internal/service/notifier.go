package service

import (
	"context"
	"time"

	"contentgate/api/internal/models"
	"contentgate/api/internal/tasks"
)

// Notifier delivers one-time codes to account holders.
type Notifier interface {
	SendOTP(ctx context.Context, account models.Account, code string, expiresAt time.Time) error
}

type TaskEnqueuer interface {
	Enqueue(ctx context.Context, taskType string, payload any) (string, error)
}

// QueueNotifier hands OTP e-mails to the notification worker.
type QueueNotifier struct {
	queue TaskEnqueuer
}

func NewQueueNotifier(queue TaskEnqueuer) *QueueNotifier {
	return &QueueNotifier{queue: queue}
}

func (n *QueueNotifier) SendOTP(ctx context.Context, account models.Account, code string, expiresAt time.Time) error {
	_, err := n.queue.Enqueue(ctx, tasks.TypeOTPEmail, tasks.OTPEmailPayload{
		AccountID:   account.ID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		Code:        code,
		ExpiresAt:   expiresAt,
	})
	return err
}
