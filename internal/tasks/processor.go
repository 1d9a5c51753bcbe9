package tasks

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"contentgate/api/internal/mailer"
	"contentgate/api/internal/queue"
)

const TypeOTPEmail = "otp_email"

type OTPEmailPayload struct {
	AccountID   string    `json:"accountId"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Code        string    `json:"code"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type OTPSender interface {
	SendOTP(ctx context.Context, msg mailer.OTPMessage) error
}

type Processor struct {
	mailer OTPSender
	logger zerolog.Logger
	now    func() time.Time
}

func NewProcessor(sender OTPSender, logger zerolog.Logger) *Processor {
	return &Processor{
		mailer: sender,
		logger: logger,
		now:    time.Now,
	}
}

func (p *Processor) Handle(ctx context.Context, msg queue.Message) error {
	switch msg.Type {
	case TypeOTPEmail:
		return p.handleOTPEmail(ctx, msg)
	default:
		p.logger.Warn().Str("type", msg.Type).Str("message_id", msg.ID).Msg("unknown task type")
		return nil
	}
}

func (p *Processor) handleOTPEmail(ctx context.Context, msg queue.Message) error {
	var payload OTPEmailPayload
	if err := msg.Decode(&payload); err != nil {
		p.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("dropping undecodable otp email")
		return nil
	}

	// A code that already expired is useless to the user; they will ask for a new one.
	if !payload.ExpiresAt.IsZero() && p.now().After(payload.ExpiresAt) {
		p.logger.Info().Str("account_id", payload.AccountID).Msg("skipping expired otp email")
		return nil
	}

	if err := p.mailer.SendOTP(ctx, mailer.OTPMessage{
		To:          payload.Email,
		DisplayName: payload.DisplayName,
		Code:        payload.Code,
		ExpiresAt:   payload.ExpiresAt,
	}); err != nil {
		return err
	}

	p.logger.Info().Str("account_id", payload.AccountID).Msg("otp email sent")
	return nil
}
