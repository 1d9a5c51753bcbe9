package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentgate/api/internal/mailer"
	"contentgate/api/internal/queue"
)

type fakeSender struct {
	sent []mailer.OTPMessage
	err  error
}

func (f *fakeSender) SendOTP(_ context.Context, msg mailer.OTPMessage) error {
	f.sent = append(f.sent, msg)
	return f.err
}

func otpMessage(t *testing.T, payload OTPEmailPayload) queue.Message {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return queue.Message{ID: "1-0", Type: TypeOTPEmail, Payload: raw}
}

func TestProcessorSendsOTP(t *testing.T) {
	sender := &fakeSender{}
	p := NewProcessor(sender, zerolog.Nop())

	err := p.Handle(context.Background(), otpMessage(t, OTPEmailPayload{
		AccountID: "acc-1",
		Email:     "ann@example.com",
		Code:      "123456",
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}))
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ann@example.com", sender.sent[0].To)
	assert.Equal(t, "123456", sender.sent[0].Code)
}

func TestProcessorSkipsExpiredCode(t *testing.T) {
	sender := &fakeSender{}
	p := NewProcessor(sender, zerolog.Nop())

	err := p.Handle(context.Background(), otpMessage(t, OTPEmailPayload{
		Email:     "ann@example.com",
		Code:      "123456",
		ExpiresAt: time.Now().Add(-time.Minute),
	}))
	require.NoError(t, err)
	assert.Empty(t, sender.sent)
}

func TestProcessorReturnsSendErrorsForRetry(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp unavailable")}
	p := NewProcessor(sender, zerolog.Nop())

	err := p.Handle(context.Background(), otpMessage(t, OTPEmailPayload{Email: "ann@example.com", Code: "1"}))
	require.Error(t, err)
}

func TestProcessorIgnoresUnknownTypes(t *testing.T) {
	sender := &fakeSender{}
	p := NewProcessor(sender, zerolog.Nop())

	require.NoError(t, p.Handle(context.Background(), queue.Message{ID: "1-0", Type: "thumbnail"}))
	assert.Empty(t, sender.sent)
}
