package mailer

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func TestBuildOTPMessage(t *testing.T) {
	msg, err := buildOTPMessage("no-reply@contentgate.local", "ContentGate", OTPMessage{
		To:          "ann@example.com",
		DisplayName: "Ann",
		Code:        "042917",
		ExpiresAt:   time.Now().Add(10 * time.Minute),
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)

	raw := buf.String()
	assert.Contains(t, raw, "ann@example.com")
	assert.Contains(t, raw, "ContentGate verification code: 042917")
	assert.Contains(t, raw, "text/html")
}

func TestBuildOTPMessageRejectsBadAddress(t *testing.T) {
	_, err := buildOTPMessage("no-reply@contentgate.local", "ContentGate", OTPMessage{To: "not an address", Code: "123456"})
	require.Error(t, err)
}

func TestTLSPolicy(t *testing.T) {
	assert.Equal(t, mail.TLSMandatory, tlsPolicy("mandatory"))
	assert.Equal(t, mail.NoTLS, tlsPolicy("none"))
	assert.Equal(t, mail.TLSOpportunistic, tlsPolicy(""))
}
