package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripeCreateOrder(t *testing.T) {
	var idempotencyKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payment_intents", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "1299", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "sub-1", r.PostForm.Get("metadata[receipt_id]"))
		idempotencyKey = r.Header.Get("Idempotency-Key")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"pi_123","object":"payment_intent","amount":1299,"currency":"usd","client_secret":"pi_123_secret_abc","status":"requires_payment_method"}`)
	}))
	defer srv.Close()

	gw := NewStripe(StripeConfig{SecretKey: "sk_test_123", URL: srv.URL})
	order, err := gw.CreateOrder(context.Background(), OrderRequest{AmountMinor: 1299, Currency: "USD", ReceiptID: "sub-1"})
	require.NoError(t, err)

	assert.Equal(t, "sub-1", idempotencyKey)
	assert.Equal(t, Order{
		ExternalID:   "pi_123",
		ClientSecret: "pi_123_secret_abc",
		Amount:       1299,
		Currency:     "usd",
		ReceiptID:    "sub-1",
	}, order)
}

func TestStripeCreateOrderDeclined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		fmt.Fprint(w, `{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`)
	}))
	defer srv.Close()

	gw := NewStripe(StripeConfig{SecretKey: "sk_test_123", URL: srv.URL})
	_, err := gw.CreateOrder(context.Background(), OrderRequest{AmountMinor: 500, Currency: "usd", ReceiptID: "pay-1"})

	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "Your card was declined.", gwErr.Description)
}

func TestStripeCancelRecurringRoutesByPrefix(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"x","status":"canceled"}`)
	}))
	defer srv.Close()

	gw := NewStripe(StripeConfig{SecretKey: "sk_test_123", URL: srv.URL})
	require.NoError(t, gw.CancelRecurring(context.Background(), "sub_1"))
	require.NoError(t, gw.CancelRecurring(context.Background(), "pi_1"))
	require.Error(t, gw.CancelRecurring(context.Background(), "ch_1"))

	assert.Equal(t, []string{
		"DELETE /v1/subscriptions/sub_1",
		"POST /v1/payment_intents/pi_1/cancel",
	}, paths)
}

func signPayload(secret string, payload []byte, ts time.Time) string {
	stamp := strconv.FormatInt(ts.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(stamp + "." + string(payload)))
	return "t=" + stamp + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}

func TestStripeParseWebhook(t *testing.T) {
	gw := NewStripe(StripeConfig{SecretKey: "sk_test_123", WebhookSecret: "whsec_test"})

	succeeded := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","api_version":"2020-08-27","data":{"object":{"id":"pi_123","object":"payment_intent","status":"succeeded"}}}`)
	conf, err := gw.ParseWebhook(succeeded, signPayload("whsec_test", succeeded, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, Confirmation{ExternalOrderID: "pi_123", Succeeded: true}, conf)

	failed := []byte(`{"id":"evt_2","object":"event","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_456","object":"payment_intent"}}}`)
	conf, err = gw.ParseWebhook(failed, signPayload("whsec_test", failed, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, Confirmation{ExternalOrderID: "pi_456", Succeeded: false}, conf)

	other := []byte(`{"id":"evt_3","object":"event","type":"customer.created","data":{"object":{"id":"cus_1"}}}`)
	_, err = gw.ParseWebhook(other, signPayload("whsec_test", other, time.Now()))
	require.ErrorIs(t, err, ErrIgnoredEvent)

	_, err = gw.ParseWebhook(succeeded, signPayload("wrong", succeeded, time.Now()))
	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
}

type slowGateway struct{}

func (slowGateway) CreateOrder(ctx context.Context, _ OrderRequest) (Order, error) {
	<-ctx.Done()
	return Order{}, ctx.Err()
}

func (slowGateway) CancelRecurring(context.Context, string) error {
	return errors.New("connection reset")
}

func TestWithTimeout(t *testing.T) {
	gw := WithTimeout(slowGateway{}, 20*time.Millisecond)

	_, err := gw.CreateOrder(context.Background(), OrderRequest{AmountMinor: 1})
	require.ErrorIs(t, err, ErrTimeout)

	err = gw.CancelRecurring(context.Background(), "pi_1")
	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "connection reset", gwErr.Description)
}

func TestSandbox(t *testing.T) {
	gw := NewSandbox()

	order, err := gw.CreateOrder(context.Background(), OrderRequest{AmountMinor: 900, Currency: "EUR", ReceiptID: "sub-9"})
	require.NoError(t, err)
	assert.Equal(t, "sandbox_sub-9", order.ExternalID)
	assert.Equal(t, "eur", order.Currency)
	assert.NotEmpty(t, order.ClientSecret)

	require.NoError(t, gw.CancelRecurring(context.Background(), order.ExternalID))
	require.Error(t, gw.CancelRecurring(context.Background(), "pi_1"))

	_, err = gw.CreateOrder(context.Background(), OrderRequest{AmountMinor: 0})
	require.Error(t, err)
}
