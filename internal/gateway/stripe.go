package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/subscription"
	"github.com/stripe/stripe-go/v76/webhook"
)

var ErrIgnoredEvent = errors.New("stripe event not relevant")

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// URL overrides the API base URL.
	URL string
}

// Stripe creates one PaymentIntent per order. The receipt id is both the idempotency key and
// a metadata entry so the intent can be traced back to our records.
type Stripe struct {
	intents       paymentintent.Client
	subscriptions subscription.Client
	webhookSecret string
}

func NewStripe(cfg StripeConfig) *Stripe {
	backendCfg := &stripe.BackendConfig{MaxNetworkRetries: stripe.Int64(0)}
	if cfg.URL != "" {
		backendCfg.URL = stripe.String(cfg.URL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)

	return &Stripe{
		intents:       paymentintent.Client{B: backend, Key: cfg.SecretKey},
		subscriptions: subscription.Client{B: backend, Key: cfg.SecretKey},
		webhookSecret: cfg.WebhookSecret,
	}
}

func (s *Stripe) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountMinor),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.ReceiptID)
	params.AddMetadata("receipt_id", req.ReceiptID)

	intent, err := s.intents.New(params)
	if err != nil {
		return Order{}, stripeError(err)
	}

	return Order{
		ExternalID:   intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       intent.Amount,
		Currency:     string(intent.Currency),
		ReceiptID:    req.ReceiptID,
	}, nil
}

// CancelRecurring cancels a Stripe subscription (sub_...) or an unpaid intent (pi_...).
func (s *Stripe) CancelRecurring(ctx context.Context, externalID string) error {
	switch {
	case strings.HasPrefix(externalID, "sub_"):
		params := &stripe.SubscriptionCancelParams{}
		params.Context = ctx
		if _, err := s.subscriptions.Cancel(externalID, params); err != nil {
			return stripeError(err)
		}
	case strings.HasPrefix(externalID, "pi_"):
		params := &stripe.PaymentIntentCancelParams{}
		params.Context = ctx
		if _, err := s.intents.Cancel(externalID, params); err != nil {
			return stripeError(err)
		}
	default:
		return &Error{Description: fmt.Sprintf("unsupported stripe reference %q", externalID)}
	}
	return nil
}

// ParseWebhook verifies the Stripe-Signature header and maps payment intent outcomes to a
// Confirmation. Other event types return ErrIgnoredEvent.
func (s *Stripe) ParseWebhook(payload []byte, signature string) (Confirmation, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Confirmation{}, &Error{Description: "invalid webhook signature", Err: err}
	}

	var succeeded bool
	switch event.Type {
	case "payment_intent.succeeded":
		succeeded = true
	case "payment_intent.payment_failed":
		succeeded = false
	default:
		return Confirmation{}, ErrIgnoredEvent
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return Confirmation{}, &Error{Description: "malformed payment intent", Err: err}
	}
	return Confirmation{ExternalOrderID: intent.ID, Succeeded: succeeded}, nil
}

func stripeError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var se *stripe.Error
	if errors.As(err, &se) {
		desc := se.Msg
		if desc == "" {
			desc = string(se.Code)
		}
		return &Error{Description: desc, Err: err}
	}
	return &Error{Description: err.Error(), Err: err}
}
