// Package gateway talks to the external payment provider. Provider SDK errors never leave
// this package: callers see *Error or ErrTimeout.
package gateway

import (
	"context"
	"errors"
	"time"
)

const DefaultTimeout = 5 * time.Second

var ErrTimeout = errors.New("payment gateway timed out")

// Error is a provider rejection or transport failure.
type Error struct {
	Description string
	Err         error
}

func (e *Error) Error() string {
	return "payment gateway: " + e.Description
}

func (e *Error) Unwrap() error {
	return e.Err
}

type OrderRequest struct {
	AmountMinor int64
	Currency    string
	// ReceiptID is our own reference for the order. It doubles as the idempotency key.
	ReceiptID   string
	Description string
}

type Order struct {
	ExternalID string
	// ClientSecret is handed to the client to complete payment.
	ClientSecret string
	Amount       int64
	Currency     string
	ReceiptID    string
}

type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (Order, error)
	CancelRecurring(ctx context.Context, externalID string) error
}

// Confirmation is a verified payment outcome reported by the provider.
type Confirmation struct {
	ExternalOrderID string
	Succeeded       bool
}
