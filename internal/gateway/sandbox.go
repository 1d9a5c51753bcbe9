package gateway

import (
	"context"
	"fmt"
	"strings"

	"contentgate/api/internal/ids"
)

// Sandbox accepts every order locally. Payments are then settled through the signed
// confirmation callback.
type Sandbox struct{}

func NewSandbox() *Sandbox {
	return &Sandbox{}
}

func (s *Sandbox) CreateOrder(_ context.Context, req OrderRequest) (Order, error) {
	if req.AmountMinor <= 0 {
		return Order{}, &Error{Description: "amount must be positive"}
	}
	return Order{
		ExternalID:   "sandbox_" + req.ReceiptID,
		ClientSecret: "sandbox_secret_" + ids.New(),
		Amount:       req.AmountMinor,
		Currency:     strings.ToLower(req.Currency),
		ReceiptID:    req.ReceiptID,
	}, nil
}

func (s *Sandbox) CancelRecurring(_ context.Context, externalID string) error {
	if !strings.HasPrefix(externalID, "sandbox_") {
		return &Error{Description: fmt.Sprintf("unknown sandbox order %q", externalID)}
	}
	return nil
}
