package gateway

import (
	"context"
	"errors"
	"time"

	"contentgate/api/internal/metrics"
)

type timeoutGateway struct {
	next    Gateway
	timeout time.Duration
}

// WithTimeout bounds every call to next and normalises its errors.
func WithTimeout(next Gateway, timeout time.Duration) Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &timeoutGateway{next: next, timeout: timeout}
}

func (g *timeoutGateway) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	order, err := g.next.CreateOrder(ctx, req)
	err = normalise(ctx, err)
	record("create_order", err)
	return order, err
}

func (g *timeoutGateway) CancelRecurring(ctx context.Context, externalID string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	err := normalise(ctx, g.next.CancelRecurring(ctx, externalID))
	record("cancel_recurring", err)
	return err
}

func normalise(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr
	}
	return &Error{Description: err.Error(), Err: err}
}

func record(operation string, err error) {
	outcome := "ok"
	switch {
	case errors.Is(err, ErrTimeout):
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	}
	metrics.GatewayCalls.WithLabelValues(operation, outcome).Inc()
}
