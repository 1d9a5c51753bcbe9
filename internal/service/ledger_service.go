package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"contentgate/api/internal/apperr"
	"contentgate/api/internal/gateway"
	"contentgate/api/internal/ids"
	"contentgate/api/internal/metrics"
	"contentgate/api/internal/models"
	"contentgate/api/internal/repository"
)

var errSubscriptionNotPending = apperr.New(apperr.KindConflict, "subscription_not_pending", "subscription is no longer awaiting payment")

// LedgerService keeps subscriptions, payments and purchases consistent with each other.
type LedgerService struct {
	repos   repository.Repositories
	tx      repository.Transactor
	gateway gateway.Gateway
	log     zerolog.Logger
	now     func() time.Time
}

type LedgerDeps struct {
	Repos      repository.Repositories
	Transactor repository.Transactor
	Gateway    gateway.Gateway
	Logger     zerolog.Logger
	Clock      func() time.Time
}

func NewLedgerService(deps LedgerDeps) *LedgerService {
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &LedgerService{
		repos:   deps.Repos,
		tx:      deps.Transactor,
		gateway: deps.Gateway,
		log:     deps.Logger,
		now:     now,
	}
}

// Checkout is what a client needs to complete payment with the provider.
type Checkout struct {
	PaymentID       string
	SubscriptionID  string
	ExternalOrderID string
	ClientSecret    string
	Amount          int64
	Currency        string
}

func (s *LedgerService) ListPlans(ctx context.Context) ([]models.Plan, error) {
	return s.repos.Plans.ListActive(ctx)
}

// CreateSubscription opens a PENDING subscription and its payment. The account row stays
// locked until commit so two checkouts for one account cannot interleave.
func (s *LedgerService) CreateSubscription(ctx context.Context, principal *models.Principal, planID string) (Checkout, error) {
	if principal == nil {
		return Checkout{}, ErrInvalidSession
	}

	var checkout Checkout
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Accounts.LockForUpdate(ctx, principal.AccountID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrAccountNotFound
			}
			return err
		}

		plan, err := repos.Plans.GetByID(ctx, planID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrPlanInactive
			}
			return err
		}
		if !plan.Active {
			return ErrPlanInactive
		}

		now := s.now()
		if err := repos.Subscriptions.ExpireAccountBefore(ctx, principal.AccountID, now); err != nil {
			return err
		}
		active, err := repos.Subscriptions.HasActive(ctx, principal.AccountID, now)
		if err != nil {
			return err
		}
		if active {
			return ErrAlreadySubscribed
		}

		sub := models.Subscription{
			ID:             ids.New(),
			AccountID:      principal.AccountID,
			PlanID:         plan.ID,
			Price:          plan.Price,
			Currency:       plan.Currency,
			DurationMonths: plan.DurationMonths,
			Status:         models.SubscriptionPending,
			StartDate:      now,
			EndDate:        models.AddMonths(now, plan.DurationMonths),
		}
		if err := repos.Subscriptions.Create(ctx, sub); err != nil {
			return err
		}

		order, err := s.gateway.CreateOrder(ctx, gateway.OrderRequest{
			AmountMinor: plan.Price,
			Currency:    plan.Currency,
			ReceiptID:   sub.ID,
			Description: "Subscription: " + plan.Name,
		})
		if err != nil {
			return gatewayError(err)
		}
		if err := repos.Subscriptions.SetGatewayRef(ctx, sub.ID, order.ExternalID); err != nil {
			return err
		}

		payment := models.Payment{
			ID:              ids.New(),
			AccountID:       principal.AccountID,
			Amount:          plan.Price,
			Currency:        plan.Currency,
			ExternalOrderID: order.ExternalID,
			Status:          models.PaymentPending,
			Purpose:         models.SubscriptionPurpose{PlanID: plan.ID, SubscriptionID: sub.ID},
			SubscriptionID:  &sub.ID,
		}
		if err := repos.Payments.Create(ctx, payment); err != nil {
			return err
		}

		checkout = Checkout{
			PaymentID:       payment.ID,
			SubscriptionID:  sub.ID,
			ExternalOrderID: order.ExternalID,
			ClientSecret:    order.ClientSecret,
			Amount:          payment.Amount,
			Currency:        payment.Currency,
		}
		return nil
	})
	if err != nil {
		return Checkout{}, err
	}

	s.log.Info().
		Str("account_id", principal.AccountID).
		Str("subscription_id", checkout.SubscriptionID).
		Str("payment_id", checkout.PaymentID).
		Msg("subscription checkout created")
	return checkout, nil
}

// StartPurchase opens a PENDING payment for a one-time content purchase. An earlier unpaid
// checkout for the same content is cancelled at the gateway and marked FAILED first, so at
// most one order per account and item can ever be captured. When the gateway refuses that
// cancel the earlier checkout may be completing and ErrPurchasePending is returned.
func (s *LedgerService) StartPurchase(ctx context.Context, principal *models.Principal, contentID string) (Checkout, error) {
	if principal == nil {
		return Checkout{}, ErrInvalidSession
	}

	var (
		checkout   Checkout
		superseded []string
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		superseded = superseded[:0]
		if err := repos.Accounts.LockForUpdate(ctx, principal.AccountID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrAccountNotFound
			}
			return err
		}

		item, err := repos.Content.GetByID(ctx, contentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrContentNotFound
			}
			return err
		}
		if !item.Published || item.AccessType != models.AccessPaid || item.Price == nil {
			return ErrNotPurchasable
		}

		owned, err := repos.Purchases.Exists(ctx, principal.AccountID, item.ID)
		if err != nil {
			return err
		}
		if owned {
			return ErrAlreadyPurchased
		}

		pending, err := repos.Payments.ListPendingPurchases(ctx, principal.AccountID, item.ID)
		if err != nil {
			return err
		}
		for _, previous := range pending {
			if err := repos.Payments.UpdateStatus(ctx, previous.ID, models.PaymentPending, models.PaymentFailed); err != nil {
				if errors.Is(err, repository.ErrConflict) {
					return ErrPurchasePending
				}
				return err
			}
			if err := s.gateway.CancelRecurring(ctx, previous.ExternalOrderID); err != nil {
				s.log.Warn().
					Err(err).
					Str("payment_id", previous.ID).
					Msg("previous purchase checkout could not be cancelled")
				return ErrPurchasePending.WithCause(err)
			}
			superseded = append(superseded, previous.ID)
		}

		paymentID := ids.New()
		order, err := s.gateway.CreateOrder(ctx, gateway.OrderRequest{
			AmountMinor: *item.Price,
			Currency:    item.Currency,
			ReceiptID:   paymentID,
			Description: "Purchase: " + item.Title,
		})
		if err != nil {
			return gatewayError(err)
		}

		payment := models.Payment{
			ID:              paymentID,
			AccountID:       principal.AccountID,
			Amount:          *item.Price,
			Currency:        item.Currency,
			ExternalOrderID: order.ExternalID,
			Status:          models.PaymentPending,
			Purpose:         models.PurchasePurposeFor(item),
		}
		if err := repos.Payments.Create(ctx, payment); err != nil {
			return err
		}

		checkout = Checkout{
			PaymentID:       payment.ID,
			ExternalOrderID: order.ExternalID,
			ClientSecret:    order.ClientSecret,
			Amount:          payment.Amount,
			Currency:        payment.Currency,
		}
		return nil
	})
	if err != nil {
		return Checkout{}, err
	}

	s.log.Info().
		Str("account_id", principal.AccountID).
		Str("content_id", contentID).
		Str("payment_id", checkout.PaymentID).
		Strs("superseded", superseded).
		Msg("purchase checkout created")
	return checkout, nil
}

// ConfirmPayment applies a gateway outcome. Repeating a confirmation is a no-op.
func (s *LedgerService) ConfirmPayment(ctx context.Context, paymentID string, result gateway.Confirmation) (models.Payment, error) {
	var (
		payment models.Payment
		changed bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		payment, err = repos.Payments.GetForUpdate(ctx, paymentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}
		if result.ExternalOrderID != payment.ExternalOrderID {
			return ErrOrderMismatch
		}

		switch payment.Status {
		case models.PaymentSuccess:
			return nil
		case models.PaymentFailed:
			if result.Succeeded {
				return ErrPaymentFailed
			}
			return nil
		}

		if !result.Succeeded {
			if err := repos.Payments.UpdateStatus(ctx, payment.ID, models.PaymentPending, models.PaymentFailed); err != nil {
				return err
			}
			payment.Status = models.PaymentFailed
			changed = true
			return nil
		}

		if err := repos.Payments.UpdateStatus(ctx, payment.ID, models.PaymentPending, models.PaymentSuccess); err != nil {
			return err
		}
		payment.Status = models.PaymentSuccess
		changed = true

		return s.fulfil(ctx, repos, payment)
	})
	if err != nil {
		if apperr.IsKind(err, apperr.KindConflict) {
			metrics.PaymentsConfirmed.WithLabelValues(purposeLabel(payment.Purpose), "conflict").Inc()
		}
		return models.Payment{}, err
	}

	if changed {
		outcome := "failed"
		if payment.Status == models.PaymentSuccess {
			outcome = "succeeded"
		}
		metrics.PaymentsConfirmed.WithLabelValues(purposeLabel(payment.Purpose), outcome).Inc()
		s.log.Info().
			Str("payment_id", payment.ID).
			Str("account_id", payment.AccountID).
			Str("status", string(payment.Status)).
			Msg("payment confirmed")
	}
	return payment, nil
}

// fulfil grants whatever a successful payment bought.
func (s *LedgerService) fulfil(ctx context.Context, repos repository.Repositories, payment models.Payment) error {
	switch purpose := payment.Purpose.(type) {
	case models.SubscriptionPurpose:
		sub, err := repos.Subscriptions.GetByID(ctx, purpose.SubscriptionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrSubscriptionNotFound
			}
			return err
		}

		// The paid window starts when the money arrives, not when checkout began.
		now := s.now()
		if err := repos.Subscriptions.ExpireAccountBefore(ctx, sub.AccountID, now); err != nil {
			return err
		}
		err = repos.Subscriptions.Activate(ctx, sub.ID, now, models.AddMonths(now, sub.DurationMonths))
		switch {
		case errors.Is(err, repository.ErrConflict):
			return ErrAlreadySubscribed
		case errors.Is(err, repository.ErrNotFound):
			return errSubscriptionNotPending
		case err != nil:
			return err
		}
		return nil

	case models.BlogPurchasePurpose:
		return s.recordPurchase(ctx, repos, payment, purpose.BlogID)
	case models.ResourcePurchasePurpose:
		return s.recordPurchase(ctx, repos, payment, purpose.ResourceID)
	default:
		return fmt.Errorf("payment %s: unsupported purpose %T", payment.ID, payment.Purpose)
	}
}

func (s *LedgerService) recordPurchase(ctx context.Context, repos repository.Repositories, payment models.Payment, contentID string) error {
	created, err := repos.Purchases.Create(ctx, models.Purchase{
		ID:        ids.New(),
		AccountID: payment.AccountID,
		ContentID: contentID,
		PaymentID: payment.ID,
	})
	if err != nil {
		return err
	}
	if !created {
		s.log.Warn().
			Str("payment_id", payment.ID).
			Str("content_id", contentID).
			Msg("content already owned, purchase not recorded twice")
	}
	return nil
}

func purposeLabel(p models.PaymentPurpose) string {
	if p == nil {
		return "unknown"
	}
	return string(p.Kind())
}

// ConfirmByExternalID is the webhook entry point: the provider only knows its own order id.
func (s *LedgerService) ConfirmByExternalID(ctx context.Context, externalOrderID string, succeeded bool) (models.Payment, error) {
	payment, err := s.repos.Payments.FindByExternalID(ctx, externalOrderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.Payment{}, ErrPaymentNotFound
		}
		return models.Payment{}, err
	}
	return s.ConfirmPayment(ctx, payment.ID, gateway.Confirmation{
		ExternalOrderID: externalOrderID,
		Succeeded:       succeeded,
	})
}

// CancelSubscription stops renewal. Access continues until the current end date.
func (s *LedgerService) CancelSubscription(ctx context.Context, principal *models.Principal, subscriptionID string) (models.Subscription, error) {
	if principal == nil {
		return models.Subscription{}, ErrInvalidSession
	}

	sub, err := s.repos.Subscriptions.GetByID(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.Subscription{}, ErrSubscriptionNotFound
		}
		return models.Subscription{}, err
	}
	if sub.AccountID != principal.AccountID && !principal.IsAdmin() {
		return models.Subscription{}, ErrForbidden
	}

	now := s.now()
	if models.EffectiveStatus(sub, now) != models.SubscriptionActive {
		return models.Subscription{}, ErrNotCancellable
	}

	if sub.GatewayRef != nil && *sub.GatewayRef != "" {
		if err := s.gateway.CancelRecurring(ctx, *sub.GatewayRef); err != nil {
			s.log.Warn().Err(err).Str("subscription_id", sub.ID).Msg("gateway cancel failed")
		}
	}

	if err := s.repos.Subscriptions.Cancel(ctx, sub.ID, now); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return models.Subscription{}, ErrNotCancellable
		}
		return models.Subscription{}, err
	}

	sub.Status = models.SubscriptionCancelled
	sub.CancelledAt = &now
	s.log.Info().Str("subscription_id", sub.ID).Str("account_id", sub.AccountID).Msg("subscription cancelled")
	return sub, nil
}

// ListSubscriptions returns the caller's subscriptions with their effective status.
func (s *LedgerService) ListSubscriptions(ctx context.Context, principal *models.Principal) ([]models.Subscription, error) {
	if principal == nil {
		return nil, ErrInvalidSession
	}
	subs, err := s.repos.Subscriptions.ListByAccount(ctx, principal.AccountID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range subs {
		subs[i].Status = models.EffectiveStatus(subs[i], now)
	}
	return subs, nil
}

// ExpireSweep persists expiry for every subscription whose window has ended.
func (s *LedgerService) ExpireSweep(ctx context.Context) (int64, error) {
	n, err := s.repos.Subscriptions.ExpireBefore(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.SubscriptionsExpired.Add(float64(n))
	}
	return n, nil
}
