package memory

import (
	"context"
	"sort"
	"time"

	"contentgate/api/internal/models"
	"contentgate/api/internal/repository"
)

type content struct{ s *Store }

func (r content) GetByID(_ context.Context, id string) (models.ContentItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	item, ok := r.s.data.content[id]
	if !ok {
		return models.ContentItem{}, repository.ErrNotFound
	}
	return item, nil
}

type plans struct{ s *Store }

func (r plans) GetByID(_ context.Context, id string) (models.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	plan, ok := r.s.data.plans[id]
	if !ok {
		return models.Plan{}, repository.ErrNotFound
	}
	return plan, nil
}

func (r plans) ListActive(_ context.Context) ([]models.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var active []models.Plan
	for _, plan := range r.s.data.plans {
		if plan.Active {
			active = append(active, plan)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Price < active[j].Price })
	return active, nil
}

type subscriptions struct{ s *Store }

func (r subscriptions) Create(_ context.Context, sub models.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.subscriptions[sub.ID]; ok {
		return repository.ErrConflict
	}
	if sub.Status == models.SubscriptionActive && r.activeOwnedLocked(sub.AccountID, sub.ID) {
		return repository.ErrConflict
	}
	stamp(&sub.CreatedAt, &sub.UpdatedAt)
	r.s.data.subscriptions[sub.ID] = sub
	return nil
}

// activeOwnedLocked mirrors the partial unique index on ACTIVE rows.
func (r subscriptions) activeOwnedLocked(accountID, exceptID string) bool {
	for id, existing := range r.s.data.subscriptions {
		if id != exceptID && existing.AccountID == accountID && existing.Status == models.SubscriptionActive {
			return true
		}
	}
	return false
}

func (r subscriptions) GetByID(_ context.Context, id string) (models.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sub, ok := r.s.data.subscriptions[id]
	if !ok {
		return models.Subscription{}, repository.ErrNotFound
	}
	return sub, nil
}

func (r subscriptions) SetGatewayRef(_ context.Context, id string, ref string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sub, ok := r.s.data.subscriptions[id]
	if !ok {
		return repository.ErrNotFound
	}
	sub.GatewayRef = &ref
	r.s.data.subscriptions[id] = sub
	return nil
}

func (r subscriptions) ListByAccount(_ context.Context, accountID string) ([]models.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var owned []models.Subscription
	for _, sub := range r.s.data.subscriptions {
		if sub.AccountID == accountID {
			owned = append(owned, sub)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].CreatedAt.After(owned[j].CreatedAt) })
	return owned, nil
}

func (r subscriptions) HasActive(_ context.Context, accountID string, now time.Time) (bool, error) {
	return r.exists(accountID, now, models.SubscriptionActive), nil
}

func (r subscriptions) HasAccess(_ context.Context, accountID string, now time.Time) (bool, error) {
	return r.exists(accountID, now, models.SubscriptionActive, models.SubscriptionCancelled), nil
}

func (r subscriptions) exists(accountID string, now time.Time, statuses ...models.SubscriptionStatus) bool {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, sub := range r.s.data.subscriptions {
		if sub.AccountID != accountID || sub.EndDate.Before(now) {
			continue
		}
		for _, status := range statuses {
			if sub.Status == status {
				return true
			}
		}
	}
	return false
}

func (r subscriptions) Activate(_ context.Context, id string, start, end time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sub, ok := r.s.data.subscriptions[id]
	if !ok || sub.Status != models.SubscriptionPending {
		return repository.ErrNotFound
	}
	if r.activeOwnedLocked(sub.AccountID, id) {
		return repository.ErrConflict
	}
	sub.Status = models.SubscriptionActive
	sub.StartDate = start
	sub.EndDate = end
	sub.UpdatedAt = time.Now()
	r.s.data.subscriptions[id] = sub
	return nil
}

func (r subscriptions) Cancel(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sub, ok := r.s.data.subscriptions[id]
	if !ok || sub.Status != models.SubscriptionActive {
		return repository.ErrConflict
	}
	sub.Status = models.SubscriptionCancelled
	sub.CancelledAt = &at
	sub.UpdatedAt = time.Now()
	r.s.data.subscriptions[id] = sub
	return nil
}

func (r subscriptions) ExpireBefore(_ context.Context, now time.Time) (int64, error) {
	return r.expire("", now), nil
}

func (r subscriptions) ExpireAccountBefore(_ context.Context, accountID string, now time.Time) error {
	r.expire(accountID, now)
	return nil
}

func (r subscriptions) expire(accountID string, now time.Time) int64 {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var expired int64
	for id, sub := range r.s.data.subscriptions {
		if accountID != "" && sub.AccountID != accountID {
			continue
		}
		if (sub.Status == models.SubscriptionActive || sub.Status == models.SubscriptionCancelled) && sub.EndDate.Before(now) {
			sub.Status = models.SubscriptionExpired
			r.s.data.subscriptions[id] = sub
			expired++
		}
	}
	return expired
}

type payments struct{ s *Store }

func (r payments) Create(_ context.Context, payment models.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.payments[payment.ID]; ok {
		return repository.ErrConflict
	}
	for _, existing := range r.s.data.payments {
		if existing.ExternalOrderID == payment.ExternalOrderID {
			return repository.ErrConflict
		}
	}
	stamp(&payment.CreatedAt, &payment.UpdatedAt)
	r.s.data.payments[payment.ID] = payment
	return nil
}

func (r payments) GetByID(_ context.Context, id string) (models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	payment, ok := r.s.data.payments[id]
	if !ok {
		return models.Payment{}, repository.ErrNotFound
	}
	return payment, nil
}

func (r payments) GetForUpdate(ctx context.Context, id string) (models.Payment, error) {
	return r.GetByID(ctx, id)
}

func (r payments) FindByExternalID(_ context.Context, externalOrderID string) (models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, payment := range r.s.data.payments {
		if payment.ExternalOrderID == externalOrderID {
			return payment, nil
		}
	}
	return models.Payment{}, repository.ErrNotFound
}

func (r payments) ListPendingPurchases(_ context.Context, accountID, contentID string) ([]models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var pending []models.Payment
	for _, payment := range r.s.data.payments {
		if payment.AccountID != accountID || payment.Status != models.PaymentPending {
			continue
		}
		if id, ok := models.PurchasedContentID(payment.Purpose); ok && id == contentID {
			pending = append(pending, payment)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	return pending, nil
}

func (r payments) UpdateStatus(_ context.Context, id string, from, to models.PaymentStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	payment, ok := r.s.data.payments[id]
	if !ok || payment.Status != from {
		return repository.ErrConflict
	}
	payment.Status = to
	payment.UpdatedAt = time.Now()
	r.s.data.payments[id] = payment
	return nil
}

type purchases struct{ s *Store }

func (r purchases) Create(_ context.Context, purchase models.Purchase) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.data.purchases {
		if existing.AccountID == purchase.AccountID && existing.ContentID == purchase.ContentID {
			return false, nil
		}
	}
	if purchase.CreatedAt.IsZero() {
		purchase.CreatedAt = time.Now()
	}
	r.s.data.purchases[purchase.ID] = purchase
	return true, nil
}

func (r purchases) Exists(_ context.Context, accountID, contentID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.data.purchases {
		if existing.AccountID == accountID && existing.ContentID == contentID {
			return true, nil
		}
	}
	return false, nil
}
