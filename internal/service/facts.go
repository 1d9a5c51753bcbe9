package service

import (
	"context"
	"time"

	"contentgate/api/internal/repository"
)

// EntitlementFacts answers entitlement questions straight from the ledger tables.
type EntitlementFacts struct {
	purchases     repository.PurchaseStore
	subscriptions repository.SubscriptionStore
}

func NewEntitlementFacts(repos repository.Repositories) *EntitlementFacts {
	return &EntitlementFacts{purchases: repos.Purchases, subscriptions: repos.Subscriptions}
}

func (f *EntitlementFacts) HasPurchase(ctx context.Context, accountID, contentID string) (bool, error) {
	return f.purchases.Exists(ctx, accountID, contentID)
}

func (f *EntitlementFacts) HasActiveSubscription(ctx context.Context, accountID string, now time.Time) (bool, error) {
	return f.subscriptions.HasAccess(ctx, accountID, now)
}
