// Package entitlement decides whether a principal may read a content item right now.
package entitlement

import (
	"context"
	"fmt"
	"time"

	"contentgate/api/internal/metrics"
	"contentgate/api/internal/models"
)

type Reason string

const (
	ReasonFree                 Reason = "free"
	ReasonAnonymous            Reason = "anonymous"
	ReasonPurchased            Reason = "purchased"
	ReasonNotPurchased         Reason = "not_purchased"
	ReasonSubscribed           Reason = "subscribed"
	ReasonNoActiveSubscription Reason = "no_active_subscription"
)

const DefaultPreviewRunes = 200

type Decision struct {
	Granted bool
	Reason  Reason
}

// FactSet is what the decision depends on besides the item and principal.
type FactSet struct {
	Purchased          bool
	ActiveSubscription bool
}

// Decide is the pure access rule.
func Decide(item models.ContentItem, principal *models.Principal, facts FactSet) Decision {
	if item.AccessType == models.AccessFree {
		return Decision{Granted: true, Reason: ReasonFree}
	}
	if principal == nil {
		return Decision{Granted: false, Reason: ReasonAnonymous}
	}
	switch item.AccessType {
	case models.AccessPaid:
		if facts.Purchased {
			return Decision{Granted: true, Reason: ReasonPurchased}
		}
		return Decision{Granted: false, Reason: ReasonNotPurchased}
	case models.AccessSubscription:
		if facts.ActiveSubscription {
			return Decision{Granted: true, Reason: ReasonSubscribed}
		}
		return Decision{Granted: false, Reason: ReasonNoActiveSubscription}
	default:
		return Decision{Granted: false, Reason: ReasonNoActiveSubscription}
	}
}

type Facts interface {
	HasPurchase(ctx context.Context, accountID, contentID string) (bool, error)
	// HasActiveSubscription reports an ACTIVE or CANCELLED subscription covering now.
	HasActiveSubscription(ctx context.Context, accountID string, now time.Time) (bool, error)
}

// Resolver gathers facts on every call. Nothing is cached, so a purchase or an expiry is
// visible on the very next read.
type Resolver struct {
	facts Facts
	now   func() time.Time
}

func NewResolver(facts Facts, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{facts: facts, now: now}
}

func (r *Resolver) Resolve(ctx context.Context, principal *models.Principal, item models.ContentItem) (Decision, error) {
	var facts FactSet
	if principal != nil {
		var err error
		switch item.AccessType {
		case models.AccessPaid:
			facts.Purchased, err = r.facts.HasPurchase(ctx, principal.AccountID, item.ID)
		case models.AccessSubscription:
			facts.ActiveSubscription, err = r.facts.HasActiveSubscription(ctx, principal.AccountID, r.now())
		}
		if err != nil {
			return Decision{}, fmt.Errorf("resolve entitlement for %s: %w", item.ID, err)
		}
	}

	decision := Decide(item, principal, facts)
	metrics.EntitlementDecisions.WithLabelValues(string(item.AccessType), string(decision.Reason)).Inc()
	return decision, nil
}
