package models

import "time"

type Plan struct {
	ID             string
	Name           string
	Price          int64
	Currency       string
	DurationMonths int
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type SubscriptionStatus string

const (
	SubscriptionPending   SubscriptionStatus = "PENDING"
	SubscriptionActive    SubscriptionStatus = "ACTIVE"
	SubscriptionCancelled SubscriptionStatus = "CANCELLED"
	SubscriptionExpired   SubscriptionStatus = "EXPIRED"
)

type Subscription struct {
	ID             string
	AccountID      string
	PlanID         string
	Price          int64
	Currency       string
	DurationMonths int
	Status         SubscriptionStatus
	StartDate      time.Time
	EndDate        time.Time
	CancelledAt    *time.Time
	GatewayRef     *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EffectiveStatus applies lazy expiry: a paid-for window that has ended reads as EXPIRED
// whatever the stored status says.
func EffectiveStatus(sub Subscription, now time.Time) SubscriptionStatus {
	switch sub.Status {
	case SubscriptionActive, SubscriptionCancelled:
		if sub.EndDate.Before(now) {
			return SubscriptionExpired
		}
	}
	return sub.Status
}

// GrantsAccess reports whether the subscription entitles its owner at now. Cancelled
// subscriptions keep access until their end date.
func (s Subscription) GrantsAccess(now time.Time) bool {
	switch EffectiveStatus(s, now) {
	case SubscriptionActive, SubscriptionCancelled:
		return true
	default:
		return false
	}
}

// AddMonths returns t shifted by n calendar months. A day that does not exist in the target
// month is clamped to its last day, so Jan 31 + 1 month is Feb 28 (or 29).
func AddMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); day > last {
		day = last
	}
	hour, minute, sec := t.Clock()
	return time.Date(first.Year(), first.Month(), day, hour, minute, sec, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
