package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveStatus(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		status SubscriptionStatus
		end    time.Time
		want   SubscriptionStatus
		access bool
	}{
		{"active in window", SubscriptionActive, now.Add(time.Hour), SubscriptionActive, true},
		{"active at end instant", SubscriptionActive, now, SubscriptionActive, true},
		{"active past end", SubscriptionActive, now.Add(-time.Second), SubscriptionExpired, false},
		{"cancelled in window", SubscriptionCancelled, now.Add(time.Hour), SubscriptionCancelled, true},
		{"cancelled past end", SubscriptionCancelled, now.Add(-time.Hour), SubscriptionExpired, false},
		{"pending never grants", SubscriptionPending, now.Add(time.Hour), SubscriptionPending, false},
		{"expired stays expired", SubscriptionExpired, now.Add(time.Hour), SubscriptionExpired, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sub := Subscription{Status: tc.status, EndDate: tc.end}
			assert.Equal(t, tc.want, EffectiveStatus(sub, now))
			assert.Equal(t, tc.access, sub.GrantsAccess(now))
		})
	}
}

func TestAddMonthsUsesCalendarMonths(t *testing.T) {
	start := time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 2, 15, 9, 30, 0, 0, time.UTC), AddMonths(start, 1))
	assert.Equal(t, time.Date(2027, 1, 15, 9, 30, 0, 0, time.UTC), AddMonths(start, 12))

	monthEnd := time.Date(2026, 1, 31, 23, 15, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 2, 28, 23, 15, 0, 0, time.UTC), AddMonths(monthEnd, 1))
	assert.Equal(t, time.Date(2026, 3, 31, 23, 15, 0, 0, time.UTC), AddMonths(monthEnd, 2))
	assert.Equal(t, time.Date(2026, 4, 30, 23, 15, 0, 0, time.UTC), AddMonths(monthEnd, 3))
	assert.Equal(t, time.Date(2028, 2, 29, 23, 15, 0, 0, time.UTC), AddMonths(time.Date(2028, 1, 31, 23, 15, 0, 0, time.UTC), 1))
	assert.Equal(t, time.Date(2027, 2, 28, 23, 15, 0, 0, time.UTC), AddMonths(time.Date(2026, 12, 31, 23, 15, 0, 0, time.UTC), 2))
}

func TestPaymentPurposeEnvelope(t *testing.T) {
	purposes := []PaymentPurpose{
		SubscriptionPurpose{PlanID: "monthly", SubscriptionID: "sub-1"},
		BlogPurchasePurpose{BlogID: "blog-1"},
		ResourcePurchasePurpose{ResourceID: "res-1"},
	}
	for _, p := range purposes {
		raw, err := MarshalPurpose(p)
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"kind":"`+string(p.Kind())+`"`)

		decoded, err := UnmarshalPurpose(raw)
		require.NoError(t, err)
		assert.Equal(t, p, decoded)
	}
}

func TestUnmarshalPurposeRejectsUnknownKind(t *testing.T) {
	_, err := UnmarshalPurpose([]byte(`{"kind":"gift_card","data":{}}`))
	assert.ErrorContains(t, err, "gift_card")

	_, err = MarshalPurpose(nil)
	assert.Error(t, err)
}

func TestPurchasePurposeFor(t *testing.T) {
	assert.Equal(t, ResourcePurchasePurpose{ResourceID: "r"}, PurchasePurposeFor(ContentItem{ID: "r", Kind: ContentKindResource}))
	assert.Equal(t, BlogPurchasePurpose{BlogID: "b"}, PurchasePurposeFor(ContentItem{ID: "b", Kind: ContentKindBlog}))
}

func TestPurchasedContentID(t *testing.T) {
	id, ok := PurchasedContentID(BlogPurchasePurpose{BlogID: "b"})
	assert.True(t, ok)
	assert.Equal(t, "b", id)

	id, ok = PurchasedContentID(ResourcePurchasePurpose{ResourceID: "r"})
	assert.True(t, ok)
	assert.Equal(t, "r", id)

	_, ok = PurchasedContentID(SubscriptionPurpose{PlanID: "monthly"})
	assert.False(t, ok)
}

func TestPrincipalIsAdmin(t *testing.T) {
	var anonymous *Principal
	assert.False(t, anonymous.IsAdmin())
	assert.False(t, (&Principal{Role: AccountRoleUser}).IsAdmin())
	assert.True(t, (&Principal{Role: AccountRoleAdmin}).IsAdmin())
}
