package entitlement

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentgate/api/internal/models"
)

func price(v int64) *int64 { return &v }

var (
	user  = &models.Principal{AccountID: "acc-1", Role: models.AccountRoleUser}
	admin = &models.Principal{AccountID: "acc-admin", Role: models.AccountRoleAdmin}
)

func TestDecide(t *testing.T) {
	free := models.ContentItem{ID: "c1", AccessType: models.AccessFree}
	paid := models.ContentItem{ID: "c2", AccessType: models.AccessPaid, Price: price(500)}
	sub := models.ContentItem{ID: "c3", AccessType: models.AccessSubscription}

	tests := []struct {
		name      string
		item      models.ContentItem
		principal *models.Principal
		facts     FactSet
		want      Decision
	}{
		{"free anonymous", free, nil, FactSet{}, Decision{true, ReasonFree}},
		{"free user", free, user, FactSet{}, Decision{true, ReasonFree}},
		{"paid anonymous", paid, nil, FactSet{Purchased: true}, Decision{false, ReasonAnonymous}},
		{"paid not purchased", paid, user, FactSet{}, Decision{false, ReasonNotPurchased}},
		{"paid purchased", paid, user, FactSet{Purchased: true}, Decision{true, ReasonPurchased}},
		{"paid with subscription only", paid, user, FactSet{ActiveSubscription: true}, Decision{false, ReasonNotPurchased}},
		{"subscription anonymous", sub, nil, FactSet{}, Decision{false, ReasonAnonymous}},
		{"subscription none", sub, user, FactSet{Purchased: true}, Decision{false, ReasonNoActiveSubscription}},
		{"subscription active", sub, user, FactSet{ActiveSubscription: true}, Decision{true, ReasonSubscribed}},
		{"admin without subscription", sub, admin, FactSet{}, Decision{false, ReasonNoActiveSubscription}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.item, tt.principal, tt.facts))
		})
	}
}

type stubFacts struct {
	purchases map[string]bool
	subEnd    time.Time
	calls     int
	err       error
}

func (s *stubFacts) HasPurchase(_ context.Context, accountID, contentID string) (bool, error) {
	s.calls++
	return s.purchases[accountID+"/"+contentID], s.err
}

func (s *stubFacts) HasActiveSubscription(_ context.Context, _ string, now time.Time) (bool, error) {
	s.calls++
	return !s.subEnd.IsZero() && !s.subEnd.Before(now), s.err
}

func TestResolverReadsFactsEveryCall(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	facts := &stubFacts{purchases: map[string]bool{}, subEnd: now.Add(time.Hour)}
	clock := now
	r := NewResolver(facts, func() time.Time { return clock })

	item := models.ContentItem{ID: "c3", AccessType: models.AccessSubscription}

	d, err := r.Resolve(context.Background(), user, item)
	require.NoError(t, err)
	assert.True(t, d.Granted)

	// advancing the clock past end_date flips access without any write
	clock = now.Add(2 * time.Hour)
	d, err = r.Resolve(context.Background(), user, item)
	require.NoError(t, err)
	assert.Equal(t, Decision{false, ReasonNoActiveSubscription}, d)
	assert.Equal(t, 2, facts.calls)
}

func TestResolverPurchaseBecomesVisible(t *testing.T) {
	facts := &stubFacts{purchases: map[string]bool{}}
	r := NewResolver(facts, nil)
	item := models.ContentItem{ID: "c2", AccessType: models.AccessPaid, Price: price(100)}

	d, err := r.Resolve(context.Background(), user, item)
	require.NoError(t, err)
	assert.False(t, d.Granted)

	facts.purchases["acc-1/c2"] = true
	d, err = r.Resolve(context.Background(), user, item)
	require.NoError(t, err)
	assert.True(t, d.Granted)
}

func TestResolverSkipsFactsWhenNotNeeded(t *testing.T) {
	facts := &stubFacts{}
	r := NewResolver(facts, nil)

	_, err := r.Resolve(context.Background(), nil, models.ContentItem{AccessType: models.AccessPaid})
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), user, models.ContentItem{AccessType: models.AccessFree})
	require.NoError(t, err)
	assert.Zero(t, facts.calls)
}

func TestResolverPropagatesErrors(t *testing.T) {
	r := NewResolver(&stubFacts{err: errors.New("db down")}, nil)
	_, err := r.Resolve(context.Background(), user, models.ContentItem{ID: "c2", AccessType: models.AccessPaid})
	require.Error(t, err)
}

func TestRedact(t *testing.T) {
	body := strings.Repeat("é", 250)
	item := models.ContentItem{Body: body}

	assert.Equal(t, body, Redact(item, Decision{Granted: true}, 200))

	preview := Redact(item, Decision{Granted: false}, 200)
	assert.Equal(t, strings.Repeat("é", 200)+"...", preview)

	item.Excerpt = "Short teaser"
	assert.Equal(t, "Short teaser", Redact(item, Decision{Granted: false}, 200))

	short := models.ContentItem{Body: "tiny"}
	assert.Equal(t, "ti...", Redact(short, Decision{Granted: false}, 0))
}

func TestRedactNeverReturnsWholeShortBody(t *testing.T) {
	bodies := []string{"", "x", "The secret answer is 42.", strings.Repeat("a", 200), strings.Repeat("ü", 199)}
	for _, body := range bodies {
		preview := Redact(models.ContentItem{Body: body}, Decision{Granted: false}, 200)
		visible := strings.TrimSuffix(preview, "...")
		assert.True(t, strings.HasPrefix(body, visible), body)
		if body != "" {
			assert.Less(t, utf8.RuneCountInString(visible), utf8.RuneCountInString(body), body)
		}
	}

	preview := Redact(models.ContentItem{Body: "The secret answer is 42."}, Decision{Granted: false}, 200)
	assert.Equal(t, "The secret a...", preview)
}
