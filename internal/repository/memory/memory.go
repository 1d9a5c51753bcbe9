// Package memory implements the repository interfaces and the credential store in process.
// It mirrors the unique constraints of the SQL schema and is used by service and handler tests.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"contentgate/api/internal/models"
	"contentgate/api/internal/repository"
)

type credentialKey struct {
	accountID string
	kind      models.CredentialKind
}

type state struct {
	accounts      map[string]models.Account
	sessions      map[string]models.Session
	content       map[string]models.ContentItem
	plans         map[string]models.Plan
	subscriptions map[string]models.Subscription
	payments      map[string]models.Payment
	purchases     map[string]models.Purchase
	credentials   map[credentialKey]models.Credential
}

func (s state) clone() state {
	return state{
		accounts:      maps.Clone(s.accounts),
		sessions:      maps.Clone(s.sessions),
		content:       maps.Clone(s.content),
		plans:         maps.Clone(s.plans),
		subscriptions: maps.Clone(s.subscriptions),
		payments:      maps.Clone(s.payments),
		purchases:     maps.Clone(s.purchases),
		credentials:   maps.Clone(s.credentials),
	}
}

type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data state
}

func NewStore() *Store {
	return &Store{data: state{
		accounts:      map[string]models.Account{},
		sessions:      map[string]models.Session{},
		content:       map[string]models.ContentItem{},
		plans:         map[string]models.Plan{},
		subscriptions: map[string]models.Subscription{},
		payments:      map[string]models.Payment{},
		purchases:     map[string]models.Purchase{},
		credentials:   map[credentialKey]models.Credential{},
	}}
}

func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Accounts:      accounts{s},
		Sessions:      sessions{s},
		Content:       content{s},
		Plans:         plans{s},
		Subscriptions: subscriptions{s},
		Payments:      payments{s},
		Purchases:     purchases{s},
	}
}

func (s *Store) Credentials() *Credentials {
	return &Credentials{s}
}

// WithinTx serialises transactions and restores the previous state when fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			s.restore(snapshot)
			panic(p)
		}
		if err != nil {
			s.restore(snapshot)
		}
	}()

	return fn(ctx, s.Repositories())
}

func (s *Store) restore(snapshot state) {
	s.mu.Lock()
	s.data = snapshot
	s.mu.Unlock()
}

func (s *Store) PutAccount(account models.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.accounts[account.ID] = account
}

func (s *Store) PutContent(item models.ContentItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.content[item.ID] = item
}

func (s *Store) PutPlan(plan models.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.plans[plan.ID] = plan
}

func (s *Store) PutSubscription(sub models.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.subscriptions[sub.ID] = sub
}

func (s *Store) Subscriptions() []models.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs := make([]models.Subscription, 0, len(s.data.subscriptions))
	for _, sub := range s.data.subscriptions {
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
	return subs
}

func (s *Store) Payments() []models.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	payments := make([]models.Payment, 0, len(s.data.payments))
	for _, p := range s.data.payments {
		payments = append(payments, p)
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].ID < payments[j].ID })
	return payments
}

func (s *Store) Purchases() []models.Purchase {
	s.mu.Lock()
	defer s.mu.Unlock()
	purchases := make([]models.Purchase, 0, len(s.data.purchases))
	for _, p := range s.data.purchases {
		purchases = append(purchases, p)
	}
	return purchases
}

func (s *Store) SessionCount(accountID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, session := range s.data.sessions {
		if session.AccountID == accountID {
			count++
		}
	}
	return count
}

func stamp(t *time.Time, u *time.Time) {
	now := time.Now()
	if t.IsZero() {
		*t = now
	}
	*u = now
}
