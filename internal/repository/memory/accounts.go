package memory

import (
	"context"

	"contentgate/api/internal/models"
	"contentgate/api/internal/repository"
)

type accounts struct{ s *Store }

func (r accounts) Create(_ context.Context, account models.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.accounts[account.ID]; ok {
		return repository.ErrConflict
	}
	for _, existing := range r.s.data.accounts {
		if existing.Email == account.Email {
			return repository.ErrConflict
		}
	}
	stamp(&account.CreatedAt, &account.UpdatedAt)
	r.s.data.accounts[account.ID] = account
	return nil
}

func (r accounts) GetByID(_ context.Context, id string) (models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	account, ok := r.s.data.accounts[id]
	if !ok {
		return models.Account{}, repository.ErrNotFound
	}
	return account, nil
}

func (r accounts) FindByEmail(_ context.Context, email string) (models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, account := range r.s.data.accounts {
		if account.Email == email {
			return account, nil
		}
	}
	return models.Account{}, repository.ErrNotFound
}

func (r accounts) MarkVerified(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	account, ok := r.s.data.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.EmailVerified = true
	stamp(&account.CreatedAt, &account.UpdatedAt)
	r.s.data.accounts[id] = account
	return nil
}

func (r accounts) SetBanned(_ context.Context, id string, banned bool) (models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	account, ok := r.s.data.accounts[id]
	if !ok {
		return models.Account{}, repository.ErrNotFound
	}
	account.Banned = banned
	stamp(&account.CreatedAt, &account.UpdatedAt)
	r.s.data.accounts[id] = account
	return account, nil
}

// LockForUpdate only checks existence; WithinTx already serialises transactions.
func (r accounts) LockForUpdate(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.accounts[id]; !ok {
		return repository.ErrNotFound
	}
	return nil
}
