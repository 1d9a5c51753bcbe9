package memory

import (
	"bytes"
	"context"
	"sort"
	"time"

	"contentgate/api/internal/models"
	"contentgate/api/internal/repository"
)

type sessions struct{ s *Store }

func (r sessions) Create(_ context.Context, session models.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, existing := range r.s.data.sessions {
		if existing.AccountID == session.AccountID && existing.DeviceID == session.DeviceID {
			session.CreatedAt = existing.CreatedAt
			delete(r.s.data.sessions, id)
		}
	}
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.LastSeenAt = now
	r.s.data.sessions[session.ID] = session
	return nil
}

func (r sessions) CountByAccount(_ context.Context, accountID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	count := 0
	for _, session := range r.s.data.sessions {
		if session.AccountID == accountID {
			count++
		}
	}
	return count, nil
}

func (r sessions) DeleteOldestSessions(_ context.Context, accountID string, keepLatest int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var owned []models.Session
	for _, session := range r.s.data.sessions {
		if session.AccountID == accountID {
			owned = append(owned, session)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].LastSeenAt.After(owned[j].LastSeenAt) })
	for i := keepLatest; i < len(owned); i++ {
		delete(r.s.data.sessions, owned[i].ID)
	}
	return nil
}

func (r sessions) GetByID(_ context.Context, id string) (models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	session, ok := r.s.data.sessions[id]
	if !ok {
		return models.Session{}, repository.ErrNotFound
	}
	return session, nil
}

func (r sessions) FindByRefreshHash(_ context.Context, accountID string, refreshHash []byte) (models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, session := range r.s.data.sessions {
		if session.AccountID == accountID && bytes.Equal(session.RefreshTokenHash, refreshHash) {
			return session, nil
		}
	}
	return models.Session{}, repository.ErrNotFound
}

func (r sessions) DeleteByDevice(_ context.Context, accountID string, deviceID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, session := range r.s.data.sessions {
		if session.AccountID == accountID && session.DeviceID == deviceID {
			delete(r.s.data.sessions, id)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r sessions) DeleteByAccount(_ context.Context, accountID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, session := range r.s.data.sessions {
		if session.AccountID == accountID {
			delete(r.s.data.sessions, id)
		}
	}
	return nil
}
