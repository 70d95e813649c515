package memory

import (
	"context"
	"sync"
	"time"

	"mindvault/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptRepository.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]*domain.Attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]*domain.Attempt),
	}
}

func (s *AttemptStore) Start(_ context.Context, ownerID, folderID string, now time.Time) (domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := cacheKey(ownerID, folderID)
	if attempt, ok := s.attempts[key]; ok {
		return copyAttempt(attempt), nil
	}
	attempt := &domain.Attempt{
		OwnerID:   ownerID,
		FolderID:  folderID,
		Answers:   make(map[string]string),
		StartedAt: now,
	}
	s.attempts[key] = attempt
	return copyAttempt(attempt), nil
}

func (s *AttemptStore) Get(_ context.Context, ownerID, folderID string) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[cacheKey(ownerID, folderID)]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return copyAttempt(attempt), nil
}

func (s *AttemptStore) RecordAnswer(_ context.Context, ownerID, folderID, conceptID, letter string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[cacheKey(ownerID, folderID)]
	if !ok {
		return domain.ErrAttemptNotFound
	}
	attempt.Answers[conceptID] = letter
	return nil
}

func (s *AttemptStore) Delete(_ context.Context, ownerID, folderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, cacheKey(ownerID, folderID))
	return nil
}

func copyAttempt(a *domain.Attempt) domain.Attempt {
	out := *a
	out.Answers = make(map[string]string, len(a.Answers))
	for k, v := range a.Answers {
		out.Answers[k] = v
	}
	return out
}
