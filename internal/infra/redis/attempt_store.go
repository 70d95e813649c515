package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mindvault/internal/domain"
)

const startedAtField = "_startedAt"

// AttemptStore keeps live attempts in Redis so any instance can finish them.
// Each attempt is a hash: HSET quiz:attempt:{ownerID}:{folderID} _startedAt {unix} {conceptID} {letter}
type AttemptStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{client: client, ttl: ttl}
}

func (s *AttemptStore) Start(ctx context.Context, ownerID, folderID string, now time.Time) (domain.Attempt, error) {
	key := s.key(ownerID, folderID)
	created, err := s.client.HSetNX(ctx, key, startedAtField, now.UTC().Unix()).Result()
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("start attempt: %w", err)
	}
	if created && s.ttl > 0 {
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			return domain.Attempt{}, fmt.Errorf("expire attempt: %w", err)
		}
	}
	return s.Get(ctx, ownerID, folderID)
}

func (s *AttemptStore) Get(ctx context.Context, ownerID, folderID string) (domain.Attempt, error) {
	fields, err := s.client.HGetAll(ctx, s.key(ownerID, folderID)).Result()
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("get attempt: %w", err)
	}
	raw, ok := fields[startedAtField]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	var unix int64
	if _, err := fmt.Sscan(raw, &unix); err != nil {
		return domain.Attempt{}, fmt.Errorf("parse attempt start: %w", err)
	}
	attempt := domain.Attempt{
		OwnerID:   ownerID,
		FolderID:  folderID,
		Answers:   make(map[string]string, len(fields)-1),
		StartedAt: time.Unix(unix, 0).UTC(),
	}
	for field, value := range fields {
		if field != startedAtField {
			attempt.Answers[field] = value
		}
	}
	return attempt, nil
}

func (s *AttemptStore) RecordAnswer(ctx context.Context, ownerID, folderID, conceptID, letter string) error {
	key := s.key(ownerID, folderID)
	exists, err := s.client.HExists(ctx, key, startedAtField).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("record answer: %w", err)
	}
	if !exists {
		return domain.ErrAttemptNotFound
	}
	if err := s.client.HSet(ctx, key, conceptID, letter).Err(); err != nil {
		return fmt.Errorf("record answer: %w", err)
	}
	return nil
}

func (s *AttemptStore) Delete(ctx context.Context, ownerID, folderID string) error {
	if err := s.client.Del(ctx, s.key(ownerID, folderID)).Err(); err != nil {
		return fmt.Errorf("delete attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) key(ownerID, folderID string) string {
	return "quiz:attempt:" + ownerID + ":" + folderID
}
