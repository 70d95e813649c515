package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"mindvault/internal/app"
	"mindvault/internal/domain"
)

// QuizRepository caches assembled quizzes with TTL to avoid re-reading concepts.
type QuizRepository struct {
	loader app.QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedQuiz
	// gen counts invalidations per key; a load only fills the cache when no
	// invalidation happened while it ran.
	gen map[string]uint64
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizRepository(loader app.QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuiz),
		gen:    make(map[string]uint64),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, ownerID, folderID string) (domain.Quiz, error) {
	key := cacheKey(ownerID, folderID)
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.quiz, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.quiz, nil
		}
		gen := r.gen[key]
		r.mu.RUnlock()

		quiz, err := r.loader.LoadQuiz(ctx, ownerID, folderID)
		if err != nil {
			return domain.Quiz{}, err
		}

		r.mu.Lock()
		if r.gen[key] == gen {
			r.cache[key] = cachedQuiz{
				quiz:      quiz,
				expiresAt: now.Add(r.ttlWithJitter()),
			}
		}
		r.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// Invalidate drops the cached quiz so the next read reloads concepts. A load
// already in flight is detached and will not write its result back.
func (r *QuizRepository) Invalidate(_ context.Context, ownerID, folderID string) {
	key := cacheKey(ownerID, folderID)
	r.mu.Lock()
	delete(r.cache, key)
	r.gen[key]++
	r.mu.Unlock()
	r.sf.Forget(key)
}

func cacheKey(ownerID, folderID string) string {
	return ownerID + "/" + folderID
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
