package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"mindvault/internal/app"
	"mindvault/internal/domain"
)

// QuizRepository caches assembled quizzes in Redis and falls back to a loader on cache miss.
// Quizzes are stored as JSON: SET quiz:{ownerID}:{folderID} {quiz}
// Invalidations bump INCR quiz:gen:{ownerID}:{folderID}; a load only writes back
// when the generation it started with is still current.
type QuizRepository struct {
	client *redis.Client
	loader app.QuizLoader
	ttl    time.Duration
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

func NewQuizRepository(client *redis.Client, loader app.QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, ownerID, folderID string) (domain.Quiz, error) {
	key := r.quizKey(ownerID, folderID)
	if quiz, ok := r.cached(ctx, key); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := r.cached(ctx, key); ok {
			return quiz, nil
		}
		genKey := r.genKey(ownerID, folderID)
		gen, err := r.generation(ctx, r.client, genKey)
		if err != nil {
			log.Printf("read quiz generation %s: %v", genKey, err)
		}

		quiz, err := r.loader.LoadQuiz(ctx, ownerID, folderID)
		if err != nil {
			return domain.Quiz{}, err
		}
		if err := r.store(ctx, key, genKey, gen, quiz); err != nil {
			log.Printf("cache quiz %s: %v", key, err)
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// Invalidate removes the cached quiz and detaches any load in flight; errors
// are logged since the entry expires anyway.
func (r *QuizRepository) Invalidate(ctx context.Context, ownerID, folderID string) {
	key := r.quizKey(ownerID, folderID)
	genKey := r.genKey(ownerID, folderID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		log.Printf("invalidate quiz %s/%s: %v", ownerID, folderID, err)
	}
	r.sf.Forget(key)
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// generationTTL outlives any cached quiz so a stale load cannot see the counter reset.
const generationTTL = 24 * time.Hour

// store writes the quiz unless the generation moved since the load started.
func (r *QuizRepository) store(ctx context.Context, key, genKey string, gen int64, quiz domain.Quiz) error {
	payload, err := json.Marshal(quiz)
	if err != nil {
		return err
	}
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := r.generation(ctx, tx, genKey)
		if err != nil {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, r.ttlWithJitter())
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (r *QuizRepository) generation(ctx context.Context, c stringGetter, genKey string) (int64, error) {
	gen, err := c.Get(ctx, genKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (r *QuizRepository) cached(ctx context.Context, key string) (domain.Quiz, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("read cached quiz %s: %v", key, err)
		}
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (r *QuizRepository) quizKey(ownerID, folderID string) string {
	return "quiz:" + ownerID + ":" + folderID
}

func (r *QuizRepository) genKey(ownerID, folderID string) string {
	return "quiz:gen:" + ownerID + ":" + folderID
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
