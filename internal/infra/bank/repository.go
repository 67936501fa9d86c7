package bank

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"quizbank-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Loader fetches the full question bank from a backing store (xlsx file,
// Postgres, static fixture).
type Loader interface {
	Load(ctx context.Context) ([]domain.QuestionRecord, error)
}

// Repository caches the loaded bank to avoid re-reading the backing store on
// every interaction. The cache is dropped on Invalidate (after an edit) and,
// when a TTL is configured, expires on its own so external file edits are
// eventually picked up.
type Repository struct {
	loader Loader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	records   []domain.QuestionRecord
	loaded    bool
	expiresAt time.Time
}

func NewRepository(loader Loader, ttl time.Duration) *Repository {
	return &Repository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *Repository) Load(ctx context.Context) ([]domain.QuestionRecord, error) {
	if records, ok := r.cached(); ok {
		return records, nil
	}

	result, err, _ := r.sf.Do("bank", func() (interface{}, error) {
		if records, ok := r.cached(); ok {
			return records, nil
		}

		records, err := r.loader.Load(ctx)
		if err != nil {
			return nil, err
		}
		if err := validate(records); err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.records = records
		r.loaded = true
		if r.ttl > 0 {
			r.expiresAt = r.clock().Add(r.ttlWithJitter())
		}
		r.mu.Unlock()
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.QuestionRecord), nil
}

// Invalidate drops the cached view; the next Load re-reads the backing store.
func (r *Repository) Invalidate() {
	r.mu.Lock()
	r.loaded = false
	r.records = nil
	r.mu.Unlock()
}

func (r *Repository) cached() ([]domain.QuestionRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.loaded {
		return nil, false
	}
	if r.ttl > 0 && !r.expiresAt.After(r.clock()) {
		return nil, false
	}
	return r.records, true
}

// validate enforces the bank schema: identity keys must be unique.
func validate(records []domain.QuestionRecord) error {
	seen := make(map[domain.QuestionKey]struct{}, len(records))
	for _, q := range records {
		key := q.Key()
		if key.Chapter == "" || key.Number == "" {
			return fmt.Errorf("bank row missing identity: %+v", key)
		}
		if _, ok := seen[key]; ok {
			return fmt.Errorf("duplicate question %s/%s in bank", key.Chapter, key.Number)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func (r *Repository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
