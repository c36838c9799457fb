package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"trivia-room-service/internal/app"
	"trivia-room-service/internal/domain"
)

// CachedQuestionBank is a read-through cache in front of a slower bank
// (typically Postgres). Listing the whole bank happens on every game start,
// so the full list is cached with a TTL; writes invalidate it.
type CachedQuestionBank struct {
	delegate app.QuestionBank
	ttl      time.Duration
	clock    func() time.Time
	sf       singleflight.Group
	rnd      *rand.Rand

	mu        sync.RWMutex
	list      []domain.Question
	expiresAt time.Time
}

func NewCachedQuestionBank(delegate app.QuestionBank, ttl time.Duration) *CachedQuestionBank {
	return &CachedQuestionBank{
		delegate: delegate,
		ttl:      ttl,
		clock:    time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CachedQuestionBank) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	now := c.clock()

	c.mu.RLock()
	if c.list != nil && c.expiresAt.After(now) {
		cached := c.list
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do("list", func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if c.list != nil && c.expiresAt.After(now) {
			cached := c.list
			c.mu.RUnlock()
			return cached, nil
		}
		c.mu.RUnlock()

		list, err := c.delegate.ListQuestions(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.list = list
		c.expiresAt = now.Add(c.ttlWithJitter())
		c.mu.Unlock()
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *CachedQuestionBank) FindQuestionsByIDs(ctx context.Context, ids []string) ([]domain.Question, error) {
	c.mu.RLock()
	list := c.list
	fresh := c.list != nil && c.expiresAt.After(c.clock())
	c.mu.RUnlock()

	if fresh {
		byID := make(map[string]domain.Question, len(list))
		for _, q := range list {
			byID[q.ID] = q
		}
		out := make([]domain.Question, 0, len(ids))
		found := true
		for _, id := range ids {
			q, ok := byID[id]
			if !ok {
				found = false
				break
			}
			out = append(out, q)
		}
		if found {
			return out, nil
		}
	}
	return c.delegate.FindQuestionsByIDs(ctx, ids)
}

func (c *CachedQuestionBank) CreateQuestion(ctx context.Context, q domain.Question) (domain.Question, error) {
	created, err := c.delegate.CreateQuestion(ctx, q)
	if err == nil {
		c.invalidate()
	}
	return created, err
}

func (c *CachedQuestionBank) UpdateQuestion(ctx context.Context, q domain.Question) (domain.Question, error) {
	updated, err := c.delegate.UpdateQuestion(ctx, q)
	if err == nil {
		c.invalidate()
	}
	return updated, err
}

func (c *CachedQuestionBank) DeleteQuestion(ctx context.Context, id string) error {
	err := c.delegate.DeleteQuestion(ctx, id)
	if err == nil {
		c.invalidate()
	}
	return err
}

func (c *CachedQuestionBank) invalidate() {
	c.mu.Lock()
	c.list = nil
	c.mu.Unlock()
}

func (c *CachedQuestionBank) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
