package memory

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"trivia-room-service/internal/domain"
)

// countingBank wraps a QuestionBank and counts delegate reads.
type countingBank struct {
	*QuestionBank
	listCalls int64
	findCalls int64
}

func (b *countingBank) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	atomic.AddInt64(&b.listCalls, 1)
	return b.QuestionBank.ListQuestions(ctx)
}

func (b *countingBank) FindQuestionsByIDs(ctx context.Context, ids []string) ([]domain.Question, error) {
	atomic.AddInt64(&b.findCalls, 1)
	return b.QuestionBank.FindQuestionsByIDs(ctx, ids)
}

func newCountingCache(seed []domain.Question, ttl time.Duration) (*CachedQuestionBank, *countingBank, *time.Time) {
	delegate := &countingBank{QuestionBank: NewQuestionBank(seed)}
	cache := NewCachedQuestionBank(delegate, ttl)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache.clock = func() time.Time { return now }
	return cache, delegate, &now
}

func TestCachedBankServesListFromCache(t *testing.T) {
	ctx := context.Background()
	cache, delegate, _ := newCountingCache([]domain.Question{
		{ID: "q1", Content: "a", CorrectAnswer: domain.AnswerReal},
	}, time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := cache.ListQuestions(ctx); err != nil {
			t.Fatalf("list: %v", err)
		}
	}
	if n := atomic.LoadInt64(&delegate.listCalls); n != 1 {
		t.Fatalf("expected a single delegate read, got %d", n)
	}
}

func TestCachedBankExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	cache, delegate, now := newCountingCache([]domain.Question{
		{ID: "q1", Content: "a", CorrectAnswer: domain.AnswerReal},
	}, time.Minute)

	_, _ = cache.ListQuestions(ctx)
	// Beyond TTL plus the largest possible 10% jitter.
	*now = now.Add(2 * time.Minute)
	_, _ = cache.ListQuestions(ctx)

	if n := atomic.LoadInt64(&delegate.listCalls); n != 2 {
		t.Fatalf("expected reload after expiry, got %d reads", n)
	}
}

func TestCachedBankFindServedFromFreshList(t *testing.T) {
	ctx := context.Background()
	cache, delegate, _ := newCountingCache([]domain.Question{
		{ID: "q1", Content: "a", CorrectAnswer: domain.AnswerReal},
		{ID: "q2", Content: "b", CorrectAnswer: domain.AnswerAI},
	}, time.Minute)

	_, _ = cache.ListQuestions(ctx)
	out, err := cache.FindQuestionsByIDs(ctx, []string{"q2", "q1"})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(out) != 2 || out[0].ID != "q2" || out[1].ID != "q1" {
		t.Fatalf("unexpected order: %+v", out)
	}
	if n := atomic.LoadInt64(&delegate.findCalls); n != 0 {
		t.Fatalf("expected lookup from cache, delegate reads=%d", n)
	}
}

func TestCachedBankFindFallsThroughOnMiss(t *testing.T) {
	ctx := context.Background()
	cache, delegate, _ := newCountingCache([]domain.Question{
		{ID: "q1", Content: "a", CorrectAnswer: domain.AnswerReal},
	}, time.Minute)

	_, _ = cache.ListQuestions(ctx)
	// q2 was added behind the cache's back; the stale list cannot cover it.
	_, _ = delegate.QuestionBank.CreateQuestion(ctx, domain.Question{ID: "q2", Content: "b", CorrectAnswer: domain.AnswerAI})

	out, err := cache.FindQuestionsByIDs(ctx, []string{"q1", "q2"})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected both questions via delegate, got %d", len(out))
	}
	if n := atomic.LoadInt64(&delegate.findCalls); n != 1 {
		t.Fatalf("expected one delegate lookup, got %d", n)
	}
}

func TestCachedBankWritesInvalidate(t *testing.T) {
	ctx := context.Background()
	cache, delegate, _ := newCountingCache([]domain.Question{
		{ID: "q1", Content: "a", CorrectAnswer: domain.AnswerReal},
	}, time.Minute)

	_, _ = cache.ListQuestions(ctx)
	if _, err := cache.CreateQuestion(ctx, domain.Question{ID: "q2", Content: "b", CorrectAnswer: domain.AnswerAI}); err != nil {
		t.Fatalf("create: %v", err)
	}

	all, _ := cache.ListQuestions(ctx)
	if len(all) != 2 {
		t.Fatalf("expected invalidated cache to see the new question, got %d", len(all))
	}
	if n := atomic.LoadInt64(&delegate.listCalls); n != 2 {
		t.Fatalf("expected reload after write, got %d reads", n)
	}

	if err := cache.DeleteQuestion(ctx, "q2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	all, _ = cache.ListQuestions(ctx)
	if len(all) != 1 {
		t.Fatalf("expected delete to invalidate, got %d", len(all))
	}
}
