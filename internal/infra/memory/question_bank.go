package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"trivia-room-service/internal/domain"
)

// QuestionBank is a map-backed implementation of app.QuestionBank, the
// default when no Postgres is configured and the workhorse of the tests.
type QuestionBank struct {
	mu        sync.RWMutex
	questions map[string]domain.Question
	clock     func() time.Time
}

func NewQuestionBank(seed []domain.Question) *QuestionBank {
	b := &QuestionBank{
		questions: make(map[string]domain.Question, len(seed)),
		clock:     time.Now,
	}
	for _, q := range seed {
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		if q.CreatedAt.IsZero() {
			q.CreatedAt = b.clock()
		}
		b.questions[q.ID] = q
	}
	return b
}

func (b *QuestionBank) ListQuestions(_ context.Context) ([]domain.Question, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.Question, 0, len(b.questions))
	for _, q := range b.questions {
		out = append(out, q)
	}
	// Newest first, matching the admin listing order.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (b *QuestionBank) FindQuestionsByIDs(_ context.Context, ids []string) ([]domain.Question, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := b.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (b *QuestionBank) CreateQuestion(_ context.Context, q domain.Question) (domain.Question, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = b.clock()
	}
	b.questions[q.ID] = q
	return q, nil
}

func (b *QuestionBank) UpdateQuestion(_ context.Context, q domain.Question) (domain.Question, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	existing, ok := b.questions[q.ID]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	q.CreatedAt = existing.CreatedAt
	b.questions[q.ID] = q
	return q, nil
}

func (b *QuestionBank) DeleteQuestion(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.questions, id)
	return nil
}
