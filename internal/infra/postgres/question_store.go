package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"trivia-room-service/internal/domain"
)

// QuestionStore is the Postgres-backed question bank.
type QuestionStore struct {
	pool *pgxpool.Pool
}

func NewQuestionStore(pool *pgxpool.Pool) *QuestionStore {
	return &QuestionStore{pool: pool}
}

func (s *QuestionStore) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, type, content, image_url, correct_answer, created_at
		 FROM questions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()
	return scanQuestions(rows)
}

func (s *QuestionStore) FindQuestionsByIDs(ctx context.Context, ids []string) ([]domain.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, type, content, image_url, correct_answer, created_at
		 FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("find questions: %w", err)
	}
	defer rows.Close()
	return scanQuestions(rows)
}

func (s *QuestionStore) CreateQuestion(ctx context.Context, q domain.Question) (domain.Question, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO questions (id, type, content, image_url, correct_answer, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		q.ID, q.Type, q.Content, q.ImageURL, q.CorrectAnswer, q.CreatedAt)
	if err != nil {
		return domain.Question{}, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

func (s *QuestionStore) UpdateQuestion(ctx context.Context, q domain.Question) (domain.Question, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE questions SET type=$2, content=$3, image_url=$4, correct_answer=$5 WHERE id=$1`,
		q.ID, q.Type, q.Content, q.ImageURL, q.CorrectAnswer)
	if err != nil {
		return domain.Question{}, fmt.Errorf("update question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

func (s *QuestionStore) DeleteQuestion(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM questions WHERE id=$1`, id); err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	return nil
}

func scanQuestions(rows pgx.Rows) ([]domain.Question, error) {
	var out []domain.Question
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.Type, &q.Content, &q.ImageURL, &q.CorrectAnswer, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	return out, nil
}
