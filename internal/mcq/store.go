package mcq

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/preppro/backend/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Embedded returns every bank row that has an embedding.
func (s *Store) Embedded(ctx context.Context) ([]models.BankEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, question, correct_answer, distractor1, distractor2, distractor3, support, embedding
		FROM mcq_bank
		WHERE embedding IS NOT NULL
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load mcq bank: %w", err)
	}
	defer rows.Close()

	var out []models.BankEntry
	for rows.Next() {
		var e models.BankEntry
		var vec pq.Float64Array
		if err := rows.Scan(&e.ID, &e.Question, &e.CorrectAnswer, &e.Distractor1,
			&e.Distractor2, &e.Distractor3, &e.Support, &vec); err != nil {
			return nil, err
		}
		e.Embedding = toFloat32(vec)
		out = append(out, e)
	}
	return out, rows.Err()
}

// SaveBatch upserts entries by question text in one transaction and fills
// in their ids.
func (s *Store) SaveBatch(ctx context.Context, entries []models.BankEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO mcq_bank (question, correct_answer, distractor1, distractor2, distractor3, support, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT ON CONSTRAINT mcq_bank_question_key DO UPDATE SET
			correct_answer = EXCLUDED.correct_answer,
			distractor1 = EXCLUDED.distractor1,
			distractor2 = EXCLUDED.distractor2,
			distractor3 = EXCLUDED.distractor3,
			support = EXCLUDED.support,
			embedding = EXCLUDED.embedding
		RETURNING id`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range entries {
		e := &entries[i]
		var vec interface{}
		if len(e.Embedding) > 0 {
			vec = pq.Float64Array(toFloat64(e.Embedding))
		}
		if err := stmt.QueryRowContext(ctx, e.Question, e.CorrectAnswer, e.Distractor1,
			e.Distractor2, e.Distractor3, e.Support, vec).Scan(&e.ID); err != nil {
			return fmt.Errorf("save bank question %q: %w", e.Question, err)
		}
	}
	return tx.Commit()
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mcq_bank`).Scan(&n)
	return n, err
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
