package questions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/preppro/backend/internal/apperr"
	"github.com/preppro/backend/internal/models"
)

const questionColumns = `id, question, options, correct_answer, subject, topic, difficulty,
	explanation, created_by, created_at, updated_at`

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanQuestion(row scanner) (*models.Question, error) {
	var q models.Question
	var options []byte
	var createdBy sql.NullInt64
	if err := row.Scan(&q.ID, &q.Question, &options, &q.CorrectAnswer, &q.Subject, &q.Topic,
		&q.Difficulty, &q.Explanation, &createdBy, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(options, &q.Options); err != nil {
		return nil, fmt.Errorf("decode options for question %d: %w", q.ID, err)
	}
	if createdBy.Valid {
		id := createdBy.Int64
		q.CreatedBy = &id
	}
	return &q, nil
}

func scanQuestions(rows *sql.Rows) ([]models.Question, error) {
	defer rows.Close()
	var out []models.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

// List returns questions matching the exact-match filters, newest first.
// Paging and search are applied by the caller.
func (s *Store) List(ctx context.Context, f models.QuestionFilter) ([]models.Question, error) {
	var (
		where = []string{"deleted_at IS NULL"}
		args  []interface{}
	)
	add := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("subject", f.Subject)
	add("topic", f.Topic)
	add("difficulty", f.Difficulty)

	query := `SELECT ` + questionColumns + ` FROM questions WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return scanQuestions(rows)
}

func (s *Store) Get(ctx context.Context, id int64) (*models.Question, error) {
	q, err := scanQuestion(s.db.QueryRowContext(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1 AND deleted_at IS NULL`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Question not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	return q, nil
}

// GetMany returns the live questions among ids, in id order.
func (s *Store) GetMany(ctx context.Context, ids []int64) ([]models.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+questionColumns+` FROM questions
		 WHERE id = ANY($1) AND deleted_at IS NULL ORDER BY id`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}
	return scanQuestions(rows)
}

type execer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func insertQuestion(ctx context.Context, db execer, q models.Question) (*models.Question, error) {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return nil, fmt.Errorf("encode options: %w", err)
	}
	saved, err := scanQuestion(db.QueryRowContext(ctx,
		`INSERT INTO questions (question, options, correct_answer, subject, topic, difficulty, explanation, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+questionColumns,
		q.Question, string(options), q.CorrectAnswer, q.Subject, q.Topic, q.Difficulty, q.Explanation, q.CreatedBy))
	if err != nil {
		return nil, fmt.Errorf("insert question: %w", err)
	}
	return saved, nil
}

func (s *Store) Create(ctx context.Context, q models.Question) (*models.Question, error) {
	return insertQuestion(ctx, s.db, q)
}

// CreateMany inserts all questions or none.
func (s *Store) CreateMany(ctx context.Context, qs []models.Question) ([]models.Question, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	out := make([]models.Question, 0, len(qs))
	for i, q := range qs {
		saved, err := insertQuestion(ctx, tx, q)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		out = append(out, *saved)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit questions: %w", err)
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, q models.Question) (*models.Question, error) {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return nil, fmt.Errorf("encode options: %w", err)
	}
	saved, err := scanQuestion(s.db.QueryRowContext(ctx,
		`UPDATE questions SET question = $2, options = $3, correct_answer = $4, subject = $5,
			topic = $6, difficulty = $7, explanation = $8, updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL
		 RETURNING `+questionColumns,
		q.ID, q.Question, string(options), q.CorrectAnswer, q.Subject, q.Topic, q.Difficulty, q.Explanation))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Question not found")
	}
	if err != nil {
		return nil, fmt.Errorf("update question: %w", err)
	}
	return saved, nil
}

func (s *Store) SoftDelete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE questions SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("Question not found")
	}
	return nil
}
