package practice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/preppro/backend/internal/apperr"
	"github.com/preppro/backend/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

const sessionColumns = `id, student_id, input_text, summary_points, generated_questions,
	status, error_message, created_at, updated_at`

func scanSession(row scanner) (*models.PracticeSession, error) {
	var (
		s         models.PracticeSession
		points    []byte
		questions []byte
	)
	if err := row.Scan(&s.ID, &s.StudentID, &s.InputText, &points, &questions,
		&s.Status, &s.ErrorMessage, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.SummaryPoints = []string{}
	s.GeneratedQuestions = []models.GeneratedMCQ{}
	if len(points) > 0 {
		if err := json.Unmarshal(points, &s.SummaryPoints); err != nil {
			return nil, fmt.Errorf("decode summary points: %w", err)
		}
	}
	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &s.GeneratedQuestions); err != nil {
			return nil, fmt.Errorf("decode generated questions: %w", err)
		}
	}
	return &s, nil
}

func (s *Store) Create(ctx context.Context, studentID int64, input string) (*models.PracticeSession, error) {
	sess, err := scanSession(s.db.QueryRowContext(ctx, `
		INSERT INTO practice_sessions (student_id, input_text, status)
		VALUES ($1, $2, $3)
		RETURNING `+sessionColumns, studentID, input, models.PracticePending))
	if err != nil {
		return nil, fmt.Errorf("create practice session: %w", err)
	}
	return sess, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*models.PracticeSession, error) {
	sess, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM practice_sessions WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Practice session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get practice session: %w", err)
	}
	return sess, nil
}

func (s *Store) ListByStudent(ctx context.Context, studentID int64) ([]models.PracticeSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM practice_sessions WHERE student_id = $1 ORDER BY created_at DESC, id DESC`,
		studentID)
	if err != nil {
		return nil, fmt.Errorf("list practice sessions: %w", err)
	}
	defer rows.Close()

	out := []models.PracticeSession{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan practice session: %w", err)
		}
		out = append(out, *sess)
	}
	return out, rows.Err()
}

// Unfinished returns ids of sessions in any of statuses, oldest first.
func (s *Store) Unfinished(ctx context.Context, statuses ...models.PracticeStatus) ([]int64, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM practice_sessions WHERE status = ANY($1) ORDER BY created_at, id`, pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("list unfinished sessions: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) SetStatus(ctx context.Context, id int64, status models.PracticeStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE practice_sessions SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("set session status: %w", err)
	}
	return nil
}

func (s *Store) Complete(ctx context.Context, id int64, points []string, qs []models.GeneratedMCQ) error {
	pointsJSON, err := json.Marshal(points)
	if err != nil {
		return fmt.Errorf("encode summary points: %w", err)
	}
	qsJSON, err := json.Marshal(qs)
	if err != nil {
		return fmt.Errorf("encode generated questions: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE practice_sessions
		SET summary_points = $2, generated_questions = $3, status = $4, error_message = NULL, updated_at = NOW()
		WHERE id = $1`, id, string(pointsJSON), string(qsJSON), models.PracticeCompleted)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	return nil
}

func (s *Store) Fail(ctx context.Context, id int64, msg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE practice_sessions SET status = $2, error_message = $3, updated_at = NOW()
		WHERE id = $1`, id, models.PracticeFailed, msg)
	if err != nil {
		return fmt.Errorf("fail session: %w", err)
	}
	return nil
}
