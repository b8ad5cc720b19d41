package feedback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/preppro/backend/internal/apperr"
	"github.com/preppro/backend/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// AttemptRef identifies who took an attempt and who owns its test.
type AttemptRef struct {
	AttemptID int64
	StudentID int64
	TestID    int64
	TeacherID int64
}

type scanner interface {
	Scan(dest ...interface{}) error
}

const feedbackSelect = `SELECT f.id, f.attempt_id, f.student_id, f.comments, f.is_read, f.status,
	f.teacher_response, f.response_date, f.created_at, f.updated_at,
	a.test_id, t.title, u.username, a.score, a.total_questions, t.created_by
	FROM test_feedback f
	JOIN student_test_attempts a ON a.id = f.attempt_id
	JOIN tests t ON t.id = a.test_id
	JOIN users u ON u.id = f.student_id`

func scanFeedback(row scanner) (*models.Feedback, int64, error) {
	var f models.Feedback
	var teacherID int64
	if err := row.Scan(&f.ID, &f.AttemptID, &f.StudentID, &f.Comments, &f.IsRead, &f.Status,
		&f.TeacherResponse, &f.ResponseDate, &f.CreatedAt, &f.UpdatedAt,
		&f.TestID, &f.TestTitle, &f.StudentName, &f.Score, &f.Total, &teacherID); err != nil {
		return nil, 0, err
	}
	return &f, teacherID, nil
}

func (s *Store) query(ctx context.Context, query string, args ...interface{}) ([]models.Feedback, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()

	out := []models.Feedback{}
	for rows.Next() {
		f, _, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func (s *Store) Attempt(ctx context.Context, attemptID int64) (*AttemptRef, error) {
	ref := AttemptRef{AttemptID: attemptID}
	err := s.db.QueryRowContext(ctx, `
		SELECT a.student_id, a.test_id, t.created_by
		FROM student_test_attempts a JOIN tests t ON t.id = a.test_id
		WHERE a.id = $1 AND a.deleted_at IS NULL`, attemptID).
		Scan(&ref.StudentID, &ref.TestID, &ref.TeacherID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Test attempt not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return &ref, nil
}

// IsAssigned reports whether any live assignment of the test includes the student.
func (s *Store) IsAssigned(ctx context.Context, testID, studentID int64) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM test_assignments
		               WHERE test_id = $1 AND $2 = ANY(assigned_to) AND deleted_at IS NULL)`,
		testID, studentID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check assignment: %w", err)
	}
	return ok, nil
}

func (s *Store) Create(ctx context.Context, attemptID, studentID int64, comments string) (*models.Feedback, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO test_feedback (attempt_id, student_id, comments, status)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		attemptID, studentID, comments, models.FeedbackPending).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("create feedback: %w", err)
	}
	f, _, err := s.Get(ctx, id)
	return f, err
}

// Get returns the feedback and the id of the teacher owning its test.
func (s *Store) Get(ctx context.Context, id int64) (*models.Feedback, int64, error) {
	f, teacherID, err := scanFeedback(s.db.QueryRowContext(ctx, feedbackSelect+` WHERE f.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, apperr.NotFound("Feedback not found")
	}
	if err != nil {
		return nil, 0, fmt.Errorf("get feedback: %w", err)
	}
	return f, teacherID, nil
}

func (s *Store) Respond(ctx context.Context, id int64, response string, status models.FeedbackStatus, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE test_feedback SET teacher_response = $2, status = $3, response_date = $4, updated_at = $4
		WHERE id = $1`, id, response, status, now)
	if err != nil {
		return fmt.Errorf("respond to feedback: %w", err)
	}
	return nil
}

func (s *Store) MarkRead(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE test_feedback SET is_read = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark feedback read: %w", err)
	}
	return nil
}

func (s *Store) ListByStudent(ctx context.Context, studentID int64) ([]models.Feedback, error) {
	return s.query(ctx, feedbackSelect+` WHERE f.student_id = $1 ORDER BY f.created_at DESC`, studentID)
}

func (s *Store) ListByTeacher(ctx context.Context, teacherID int64) ([]models.Feedback, error) {
	return s.query(ctx, feedbackSelect+` WHERE t.created_by = $1 ORDER BY f.created_at DESC`, teacherID)
}

func (s *Store) ListByAttempt(ctx context.Context, attemptID int64) ([]models.Feedback, error) {
	return s.query(ctx, feedbackSelect+` WHERE f.attempt_id = $1 ORDER BY f.created_at`, attemptID)
}
