package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

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

// questionTally is raw per-question correctness before rates are computed.
type questionTally struct {
	ID       int64
	Text     string
	Attempts int
	Correct  int
}

// monthRow is one month bucket; Count is attempts or tests depending on the query.
type monthRow struct {
	Month   time.Time
	Count   int
	Average float64
}

func (s *Store) Student(ctx context.Context, id int64) (*models.StudentIdentity, error) {
	var st models.StudentIdentity
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, email FROM users WHERE id = $1 AND deleted_at IS NULL`, id).
		Scan(&st.ID, &st.Username, &st.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	return &st, nil
}

// ScoreHistory returns the student's attempts oldest first.
func (s *Store) ScoreHistory(ctx context.Context, studentID int64) ([]models.ScorePoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT attempted_at, score FROM student_test_attempts
		WHERE student_id = $1 AND deleted_at IS NULL
		ORDER BY attempted_at`, studentID)
	if err != nil {
		return nil, fmt.Errorf("score history: %w", err)
	}
	defer rows.Close()

	out := []models.ScorePoint{}
	for rows.Next() {
		var p models.ScorePoint
		if err := rows.Scan(&p.AttemptedAt, &p.Score); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// StudentSubjects groups the student's attempts by test subject, most attempted first.
func (s *Store) StudentSubjects(ctx context.Context, studentID int64) ([]models.StudentSubjectPerformance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.subject, AVG(a.score)::float8, COUNT(*)
		FROM student_test_attempts a JOIN tests t ON t.id = a.test_id
		WHERE a.student_id = $1 AND a.deleted_at IS NULL
		GROUP BY t.subject
		ORDER BY COUNT(*) DESC, t.subject`, studentID)
	if err != nil {
		return nil, fmt.Errorf("student subjects: %w", err)
	}
	defer rows.Close()

	out := []models.StudentSubjectPerformance{}
	for rows.Next() {
		var p models.StudentSubjectPerformance
		if err := rows.Scan(&p.Subject, &p.AverageScore, &p.TotalAttempts); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		p.AverageScore = round2(p.AverageScore)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) StudentMonths(ctx context.Context, studentID int64) ([]monthRow, error) {
	return s.months(ctx, `
		SELECT date_trunc('month', attempted_at), COUNT(*), AVG(score)::float8
		FROM student_test_attempts
		WHERE student_id = $1 AND deleted_at IS NULL
		GROUP BY 1 ORDER BY 1`, studentID)
}

func (s *Store) TeacherMonths(ctx context.Context, teacherID int64) ([]monthRow, error) {
	return s.months(ctx, `
		SELECT date_trunc('month', created_at), COUNT(*), 0::float8
		FROM tests
		WHERE created_by = $1 AND deleted_at IS NULL
		GROUP BY 1 ORDER BY 1`, teacherID)
}

func (s *Store) months(ctx context.Context, query string, id int64) ([]monthRow, error) {
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("monthly counts: %w", err)
	}
	defer rows.Close()

	var out []monthRow
	for rows.Next() {
		var m monthRow
		if err := rows.Scan(&m.Month, &m.Count, &m.Average); err != nil {
			return nil, fmt.Errorf("scan month: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// StudentQuestionTallies counts, per question on tests the student attempted,
// how often it was answered correctly.
func (s *Store) StudentQuestionTallies(ctx context.Context, studentID int64) ([]questionTally, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT q.id, q.question, COUNT(*),
		       COUNT(*) FILTER (WHERE (a.answers ->> q.id::text)::int = q.correct_answer)
		FROM student_test_attempts a
		JOIN test_questions tq ON tq.test_id = a.test_id
		JOIN questions q ON q.id = tq.question_id
		WHERE a.student_id = $1 AND a.deleted_at IS NULL
		GROUP BY q.id, q.question`, studentID)
	if err != nil {
		return nil, fmt.Errorf("question tallies: %w", err)
	}
	defer rows.Close()

	var out []questionTally
	for rows.Next() {
		var t questionTally
		if err := rows.Scan(&t.ID, &t.Text, &t.Attempts, &t.Correct); err != nil {
			return nil, fmt.Errorf("scan tally: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) TeacherTests(ctx context.Context, teacherID int64) ([]models.Test, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, duration, total_marks, passing_marks, subject, topic,
		       difficulty, instructions, created_by, is_published, created_at, updated_at
		FROM tests WHERE created_by = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC`, teacherID)
	if err != nil {
		return nil, fmt.Errorf("teacher tests: %w", err)
	}
	defer rows.Close()

	out := []models.Test{}
	for rows.Next() {
		var t models.Test
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Duration, &t.TotalMarks, &t.PassingMarks,
			&t.Subject, &t.Topic, &t.Difficulty, &t.Instructions, &t.CreatedBy, &t.IsPublished,
			&t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan test: %w", err)
		}
		t.QuestionIDs = []int64{}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) TestPerformance(ctx context.Context, teacherID int64) ([]models.TestScore, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.title, AVG(a.score)::float8
		FROM student_test_attempts a JOIN tests t ON t.id = a.test_id
		WHERE t.created_by = $1 AND a.deleted_at IS NULL
		GROUP BY t.id, t.title
		ORDER BY t.id`, teacherID)
	if err != nil {
		return nil, fmt.Errorf("test performance: %w", err)
	}
	defer rows.Close()

	out := []models.TestScore{}
	for rows.Next() {
		var ts models.TestScore
		if err := rows.Scan(&ts.TestID, &ts.Title, &ts.AvgScore); err != nil {
			return nil, fmt.Errorf("scan test score: %w", err)
		}
		ts.AvgScore = round2(ts.AvgScore)
		out = append(out, ts)
	}
	return out, rows.Err()
}

func (s *Store) TopStudents(ctx context.Context, teacherID int64, limit int) ([]models.StudentScore, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, AVG(a.score)::float8 AS avg_score
		FROM student_test_attempts a
		JOIN tests t ON t.id = a.test_id
		JOIN users u ON u.id = a.student_id
		WHERE t.created_by = $1 AND a.deleted_at IS NULL
		GROUP BY u.id, u.username
		ORDER BY avg_score DESC, u.id
		LIMIT $2`, teacherID, limit)
	if err != nil {
		return nil, fmt.Errorf("top students: %w", err)
	}
	defer rows.Close()

	out := []models.StudentScore{}
	for rows.Next() {
		var ss models.StudentScore
		if err := rows.Scan(&ss.StudentID, &ss.StudentName, &ss.AvgScore); err != nil {
			return nil, fmt.Errorf("scan student score: %w", err)
		}
		ss.AvgScore = round2(ss.AvgScore)
		out = append(out, ss)
	}
	return out, rows.Err()
}

// TeacherQuestionStats merges the stored per-question stats of every test the
// teacher owns and attaches question text.
func (s *Store) TeacherQuestionStats(ctx context.Context, teacherID int64) ([]questionTally, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ta.question_stats FROM test_analytics ta
		JOIN tests t ON t.id = ta.test_id
		WHERE t.created_by = $1 AND t.deleted_at IS NULL`, teacherID)
	if err != nil {
		return nil, fmt.Errorf("question stats: %w", err)
	}
	defer rows.Close()

	var all []map[string]models.QuestionStat
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan question stats: %w", err)
		}
		stats := map[string]models.QuestionStat{}
		if err := json.Unmarshal(raw, &stats); err != nil {
			return nil, fmt.Errorf("decode question stats: %w", err)
		}
		all = append(all, stats)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tallies := mergeStats(all)
	if len(tallies) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(tallies))
	for _, t := range tallies {
		ids = append(ids, t.ID)
	}
	texts, err := s.questionTexts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range tallies {
		tallies[i].Text = texts[tallies[i].ID]
	}
	return tallies, nil
}

func (s *Store) questionTexts(ctx context.Context, ids []int64) (map[int64]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, question FROM questions WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("question texts: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]string, len(ids))
	for rows.Next() {
		var id int64
		var text string
		if err := rows.Scan(&id, &text); err != nil {
			return nil, fmt.Errorf("scan question text: %w", err)
		}
		out[id] = text
	}
	return out, rows.Err()
}

func (s *Store) SubjectCounts(ctx context.Context, teacherID int64) ([]models.SubjectCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT subject, COUNT(*) FROM tests
		WHERE created_by = $1 AND deleted_at IS NULL
		GROUP BY subject ORDER BY COUNT(*) DESC, subject`, teacherID)
	if err != nil {
		return nil, fmt.Errorf("subject counts: %w", err)
	}
	defer rows.Close()

	out := []models.SubjectCount{}
	for rows.Next() {
		var c models.SubjectCount
		if err := rows.Scan(&c.Subject, &c.Count); err != nil {
			return nil, fmt.Errorf("scan subject count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// StudentParticipation counts distinct tests assigned to and attempted by the student.
func (s *Store) StudentParticipation(ctx context.Context, studentID int64) (assigned, attempted int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT
		  (SELECT COUNT(DISTINCT test_id) FROM test_assignments
		   WHERE $1 = ANY(assigned_to) AND deleted_at IS NULL),
		  (SELECT COUNT(DISTINCT test_id) FROM student_test_attempts
		   WHERE student_id = $1 AND deleted_at IS NULL)`, studentID).Scan(&assigned, &attempted)
	if err != nil {
		return 0, 0, fmt.Errorf("student participation: %w", err)
	}
	return assigned, attempted, nil
}

// TeacherParticipation counts the teacher's tests and those with at least one attempt.
func (s *Store) TeacherParticipation(ctx context.Context, teacherID int64) (total, attempted int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE EXISTS (
		           SELECT 1 FROM student_test_attempts a WHERE a.test_id = t.id AND a.deleted_at IS NULL))
		FROM tests t WHERE t.created_by = $1 AND t.deleted_at IS NULL`, teacherID).Scan(&total, &attempted)
	if err != nil {
		return 0, 0, fmt.Errorf("teacher participation: %w", err)
	}
	return total, attempted, nil
}

func (s *Store) Abilities(ctx context.Context, studentID int64) ([]models.SubjectAbility, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT student_id, subject, ability_score, questions_answered, questions_correct, last_updated
		FROM student_subject_abilities WHERE student_id = $1 ORDER BY subject`, studentID)
	if err != nil {
		return nil, fmt.Errorf("abilities: %w", err)
	}
	defer rows.Close()

	var out []models.SubjectAbility
	for rows.Next() {
		var a models.SubjectAbility
		if err := rows.Scan(&a.StudentID, &a.Subject, &a.AbilityScore, &a.QuestionsAnswered,
			&a.QuestionsCorrect, &a.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan ability: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
