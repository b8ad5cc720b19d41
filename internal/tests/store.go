package tests

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
	"github.com/preppro/backend/internal/questions"
)

type Store struct {
	db        *sql.DB
	questions *questions.Store
}

func NewStore(db *sql.DB, qs *questions.Store) *Store {
	return &Store{db: db, questions: qs}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// ── Tests ─────────────────────────────────────────────────

const testColumns = `t.id, t.title, t.description, t.duration, t.total_marks, t.passing_marks,
	t.subject, t.topic, t.difficulty, t.instructions, t.created_by, t.is_published,
	t.created_at, t.updated_at,
	COALESCE((SELECT array_agg(tq.question_id ORDER BY tq.id) FROM test_questions tq
	          JOIN questions q ON q.id = tq.question_id AND q.deleted_at IS NULL
	          WHERE tq.test_id = t.id), '{}')`

func scanTest(row scanner) (*models.Test, error) {
	var t models.Test
	var ids pq.Int64Array
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Duration, &t.TotalMarks, &t.PassingMarks,
		&t.Subject, &t.Topic, &t.Difficulty, &t.Instructions, &t.CreatedBy, &t.IsPublished,
		&t.CreatedAt, &t.UpdatedAt, &ids); err != nil {
		return nil, err
	}
	t.QuestionIDs = []int64(ids)
	if t.QuestionIDs == nil {
		t.QuestionIDs = []int64{}
	}
	return &t, nil
}

func scanTests(rows *sql.Rows) ([]models.Test, error) {
	defer rows.Close()
	var out []models.Test
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan test: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *Store) GetTest(ctx context.Context, id int64) (*models.Test, error) {
	t, err := scanTest(s.db.QueryRowContext(ctx,
		`SELECT `+testColumns+` FROM tests t WHERE t.id = $1 AND t.deleted_at IS NULL`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Test not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get test: %w", err)
	}
	return t, nil
}

// GetTestWithQuestions also loads the linked questions.
func (s *Store) GetTestWithQuestions(ctx context.Context, id int64) (*models.Test, error) {
	t, err := s.GetTest(ctx, id)
	if err != nil {
		return nil, err
	}
	qs, err := s.questions.GetMany(ctx, t.QuestionIDs)
	if err != nil {
		return nil, err
	}
	if qs == nil {
		qs = []models.Question{}
	}
	t.Questions = qs
	return t, nil
}

func (s *Store) ListTestsByTeacher(ctx context.Context, teacherID int64) ([]models.Test, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+testColumns+` FROM tests t
		 WHERE t.created_by = $1 AND t.deleted_at IS NULL ORDER BY t.created_at DESC`, teacherID)
	if err != nil {
		return nil, fmt.Errorf("list tests: %w", err)
	}
	return scanTests(rows)
}

func (s *Store) ListTestsForStudent(ctx context.Context, studentID int64) ([]models.Test, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+testColumns+` FROM tests t
		 WHERE t.deleted_at IS NULL AND t.id IN (
			SELECT a.test_id FROM test_assignments a
			WHERE $1 = ANY(a.assigned_to) AND a.deleted_at IS NULL)
		 ORDER BY t.created_at DESC`, studentID)
	if err != nil {
		return nil, fmt.Errorf("list assigned tests: %w", err)
	}
	return scanTests(rows)
}

func missingQuestions(ctx context.Context, tx *sql.Tx, ids []int64) ([]int64, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM unnest($1::bigint[]) AS id
		 WHERE id NOT IN (SELECT q.id FROM questions q WHERE q.deleted_at IS NULL)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("check question ids: %w", err)
	}
	defer rows.Close()
	var missing []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		missing = append(missing, id)
	}
	return missing, rows.Err()
}

// syncQuestions links exactly ids to the test, keeping existing links.
func syncQuestions(ctx context.Context, tx *sql.Tx, testID int64, ids []int64) error {
	missing, err := missingQuestions(ctx, tx, ids)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return apperr.BadRequestf("Invalid question IDs: %v", missing)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM test_questions WHERE test_id = $1 AND NOT (question_id = ANY($2))`,
		testID, pq.Array(ids)); err != nil {
		return fmt.Errorf("unlink questions: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO test_questions (test_id, question_id)
		 SELECT $1, q FROM unnest($2::bigint[]) WITH ORDINALITY AS u(q, n) ORDER BY n
		 ON CONFLICT ON CONSTRAINT test_questions_test_question_key DO NOTHING`,
		testID, pq.Array(ids)); err != nil {
		return fmt.Errorf("link questions: %w", err)
	}
	return nil
}

func (s *Store) CreateTest(ctx context.Context, t models.Test) (*models.Test, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO tests (title, description, duration, total_marks, passing_marks, subject, topic,
			difficulty, instructions, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		t.Title, t.Description, t.Duration, t.TotalMarks, t.PassingMarks, t.Subject, t.Topic,
		t.Difficulty, t.Instructions, t.CreatedBy).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert test: %w", err)
	}
	if err := syncQuestions(ctx, tx, id, t.QuestionIDs); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit test: %w", err)
	}
	return s.GetTestWithQuestions(ctx, id)
}

func (s *Store) UpdateTest(ctx context.Context, t models.Test) (*models.Test, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE tests SET title = $2, description = $3, duration = $4, total_marks = $5,
			passing_marks = $6, subject = $7, topic = $8, difficulty = $9, instructions = $10,
			updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`,
		t.ID, t.Title, t.Description, t.Duration, t.TotalMarks, t.PassingMarks, t.Subject, t.Topic,
		t.Difficulty, t.Instructions)
	if err != nil {
		return nil, fmt.Errorf("update test: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperr.NotFound("Test not found")
	}
	if err := syncQuestions(ctx, tx, t.ID, t.QuestionIDs); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit test: %w", err)
	}
	return s.GetTestWithQuestions(ctx, t.ID)
}

func (s *Store) SoftDeleteTest(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE tests SET deleted_at = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete test: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE test_assignments SET deleted_at = NOW() WHERE test_id = $1 AND deleted_at IS NULL`, id); err != nil {
		return fmt.Errorf("delete assignments: %w", err)
	}
	return tx.Commit()
}

// Publish marks results visible. It reports false when already published.
func (s *Store) Publish(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tests SET is_published = TRUE, updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL AND NOT is_published`, id)
	if err != nil {
		return false, fmt.Errorf("publish test: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ── Assignments ───────────────────────────────────────────

const assignmentColumns = `a.id, a.test_id, a.assigned_by, a.assigned_to, a.start_date, a.end_date,
	a.allow_multiple_attempts, a.show_results, a.passing_criteria, a.additional_instructions, a.created_at`

func scanAssignment(row scanner) (*models.Assignment, error) {
	var a models.Assignment
	var to pq.Int64Array
	var instr sql.NullString
	if err := row.Scan(&a.ID, &a.TestID, &a.AssignedBy, &to, &a.StartDate, &a.EndDate,
		&a.AllowMultipleAttempts, &a.ShowResults, &a.PassingCriteria, &instr, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.AssignedTo = []int64(to)
	if instr.Valid {
		a.AdditionalInstructions = &instr.String
	}
	return &a, nil
}

func (s *Store) queryAssignments(ctx context.Context, query string, args ...interface{}) ([]models.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()
	var out []models.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// NonStudents returns the ids in ids that are not live student accounts.
func (s *Store) NonStudents(ctx context.Context, ids []int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM unnest($1::bigint[]) AS id
		 WHERE id NOT IN (SELECT u.id FROM users u WHERE u.role = 'student' AND u.deleted_at IS NULL)`,
		pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("check students: %w", err)
	}
	defer rows.Close()
	var bad []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		bad = append(bad, id)
	}
	return bad, rows.Err()
}

func (s *Store) CreateAssignment(ctx context.Context, a models.Assignment) (*models.Assignment, error) {
	saved, err := scanAssignment(s.db.QueryRowContext(ctx,
		`INSERT INTO test_assignments AS a (test_id, assigned_by, assigned_to, start_date, end_date,
			allow_multiple_attempts, show_results, passing_criteria, additional_instructions)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+assignmentColumns,
		a.TestID, a.AssignedBy, pq.Array(a.AssignedTo), a.StartDate, a.EndDate,
		a.AllowMultipleAttempts, a.ShowResults, a.PassingCriteria, a.AdditionalInstructions))
	if err != nil {
		return nil, fmt.Errorf("insert assignment: %w", err)
	}
	return saved, nil
}

func (s *Store) AssignmentsForTest(ctx context.Context, testID int64) ([]models.Assignment, error) {
	return s.queryAssignments(ctx,
		`SELECT `+assignmentColumns+` FROM test_assignments a
		 WHERE a.test_id = $1 AND a.deleted_at IS NULL ORDER BY a.id`, testID)
}

func (s *Store) AssignmentsForStudent(ctx context.Context, studentID int64) ([]models.Assignment, error) {
	return s.queryAssignments(ctx,
		`SELECT `+assignmentColumns+` FROM test_assignments a
		 JOIN tests t ON t.id = a.test_id AND t.deleted_at IS NULL
		 WHERE $1 = ANY(a.assigned_to) AND a.deleted_at IS NULL ORDER BY a.start_date DESC, a.id`, studentID)
}

func (s *Store) AssignmentsByTeacher(ctx context.Context, teacherID int64) ([]models.Assignment, error) {
	return s.queryAssignments(ctx,
		`SELECT `+assignmentColumns+` FROM test_assignments a
		 JOIN tests t ON t.id = a.test_id AND t.deleted_at IS NULL
		 WHERE t.created_by = $1 AND a.deleted_at IS NULL ORDER BY a.id`, teacherID)
}

// ── Attempts ──────────────────────────────────────────────

const attemptColumns = `sa.id, sa.student_id, sa.test_id, sa.answers, sa.score, sa.correct_answers,
	sa.total_questions, sa.response_times, sa.passed, sa.attempted_at`

func scanAttempt(row scanner, extra ...interface{}) (*models.Attempt, error) {
	var a models.Attempt
	var answers, times []byte
	dest := append([]interface{}{&a.ID, &a.StudentID, &a.TestID, &answers, &a.Score, &a.CorrectAnswers,
		&a.TotalQuestions, &times, &a.Passed, &a.AttemptedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	a.Answers = map[string]int{}
	a.ResponseTimes = map[string]float64{}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &a.Answers); err != nil {
			return nil, fmt.Errorf("decode answers for attempt %d: %w", a.ID, err)
		}
	}
	if len(times) > 0 {
		if err := json.Unmarshal(times, &a.ResponseTimes); err != nil {
			return nil, fmt.Errorf("decode response times for attempt %d: %w", a.ID, err)
		}
	}
	return &a, nil
}

func (s *Store) AttemptsByStudent(ctx context.Context, testID, studentID int64) ([]models.Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+attemptColumns+` FROM student_test_attempts sa
		 WHERE sa.test_id = $1 AND sa.student_id = $2 AND sa.deleted_at IS NULL
		 ORDER BY sa.attempted_at DESC, sa.id DESC`, testID, studentID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()
	var out []models.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// AttemptFilter narrows ListAttempts. Zero fields are ignored.
type AttemptFilter struct {
	TeacherID int64
	StudentID int64
	TestID    int64
}

func (s *Store) ListAttempts(ctx context.Context, f AttemptFilter) ([]models.AttemptWithDetail, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+attemptColumns+`, t.title, t.subject,
			COALESCE(NULLIF(TRIM(p.first_name || ' ' || p.last_name), ''), u.username), u.email,
			COALESCE(p.student_class, ''), COALESCE(p.section, '')
		 FROM student_test_attempts sa
		 JOIN tests t ON t.id = sa.test_id AND t.deleted_at IS NULL
		 JOIN users u ON u.id = sa.student_id
		 LEFT JOIN profiles p ON p.user_id = u.id
		 WHERE sa.deleted_at IS NULL
		   AND ($1::bigint = 0 OR t.created_by = $1)
		   AND ($2::bigint = 0 OR sa.student_id = $2)
		   AND ($3::bigint = 0 OR sa.test_id = $3)
		 ORDER BY sa.attempted_at DESC, sa.id DESC`,
		f.TeacherID, f.StudentID, f.TestID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	out := []models.AttemptWithDetail{}
	for rows.Next() {
		var d models.AttemptWithDetail
		a, err := scanAttempt(rows, &d.TestTitle, &d.TestSubject, &d.StudentName, &d.StudentEmail, &d.StudentClass, &d.Section)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		d.Attempt = *a
		out = append(out, d)
	}
	return out, rows.Err()
}

// SaveAttempt records an attempt and recomputes the test's analytics and the
// student's abilities in one transaction. Submissions to the same test are
// serialised on the analytics row; gate is called under that lock with the
// student's current attempt count and can refuse the submission.
func (s *Store) SaveAttempt(ctx context.Context, at models.Attempt, qs []models.Question, now time.Time, gate func(prior int) error) (*models.Attempt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO test_analytics (test_id) VALUES ($1) ON CONFLICT (test_id) DO NOTHING`, at.TestID); err != nil {
		return nil, fmt.Errorf("init analytics: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`SELECT 1 FROM test_analytics WHERE test_id = $1 FOR UPDATE`, at.TestID); err != nil {
		return nil, fmt.Errorf("lock analytics: %w", err)
	}

	var prior int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM student_test_attempts
		 WHERE test_id = $1 AND student_id = $2 AND deleted_at IS NULL`,
		at.TestID, at.StudentID).Scan(&prior); err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}
	if gate != nil {
		if err := gate(prior); err != nil {
			return nil, err
		}
	}

	answers, err := json.Marshal(at.Answers)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}
	times, err := json.Marshal(at.ResponseTimes)
	if err != nil {
		return nil, fmt.Errorf("encode response times: %w", err)
	}
	saved, err := scanAttempt(tx.QueryRowContext(ctx,
		`INSERT INTO student_test_attempts AS sa (student_id, test_id, answers, score, correct_answers,
			total_questions, response_times, passed, attempted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+attemptColumns,
		at.StudentID, at.TestID, string(answers), at.Score, at.CorrectAnswers, at.TotalQuestions,
		string(times), at.Passed, now))
	if err != nil {
		return nil, fmt.Errorf("insert attempt: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT `+attemptColumns+` FROM student_test_attempts sa
		 WHERE sa.test_id = $1 AND sa.deleted_at IS NULL`, at.TestID)
	if err != nil {
		return nil, fmt.Errorf("load attempts: %w", err)
	}
	var all []models.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		all = append(all, *a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats := ComputeAnalytics(at.TestID, all, qs, now)
	statsJSON, err := json.Marshal(stats.QuestionStats)
	if err != nil {
		return nil, fmt.Errorf("encode question stats: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE test_analytics SET average_score = $2, pass_percentage = $3, total_attempts = $4,
			question_stats = $5, updated_at = $6
		 WHERE test_id = $1`,
		at.TestID, stats.AverageScore, stats.PassPercentage, stats.TotalAttempts, string(statsJSON), now); err != nil {
		return nil, fmt.Errorf("update analytics: %w", err)
	}

	if err := updateAbilities(ctx, tx, at.StudentID, qs, at.Answers, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit attempt: %w", err)
	}
	return saved, nil
}

func updateAbilities(ctx context.Context, tx *sql.Tx, studentID int64, qs []models.Question, answers map[string]int, now time.Time) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT student_id, subject, ability_score, questions_answered, questions_correct, last_updated
		 FROM student_subject_abilities WHERE student_id = $1 FOR UPDATE`, studentID)
	if err != nil {
		return fmt.Errorf("load abilities: %w", err)
	}
	current := make(map[string]models.SubjectAbility)
	for rows.Next() {
		var ab models.SubjectAbility
		if err := rows.Scan(&ab.StudentID, &ab.Subject, &ab.AbilityScore, &ab.QuestionsAnswered,
			&ab.QuestionsCorrect, &ab.LastUpdated); err != nil {
			rows.Close()
			return fmt.Errorf("scan ability: %w", err)
		}
		current[ab.Subject] = ab
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, ab := range ApplyAnswers(studentID, current, qs, answers, now) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO student_subject_abilities
				(student_id, subject, ability_score, questions_answered, questions_correct, last_updated)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (student_id, subject) DO UPDATE SET
				ability_score = EXCLUDED.ability_score,
				questions_answered = EXCLUDED.questions_answered,
				questions_correct = EXCLUDED.questions_correct,
				last_updated = EXCLUDED.last_updated`,
			ab.StudentID, ab.Subject, ab.AbilityScore, ab.QuestionsAnswered, ab.QuestionsCorrect, ab.LastUpdated); err != nil {
			return fmt.Errorf("save ability for %s: %w", ab.Subject, err)
		}
	}
	return nil
}

// GetAnalytics returns a test's stored analytics, zeroed if nobody has
// attempted it yet.
func (s *Store) GetAnalytics(ctx context.Context, testID int64) (*models.TestAnalytics, error) {
	var a models.TestAnalytics
	var stats []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT test_id, average_score, pass_percentage, total_attempts, question_stats, updated_at
		 FROM test_analytics WHERE test_id = $1`, testID,
	).Scan(&a.TestID, &a.AverageScore, &a.PassPercentage, &a.TotalAttempts, &stats, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.TestAnalytics{TestID: testID, QuestionStats: map[string]models.QuestionStat{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get analytics: %w", err)
	}
	if a.QuestionStats, err = decodeQuestionStats(testID, stats); err != nil {
		return nil, err
	}
	return &a, nil
}

func decodeQuestionStats(testID int64, raw []byte) (map[string]models.QuestionStat, error) {
	stats := map[string]models.QuestionStat{}
	if len(raw) == 0 {
		return stats, nil
	}
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, fmt.Errorf("decode question stats for test %d: %w", testID, err)
	}
	return stats, nil
}
