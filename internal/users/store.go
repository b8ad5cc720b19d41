package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/preppro/backend/internal/apperr"
	"github.com/preppro/backend/internal/database"
	"github.com/preppro/backend/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── Users ─────────────────────────────────────────────────

const userColumns = `u.id, u.username, u.email, u.role, u.last_login, u.created_at, u.updated_at`

func scanUser(row interface{ Scan(...interface{}) error }, extra ...interface{}) (*models.User, error) {
	var u models.User
	var lastLogin sql.NullTime
	dest := append([]interface{}{&u.ID, &u.Username, &u.Email, &u.Role, &lastLogin, &u.CreatedAt, &u.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.id = $1 AND u.deleted_at IS NULL`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// UpdateUser applies the non-nil fields. passwordHash is already hashed.
func (s *Store) UpdateUser(ctx context.Context, id int64, username, email, passwordHash *string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`UPDATE users u SET
			username = COALESCE($2, username),
			email = COALESCE($3, email),
			password = COALESCE($4, password),
			updated_at = NOW()
		 WHERE u.id = $1 AND u.deleted_at IS NULL
		 RETURNING `+userColumns,
		id, username, email, passwordHash))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, apperr.NotFound("User not found")
	case database.IsUniqueViolation(err, "users_email_key"):
		return nil, apperr.Conflict("A user with this email already exists")
	case database.IsUniqueViolation(err, "users_username_key"):
		return nil, apperr.Conflict("A user with this username already exists")
	case err != nil:
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

// SoftDeleteUser hides a student and their profile. Teachers cannot be deleted.
func (s *Store) SoftDeleteUser(ctx context.Context, id int64) error {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if u.IsTeacher() {
		return apperr.Forbidden("Cannot delete teacher accounts")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// free the unique email and username for re-registration
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET deleted_at = NOW(),
			email = 'deleted-' || id || '-' || email,
			username = 'deleted-' || id || '-' || username
		 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("soft delete user: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE profiles SET deleted_at = NOW() WHERE user_id = $1`, id); err != nil {
		return fmt.Errorf("soft delete profile: %w", err)
	}
	return tx.Commit()
}

// ── Profiles ──────────────────────────────────────────────

const profileColumns = `p.user_id, p.first_name, p.last_name, p.phone_number, p.address,
	to_char(p.date_of_birth, 'YYYY-MM-DD'), p.bio, p.profile_photo, p.department, p.subjects,
	p.student_class, p.section, p.created_at, p.updated_at`

type profileScan struct {
	p        models.Profile
	userID   sql.NullInt64
	dob      sql.NullString
	photo    sql.NullString
	subjects []byte
	first    sql.NullString
	last     sql.NullString
	phone    sql.NullString
	address  sql.NullString
	bio      sql.NullString
	dept     sql.NullString
	class    sql.NullString
	section  sql.NullString
	created  sql.NullTime
	updated  sql.NullTime
}

// dest returns scan targets for profileColumns. All are nullable so the same
// scan works behind a LEFT JOIN.
func (ps *profileScan) dest() []interface{} {
	return []interface{}{&ps.userID, &ps.first, &ps.last, &ps.phone, &ps.address,
		&ps.dob, &ps.bio, &ps.photo, &ps.dept, &ps.subjects,
		&ps.class, &ps.section, &ps.created, &ps.updated}
}

func (ps *profileScan) profile() (*models.Profile, error) {
	if !ps.userID.Valid {
		return nil, nil
	}
	p := models.Profile{
		UserID:       ps.userID.Int64,
		FirstName:    ps.first.String,
		LastName:     ps.last.String,
		PhoneNumber:  ps.phone.String,
		Address:      ps.address.String,
		Bio:          ps.bio.String,
		Department:   ps.dept.String,
		StudentClass: ps.class.String,
		Section:      ps.section.String,
		CreatedAt:    ps.created.Time,
		UpdatedAt:    ps.updated.Time,
		Subjects:     []string{},
	}
	if ps.dob.Valid {
		v := ps.dob.String
		p.DateOfBirth = &v
	}
	if ps.photo.Valid {
		v := ps.photo.String
		p.ProfilePhoto = &v
	}
	if len(ps.subjects) > 0 {
		if err := json.Unmarshal(ps.subjects, &p.Subjects); err != nil {
			return nil, fmt.Errorf("decode subjects for user %d: %w", p.UserID, err)
		}
	}
	return &p, nil
}

func (s *Store) GetProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	var ps profileScan
	err := s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles p WHERE p.user_id = $1 AND p.deleted_at IS NULL`,
		userID).Scan(ps.dest()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Profile not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return ps.profile()
}

func (s *Store) CreateProfile(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	subjects, err := json.Marshal(p.Subjects)
	if err != nil {
		return nil, fmt.Errorf("encode subjects: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, first_name, last_name, phone_number, address, date_of_birth,
			bio, profile_photo, department, subjects, student_class, section)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.UserID, p.FirstName, p.LastName, p.PhoneNumber, p.Address, p.DateOfBirth,
		p.Bio, p.ProfilePhoto, p.Department, string(subjects), p.StudentClass, p.Section)
	if database.IsUniqueViolation(err, "profiles_pkey") {
		return nil, apperr.Conflict("Profile already exists")
	}
	if err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	return s.GetProfile(ctx, p.UserID)
}

func (s *Store) SaveProfile(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	subjects, err := json.Marshal(p.Subjects)
	if err != nil {
		return nil, fmt.Errorf("encode subjects: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE profiles SET first_name = $2, last_name = $3, phone_number = $4, address = $5,
			date_of_birth = $6, bio = $7, profile_photo = $8, department = $9, subjects = $10,
			student_class = $11, section = $12, updated_at = NOW()
		 WHERE user_id = $1 AND deleted_at IS NULL`,
		p.UserID, p.FirstName, p.LastName, p.PhoneNumber, p.Address, p.DateOfBirth,
		p.Bio, p.ProfilePhoto, p.Department, string(subjects), p.StudentClass, p.Section)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.GetProfile(ctx, p.UserID)
}

// ListUsers returns users with their profile (nil when missing), optionally
// restricted to one role.
func (s *Store) ListUsers(ctx context.Context, role *models.Role) ([]models.UserWithProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+`, `+profileColumns+`
		 FROM users u
		 LEFT JOIN profiles p ON p.user_id = u.id AND p.deleted_at IS NULL
		 WHERE u.deleted_at IS NULL AND ($1::text IS NULL OR u.role = $1::text)
		 ORDER BY u.id`, role)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []models.UserWithProfile
	for rows.Next() {
		var ps profileScan
		u, err := scanUser(rows, ps.dest()...)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		p, err := ps.profile()
		if err != nil {
			return nil, err
		}
		out = append(out, models.UserWithProfile{User: *u, Profile: p})
	}
	return out, rows.Err()
}

// GetStudent returns a student with profile. Missing student and missing
// profile are distinct 404s.
func (s *Store) GetStudent(ctx context.Context, id int64) (*models.UserWithProfile, error) {
	u, err := s.GetUser(ctx, id)
	if apperr.IsNotFound(err) || (err == nil && !u.IsStudent()) {
		return nil, apperr.NotFound("Student not found")
	}
	if err != nil {
		return nil, err
	}
	p, err := s.GetProfile(ctx, id)
	if apperr.IsNotFound(err) {
		return nil, apperr.NotFound("Student profile not found")
	}
	if err != nil {
		return nil, err
	}
	return &models.UserWithProfile{User: *u, Profile: p}, nil
}

// ── Filters and counts ────────────────────────────────────

func (s *Store) queryStrings(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) FilterOptions(ctx context.Context) (*models.FilterOptions, error) {
	classes, err := s.queryStrings(ctx,
		`SELECT DISTINCT student_class FROM profiles
		 WHERE student_class <> '' AND deleted_at IS NULL ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	sections, err := s.queryStrings(ctx,
		`SELECT DISTINCT section FROM profiles
		 WHERE section <> '' AND deleted_at IS NULL ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	subjects, err := s.queryStrings(ctx,
		`SELECT DISTINCT s FROM profiles p
		 JOIN users u ON u.id = p.user_id AND u.role = 'teacher' AND u.deleted_at IS NULL,
		 jsonb_array_elements_text(p.subjects) AS s
		 WHERE s <> '' ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return &models.FilterOptions{Classes: classes, Sections: sections, Subjects: subjects}, nil
}

func (s *Store) TeacherCounts(ctx context.Context, teacherID int64) (*models.TeacherCounts, error) {
	var c models.TeacherCounts
	err := s.db.QueryRowContext(ctx,
		`SELECT
			(SELECT COUNT(*) FROM questions WHERE deleted_at IS NULL),
			(SELECT COUNT(*) FROM tests WHERE created_by = $1 AND deleted_at IS NULL),
			(SELECT COUNT(*) FROM profiles p JOIN users u ON u.id = p.user_id
			  WHERE u.role = 'student' AND u.deleted_at IS NULL AND p.deleted_at IS NULL),
			(SELECT COUNT(*) FROM users WHERE role = 'teacher' AND deleted_at IS NULL)`,
		teacherID,
	).Scan(&c.TotalQuestions, &c.ActiveTests, &c.StudentCount, &c.TeacherCount)
	if err != nil {
		return nil, fmt.Errorf("teacher counts: %w", err)
	}
	return &c, nil
}

// StudentCounts summarises a student's assignments and class standing.
func (s *Store) StudentCounts(ctx context.Context, studentID int64, now time.Time) (*models.StudentCounts, error) {
	var c models.StudentCounts
	err := s.db.QueryRowContext(ctx,
		`WITH open_assignments AS (
			SELECT a.end_date FROM test_assignments a
			WHERE $1 = ANY(a.assigned_to) AND a.deleted_at IS NULL
			  AND NOT EXISTS (
				SELECT 1 FROM student_test_attempts t
				WHERE t.student_id = $1 AND t.test_id = a.test_id AND t.deleted_at IS NULL)
		 )
		 SELECT
			(SELECT COUNT(*) FROM open_assignments),
			(SELECT COUNT(*) FROM open_assignments WHERE end_date < $2)`,
		studentID, now,
	).Scan(&c.ActiveTests, &c.PendingTests)
	if err != nil {
		return nil, fmt.Errorf("student assignment counts: %w", err)
	}

	profile, err := s.GetProfile(ctx, studentID)
	if apperr.IsNotFound(err) {
		return &c, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, COALESCE(AVG(t.score), 0)
		 FROM users u
		 JOIN profiles p ON p.user_id = u.id AND p.deleted_at IS NULL
		 LEFT JOIN student_test_attempts t ON t.student_id = u.id AND t.deleted_at IS NULL
		 WHERE u.role = 'student' AND u.deleted_at IS NULL AND p.student_class = $1
		 GROUP BY u.id
		 ORDER BY u.id`,
		profile.StudentClass)
	if err != nil {
		return nil, fmt.Errorf("class averages: %w", err)
	}
	defer rows.Close()

	var entries []ScoreEntry
	for rows.Next() {
		var e ScoreEntry
		if err := rows.Scan(&e.StudentID, &e.Average); err != nil {
			return nil, fmt.Errorf("scan class average: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	c.ClassTotalStudents = len(entries)
	c.StudentRank = Rank(entries, studentID)
	return &c, nil
}
