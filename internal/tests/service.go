package tests

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/preppro/backend/internal/apperr"
	"github.com/preppro/backend/internal/models"
	"github.com/samber/lo"
)

type testStore interface {
	GetTest(ctx context.Context, id int64) (*models.Test, error)
	GetTestWithQuestions(ctx context.Context, id int64) (*models.Test, error)
	ListTestsByTeacher(ctx context.Context, teacherID int64) ([]models.Test, error)
	ListTestsForStudent(ctx context.Context, studentID int64) ([]models.Test, error)
	CreateTest(ctx context.Context, t models.Test) (*models.Test, error)
	UpdateTest(ctx context.Context, t models.Test) (*models.Test, error)
	SoftDeleteTest(ctx context.Context, id int64) error
	Publish(ctx context.Context, id int64) (bool, error)
	NonStudents(ctx context.Context, ids []int64) ([]int64, error)
	CreateAssignment(ctx context.Context, a models.Assignment) (*models.Assignment, error)
	AssignmentsForTest(ctx context.Context, testID int64) ([]models.Assignment, error)
	AssignmentsForStudent(ctx context.Context, studentID int64) ([]models.Assignment, error)
	AssignmentsByTeacher(ctx context.Context, teacherID int64) ([]models.Assignment, error)
	AttemptsByStudent(ctx context.Context, testID, studentID int64) ([]models.Attempt, error)
	ListAttempts(ctx context.Context, f AttemptFilter) ([]models.AttemptWithDetail, error)
	SaveAttempt(ctx context.Context, at models.Attempt, qs []models.Question, now time.Time, gate func(prior int) error) (*models.Attempt, error)
	GetAnalytics(ctx context.Context, testID int64) (*models.TestAnalytics, error)
}

type Service struct {
	store testStore
	now   func() time.Time
}

func NewService(store testStore) *Service {
	return &Service{store: store, now: time.Now}
}

func testFromRequest(req models.TestRequest) (models.Test, error) {
	t := models.Test{
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		Duration:     req.Duration,
		TotalMarks:   req.TotalMarks,
		PassingMarks: req.PassingMarks,
		Subject:      strings.TrimSpace(req.Subject),
		Topic:        strings.TrimSpace(req.Topic),
		Difficulty:   req.Difficulty,
		Instructions: req.Instructions,
		QuestionIDs:  req.AllQuestionIDs(),
	}
	if len(t.QuestionIDs) == 0 {
		return t, apperr.BadRequest("A test needs at least one question")
	}
	return t, nil
}

// List returns a teacher's own tests, or the tests assigned to a student.
func (s *Service) List(ctx context.Context, userID int64, role models.Role) ([]models.Test, error) {
	if role == models.RoleTeacher {
		return s.store.ListTestsByTeacher(ctx, userID)
	}
	return s.store.ListTestsForStudent(ctx, userID)
}

func (s *Service) Create(ctx context.Context, req models.TestRequest, teacherID int64) (*models.Test, error) {
	t, err := testFromRequest(req)
	if err != nil {
		return nil, err
	}
	t.CreatedBy = teacherID
	created, err := s.store.CreateTest(ctx, t)
	if err != nil {
		return nil, err
	}
	log.Printf("[tests] teacher %d created test %d with %d questions", teacherID, created.ID, len(created.QuestionIDs))
	return created, nil
}

// owned loads a test and hides it from anyone but its creator.
func (s *Service) owned(ctx context.Context, id, teacherID int64) (*models.Test, error) {
	t, err := s.store.GetTestWithQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.CreatedBy != teacherID {
		return nil, apperr.NotFound("Test not found")
	}
	return t, nil
}

func (s *Service) Get(ctx context.Context, id, teacherID int64) (*models.Test, error) {
	return s.owned(ctx, id, teacherID)
}

func (s *Service) Update(ctx context.Context, id int64, req models.TestRequest, teacherID int64) (*models.Test, error) {
	if _, err := s.owned(ctx, id, teacherID); err != nil {
		return nil, err
	}
	t, err := testFromRequest(req)
	if err != nil {
		return nil, err
	}
	t.ID = id
	return s.store.UpdateTest(ctx, t)
}

func (s *Service) Delete(ctx context.Context, id, teacherID int64) error {
	if _, err := s.owned(ctx, id, teacherID); err != nil {
		return err
	}
	return s.store.SoftDeleteTest(ctx, id)
}

func (s *Service) Assign(ctx context.Context, req models.AssignmentRequest, teacherID int64) (*models.Assignment, error) {
	if _, err := s.owned(ctx, req.TestID, teacherID); err != nil {
		return nil, err
	}
	bad, err := s.store.NonStudents(ctx, req.AssignedTo)
	if err != nil {
		return nil, err
	}
	if len(bad) > 0 {
		return nil, apperr.BadRequestf("assigned_to must only contain student IDs, invalid: %v", bad)
	}

	a, err := s.store.CreateAssignment(ctx, models.Assignment{
		TestID:                 req.TestID,
		AssignedBy:             teacherID,
		AssignedTo:             req.AssignedTo,
		StartDate:              req.StartDate,
		EndDate:                req.EndDate,
		AllowMultipleAttempts:  req.AllowMultipleAttempts,
		ShowResults:            req.ShowResults,
		PassingCriteria:        req.PassingCriteria,
		AdditionalInstructions: req.AdditionalInstructions,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[tests] test %d assigned to %d students", req.TestID, len(req.AssignedTo))
	return a, nil
}

// Attempt grades and records a submission.
func (s *Service) Attempt(ctx context.Context, req models.AttemptRequest, studentID int64) (*models.Attempt, error) {
	now := s.now()

	t, err := s.store.GetTestWithQuestions(ctx, req.TestID)
	if err != nil {
		return nil, err
	}
	assignments, err := s.store.AssignmentsForTest(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	prior, err := s.store.AttemptsByStudent(ctx, t.ID, studentID)
	if err != nil {
		return nil, err
	}
	if _, err := AttemptGate(assignments, len(prior), studentID, now); err != nil {
		return nil, err
	}
	if len(t.Questions) == 0 {
		return nil, apperr.BadRequest("No questions found for this test.")
	}

	valid := lo.SliceToMap(t.Questions, func(q models.Question) (int64, bool) { return q.ID, true })
	answers, err := ParseAnswers(req.Answers, valid)
	if err != nil {
		return nil, err
	}

	times := lo.PickBy(req.ResponseTimes, func(k string, v float64) bool { return v >= 0 })
	result := Score(t.Questions, answers, t.PassingMarks)

	saved, err := s.store.SaveAttempt(ctx, models.Attempt{
		StudentID:      studentID,
		TestID:         t.ID,
		Answers:        answers,
		Score:          result.Correct,
		CorrectAnswers: result.Correct,
		TotalQuestions: result.Total,
		ResponseTimes:  times,
		Passed:         result.Passed,
	}, t.Questions, now, func(prior int) error {
		// Re-checked under the analytics row lock so two concurrent
		// submissions cannot both pass a single-attempt assignment.
		_, err := AttemptGate(assignments, prior, studentID, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[tests] student %d scored %d/%d on test %d", studentID, result.Correct, result.Total, t.ID)
	return saved, nil
}

// Assigned lists a student's assignments with questions (answers hidden) and
// their two most recent attempts.
func (s *Service) Assigned(ctx context.Context, studentID int64) ([]models.AssignedTest, error) {
	assignments, err := s.store.AssignmentsForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if len(assignments) == 0 {
		return nil, apperr.NotFound("No tests assigned.")
	}

	tests := make(map[int64]*models.Test)
	attempts := make(map[int64][]models.Attempt)
	out := make([]models.AssignedTest, 0, len(assignments))
	for _, a := range assignments {
		t, ok := tests[a.TestID]
		if !ok {
			if t, err = s.store.GetTestWithQuestions(ctx, a.TestID); err != nil {
				return nil, err
			}
			tests[a.TestID] = t
			if attempts[a.TestID], err = s.store.AttemptsByStudent(ctx, a.TestID, studentID); err != nil {
				return nil, err
			}
		}

		entry := models.AssignedTest{
			AssignmentID:          a.ID,
			Test:                  *t,
			Questions:             lo.Map(t.Questions, func(q models.Question, _ int) models.StudentQuestion { return q.ForStudent() }),
			AllowMultipleAttempts: a.AllowMultipleAttempts,
			ShowResults:           a.ShowResults,
			StartDate:             a.StartDate,
			EndDate:               a.EndDate,
		}
		entry.Test.Questions = nil

		mine := attempts[a.TestID]
		if len(mine) > 0 {
			entry.Attempted = true
			entry.IsSubmitted = true
			entry.LatestAttempt = &mine[0]
		}
		if len(mine) > 1 {
			entry.NextAttempt = &mine[1]
		}
		out = append(out, entry)
	}
	return out, nil
}

// Analytics returns the aggregate results of a teacher's own test.
func (s *Service) Analytics(ctx context.Context, id, teacherID int64) (*models.TestAnalytics, error) {
	if _, err := s.owned(ctx, id, teacherID); err != nil {
		return nil, err
	}
	return s.store.GetAnalytics(ctx, id)
}

func (s *Service) Publish(ctx context.Context, id, teacherID int64) error {
	t, err := s.store.GetTest(ctx, id)
	if err != nil {
		return err
	}
	if t.CreatedBy != teacherID {
		return apperr.Forbidden("You are not authorized to publish this test.")
	}
	ok, err := s.store.Publish(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.BadRequest("Test result is already published.")
	}
	return nil
}

// Attempts lists attempts visible to the user: a teacher sees attempts on
// their tests, a student their own. testID 0 means all tests.
func (s *Service) Attempts(ctx context.Context, userID int64, role models.Role, testID int64) ([]models.AttemptWithDetail, error) {
	f := AttemptFilter{TestID: testID}
	if role == models.RoleTeacher {
		f.TeacherID = userID
	} else {
		f.StudentID = userID
	}
	return s.store.ListAttempts(ctx, f)
}

func (s *Service) Preview(ctx context.Context, testID, studentID int64) (*models.AttemptPreview, error) {
	t, err := s.store.GetTestWithQuestions(ctx, testID)
	if apperr.IsNotFound(err) {
		return nil, apperr.NotFound("Attempt not found.")
	}
	if err != nil {
		return nil, err
	}
	attempts, err := s.store.AttemptsByStudent(ctx, testID, studentID)
	if err != nil {
		return nil, err
	}
	if len(attempts) == 0 {
		return nil, apperr.NotFound("Attempt not found.")
	}
	p := Preview(*t, attempts[0], t.Questions)
	return &p, nil
}

// Status reports attempted and/or unattempted work across a teacher's tests.
func (s *Service) Status(ctx context.Context, teacherID int64, status string) (*models.TestStatusResponse, error) {
	switch status {
	case "":
		status = "all"
	case "all", "attempted", "unattempted":
	default:
		return nil, apperr.BadRequest("status must be attempted, unattempted, or all")
	}

	attempts, err := s.store.ListAttempts(ctx, AttemptFilter{TeacherID: teacherID})
	if err != nil {
		return nil, err
	}
	if status == "attempted" {
		return &models.TestStatusResponse{Status: status, Data: attempts}, nil
	}

	tests, err := s.store.ListTestsByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	assignments, err := s.store.AssignmentsByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	titles := lo.SliceToMap(tests, func(t models.Test) (int64, string) { return t.ID, t.Title })
	done := make(map[int64]map[int64]bool)
	for _, a := range attempts {
		if done[a.TestID] == nil {
			done[a.TestID] = make(map[int64]bool)
		}
		done[a.TestID][a.StudentID] = true
	}
	unattempted := Unattempted(assignments, titles, done)

	if status == "unattempted" {
		return &models.TestStatusResponse{Status: status, Data: unattempted}, nil
	}
	return &models.TestStatusResponse{Status: status, Attempted: &attempts, Unattempted: &unattempted}, nil
}
