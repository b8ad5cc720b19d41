package feedback

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/preppro/backend/internal/apperr"
	"github.com/preppro/backend/internal/models"
)

type feedbackStore interface {
	Attempt(ctx context.Context, attemptID int64) (*AttemptRef, error)
	IsAssigned(ctx context.Context, testID, studentID int64) (bool, error)
	Create(ctx context.Context, attemptID, studentID int64, comments string) (*models.Feedback, error)
	Get(ctx context.Context, id int64) (*models.Feedback, int64, error)
	Respond(ctx context.Context, id int64, response string, status models.FeedbackStatus, now time.Time) error
	MarkRead(ctx context.Context, id int64) error
	ListByStudent(ctx context.Context, studentID int64) ([]models.Feedback, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]models.Feedback, error)
	ListByAttempt(ctx context.Context, attemptID int64) ([]models.Feedback, error)
}

type Service struct {
	store feedbackStore
	now   func() time.Time
}

func NewService(store feedbackStore) *Service {
	return &Service{store: store, now: time.Now}
}

// Request records a student's feedback request on one of their attempts.
func (s *Service) Request(ctx context.Context, studentID int64, req models.FeedbackRequest) (*models.Feedback, error) {
	text := strings.TrimSpace(req.FeedbackText)
	if req.AttemptID == 0 || text == "" {
		return nil, apperr.BadRequest("Both attempt ID and feedback text are required")
	}
	ref, err := s.store.Attempt(ctx, req.AttemptID)
	if err != nil {
		return nil, err
	}
	if ref.StudentID != studentID {
		return nil, apperr.Forbidden("You can only request feedback for your own attempts")
	}
	ok, err := s.store.IsAssigned(ctx, ref.TestID, studentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.BadRequest("No assignment found for this test")
	}
	return s.store.Create(ctx, ref.AttemptID, studentID, text)
}

func (s *Service) Respond(ctx context.Context, teacherID, id int64, req models.FeedbackResponseRequest) (*models.Feedback, error) {
	_, owner, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if owner != teacherID {
		return nil, apperr.Forbidden("You can only respond to feedback on your own tests")
	}
	status := req.Status
	if status == "" {
		status = models.FeedbackCompleted
	}
	if err := s.store.Respond(ctx, id, strings.TrimSpace(req.TeacherResponse), status, s.now()); err != nil {
		return nil, err
	}
	f, _, err := s.store.Get(ctx, id)
	return f, err
}

// List returns a student's own requests or, for a teacher, those on their tests.
func (s *Service) List(ctx context.Context, userID int64, role models.Role) ([]models.Feedback, error) {
	switch role {
	case models.RoleStudent:
		return s.store.ListByStudent(ctx, userID)
	case models.RoleTeacher:
		return s.store.ListByTeacher(ctx, userID)
	}
	return nil, apperr.Forbidden("Invalid user role")
}

func (s *Service) MarkRead(ctx context.Context, userID int64, role models.Role, id int64) error {
	f, _, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if role != models.RoleStudent || f.StudentID != userID {
		return apperr.Forbidden("You don't have permission to mark this feedback as read")
	}
	return s.store.MarkRead(ctx, id)
}

func (s *Service) ForAttempt(ctx context.Context, userID, attemptID int64) ([]models.Feedback, error) {
	ref, err := s.store.Attempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if ref.StudentID != userID && ref.TeacherID != userID {
		return nil, apperr.Forbidden("You don't have permission to view this feedback")
	}
	return s.store.ListByAttempt(ctx, attemptID)
}

func (s *Service) Summary(ctx context.Context, teacherID int64) ([]models.FeedbackSummary, error) {
	fbs, err := s.store.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	return Summarize(fbs), nil
}

// Summarize flattens feedback into summary rows with the attempt percentage.
func Summarize(fbs []models.Feedback) []models.FeedbackSummary {
	out := make([]models.FeedbackSummary, 0, len(fbs))
	for _, f := range fbs {
		out = append(out, models.FeedbackSummary{
			ID:          f.ID,
			TestTitle:   f.TestTitle,
			StudentName: f.StudentName,
			Comments:    f.Comments,
			Status:      f.Status,
			Response:    f.TeacherResponse,
			Percentage:  Percentage(f.Score, f.Total),
			CreatedAt:   f.CreatedAt,
		})
	}
	return out
}

func Percentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(score)/float64(total)*100*100) / 100
}
