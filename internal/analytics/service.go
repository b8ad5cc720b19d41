package analytics

import (
	"context"
	"io"

	"github.com/preppro/backend/internal/models"
)

type analyticsStore interface {
	Student(ctx context.Context, id int64) (*models.StudentIdentity, error)
	ScoreHistory(ctx context.Context, studentID int64) ([]models.ScorePoint, error)
	StudentSubjects(ctx context.Context, studentID int64) ([]models.StudentSubjectPerformance, error)
	StudentMonths(ctx context.Context, studentID int64) ([]monthRow, error)
	TeacherMonths(ctx context.Context, teacherID int64) ([]monthRow, error)
	StudentQuestionTallies(ctx context.Context, studentID int64) ([]questionTally, error)
	TeacherTests(ctx context.Context, teacherID int64) ([]models.Test, error)
	TestPerformance(ctx context.Context, teacherID int64) ([]models.TestScore, error)
	TopStudents(ctx context.Context, teacherID int64, limit int) ([]models.StudentScore, error)
	TeacherQuestionStats(ctx context.Context, teacherID int64) ([]questionTally, error)
	SubjectCounts(ctx context.Context, teacherID int64) ([]models.SubjectCount, error)
	StudentParticipation(ctx context.Context, studentID int64) (assigned, attempted int, err error)
	TeacherParticipation(ctx context.Context, teacherID int64) (total, attempted int, err error)
	Abilities(ctx context.Context, studentID int64) ([]models.SubjectAbility, error)
}

type Service struct {
	store analyticsStore
}

func NewService(store analyticsStore) *Service {
	return &Service{store: store}
}

func (s *Service) Student(ctx context.Context, studentID int64) (*models.StudentAnalytics, error) {
	history, err := s.store.ScoreHistory(ctx, studentID)
	if err != nil {
		return nil, err
	}
	subjects, err := s.store.StudentSubjects(ctx, studentID)
	if err != nil {
		return nil, err
	}
	tallies, err := s.store.StudentQuestionTallies(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return &models.StudentAnalytics{
		AverageScore:         averageScore(history),
		SubjectPerformance:   subjectScores(subjects),
		PerformanceOverTime:  history,
		ChallengingQuestions: hardest(tallies, topN),
	}, nil
}

func (s *Service) Teacher(ctx context.Context, teacherID int64) (*models.TeacherAnalytics, error) {
	created, err := s.store.TeacherTests(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	perf, err := s.store.TestPerformance(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	top, err := s.store.TopStudents(ctx, teacherID, topN)
	if err != nil {
		return nil, err
	}
	tallies, err := s.store.TeacherQuestionStats(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	return &models.TeacherAnalytics{
		TestsCreated:     created,
		TestPerformance:  perf,
		TopStudents:      top,
		HardestQuestions: hardest(tallies, topN),
	}, nil
}

func (s *Service) SubjectCounts(ctx context.Context, teacherID int64) ([]models.SubjectCount, error) {
	return s.store.SubjectCounts(ctx, teacherID)
}

func (s *Service) MonthlyCounts(ctx context.Context, teacherID int64) ([]models.MonthlyCount, error) {
	rows, err := s.store.TeacherMonths(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	return teacherMonthly(rows), nil
}

func (s *Service) StudentSubjects(ctx context.Context, studentID int64) ([]models.StudentSubjectPerformance, error) {
	return s.store.StudentSubjects(ctx, studentID)
}

func (s *Service) StudentMonthly(ctx context.Context, studentID int64) ([]models.StudentMonthly, error) {
	rows, err := s.store.StudentMonths(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return studentMonthly(rows), nil
}

func (s *Service) StudentGraphs(ctx context.Context, studentID int64) (*models.StudentGraphs, error) {
	who, err := s.store.Student(ctx, studentID)
	if err != nil {
		return nil, err
	}
	history, err := s.store.ScoreHistory(ctx, studentID)
	if err != nil {
		return nil, err
	}
	subjects, err := s.store.StudentSubjects(ctx, studentID)
	if err != nil {
		return nil, err
	}
	assigned, attempted, err := s.store.StudentParticipation(ctx, studentID)
	if err != nil {
		return nil, err
	}

	out := &models.StudentGraphs{Student: *who}
	if out.PerformanceGraph, err = performanceChart(history); err != nil {
		return nil, err
	}
	if out.SubjectGraph, err = subjectChart(subjectScores(subjects)); err != nil {
		return nil, err
	}
	if out.ParticipationGraph, err = participationChart("Test Participation", attempted, assigned); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) TeacherGraphs(ctx context.Context, w io.Writer, teacherID int64) error {
	total, attempted, err := s.store.TeacherParticipation(ctx, teacherID)
	if err != nil {
		return err
	}
	return renderTeacherPage(w, attempted, total)
}

func (s *Service) Mastery(ctx context.Context, studentID int64) ([]models.Mastery, error) {
	abilities, err := s.store.Abilities(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return mastery(abilities), nil
}
