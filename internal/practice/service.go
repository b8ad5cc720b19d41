package practice

import (
	"context"
	"strings"

	"github.com/preppro/backend/internal/apperr"
	"github.com/preppro/backend/internal/models"
)

type Service struct {
	store sessionStore
	pool  *Pool
}

func NewService(store sessionStore, pool *Pool) *Service {
	return &Service{store: store, pool: pool}
}

// Create stores a pending session and hands it to the worker pool.
func (s *Service) Create(ctx context.Context, studentID int64, req models.PracticeRequest) (*models.PracticeSession, error) {
	text := strings.TrimSpace(req.InputText)
	if text == "" {
		return nil, apperr.BadRequest("Input text is required")
	}
	sess, err := s.store.Create(ctx, studentID, text)
	if err != nil {
		return nil, err
	}
	s.pool.Enqueue(sess.ID)
	return sess, nil
}

func (s *Service) List(ctx context.Context, studentID int64) ([]models.PracticeSession, error) {
	return s.store.ListByStudent(ctx, studentID)
}

func (s *Service) Get(ctx context.Context, id, userID int64) (*models.PracticeSession, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.StudentID != userID {
		return nil, apperr.Forbidden("You don't have permission to view this session")
	}
	return sess, nil
}
