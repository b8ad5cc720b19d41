package feedback

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/preppro/backend/internal/apperr"
	"github.com/preppro/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	attempts map[int64]AttemptRef
	assigned map[int64][]int64
	items    []models.Feedback
	owners   map[int64]int64
}

func newMemStore() *memStore {
	return &memStore{
		attempts: map[int64]AttemptRef{
			10: {AttemptID: 10, StudentID: 2, TestID: 100, TeacherID: 1},
			11: {AttemptID: 11, StudentID: 3, TestID: 101, TeacherID: 1},
		},
		assigned: map[int64][]int64{100: {2}},
		owners:   map[int64]int64{},
	}
}

func (m *memStore) Attempt(_ context.Context, id int64) (*AttemptRef, error) {
	ref, ok := m.attempts[id]
	if !ok {
		return nil, apperr.NotFound("Test attempt not found")
	}
	return &ref, nil
}

func (m *memStore) IsAssigned(_ context.Context, testID, studentID int64) (bool, error) {
	for _, id := range m.assigned[testID] {
		if id == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Create(_ context.Context, attemptID, studentID int64, comments string) (*models.Feedback, error) {
	f := models.Feedback{
		ID: int64(len(m.items) + 1), AttemptID: attemptID, StudentID: studentID,
		Comments: comments, Status: models.FeedbackPending,
	}
	m.items = append(m.items, f)
	m.owners[f.ID] = m.attempts[attemptID].TeacherID
	return &f, nil
}

func (m *memStore) Get(_ context.Context, id int64) (*models.Feedback, int64, error) {
	for _, f := range m.items {
		if f.ID == id {
			cp := f
			return &cp, m.owners[id], nil
		}
	}
	return nil, 0, apperr.NotFound("Feedback not found")
}

func (m *memStore) Respond(_ context.Context, id int64, response string, status models.FeedbackStatus, now time.Time) error {
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].TeacherResponse = &response
			m.items[i].Status = status
			m.items[i].ResponseDate = &now
		}
	}
	return nil
}

func (m *memStore) MarkRead(_ context.Context, id int64) error {
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].IsRead = true
		}
	}
	return nil
}

func (m *memStore) ListByStudent(_ context.Context, studentID int64) ([]models.Feedback, error) {
	var out []models.Feedback
	for _, f := range m.items {
		if f.StudentID == studentID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memStore) ListByTeacher(_ context.Context, teacherID int64) ([]models.Feedback, error) {
	var out []models.Feedback
	for _, f := range m.items {
		if m.owners[f.ID] == teacherID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memStore) ListByAttempt(_ context.Context, attemptID int64) ([]models.Feedback, error) {
	var out []models.Feedback
	for _, f := range m.items {
		if f.AttemptID == attemptID {
			out = append(out, f)
		}
	}
	return out, nil
}

func statusOf(err error) int {
	status, _ := apperr.StatusOf(err)
	return status
}

func TestRequest(t *testing.T) {
	tests := []struct {
		name    string
		student int64
		req     models.FeedbackRequest
		want    int
	}{
		{"missing text", 2, models.FeedbackRequest{AttemptID: 10, FeedbackText: "  "}, http.StatusBadRequest},
		{"missing attempt", 2, models.FeedbackRequest{FeedbackText: "why?"}, http.StatusBadRequest},
		{"unknown attempt", 2, models.FeedbackRequest{AttemptID: 99, FeedbackText: "why?"}, http.StatusNotFound},
		{"someone else's attempt", 3, models.FeedbackRequest{AttemptID: 10, FeedbackText: "why?"}, http.StatusForbidden},
		{"not assigned", 3, models.FeedbackRequest{AttemptID: 11, FeedbackText: "why?"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(newMemStore())
			_, err := svc.Request(context.Background(), tt.student, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.want, statusOf(err))
		})
	}

	svc := NewService(newMemStore())
	f, err := svc.Request(context.Background(), 2, models.FeedbackRequest{AttemptID: 10, FeedbackText: " Q3 looks wrong "})
	require.NoError(t, err)
	assert.Equal(t, "Q3 looks wrong", f.Comments)
	assert.Equal(t, models.FeedbackPending, f.Status)
}

func TestRespondAndMarkRead(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	f, err := svc.Request(ctx, 2, models.FeedbackRequest{AttemptID: 10, FeedbackText: "help"})
	require.NoError(t, err)

	_, err = svc.Respond(ctx, 9, f.ID, models.FeedbackResponseRequest{TeacherResponse: "no"})
	assert.Equal(t, http.StatusForbidden, statusOf(err))

	got, err := svc.Respond(ctx, 1, f.ID, models.FeedbackResponseRequest{TeacherResponse: "See page 4"})
	require.NoError(t, err)
	assert.Equal(t, models.FeedbackCompleted, got.Status)
	require.NotNil(t, got.ResponseDate)
	assert.Equal(t, now, *got.ResponseDate)

	got, err = svc.Respond(ctx, 1, f.ID, models.FeedbackResponseRequest{TeacherResponse: "Looking", Status: models.FeedbackInProgress})
	require.NoError(t, err)
	assert.Equal(t, models.FeedbackInProgress, got.Status)

	assert.Equal(t, http.StatusForbidden, statusOf(svc.MarkRead(ctx, 1, models.RoleTeacher, f.ID)))
	assert.Equal(t, http.StatusForbidden, statusOf(svc.MarkRead(ctx, 3, models.RoleStudent, f.ID)))
	assert.Equal(t, http.StatusNotFound, statusOf(svc.MarkRead(ctx, 2, models.RoleStudent, 42)))
	require.NoError(t, svc.MarkRead(ctx, 2, models.RoleStudent, f.ID))
	assert.True(t, store.items[0].IsRead)
}

func TestForAttempt(t *testing.T) {
	svc := NewService(newMemStore())
	ctx := context.Background()
	_, err := svc.Request(ctx, 2, models.FeedbackRequest{AttemptID: 10, FeedbackText: "help"})
	require.NoError(t, err)

	got, err := svc.ForAttempt(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = svc.ForAttempt(ctx, 3, 10)
	assert.Equal(t, http.StatusForbidden, statusOf(err))
}

func TestSummarize(t *testing.T) {
	rows := Summarize([]models.Feedback{
		{ID: 1, TestTitle: "Cells", StudentName: "ada", Score: 2, Total: 3},
		{ID: 2, Score: 0, Total: 0},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, 66.67, rows[0].Percentage)
	assert.Equal(t, "Cells", rows[0].TestTitle)
	assert.Equal(t, 0.0, rows[1].Percentage)
}
