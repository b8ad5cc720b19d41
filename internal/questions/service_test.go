package questions

import (
	"context"
	"net/http"
	"testing"

	"github.com/preppro/backend/internal/apperr"
	"github.com/preppro/backend/internal/models"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	questions []models.Question
	created   []models.Question
	listed    []models.QuestionFilter
}

func (m *memStore) List(_ context.Context, f models.QuestionFilter) ([]models.Question, error) {
	m.listed = append(m.listed, f)
	var out []models.Question
	for _, q := range m.questions {
		if f.Subject != "" && q.Subject != f.Subject {
			continue
		}
		out = append(out, q)
	}
	if f.Limit > 0 {
		out = lo.Subset(out, f.Offset, uint(f.Limit))
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, id int64) (*models.Question, error) {
	for _, q := range m.questions {
		if q.ID == id {
			cp := q
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("Question not found")
}

func (m *memStore) Create(_ context.Context, q models.Question) (*models.Question, error) {
	q.ID = int64(len(m.questions) + 1)
	m.questions = append(m.questions, q)
	m.created = append(m.created, q)
	return &q, nil
}

func (m *memStore) CreateMany(ctx context.Context, qs []models.Question) ([]models.Question, error) {
	var out []models.Question
	for _, q := range qs {
		saved, _ := m.Create(ctx, q)
		out = append(out, *saved)
	}
	return out, nil
}

func (m *memStore) Update(_ context.Context, q models.Question) (*models.Question, error) {
	return &q, nil
}

func (m *memStore) SoftDelete(context.Context, int64) error { return nil }

func intp(i int) *int { return &i }

func TestFromRequest(t *testing.T) {
	base := models.QuestionRequest{
		Question:      " What is 2+2? ",
		Options:       []string{"3", " 4 ", "5"},
		CorrectAnswer: intp(1),
		Subject:       "Math",
		Difficulty:    models.DifficultyEasy,
	}

	q, err := FromRequest(base, nil)
	require.NoError(t, err)
	assert.Equal(t, "What is 2+2?", q.Question)
	assert.Equal(t, []string{"3", "4", "5"}, q.Options)
	assert.Equal(t, 1, q.CorrectAnswer)

	tests := []struct {
		name   string
		mutate func(r *models.QuestionRequest)
	}{
		{"answer out of range", func(r *models.QuestionRequest) { r.CorrectAnswer = intp(3) }},
		{"negative answer", func(r *models.QuestionRequest) { r.CorrectAnswer = intp(-1) }},
		{"missing answer", func(r *models.QuestionRequest) { r.CorrectAnswer = nil }},
		{"blank option", func(r *models.QuestionRequest) { r.Options = []string{"a", "  "} }},
		{"duplicate options", func(r *models.QuestionRequest) { r.Options = []string{"a", "a "} }},
		{"blank question", func(r *models.QuestionRequest) { r.Question = "   " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			req.Options = append([]string(nil), base.Options...)
			tt.mutate(&req)
			_, err := FromRequest(req, nil)
			status, _ := apperr.StatusOf(err)
			assert.Equal(t, http.StatusBadRequest, status)
		})
	}
}

func TestList_SearchAndPaging(t *testing.T) {
	store := &memStore{questions: []models.Question{
		{ID: 3, Question: "Photosynthesis happens in which organelle?", Subject: "Biology"},
		{ID: 2, Question: "What is the powerhouse of the cell?", Subject: "Biology"},
		{ID: 1, Question: "Solve for x: 2x = 10", Subject: "Math"},
	}}
	svc := NewService(store)
	ctx := context.Background()

	got, err := svc.List(ctx, models.QuestionFilter{Search: "POWERHOUSE"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)

	got, err = svc.List(ctx, models.QuestionFilter{Subject: "Biology", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)

	got, err = svc.List(ctx, models.QuestionFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestList_PagingReachesStore(t *testing.T) {
	store := &memStore{questions: []models.Question{
		{ID: 3, Question: "Which gas do plants absorb?", Subject: "Biology"},
		{ID: 2, Question: "What do plants release?", Subject: "Biology"},
		{ID: 1, Question: "Name a plant hormone", Subject: "Biology"},
	}}
	svc := NewService(store)
	ctx := context.Background()

	_, err := svc.List(ctx, models.QuestionFilter{Subject: "Biology", Limit: 2, Offset: 1})
	require.NoError(t, err)
	_, err = svc.List(ctx, models.QuestionFilter{Limit: 5000, Offset: -3})
	require.NoError(t, err)
	_, err = svc.List(ctx, models.QuestionFilter{})
	require.NoError(t, err)

	require.Len(t, store.listed, 3)
	assert.Equal(t, 2, store.listed[0].Limit)
	assert.Equal(t, 1, store.listed[0].Offset)
	assert.Equal(t, maxLimit, store.listed[1].Limit)
	assert.Equal(t, 0, store.listed[1].Offset)
	assert.Equal(t, defaultLimit, store.listed[2].Limit)

	// Search ranks the whole filtered set before paging.
	got, err := svc.List(ctx, models.QuestionFilter{Search: "plants", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0, store.listed[3].Limit)
	assert.Equal(t, 0, store.listed[3].Offset)
}

func TestCreateBulk_AllOrNothing(t *testing.T) {
	store := &memStore{}
	svc := NewService(store)

	good := models.QuestionRequest{Question: "Q", Options: []string{"a", "b"}, CorrectAnswer: intp(0), Subject: "S", Difficulty: models.DifficultyMedium}
	bad := good
	bad.CorrectAnswer = intp(5)

	_, err := svc.CreateBulk(context.Background(), models.BulkQuestionRequest{Questions: []models.QuestionRequest{good, bad}}, 9)
	require.Error(t, err)
	_, msg := apperr.StatusOf(err)
	assert.Contains(t, msg, "questions[1]")
	assert.Empty(t, store.created)

	saved, err := svc.CreateBulk(context.Background(), models.BulkQuestionRequest{Questions: []models.QuestionRequest{good, good}}, 9)
	require.NoError(t, err)
	assert.Len(t, saved, 2)
	require.NotNil(t, saved[0].CreatedBy)
	assert.Equal(t, int64(9), *saved[0].CreatedBy)
}
