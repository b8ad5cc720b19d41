package mcq

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/preppro/backend/internal/apperr"
	"github.com/preppro/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	vectors  map[string][]float32
	err      error
	docCalls int
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	f.docCalls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = f.EmbedQuery(ctx, t)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

type fakeGenerator struct {
	calls []int
	err   error
}

func (g *fakeGenerator) GenerateMCQs(_ context.Context, text string, count int, _ models.Difficulty) ([]models.GeneratedMCQ, error) {
	g.calls = append(g.calls, count)
	if g.err != nil {
		return nil, g.err
	}
	// one more than asked to check trimming
	out := make([]models.GeneratedMCQ, count+1)
	for i := range out {
		out[i] = models.GeneratedMCQ{QuestionText: "generated", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: "a"}
	}
	return out, nil
}

const passage = "Photosynthesis happens in chloroplasts."

func newTestService(gen *fakeGenerator) *Service {
	emb := &fakeEmbedder{vectors: map[string][]float32{passage: {1, 0, 0}}}
	idx := NewMemoryIndex([]models.BankEntry{
		{ID: 1, Question: "Where does photosynthesis occur?", CorrectAnswer: "chloroplast",
			Distractor1: "nucleus", Distractor2: "ribosome", Distractor3: "chloroplast",
			Support: "Chloroplasts capture light.", Embedding: []float32{0.96, 0.28, 0}},
		{ID: 2, Question: "Where does photosynthesis occur?", CorrectAnswer: "chloroplast",
			Distractor1: "a", Distractor2: "b", Distractor3: "c", Embedding: []float32{0.95, 0.3, 0}},
		{ID: 3, Question: "Unrelated", CorrectAnswer: "x", Embedding: []float32{0, 1, 0}},
	})
	svc := NewService(emb, idx, gen, NewMemoryCache(time.Hour), 0.75)
	svc.shuffle = func([]string) {}
	return svc
}

func ptr(n int) *int { return &n }

func TestGenerateValidation(t *testing.T) {
	svc := newTestService(&fakeGenerator{})
	tests := []struct {
		name string
		req  models.GenerateQuestionsRequest
		msg  string
	}{
		{"empty text", models.GenerateQuestionsRequest{}, "Text is required"},
		{"zero", models.GenerateQuestionsRequest{Text: "t", NumQuestions: ptr(0)}, "Number of questions must be between 1 and 20"},
		{"too many", models.GenerateQuestionsRequest{Text: "t", NumQuestions: ptr(21)}, "Number of questions must be between 1 and 20"},
		{"difficulty", models.GenerateQuestionsRequest{Text: "t", Difficulty: "extreme"}, "Difficulty must be easy, medium, or hard"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Generate(context.Background(), tt.req)
			status, msg := apperr.StatusOf(err)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tt.msg, msg)
		})
	}
}

func TestGenerateMixesBankAndLLM(t *testing.T) {
	gen := &fakeGenerator{}
	svc := newTestService(gen)

	resp, err := svc.Generate(context.Background(), models.GenerateQuestionsRequest{
		Text: passage, NumQuestions: ptr(3), Subject: "Biology", Topic: "Plants",
	})
	require.NoError(t, err)
	require.Equal(t, 3, resp.Total)
	assert.Equal(t, models.DifficultyMedium, resp.Difficulty)

	bank := resp.Questions[0]
	assert.Equal(t, "Where does photosynthesis occur?", bank.QuestionText)
	assert.Equal(t, []string{"chloroplast", "nucleus", "ribosome"}, bank.Options)
	assert.Equal(t, 0.96, bank.RelevanceScore)
	assert.Equal(t, "Chloroplasts capture light.", bank.Support)
	assert.Equal(t, "Biology", bank.Subject)

	assert.Equal(t, []int{2}, gen.calls)
	for _, q := range resp.Questions[1:] {
		assert.Equal(t, "generated", q.QuestionText)
		assert.Equal(t, passage, q.Support)
		assert.Zero(t, q.RelevanceScore)
		assert.Equal(t, "Plants", q.Topic)
	}
}

func TestGenerateUsesCache(t *testing.T) {
	gen := &fakeGenerator{}
	svc := newTestService(gen)
	req := models.GenerateQuestionsRequest{Text: "something else", NumQuestions: ptr(2), Difficulty: models.DifficultyHard}

	first, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)
	req.Subject = "Physics"
	second, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Len(t, gen.calls, 1)
	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, "Physics", second.Questions[0].Subject)
}

func TestGenerateLLMFailureNotCached(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("down")}
	svc := newTestService(gen)
	req := models.GenerateQuestionsRequest{Text: "no matches here"}

	resp, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Zero(t, resp.Total)
	assert.NotNil(t, resp.Questions)

	_, _ = svc.Generate(context.Background(), req)
	assert.Len(t, gen.calls, 2)
}

func TestGenerateWithoutEmbedder(t *testing.T) {
	gen := &fakeGenerator{}
	svc := NewService(nil, nil, gen, nil, 0.75)

	resp, err := svc.Generate(context.Background(), models.GenerateQuestionsRequest{Text: passage, NumQuestions: ptr(4)})
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Total)
	assert.Equal(t, []int{4}, gen.calls)
}
