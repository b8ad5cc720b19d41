// Package mcq answers question-generation requests from the embedded MCQ
// bank, topping up with LLM-generated questions when the bank has too few
// close matches.
package mcq

import (
	"context"
	"log"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/preppro/backend/internal/apperr"
	"github.com/preppro/backend/internal/logger"
	"github.com/preppro/backend/internal/models"
	"github.com/samber/lo"
	"github.com/tmc/langchaingo/embeddings"
)

const (
	defaultCount = 5
	maxCount     = 20
	// Pinecone matches are deduplicated after the query.
	searchOverfetch = 3
)

type questionGenerator interface {
	GenerateMCQs(ctx context.Context, text string, count int, difficulty models.Difficulty) ([]models.GeneratedMCQ, error)
}

type Service struct {
	embedder  embeddings.Embedder
	index     Index
	gen       questionGenerator
	cache     Cache
	threshold float64
	shuffle   func([]string)
}

// NewService wires the pipeline. embedder and index may be nil, which
// disables bank search.
func NewService(embedder embeddings.Embedder, index Index, gen questionGenerator, cache Cache, threshold float64) *Service {
	return &Service{
		embedder:  embedder,
		index:     index,
		gen:       gen,
		cache:     cache,
		threshold: threshold,
		shuffle: func(s []string) {
			rand.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
		},
	}
}

func (s *Service) Generate(ctx context.Context, req models.GenerateQuestionsRequest) (*models.GenerateQuestionsResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, apperr.BadRequest("Text is required")
	}
	n := defaultCount
	if req.NumQuestions != nil {
		n = *req.NumQuestions
	}
	if n < 1 || n > maxCount {
		return nil, apperr.BadRequest("Number of questions must be between 1 and 20")
	}
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = models.DifficultyMedium
	}
	if !difficulty.Valid() {
		return nil, apperr.BadRequest("Difficulty must be easy, medium, or hard")
	}

	log.Printf("[mcq] request for %d %s questions on %s/%s", n, difficulty, req.Subject, req.Topic)
	qs := s.generate(ctx, req.Text, n, difficulty)
	for i := range qs {
		qs[i].Subject = req.Subject
		qs[i].Topic = req.Topic
	}

	return &models.GenerateQuestionsResponse{
		Questions:  qs,
		Total:      len(qs),
		Difficulty: difficulty,
		Subject:    req.Subject,
		Topic:      req.Topic,
	}, nil
}

func (s *Service) generate(ctx context.Context, text string, n int, difficulty models.Difficulty) []models.MCQ {
	key := CacheKey(text, difficulty, n)
	if s.cache != nil {
		if qs, ok := s.cache.Get(ctx, key); ok {
			log.Printf("[mcq] cache hit %s", key)
			return qs
		}
	}

	qs := s.fromBank(ctx, text, n, difficulty)
	complete := true
	if missing := n - len(qs); missing > 0 {
		log.Printf("[mcq] bank matched %d, generating %d with the LLM", len(qs), missing)
		generated, err := s.gen.GenerateMCQs(ctx, text, missing, difficulty)
		if err != nil {
			logger.Warnf("[mcq] LLM generation failed: %v", err)
			complete = false
		}
		if len(generated) > missing {
			generated = generated[:missing]
		}
		for _, g := range generated {
			qs = append(qs, models.MCQ{
				GeneratedMCQ:   g,
				Support:        text,
				RelevanceScore: 0,
				Difficulty:     difficulty,
			})
		}
	}

	// A failed LLM call is not cached so the next request retries it.
	if s.cache != nil && complete {
		s.cache.Set(ctx, key, qs)
	}
	if qs == nil {
		qs = []models.MCQ{}
	}
	return qs
}

// fromBank returns up to n bank questions scoring above the threshold, best
// first, one per distinct question text. Search failures yield no matches.
func (s *Service) fromBank(ctx context.Context, text string, n int, difficulty models.Difficulty) []models.MCQ {
	if s.embedder == nil || s.index == nil {
		return nil
	}
	vec, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		logger.Warnf("[mcq] embed request text: %v", err)
		return nil
	}
	matches, err := s.index.Search(ctx, vec, n*searchOverfetch, s.threshold)
	if err != nil {
		logger.Warnf("[mcq] bank search: %v", err)
		return nil
	}

	seen := make(map[string]bool, len(matches))
	var out []models.MCQ
	for _, m := range matches {
		e := m.Entry
		if seen[e.Question] {
			continue
		}
		seen[e.Question] = true

		options := lo.Uniq(lo.Compact([]string{e.CorrectAnswer, e.Distractor1, e.Distractor2, e.Distractor3}))
		s.shuffle(options)
		out = append(out, models.MCQ{
			GeneratedMCQ: models.GeneratedMCQ{
				QuestionText:  e.Question,
				Options:       options,
				CorrectAnswer: e.CorrectAnswer,
			},
			Support:        e.Support,
			RelevanceScore: math.Round(m.Score*1000) / 1000,
			Difficulty:     difficulty,
		})
		if len(out) == n {
			break
		}
	}
	log.Printf("[mcq] found %d semantically similar questions", len(out))
	return out
}
