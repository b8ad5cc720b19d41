package questions

import (
	"context"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/preppro/backend/internal/apperr"
	"github.com/preppro/backend/internal/models"
	"github.com/samber/lo"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

type questionStore interface {
	// List applies f.Limit and f.Offset when Limit is positive.
	List(ctx context.Context, f models.QuestionFilter) ([]models.Question, error)
	Get(ctx context.Context, id int64) (*models.Question, error)
	Create(ctx context.Context, q models.Question) (*models.Question, error)
	CreateMany(ctx context.Context, qs []models.Question) ([]models.Question, error)
	Update(ctx context.Context, q models.Question) (*models.Question, error)
	SoftDelete(ctx context.Context, id int64) error
}

type Service struct {
	store questionStore
}

func NewService(store questionStore) *Service {
	return &Service{store: store}
}

// List filters, searches and pages the question bank. Without a search term
// paging happens in the query; with one, results are ordered by match
// closeness, so the filtered set is ranked here before paging.
func (s *Service) List(ctx context.Context, f models.QuestionFilter) ([]models.Question, error) {
	limit, offset := page(f.Limit, f.Offset)
	term := strings.TrimSpace(f.Search)
	if term == "" {
		f.Limit, f.Offset = limit, offset
		return s.store.List(ctx, f)
	}

	f.Limit, f.Offset = 0, 0
	all, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return lo.Subset(search(all, term), offset, uint(limit)), nil
}

func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func search(qs []models.Question, term string) []models.Question {
	texts := lo.Map(qs, func(q models.Question, _ int) string { return q.Question })
	ranks := fuzzy.RankFindFold(term, texts)
	sort.Stable(ranks)

	out := make([]models.Question, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, qs[r.OriginalIndex])
	}
	return out
}

func (s *Service) Get(ctx context.Context, id int64) (*models.Question, error) {
	return s.store.Get(ctx, id)
}

// FromRequest trims and checks a question payload beyond its struct tags.
func FromRequest(req models.QuestionRequest, createdBy *int64) (models.Question, error) {
	q := models.Question{
		Question:    strings.TrimSpace(req.Question),
		Options:     lo.Map(req.Options, func(o string, _ int) string { return strings.TrimSpace(o) }),
		Subject:     strings.TrimSpace(req.Subject),
		Topic:       strings.TrimSpace(req.Topic),
		Difficulty:  req.Difficulty,
		Explanation: strings.TrimSpace(req.Explanation),
		CreatedBy:   createdBy,
	}
	if q.Question == "" {
		return q, apperr.BadRequest("Question text cannot be empty")
	}
	if lo.Contains(q.Options, "") {
		return q, apperr.BadRequest("Options cannot be empty")
	}
	if len(lo.Uniq(q.Options)) != len(q.Options) {
		return q, apperr.BadRequest("Options must be unique")
	}
	if req.CorrectAnswer == nil || *req.CorrectAnswer < 0 || *req.CorrectAnswer >= len(q.Options) {
		return q, apperr.BadRequest("correct_answer must be the index of one of the options")
	}
	q.CorrectAnswer = *req.CorrectAnswer
	return q, nil
}

func (s *Service) Create(ctx context.Context, req models.QuestionRequest, teacherID int64) (*models.Question, error) {
	q, err := FromRequest(req, &teacherID)
	if err != nil {
		return nil, err
	}
	return s.store.Create(ctx, q)
}

// CreateBulk validates every question before saving any of them.
func (s *Service) CreateBulk(ctx context.Context, req models.BulkQuestionRequest, teacherID int64) ([]models.Question, error) {
	qs := make([]models.Question, 0, len(req.Questions))
	for i, r := range req.Questions {
		q, err := FromRequest(r, &teacherID)
		if err != nil {
			_, msg := apperr.StatusOf(err)
			return nil, apperr.BadRequestf("questions[%d]: %s", i, msg)
		}
		qs = append(qs, q)
	}
	return s.store.CreateMany(ctx, qs)
}

func (s *Service) Update(ctx context.Context, id int64, req models.QuestionRequest) (*models.Question, error) {
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	q, err := FromRequest(req, existing.CreatedBy)
	if err != nil {
		return nil, err
	}
	q.ID = id
	return s.store.Update(ctx, q)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.SoftDelete(ctx, id)
}
