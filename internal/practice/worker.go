package practice

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/preppro/backend/internal/logger"
	"github.com/preppro/backend/internal/models"
)

const questionsPerSession = 5

type sessionStore interface {
	Create(ctx context.Context, studentID int64, input string) (*models.PracticeSession, error)
	Get(ctx context.Context, id int64) (*models.PracticeSession, error)
	ListByStudent(ctx context.Context, studentID int64) ([]models.PracticeSession, error)
	Unfinished(ctx context.Context, statuses ...models.PracticeStatus) ([]int64, error)
	SetStatus(ctx context.Context, id int64, status models.PracticeStatus) error
	Complete(ctx context.Context, id int64, points []string, qs []models.GeneratedMCQ) error
	Fail(ctx context.Context, id int64, msg string) error
}

type contentGenerator interface {
	Summarize(ctx context.Context, text string) ([]string, error)
	GenerateMCQs(ctx context.Context, text string, count int, difficulty models.Difficulty) ([]models.GeneratedMCQ, error)
}

// Pool processes practice sessions on a fixed number of workers. Sessions
// that do not fit in the queue stay pending and are picked up by the sweep.
type Pool struct {
	store   sessionStore
	gen     contentGenerator
	workers int
	sweep   time.Duration
	jobs    chan int64

	mu     sync.Mutex
	queued map[int64]bool
	wg     sync.WaitGroup
}

func NewPool(store sessionStore, gen contentGenerator, workers, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < workers {
		queueSize = workers
	}
	return &Pool{
		store:   store,
		gen:     gen,
		workers: workers,
		sweep:   time.Minute,
		jobs:    make(chan int64, queueSize),
		queued:  make(map[int64]bool),
	}
}

// Start re-queues sessions left pending or processing by a previous run and
// launches the workers. They stop when ctx is cancelled; call Wait to block
// until in-flight sessions finish.
func (p *Pool) Start(ctx context.Context) error {
	ids, err := p.store.Unfinished(ctx, models.PracticePending, models.PracticeProcessing)
	if err != nil {
		return err
	}
	if len(ids) > 0 {
		log.Printf("[practice] re-queueing %d unfinished sessions", len(ids))
	}

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work(ctx)
	}
	p.wg.Add(1)
	go p.sweepLoop(ctx)

	for _, id := range ids {
		p.Enqueue(id)
	}
	return nil
}

func (p *Pool) Wait() {
	p.wg.Wait()
}

// Enqueue schedules a session. It never blocks; false means the queue was
// full or the session is already queued.
func (p *Pool) Enqueue(id int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.queued[id] {
		return false
	}
	select {
	case p.jobs <- id:
		p.queued[id] = true
		return true
	default:
		log.Printf("[practice] queue full, session %d left pending", id)
		return false
	}
}

func (p *Pool) done(id int64) {
	p.mu.Lock()
	delete(p.queued, id)
	p.mu.Unlock()
}

func (p *Pool) work(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-p.jobs:
			p.process(ctx, id)
			p.done(id)
		}
	}
}

func (p *Pool) sweepLoop(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.sweep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ids, err := p.store.Unfinished(ctx, models.PracticePending)
			if err != nil {
				if ctx.Err() == nil {
					logger.Errorf("[practice] sweep failed: %v", err)
				}
				continue
			}
			for _, id := range ids {
				p.Enqueue(id)
			}
		}
	}
}

// process runs the summary and MCQ prompts for one session. A session
// interrupted by shutdown is left in processing so the next start picks it up.
func (p *Pool) process(ctx context.Context, id int64) {
	sess, err := p.store.Get(ctx, id)
	if err != nil {
		logger.Errorf("[practice] load session %d: %v", id, err)
		return
	}
	if sess.Status == models.PracticeCompleted || sess.Status == models.PracticeFailed {
		return
	}
	if err := p.store.SetStatus(ctx, id, models.PracticeProcessing); err != nil {
		logger.Errorf("[practice] mark session %d processing: %v", id, err)
		return
	}

	start := time.Now()
	points, err := p.gen.Summarize(ctx, sess.InputText)
	if err == nil {
		var qs []models.GeneratedMCQ
		qs, err = p.gen.GenerateMCQs(ctx, sess.InputText, questionsPerSession, models.DifficultyMedium)
		if err == nil {
			if err := p.store.Complete(ctx, id, points, qs); err != nil {
				logger.Errorf("[practice] save session %d: %v", id, err)
				return
			}
			log.Printf("[practice] session %d completed in %v (%d points, %d questions)",
				id, time.Since(start).Round(time.Millisecond), len(points), len(qs))
			return
		}
	}

	if ctx.Err() != nil {
		log.Printf("[practice] session %d interrupted by shutdown", id)
		return
	}
	logger.Warnf("[practice] session %d failed: %v", id, err)
	if ferr := p.store.Fail(ctx, id, err.Error()); ferr != nil {
		logger.Errorf("[practice] mark session %d failed: %v", id, ferr)
	}
}
