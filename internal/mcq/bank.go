package mcq

import (
	"context"
	"math"
	"sort"

	"github.com/preppro/backend/internal/models"
)

// Match is a bank entry scored against a query vector.
type Match struct {
	Entry models.BankEntry
	Score float64
}

// Index finds bank entries similar to a query vector. Results score strictly
// above threshold and are ordered best first.
type Index interface {
	Search(ctx context.Context, vec []float32, topK int, threshold float64) ([]Match, error)
}

// MemoryIndex is a brute-force cosine index over the bank held in memory.
type MemoryIndex struct {
	entries []models.BankEntry
	norms   []float64
}

func NewMemoryIndex(entries []models.BankEntry) *MemoryIndex {
	idx := &MemoryIndex{}
	for _, e := range entries {
		if len(e.Embedding) == 0 {
			continue
		}
		idx.entries = append(idx.entries, e)
		idx.norms = append(idx.norms, norm(e.Embedding))
	}
	return idx
}

// LoadMemoryIndex reads every embedded bank row from the database.
func LoadMemoryIndex(ctx context.Context, store *Store) (*MemoryIndex, error) {
	entries, err := store.Embedded(ctx)
	if err != nil {
		return nil, err
	}
	return NewMemoryIndex(entries), nil
}

func (m *MemoryIndex) Len() int { return len(m.entries) }

func (m *MemoryIndex) Search(ctx context.Context, vec []float32, topK int, threshold float64) ([]Match, error) {
	qn := norm(vec)
	if qn == 0 || topK <= 0 {
		return nil, nil
	}
	var out []Match
	for i, e := range m.entries {
		if len(e.Embedding) != len(vec) || m.norms[i] == 0 {
			continue
		}
		score := dot(vec, e.Embedding) / (qn * m.norms[i])
		if score > threshold {
			out = append(out, Match{Entry: e, Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > topK {
		out = out[:topK]
	}
	return out, ctx.Err()
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
