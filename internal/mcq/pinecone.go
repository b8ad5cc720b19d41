package mcq

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"github.com/preppro/backend/internal/config"
	"github.com/preppro/backend/internal/models"
	"google.golang.org/protobuf/types/known/structpb"
)

const defaultNamespace = "mcq-bank"

// PineconeIndex serves bank search from a Pinecone index whose vector
// metadata carries the question text, answers and support passage.
type PineconeIndex struct {
	conn *pinecone.IndexConnection
}

func NewPineconeIndex(ctx context.Context, cfg config.PineconeConfig) (*PineconeIndex, error) {
	pc, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create Pinecone client: %w", err)
	}
	desc, err := pc.DescribeIndex(ctx, cfg.Index)
	if err != nil {
		return nil, fmt.Errorf("failed to describe index %s: %w", cfg.Index, err)
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = defaultNamespace
	}
	conn, err := pc.Index(pinecone.NewIndexConnParams{Host: desc.Host, Namespace: ns})
	if err != nil {
		return nil, fmt.Errorf("failed to create index connection: %w", err)
	}
	log.Printf("[mcq] pinecone index %s (namespace %s)", cfg.Index, ns)
	return &PineconeIndex{conn: conn}, nil
}

func (p *PineconeIndex) Search(ctx context.Context, vec []float32, topK int, threshold float64) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	res, err := p.conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vec,
		TopK:            uint32(topK),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("query pinecone: %w", err)
	}

	var out []Match
	for _, m := range res.Matches {
		if m == nil || m.Vector == nil || float64(m.Score) <= threshold {
			continue
		}
		entry, ok := entryFromMetadata(m.Vector.Id, m.Vector.Metadata)
		if !ok {
			continue
		}
		out = append(out, Match{Entry: entry, Score: float64(m.Score)})
	}
	return out, nil
}

// Upsert writes embedded entries to the index, keyed by bank row id.
func (p *PineconeIndex) Upsert(ctx context.Context, entries []models.BankEntry) error {
	vectors := make([]*pinecone.Vector, 0, len(entries))
	for i := range entries {
		e := entries[i]
		if len(e.Embedding) == 0 {
			continue
		}
		meta, err := structpb.NewStruct(map[string]any{
			"question":       e.Question,
			"correct_answer": e.CorrectAnswer,
			"distractor1":    e.Distractor1,
			"distractor2":    e.Distractor2,
			"distractor3":    e.Distractor3,
			"support":        e.Support,
		})
		if err != nil {
			return fmt.Errorf("metadata for bank entry %d: %w", e.ID, err)
		}
		values := e.Embedding
		vectors = append(vectors, &pinecone.Vector{
			Id:       strconv.FormatInt(e.ID, 10),
			Values:   &values,
			Metadata: meta,
		})
	}
	if len(vectors) == 0 {
		return nil
	}
	if _, err := p.conn.UpsertVectors(ctx, vectors); err != nil {
		return fmt.Errorf("upsert vectors: %w", err)
	}
	return nil
}

func (p *PineconeIndex) Close() error {
	return p.conn.Close()
}

func entryFromMetadata(id string, meta *structpb.Struct) (models.BankEntry, bool) {
	if meta == nil {
		return models.BankEntry{}, false
	}
	m := meta.AsMap()
	str := func(k string) string {
		s, _ := m[k].(string)
		return s
	}
	e := models.BankEntry{
		Question:      str("question"),
		CorrectAnswer: str("correct_answer"),
		Distractor1:   str("distractor1"),
		Distractor2:   str("distractor2"),
		Distractor3:   str("distractor3"),
		Support:       str("support"),
	}
	e.ID, _ = strconv.ParseInt(id, 10, 64)
	return e, e.Question != "" && e.CorrectAnswer != ""
}
