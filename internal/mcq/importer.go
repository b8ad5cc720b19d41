package mcq

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/preppro/backend/internal/models"
	"github.com/tmc/langchaingo/embeddings"
)

// ReadBankCSV parses a bank export. Columns are located by header name so
// their order does not matter; question and correct_answer are required.
// Rows without a question or answer are skipped.
func ReadBankCSV(r io.Reader) ([]models.BankEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("bank csv is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, required := range []string{"question", "correct_answer"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("bank csv is missing the %q column", required)
		}
	}

	var out []models.BankEntry
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		field := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		e := models.BankEntry{
			Question:      field("question"),
			CorrectAnswer: field("correct_answer"),
			Distractor1:   field("distractor1"),
			Distractor2:   field("distractor2"),
			Distractor3:   field("distractor3"),
			Support:       field("support"),
		}
		if e.Question == "" || e.CorrectAnswer == "" {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

type bankWriter interface {
	SaveBatch(ctx context.Context, entries []models.BankEntry) error
}

type vectorUpserter interface {
	Upsert(ctx context.Context, entries []models.BankEntry) error
}

// Importer embeds bank entries in batches and stores them, optionally
// mirroring each batch to a vector index.
type Importer struct {
	store    bankWriter
	embedder embeddings.Embedder
	vectors  vectorUpserter
	batch    int
}

func NewImporter(store bankWriter, embedder embeddings.Embedder, vectors vectorUpserter, batch int) *Importer {
	if batch <= 0 {
		batch = 64
	}
	return &Importer{store: store, embedder: embedder, vectors: vectors, batch: batch}
}

// Import returns the number of entries stored. A failed batch stops the
// import; earlier batches stay committed.
func (im *Importer) Import(ctx context.Context, entries []models.BankEntry) (int, error) {
	done := 0
	for start := 0; start < len(entries); start += im.batch {
		end := min(start+im.batch, len(entries))
		chunk := entries[start:end]

		if im.embedder != nil {
			texts := make([]string, len(chunk))
			for i, e := range chunk {
				texts[i] = embeddingText(e)
			}
			vecs, err := im.embedder.EmbedDocuments(ctx, texts)
			if err != nil {
				return done, fmt.Errorf("embed rows %d-%d: %w", start+1, end, err)
			}
			if len(vecs) != len(chunk) {
				return done, fmt.Errorf("embed rows %d-%d: got %d vectors", start+1, end, len(vecs))
			}
			for i := range chunk {
				chunk[i].Embedding = vecs[i]
			}
		}

		if err := im.store.SaveBatch(ctx, chunk); err != nil {
			return done, err
		}
		if im.vectors != nil {
			if err := im.vectors.Upsert(ctx, chunk); err != nil {
				return done, err
			}
		}
		done += len(chunk)
		log.Printf("[mcq] imported %d/%d bank questions", done, len(entries))
	}
	return done, nil
}

// embeddingText is what a bank row is indexed by. Requests carry study
// passages, so the support text is included alongside the question.
func embeddingText(e models.BankEntry) string {
	if e.Support == "" {
		return e.Question
	}
	return e.Question + "\n" + e.Support
}
