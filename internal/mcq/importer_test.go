package mcq

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/preppro/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bankCSV = `question,distractor3,distractor1,distractor2,correct_answer,support
What do plants absorb?,salt,oxygen,nitrogen,carbon dioxide,"Plants take in CO2, water and light."
,a,b,c,d,
Unit of force?,watt,joule,pascal,newton,
`

func TestReadBankCSV(t *testing.T) {
	entries, err := ReadBankCSV(strings.NewReader(bankCSV))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "What do plants absorb?", entries[0].Question)
	assert.Equal(t, "carbon dioxide", entries[0].CorrectAnswer)
	assert.Equal(t, "oxygen", entries[0].Distractor1)
	assert.Equal(t, "salt", entries[0].Distractor3)
	assert.Equal(t, "Plants take in CO2, water and light.", entries[0].Support)
	assert.Equal(t, "newton", entries[1].CorrectAnswer)
}

func TestReadBankCSVMissingColumn(t *testing.T) {
	_, err := ReadBankCSV(strings.NewReader("question,support\nq,s\n"))
	assert.ErrorContains(t, err, "correct_answer")

	_, err = ReadBankCSV(strings.NewReader(""))
	assert.Error(t, err)
}

type recordingWriter struct {
	batches [][]models.BankEntry
	nextID  int64
}

func (w *recordingWriter) SaveBatch(_ context.Context, entries []models.BankEntry) error {
	for i := range entries {
		w.nextID++
		entries[i].ID = w.nextID
	}
	w.batches = append(w.batches, append([]models.BankEntry(nil), entries...))
	return nil
}

type recordingUpserter struct{ ids []int64 }

func (u *recordingUpserter) Upsert(_ context.Context, entries []models.BankEntry) error {
	for _, e := range entries {
		u.ids = append(u.ids, e.ID)
	}
	return nil
}

func TestImporterBatches(t *testing.T) {
	entries := make([]models.BankEntry, 5)
	for i := range entries {
		entries[i] = models.BankEntry{Question: string(rune('a' + i)), CorrectAnswer: "x"}
	}
	w := &recordingWriter{}
	u := &recordingUpserter{}
	emb := &fakeEmbedder{vectors: map[string][]float32{}}

	n, err := NewImporter(w, emb, u, 2).Import(context.Background(), entries)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	require.Len(t, w.batches, 3)
	assert.Len(t, w.batches[2], 1)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, u.ids)
	assert.NotEmpty(t, w.batches[0][0].Embedding)
	assert.Equal(t, 3, emb.docCalls)
}

func TestImporterStopsOnEmbedError(t *testing.T) {
	entries := []models.BankEntry{{Question: "a", CorrectAnswer: "x"}, {Question: "b", CorrectAnswer: "y"}}
	w := &recordingWriter{}
	emb := &fakeEmbedder{err: errors.New("quota")}

	n, err := NewImporter(w, emb, nil, 1).Import(context.Background(), entries)
	assert.ErrorContains(t, err, "quota")
	assert.Equal(t, 0, n)
	assert.Empty(t, w.batches)
}
