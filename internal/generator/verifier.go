package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/preppro/backend/internal/models"
)

// Verifier asks a second LLM pass to answer generated questions and drops
// the ones where it disagrees with the generated answer.
type Verifier struct {
	llm LLMClient
}

func NewVerifier(llm LLMClient) *Verifier {
	return &Verifier{llm: llm}
}

type verifyResponse struct {
	Answers []struct {
		Question int    `json:"question"`
		Selected string `json:"selected"`
	} `json:"answers"`
}

// Verify returns the questions the verifier agrees with. If the verifier call
// itself fails the questions pass through unverified.
func (v *Verifier) Verify(ctx context.Context, source string, qs []models.GeneratedMCQ) []models.GeneratedMCQ {
	if len(qs) == 0 {
		return qs
	}
	resp, err := v.llm.Generate(ctx, verifySystemPrompt, buildVerifyPrompt(source, qs))
	if err != nil {
		log.Printf("[generator] verification call failed, keeping %d unverified questions: %v", len(qs), err)
		return qs
	}
	selected, err := parseVerifyResponse(resp.Content)
	if err != nil {
		log.Printf("[generator] verification response unusable, keeping questions unverified: %v", err)
		return qs
	}
	return applyVerification(qs, selected)
}

// parseVerifyResponse maps 1-based question numbers to the selected letter.
func parseVerifyResponse(content string) (map[int]string, error) {
	var vr verifyResponse
	if err := json.Unmarshal([]byte(stripCodeFences(content)), &vr); err != nil {
		return nil, fmt.Errorf("parse verification response: %w", err)
	}
	out := make(map[int]string, len(vr.Answers))
	for _, a := range vr.Answers {
		out[a.Question] = strings.ToUpper(strings.TrimSpace(a.Selected))
	}
	return out, nil
}

// applyVerification keeps questions whose selected option matches the
// generated answer. Questions the verifier skipped are kept.
func applyVerification(qs []models.GeneratedMCQ, selected map[int]string) []models.GeneratedMCQ {
	out := make([]models.GeneratedMCQ, 0, len(qs))
	for i, q := range qs {
		letter, ok := selected[i+1]
		if !ok {
			out = append(out, q)
			continue
		}
		if resolveAnswer(letter, q.Options) == q.CorrectAnswer {
			out = append(out, q)
			continue
		}
		log.Printf("[generator] verifier chose %s for question %d, expected %q; dropping", letter, i+1, q.CorrectAnswer)
	}
	return out
}
