package generator

import (
	"fmt"
	"log"
	"strings"

	"github.com/preppro/backend/internal/models"
)

// CheckMCQ returns the structural problems with q, or nil if it is usable.
func CheckMCQ(q models.GeneratedMCQ) []string {
	var problems []string
	if strings.TrimSpace(q.QuestionText) == "" {
		problems = append(problems, "empty question text")
	}
	if len(q.Options) != 4 {
		problems = append(problems, fmt.Sprintf("expected 4 options, got %d", len(q.Options)))
	}

	seen := make(map[string]bool, len(q.Options))
	for i, opt := range q.Options {
		key := strings.ToLower(strings.TrimSpace(opt))
		if key == "" {
			problems = append(problems, fmt.Sprintf("option %d is empty", i+1))
			continue
		}
		if seen[key] {
			problems = append(problems, fmt.Sprintf("option %d duplicates an earlier option", i+1))
		}
		seen[key] = true
	}

	found := false
	for _, opt := range q.Options {
		if opt == q.CorrectAnswer {
			found = true
			break
		}
	}
	if !found {
		problems = append(problems, fmt.Sprintf("correct answer %q is not one of the options", q.CorrectAnswer))
	}
	return problems
}

// FilterMCQs drops questions that fail CheckMCQ.
func FilterMCQs(qs []models.GeneratedMCQ) []models.GeneratedMCQ {
	out := make([]models.GeneratedMCQ, 0, len(qs))
	for i, q := range qs {
		if problems := CheckMCQ(q); len(problems) > 0 {
			log.Printf("[generator] dropping question %d: %s", i+1, strings.Join(problems, "; "))
			continue
		}
		out = append(out, q)
	}
	return out
}
