package generator

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/preppro/backend/internal/models"
)

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimSpace(s)
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

// ParseSummary splits a summary response into its non-empty lines.
func ParseSummary(content string) []string {
	var points []string
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			points = append(points, line)
		}
	}
	return points
}

// ParseMCQs reads a JSON response, or the Q1./A./Answer: text format when the
// model did not answer in JSON. Questions without text or with other than
// four options are skipped. Answer letters are resolved to option text.
func ParseMCQs(content string) ([]models.GeneratedMCQ, error) {
	cleaned := stripCodeFences(content)

	if strings.HasPrefix(cleaned, "[") {
		cleaned = `{"questions":` + cleaned + `}`
	}
	if strings.HasPrefix(cleaned, "{") {
		return parseMCQJSON([]byte(cleaned))
	}

	qs := parseMCQText(cleaned)
	if len(qs) == 0 {
		return nil, &ErrInvalidResponse{Err: fmt.Errorf("no questions found")}
	}
	return qs, nil
}

func parseMCQJSON(raw []byte) ([]models.GeneratedMCQ, error) {
	if err := validateMCQJSON(raw); err != nil {
		return nil, err
	}
	var env struct {
		Questions []json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &ErrInvalidResponse{Content: raw, Err: err}
	}

	out := make([]models.GeneratedMCQ, 0, len(env.Questions))
	for i, item := range env.Questions {
		var q models.GeneratedMCQ
		if err := json.Unmarshal(item, &q); err != nil {
			log.Printf("[generator] skipping question %d: %v", i+1, err)
			continue
		}
		q.QuestionText = strings.TrimSpace(q.QuestionText)
		for j := range q.Options {
			q.Options[j] = strings.TrimSpace(q.Options[j])
		}
		q.CorrectAnswer = resolveAnswer(q.CorrectAnswer, q.Options)
		if q.QuestionText == "" || len(q.Options) != 4 {
			continue
		}
		out = append(out, q)
	}
	if len(out) == 0 {
		return nil, &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("no usable questions in %d returned", len(env.Questions))}
	}
	return out, nil
}

var (
	questionLineRe = regexp.MustCompile(`^(?:\*\*)?Q(?:uestion)?\s*\d+\s*[.:)]\s*(.*)$`)
	optionLineRe   = regexp.MustCompile(`^\(?([A-Da-d])[.)]\s*(.*)$`)
	answerLineRe   = regexp.MustCompile(`(?i)^(?:correct\s+)?answer\s*:\s*(.*)$`)
)

func parseMCQText(text string) []models.GeneratedMCQ {
	var (
		out []models.GeneratedMCQ
		cur *models.GeneratedMCQ
	)
	flush := func() {
		if cur != nil && cur.QuestionText != "" && len(cur.Options) == 4 {
			cur.CorrectAnswer = resolveAnswer(cur.CorrectAnswer, cur.Options)
			out = append(out, *cur)
		}
		cur = nil
	}

	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if m := questionLineRe.FindStringSubmatch(line); m != nil {
			flush()
			cur = &models.GeneratedMCQ{QuestionText: strings.TrimSpace(strings.Trim(m[1], "*"))}
			continue
		}
		if cur == nil {
			continue
		}
		if m := answerLineRe.FindStringSubmatch(line); m != nil {
			cur.CorrectAnswer = strings.TrimSpace(m[1])
			continue
		}
		if m := optionLineRe.FindStringSubmatch(line); m != nil && len(cur.Options) < 4 {
			cur.Options = append(cur.Options, strings.TrimSpace(m[2]))
		}
	}
	flush()
	return out
}

// resolveAnswer maps "B", "B.", "(B)" or "B) text" to the option text. An
// answer that already matches an option is returned as is.
func resolveAnswer(answer string, options []string) string {
	answer = strings.TrimSpace(answer)
	for _, opt := range options {
		if strings.EqualFold(opt, answer) {
			return opt
		}
	}
	if m := optionLineRe.FindStringSubmatch(answer); m != nil {
		idx := int(strings.ToUpper(m[1])[0] - 'A')
		if idx < len(options) {
			return options[idx]
		}
	}
	letter := strings.ToUpper(strings.Trim(answer, "(). "))
	if len(letter) == 1 && letter[0] >= 'A' && int(letter[0]-'A') < len(options) {
		return options[letter[0]-'A']
	}
	return answer
}
