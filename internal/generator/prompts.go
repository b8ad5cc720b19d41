package generator

import (
	"fmt"
	"strings"

	"github.com/preppro/backend/internal/models"
)

const summarySystemPrompt = `You are a study assistant helping a student review material they pasted in.
Write plain text only. Put every item on its own line and do not use Markdown headings.`

const mcqSystemPrompt = `You are an experienced teacher writing multiple-choice questions to check
understanding of a passage. Every question must be answerable from the passage alone,
have exactly four options, and have exactly one correct option.
Respond with JSON only.`

const verifySystemPrompt = `You are a careful teacher checking a multiple-choice quiz before it is given
to students. Answer each question using only the passage. Respond with JSON only.`

func BuildSummaryPrompt(text string) string {
	return fmt.Sprintf(`Please analyze the following text and provide:
1. A concise summary (2-3 sentences)
2. Key points (5-7 bullet points)
3. Important concepts to remember

Text: %s`, strings.TrimSpace(text))
}

func BuildMCQPrompt(text string, count int, difficulty models.Difficulty) string {
	if difficulty == "" {
		difficulty = models.DifficultyMedium
	}
	shape := ""
	if schema, err := MCQSchemaJSON(); err == nil {
		shape = "\nIt must validate against this JSON Schema:\n" + string(schema) + "\n"
	}
	return fmt.Sprintf(`Generate %d %s difficulty multiple-choice questions (MCQs) with 4 options each from the following text:

%s

Respond with a JSON object of this shape:
{"questions": [{"question_text": "...", "options": ["...", "...", "...", "..."], "correct_answer": "..."}]}
%s
Rules:
- "options" has exactly 4 distinct entries
- "correct_answer" is the exact text of the correct option, not its letter
- do not number the questions or letter the options

If you cannot produce JSON, use this format instead:
Q1. [Question text]
A. [Option A]
B. [Option B]
C. [Option C]
D. [Option D]
Answer: [Correct option letter]`, count, difficulty, strings.TrimSpace(text), shape)
}

func buildVerifyPrompt(source string, qs []models.GeneratedMCQ) string {
	var sb strings.Builder
	sb.WriteString("PASSAGE:\n")
	sb.WriteString(strings.TrimSpace(source))
	sb.WriteString("\n\nQUESTIONS:\n")
	for i, q := range qs {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, q.QuestionText)
		for j, opt := range q.Options {
			fmt.Fprintf(&sb, "   %c. %s\n", 'A'+rune(j), opt)
		}
	}
	sb.WriteString(`
Pick the best option for every question. Respond with JSON only:
{"answers": [{"question": 1, "selected": "B"}]}`)
	return sb.String()
}
