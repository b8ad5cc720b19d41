package generator

import (
	"context"
	"strings"
	"testing"

	"github.com/preppro/backend/internal/config"
	"github.com/preppro/backend/internal/models"
)

const passage = "Mitochondria are organelles that produce ATP for the cell."

func TestGenerator_MockProvider(t *testing.T) {
	g, err := New(context.Background(), config.LLMConfig{Provider: "mock"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if g.ModelName() != "mock" {
		t.Errorf("expected mock model, got %q", g.ModelName())
	}

	points, err := g.Summarize(context.Background(), passage)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(points) < 5 {
		t.Errorf("expected several summary lines, got %v", points)
	}

	qs, err := g.GenerateMCQs(context.Background(), passage, 3, models.DifficultyEasy)
	if err != nil {
		t.Fatalf("GenerateMCQs: %v", err)
	}
	if len(qs) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(qs))
	}
	for _, q := range qs {
		if problems := CheckMCQ(q); len(problems) > 0 {
			t.Errorf("mock question failed checks: %v", problems)
		}
	}
}

type scriptedClient struct {
	replies map[string]string
}

func (s *scriptedClient) Generate(_ context.Context, system, _ string) (*LLMResponse, error) {
	return &LLMResponse{Content: s.replies[system]}, nil
}

func TestGenerator_VerificationDropsDisagreements(t *testing.T) {
	llm := &scriptedClient{replies: map[string]string{
		mcqSystemPrompt: `{"questions":[
			{"question_text":"What do mitochondria produce?","options":["ATP","DNA","RNA","Fat"],"correct_answer":"ATP"},
			{"question_text":"Where is ATP made?","options":["Nucleus","Mitochondria","Wall","Vacuole"],"correct_answer":"Nucleus"}
		]}`,
		verifySystemPrompt: `{"answers":[{"question":1,"selected":"A"},{"question":2,"selected":"B"}]}`,
	}}
	g := NewGenerator(llm, "scripted", WithVerification())

	qs, err := g.GenerateMCQs(context.Background(), passage, 5, models.DifficultyMedium)
	if err != nil {
		t.Fatalf("GenerateMCQs: %v", err)
	}
	if len(qs) != 1 || qs[0].CorrectAnswer != "ATP" {
		t.Errorf("expected only the verified question, got %+v", qs)
	}
}

func TestNewClient_UnknownProvider(t *testing.T) {
	if _, _, err := NewClient(context.Background(), config.LLMConfig{Provider: "llama"}); err == nil {
		t.Error("expected error for unknown provider")
	}
	if _, _, err := NewClient(context.Background(), config.LLMConfig{Provider: "anthropic"}); err == nil {
		t.Error("expected error without an API key")
	}
}

func TestBuildMCQPrompt(t *testing.T) {
	prompt := BuildMCQPrompt("  some text  ", 7, models.DifficultyHard)
	for _, want := range []string{"Generate 7 hard difficulty", "some text", `"questions"`, "Answer: [Correct option letter]"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("MCQ prompt missing %q", want)
		}
	}
	if !strings.Contains(BuildMCQPrompt("x", 5, ""), "medium difficulty") {
		t.Error("empty difficulty should default to medium")
	}
	if !strings.Contains(BuildSummaryPrompt("x"), "Key points (5-7 bullet points)") {
		t.Error("summary prompt missing key points instruction")
	}
}

func TestMCQSchemaJSON(t *testing.T) {
	raw, err := MCQSchemaJSON()
	if err != nil {
		t.Fatalf("MCQSchemaJSON: %v", err)
	}
	for _, want := range []string{`"questions"`, `"question_text"`, `"minItems":4`} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("schema missing %s: %s", want, raw)
		}
	}
}
