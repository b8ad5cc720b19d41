package generator

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseMCQs_JSON(t *testing.T) {
	input := "```json\n" + `{"questions":[
		{"question_text":" What do mitochondria produce? ","options":["ATP","DNA","RNA","Lipids"],"correct_answer":"ATP"},
		{"question_text":"Which organelle holds DNA?","options":["Ribosome","Nucleus","Vacuole","Golgi"],"correct_answer":"B","explanation":"extra fields are fine"}
	]}` + "\n```"

	qs, err := ParseMCQs(input)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(qs))
	}
	if qs[0].QuestionText != "What do mitochondria produce?" {
		t.Errorf("question text not trimmed: %q", qs[0].QuestionText)
	}
	if qs[1].CorrectAnswer != "Nucleus" {
		t.Errorf("expected letter B resolved to Nucleus, got %q", qs[1].CorrectAnswer)
	}
}

func TestParseMCQs_TopLevelArray(t *testing.T) {
	qs, err := ParseMCQs(`[{"question_text":"2+2?","options":["3","4","5","6"],"correct_answer":"4"}]`)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(qs) != 1 || qs[0].CorrectAnswer != "4" {
		t.Errorf("unexpected result: %+v", qs)
	}
}

func TestParseMCQs_KeepsValidQuestionsAmongBadOnes(t *testing.T) {
	input := `{"questions":[
		{"question_text":"2+2?","options":["3","4","5","6"],"correct_answer":"4"},
		{"question_text":"3+3?","options":["5","6","7"],"correct_answer":"6"},
		{"question_text":"4+4?","options":["7","8","9","10"]},
		{"question_text":"5+5?","options":"10","correct_answer":"10"},
		{"question_text":"","options":["a","b","c","d"],"correct_answer":"a"},
		{"question_text":"6+6?","options":["11","12","13","14"],"correct_answer":"B"}
	]}`

	qs, err := ParseMCQs(input)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	var texts []string
	for _, q := range qs {
		texts = append(texts, q.QuestionText)
	}
	// the answerless question is kept here and dropped later by FilterMCQs
	want := []string{"2+2?", "4+4?", "6+6?"}
	if !reflect.DeepEqual(texts, want) {
		t.Fatalf("got questions %v, want %v", texts, want)
	}
	if qs[2].CorrectAnswer != "12" {
		t.Errorf("expected letter B resolved to 12, got %q", qs[2].CorrectAnswer)
	}
	if got := FilterMCQs(qs); len(got) != 2 {
		t.Errorf("expected 2 questions after quality filter, got %d", len(got))
	}
}

func TestParseMCQs_NoUsableQuestions(t *testing.T) {
	_, err := ParseMCQs(`{"questions":[{"question_text":"2+2?","options":["3","4"],"correct_answer":"4"}]}`)
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestParseMCQs_SchemaRejectsNonArrayQuestions(t *testing.T) {
	_, err := ParseMCQs(`{"questions":{"question_text":"2+2?"}}`)
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestParseMCQs_SchemaRejectsMissingQuestions(t *testing.T) {
	_, err := ParseMCQs(`{"items":[]}`)
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestParseMCQs_TextFallback(t *testing.T) {
	input := `Here are your questions:

Q1. What is the powerhouse of the cell?
A. Nucleus
B. Mitochondria
C. Ribosome
D. Golgi apparatus
Answer: B

Q2. Which molecule carries genetic information?
A) DNA
B) ATP
C) Glucose
D) Water
Answer: A) DNA

Q3. Incomplete question
A. Only
B. Two
Answer: A`

	qs, err := ParseMCQs(input)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("expected 2 complete questions, got %d", len(qs))
	}
	if qs[0].QuestionText != "What is the powerhouse of the cell?" {
		t.Errorf("unexpected question text %q", qs[0].QuestionText)
	}
	want := []string{"Nucleus", "Mitochondria", "Ribosome", "Golgi apparatus"}
	if !reflect.DeepEqual(qs[0].Options, want) {
		t.Errorf("options = %v, want %v", qs[0].Options, want)
	}
	if qs[0].CorrectAnswer != "Mitochondria" {
		t.Errorf("expected Mitochondria, got %q", qs[0].CorrectAnswer)
	}
	if qs[1].CorrectAnswer != "DNA" {
		t.Errorf("expected DNA, got %q", qs[1].CorrectAnswer)
	}
}

func TestParseMCQs_Garbage(t *testing.T) {
	_, err := ParseMCQs("I'm sorry, I can't help with that.")
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestParseSummary(t *testing.T) {
	got := ParseSummary("Summary line\n\n  - point one  \n- point two\n")
	want := []string{"Summary line", "- point one", "- point two"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseSummary() = %v, want %v", got, want)
	}
}

func TestResolveAnswer(t *testing.T) {
	opts := []string{"red", "green", "blue", "yellow"}
	tests := []struct {
		in   string
		want string
	}{
		{"green", "green"},
		{"GREEN", "green"},
		{"C", "blue"},
		{"c.", "blue"},
		{"(D)", "yellow"},
		{"A) red", "red"},
		{"purple", "purple"},
	}
	for _, tt := range tests {
		if got := resolveAnswer(tt.in, opts); got != tt.want {
			t.Errorf("resolveAnswer(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"```json\n{}\n```", "{}"},
		{"```\n{}\n```", "{}"},
		{"  {}  ", "{}"},
	}
	for _, tt := range tests {
		if got := stripCodeFences(tt.in); got != tt.want {
			t.Errorf("stripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
