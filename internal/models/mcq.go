package models

// GeneratedMCQ is a multiple-choice question produced by the LLM or pulled
// from the question bank. CorrectAnswer holds the option text.
type GeneratedMCQ struct {
	QuestionText  string   `json:"question_text" jsonschema:"required,description=The question stem"`
	Options       []string `json:"options" jsonschema:"required,minItems=4,maxItems=4,description=Exactly four answer options"`
	CorrectAnswer string   `json:"correct_answer" jsonschema:"required,description=The text of the correct option"`
}

// MCQ is one entry in a generate-questions response.
type MCQ struct {
	GeneratedMCQ
	Support        string     `json:"support"`
	RelevanceScore float64    `json:"relevance_score"`
	Difficulty     Difficulty `json:"difficulty"`
	Subject        string     `json:"subject"`
	Topic          string     `json:"topic"`
}

type GenerateQuestionsRequest struct {
	Text         string     `json:"text"`
	NumQuestions *int       `json:"num_questions"`
	Difficulty   Difficulty `json:"difficulty"`
	Subject      string     `json:"subject"`
	Topic        string     `json:"topic"`
}

type GenerateQuestionsResponse struct {
	Questions  []MCQ      `json:"questions"`
	Total      int        `json:"total"`
	Difficulty Difficulty `json:"difficulty"`
	Subject    string     `json:"subject"`
	Topic      string     `json:"topic"`
}

// BankEntry is one row of the MCQ bank used for semantic search.
type BankEntry struct {
	ID            int64     `json:"id"`
	Question      string    `json:"question"`
	CorrectAnswer string    `json:"correct_answer"`
	Distractor1   string    `json:"distractor1"`
	Distractor2   string    `json:"distractor2"`
	Distractor3   string    `json:"distractor3"`
	Support       string    `json:"support"`
	Embedding     []float32 `json:"-"`
}
