package models

import "time"

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Score maps a difficulty to the 0-100 scale used for ability tracking.
func (d Difficulty) Score() int {
	switch d {
	case DifficultyEasy:
		return 25
	case DifficultyHard:
		return 75
	default:
		return 50
	}
}

type Question struct {
	ID            int64      `json:"id"`
	Question      string     `json:"question"`
	Options       []string   `json:"options"`
	CorrectAnswer int        `json:"correct_answer"`
	Subject       string     `json:"subject"`
	Topic         string     `json:"topic"`
	Difficulty    Difficulty `json:"difficulty"`
	Explanation   string     `json:"explanation"`
	CreatedBy     *int64     `json:"created_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// StudentQuestion is a question as shown to a student taking a test.
type StudentQuestion struct {
	ID         int64      `json:"id"`
	Question   string     `json:"question"`
	Options    []string   `json:"options"`
	Subject    string     `json:"subject"`
	Topic      string     `json:"topic"`
	Difficulty Difficulty `json:"difficulty"`
}

func (q Question) ForStudent() StudentQuestion {
	return StudentQuestion{
		ID:         q.ID,
		Question:   q.Question,
		Options:    q.Options,
		Subject:    q.Subject,
		Topic:      q.Topic,
		Difficulty: q.Difficulty,
	}
}

type QuestionRequest struct {
	Question      string     `json:"question" validate:"required"`
	Options       []string   `json:"options" validate:"required,min=2,max=10,dive,required"`
	CorrectAnswer *int       `json:"correct_answer" validate:"required,min=0"`
	Subject       string     `json:"subject" validate:"required,max=255"`
	Topic         string     `json:"topic" validate:"max=255"`
	Difficulty    Difficulty `json:"difficulty" validate:"required,difficulty"`
	Explanation   string     `json:"explanation"`
}

type BulkQuestionRequest struct {
	Questions []QuestionRequest `json:"questions" validate:"required,min=1,max=100,dive"`
}

type QuestionFilter struct {
	Subject    string
	Topic      string
	Difficulty string
	Search     string
	Limit      int
	Offset     int
}
