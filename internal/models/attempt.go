package models

import (
	"encoding/json"
	"time"
)

type Attempt struct {
	ID             int64              `json:"id"`
	StudentID      int64              `json:"student"`
	TestID         int64              `json:"test"`
	Answers        map[string]int     `json:"answers"`
	Score          int                `json:"score"`
	CorrectAnswers int                `json:"correct_answers"`
	TotalQuestions int                `json:"total_questions"`
	ResponseTimes  map[string]float64 `json:"response_times"`
	Passed         bool               `json:"passed"`
	AttemptedAt    time.Time          `json:"attempted_at"`
}

// AttemptWithDetail adds the test title and student identity used by list views.
type AttemptWithDetail struct {
	Attempt
	TestTitle    string `json:"test_title"`
	TestSubject  string `json:"test_subject"`
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
	StudentClass string `json:"student_class"`
	Section      string `json:"section"`
}

// AttemptRequest keeps answers raw so malformed ids and values can be reported
// per question.
type AttemptRequest struct {
	TestID        int64                      `json:"test_id" validate:"required"`
	Answers       map[string]json.RawMessage `json:"answers"`
	ResponseTimes map[string]float64         `json:"response_times"`
}

type AssignedTest struct {
	AssignmentID          int64             `json:"assignment_id"`
	Test                  Test              `json:"test"`
	Questions             []StudentQuestion `json:"questions"`
	Attempted             bool              `json:"attempted"`
	IsSubmitted           bool              `json:"is_submitted"`
	LatestAttempt         *Attempt          `json:"latest_attempt"`
	NextAttempt           *Attempt          `json:"next_attempt"`
	AllowMultipleAttempts bool              `json:"allow_multiple_attempts"`
	ShowResults           ShowResults       `json:"show_results"`
	StartDate             time.Time         `json:"start_date"`
	EndDate               time.Time         `json:"end_date"`
}

type AttemptQuestionDetail struct {
	QuestionID     int64    `json:"question_id"`
	QuestionText   string   `json:"question_text"`
	Options        []string `json:"options"`
	CorrectOption  int      `json:"correct_option"`
	SelectedOption int      `json:"selected_option"`
	IsCorrect      bool     `json:"is_correct"`
	TimeTaken      *float64 `json:"time_taken"`
}

type AttemptPreview struct {
	AttemptID      int64                   `json:"attempt_id"`
	TestTitle      string                  `json:"test_title"`
	Score          int                     `json:"score"`
	CorrectAnswers int                     `json:"correct_answers"`
	TotalQuestions int                     `json:"total_questions"`
	Passed         bool                    `json:"passed"`
	AttemptedAt    time.Time               `json:"attempted_at"`
	Questions      []AttemptQuestionDetail `json:"questions"`
}

type QuestionStat struct {
	Correct   int `json:"correct"`
	Attempted int `json:"attempted"`
}

type TestAnalytics struct {
	TestID         int64                   `json:"test_id"`
	AverageScore   float64                 `json:"average_score"`
	PassPercentage float64                 `json:"pass_percentage"`
	TotalAttempts  int                     `json:"total_attempts"`
	QuestionStats  map[string]QuestionStat `json:"question_difficulty_stats"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

type SubjectAbility struct {
	StudentID         int64     `json:"student_id"`
	Subject           string    `json:"subject"`
	AbilityScore      int       `json:"ability_score"`
	QuestionsAnswered int       `json:"questions_answered"`
	QuestionsCorrect  int       `json:"questions_correct"`
	LastUpdated       time.Time `json:"last_updated"`
}
