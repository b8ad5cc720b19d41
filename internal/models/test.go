package models

import "time"

type Test struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Duration     int        `json:"duration"`
	TotalMarks   int        `json:"total_marks"`
	PassingMarks int        `json:"passing_marks"`
	Subject      string     `json:"subject"`
	Topic        string     `json:"topic"`
	Difficulty   Difficulty `json:"difficulty"`
	Instructions string     `json:"instructions"`
	CreatedBy    int64      `json:"created_by"`
	IsPublished  bool       `json:"is_published"`
	QuestionIDs  []int64    `json:"question_ids"`
	Questions    []Question `json:"questions,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type TestRequest struct {
	Title        string     `json:"title" validate:"required,max=255"`
	Description  string     `json:"description"`
	Duration     int        `json:"duration" validate:"required,min=1"`
	TotalMarks   int        `json:"total_marks" validate:"required,min=1"`
	PassingMarks int        `json:"passing_marks" validate:"min=0,ltefield=TotalMarks"`
	Subject      string     `json:"subject" validate:"required,max=255"`
	Topic        string     `json:"topic" validate:"max=255"`
	Difficulty   Difficulty `json:"difficulty" validate:"required,difficulty"`
	Instructions string     `json:"instructions"`
	QuestionIDs  []int64    `json:"question_ids" validate:"omitempty,unique"`
	// TestQuestions is the older [{"question": id}] form; merged into QuestionIDs.
	TestQuestions []TestQuestionRef `json:"test_questions"`
}

type TestQuestionRef struct {
	Question int64 `json:"question"`
}

// AllQuestionIDs merges both id forms, dropping duplicates and keeping order.
func (r TestRequest) AllQuestionIDs() []int64 {
	seen := make(map[int64]bool)
	var out []int64
	add := func(id int64) {
		if id > 0 && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range r.QuestionIDs {
		add(id)
	}
	for _, ref := range r.TestQuestions {
		add(ref.Question)
	}
	return out
}

type ShowResults string

const (
	ShowImmediately     ShowResults = "immediately"
	ShowAfterSubmission ShowResults = "after_submission"
)

type Assignment struct {
	ID                     int64       `json:"id"`
	TestID                 int64       `json:"test_id"`
	AssignedBy             int64       `json:"assigned_by"`
	AssignedTo             []int64     `json:"assigned_to"`
	StartDate              time.Time   `json:"start_date"`
	EndDate                time.Time   `json:"end_date"`
	AllowMultipleAttempts  bool        `json:"allow_multiple_attempts"`
	ShowResults            ShowResults `json:"show_results"`
	PassingCriteria        int         `json:"passing_criteria"`
	AdditionalInstructions *string     `json:"additional_instructions"`
	CreatedAt              time.Time   `json:"created_at"`
}

// Includes reports whether studentID is among the assignees.
func (a Assignment) Includes(studentID int64) bool {
	for _, id := range a.AssignedTo {
		if id == studentID {
			return true
		}
	}
	return false
}

// Open reports whether now falls inside the assignment window.
func (a Assignment) Open(now time.Time) bool {
	return !now.Before(a.StartDate) && !now.After(a.EndDate)
}

type AssignmentRequest struct {
	TestID                 int64       `json:"test" validate:"required"`
	AssignedTo             []int64     `json:"assigned_to" validate:"required,min=1,unique"`
	StartDate              time.Time   `json:"start_date" validate:"required"`
	EndDate                time.Time   `json:"end_date" validate:"required,gtfield=StartDate"`
	AllowMultipleAttempts  bool        `json:"allow_multiple_attempts"`
	ShowResults            ShowResults `json:"show_results" validate:"required,show_results"`
	PassingCriteria        int         `json:"passing_criteria" validate:"min=0"`
	AdditionalInstructions *string     `json:"additional_instructions"`
}

type UnattemptedEntry struct {
	TestID    int64  `json:"test_id"`
	TestTitle string `json:"test_title"`
	StudentID int64  `json:"student_id"`
}

type TestStatusResponse struct {
	Status      string               `json:"status"`
	Data        interface{}          `json:"data,omitempty"`
	Attempted   *[]AttemptWithDetail `json:"attempted,omitempty"`
	Unattempted *[]UnattemptedEntry  `json:"unattempted,omitempty"`
}
