package models

import "time"

type FeedbackStatus string

const (
	FeedbackPending    FeedbackStatus = "pending"
	FeedbackInProgress FeedbackStatus = "in_progress"
	FeedbackCompleted  FeedbackStatus = "completed"
)

type Feedback struct {
	ID              int64          `json:"id"`
	AttemptID       int64          `json:"attempt"`
	StudentID       int64          `json:"student"`
	Comments        string         `json:"comments"`
	IsRead          bool           `json:"is_read"`
	Status          FeedbackStatus `json:"status"`
	TeacherResponse *string        `json:"teacher_response"`
	ResponseDate    *time.Time     `json:"response_date"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`

	TestID      int64  `json:"test_id"`
	TestTitle   string `json:"test_title"`
	StudentName string `json:"student_name"`
	Score       int    `json:"score"`
	Total       int    `json:"total_questions"`
}

type FeedbackRequest struct {
	AttemptID    int64  `json:"attempt"`
	FeedbackText string `json:"feedback_text"`
}

type FeedbackResponseRequest struct {
	TeacherResponse string         `json:"teacher_response" validate:"required"`
	Status          FeedbackStatus `json:"status" validate:"omitempty,oneof=in_progress completed"`
}

type FeedbackSummary struct {
	ID          int64          `json:"id"`
	TestTitle   string         `json:"test_title"`
	StudentName string         `json:"student_name"`
	Comments    string         `json:"comments"`
	Status      FeedbackStatus `json:"status"`
	Response    *string        `json:"teacher_response"`
	Percentage  float64        `json:"percentage"`
	CreatedAt   time.Time      `json:"created_at"`
}
