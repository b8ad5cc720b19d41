package models

import "time"

type PracticeStatus string

const (
	PracticePending    PracticeStatus = "pending"
	PracticeProcessing PracticeStatus = "processing"
	PracticeCompleted  PracticeStatus = "completed"
	PracticeFailed     PracticeStatus = "failed"
)

type PracticeSession struct {
	ID                 int64          `json:"id"`
	StudentID          int64          `json:"student"`
	InputText          string         `json:"input_text"`
	SummaryPoints      []string       `json:"summary_points"`
	GeneratedQuestions []GeneratedMCQ `json:"generated_questions"`
	Status             PracticeStatus `json:"status"`
	ErrorMessage       *string        `json:"error_message"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

type PracticeRequest struct {
	InputText string `json:"input_text"`
}
