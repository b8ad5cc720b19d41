package models

import "time"

type SubjectScore struct {
	Subject  string  `json:"subject"`
	AvgScore float64 `json:"avg_score"`
}

type ScorePoint struct {
	AttemptedAt time.Time `json:"attempted_at"`
	Score       int       `json:"score"`
}

type QuestionDifficulty struct {
	QuestionID  int64   `json:"question_id"`
	Question    string  `json:"question"`
	Attempts    int     `json:"attempts"`
	CorrectRate float64 `json:"correct_rate"`
}

type StudentAnalytics struct {
	AverageScore         float64              `json:"average_score"`
	SubjectPerformance   []SubjectScore       `json:"subject_performance"`
	PerformanceOverTime  []ScorePoint         `json:"performance_over_time"`
	ChallengingQuestions []QuestionDifficulty `json:"challenging_questions"`
}

type TestScore struct {
	TestID   int64   `json:"test_id"`
	Title    string  `json:"title"`
	AvgScore float64 `json:"avg_score"`
}

type StudentScore struct {
	StudentID   int64   `json:"student_id"`
	StudentName string  `json:"student_name"`
	AvgScore    float64 `json:"avg_score"`
}

type TeacherAnalytics struct {
	TestsCreated     []Test               `json:"tests_created"`
	TestPerformance  []TestScore          `json:"test_performance"`
	TopStudents      []StudentScore       `json:"top_students"`
	HardestQuestions []QuestionDifficulty `json:"hardest_questions"`
}

type SubjectCount struct {
	Subject string `json:"subject"`
	Count   int    `json:"count"`
}

type MonthlyCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type StudentSubjectPerformance struct {
	Subject       string  `json:"subject"`
	AverageScore  float64 `json:"average_score"`
	TotalAttempts int     `json:"total_attempts"`
}

type StudentMonthly struct {
	Month          string  `json:"month"`
	TestsAttempted int     `json:"tests_attempted"`
	AverageScore   float64 `json:"average_score"`
}

type StudentGraphs struct {
	Student            StudentIdentity `json:"student"`
	PerformanceGraph   *string         `json:"performance_graph"`
	SubjectGraph       *string         `json:"subject_graph"`
	ParticipationGraph *string         `json:"participation_graph"`
}

type StudentIdentity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Mastery is a student's standing in one subject with the difficulty to
// practise at next.
type Mastery struct {
	Subject           string     `json:"subject"`
	AbilityScore      int        `json:"ability_score"`
	QuestionsAnswered int        `json:"questions_answered"`
	QuestionsCorrect  int        `json:"questions_correct"`
	Accuracy          float64    `json:"accuracy"`
	Level             Difficulty `json:"level"`
	NextDifficulty    Difficulty `json:"next_difficulty"`
	LastUpdated       time.Time  `json:"last_updated"`
}
