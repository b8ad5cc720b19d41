package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/preppro/backend/internal/apperr"
	"github.com/preppro/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raw(m map[string]string) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[k] = json.RawMessage(v)
	}
	return out
}

func TestParseAnswers(t *testing.T) {
	valid := map[int64]bool{11: true, 12: true}

	got, err := ParseAnswers(raw(map[string]string{"11": "2", "12": `"0"`}), valid)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"11": 2, "12": 0}, got)

	tests := []struct {
		name    string
		answers map[string]string
		wantMsg string
	}{
		{"non-numeric id", map[string]string{"abc": "1"}, "Invalid question ID format: abc"},
		{"id not in test", map[string]string{"99": "1"}, "Invalid question ID in answers: 99"},
		{"fractional answer", map[string]string{"11": "1.5"}, "Invalid answer format for question ID 11."},
		{"object answer", map[string]string{"12": `{"a":1}`}, "Invalid answer format for question ID 12."},
		{"ids checked before values", map[string]string{"11": `"x"`, "99": "1"}, "Invalid question ID in answers: 99"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAnswers(raw(tt.answers), valid)
			status, msg := apperr.StatusOf(err)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func sampleQuestions() []models.Question {
	return []models.Question{
		{ID: 1, Question: "q1", Options: []string{"a", "b"}, CorrectAnswer: 0, Subject: "Math", Difficulty: models.DifficultyEasy},
		{ID: 2, Question: "q2", Options: []string{"a", "b"}, CorrectAnswer: 1, Subject: "Math", Difficulty: models.DifficultyMedium},
		{ID: 3, Question: "q3", Options: []string{"a", "b", "c"}, CorrectAnswer: 2, Subject: "Math", Difficulty: models.DifficultyHard},
	}
}

func TestScore(t *testing.T) {
	qs := sampleQuestions()

	r := Score(qs, map[string]int{"1": 0, "2": 1}, 2)
	assert.Equal(t, Result{Correct: 2, Total: 3, Passed: true}, r)

	r = Score(qs, map[string]int{"1": 1, "3": 2}, 2)
	assert.Equal(t, Result{Correct: 1, Total: 3, Passed: false}, r)

	r = Score(qs, map[string]int{}, 0)
	assert.True(t, r.Passed)
}

func TestComputeAnalytics(t *testing.T) {
	now := time.Now()
	qs := sampleQuestions()
	attempts := []models.Attempt{
		{Score: 3, Passed: true, Answers: map[string]int{"1": 0, "2": 1, "3": 2}},
		{Score: 1, Passed: false, Answers: map[string]int{"1": 0, "2": 0}},
		{Score: 0, Passed: false, Answers: map[string]int{"1": 1, "42": 0}},
	}

	a := ComputeAnalytics(5, attempts, qs, now)
	assert.Equal(t, int64(5), a.TestID)
	assert.Equal(t, 3, a.TotalAttempts)
	assert.InDelta(t, 1.33, a.AverageScore, 0.001)
	assert.InDelta(t, 33.33, a.PassPercentage, 0.001)
	assert.Equal(t, models.QuestionStat{Correct: 2, Attempted: 3}, a.QuestionStats["1"])
	assert.Equal(t, models.QuestionStat{Correct: 1, Attempted: 2}, a.QuestionStats["2"])
	assert.Equal(t, models.QuestionStat{Correct: 1, Attempted: 1}, a.QuestionStats["3"])
	assert.NotContains(t, a.QuestionStats, "42")

	empty := ComputeAnalytics(5, nil, qs, now)
	assert.Zero(t, empty.AverageScore)
	assert.NotNil(t, empty.QuestionStats)
}

func TestAttemptGate(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	window := func(startDays, endDays int, multi bool, ids ...int64) models.Assignment {
		return models.Assignment{
			AssignedTo:            ids,
			StartDate:             now.AddDate(0, 0, startDays),
			EndDate:               now.AddDate(0, 0, endDays),
			AllowMultipleAttempts: multi,
		}
	}

	tests := []struct {
		name        string
		assignments []models.Assignment
		prior       int
		wantStatus  int
		wantMsg     string
	}{
		{"no assignments", nil, 0, http.StatusBadRequest, "No assignments found for this test."},
		{"not assigned", []models.Assignment{window(-1, 1, false, 2, 3)}, 0, http.StatusForbidden, "You are not assigned to this test."},
		{"not started", []models.Assignment{window(1, 2, false, 7)}, 0, http.StatusBadRequest, "This test is not open for attempts."},
		{"ended", []models.Assignment{window(-3, -1, false, 7)}, 0, http.StatusBadRequest, "This test is not open for attempts."},
		{"second attempt refused", []models.Assignment{window(-1, 1, false, 7)}, 1, http.StatusBadRequest, "You have already attempted this test."},
		{"first attempt", []models.Assignment{window(-1, 1, false, 7)}, 0, 0, ""},
		{"retry allowed", []models.Assignment{window(-1, 1, false, 7), window(-1, 1, true, 7)}, 2, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := AttemptGate(tt.assignments, tt.prior, 7, now)
			if tt.wantStatus == 0 {
				require.NoError(t, err)
				require.NotNil(t, a)
				assert.True(t, a.Includes(7))
				return
			}
			status, msg := apperr.StatusOf(err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestUnattempted(t *testing.T) {
	assignments := []models.Assignment{
		{TestID: 1, AssignedTo: []int64{10, 11}},
		{TestID: 2, AssignedTo: []int64{10}},
		{TestID: 1, AssignedTo: []int64{11, 12}},
	}
	attempted := map[int64]map[int64]bool{1: {10: true}}
	titles := map[int64]string{1: "Algebra", 2: "Cells"}

	got := Unattempted(assignments, titles, attempted)
	assert.Equal(t, []models.UnattemptedEntry{
		{TestID: 1, TestTitle: "Algebra", StudentID: 11},
		{TestID: 2, TestTitle: "Cells", StudentID: 10},
		{TestID: 1, TestTitle: "Algebra", StudentID: 12},
	}, got)
}

func TestPreview(t *testing.T) {
	at := models.Attempt{
		ID:            9,
		Answers:       map[string]int{"3": 1, "1": 0, "77": 2},
		ResponseTimes: map[string]float64{"1": 4.5},
		Score:         1,
	}
	p := Preview(models.Test{Title: "Quiz"}, at, sampleQuestions())

	assert.Equal(t, "Quiz", p.TestTitle)
	require.Len(t, p.Questions, 2)
	assert.Equal(t, int64(1), p.Questions[0].QuestionID)
	assert.True(t, p.Questions[0].IsCorrect)
	require.NotNil(t, p.Questions[0].TimeTaken)
	assert.Equal(t, 4.5, *p.Questions[0].TimeTaken)
	assert.Equal(t, int64(3), p.Questions[1].QuestionID)
	assert.False(t, p.Questions[1].IsCorrect)
	assert.Nil(t, p.Questions[1].TimeTaken)
}
