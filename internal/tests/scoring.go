package tests

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/preppro/backend/internal/apperr"
	"github.com/preppro/backend/internal/models"
	"github.com/samber/lo"
)

func questionKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseAnswers checks submitted answers against the test's question ids.
// Keys are checked before values, each in sorted key order, so the reported
// error is stable.
func ParseAnswers(raw map[string]json.RawMessage, valid map[int64]bool) (map[string]int, error) {
	keys := lo.Keys(raw)
	sort.Strings(keys)

	for _, k := range keys {
		id, err := strconv.ParseInt(strings.TrimSpace(k), 10, 64)
		if err != nil {
			return nil, apperr.BadRequestf("Invalid question ID format: %s", k)
		}
		if !valid[id] {
			return nil, apperr.BadRequestf("Invalid question ID in answers: %s", k)
		}
	}

	answers := make(map[string]int, len(raw))
	for _, k := range keys {
		v, ok := parseOption(raw[k])
		if !ok {
			return nil, apperr.BadRequestf("Invalid answer format for question ID %s.", k)
		}
		id, _ := strconv.ParseInt(strings.TrimSpace(k), 10, 64)
		answers[questionKey(id)] = v
	}
	return answers, nil
}

// parseOption accepts an integral JSON number or a string holding one.
func parseOption(raw json.RawMessage) (int, bool) {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		i, err := strconv.Atoi(strings.TrimSpace(s))
		return i, err == nil
	}
	return 0, false
}

type Result struct {
	Correct int
	Total   int
	Passed  bool
}

// Score counts correct answers. Total is the number of questions on the test,
// answered or not.
func Score(questions []models.Question, answers map[string]int, passingMarks int) Result {
	var correct int
	for _, q := range questions {
		if sel, ok := answers[questionKey(q.ID)]; ok && sel == q.CorrectAnswer {
			correct++
		}
	}
	return Result{Correct: correct, Total: len(questions), Passed: correct >= passingMarks}
}

// ComputeAnalytics aggregates every attempt on a test.
func ComputeAnalytics(testID int64, attempts []models.Attempt, questions []models.Question, now time.Time) models.TestAnalytics {
	a := models.TestAnalytics{
		TestID:        testID,
		TotalAttempts: len(attempts),
		QuestionStats: make(map[string]models.QuestionStat),
		UpdatedAt:     now,
	}
	if len(attempts) == 0 {
		return a
	}

	correctByID := make(map[string]int, len(questions))
	for _, q := range questions {
		correctByID[questionKey(q.ID)] = q.CorrectAnswer
	}

	var total, passed int
	for _, at := range attempts {
		total += at.Score
		if at.Passed {
			passed++
		}
		for qid, sel := range at.Answers {
			want, ok := correctByID[qid]
			if !ok {
				continue
			}
			st := a.QuestionStats[qid]
			st.Attempted++
			if sel == want {
				st.Correct++
			}
			a.QuestionStats[qid] = st
		}
	}
	a.AverageScore = round2(float64(total) / float64(len(attempts)))
	a.PassPercentage = round2(float64(passed) / float64(len(attempts)) * 100)
	return a
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// AttemptGate decides whether a student may attempt a test now. It returns
// the assignment the attempt counts against.
func AttemptGate(assignments []models.Assignment, priorAttempts int, studentID int64, now time.Time) (*models.Assignment, error) {
	if len(assignments) == 0 {
		return nil, apperr.BadRequest("No assignments found for this test.")
	}
	mine := lo.Filter(assignments, func(a models.Assignment, _ int) bool { return a.Includes(studentID) })
	if len(mine) == 0 {
		return nil, apperr.Forbidden("You are not assigned to this test.")
	}
	open := lo.Filter(mine, func(a models.Assignment, _ int) bool { return a.Open(now) })
	if len(open) == 0 {
		return nil, apperr.BadRequest("This test is not open for attempts.")
	}
	if priorAttempts == 0 {
		return &open[0], nil
	}
	if a, ok := lo.Find(open, func(a models.Assignment) bool { return a.AllowMultipleAttempts }); ok {
		return &a, nil
	}
	return nil, apperr.BadRequest("You have already attempted this test.")
}

// Unattempted lists every (test, student) pair assigned but not attempted.
// A student assigned to the same test twice is listed once.
func Unattempted(assignments []models.Assignment, titles map[int64]string, attempted map[int64]map[int64]bool) []models.UnattemptedEntry {
	out := []models.UnattemptedEntry{}
	seen := make(map[[2]int64]bool)
	for _, a := range assignments {
		for _, sid := range a.AssignedTo {
			key := [2]int64{a.TestID, sid}
			if attempted[a.TestID][sid] || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, models.UnattemptedEntry{TestID: a.TestID, TestTitle: titles[a.TestID], StudentID: sid})
		}
	}
	return out
}

// Preview pairs each answered question with what was selected.
func Preview(t models.Test, at models.Attempt, questions []models.Question) models.AttemptPreview {
	byID := lo.KeyBy(questions, func(q models.Question) string { return questionKey(q.ID) })

	keys := lo.Keys(at.Answers)
	sort.Slice(keys, func(i, j int) bool {
		a, _ := strconv.ParseInt(keys[i], 10, 64)
		b, _ := strconv.ParseInt(keys[j], 10, 64)
		return a < b
	})

	details := []models.AttemptQuestionDetail{}
	for _, k := range keys {
		q, ok := byID[k]
		if !ok {
			continue
		}
		sel := at.Answers[k]
		d := models.AttemptQuestionDetail{
			QuestionID:     q.ID,
			QuestionText:   q.Question,
			Options:        q.Options,
			CorrectOption:  q.CorrectAnswer,
			SelectedOption: sel,
			IsCorrect:      sel == q.CorrectAnswer,
		}
		if rt, ok := at.ResponseTimes[k]; ok {
			rt := rt
			d.TimeTaken = &rt
		}
		details = append(details, d)
	}

	return models.AttemptPreview{
		AttemptID:      at.ID,
		TestTitle:      t.Title,
		Score:          at.Score,
		CorrectAnswers: at.CorrectAnswers,
		TotalQuestions: at.TotalQuestions,
		Passed:         at.Passed,
		AttemptedAt:    at.AttemptedAt,
		Questions:      details,
	}
}
