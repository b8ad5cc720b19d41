// Package analytics serves per-student and per-teacher performance reports
// and renders them as PNG charts.
package analytics

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/preppro/backend/internal/models"
	"github.com/preppro/backend/internal/tests"
	"github.com/samber/lo"
)

const (
	topN = 5

	// masteryStretch targets practice slightly above current ability.
	masteryStretch = 65
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func monthLabel(t time.Time) string {
	return t.Format("January 2006")
}

func averageScore(points []models.ScorePoint) float64 {
	if len(points) == 0 {
		return 0
	}
	total := lo.SumBy(points, func(p models.ScorePoint) int { return p.Score })
	return round2(float64(total) / float64(len(points)))
}

func subjectScores(perf []models.StudentSubjectPerformance) []models.SubjectScore {
	return lo.Map(perf, func(p models.StudentSubjectPerformance, _ int) models.SubjectScore {
		return models.SubjectScore{Subject: p.Subject, AvgScore: p.AverageScore}
	})
}

// mergeStats sums stored question stats across tests. Keys that are not
// question ids are ignored.
func mergeStats(all []map[string]models.QuestionStat) []questionTally {
	byID := map[int64]*questionTally{}
	for _, stats := range all {
		for key, st := range stats {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				continue
			}
			t, ok := byID[id]
			if !ok {
				t = &questionTally{ID: id}
				byID[id] = t
			}
			t.Attempts += st.Attempted
			t.Correct += st.Correct
		}
	}
	out := make([]questionTally, 0, len(byID))
	for _, t := range byID {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// hardest returns the n questions with the lowest correct rate. Ties go to
// the more attempted question.
func hardest(tallies []questionTally, n int) []models.QuestionDifficulty {
	out := make([]models.QuestionDifficulty, 0, len(tallies))
	for _, t := range tallies {
		if t.Attempts == 0 {
			continue
		}
		out = append(out, models.QuestionDifficulty{
			QuestionID:  t.ID,
			Question:    t.Text,
			Attempts:    t.Attempts,
			CorrectRate: round2(float64(t.Correct) / float64(t.Attempts)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CorrectRate != out[j].CorrectRate {
			return out[i].CorrectRate < out[j].CorrectRate
		}
		if out[i].Attempts != out[j].Attempts {
			return out[i].Attempts > out[j].Attempts
		}
		return out[i].QuestionID < out[j].QuestionID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func mastery(abilities []models.SubjectAbility) []models.Mastery {
	return lo.Map(abilities, func(a models.SubjectAbility, _ int) models.Mastery {
		m := models.Mastery{
			Subject:           a.Subject,
			AbilityScore:      a.AbilityScore,
			QuestionsAnswered: a.QuestionsAnswered,
			QuestionsCorrect:  a.QuestionsCorrect,
			Level:             tests.DifficultyForScore(a.AbilityScore),
			NextDifficulty:    tests.DifficultyForScore(tests.TargetDifficulty(a.AbilityScore, masteryStretch)),
			LastUpdated:       a.LastUpdated,
		}
		if a.QuestionsAnswered > 0 {
			m.Accuracy = round2(float64(a.QuestionsCorrect) / float64(a.QuestionsAnswered) * 100)
		}
		return m
	})
}

func teacherMonthly(rows []monthRow) []models.MonthlyCount {
	return lo.Map(rows, func(m monthRow, _ int) models.MonthlyCount {
		return models.MonthlyCount{Month: monthLabel(m.Month), Count: m.Count}
	})
}

func studentMonthly(rows []monthRow) []models.StudentMonthly {
	return lo.Map(rows, func(m monthRow, _ int) models.StudentMonthly {
		return models.StudentMonthly{Month: monthLabel(m.Month), TestsAttempted: m.Count, AverageScore: round2(m.Average)}
	})
}
