package tests

import (
	"math"
	"time"

	"github.com/preppro/backend/internal/models"
)

// DefaultAbility is where every student starts in a subject.
const DefaultAbility = 50

// ExpectedAccuracy returns the probability a student with the given ability
// gets a question with the given difficulty correct.
// Uses a sigmoid centered on 0 with scaling factor 12.5.
func ExpectedAccuracy(ability, difficultyScore int) float64 {
	x := float64(ability-difficultyScore) / 12.5
	return 1.0 / (1.0 + math.Exp(-x))
}

// KFactor returns the adjustment strength based on how many questions
// the student has answered in the subject.
func KFactor(questionsAnswered int) float64 {
	if questionsAnswered < 20 {
		return 3.0
	}
	if questionsAnswered < 100 {
		return 2.0
	}
	return 1.0
}

// ComputeNewAbility calculates the updated ability score after one answer.
func ComputeNewAbility(currentAbility, difficultyScore int, correct bool, questionsAnswered int) int {
	expected := ExpectedAccuracy(currentAbility, difficultyScore)
	k := KFactor(questionsAnswered)

	var result float64
	if correct {
		result = 1.0
	}

	newAbility := float64(currentAbility) + (result-expected)*k
	if newAbility < 0 {
		newAbility = 0
	}
	if newAbility > 100 {
		newAbility = 100
	}
	return int(math.Round(newAbility))
}

// TargetDifficulty computes the difficulty score to practise at next.
//
// stretch=0:   target = ability - 15
// stretch=50:  target = ability
// stretch=100: target = ability + 15
func TargetDifficulty(ability, stretch int) int {
	offset := float64(stretch-50) * 0.3
	target := float64(ability) + offset
	if target < 0 {
		target = 0
	}
	if target > 100 {
		target = 100
	}
	return int(math.Round(target))
}

// DifficultyForScore buckets a 0-100 score into the nearest difficulty label.
func DifficultyForScore(score int) models.Difficulty {
	switch {
	case score < 38:
		return models.DifficultyEasy
	case score < 63:
		return models.DifficultyMedium
	default:
		return models.DifficultyHard
	}
}

// ApplyAnswers folds one attempt's answered questions into the student's
// per-subject abilities. Unanswered questions are skipped. current is keyed
// by subject and is not modified; the changed subjects are returned.
func ApplyAnswers(studentID int64, current map[string]models.SubjectAbility, questions []models.Question, answers map[string]int, now time.Time) map[string]models.SubjectAbility {
	updated := make(map[string]models.SubjectAbility)
	for _, q := range questions {
		selected, ok := answers[questionKey(q.ID)]
		if !ok {
			continue
		}
		ab, seen := updated[q.Subject]
		if !seen {
			if cur, ok := current[q.Subject]; ok {
				ab = cur
			} else {
				ab = models.SubjectAbility{StudentID: studentID, Subject: q.Subject, AbilityScore: DefaultAbility}
			}
		}

		correct := selected == q.CorrectAnswer
		ab.AbilityScore = ComputeNewAbility(ab.AbilityScore, q.Difficulty.Score(), correct, ab.QuestionsAnswered)
		ab.QuestionsAnswered++
		if correct {
			ab.QuestionsCorrect++
		}
		ab.LastUpdated = now
		updated[q.Subject] = ab
	}
	return updated
}
