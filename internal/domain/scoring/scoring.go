// Package scoring computes efficiency scores and leaderboard ranks for quiz results.
package scoring

import (
	"math"
	"sort"

	"github.com/codequest/leaderboard/internal/domain/model"
)

// Ranking constants.
const (
	// MaxEntries caps the number of entries returned by a leaderboard read.
	MaxEntries = 50

	secondsPerMinute = 60.0
	minTimeInMinutes = 0.1
	roundingFactor   = 100.0
)

// Difficulty multipliers applied to XP per minute.
const (
	beginnerBonus     = 1.0
	intermediateBonus = 1.5
	advancedBonus     = 2.0
)

// DifficultyBonus returns the weight for d. Anything that is neither
// beginner nor intermediate weighs as advanced, mirroring the database view.
func DifficultyBonus(d model.Difficulty) float64 {
	switch d {
	case model.Beginner:
		return beginnerBonus
	case model.Intermediate:
		return intermediateBonus
	default:
		return advancedBonus
	}
}

// Efficiency returns XP per minute weighted by difficulty, rounded to two
// decimals. Times below six seconds are floored to 0.1 minutes.
func Efficiency(xpPoints, timeInSeconds int, d model.Difficulty) float64 {
	minutes := math.Max(float64(timeInSeconds)/secondsPerMinute, minTimeInMinutes)
	raw := (float64(xpPoints) / minutes) * DifficultyBonus(d)
	return round2(raw)
}

func round2(x float64) float64 {
	return math.Round(x*roundingFactor) / roundingFactor
}

// NormalizeCorrectAnswers rounds a possibly fractional correct-answer count
// to the nearest integer, halves away from zero.
func NormalizeCorrectAnswers(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(math.Round(v))
}

// Rank computes efficiency for every result, stable-sorts by efficiency
// descending, assigns dense 1-based ranks and truncates to MaxEntries.
// The input order is the tie-breaker, so callers pass results in
// insertion/creation order. The input slice is not modified.
func Rank(results []model.QuizResult) []model.LeaderboardEntry {
	entries := make([]model.LeaderboardEntry, len(results))
	for i, r := range results {
		entries[i] = model.LeaderboardEntry{
			QuizResult: r,
			Efficiency: Efficiency(r.XPPoints, r.TimeInSeconds, r.Difficulty),
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Efficiency > entries[j].Efficiency
	})

	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// Rerank re-derives efficiency and rank for entries that arrived already
// ranked from a backend. Entries are first put back into the backend's rank
// order so that equal efficiencies keep the backend's relative order.
func Rerank(entries []model.LeaderboardEntry) []model.LeaderboardEntry {
	ordered := make([]model.LeaderboardEntry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Rank < ordered[j].Rank
	})

	results := make([]model.QuizResult, len(ordered))
	for i, e := range ordered {
		results[i] = e.QuizResult
	}
	return Rank(results)
}
