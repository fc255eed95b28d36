// Package model contains domain models passed between layers.
package model

import "time"

// Difficulty is the quiz difficulty chosen by the player.
type Difficulty string

// Known difficulties.
const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

// Valid reports whether d is one of the known difficulties.
func (d Difficulty) Valid() bool {
	switch d {
	case Beginner, Intermediate, Advanced:
		return true
	}
	return false
}

// QuizResultInput is what the scoring layer hands over when a quiz ends.
// CorrectAnswers may be fractional when it was derived from XP upstream.
type QuizResultInput struct {
	Username       string     `json:"username"`
	Topics         []string   `json:"topics"`
	Difficulty     Difficulty `json:"difficulty"`
	XPPoints       int        `json:"xpPoints"`
	TimeInSeconds  int        `json:"timeInSeconds"`
	QuestionsCount int        `json:"questionsCount"`
	CorrectAnswers float64    `json:"correctAnswers"`
}

// QuizResult is one completed quiz attempt as persisted by a backend.
type QuizResult struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	Topics         []string   `json:"topics"`
	Difficulty     Difficulty `json:"difficulty"`
	XPPoints       int        `json:"xpPoints"`
	TimeInSeconds  int        `json:"timeInSeconds"`
	QuestionsCount int        `json:"questionsCount"`
	CorrectAnswers int        `json:"correctAnswers"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// LeaderboardEntry is a QuizResult with its derived ranking fields.
// Efficiency and Rank are computed on read and never persisted.
type LeaderboardEntry struct {
	QuizResult
	Efficiency float64 `json:"efficiency"`
	Rank       int     `json:"rank"`
}
