package loadtest

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/codequest/leaderboard/internal/domain/model"
	"github.com/codequest/leaderboard/pkg/logger"
)

// Ranges for generated results.
const (
	maxXPPoints      = 5000
	maxTimeInSeconds = 1800
	minQuestions     = 5
	maxQuestions     = 20
	maxTopics        = 3
	usernamePrefix   = "player-"
	usernameIDLength = 8
)

var (
	topicPool      = []string{"go", "sql", "http", "concurrency", "testing", "networking", "linux", "git"}
	difficultyPool = []model.Difficulty{model.Beginner, model.Intermediate, model.Advanced}
)

// randomInt returns a uniform value in [0, n) using crypto/rand.
func randomInt(n int) int {
	if n <= 0 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

// generateResults creates n quiz results, each with its own username.
func generateResults(ctx context.Context, n int, stats *Stats) ([]model.QuizResultInput, error) {
	logger.Get().Info(ctx, "generating quiz results", logger.Int("count", n))

	results := make([]model.QuizResultInput, n)
	for i := range results {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generation cancelled: %w", err)
		}
		results[i] = generateSingleResult()
	}

	stats.Generated = len(results)
	return results, nil
}

// generateSingleResult builds one result that passes server validation.
func generateSingleResult() model.QuizResultInput {
	questions := minQuestions + randomInt(maxQuestions-minQuestions+1)

	topics := make([]string, 0, maxTopics)
	seen := make(map[string]bool, maxTopics)
	for len(topics) < 1+randomInt(maxTopics) {
		t := topicPool[randomInt(len(topicPool))]
		if seen[t] {
			continue
		}
		seen[t] = true
		topics = append(topics, t)
	}

	return model.QuizResultInput{
		Username:       usernamePrefix + uuid.NewString()[:usernameIDLength],
		Topics:         topics,
		Difficulty:     difficultyPool[randomInt(len(difficultyPool))],
		XPPoints:       randomInt(maxXPPoints + 1),
		TimeInSeconds:  1 + randomInt(maxTimeInSeconds),
		QuestionsCount: questions,
		CorrectAnswers: float64(randomInt(questions + 1)),
	}
}
