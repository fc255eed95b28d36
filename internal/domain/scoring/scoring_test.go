package scoring_test

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/codequest/leaderboard/internal/domain/model"
	scoring "github.com/codequest/leaderboard/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func result(id string, xp, secs int, d model.Difficulty) model.QuizResult {
	return model.QuizResult{
		ID:             id,
		Username:       "player-" + id,
		Topics:         []string{"go"},
		Difficulty:     d,
		XPPoints:       xp,
		TimeInSeconds:  secs,
		QuestionsCount: 10,
		CreatedAt:      time.Unix(0, 0).UTC(),
	}
}

func TestEfficiency(t *testing.T) {
	Convey("Given the efficiency formula", t, func() {
		Convey("When one minute is spent on a beginner quiz", func() {
			So(scoring.Efficiency(100, 60, model.Beginner), ShouldEqual, 100.00)
		})

		Convey("When half a minute is spent on an intermediate quiz", func() {
			So(scoring.Efficiency(100, 30, model.Intermediate), ShouldEqual, 300.00)
		})

		Convey("When the time is below the 0.1 minute floor", func() {
			So(scoring.Efficiency(50, 1, model.Advanced), ShouldEqual, 1000.00)
		})

		Convey("When a zero-second quiz is submitted", func() {
			So(scoring.Efficiency(50, 0, model.Beginner), ShouldEqual, 500.00)
		})

		Convey("When no XP was earned", func() {
			So(scoring.Efficiency(0, 120, model.Beginner), ShouldEqual, 0.00)
		})

		Convey("Then results are rounded to two decimals", func() {
			// 10 / (7/60) = 85.714285...
			So(scoring.Efficiency(10, 7, model.Beginner), ShouldEqual, 85.71)
			// 100 / (3.5) * 1.5 = 42.857142...
			So(scoring.Efficiency(100, 210, model.Intermediate), ShouldEqual, 42.86)
		})

		Convey("Then unknown difficulties weigh as advanced", func() {
			So(scoring.DifficultyBonus(model.Difficulty("expert")), ShouldEqual, 2.0)
			So(scoring.Efficiency(100, 60, model.Difficulty("")), ShouldEqual, 200.00)
		})
	})
}

func TestNormalizeCorrectAnswers(t *testing.T) {
	Convey("Given fractional correct-answer counts", t, func() {
		So(scoring.NormalizeCorrectAnswers(3.6), ShouldEqual, 4)
		So(scoring.NormalizeCorrectAnswers(3.4), ShouldEqual, 3)
		So(scoring.NormalizeCorrectAnswers(2.5), ShouldEqual, 3)
		So(scoring.NormalizeCorrectAnswers(7), ShouldEqual, 7)
		So(scoring.NormalizeCorrectAnswers(math.NaN()), ShouldEqual, 0)
	})
}

func TestRank(t *testing.T) {
	Convey("Given a set of quiz results", t, func() {
		results := []model.QuizResult{
			result("a", 100, 60, model.Beginner),     // 100
			result("b", 100, 30, model.Intermediate), // 300
			result("c", 50, 1, model.Advanced),       // 1000
			result("d", 0, 120, model.Beginner),      // 0
		}

		Convey("When ranking them", func() {
			entries := scoring.Rank(results)

			Convey("Then they are sorted by efficiency descending with dense ranks", func() {
				So(len(entries), ShouldEqual, 4)
				So(entries[0].ID, ShouldEqual, "c")
				So(entries[1].ID, ShouldEqual, "b")
				So(entries[2].ID, ShouldEqual, "a")
				So(entries[3].ID, ShouldEqual, "d")
				for i, e := range entries {
					So(e.Rank, ShouldEqual, i+1)
				}
			})

			Convey("And the input slice is untouched", func() {
				So(results[0].ID, ShouldEqual, "a")
			})
		})

		Convey("When efficiencies tie", func() {
			tied := []model.QuizResult{
				result("first", 100, 60, model.Beginner),
				result("top", 300, 60, model.Beginner),
				result("second", 100, 60, model.Beginner),
				result("third", 200, 120, model.Beginner),
			}
			entries := scoring.Rank(tied)

			Convey("Then insertion order breaks the tie", func() {
				So(entries[0].ID, ShouldEqual, "top")
				So(entries[1].ID, ShouldEqual, "first")
				So(entries[2].ID, ShouldEqual, "second")
				So(entries[3].ID, ShouldEqual, "third")
				So(entries[1].Rank, ShouldEqual, 2)
				So(entries[3].Rank, ShouldEqual, 4)
			})
		})

		Convey("When there are more results than the cap", func() {
			many := make([]model.QuizResult, 0, 80)
			for i := 0; i < 80; i++ {
				many = append(many, result(fmt.Sprintf("r%d", i), i*10, 60, model.Beginner))
			}
			entries := scoring.Rank(many)

			Convey("Then only the best MaxEntries are returned", func() {
				So(len(entries), ShouldEqual, scoring.MaxEntries)
				So(entries[0].ID, ShouldEqual, "r79")
				So(entries[scoring.MaxEntries-1].Rank, ShouldEqual, scoring.MaxEntries)
				for i := 1; i < len(entries); i++ {
					So(entries[i-1].Efficiency, ShouldBeGreaterThanOrEqualTo, entries[i].Efficiency)
				}
			})
		})

		Convey("When there are no results", func() {
			entries := scoring.Rank(nil)
			So(entries, ShouldNotBeNil)
			So(len(entries), ShouldEqual, 0)
		})
	})
}

func TestRerank(t *testing.T) {
	Convey("Given entries that arrived ranked from a backend", t, func() {
		in := []model.LeaderboardEntry{
			{QuizResult: result("low", 10, 60, model.Beginner), Rank: 3, Efficiency: 999},
			{QuizResult: result("high", 100, 60, model.Beginner), Rank: 1},
			{QuizResult: result("tie", 100, 60, model.Beginner), Rank: 2},
		}

		Convey("When reranking", func() {
			out := scoring.Rerank(in)

			Convey("Then efficiency is recomputed and backend order breaks ties", func() {
				So(out[0].ID, ShouldEqual, "high")
				So(out[1].ID, ShouldEqual, "tie")
				So(out[2].ID, ShouldEqual, "low")
				So(out[2].Efficiency, ShouldEqual, 10.00)
				So(out[2].Rank, ShouldEqual, 3)
			})
		})
	})
}
