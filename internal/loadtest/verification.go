package loadtest

import (
	"errors"
	"fmt"
	"math"

	"github.com/codequest/leaderboard/internal/domain/model"
	"github.com/codequest/leaderboard/internal/domain/scoring"
)

// ErrInconsistent is wrapped by every verification failure.
var ErrInconsistent = errors.New("leaderboard inconsistent")

const efficiencyTolerance = 0.005

// Verify checks a leaderboard read: at most scoring.MaxEntries rows, ranks
// 1..N without gaps, efficiency non-increasing, and every efficiency equal
// to the one computed from the row's own fields. All violations are joined.
func Verify(entries []model.LeaderboardEntry) error {
	var errs []error

	if len(entries) > scoring.MaxEntries {
		errs = append(errs, fmt.Errorf("%w: %d entries exceed the cap of %d",
			ErrInconsistent, len(entries), scoring.MaxEntries))
	}

	for i, e := range entries {
		if e.Rank != i+1 {
			errs = append(errs, fmt.Errorf("%w: entry %d has rank %d", ErrInconsistent, i, e.Rank))
		}
		if i > 0 && e.Efficiency > entries[i-1].Efficiency {
			errs = append(errs, fmt.Errorf("%w: entry %d efficiency %.2f above previous %.2f",
				ErrInconsistent, i, e.Efficiency, entries[i-1].Efficiency))
		}
		want := scoring.Efficiency(e.XPPoints, e.TimeInSeconds, e.Difficulty)
		if math.Abs(e.Efficiency-want) > efficiencyTolerance {
			errs = append(errs, fmt.Errorf("%w: entry %s efficiency %.2f, computed %.2f",
				ErrInconsistent, e.ID, e.Efficiency, want))
		}
	}

	return errors.Join(errs...)
}

// VerifyCoverage checks that every submitted result that beats the
// leaderboard floor is listed. When the board is not full every submitted
// result must be listed. Other clients may have written concurrently, so
// only results strictly above the floor are required.
func VerifyCoverage(submitted []model.QuizResult, entries []model.LeaderboardEntry) error {
	listed := make(map[string]bool, len(entries))
	for _, e := range entries {
		listed[e.ID] = true
	}

	full := len(entries) >= scoring.MaxEntries
	floor := math.Inf(-1)
	if full {
		floor = entries[len(entries)-1].Efficiency
	}

	var missing int
	for _, r := range submitted {
		if listed[r.ID] {
			continue
		}
		if !full || scoring.Efficiency(r.XPPoints, r.TimeInSeconds, r.Difficulty) > floor {
			missing++
		}
	}
	if missing > 0 {
		return fmt.Errorf("%w: %d submitted results missing from the leaderboard", ErrInconsistent, missing)
	}
	return nil
}
