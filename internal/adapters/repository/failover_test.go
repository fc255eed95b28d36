package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/codequest/leaderboard/internal/domain/model"
	"github.com/codequest/leaderboard/internal/domain/scoring"
)

// stubStore is an in-memory Store whose calls can be made to fail.
type stubStore struct {
	name      string
	results   []model.QuizResult
	insertErr error
	queryErr  error
	inserts   int
	queries   int
}

func (s *stubStore) Name() string { return s.name }

func (s *stubStore) Insert(_ context.Context, r model.QuizResult) (model.QuizResult, error) {
	s.inserts++
	if s.insertErr != nil {
		return model.QuizResult{}, s.insertErr
	}
	r.ID = fmt.Sprintf("%s-%d", s.name, len(s.results)+1)
	s.results = append(s.results, r)
	return r, nil
}

func (s *stubStore) Query(context.Context) ([]model.LeaderboardEntry, error) {
	s.queries++
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	if s.results == nil {
		return nil, nil
	}
	return scoring.Rank(s.results), nil
}

func TestFailoverStore_Submit(t *testing.T) {
	Convey("Given a primary and a secondary store", t, func() {
		primary := &stubStore{name: BackendPostgres}
		secondary := &stubStore{name: BackendFile}
		store := NewFailoverStore(primary, secondary)
		ctx := context.Background()
		r := sampleResult("ada", model.Beginner, 100, 60)

		Convey("When the primary accepts the write", func() {
			stored, err := store.Insert(ctx, r)

			Convey("Then the secondary is not touched", func() {
				So(err, ShouldBeNil)
				So(stored.ID, ShouldEqual, "postgres-1")
				So(secondary.inserts, ShouldEqual, 0)
				So(store.Stats().PrimaryWrites, ShouldEqual, 1)
				So(store.Stats().LastBackend, ShouldEqual, BackendPostgres)
			})
		})

		Convey("When the primary is unreachable", func() {
			primary.insertErr = fmt.Errorf("dial: %w", ErrBackendUnavailable)
			stored, err := store.Insert(ctx, r)

			Convey("Then the write lands in the secondary", func() {
				So(err, ShouldBeNil)
				So(stored.ID, ShouldEqual, "file-1")
				So(store.Stats().Failovers, ShouldEqual, 1)
				So(store.Stats().SecondaryWrites, ShouldEqual, 1)
				So(store.Stats().LastBackend, ShouldEqual, BackendFile)
			})
		})

		Convey("When the primary schema is missing", func() {
			primary.insertErr = fmt.Errorf("insert: %w", ErrSchemaMissing)
			_, err := store.Insert(ctx, r)

			So(err, ShouldBeNil)
			So(secondary.inserts, ShouldEqual, 1)
		})

		Convey("When both stores fail", func() {
			primaryErr := fmt.Errorf("dial: %w", ErrBackendUnavailable)
			secondaryErr := fmt.Errorf("disk full: %w", ErrBackendUnavailable)
			primary.insertErr = primaryErr
			secondary.insertErr = secondaryErr

			_, err := store.Insert(ctx, r)

			Convey("Then a persistence error carries both causes", func() {
				So(errors.Is(err, ErrPersistence), ShouldBeTrue)

				var perr *PersistenceError
				So(errors.As(err, &perr), ShouldBeTrue)
				So(perr.Op, ShouldEqual, OpSubmit)
				So(perr.Primary, ShouldEqual, primaryErr)
				So(perr.Secondary, ShouldEqual, secondaryErr)
				So(store.Stats().PersistenceErrors, ShouldEqual, 1)
			})
		})
	})

	Convey("Given no primary store", t, func() {
		secondary := &stubStore{name: BackendFile}
		store := NewFailoverStore(nil, secondary)

		So(store.HasPrimary(), ShouldBeFalse)

		_, err := store.Insert(context.Background(), sampleResult("ada", model.Beginner, 1, 1))
		So(err, ShouldBeNil)
		So(store.Stats().Failovers, ShouldEqual, 0)
		So(store.Stats().SecondaryWrites, ShouldEqual, 1)
	})
}

func TestFailoverStore_List(t *testing.T) {
	Convey("Given a primary and a secondary store", t, func() {
		primary := &stubStore{name: BackendPostgres}
		secondary := &stubStore{name: BackendFile}
		store := NewFailoverStore(primary, secondary)
		ctx := context.Background()

		Convey("When the primary is reachable but empty", func() {
			secondary.results = []model.QuizResult{sampleResult("stale", model.Beginner, 1, 1)}
			entries, err := store.Query(ctx)

			Convey("Then the empty primary answer wins", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldNotBeNil)
				So(entries, ShouldBeEmpty)
				So(secondary.queries, ShouldEqual, 0)
			})
		})

		Convey("When the primary fails", func() {
			primary.queryErr = fmt.Errorf("timeout: %w", ErrBackendUnavailable)
			secondary.results = []model.QuizResult{sampleResult("local", model.Beginner, 100, 60)}
			entries, err := store.Query(ctx)

			Convey("Then the secondary leaderboard is returned", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
				So(entries[0].Username, ShouldEqual, "local")
				So(entries[0].Rank, ShouldEqual, 1)
			})
		})

		Convey("When the primary fails and the secondary is malformed", func() {
			primary.queryErr = fmt.Errorf("timeout: %w", ErrBackendUnavailable)
			secondary.queryErr = fmt.Errorf("decode: %w", ErrMalformedData)
			_, err := store.Query(ctx)

			So(errors.Is(err, ErrPersistence), ShouldBeTrue)
			So(errors.Is(err, ErrMalformedData), ShouldBeTrue)
			So(Kind(err), ShouldEqual, "persistence")
		})
	})
}

func TestFailoverStore_WithFileSecondary(t *testing.T) {
	Convey("Given a primary that always fails and a real file store", t, func() {
		primary := &stubStore{
			name:      BackendPostgres,
			insertErr: fmt.Errorf("dial: %w", ErrBackendUnavailable),
			queryErr:  fmt.Errorf("dial: %w", ErrBackendUnavailable),
		}
		file := NewFileStore(filepath.Join(t.TempDir(), "data", "leaderboard.json"))
		store := NewFailoverStore(primary, file)
		ctx := context.Background()

		r := sampleResult("fallback", model.Intermediate, 100, 30)
		r.CorrectAnswers = scoring.NormalizeCorrectAnswers(3.6)

		stored, err := store.Insert(ctx, r)
		So(err, ShouldBeNil)
		So(stored.ID, ShouldNotBeEmpty)

		entries, err := store.Query(ctx)
		So(err, ShouldBeNil)
		So(entries, ShouldHaveLength, 1)
		So(entries[0].ID, ShouldEqual, stored.ID)
		So(entries[0].Efficiency, ShouldEqual, 300.0)
		So(entries[0].CorrectAnswers, ShouldEqual, 4)
	})
}

func TestPersistenceError(t *testing.T) {
	Convey("Given a persistence error", t, func() {
		Convey("Its message names the operation and both causes", func() {
			err := &PersistenceError{Op: OpList, Primary: errors.New("p down"), Secondary: errors.New("f broken")}
			So(err.Error(), ShouldContainSubstring, "list")
			So(err.Error(), ShouldContainSubstring, "p down")
			So(err.Error(), ShouldContainSubstring, "f broken")
		})

		Convey("A secondary-only failure reports just that cause", func() {
			err := &PersistenceError{Op: OpSubmit, Secondary: errors.New("f broken")}
			So(err.Error(), ShouldEqual, "submit: persistence failed: f broken")
			So(err.Unwrap(), ShouldHaveLength, 1)
		})
	})

	Convey("Kind labels every error class", t, func() {
		So(Kind(nil), ShouldEqual, "")
		So(Kind(fmt.Errorf("x: %w", ErrSchemaMissing)), ShouldEqual, "schema_missing")
		So(Kind(fmt.Errorf("x: %w", ErrBackendUnavailable)), ShouldEqual, "backend_unavailable")
		So(Kind(fmt.Errorf("x: %w", ErrMalformedData)), ShouldEqual, "malformed_data")
		So(Kind(errors.New("other")), ShouldEqual, "unknown")
	})
}
