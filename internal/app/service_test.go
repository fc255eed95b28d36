package service_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	repository "github.com/codequest/leaderboard/internal/adapters/repository"
	service "github.com/codequest/leaderboard/internal/app"
	"github.com/codequest/leaderboard/internal/domain/model"
	"github.com/codequest/leaderboard/internal/domain/scoring"
	"github.com/codequest/leaderboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// memoryStore is a primary store kept in memory. Setting err makes every call fail.
type memoryStore struct {
	mu        sync.Mutex
	results   []model.QuizResult
	err       error
	pingErr   error
	schema    repository.SchemaStatus
	inspected bool
}

func (m *memoryStore) Name() string { return "memory" }

func (m *memoryStore) Insert(_ context.Context, r model.QuizResult) (model.QuizResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return model.QuizResult{}, m.err
	}
	r.ID = fmt.Sprintf("mem-%d", len(m.results)+1)
	m.results = append(m.results, r)
	return r, nil
}

func (m *memoryStore) Query(context.Context) ([]model.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return scoring.Rank(m.results), nil
}

func (m *memoryStore) Ping(context.Context) error { return m.pingErr }

func (m *memoryStore) Inspect(context.Context) (repository.SchemaStatus, error) {
	m.inspected = true
	return m.schema, nil
}

func input(user string, d model.Difficulty, xp, secs int) model.QuizResultInput {
	return model.QuizResultInput{
		Username:       user,
		Topics:         []string{"go"},
		Difficulty:     d,
		XPPoints:       xp,
		TimeInSeconds:  secs,
		QuestionsCount: 5,
		CorrectAnswers: 3,
	}
}

func startService(t *testing.T, opts ...service.Option) *service.Service {
	t.Helper()
	opts = append([]service.Option{
		service.WithFileStorePath(filepath.Join(t.TempDir(), "data", "leaderboard.json")),
	}, opts...)
	svc := service.New(opts...)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["fileStorePath"], ShouldEqual, repository.DefaultFilePath)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a service without a database", t, func() {
		svc := service.New(service.WithFileStorePath(filepath.Join(t.TempDir(), "lb.json")))
		ctx := context.Background()

		Convey("When starting the service", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then it runs on file storage", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["primaryConfigured"], ShouldEqual, false)
			})

			Convey("And stopping marks it stopped", func() {
				svc.Stop()
				svc.Stop()
				So(svc.GetStats()["started"], ShouldEqual, false)

				_, err := svc.List(ctx)
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})

	Convey("Given a malformed database url", t, func() {
		svc := startService(t, service.WithDatabaseURL("postgres://%zz"))

		Convey("Then the service still starts on file storage", func() {
			So(svc.GetStats()["primaryConfigured"], ShouldEqual, false)

			_, err := svc.Submit(context.Background(), input("ada", model.Beginner, 10, 60))
			So(err, ShouldBeNil)
		})
	})
}

func TestService_SubmitAndList(t *testing.T) {
	Convey("Given a started file-only service", t, func() {
		now := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
		svc := startService(t, service.WithClock(func() time.Time { return now }))
		ctx := context.Background()

		Convey("When submitting before start on another instance", func() {
			_, err := service.New().Submit(ctx, input("x", model.Beginner, 1, 1))
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("When a result with fractional answers is submitted", func() {
			in := input("ada", model.Intermediate, 100, 30)
			in.CorrectAnswers = 3.6
			stored, err := svc.Submit(ctx, in)

			Convey("Then it is stored rounded and stamped", func() {
				So(err, ShouldBeNil)
				So(stored.ID, ShouldNotBeEmpty)
				So(stored.CorrectAnswers, ShouldEqual, 4)
				So(stored.CreatedAt, ShouldEqual, now)
			})

			Convey("And the leaderboard includes it with its efficiency", func() {
				entries, err := svc.List(ctx)
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
				So(entries[0].ID, ShouldEqual, stored.ID)
				So(entries[0].Rank, ShouldEqual, 1)
				So(entries[0].Efficiency, ShouldEqual, 300.0)
			})
		})

		Convey("When nothing was submitted", func() {
			entries, err := svc.List(ctx)

			Convey("Then the leaderboard is empty", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldNotBeNil)
				So(entries, ShouldBeEmpty)
			})
		})

		Convey("When many results are submitted", func() {
			for i := 0; i < 55; i++ {
				_, err := svc.Submit(ctx, input(fmt.Sprintf("p%d", i), model.Beginner, i, 60))
				So(err, ShouldBeNil)
			}

			entries, err := svc.List(ctx)

			Convey("Then ranks are dense, ordered and capped", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, scoring.MaxEntries)
				for i, e := range entries {
					So(e.Rank, ShouldEqual, i+1)
					if i > 0 {
						So(e.Efficiency, ShouldBeLessThanOrEqualTo, entries[i-1].Efficiency)
					}
				}
			})
		})
	})
}

func TestService_Failover(t *testing.T) {
	Convey("Given a primary that always fails", t, func() {
		primary := &memoryStore{err: fmt.Errorf("dial: %w", repository.ErrBackendUnavailable)}
		svc := startService(t, service.WithPrimaryStore(primary))
		ctx := context.Background()

		Convey("When a result is submitted", func() {
			stored, err := svc.Submit(ctx, input("fallback", model.Advanced, 50, 1))

			Convey("Then it is saved to the file and listed", func() {
				So(err, ShouldBeNil)

				entries, err := svc.List(ctx)
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
				So(entries[0].ID, ShouldEqual, stored.ID)
				So(entries[0].Efficiency, ShouldEqual, 1000.0)

				stats := svc.GetStats()
				So(stats["secondaryWrites"], ShouldEqual, int64(1))
				So(stats["failovers"], ShouldEqual, int64(2))
				So(stats["lastBackend"], ShouldEqual, repository.BackendFile)
			})
		})
	})

	Convey("Given a healthy primary", t, func() {
		primary := &memoryStore{}
		svc := startService(t, service.WithPrimaryStore(primary))
		ctx := context.Background()

		_, err := svc.Submit(ctx, input("ada", model.Beginner, 100, 60))
		So(err, ShouldBeNil)
		So(primary.results, ShouldHaveLength, 1)
		So(svc.GetStats()["primaryWrites"], ShouldEqual, int64(1))
	})

	Convey("Given both backends failing", t, func() {
		blocker := filepath.Join(t.TempDir(), "blocker")
		So(os.WriteFile(blocker, []byte("x"), 0o600), ShouldBeNil)

		primary := &memoryStore{err: fmt.Errorf("dial: %w", repository.ErrBackendUnavailable)}
		svc := startService(t,
			service.WithPrimaryStore(primary),
			service.WithFileStorePath(filepath.Join(blocker, "lb.json")),
		)
		ctx := context.Background()

		Convey("Then submit and list return a persistence error", func() {
			_, err := svc.Submit(ctx, input("lost", model.Beginner, 1, 1))
			So(errors.Is(err, repository.ErrPersistence), ShouldBeTrue)

			_, err = svc.List(ctx)
			So(errors.Is(err, repository.ErrPersistence), ShouldBeTrue)
		})
	})
}

func TestService_Status(t *testing.T) {
	Convey("Given a file-only service", t, func() {
		svc := startService(t)
		status := svc.Status(context.Background())

		So(status.PrimaryConfigured, ShouldBeFalse)
		So(status.UsingFileStorage, ShouldBeTrue)
		So(status.TablesFound, ShouldBeEmpty)
		So(status.FilePath, ShouldEndWith, "leaderboard.json")
		So(errors.Is(svc.Migrate(context.Background()), service.ErrNoDatabase), ShouldBeTrue)
	})

	Convey("Given a reachable primary with its schema", t, func() {
		primary := &memoryStore{schema: repository.SchemaStatus{ResultsTable: true, LeaderboardView: true}}
		svc := startService(t, service.WithPrimaryStore(primary))
		status := svc.Status(context.Background())

		So(primary.inspected, ShouldBeTrue)
		So(status.PrimaryReachable, ShouldBeTrue)
		So(status.TablesFound, ShouldResemble, []string{"quiz_results"})
		So(status.ViewsFound, ShouldResemble, []string{"leaderboard"})
		So(status.UsingFileStorage, ShouldBeFalse)
	})

	Convey("Given a primary without the results table", t, func() {
		primary := &memoryStore{}
		svc := startService(t, service.WithPrimaryStore(primary))

		So(svc.Status(context.Background()).UsingFileStorage, ShouldBeTrue)
	})

	Convey("Given an unreachable primary", t, func() {
		primary := &memoryStore{pingErr: errors.New("connection refused")}
		svc := startService(t, service.WithPrimaryStore(primary))
		status := svc.Status(context.Background())

		So(status.PrimaryConfigured, ShouldBeTrue)
		So(status.PrimaryReachable, ShouldBeFalse)
		So(status.UsingFileStorage, ShouldBeTrue)
		So(status.Error, ShouldContainSubstring, "connection refused")
	})
}
