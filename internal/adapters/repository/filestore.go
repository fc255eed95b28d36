package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/codequest/leaderboard/internal/domain/model"
	"github.com/codequest/leaderboard/internal/domain/scoring"
	"github.com/codequest/leaderboard/pkg/logger"
	"github.com/codequest/leaderboard/pkg/metrics"
)

// DefaultFilePath is where the file store keeps results unless configured otherwise.
const DefaultFilePath = "data/leaderboard.json"

const (
	dirPerm  fs.FileMode = 0o750
	filePerm fs.FileMode = 0o600
)

// fileRecord is the on-disk shape of a result. Pointers mark the fields
// that must be present for a row to be usable.
type fileRecord struct {
	ID             *string    `json:"id"`
	Username       *string    `json:"username"`
	Topics         []string   `json:"topics"`
	Difficulty     *string    `json:"difficulty"`
	XPPoints       *float64   `json:"xpPoints"`
	TimeInSeconds  *float64   `json:"timeInSeconds"`
	QuestionsCount float64    `json:"questionsCount"`
	CorrectAnswers float64    `json:"correctAnswers"`
	CreatedAt      *time.Time `json:"createdAt,omitempty"`
	// Timestamp is unix milliseconds, written by older versions instead of createdAt.
	Timestamp *int64 `json:"timestamp,omitempty"`
}

func (r fileRecord) toResult(idx int) (model.QuizResult, error) {
	switch {
	case r.ID == nil || *r.ID == "":
		return model.QuizResult{}, fmt.Errorf("%w: record %d: missing id", ErrMalformedData, idx)
	case r.Username == nil:
		return model.QuizResult{}, fmt.Errorf("%w: record %d: missing username", ErrMalformedData, idx)
	case r.Difficulty == nil:
		return model.QuizResult{}, fmt.Errorf("%w: record %d: missing difficulty", ErrMalformedData, idx)
	case r.XPPoints == nil || r.TimeInSeconds == nil:
		return model.QuizResult{}, fmt.Errorf("%w: record %d: missing xpPoints or timeInSeconds", ErrMalformedData, idx)
	}

	res := model.QuizResult{
		ID:             *r.ID,
		Username:       *r.Username,
		Topics:         r.Topics,
		Difficulty:     model.Difficulty(*r.Difficulty),
		XPPoints:       int(math.Round(*r.XPPoints)),
		TimeInSeconds:  int(math.Round(*r.TimeInSeconds)),
		QuestionsCount: int(math.Round(r.QuestionsCount)),
		CorrectAnswers: scoring.NormalizeCorrectAnswers(r.CorrectAnswers),
	}
	switch {
	case r.CreatedAt != nil:
		res.CreatedAt = r.CreatedAt.UTC()
	case r.Timestamp != nil:
		res.CreatedAt = time.UnixMilli(*r.Timestamp).UTC()
	}
	if res.Topics == nil {
		res.Topics = []string{}
	}
	return res, nil
}

func newFileRecord(r model.QuizResult) fileRecord {
	id := r.ID
	username := r.Username
	difficulty := string(r.Difficulty)
	xp := float64(r.XPPoints)
	secs := float64(r.TimeInSeconds)
	createdAt := r.CreatedAt
	ts := r.CreatedAt.UnixMilli()
	return fileRecord{
		ID:             &id,
		Username:       &username,
		Topics:         r.Topics,
		Difficulty:     &difficulty,
		XPPoints:       &xp,
		TimeInSeconds:  &secs,
		QuestionsCount: float64(r.QuestionsCount),
		CorrectAnswers: float64(r.CorrectAnswers),
		CreatedAt:      &createdAt,
		Timestamp:      &ts,
	}
}

// FileStore keeps every result in a single JSON array on local disk.
// Writes are serialized within the process and replace the file atomically.
type FileStore struct {
	path   string
	mu     sync.Mutex
	now    func() time.Time
	logger logger.Logger
}

// NewFileStore returns a store backed by the JSON file at path.
// The directory and an empty file are created on first use.
func NewFileStore(path string, opts ...FileOption) *FileStore {
	if path == "" {
		path = DefaultFilePath
	}
	s := &FileStore{
		path:   path,
		now:    time.Now,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Named.
func (s *FileStore) Name() string { return BackendFile }

// Path returns the location of the backing file.
func (s *FileStore) Path() string { return s.path }

// Insert appends r with a fresh millisecond id and persists the whole collection.
func (s *FileStore) Insert(ctx context.Context, r model.QuizResult) (model.QuizResult, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("submit", BackendFile, float64(time.Since(start).Microseconds())/1000)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return model.QuizResult{}, err
	}

	taken := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if rec.ID != nil {
			taken[*rec.ID] = struct{}{}
		}
	}

	now := s.now().UTC()
	ms := now.UnixMilli()
	for {
		if _, ok := taken[strconv.FormatInt(ms, 10)]; !ok {
			break
		}
		ms++
	}

	r.ID = strconv.FormatInt(ms, 10)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.Topics == nil {
		r.Topics = []string{}
	}

	records = append(records, newFileRecord(r))
	if err := s.save(records); err != nil {
		return model.QuizResult{}, err
	}

	s.logger.Debug(ctx, "result written to file", logger.String("id", r.ID), logger.String("path", s.path))
	return r, nil
}

// Query ranks every stored result in file order.
func (s *FileStore) Query(ctx context.Context) ([]model.LeaderboardEntry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("list", BackendFile, float64(time.Since(start).Microseconds())/1000)
	}()

	s.mu.Lock()
	records, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	results := make([]model.QuizResult, 0, len(records))
	for i, rec := range records {
		res, err := rec.toResult(i)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return scoring.Rank(results), nil
}

// ensure creates the directory and an empty collection when missing.
func (s *FileStore) ensure() error {
	if err := os.MkdirAll(filepath.Dir(s.path), dirPerm); err != nil {
		return fmt.Errorf("file store: create directory: %w: %w", ErrBackendUnavailable, err)
	}
	_, err := os.Stat(s.path)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return s.save(nil)
	default:
		return fmt.Errorf("file store: stat: %w: %w", ErrBackendUnavailable, err)
	}
}

func (s *FileStore) load() ([]fileRecord, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("file store: read: %w: %w", ErrBackendUnavailable, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var records []fileRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("file store: decode %s: %w: %w", s.path, ErrMalformedData, err)
	}
	return records, nil
}

// save writes records to a temp file in the same directory and renames it
// over the target.
func (s *FileStore) save(records []fileRecord) error {
	if records == nil {
		records = []fileRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("file store: encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".leaderboard-*.tmp")
	if err != nil {
		return fmt.Errorf("file store: create temp: %w: %w", ErrBackendUnavailable, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("file store: write: %w: %w", ErrBackendUnavailable, err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("file store: chmod: %w: %w", ErrBackendUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("file store: close: %w: %w", ErrBackendUnavailable, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("file store: rename: %w: %w", ErrBackendUnavailable, err)
	}
	return nil
}
