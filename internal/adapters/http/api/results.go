package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"unicode/utf8"

	repository "github.com/codequest/leaderboard/internal/adapters/repository"
	"github.com/codequest/leaderboard/internal/domain/model"
)

// Request limits.
const (
	maxBodyBytes      = 64 << 10
	maxUsernameLength = 64
	maxTopics         = 20
)

// ResultsDependencies defines the interface for submitting quiz results.
type ResultsDependencies interface {
	Submit(ctx context.Context, in model.QuizResultInput) (model.QuizResult, error)
}

// ResultsHandler handles quiz result submissions.
type ResultsHandler struct {
	deps ResultsDependencies
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(deps ResultsDependencies) *ResultsHandler {
	return &ResultsHandler{deps: deps}
}

// resultRequest mirrors the OpenAPI schema for POST /results.
type resultRequest struct {
	Username       string   `json:"username"`
	Topics         []string `json:"topics"`
	Difficulty     string   `json:"difficulty"`
	XPPoints       *int     `json:"xpPoints"`
	TimeInSeconds  *int     `json:"timeInSeconds"`
	QuestionsCount *int     `json:"questionsCount"`
	CorrectAnswers *float64 `json:"correctAnswers"`
}

func (req resultRequest) validate() error {
	username := strings.TrimSpace(req.Username)
	switch {
	case username == "":
		return errors.New("missing username")
	case utf8.RuneCountInString(username) > maxUsernameLength:
		return fmt.Errorf("username longer than %d characters", maxUsernameLength)
	case !model.Difficulty(req.Difficulty).Valid():
		return errors.New("difficulty must be beginner, intermediate or advanced")
	case len(req.Topics) > maxTopics:
		return fmt.Errorf("at most %d topics", maxTopics)
	case req.XPPoints == nil:
		return errors.New("missing xpPoints")
	case *req.XPPoints < 0:
		return errors.New("xpPoints must not be negative")
	case req.TimeInSeconds == nil:
		return errors.New("missing timeInSeconds")
	case *req.TimeInSeconds < 0:
		return errors.New("timeInSeconds must not be negative")
	case req.QuestionsCount == nil || *req.QuestionsCount <= 0:
		return errors.New("questionsCount must be positive")
	case req.CorrectAnswers == nil:
		return errors.New("missing correctAnswers")
	}

	ca := *req.CorrectAnswers
	if math.IsNaN(ca) || ca < 0 || ca > float64(*req.QuestionsCount) {
		return errors.New("correctAnswers must be between 0 and questionsCount")
	}
	for _, t := range req.Topics {
		if strings.TrimSpace(t) == "" {
			return errors.New("topics must not be blank")
		}
	}
	return nil
}

func (req resultRequest) toInput() model.QuizResultInput {
	topics := make([]string, len(req.Topics))
	for i, t := range req.Topics {
		topics[i] = strings.TrimSpace(t)
	}
	return model.QuizResultInput{
		Username:       strings.TrimSpace(req.Username),
		Topics:         topics,
		Difficulty:     model.Difficulty(req.Difficulty),
		XPPoints:       *req.XPPoints,
		TimeInSeconds:  *req.TimeInSeconds,
		QuestionsCount: *req.QuestionsCount,
		CorrectAnswers: *req.CorrectAnswers,
	}
}

// HandlePostResult handles POST /results requests.
func (h *ResultsHandler) HandlePostResult(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_result"

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req resultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	stored, err := h.deps.Submit(r.Context(), req.toInput())
	if err != nil {
		if errors.Is(err, repository.ErrPersistence) {
			writeError(w, http.StatusServiceUnavailable, "score_not_saved", NewKind(op, ErrUnavailable))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", NewKind(op, ErrInternal))
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}
