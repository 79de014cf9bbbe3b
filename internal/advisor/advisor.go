// Package advisor runs a skill profile through the model fallback loop and
// turns the reply into a roadmap.
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/skillbridge/internal/fallback"
	"github.com/kalambet/skillbridge/internal/roadmap"
	"github.com/kalambet/skillbridge/internal/storage"
)

// Credential failures reported by the upstream providers.
var (
	ErrUpstreamAuth    = fallback.ErrUpstreamAuth
	ErrUpstreamBilling = fallback.ErrUpstreamBilling
)

// User-facing messages, one per failure class.
const (
	MsgAllUnavailable = "All free models are currently unavailable. Please try again in 2 minutes."
	MsgInvalidKey     = "Invalid API Key. Check OPENROUTER_API_KEY in your .env file."
	MsgNoCredits      = "No credits. Go to openrouter.ai and top up your account."
	MsgMalformed      = "AI returned invalid format. Please click Analyze again."
	MsgInternal       = "Something went wrong. Please try again."
)

// Generator produces a completion for a prompt, trying models as needed.
type Generator interface {
	Run(ctx context.Context, prompt string) (fallback.Result, error)
}

// Recorder persists analyses. Implemented by *storage.Store.
type Recorder interface {
	SaveAnalysis(ctx context.Context, a storage.Analysis) error
}

// Result is a successfully generated roadmap.
type Result struct {
	ID       string
	Model    string
	Roadmap  json.RawMessage
	Notes    []string
	Attempts []fallback.Attempt
}

// Service generates roadmaps.
type Service struct {
	gen      Generator
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Service. recorder may be nil to disable history.
func New(gen Generator, recorder Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gen: gen, recorder: recorder, logger: logger, now: time.Now}
}

// Analyze builds the prompt for p, walks the candidate models and parses the
// reply. Errors match fallback.ErrAllModelsUnavailable, ErrUpstreamAuth,
// ErrUpstreamBilling or roadmap.ErrMalformed where applicable.
func (s *Service) Analyze(ctx context.Context, p roadmap.Profile) (Result, error) {
	start := s.now()
	rec := storage.Analysis{
		ID:          uuid.New().String(),
		CreatedAt:   start,
		Confidence:  p.Confidence,
		Skills:      p.Skills,
		DesiredJob:  p.DesiredJob,
		WeeklyHours: p.WeeklyHours,
	}

	out, err := s.gen.Run(ctx, roadmap.BuildPrompt(p))
	if err != nil {
		var exhausted *fallback.ExhaustedError
		if errors.As(err, &exhausted) {
			rec.AttemptsJSON = marshalList(exhausted.Attempts)
		}
		s.fail(ctx, rec, start, err)
		return Result{}, err
	}
	rec.Model = out.Model
	rec.RawResponse = out.Text
	rec.AttemptsJSON = marshalList(out.Attempts)

	raw, err := roadmap.Parse(out.Text)
	if err != nil {
		s.logger.Warn("model returned unparseable roadmap", "model", out.Model, "error", err)
		s.fail(ctx, rec, start, err)
		return Result{}, err
	}

	notes := roadmap.Check(raw)
	if len(notes) > 0 {
		s.logger.Debug("roadmap deviates from expected shape", "model", out.Model, "notes", notes)
	}

	rec.Status = storage.StatusCompleted
	rec.RoadmapJSON = string(raw)
	rec.Notes = marshalList(notes)
	rec.DurationMs = s.now().Sub(start).Milliseconds()
	s.record(ctx, rec)

	s.logger.Info("roadmap generated", "id", rec.ID, "model", out.Model, "duration_ms", rec.DurationMs)
	return Result{
		ID:       rec.ID,
		Model:    out.Model,
		Roadmap:  raw,
		Notes:    notes,
		Attempts: out.Attempts,
	}, nil
}

func (s *Service) fail(ctx context.Context, rec storage.Analysis, start time.Time, err error) {
	rec.Status = storage.StatusFailed
	rec.ErrorClass = ErrorClass(err)
	rec.DurationMs = s.now().Sub(start).Milliseconds()
	s.record(ctx, rec)
}

// record never affects the response; a storage failure is only logged.
func (s *Service) record(ctx context.Context, rec storage.Analysis) {
	if s.recorder == nil {
		return
	}
	// The request context may already be cancelled when a failure is recorded.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.recorder.SaveAnalysis(ctx, rec); err != nil {
		s.logger.Error("recording analysis", "id", rec.ID, "error", err)
	}
}

// ErrorClass names the failure class of err for logs and history.
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUpstreamAuth):
		return "auth"
	case errors.Is(err, ErrUpstreamBilling):
		return "billing"
	case errors.Is(err, fallback.ErrAllModelsUnavailable):
		return "unavailable"
	case errors.Is(err, roadmap.ErrMalformed):
		return "malformed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	return "internal"
}

// UserMessage returns the single human-readable message shown for err.
func UserMessage(err error) string {
	var verr *roadmap.ValidationError
	switch {
	case errors.Is(err, roadmap.ErrMissingFields):
		return roadmap.ErrMissingFields.Error()
	case errors.As(err, &verr):
		return verr.Error()
	}
	switch ErrorClass(err) {
	case "auth":
		return MsgInvalidKey
	case "billing":
		return MsgNoCredits
	case "unavailable", "timeout":
		return MsgAllUnavailable
	case "malformed":
		return MsgMalformed
	}
	return MsgInternal
}

// StatusCode maps err to the HTTP status returned by /analyze.
func StatusCode(err error) int {
	var verr *roadmap.ValidationError
	if errors.Is(err, roadmap.ErrMissingFields) || errors.As(err, &verr) {
		return http.StatusBadRequest
	}
	switch ErrorClass(err) {
	case "auth", "billing", "malformed":
		return http.StatusBadGateway
	case "unavailable", "timeout":
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func marshalList[T any](items []T) string {
	if len(items) == 0 {
		return "[]"
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}
