// Package api exposes roadmap generation over HTTP and MCP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kalambet/skillbridge/internal/advisor"
	"github.com/kalambet/skillbridge/internal/proxy"
	"github.com/kalambet/skillbridge/internal/roadmap"
	"github.com/kalambet/skillbridge/internal/storage"
)

const (
	maxRequestBodySize = 1 << 20 // 1MB

	defaultRequestTimeout = 5 * time.Minute
	defaultListLimit      = 20
	maxListLimit          = 100
)

// Analyzer generates a roadmap for a profile.
type Analyzer interface {
	Analyze(ctx context.Context, p roadmap.Profile) (advisor.Result, error)
}

// History reads stored analyses. Implemented by *storage.Store.
type History interface {
	GetAnalysis(ctx context.Context, id string) (storage.Analysis, error)
	ListAnalyses(ctx context.Context, limit, offset int) ([]storage.Analysis, error)
}

// Deps holds the handler's collaborators.
type Deps struct {
	Analyzer Analyzer
	// History is nil when history is disabled.
	History History
	// Models is the candidate list in priority order.
	Models []string
	// Assets is the static frontend; nil disables it.
	Assets         fs.FS
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// NewHandler returns the SkillBridge HTTP API.
func NewHandler(d Deps) http.Handler {
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = defaultRequestTimeout
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/health", handleHealth)
	r.Get("/models", handleModels(d.Models))
	r.Post("/analyze", handleAnalyze(d))

	r.Route("/roadmaps", func(r chi.Router) {
		r.Get("/", handleListRoadmaps(d.History))
		r.Get("/{id}", handleGetRoadmap(d.History))
		r.Get("/{id}/dashboard", handleDashboard(d.History))
	})

	if d.Assets != nil {
		r.Get("/*", spaHandler(d.Assets))
	}
	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type modelEntry struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Priority int    `json:"priority"`
}

func handleModels(models []string) http.HandlerFunc {
	entries := make([]modelEntry, len(models))
	for i, m := range models {
		entries[i] = modelEntry{ID: m, Provider: proxy.ProviderOf(m), Priority: i + 1}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"object": "list", "data": entries})
	}
}

type analyzeResponse struct {
	Success bool            `json:"success"`
	ID      string          `json:"id"`
	Model   string          `json:"model"`
	Data    json.RawMessage `json:"data"`
}

func handleAnalyze(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var in roadmap.ProfileInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				httpError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			httpError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}

		p, err := in.Profile()
		if err != nil {
			httpError(w, advisor.StatusCode(err), advisor.UserMessage(err))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), d.RequestTimeout)
		defer cancel()

		res, err := d.Analyzer.Analyze(ctx, p)
		if err != nil {
			status := advisor.StatusCode(err)
			d.Logger.Error("analyze failed",
				"request_id", middleware.GetReqID(r.Context()),
				"class", advisor.ErrorClass(err),
				"status", status,
				"error", err,
			)
			httpError(w, status, advisor.UserMessage(err))
			return
		}

		writeJSON(w, http.StatusOK, analyzeResponse{
			Success: true,
			ID:      res.ID,
			Model:   res.Model,
			Data:    res.Roadmap,
		})
	}
}

type analysisSummary struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	DesiredJob string    `json:"desired_job"`
	Confidence int       `json:"confidence"`
	Model      string    `json:"model,omitempty"`
	Status     string    `json:"status"`
	ErrorClass string    `json:"error_class,omitempty"`
}

type analysisRecord struct {
	ID          string          `json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	Confidence  int             `json:"confidence"`
	Skills      string          `json:"skills"`
	DesiredJob  string          `json:"desired_job"`
	WeeklyHours float64         `json:"weekly_hours"`
	Model       string          `json:"model,omitempty"`
	Status      string          `json:"status"`
	ErrorClass  string          `json:"error_class,omitempty"`
	Roadmap     json.RawMessage `json:"roadmap,omitempty"`
	Notes       json.RawMessage `json:"notes"`
	Attempts    json.RawMessage `json:"attempts"`
	DurationMs  int64           `json:"duration_ms"`
}

func summarize(a storage.Analysis) analysisSummary {
	return analysisSummary{
		ID:         a.ID,
		CreatedAt:  a.CreatedAt,
		DesiredJob: a.DesiredJob,
		Confidence: a.Confidence,
		Model:      a.Model,
		Status:     a.Status,
		ErrorClass: a.ErrorClass,
	}
}

func recordOf(a storage.Analysis) analysisRecord {
	rec := analysisRecord{
		ID:          a.ID,
		CreatedAt:   a.CreatedAt,
		Confidence:  a.Confidence,
		Skills:      a.Skills,
		DesiredJob:  a.DesiredJob,
		WeeklyHours: a.WeeklyHours,
		Model:       a.Model,
		Status:      a.Status,
		ErrorClass:  a.ErrorClass,
		Notes:       rawOrEmpty(a.Notes),
		Attempts:    rawOrEmpty(a.AttemptsJSON),
		DurationMs:  a.DurationMs,
	}
	if a.RoadmapJSON != "" {
		rec.Roadmap = json.RawMessage(a.RoadmapJSON)
	}
	return rec
}

func rawOrEmpty(s string) json.RawMessage {
	if s == "" || !json.Valid([]byte(s)) {
		return json.RawMessage("[]")
	}
	return json.RawMessage(s)
}

func handleListRoadmaps(h History) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h == nil {
			httpError(w, http.StatusServiceUnavailable, "history is disabled")
			return
		}
		limit, err := queryInt(r, "limit", defaultListLimit)
		if err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		if limit <= 0 || limit > maxListLimit {
			limit = defaultListLimit
		}
		offset, err := queryInt(r, "offset", 0)
		if err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}

		list, err := h.ListAnalyses(r.Context(), limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, fmt.Sprintf("listing roadmaps: %v", err))
			return
		}
		out := make([]analysisSummary, 0, len(list))
		for _, a := range list {
			out = append(out, summarize(a))
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": out})
	}
}

func handleGetRoadmap(h History) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := lookup(w, r, h)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, recordOf(a))
	}
}

func handleDashboard(h History) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := lookup(w, r, h)
		if !ok {
			return
		}
		if a.Status != storage.StatusCompleted {
			httpError(w, http.StatusNotFound, "analysis has no roadmap")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		meta := roadmap.Meta{Model: a.Model, CreatedAt: a.CreatedAt}
		if err := roadmap.Render(w, json.RawMessage(a.RoadmapJSON), meta); err != nil {
			slog.Error("rendering dashboard", "id", a.ID, "error", err)
		}
	}
}

func lookup(w http.ResponseWriter, r *http.Request, h History) (storage.Analysis, bool) {
	if h == nil {
		httpError(w, http.StatusServiceUnavailable, "history is disabled")
		return storage.Analysis{}, false
	}
	id := chi.URLParam(r, "id")
	a, err := h.GetAnalysis(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		httpError(w, http.StatusNotFound, "roadmap not found")
		return storage.Analysis{}, false
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, fmt.Sprintf("loading roadmap: %v", err))
		return storage.Analysis{}, false
	}
	return a, true
}

// spaHandler serves files from assets and falls back to index.html for
// paths that do not name a file.
func spaHandler(assets fs.FS) http.HandlerFunc {
	files := http.FileServerFS(assets)
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if name == "" {
			name = "index.html"
		}
		if info, err := fs.Stat(assets, name); err != nil || info.IsDir() {
			http.ServeFileFS(w, r, assets, "index.html")
			return
		}
		files.ServeHTTP(w, r)
	}
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// httpError writes the {"error": msg} envelope the frontend displays.
func httpError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
