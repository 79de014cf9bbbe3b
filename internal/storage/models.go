package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Analysis statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Analysis is one /analyze run and its outcome.
type Analysis struct {
	ID           string
	CreatedAt    time.Time
	Confidence   int
	Skills       string
	DesiredJob   string
	WeeklyHours  float64
	Model        string
	Status       string
	ErrorClass   string
	RawResponse  string
	RoadmapJSON  string // empty unless Status is completed
	Notes        string // JSON array stored as text
	AttemptsJSON string // JSON array stored as text
	DurationMs   int64
}
