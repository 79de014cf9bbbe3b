package roadmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMissingFields is returned when any of the four profile fields is empty.
var ErrMissingFields = errors.New("All fields are required.")

const maxWeeklyHours = 168

// Profile is a validated self-reported skill profile.
type Profile struct {
	Confidence  int     `json:"confidence"`
	Skills      string  `json:"skills"`
	DesiredJob  string  `json:"desiredJob"`
	WeeklyHours float64 `json:"weeklyHours"`
}

// ProfileInput is the wire form posted by the browser. Numeric fields accept
// both JSON numbers and numeric strings, since form values arrive as text.
type ProfileInput struct {
	Confidence  json.Number `json:"confidence"`
	Skills      string      `json:"skills"`
	DesiredJob  string      `json:"desiredJob"`
	WeeklyHours json.Number `json:"weeklyHours"`
}

// ValidationError describes a profile field that is present but out of range.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Profile validates the input and returns the normalized profile.
func (in ProfileInput) Profile() (Profile, error) {
	skills := strings.TrimSpace(in.Skills)
	job := strings.TrimSpace(in.DesiredJob)
	if in.Confidence == "" || skills == "" || job == "" || in.WeeklyHours == "" {
		return Profile{}, ErrMissingFields
	}

	conf, err := strconv.ParseFloat(string(in.Confidence), 64)
	if err != nil {
		return Profile{}, &ValidationError{Field: "confidence", Reason: "must be a number"}
	}
	if conf != math.Trunc(conf) || conf < 1 || conf > 10 {
		return Profile{}, &ValidationError{Field: "confidence", Reason: "must be a whole number between 1 and 10"}
	}

	hours, err := strconv.ParseFloat(string(in.WeeklyHours), 64)
	if err != nil {
		return Profile{}, &ValidationError{Field: "weeklyHours", Reason: "must be a number"}
	}
	// Zero counts as missing, the same as an empty form field.
	if hours == 0 {
		return Profile{}, ErrMissingFields
	}
	if hours < 0 || hours > maxWeeklyHours {
		return Profile{}, &ValidationError{Field: "weeklyHours", Reason: fmt.Sprintf("must be between 0 and %d", maxWeeklyHours)}
	}

	return Profile{
		Confidence:  int(conf),
		Skills:      skills,
		DesiredJob:  job,
		WeeklyHours: hours,
	}, nil
}

// HoursLabel formats weekly hours without a trailing ".0".
func (p Profile) HoursLabel() string {
	return strconv.FormatFloat(p.WeeklyHours, 'f', -1, 64)
}
