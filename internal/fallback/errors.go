package fallback

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kalambet/skillbridge/internal/proxy"
)

var (
	// ErrAllModelsUnavailable is matched by the error returned once every
	// candidate has been tried without success.
	ErrAllModelsUnavailable = errors.New("all models unavailable")

	// ErrUpstreamAuth is matched when a provider rejected the API key.
	ErrUpstreamAuth = errors.New("upstream authentication failed")

	// ErrUpstreamBilling is matched when a provider refused for lack of credits.
	ErrUpstreamBilling = errors.New("upstream billing failed")
)

// Outcome classifies a single attempt.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeAuth        Outcome = "auth"
	OutcomeBilling     Outcome = "billing"
	OutcomeFailed      Outcome = "failed"
	OutcomeSkipped     Outcome = "skipped"
)

var unavailableSignals = []string{"no endpoints", "not found", "unavailable"}

// Classify maps an upstream error to the loop's decision class.
// Credential failures are checked before the body signals because
// OpenRouter answers a bad key with 401 "User not found."
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}

	var apiErr *proxy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			return OutcomeAuth
		case http.StatusPaymentRequired:
			return OutcomeBilling
		case http.StatusBadRequest, http.StatusNotFound:
			return OutcomeUnavailable
		case http.StatusTooManyRequests:
			return OutcomeRateLimited
		}
		if mentionsUnavailable(apiErr.Message) {
			return OutcomeUnavailable
		}
		return OutcomeFailed
	}

	if mentionsUnavailable(err.Error()) {
		return OutcomeUnavailable
	}
	return OutcomeFailed
}

func mentionsUnavailable(s string) bool {
	s = strings.ToLower(s)
	for _, sig := range unavailableSignals {
		if strings.Contains(s, sig) {
			return true
		}
	}
	return false
}

func statusOf(err error) int {
	var apiErr *proxy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// ExhaustedError is returned when no candidate produced a completion.
// It always matches ErrAllModelsUnavailable, and additionally
// ErrUpstreamAuth or ErrUpstreamBilling when a provider rejected the
// credentials along the way.
type ExhaustedError struct {
	Attempts []Attempt
	// Credential is ErrUpstreamAuth, ErrUpstreamBilling, or nil.
	Credential error
}

func (e *ExhaustedError) Error() string {
	msg := fmt.Sprintf("%v after %d attempts", ErrAllModelsUnavailable, e.Calls())
	if e.Credential != nil {
		msg += ": " + e.Credential.Error()
	}
	return msg
}

// Calls counts the upstream calls made, excluding skipped candidates.
func (e *ExhaustedError) Calls() int {
	n := 0
	for _, a := range e.Attempts {
		if a.Attempt > 0 {
			n++
		}
	}
	return n
}

func (e *ExhaustedError) Unwrap() []error {
	if e.Credential != nil {
		return []error{e.Credential, ErrAllModelsUnavailable}
	}
	return []error{ErrAllModelsUnavailable}
}
