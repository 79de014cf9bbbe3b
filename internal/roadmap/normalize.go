// Package roadmap builds the roadmap prompt, normalizes model output into a
// JSON object, and renders the result as an HTML dashboard.
package roadmap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is returned when a model response is not a JSON object.
var ErrMalformed = errors.New("malformed model response")

const fence = "```"

// StripFences removes a markdown code-fence wrapper such as "```json ... ```"
// and the whitespace around it. Text without a fence is only trimmed.
func StripFences(s string) string {
	clean := strings.TrimSpace(s)
	if strings.HasPrefix(clean, fence) {
		clean = strings.TrimPrefix(clean, fence)
		// Drop the info string ("json", "JSON", ...) up to the first newline.
		if i := strings.IndexAny(clean, "\r\n"); i >= 0 && !strings.ContainsAny(clean[:i], "{[") {
			clean = clean[i:]
		} else if i < 0 {
			clean = strings.TrimLeft(clean, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
		}
	}
	clean = strings.TrimSpace(clean)
	clean = strings.TrimSuffix(clean, fence)
	return strings.TrimSpace(clean)
}

// Parse strips any code fence from text and strictly decodes the remainder.
// The value must be a single JSON object; anything else wraps ErrMalformed.
// The returned bytes are the model's object, compacted but otherwise untouched.
func Parse(text string) (json.RawMessage, error) {
	clean := StripFences(text)
	if !strings.HasPrefix(clean, "{") {
		return nil, fmt.Errorf("%w: response is not a JSON object", ErrMalformed)
	}

	dec := json.NewDecoder(strings.NewReader(clean))
	var obj map[string]json.RawMessage
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if rest := strings.TrimSpace(clean[dec.InputOffset():]); rest != "" {
		return nil, fmt.Errorf("%w: trailing data after JSON object", ErrMalformed)
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(clean)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return json.RawMessage(buf.Bytes()), nil
}
