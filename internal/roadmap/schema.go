package roadmap

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed templates/roadmap.schema.json
var schemaJSON []byte

const schemaURL = "schema://skillbridge/roadmap.json"

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("parse roadmap schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	return c.Compile(schemaURL)
})

// Check compares raw with the expected roadmap shape and returns one note
// per deviation. It never rejects: a nil result means the roadmap matched.
func Check(raw json.RawMessage) []string {
	sch, err := compileSchema()
	if err != nil {
		return []string{err.Error()}
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return []string{fmt.Sprintf("invalid JSON: %v", err)}
	}

	err = sch.Validate(doc)
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return []string{err.Error()}
	}
	return notes(verr.Error())
}

// notes flattens the library's indented error tree into its leaf lines.
func notes(msg string) []string {
	var out []string
	for _, line := range strings.Split(msg, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "- ") {
			continue
		}
		line = strings.TrimPrefix(line, "- ")
		if strings.Contains(line, "validation failed") {
			continue
		}
		out = append(out, line)
	}
	if len(out) == 0 {
		out = append(out, strings.TrimSpace(msg))
	}
	return out
}
