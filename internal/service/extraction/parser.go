// Package extraction turns the model's free-form extraction answer into a
// candidate record.
package extraction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ai-interview-relay-service/internal/models"
)

var (
	// ErrNoJSONObject is returned when the text has no {...} pair.
	ErrNoJSONObject = errors.New("no JSON object in extraction response")
	// ErrDecode is returned when the {...} substring is not a valid JSON object.
	ErrDecode = errors.New("failed to decode extraction JSON")
)

// Parse decodes the substring between the first '{' and the last '}' of text.
// Missing or null keys stay nil. Numbers and booleans are kept as their JSON
// text. On failure it returns an empty record alongside the error.
func Parse(text string) (models.CandidateRecord, error) {
	var rec models.CandidateRecord

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return rec, ErrNoJSONObject
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text[start:end+1]), &fields); err != nil {
		return models.CandidateRecord{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	targets := map[string]**string{
		"full_name":         &rec.FullName,
		"email":             &rec.Email,
		"role":              &rec.Role,
		"last_company_name": &rec.LastCompanyName,
		"experience":        &rec.Experience,
		"previous_salary":   &rec.PreviousSalary,
		"expected_salary":   &rec.ExpectedSalary,
	}
	for key, dst := range targets {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		v, err := scalar(raw)
		if err != nil {
			return models.CandidateRecord{}, fmt.Errorf("%w: %s: %v", ErrDecode, key, err)
		}
		*dst = v
	}
	return rec, nil
}

func scalar(raw json.RawMessage) (*string, error) {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		return nil, nil
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return &s, nil
	case raw[0] == '{' || raw[0] == '[':
		return nil, errors.New("expected a string")
	default:
		s := string(raw)
		return &s, nil
	}
}
