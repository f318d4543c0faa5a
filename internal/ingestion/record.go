package ingestion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/resume-refiner/internal/schemas"
	"github.com/jonathan/resume-refiner/internal/session"
	"github.com/jonathan/resume-refiner/internal/types"
	embedded "github.com/jonathan/resume-refiner/schemas"
)

// ParseResume decodes and validates an extracted resume record. Work history
// entries without ids are numbered job_001 (first listed, oldest) upward.
func ParseResume(data []byte) (*types.Resume, error) {
	key := session.RecordKey(session.RoleResume)
	doc, err := decodeObject(key, data)
	if err != nil {
		return nil, err
	}
	ids, err := planJobIDs(key, doc)
	if err != nil {
		return nil, err
	}
	if err := validateSchema(key, embedded.Resume, doc); err != nil {
		return nil, err
	}

	var resume types.Resume
	if err := json.Unmarshal(data, &resume); err != nil {
		return nil, &session.MalformedDataError{Key: key, Message: "cannot decode record", Cause: err}
	}
	for i := range resume.WorkHistory {
		resume.WorkHistory[i].JobID = ids[i]
	}
	if err := resume.Validate(); err != nil {
		return nil, &session.MalformedDataError{Key: key, Message: "missing required fields", Cause: err}
	}
	return &resume, nil
}

// ParseJobDescription decodes and validates an extracted job description record.
func ParseJobDescription(data []byte) (*types.JobDescription, error) {
	key := session.RecordKey(session.RoleJobDescription)
	doc, err := decodeObject(key, data)
	if err != nil {
		return nil, err
	}
	if err := validateSchema(key, embedded.JobDescription, doc); err != nil {
		return nil, err
	}

	var jd types.JobDescription
	if err := json.Unmarshal(data, &jd); err != nil {
		return nil, &session.MalformedDataError{Key: key, Message: "cannot decode record", Cause: err}
	}
	if err := jd.Validate(); err != nil {
		return nil, &session.MalformedDataError{Key: key, Message: "missing required fields", Cause: err}
	}
	return &jd, nil
}

func decodeObject(key string, data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &session.MalformedDataError{Key: key, Message: "invalid JSON", Cause: err}
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, &session.MalformedDataError{Key: key, Message: fmt.Sprintf("expected a JSON object, got %T", v)}
	}
	if err := CheckNoNulls(key, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func validateSchema(key, schemaName string, doc map[string]any) error {
	if err := schemas.ValidateValue(schemaName, doc); err != nil {
		return &session.MalformedDataError{Key: key, Message: "record does not match schema", Cause: err}
	}
	return nil
}

// CheckNoNulls rejects null, empty and "N/A" values anywhere in v. Optional
// data must be omitted instead. The first offending path is reported.
func CheckNoNulls(key string, v any) error {
	if path, what, ok := findPlaceholder("", v); ok {
		if path == "" {
			path = "(root)"
		}
		return &session.MalformedDataError{Key: key, Message: fmt.Sprintf("%s at %s; omit optional fields instead", what, path)}
	}
	return nil
}

func findPlaceholder(path string, v any) (string, string, bool) {
	switch t := v.(type) {
	case nil:
		return path, "null value", true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return path, "empty string", true
		}
		if strings.EqualFold(s, "N/A") {
			return path, `placeholder "N/A"`, true
		}
	case []any:
		if len(t) == 0 {
			return path, "empty list", true
		}
		for i, item := range t {
			if p, what, ok := findPlaceholder(fmt.Sprintf("%s[%d]", path, i), item); ok {
				return p, what, true
			}
		}
	case map[string]any:
		if len(t) == 0 {
			return path, "empty object", true
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			child := k
			if path != "" {
				child = path + "." + k
			}
			if p, what, ok := findPlaceholder(child, t[k]); ok {
				return p, what, true
			}
		}
	}
	return "", "", false
}

// planJobIDs returns the id of every work history entry. Either every entry
// carries an id and they run job_001..job_N in list order, or none does and
// they are assigned that sequence. The ids are also written into doc.
func planJobIDs(key string, doc map[string]any) ([]string, error) {
	raw, ok := doc["work_history"]
	if !ok {
		return nil, nil
	}
	entries, ok := raw.([]any)
	if !ok {
		return nil, &session.MalformedDataError{Key: key, Message: "work_history must be a list"}
	}

	ids := make([]string, len(entries))
	withID := 0
	for i, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			return nil, &session.MalformedDataError{Key: key, Message: fmt.Sprintf("work_history[%d] must be an object", i)}
		}
		if _, has := entry["job_id"]; has {
			withID++
		}
	}
	if withID != 0 && withID != len(entries) {
		return nil, &session.MalformedDataError{Key: key, Message: "job_id must be set on every work history entry or on none"}
	}

	for i, e := range entries {
		entry := e.(map[string]any)
		want := fmt.Sprintf("job_%03d", i+1)
		if withID > 0 {
			got, _ := entry["job_id"].(string)
			if got != want {
				return nil, &session.MalformedDataError{Key: key, Message: fmt.Sprintf("work_history[%d].job_id is %q, want %q (job_001 is the oldest entry)", i, got, want)}
			}
		}
		entry["job_id"] = want
		ids[i] = want
	}
	return ids, nil
}
