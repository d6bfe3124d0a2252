package task

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidEnvelope is returned when a request body does not decode into
// the expected envelope.
var ErrInvalidEnvelope = errors.New("invalid envelope")

// DecodeNewTask parses a creation body. The description field is required.
// Field names are matched exactly, unknown fields are ignored and a repeated
// description is rejected.
func DecodeNewTask(data []byte) (NewTask, error) {
	fields, err := decodeObject(data, "description")
	if err != nil {
		return NewTask{}, err
	}
	raw, ok := fields["description"]
	if !ok || isNull(raw) {
		return NewTask{}, fmt.Errorf("%w: missing field description", ErrInvalidEnvelope)
	}
	var nt NewTask
	if err := json.Unmarshal(raw, &nt.Description); err != nil {
		return NewTask{}, fmt.Errorf("%w: description: %v", ErrInvalidEnvelope, err)
	}
	return nt, nil
}

// DecodeUpdateTask parses an update body. Absent or null fields stay nil.
// Either field appearing twice is rejected.
func DecodeUpdateTask(data []byte) (UpdateTask, error) {
	fields, err := decodeObject(data, "description", "completed")
	if err != nil {
		return UpdateTask{}, err
	}
	var u UpdateTask
	if raw, ok := fields["description"]; ok && !isNull(raw) {
		var d string
		if err := json.Unmarshal(raw, &d); err != nil {
			return UpdateTask{}, fmt.Errorf("%w: description: %v", ErrInvalidEnvelope, err)
		}
		u.Description = &d
	}
	if raw, ok := fields["completed"]; ok && !isNull(raw) {
		var c bool
		if err := json.Unmarshal(raw, &c); err != nil {
			return UpdateTask{}, fmt.Errorf("%w: completed: %v", ErrInvalidEnvelope, err)
		}
		u.Completed = &c
	}
	return u, nil
}

// decodeObject unmarshals a JSON object into its raw fields. Any of known
// that occurs more than once at the top level is an error; other repeated
// keys are left to last-wins since they are ignored anyway.
func decodeObject(data []byte, known ...string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: expected object", ErrInvalidEnvelope)
	}
	if err := checkDuplicateKeys(data, known); err != nil {
		return nil, err
	}
	return fields, nil
}

// checkDuplicateKeys walks the top-level keys of an object already known to
// be valid JSON.
func checkDuplicateKeys(data []byte, known []string) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	seen := make(map[string]bool, len(known))
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
		}
		key, _ := tok.(string)
		if slices.Contains(known, key) {
			if seen[key] {
				return fmt.Errorf("%w: duplicate field %s", ErrInvalidEnvelope, key)
			}
			seen[key] = true
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
		}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
