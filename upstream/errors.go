package upstream

import (
	"encoding/json"
	"fmt"
)

// StatusError is returned for non-2xx upstream responses that are not
// mapped to a more specific error.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.Status)
}

// RegistrationError carries the field errors the upstream returns for a
// rejected user registration, e.g. {"email": ["user with this email
// already exists."]}.
type RegistrationError struct {
	Status int
	Fields map[string][]string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("registration rejected with status %d", e.Status)
}

// Field returns the first upstream message for the named field, or "".
func (e *RegistrationError) Field(name string) string {
	if msgs := e.Fields[name]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// parseRegistrationError decodes an upstream registration failure body.
// Bodies that are not a field-error object fall back to a plain
// StatusError.
func parseRegistrationError(status int, body []byte) error {
	var fields map[string][]string
	if err := json.Unmarshal(body, &fields); err != nil || len(fields) == 0 {
		return &StatusError{Status: status, Body: body}
	}
	return &RegistrationError{Status: status, Fields: fields}
}
