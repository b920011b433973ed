// Package validation provides explicit field validation producing violation
// lists instead of panics or opaque errors.
package validation

import (
	"fmt"
	"strings"
)

// Violation describes a single invalid field in a request payload.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Violations accumulates field violations during request validation.
type Violations []Violation

// Add appends a violation for the given field.
func (v *Violations) Add(field, message string) {
	*v = append(*v, Violation{Field: field, Message: message})
}

// Addf appends a violation with a formatted message.
func (v *Violations) Addf(field, format string, args ...any) {
	v.Add(field, fmt.Sprintf(format, args...))
}

// Empty reports whether no violations were recorded.
func (v Violations) Empty() bool { return len(v) == 0 }

// Err returns an *Error when violations exist, nil otherwise.
func (v Violations) Err() error {
	if len(v) == 0 {
		return nil
	}
	out := make(Violations, len(v))
	copy(out, v)
	return &Error{violations: out}
}

// Error wraps a violation list as a Go error.
type Error struct {
	violations Violations
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil || len(e.violations) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(e.violations))
	for _, violation := range e.violations {
		fields = append(fields, violation.Field)
	}
	return fmt.Sprintf("validation failed: [%s]", strings.Join(fields, ", "))
}

// Violations returns a copy of the recorded violations.
func (e *Error) Violations() Violations {
	if e == nil {
		return nil
	}
	out := make(Violations, len(e.violations))
	copy(out, e.violations)
	return out
}

// RequireNonBlank records a violation when value is empty after trimming.
func RequireNonBlank(v *Violations, field, value string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "must not be blank")
	}
}

// RequirePositive records a violation when value is zero or negative.
func RequirePositive(v *Violations, field string, value int64) {
	if value <= 0 {
		v.Add(field, "must be greater than zero")
	}
}

// RequireNonNegative records a violation when value is negative.
func RequireNonNegative(v *Violations, field string, value int64) {
	if value < 0 {
		v.Add(field, "must not be negative")
	}
}

// RequireMaxLength records a violation when value exceeds max runes.
func RequireMaxLength(v *Violations, field, value string, max int) {
	if len([]rune(value)) > max {
		v.Addf(field, "must be at most %d characters", max)
	}
}
