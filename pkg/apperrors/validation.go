package apperrors

import (
	"fmt"
	"strings"
)

// Issue describes a single invalid field in a request.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates per-field issues found while validating a
// request. Handlers render it as a 400 with the structured issue list.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Field, issue.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends an issue and returns the receiver for chaining.
func (e *ValidationError) Add(field, message string) *ValidationError {
	e.Issues = append(e.Issues, Issue{Field: field, Message: message})
	return e
}

// HasIssues reports whether any issue was recorded.
func (e *ValidationError) HasIssues() bool {
	return len(e.Issues) > 0
}

// NewValidation creates a ValidationError with a single issue.
func NewValidation(field, message string) *ValidationError {
	return (&ValidationError{}).Add(field, message)
}
