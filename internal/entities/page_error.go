package entities

import (
	"fmt"
	"strings"
)

// PageErrorCode is the machine-readable kind of a PageError
type PageErrorCode string

const (
	PageErrorCodeGraphQLError             PageErrorCode = "GRAPHQL_ERROR"
	PageErrorCodeInvalid                  PageErrorCode = "INVALID"
	PageErrorCodeNotFound                 PageErrorCode = "NOT_FOUND"
	PageErrorCodeRequired                 PageErrorCode = "REQUIRED"
	PageErrorCodeUnique                   PageErrorCode = "UNIQUE"
	PageErrorCodeDuplicatedInputItem      PageErrorCode = "DUPLICATED_INPUT_ITEM"
	PageErrorCodeAttributeAlreadyAssigned PageErrorCode = "ATTRIBUTE_ALREADY_ASSIGNED"
)

// PageError is a single problem found while handling a page mutation.
// Attributes lists the global IDs of the offending attributes, if any.
type PageError struct {
	Field      string
	Message    string
	Code       PageErrorCode
	Attributes []string
}

// String returns a string representation of the error
// Format: field: message (CODE)
func (e *PageError) String() string {
	if e.Field == "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Field, e.Message, e.Code)
}

// ValidationErrors is an ordered report of PageErrors.
// An empty report means the input is valid.
type ValidationErrors []*PageError

// NewValidationError returns a report holding a single error
func NewValidationError(field, message string, code PageErrorCode, attributes ...string) ValidationErrors {
	return ValidationErrors{{
		Field:      field,
		Message:    message,
		Code:       code,
		Attributes: attributes,
	}}
}

// Add appends an error to the report
func (v *ValidationErrors) Add(field, message string, code PageErrorCode, attributes ...string) {
	*v = append(*v, &PageError{
		Field:      field,
		Message:    message,
		Code:       code,
		Attributes: attributes,
	})
}

// Empty reports whether the report holds no errors
func (v ValidationErrors) Empty() bool {
	return len(v) == 0
}

// Field returns the errors recorded for the given field
func (v ValidationErrors) Field(name string) []*PageError {
	var out []*PageError
	for _, e := range v {
		if e.Field == name {
			out = append(out, e)
		}
	}
	return out
}

// Codes returns the codes of all errors in report order
func (v ValidationErrors) Codes() []PageErrorCode {
	codes := make([]PageErrorCode, 0, len(v))
	for _, e := range v {
		codes = append(codes, e.Code)
	}
	return codes
}

// Error implements the error interface
func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, "; ")
}
