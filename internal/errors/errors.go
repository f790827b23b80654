// Package errors provides centralized error handling with category and
// component metadata for structured logging and HTTP status mapping.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCategory represents the type of error for better categorization
type ErrorCategory string

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryDatabase      ErrorCategory = "database"
	CategoryNotFound      ErrorCategory = "not-found"
	CategoryConflict      ErrorCategory = "conflict"
	CategoryHTTP          ErrorCategory = "http-request"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryFileIO        ErrorCategory = "file-io"
	CategoryExport        ErrorCategory = "export"
	CategoryAuth          ErrorCategory = "authentication"
	CategoryGeneric       ErrorCategory = "generic"
)

// Sentinel errors for store lookups. Callers match these with errors.Is
// to translate datastore failures into HTTP status codes.
var (
	ErrNotFound = stderrors.New("record not found")
	ErrConflict = stderrors.New("record conflicts with existing data")
)

// EnhancedError wraps an error with category, component and context metadata.
type EnhancedError struct {
	Err       error
	Component string
	Category  ErrorCategory
	Context   map[string]any
	Timestamp time.Time
}

func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

func (ee *EnhancedError) Is(target error) bool {
	return stderrors.Is(ee.Err, target)
}

// GetCategory returns the error category as a string for logging.
func (ee *EnhancedError) GetCategory() string {
	return string(ee.Category)
}

// GetContext returns a copy of the context map to prevent mutation.
func (ee *EnhancedError) GetContext() map[string]any {
	if ee.Context == nil {
		return nil
	}
	cp := make(map[string]any, len(ee.Context))
	for k, v := range ee.Context {
		cp[k] = v
	}
	return cp
}

// ErrorBuilder provides a fluent interface for building enhanced errors
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New creates a new error builder from an existing error
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err, category: CategoryGeneric}
}

// Newf creates a new error builder with a formatted message
func Newf(format string, args ...any) *ErrorBuilder {
	return &ErrorBuilder{err: fmt.Errorf(format, args...), category: CategoryGeneric}
}

// Component sets the component where the error occurred
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category sets the error category
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Context adds a key-value pair to the error context
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// Build creates the final EnhancedError
func (eb *ErrorBuilder) Build() *EnhancedError {
	return &EnhancedError{
		Err:       eb.err,
		Component: eb.component,
		Category:  eb.category,
		Context:   eb.context,
		Timestamp: time.Now(),
	}
}

// ValidationError creates a validation error with the given message.
func ValidationError(format string, args ...any) *EnhancedError {
	return Newf(format, args...).Category(CategoryValidation).Build()
}

// NotFoundError wraps ErrNotFound with resource identification context.
func NotFoundError(resource, id string) *EnhancedError {
	return New(fmt.Errorf("%s %q: %w", resource, id, ErrNotFound)).
		Category(CategoryNotFound).
		Context("resource", resource).
		Context("id", id).
		Build()
}

// ConflictError wraps ErrConflict for duplicate-value violations detected
// before the write reaches the database.
func ConflictError(resource, field, value string) *EnhancedError {
	return New(fmt.Errorf("%s with %s %q already exists: %w", resource, field, value, ErrConflict)).
		Category(CategoryConflict).
		Context("resource", resource).
		Context("field", field).
		Build()
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
