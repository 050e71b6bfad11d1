package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DomainErrorType represents the category of domain error
type DomainErrorType string

const (
	// DomainValidationError indicates input validation failure
	DomainValidationError DomainErrorType = "VALIDATION_ERROR"

	// DomainNotFoundError indicates a referenced resource does not exist
	DomainNotFoundError DomainErrorType = "NOT_FOUND"

	// DomainConflictError indicates a conflict with existing state
	DomainConflictError DomainErrorType = "CONFLICT"

	// DomainInfrastructureError indicates a storage or messaging failure
	DomainInfrastructureError DomainErrorType = "INFRASTRUCTURE_ERROR"

	// DomainTimeoutError indicates a cancelled or expired operation
	DomainTimeoutError DomainErrorType = "TIMEOUT_ERROR"
)

// DomainError represents a domain-specific error with rich context
type DomainError struct {
	Type       DomainErrorType        `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
}

// NewDomainError creates a new domain error
func NewDomainError(errorType DomainErrorType, code string, message string) *DomainError {
	return &DomainError{
		Type:       errorType,
		Code:       code,
		Message:    message,
		Details:    make(map[string]interface{}),
		Retryable:  false,
		StatusCode: domainErrorTypeToStatusCode(errorType),
	}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s:%s] %s", e.Type, e.Code, e.Message)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, e.Details[k])
		}
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// New returns a fresh copy of the error so that details and causes can be
// attached without touching the shared sentinel.
func (e *DomainError) New() *DomainError {
	cp := *e
	cp.Details = make(map[string]interface{}, len(e.Details))
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	return &cp
}

// WithCause adds a cause to the error
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	e.Details[key] = value
	return e
}

// WithRetryable sets whether the error is retryable
func (e *DomainError) WithRetryable(retryable bool) *DomainError {
	e.Retryable = retryable
	return e
}

// Is checks if the error is of a specific type
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// Unwrap returns the underlying cause
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// domainErrorTypeToStatusCode maps error types to the status a request layer
// should surface.
func domainErrorTypeToStatusCode(errorType DomainErrorType) int {
	switch errorType {
	case DomainValidationError:
		return 400
	case DomainNotFoundError:
		return 404
	case DomainConflictError:
		return 409
	case DomainTimeoutError:
		return 504
	default:
		return 500
	}
}

// Pre-defined errors. Use New() before attaching details.
var (
	// Schema registry
	ErrDuplicateClass = NewDomainError(
		DomainConflictError,
		"DUPLICATE_CLASS",
		"A class with this name is already registered",
	)

	ErrUnknownParentClass = NewDomainError(
		DomainValidationError,
		"UNKNOWN_PARENT_CLASS",
		"The parent class is not registered",
	)

	// Predicate construction
	ErrInvalidOperator = NewDomainError(
		DomainValidationError,
		"INVALID_OPERATOR",
		"Unsupported attribute filter operator",
	)

	ErrInvalidLogicOperator = NewDomainError(
		DomainValidationError,
		"INVALID_LOGIC_OPERATOR",
		"Filter expression operator must be AND or OR",
	)

	// Graph store
	ErrUnknownClass = NewDomainError(
		DomainValidationError,
		"UNKNOWN_CLASS",
		"The node class is not registered",
	)

	ErrUnknownSourceNode = NewDomainError(
		DomainNotFoundError,
		"UNKNOWN_SOURCE_NODE",
		"The edge source node does not exist",
	)

	ErrUnknownTargetNode = NewDomainError(
		DomainNotFoundError,
		"UNKNOWN_TARGET_NODE",
		"The edge target node does not exist",
	)

	ErrDuplicateNode = NewDomainError(
		DomainConflictError,
		"DUPLICATE_NODE",
		"A node with this id already exists",
	)

	ErrDuplicateEdge = NewDomainError(
		DomainConflictError,
		"DUPLICATE_EDGE",
		"An edge with this id already exists",
	)

	ErrInvalidDirection = NewDomainError(
		DomainValidationError,
		"INVALID_DIRECTION",
		"Direction must be one of out, in, both",
	)

	// Infrastructure
	ErrStorageFailure = NewDomainError(
		DomainInfrastructureError,
		"STORAGE_FAILURE",
		"Failed to read or write a durable record",
	).WithRetryable(true)

	ErrOperationCancelled = NewDomainError(
		DomainTimeoutError,
		"OPERATION_CANCELLED",
		"The operation was cancelled before it completed",
	)
)

// NewStorageError wraps a backend failure for the given operation.
func NewStorageError(operation string, cause error) *DomainError {
	return ErrStorageFailure.New().
		WithDetail("operation", operation).
		WithCause(cause)
}

// NewCancelledError wraps a context error raised during a long-running read.
func NewCancelledError(operation string, cause error) *DomainError {
	return ErrOperationCancelled.New().
		WithDetail("operation", operation).
		WithCause(cause)
}

// IsNotFound reports whether err is a not-found domain error
func IsNotFound(err error) bool {
	return hasType(err, DomainNotFoundError)
}

// IsValidation reports whether err is a validation domain error
func IsValidation(err error) bool {
	return hasType(err, DomainValidationError)
}

// IsConflict reports whether err is a conflict domain error
func IsConflict(err error) bool {
	return hasType(err, DomainConflictError)
}

// GetStatusCode returns the status code carried by a domain error, or 500.
func GetStatusCode(err error) int {
	var de *DomainError
	if errors.As(err, &de) {
		return de.StatusCode
	}
	return 500
}

func hasType(err error, t DomainErrorType) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type == t
	}
	return false
}

// ValidationErrors aggregates multiple validation errors
type ValidationErrors struct {
	Errors []*DomainError `json:"errors"`
}

// NewValidationErrors creates a new validation errors collection
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make([]*DomainError, 0),
	}
}

// Add adds a validation error
func (v *ValidationErrors) Add(field string, message string) {
	err := NewDomainError(DomainValidationError, "FIELD_VALIDATION_ERROR", message).
		WithDetail("field", field)
	v.Errors = append(v.Errors, err)
}

// HasErrors returns true if there are validation errors
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// ErrorOrNil returns the collection as an error when it is non-empty.
func (v *ValidationErrors) ErrorOrNil() error {
	if !v.HasErrors() {
		return nil
	}
	return v
}

// Error implements the error interface
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}

	messages := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		messages[i] = err.Message
	}
	return fmt.Sprintf("Validation failed: %s", strings.Join(messages, "; "))
}
