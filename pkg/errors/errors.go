package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryFile           ErrorCategory = "file"
	CategoryParse          ErrorCategory = "parse"
	CategoryNormalize      ErrorCategory = "normalize"
	CategoryReconciliation ErrorCategory = "reconciliation"
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryInternal       ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"
	CodeFileCorrupted  ErrorCode = "file_corrupted"

	// Parse errors (structural, fatal to the run)
	CodeInvalidFormat ErrorCode = "invalid_format"
	CodeMissingColumn ErrorCode = "missing_column"
	CodeEmptyTable    ErrorCode = "empty_table"

	// Normalize errors (row-level, recovered)
	CodeMalformedKey      ErrorCode = "malformed_key"
	CodeUnparseableAmount ErrorCode = "unparseable_amount"
	CodeDivisionByZero    ErrorCode = "division_by_zero"

	// Reconciliation errors
	CodeDuplicateKeyCollision ErrorCode = "duplicate_key_collision"
	CodeProcessingError       ErrorCode = "processing_error"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// ReconcilerError is the base error type for all application errors
type ReconcilerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *ReconcilerError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *ReconcilerError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *ReconcilerError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryNormalize:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryReconciliation, CategoryInternal:
		return 5
	default:
		return 1
	}
}

// IsRowLevel reports whether the error describes a single bad row.
// Row-level errors are recovered locally by excluding the row; they
// never abort a reconciliation run.
func (e *ReconcilerError) IsRowLevel() bool {
	switch e.Code {
	case CodeMalformedKey, CodeUnparseableAmount, CodeDivisionByZero:
		return true
	default:
		return false
	}
}

// WithContext adds context information to the error
func (e *ReconcilerError) WithContext(key string, value interface{}) *ReconcilerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *ReconcilerError) WithSuggestion(suggestion string) *ReconcilerError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ReconcilerError
func New(category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ReconcilerError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Specific error constructors

// FileError creates a file-related error
func FileError(code ErrorCode, path string, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	case CodeFileCorrupted:
		message = fmt.Sprintf("file appears to be corrupted: %s", path)
		suggestion = "verify the file integrity and try using a fresh export"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryFile, code, message)
	} else {
		result = New(CategoryFile, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// ParseError creates a structural parsing error. Structural problems
// (missing columns, empty tables, unreadable formats) are fatal to the
// whole run, unlike row-level normalize errors.
func ParseError(code ErrorCode, source string, detail string, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeMissingColumn:
		message = fmt.Sprintf("%s table is missing expected column %s", source, detail)
		suggestion = "verify the export uses the fixed column layout for this source"
	case CodeEmptyTable:
		message = fmt.Sprintf("%s table contains no data rows", source)
		suggestion = "check that the file is the right export and is not empty"
	case CodeInvalidFormat:
		message = fmt.Sprintf("%s table has an invalid format: %s", source, detail)
		suggestion = "check the file format; CSV and legacy XLS exports are supported"
	default:
		message = fmt.Sprintf("parse error in %s table: %s", source, detail)
		suggestion = "check the file format and data integrity"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryParse, code, message)
	} else {
		result = New(CategoryParse, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("source", source).
		WithContext("detail", detail)
}

// NormalizeError creates a row-level normalization error. Callers
// recover these by excluding the row and counting it in the skip
// summary.
func NormalizeError(code ErrorCode, source string, row int, value string, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeMalformedKey:
		message = fmt.Sprintf("%s row %d does not end in an 11-digit partner pin: '%s'", source, row, value)
		suggestion = "rows without a valid trailing 11-digit pin are reported as unkeyed"
	case CodeUnparseableAmount:
		message = fmt.Sprintf("%s row %d has an unparseable amount: '%s'", source, row, value)
		suggestion = "amounts must be decimal numbers; currency symbols and thousands separators are tolerated"
	case CodeDivisionByZero:
		message = fmt.Sprintf("%s row %d has a zero API rate; USD amount cannot be derived", source, row)
		suggestion = "the row keeps its pin for presence matching with the amount marked absent"
	default:
		message = fmt.Sprintf("%s row %d could not be normalized: '%s'", source, row, value)
		suggestion = "check the row data against the fixed column layout"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryNormalize, code, message)
	} else {
		result = New(CategoryNormalize, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("source", source).
		WithContext("row", row).
		WithContext("value", value)
}

// ReconciliationError creates a matching-stage error
func ReconciliationError(code ErrorCode, operation string, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeDuplicateKeyCollision:
		message = fmt.Sprintf("duplicate eligible records collided on one pin during %s", operation)
		suggestion = "colliding amounts are folded by summing; review upstream duplicate tagging"
	case CodeProcessingError:
		message = fmt.Sprintf("processing error during %s", operation)
		suggestion = "review the data and configuration"
	default:
		message = fmt.Sprintf("reconciliation error during %s", operation)
		suggestion = "review the data and configuration"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryReconciliation, code, message)
	} else {
		result = New(CategoryReconciliation, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this configuration setting or use a config file"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// InternalError creates an internal error
func InternalError(code ErrorCode, operation string, err error) *ReconcilerError {
	message := fmt.Sprintf("internal error during %s", operation)
	suggestion := "this is likely a bug - please report it with the error details"

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryInternal, code, message)
	} else {
		result = New(CategoryInternal, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// Utility functions

// IsReconcilerError checks if an error is a ReconcilerError
func IsReconcilerError(err error) bool {
	_, ok := err.(*ReconcilerError)
	return ok
}

// AsReconcilerError extracts a ReconcilerError from an error chain
func AsReconcilerError(err error) (*ReconcilerError, bool) {
	var reconcilerErr *ReconcilerError
	if errors.As(err, &reconcilerErr) {
		return reconcilerErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps an error if it's not already a ReconcilerError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr
	}

	return Wrap(err, category, code, message)
}
