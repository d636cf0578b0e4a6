package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes shared by every layer. They are stable and appear in API responses.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeExtraction       = "EXTRACTION_ERROR"
	CodeSchemaValidation = "SCHEMA_VALIDATION_ERROR"
	CodePersistence      = "PERSISTENCE_ERROR"
	CodeConflict         = "CONFLICT"
	CodeStateConflict    = "STATE_CONFLICT"
	CodeNotFound         = "NOT_FOUND"
	CodeInternal         = "INTERNAL"
	CodeDependency       = "DEPENDENCY_ERROR"
)

type codeMeta struct {
	status        int
	publicMessage string
}

var codeTable = map[string]codeMeta{
	CodeValidation:       {http.StatusBadRequest, "request failed validation"},
	CodeExtraction:       {http.StatusUnprocessableEntity, "document could not be read"},
	CodeSchemaValidation: {http.StatusBadGateway, "generated output did not match the expected schema"},
	CodePersistence:      {http.StatusInternalServerError, "storage failure"},
	CodeConflict:         {http.StatusConflict, "resource already exists"},
	CodeStateConflict:    {http.StatusConflict, "resource is not in a state that allows this action"},
	CodeNotFound:         {http.StatusNotFound, "resource not found"},
	CodeInternal:         {http.StatusInternalServerError, "internal error"},
	CodeDependency:       {http.StatusBadGateway, "upstream dependency failed"},
}

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the status code registered for the error's code.
func (e *AppError) HTTPStatus() int {
	if meta, ok := codeTable[e.Code]; ok {
		return meta.status
	}
	return http.StatusInternalServerError
}

// PublicMessage is safe to return to API clients.
func (e *AppError) PublicMessage() string {
	if e.Code == CodeValidation || e.Code == CodeStateConflict || e.Code == CodeNotFound {
		return e.Message
	}
	if meta, ok := codeTable[e.Code]; ok {
		return meta.publicMessage
	}
	return codeTable[CodeInternal].publicMessage
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func NewValidationError(message string, cause error) *AppError {
	return NewAppError(CodeValidation, message, cause)
}

func NewExtractionError(message string, cause error) *AppError {
	return NewAppError(CodeExtraction, message, cause)
}

func NewSchemaValidationError(message string, cause error) *AppError {
	return NewAppError(CodeSchemaValidation, message, cause)
}

func NewPersistenceError(message string, cause error) *AppError {
	return NewAppError(CodePersistence, message, cause)
}

func NewConflictError(message string, cause error) *AppError {
	if cause == nil {
		cause = ErrConflict
	}
	return NewAppError(CodeConflict, message, cause)
}

func NewStateConflictError(message string) *AppError {
	return NewAppError(CodeStateConflict, message, nil)
}

func NewNotFoundError(message string) *AppError {
	return NewAppError(CodeNotFound, message, ErrNotFound)
}

func NewInternalError(message string, cause error) *AppError {
	return NewAppError(CodeInternal, message, cause)
}

func NewDependencyError(message string, cause error) *AppError {
	return NewAppError(CodeDependency, message, cause)
}

// AsAppError finds the first *AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the outermost AppError, or INTERNAL.
func CodeOf(err error) string {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries an AppError with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// HTTPStatus maps any error to a response status.
func HTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}
