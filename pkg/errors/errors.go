package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the base interface for all application errors
type AppError interface {
	error
	HTTPStatus() int
	Code() string
}

// NotFoundError represents a resource that was not found
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s '%s' not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) HTTPStatus() int {
	return http.StatusNotFound
}

func (e *NotFoundError) Code() string {
	return "NOT_FOUND"
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents rejected user input. Field is optional.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) HTTPStatus() int {
	return http.StatusBadRequest
}

func (e *ValidationError) Code() string {
	return "VALIDATION_ERROR"
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IndexError is returned when a clause position is outside the list
type IndexError struct {
	Index  int
	Length int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("clause index %d out of range [0,%d)", e.Index, e.Length)
}

func (e *IndexError) HTTPStatus() int {
	return http.StatusBadRequest
}

func (e *IndexError) Code() string {
	return "INDEX_OUT_OF_RANGE"
}

// NewIndexError creates a new IndexError
func NewIndexError(index, length int) *IndexError {
	return &IndexError{Index: index, Length: length}
}

// ProtectedClauseError rejects deletion of a required clause
type ProtectedClauseError struct {
	Title string
}

func (e *ProtectedClauseError) Error() string {
	return fmt.Sprintf("clause '%s' is required and cannot be deleted", e.Title)
}

func (e *ProtectedClauseError) HTTPStatus() int {
	return http.StatusConflict
}

func (e *ProtectedClauseError) Code() string {
	return "PROTECTED_CLAUSE"
}

// NewProtectedClauseError creates a new ProtectedClauseError
func NewProtectedClauseError(title string) *ProtectedClauseError {
	return &ProtectedClauseError{Title: title}
}

// ImportFormatError describes an import file that cannot be accepted
type ImportFormatError struct {
	Reason string
	Cause  error
}

func (e *ImportFormatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("import failed: %s (%v)", e.Reason, e.Cause)
	}
	return fmt.Sprintf("import failed: %s", e.Reason)
}

func (e *ImportFormatError) HTTPStatus() int {
	return http.StatusBadRequest
}

func (e *ImportFormatError) Code() string {
	return "IMPORT_FORMAT_ERROR"
}

func (e *ImportFormatError) Unwrap() error {
	return e.Cause
}

// NewImportFormatError creates a new ImportFormatError
func NewImportFormatError(reason string, cause error) *ImportFormatError {
	return &ImportFormatError{Reason: reason, Cause: cause}
}

// CalculationError reports a {{calc:}} expression that could not be evaluated.
// It is logged by the text processor and never returned to API callers.
type CalculationError struct {
	Expression string
	Reason     string
}

func (e *CalculationError) Error() string {
	return fmt.Sprintf("calculation failed for '%s': %s", e.Expression, e.Reason)
}

func (e *CalculationError) HTTPStatus() int {
	return http.StatusUnprocessableEntity
}

func (e *CalculationError) Code() string {
	return "CALCULATION_ERROR"
}

// NewCalculationError creates a new CalculationError
func NewCalculationError(expression, reason string) *CalculationError {
	return &CalculationError{Expression: expression, Reason: reason}
}

// ConflictError represents a conflict with existing data
type ConflictError struct {
	Resource string
	Field    string
	Value    string
}

func (e *ConflictError) Error() string {
	if e.Field != "" && e.Value != "" {
		return fmt.Sprintf("%s already exists with %s='%s'", e.Resource, e.Field, e.Value)
	}
	return fmt.Sprintf("%s already exists", e.Resource)
}

func (e *ConflictError) HTTPStatus() int {
	return http.StatusConflict
}

func (e *ConflictError) Code() string {
	return "CONFLICT"
}

// NewConflictError creates a new ConflictError
func NewConflictError(resource, field, value string) *ConflictError {
	return &ConflictError{Resource: resource, Field: field, Value: value}
}

// InternalError represents unexpected server errors
type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("internal error: %s (caused by: %v)", e.Message, e.Cause)
	}
	return fmt.Sprintf("internal error: %s", e.Message)
}

func (e *InternalError) HTTPStatus() int {
	return http.StatusInternalServerError
}

func (e *InternalError) Code() string {
	return "INTERNAL_ERROR"
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

// NewInternalError creates a new InternalError
func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{Message: message, Cause: cause}
}

// Helper functions for error checking

// IsNotFound checks if an error is a NotFoundError
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// IsValidation checks if an error is a ValidationError
func IsValidation(err error) bool {
	var validation *ValidationError
	return errors.As(err, &validation)
}

// IsIndex checks if an error is an IndexError
func IsIndex(err error) bool {
	var indexErr *IndexError
	return errors.As(err, &indexErr)
}

// IsProtected checks if an error is a ProtectedClauseError
func IsProtected(err error) bool {
	var protected *ProtectedClauseError
	return errors.As(err, &protected)
}

// IsImportFormat checks if an error is an ImportFormatError
func IsImportFormat(err error) bool {
	var importErr *ImportFormatError
	return errors.As(err, &importErr)
}

// IsCalculation checks if an error is a CalculationError
func IsCalculation(err error) bool {
	var calcErr *CalculationError
	return errors.As(err, &calcErr)
}

// IsConflict checks if an error is a ConflictError
func IsConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict)
}

// GetHTTPStatus returns the HTTP status code for an error
// Returns 500 if the error doesn't implement AppError
func GetHTTPStatus(err error) int {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// GetErrorCode returns the error code for an error
// Returns "UNKNOWN_ERROR" if the error doesn't implement AppError
func GetErrorCode(err error) string {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}
	return "UNKNOWN_ERROR"
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ToResponse converts an error to an ErrorResponse
func ToResponse(err error) ErrorResponse {
	resp := ErrorResponse{
		Code:    GetErrorCode(err),
		Message: err.Error(),
	}
	var validation *ValidationError
	if errors.As(err, &validation) {
		resp.Message = validation.Message
		if validation.Field != "" {
			resp.Details = map[string]string{"field": validation.Field}
		}
	}
	var importErr *ImportFormatError
	if errors.As(err, &importErr) {
		resp.Message = importErr.Reason
	}
	return resp
}
