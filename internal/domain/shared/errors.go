package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes used by the cost propagation engine.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeResolution    = "RESOLUTION_ERROR"
	CodeCalculation   = "CALCULATION_ERROR"
	CodeCycleDetected = "CYCLE_DETECTED"
	CodeConcurrency   = "CONCURRENCY_ERROR"
)

// NewValidationError creates a validation error (missing/malformed input fields)
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// NewResolutionError creates a resolution error (catalog item cannot be resolved or created)
func NewResolutionError(message string) *DomainError {
	return NewDomainError(CodeResolution, message)
}

// NewCalculationError creates a calculation error (invalid loss percentage, non-positive portions)
func NewCalculationError(message string) *DomainError {
	return NewDomainError(CodeCalculation, message)
}

// NewCycleDetectedError creates a cycle error (a recipe contains itself, directly or transitively)
func NewCycleDetectedError(message string) *DomainError {
	return NewDomainError(CodeCycleDetected, message)
}

// NewConcurrencyError creates a concurrency error (per-establishment lock contention)
func NewConcurrencyError(message string) *DomainError {
	return NewDomainError(CodeConcurrency, message)
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrency, "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

// IsRetryable reports whether the error may succeed on retry.
// Only lock contention qualifies; cycle detection in particular is a data
// integrity violation that requires manual catalog correction.
func IsRetryable(err error) bool {
	de, ok := err.(*DomainError)
	return ok && de.Code == CodeConcurrency
}

// ErrorCode extracts the domain error code, or an empty string for non-domain errors.
func ErrorCode(err error) string {
	if de, ok := err.(*DomainError); ok {
		return de.Code
	}
	return ""
}
