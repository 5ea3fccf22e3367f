// Package services provides the business logic layer between the transports (HTTP
// handlers, queue worker) and the analytics engine.
package services

// Error codes carried by ServiceError
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeInvalidMethod    = "INVALID_METHOD"
	CodeInvalidParams    = "INVALID_PARAMS"
	CodeMisalignedSeries = "MISALIGNED_SERIES"
	CodeTrendFailed      = "TREND_FAILED"
	CodeAnalysisFailed   = "ANALYSIS_FAILED"
)

// ServiceError represents a service layer error
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// NewServiceError creates a new ServiceError
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewServiceErrorWithDetails creates a new ServiceError with details
func NewServiceErrorWithDetails(code, message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Details: details,
	}
}
