package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeStorageError       ErrorCode = "COMMON_017"
	ErrCodeMessagingError     ErrorCode = "COMMON_018"
)

// Docking Error Codes
const (
	ErrCodeInvalidStructure  ErrorCode = "DOCK_001"
	ErrCodeEngineUnavailable ErrorCode = "DOCK_002"
	ErrCodeRunTimedOut       ErrorCode = "DOCK_003"
	ErrCodeMalformedOutput   ErrorCode = "DOCK_004"
	ErrCodeAllRunsFailed     ErrorCode = "DOCK_005"
	ErrCodeEngineFailed      ErrorCode = "DOCK_006"
	ErrCodeUnsupportedFormat ErrorCode = "DOCK_007"
	ErrCodeJobTimedOut       ErrorCode = "DOCK_008"
	ErrCodeJobLocked         ErrorCode = "DOCK_009"
)

// Short aliases used at call sites.
const (
	CodeOK            = ErrorCode("OK")
	CodeUnknown       = ErrorCode("UNKNOWN")
	CodeInternal      = ErrCodeInternal
	CodeInvalidParam  = ErrCodeBadRequest
	CodeNotFound      = ErrCodeNotFound
	CodeConflict      = ErrCodeConflict
	CodeValidation    = ErrCodeValidation
	CodeDatabase      = ErrCodeDatabaseError
	CodeCache         = ErrCodeCacheError
	CodeStorage       = ErrCodeStorageError
	CodeMessaging     = ErrCodeMessagingError
	CodeSerialization = ErrCodeSerialization

	CodeInvalidStructure  = ErrCodeInvalidStructure
	CodeEngineUnavailable = ErrCodeEngineUnavailable
	CodeRunTimedOut       = ErrCodeRunTimedOut
	CodeMalformedOutput   = ErrCodeMalformedOutput
	CodeAllRunsFailed     = ErrCodeAllRunsFailed
	CodeEngineFailed      = ErrCodeEngineFailed
	CodeUnsupportedFormat = ErrCodeUnsupportedFormat
	CodeJobTimedOut       = ErrCodeJobTimedOut
	CodeJobLocked         = ErrCodeJobLocked
)

// transientCodes lists the codes IsTransient treats as retryable.
var transientCodes = []ErrorCode{
	ErrCodeEngineUnavailable,
	ErrCodeServiceUnavailable,
}

// ErrorCodeHTTPStatus maps error codes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusBadRequest,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeStorageError:       http.StatusInternalServerError,
	ErrCodeMessagingError:     http.StatusServiceUnavailable,

	ErrCodeInvalidStructure:  http.StatusUnprocessableEntity,
	ErrCodeEngineUnavailable: http.StatusServiceUnavailable,
	ErrCodeRunTimedOut:       http.StatusGatewayTimeout,
	ErrCodeMalformedOutput:   http.StatusBadGateway,
	ErrCodeAllRunsFailed:     http.StatusUnprocessableEntity,
	ErrCodeEngineFailed:      http.StatusBadGateway,
	ErrCodeUnsupportedFormat: http.StatusBadRequest,
	ErrCodeJobTimedOut:       http.StatusGatewayTimeout,
	ErrCodeJobLocked:         http.StatusConflict,
}

// ErrorCodeMessage maps error codes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization error",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeStorageError:       "object storage error",
	ErrCodeMessagingError:     "messaging error",

	ErrCodeInvalidStructure:  "invalid structure",
	ErrCodeEngineUnavailable: "docking engine unavailable",
	ErrCodeRunTimedOut:       "docking run timed out",
	ErrCodeMalformedOutput:   "malformed engine output",
	ErrCodeAllRunsFailed:     "all docking runs failed",
	ErrCodeEngineFailed:      "docking engine failed",
	ErrCodeUnsupportedFormat: "unsupported format",
	ErrCodeJobTimedOut:       "docking job timed out",
	ErrCodeJobLocked:         "docking job already in progress",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
