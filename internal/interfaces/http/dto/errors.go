package dto

import "net/http"

// API error codes, format ERR_<CATEGORY>_<DESCRIPTION>. Handlers emit these
// through the error response builders in response.go.

// General and input error codes.
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"

	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
)

// Validation error codes. ErrCodeValidation is the envelope code for binding
// failures; the detail entries carry per-field messages.
const (
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
)

// Resource error codes.
const (
	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	ErrCodeConflict      = "ERR_CONFLICT"
)

// Charging error codes.
const (
	// ErrCodeInvalidState rejects operations the order state does not allow.
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeChargePending rejects a new charge while one is unconfirmed.
	ErrCodeChargePending = "ERR_CHARGE_PENDING"
	// ErrCodeNothingToRenovate reports a renovation that found no due payments.
	ErrCodeNothingToRenovate = "ERR_NOTHING_TO_RENOVATE"
	// ErrCodeGatewayUnavailable reports an unreachable payment gateway.
	ErrCodeGatewayUnavailable = "ERR_GATEWAY_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeInvalidInput:       http.StatusBadRequest,
	ErrCodeInvalidJSON:        http.StatusBadRequest,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,

	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeConflict:      http.StatusConflict,

	ErrCodeInvalidState:       http.StatusUnprocessableEntity,
	ErrCodeChargePending:      http.StatusConflict,
	ErrCodeNothingToRenovate:  http.StatusUnprocessableEntity,
	ErrCodeGatewayUnavailable: http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status for an error code, defaulting to
// 500 for codes missing from the map.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps domain error codes to the standardized codes
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":              ErrCodeNotFound,
	"CONTRACT_NOT_FOUND":     ErrCodeNotFound,
	"ALREADY_EXISTS":         ErrCodeAlreadyExists,
	"INVALID_INPUT":          ErrCodeInvalidInput,
	"INVALID_ORDER_ID":       ErrCodeInvalidInput,
	"INVALID_OWNER":          ErrCodeInvalidInput,
	"INVALID_CHARGE_PERIOD":  ErrCodeInvalidInput,
	"INVALID_GATEWAY_TYPE":   ErrCodeInvalidInput,
	"GATEWAY_NOT_REGISTERED": ErrCodeGatewayUnavailable,
	"INVALID_STATE":          ErrCodeInvalidState,
	"VALIDATION_ERROR":       ErrCodeValidation,
	"BAD_REQUEST":            ErrCodeBadRequest,
	"INTERNAL_ERROR":         ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the API format. Codes
// without a mapping pass through unchanged.
func NormalizeErrorCode(code string) string {
	if normalized, ok := LegacyErrorCodeMapping[code]; ok {
		return normalized
	}
	return code
}
