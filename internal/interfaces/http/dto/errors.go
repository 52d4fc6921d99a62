package dto

import "net/http"

// Error codes returned in ErrorResponse.Code
const (
	ErrCodeInternal = "ERR_INTERNAL"
	ErrCodeTimeout  = "ERR_TIMEOUT"

	ErrCodeValidation      = "ERR_VALIDATION"
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeUnknownType     = "ERR_UNKNOWN_TYPE" // no synchronizer for the object type or event
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"

	ErrCodeUnauthorized  = "ERR_UNAUTHORIZED"
	ErrCodeForbidden     = "ERR_FORBIDDEN" // token lacks the route's scope
	ErrCodeTokenExpired  = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid  = "ERR_TOKEN_INVALID"
	ErrCodeInvalidSecret = "ERR_INVALID_SECRET" // webhook shared secret mismatch

	ErrCodeNotFound = "ERR_NOT_FOUND"

	ErrCodeMapping       = "ERR_SYNC_MAPPING"
	ErrCodeTranslation   = "ERR_SYNC_TRANSLATION"
	ErrCodeConfiguration = "ERR_SYNC_CONFIGURATION"
	ErrCodeRemoteAPI     = "ERR_SYNC_REMOTE_API"
	ErrCodeNotSupported  = "ERR_SYNC_NOT_SUPPORTED"
)

var statusByCode = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,
	ErrCodeTimeout:  http.StatusGatewayTimeout,

	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeUnknownType:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,

	ErrCodeUnauthorized:  http.StatusUnauthorized,
	ErrCodeForbidden:     http.StatusForbidden,
	ErrCodeTokenExpired:  http.StatusUnauthorized,
	ErrCodeTokenInvalid:  http.StatusUnauthorized,
	ErrCodeInvalidSecret: http.StatusUnauthorized,

	ErrCodeNotFound: http.StatusNotFound,

	// A missing identity mapping means the remote side has not caught up yet.
	ErrCodeMapping:       http.StatusConflict,
	ErrCodeTranslation:   http.StatusUnprocessableEntity,
	ErrCodeConfiguration: http.StatusUnprocessableEntity,
	ErrCodeRemoteAPI:     http.StatusBadGateway,
	ErrCodeNotSupported:  http.StatusUnprocessableEntity,
}

// HTTPStatus returns the status for an error code; unknown codes are 500
func HTTPStatus(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
