package violations

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/sentinel/pkg/repository"
)

// Domain errors for violation operations.
var (
	ErrNothingToRecord  = errors.New("nothing to record")
	ErrIdentityNotReady = errors.New("identity not ready")
	ErrNotFound         = errors.New("violation not found")
	ErrMediaNotFound    = errors.New("evidence media not found")
	ErrMediaExists      = errors.New("evidence media already stored")
	ErrInvalidStatus    = errors.New("invalid review status")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrFileTooLarge     = errors.New("file exceeds maximum upload size")
)

var dbErrors = repository.Errors{
	NotFound: ErrNotFound,
	Invalid:  ErrInvalidStatus,
}

// MapHTTPStatus maps violation domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrMediaNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNothingToRecord), errors.Is(err, ErrMediaExists):
		return http.StatusConflict
	case errors.Is(err, ErrIdentityNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}
