package identity

import (
	"errors"
	"net/http"
)

var (
	ErrNotReady          = errors.New("identity not ready")
	ErrNoToken           = errors.New("no session token")
	ErrInvalidServiceCfg = errors.New("invalid service configuration")
)

// MapHTTPStatus maps identity errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotReady) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
