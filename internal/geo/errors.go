package geo

import (
	"errors"
	"fmt"
)

// ErrUnsupported is returned by a Locator that has no way to obtain a position.
var ErrUnsupported = errors.New("geolocation not supported")

// ValidationError reports non-numeric or out-of-range coordinate input.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// GeolocationErrorCode classifies why a position could not be obtained.
type GeolocationErrorCode string

// Geolocation failure codes.
const (
	PermissionDenied    GeolocationErrorCode = "permission-denied"
	PositionUnavailable GeolocationErrorCode = "position-unavailable"
	Timeout             GeolocationErrorCode = "timeout"
	Unsupported         GeolocationErrorCode = "unsupported"
)

// GeolocationError is a classified locator failure.
type GeolocationError struct {
	Code GeolocationErrorCode
	Err  error
}

func (e *GeolocationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("geolocation %s: %v", e.Code, e.Err)
	}
	return "geolocation " + string(e.Code)
}

func (e *GeolocationError) Unwrap() error {
	return e.Err
}

// StatusText is the user-facing message for the failure.
func (e *GeolocationError) StatusText() string {
	switch e.Code {
	case PermissionDenied:
		return "❌ Location access denied by user"
	case Timeout:
		return "❌ Location request timeout"
	case Unsupported:
		return "❌ Geolocation not supported"
	default:
		return "❌ Location information unavailable"
	}
}

// UpstreamDataError reports a third-party response missing an expected field.
type UpstreamDataError struct {
	Provider string
	Field    string
}

func (e *UpstreamDataError) Error() string {
	return fmt.Sprintf("%s response missing %s", e.Provider, e.Field)
}
