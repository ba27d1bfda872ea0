package resolver

import "errors"

var (
	// ErrPreviousFailure is returned while the stored token records a failed resolution.
	ErrPreviousFailure = errors.New("there was an error in a previous request, try later")
	// ErrInvalidState is returned when the stored token is an unknown reserved value.
	ErrInvalidState = errors.New("invalid token state")
)
