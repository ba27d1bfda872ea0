package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork indicates the request could not be completed by the transport.
	ErrNetwork = errors.New("network failure")
	// ErrAborted indicates the request was cancelled before it completed.
	ErrAborted = errors.New("request aborted")
	// ErrTimeout indicates no response arrived within the fetch timeout.
	ErrTimeout = errors.New("request timed out")
	// ErrUnknownStatus indicates a status code outside 100..599.
	ErrUnknownStatus = errors.New("unknown HTTP status")

	errNotObject = errors.New("body is not a JSON object")
)

// InvalidResponseError reports a response body that is not a JSON object.
type InvalidResponseError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *InvalidResponseError) Error() string {
	return "invalid response: " + e.Body
}

func (e *InvalidResponseError) Unwrap() error { return e.Err }

// ServiceError reports an HTTP status of 400 or above.
type ServiceError struct {
	StatusCode int
	// Message is the error.message field of the response, when present.
	Message string
	Body    string
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("invalid response: %s", e.Body)
}
