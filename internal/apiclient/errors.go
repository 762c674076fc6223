package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotPresent is returned when a composite payload omits a sub-resource
	ErrNotPresent = errors.New("sub-resource not present")
)

// TransportError means no response was received from the API
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error calling %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ServerError is a response with status >= 500
type ServerError struct {
	Endpoint   string
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error calling %s: status %d", e.Endpoint, e.StatusCode)
}

// ClientError is a response with status 400-499. It is never retried.
type ClientError struct {
	Endpoint   string
	StatusCode int
	Message    string
	Body       []byte
}

func (e *ClientError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("client error calling %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("client error calling %s: status %d", e.Endpoint, e.StatusCode)
}

// RequestExhaustedError is returned once every attempt has failed.
// Last holds the failure of the final attempt.
type RequestExhaustedError struct {
	Endpoint string
	Attempts int
	Last     error
}

func (e *RequestExhaustedError) Error() string {
	return fmt.Sprintf("request to %s failed after %d attempt(s): %v", e.Endpoint, e.Attempts, e.Last)
}

func (e *RequestExhaustedError) Unwrap() error {
	return e.Last
}

// newClientError builds a ClientError, lifting the API's "detail" message when present
func newClientError(endpoint string, statusCode int, body []byte) *ClientError {
	ce := &ClientError{
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Body:       body,
	}

	var envelope struct {
		Detail  any    `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		switch d := envelope.Detail.(type) {
		case string:
			ce.Message = d
		case nil:
			ce.Message = envelope.Message
		default:
			if raw, err := json.Marshal(d); err == nil {
				ce.Message = string(raw)
			}
		}
	}
	return ce
}

// IsRetryable reports whether err belongs to a retryable failure class
func IsRetryable(err error) bool {
	var transportErr *TransportError
	var serverErr *ServerError
	return errors.As(err, &transportErr) || errors.As(err, &serverErr)
}

// IsClientError checks if an error is a 4xx client error
func IsClientError(err error) bool {
	var clientErr *ClientError
	return errors.As(err, &clientErr)
}

// IsExhausted checks if an error is a RequestExhaustedError
func IsExhausted(err error) bool {
	var exhaustedErr *RequestExhaustedError
	return errors.As(err, &exhaustedErr)
}

// StatusCode returns the HTTP status carried by err, or 0 if none
func StatusCode(err error) int {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.StatusCode
	}
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return serverErr.StatusCode
	}
	return 0
}
