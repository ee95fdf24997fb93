// Package httperr maps HTTP status codes onto typed errors.
package httperr

import (
	"errors"
	"fmt"
)

var (
	ErrClientError = errors.New("http client error")
	ErrServerError = errors.New("http server error")
)

// StatusError is returned for 4xx and 5xx responses. Code identifies the failure.
type StatusError struct {
	Code    int
	Message string
}

var _ error = &StatusError{}

func (e *StatusError) Error() string {
	return e.Message
}

// Is lets errors.Is match a StatusError against ErrClientError or ErrServerError.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrClientError:
		return e.Code >= 400 && e.Code < 500
	case ErrServerError:
		return e.Code >= 500
	}
	return false
}

var knownStatus = map[int]string{
	401: "HTTP client error 401: Unauthorized",
	403: "HTTP client error 403: Forbidden",
	404: "HTTP client error 404: Not Found",
	429: "HTTP client error 429: Too Many Requests",
	500: "HTTP server error 500: Internal Server Error",
}

// Classify returns nil for codes below 400 and a *StatusError otherwise.
func Classify(code int) *StatusError {
	if code < 400 {
		return nil
	}
	if msg, ok := knownStatus[code]; ok {
		return &StatusError{Code: code, Message: msg}
	}
	if code >= 500 {
		return &StatusError{Code: code, Message: fmt.Sprintf("HTTP server error %d", code)}
	}
	return &StatusError{Code: code, Message: fmt.Sprintf("HTTP client error %d", code)}
}

// Check is Classify for call sites that want a plain error. It never returns a typed nil.
func Check(code int) error {
	if se := Classify(code); se != nil {
		return se
	}
	return nil
}
