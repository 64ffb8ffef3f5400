package ledger

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrConflict matches a StatusError for HTTP 409: the code id was already issued.
var ErrConflict = errors.New("code id already issued")

// RejectedError is a 2xx response carrying success=false.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return "ledger rejected request"
	}
	return "ledger rejected request: " + e.Message
}

// StatusError is a non-2xx response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ledger status %d", e.StatusCode)
	}
	return fmt.Sprintf("ledger status %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrConflict && e.StatusCode == http.StatusConflict
}

// TransportError means no response was received: connection failure, timeout or an
// unreadable body.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
