package redeem

import (
	"errors"
	"fmt"

	"github.com/dukerupert/pointqr/internal/ledger"
)

type State string

const (
	StateIdle       State = "idle"
	StateScanning   State = "scanning"
	StateDecoded    State = "decoded"
	StateValidating State = "validating"
	StateSuccess    State = "success"
	StateFailure    State = "failure"
)

// Settled reports whether s ends a session and waits for Reset.
func (s State) Settled() bool {
	return s == StateSuccess || s == StateFailure
}

// Reason says why a session failed.
type Reason string

const (
	ReasonRejected   Reason = "rejected"
	ReasonHTTPStatus Reason = "http_status"
	ReasonTransport  Reason = "transport"
	ReasonCapture    Reason = "capture"
)

// Outcome is a snapshot of the coordinator's progress, passed to StateCallback.
type Outcome struct {
	State   State
	TokenID string
	Reason  Reason
	Message string
	Err     error
}

func validationOutcome(tokenID string, err error) Outcome {
	if err == nil {
		return Outcome{State: StateSuccess, TokenID: tokenID, Message: "Points redeemed."}
	}

	o := Outcome{State: StateFailure, TokenID: tokenID, Err: err}
	var rej *ledger.RejectedError
	var se *ledger.StatusError
	switch {
	case errors.As(err, &rej):
		o.Reason = ReasonRejected
		if rej.Message != "" {
			o.Message = "This code was not accepted: " + rej.Message + "."
		} else {
			o.Message = "This code was not accepted."
		}
	case errors.As(err, &se):
		o.Reason = ReasonHTTPStatus
		o.Message = fmt.Sprintf("The points service returned an error (status %d). Please try again later.", se.StatusCode)
	default:
		o.Reason = ReasonTransport
		o.Message = "Could not reach the points service. Check your connection and try again."
	}
	return o
}

func captureFailure(err error) Outcome {
	return Outcome{
		State:   StateFailure,
		Reason:  ReasonCapture,
		Message: "The camera stopped before a code was found.",
		Err:     err,
	}
}
