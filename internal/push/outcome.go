package push

import (
	"errors"
	"fmt"
	"strings"
)

// PermanentError marks a delivery failure caused by the endpoint itself
// (expired token, unregistered device). Retrying cannot succeed and the
// endpoint should be deactivated.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent delivery failure: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err as a permanent delivery failure
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Failure classifies how a delivery attempt failed
type Failure int

const (
	FailureTransient Failure = iota // worth retrying, endpoint stays active
	FailurePermanent                // endpoint is dead, deactivate it
)

// Provider error codes that mean the token or subscription no longer
// exists. Matched as substrings because FCM reports them in different
// shapes (legacy error strings, v1 error status, messaging error codes).
var permanentTokens = []string{
	"InvalidRegistration",
	"NotRegistered",
	"BadDeviceToken",
	"UNREGISTERED",
	"INVALID_ARGUMENT",
	"registration-token-not-registered",
}

// Classify decides whether a delivery error is permanent. Anything not
// positively identified as permanent is treated as transient; the
// asymmetry is deliberate since deactivating a live endpoint loses the
// user's channel while retrying a dead one only wastes an attempt.
func Classify(err error) Failure {
	if err == nil {
		return FailureTransient
	}
	var perm *PermanentError
	if errors.As(err, &perm) {
		return FailurePermanent
	}
	msg := err.Error()
	for _, token := range permanentTokens {
		if strings.Contains(msg, token) {
			return FailurePermanent
		}
	}
	return FailureTransient
}
