package auth

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a sign-in flow failure. Kinds are assigned at the transport
// boundary so callers never have to grep error text to decide what to do.
type Kind int

const (
	KindUnknown Kind = iota
	// KindMissingInput means a required input (code, verifier) was absent.
	// Terminal; the user must restart the flow.
	KindMissingInput
	// KindStateMismatch means the callback state did not match the stored one.
	KindStateMismatch
	// KindRemoteRejection means the backend answered but the payload was
	// semantically incomplete or an explicit refusal.
	KindRemoteRejection
	// KindNetworkFailure means the backend could not be reached at all.
	KindNetworkFailure
	// KindExpiredCode means the authorization code expired before the
	// exchange; the flow can be silently restarted.
	KindExpiredCode
)

// Error is a sign-in flow error carrying its classification.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the classification of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// classifyRemoteMessage maps free-text error messages from the backend or
// provider to a Kind. The provider reports expired authorization codes only
// in prose, so this is the one place a substring check survives.
func classifyRemoteMessage(message string) Kind {
	if strings.Contains(strings.ToLower(message), "expired") {
		return KindExpiredCode
	}
	return KindRemoteRejection
}
