package wormhole

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a withdrawal run was aborted
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindIdentityMismatch
	KindInsufficientFunds
	KindSketchMismatch
	KindMalformedInput
	KindExternalService
)

// Sentinel errors, one per kind, so callers can use errors.Is
var (
	ErrIdentityMismatch  = errors.New("dead address does not match secret/nonce")
	ErrInsufficientFunds = errors.New("insufficient funds at dead address")
	ErrSketchMismatch    = errors.New("state sketch verification failed")
	ErrMalformedInput    = errors.New("malformed input")
	ErrExternalService   = errors.New("external service failure")
)

func (k ErrorKind) String() string {
	switch k {
	case KindIdentityMismatch:
		return "identity_mismatch"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindSketchMismatch:
		return "sketch_mismatch"
	case KindMalformedInput:
		return "malformed_input"
	case KindExternalService:
		return "external_service"
	default:
		return "unknown"
	}
}

// ParseErrorKind is the inverse of ErrorKind.String; unknown names map to KindUnknown
func ParseErrorKind(s string) ErrorKind {
	for k := KindIdentityMismatch; k <= KindExternalService; k++ {
		if k.String() == s {
			return k
		}
	}
	return KindUnknown
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindIdentityMismatch:
		return ErrIdentityMismatch
	case KindInsufficientFunds:
		return ErrInsufficientFunds
	case KindSketchMismatch:
		return ErrSketchMismatch
	case KindMalformedInput:
		return ErrMalformedInput
	case KindExternalService:
		return ErrExternalService
	default:
		return nil
	}
}

// Error is the single error type returned by every fatal check of a run.
// Op names the step that failed (e.g. "audit balance").
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && s == target
}

// NewError builds an Error of the given kind
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds an Error with a formatted cause
func Errorf(kind ErrorKind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) ErrorKind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return KindUnknown
}
