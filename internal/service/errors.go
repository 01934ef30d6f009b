package service

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by what the caller should do about it.
type Kind int

const (
	// KindValidation: malformed input, nothing was written.
	KindValidation Kind = iota + 1
	// KindConflict: valid input that lost against current state; retry
	// with different input.
	KindConflict
	// KindIntegrity: storage failure; the operation was rolled back.
	KindIntegrity
	// KindNotFound: the referenced entity does not exist.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindIntegrity:
		return "integrity"
	case KindNotFound:
		return "not_found"
	}
	return "unknown"
}

// Code is a stable machine readable identifier for an error.
type Code string

const (
	CodeInvalidInput             Code = "INVALID_INPUT"
	CodeInvalidTransition        Code = "INVALID_TRANSITION"
	CodeSessionChanged           Code = "SESSION_CHANGED"
	CodeSessionBusy              Code = "SESSION_BUSY"
	CodeScreeningInactive        Code = "SCREENING_INACTIVE"
	CodeScreeningStarted         Code = "SCREENING_STARTED"
	CodeScreeningHasReservations Code = "SCREENING_HAS_RESERVATIONS"
	CodeSeatsNoLongerAvailable   Code = "SEATS_NO_LONGER_AVAILABLE"
	CodePromoCodeRejected        Code = "PROMO_CODE_REJECTED"
	CodeDuplicate                Code = "DUPLICATE"
	CodeAlreadyPaid              Code = "ALREADY_PAID"
	CodeNotPaid                  Code = "NOT_PAID"
	CodePaymentDeclined          Code = "PAYMENT_DECLINED"
	CodeNotFound                 Code = "NOT_FOUND"
	CodeStorage                  Code = "STORAGE_FAILURE"
)

// Error is the result type of every failed engine operation.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Details map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// WithDetail attaches a detail for the caller, e.g. the seats that were
// taken.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Validation builds a KindValidation error.
func Validation(code Code, msg string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: msg}
}

// Conflict builds a KindConflict error.
func Conflict(code Code, msg string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: msg}
}

// NotFound builds a KindNotFound error.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: msg}
}

// Integrity wraps a storage failure.  The message stays generic; the cause
// is kept for logs only.
func Integrity(op string, cause error) *Error {
	return &Error{Kind: KindIntegrity, Code: CodeStorage, Message: op + " failed", Cause: cause}
}

// KindOf returns the Kind of err, treating anything that is not an *Error
// as an integrity failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindIntegrity
}

// HasCode reports whether err is an *Error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
