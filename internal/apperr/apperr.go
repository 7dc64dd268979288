// Package apperr defines the typed error taxonomy shared by the application
// services and the HTTP layer. Services return *Error values; the transport
// maps Kind to a status and serializes Code for clients.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindUnauthorized  Kind = "unauthorized"
	KindAuthorization Kind = "authorization"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindState         Kind = "state"
	KindInternal      Kind = "internal"
)

// Code is the machine-readable error code surfaced to clients.
type Code string

const (
	CodeInvalidParam           Code = "INVALID_PARAM"
	CodeInvalidBookMode        Code = "INVALID_BOOK_MODE"
	CodeSelfTradeForbidden     Code = "SELF_TRADE_FORBIDDEN"
	CodeDuplicateRequest       Code = "DUPLICATE_REQUEST"
	CodeBookUnavailable        Code = "BOOK_UNAVAILABLE"
	CodePaymentPending         Code = "PAYMENT_PENDING"
	CodeNotParticipant         Code = "NOT_PARTICIPANT"
	CodeNotFound               Code = "NOT_FOUND"
	CodeAccountSuspended       Code = "ACCOUNT_SUSPENDED"
	CodeUsernameTaken          Code = "USERNAME_TAKEN"
	CodeDisputeAlreadyExists   Code = "DISPUTE_ALREADY_EXISTS"
	CodeDisputeAlreadyResolved Code = "DISPUTE_ALREADY_RESOLVED"
	CodeTradeAlreadyClosed     Code = "TRADE_ALREADY_CLOSED"
	CodeTradeDisputed          Code = "TRADE_DISPUTED"
	CodeSelfReviewForbidden    Code = "SELF_REVIEW_FORBIDDEN"
	CodeReviewAlreadyExists    Code = "REVIEW_ALREADY_EXISTS"
	CodeInvalidState           Code = "INVALID_STATE"
	CodeForbidden              Code = "FORBIDDEN"
	CodeUnauthorized           Code = "UNAUTHORIZED"
	CodeInternal               Code = "INTERNAL_ERROR"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// WithCause attaches an underlying error for logs without changing what
// clients see.
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

func newError(kind Kind, code Code, format string, args ...any) *Error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Code: code, Message: msg}
}

// Validation reports malformed or semantically invalid input.
func Validation(code Code, format string, args ...any) *Error {
	return newError(KindValidation, code, format, args...)
}

// Unauthorized reports a missing or invalid credential.
func Unauthorized(format string, args ...any) *Error {
	return newError(KindUnauthorized, CodeUnauthorized, format, args...)
}

// Authorization reports an authenticated actor lacking the right to act.
func Authorization(code Code, format string, args ...any) *Error {
	return newError(KindAuthorization, code, format, args...)
}

// NotFound reports a missing resource.
func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, CodeNotFound, format, args...)
}

// Conflict reports a clash with concurrent or existing state.
func Conflict(code Code, format string, args ...any) *Error {
	return newError(KindConflict, code, format, args...)
}

// State reports an operation that is not valid in the resource's current
// lifecycle state.
func State(code Code, format string, args ...any) *Error {
	return newError(KindState, code, format, args...)
}

// Internal wraps an unexpected failure. The client sees a generic message;
// the cause stays available for logging.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "internal error", cause: err}
}

// CodeOf extracts the Code from err, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// KindOf extracts the Kind from err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
