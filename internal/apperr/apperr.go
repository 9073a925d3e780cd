// Package apperr classifies failures into the one error channel handlers report through.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/harentsoaR/clinic-portal/internal/store"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindTransient    Kind = "transient"
	KindPermanent    Kind = "permanent"
)

// Error carries a kind and a message safe to show to the user.
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

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Validation(msg string) *Error   { return New(KindValidation, msg) }
func NotFound(msg string) *Error     { return New(KindNotFound, msg) }
func Unauthorized(msg string) *Error { return New(KindUnauthorized, msg) }
func Forbidden(msg string) *Error    { return New(KindForbidden, msg) }
func Conflict(msg string) *Error     { return New(KindConflict, msg) }

// Classify returns the kind of err, inspecting driver errors when err is not
// already an *Error.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return KindNotFound
	case errors.Is(err, store.ErrExists), mongo.IsDuplicateKeyError(err):
		return KindConflict
	case errors.Is(err, context.DeadlineExceeded), mongo.IsTimeout(err), mongo.IsNetworkError(err):
		return KindTransient
	}
	return KindPermanent
}

// Retryable reports whether the user should be offered a retry.
func Retryable(err error) bool {
	k := Classify(err)
	return k == KindTransient || k == KindPermanent
}

// Message returns the user-facing message for err.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	switch Classify(err) {
	case KindNotFound:
		return "Record not found"
	case KindConflict:
		return "Record already exists"
	case KindTransient:
		return "The service is temporarily unavailable. Please try again."
	}
	return "Something went wrong. Please try again."
}

// Status maps a kind to its HTTP status code.
func Status(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindTransient:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Notice is the dialog the dashboards show after a form or an action.
type Notice struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

// NoticeFor builds the error notice for err.
func NoticeFor(err error) Notice {
	title := "Error"
	if Classify(err) == KindValidation {
		title = "Invalid"
	}
	return Notice{Title: title, Message: Message(err), Retry: Retryable(err)}
}
