package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindConflict
	KindUpstream
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindUpstream:
		return "upstream"
	case KindAuth:
		return "auth"
	default:
		return "internal"
	}
}

// Error is the typed error every service returns to the HTTP layer.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind and, when set, by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != "" {
		return e.Code == t.Code
	}
	return e.Kind == t.Kind && t.Message == ""
}

// HTTPStatus returns the explicit status or the default for the kind.
func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Kind {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindUpstream:
		return http.StatusBadGateway
	case KindAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// WithStatus returns a copy carrying an explicit HTTP status.
func (e *Error) WithStatus(status int) *Error {
	cp := *e
	cp.Status = status
	return &cp
}

// WithCode returns a copy carrying a machine-readable code.
func (e *Error) WithCode(code string) *Error {
	cp := *e
	cp.Code = code
	return &cp
}

// Msgf returns a copy of e with a formatted message. Used to specialise sentinels.
func (e *Error) Msgf(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error { return newf(KindValidation, format, args...) }
func NotFound(format string, args ...any) *Error   { return newf(KindNotFound, format, args...) }
func Forbidden(format string, args ...any) *Error  { return newf(KindForbidden, format, args...) }
func Conflict(format string, args ...any) *Error   { return newf(KindConflict, format, args...) }
func Auth(format string, args ...any) *Error       { return newf(KindAuth, format, args...) }

// Upstream wraps a failed gateway call. Timeouts and unreachable hosts map to 503.
func Upstream(err error, format string, args ...any) *Error {
	e := newf(KindUpstream, format, args...)
	e.Err = err
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		e.Status = http.StatusServiceUnavailable
	case errors.Is(err, ErrNotConfigured):
		e.Status = http.StatusServiceUnavailable
	}
	return e
}

// Internal wraps an unexpected failure; its message is not shown in production.
func Internal(err error, format string, args ...any) *Error {
	e := newf(KindInternal, format, args...)
	e.Err = err
	return e
}

// ErrNotConfigured marks a collaborator that was not set up for this deployment.
var ErrNotConfigured = errors.New("not configured")

// Sentinels for errors.Is checks.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrForbidden  = &Error{Kind: KindForbidden}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrUpstream   = &Error{Kind: KindUpstream}
	ErrAuth       = &Error{Kind: KindAuth}

	ErrPaymentRequired = &Error{Kind: KindConflict, Code: "payment_required"}
	ErrDuplicate       = &Error{Kind: KindConflict, Code: "duplicate"}
	ErrScheduleClash   = &Error{Kind: KindConflict, Code: "schedule_conflict"}
	ErrIllegalState    = &Error{Kind: KindConflict, Code: "illegal_transition"}
	ErrAmountMismatch  = &Error{Kind: KindConflict, Code: "amount_mismatch"}
	ErrAlreadyPaid     = &Error{Kind: KindConflict, Code: "already_paid"}
)

// KindOf reports the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
