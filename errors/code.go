package errors

import (
	"errors"

	"github.com/npsdb/nps-wire/codes"
)

// WithCode decorates the error with a connection failure code
func WithCode(err error, code codes.Code) error {
	if err == nil {
		return nil
	}

	return &withCode{cause: err, code: code}
}

// GetCode returns the failure code inside the given error. If no code is
// found a Uncategorized code is returned.
func GetCode(err error) codes.Code {
	if c, ok := err.(*withCode); ok {
		return c.code
	}

	if n := errors.Unwrap(err); n != nil {
		if inner := GetCode(n); inner != codes.Uncategorized {
			return inner
		}
	}

	return codes.Uncategorized
}

// Is reports whether the given error carries the given failure code.
func Is(err error, code codes.Code) bool {
	return GetCode(err) == code
}

type withCode struct {
	cause error
	code  codes.Code
}

func (w *withCode) Error() string { return w.cause.Error() }
func (w *withCode) Unwrap() error { return w.cause }
