package errors

import "github.com/npsdb/nps-wire/codes"

// Error is the flattened representation of a connection failure containing
// the fields a caller might want to inspect or log.
type Error struct {
	Code     codes.Code
	Message  string
	Severity Severity
}

// Flatten returns a flattened error which could be used to report or log a
// failed connection attempt.
func Flatten(err error) Error {
	if err == nil {
		return Error{
			Code:     codes.Uncategorized,
			Message:  "unknown error, an internal process attempted to throw an error",
			Severity: LevelFatal,
		}
	}

	return Error{
		Code:     GetCode(err),
		Message:  err.Error(),
		Severity: DefaultSeverity(GetSeverity(err)),
	}
}
