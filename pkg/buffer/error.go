package buffer

import (
	"errors"
	"fmt"
	"time"

	"github.com/npsdb/nps-wire/codes"
	npserr "github.com/npsdb/nps-wire/errors"
)

// ErrTransportClosed is thrown when the transport ends before the expected
// bytes have arrived.
var ErrTransportClosed = errors.New("transport closed before the expected bytes arrived")

// NewTransportClosed constructs a new error message wrapping the
// ErrTransportClosed type with additional metadata.
func NewTransportClosed(cause error) error {
	err := fmt.Errorf("%w: %v", ErrTransportClosed, cause)
	return npserr.WithSeverity(npserr.WithCode(err, codes.TransportClosed), npserr.LevelFatal)
}

// ErrReadTimeout is thrown when a read makes no progress within the
// configured interval.
var ErrReadTimeout = errors.New("no bytes received within the read deadline")

// NewReadTimeout constructs a new error message wrapping the ErrReadTimeout
// type with additional metadata.
func NewReadTimeout(timeout time.Duration) error {
	err := fmt.Errorf("%w (%s)", ErrReadTimeout, timeout)
	return npserr.WithSeverity(npserr.WithCode(err, codes.Timeout), npserr.LevelFatal)
}
