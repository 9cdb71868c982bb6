package wire

import (
	"crypto/tls"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// OptionFn options pattern used to configure a handshake driver.
type OptionFn func(*Driver)

// WithLogger sets the logger used for per-frame debug traces.
func WithLogger(logger *slog.Logger) OptionFn {
	return func(drv *Driver) {
		drv.logger = logger
	}
}

// WithTLSConfig sets the TLS client configuration used when the server
// selects a secured session. Without one, a verifying configuration is
// derived from the transport's remote address.
func WithTLSConfig(config *tls.Config) OptionFn {
	return func(drv *Driver) {
		drv.tlsConfig = config
	}
}

// WithAppName overrides the application name streamed to the server. The
// basename of the running executable is announced by default.
func WithAppName(name string) OptionFn {
	return func(drv *Driver) {
		drv.appName = name
	}
}

// WithReadTimeout bounds the wait of every transport read.
func WithReadTimeout(timeout time.Duration) OptionFn {
	return func(drv *Driver) {
		drv.readTimeout = timeout
	}
}

// WithBufferSize sets the receive buffer size.
func WithBufferSize(size int) OptionFn {
	return func(drv *Driver) {
		drv.bufferSize = size
	}
}

// WithClock injects the clock used for read deadlines.
func WithClock(clock clockwork.Clock) OptionFn {
	return func(drv *Driver) {
		drv.clock = clock
	}
}
