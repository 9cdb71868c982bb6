package wire

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/npsdb/nps-wire/codes"
	npserr "github.com/npsdb/nps-wire/errors"
	"github.com/npsdb/nps-wire/pkg/buffer"
	"github.com/npsdb/nps-wire/pkg/types"
)

// Driver performs the connection handshake on top of a raw transport. A
// driver is ephemeral: it owns the transport exclusively for the duration of
// a single Startup call and holds no state across connection attempts.
type Driver struct {
	logger      *slog.Logger
	clock       clockwork.Clock
	conn        net.Conn
	reader      *buffer.Reader
	writer      *buffer.Writer
	tlsConfig   *tls.Config
	appName     string
	readTimeout time.Duration
	bufferSize  int
	identity    identity

	hsVersion  types.Version
	protocol1  int16
	protocol2  int16
	backendKey BackendKey
}

// NewDriver constructs a handshake driver for the given transport. The
// audit attributes streamed during session setup are snapshotted here.
func NewDriver(conn net.Conn, options ...OptionFn) *Driver {
	drv := &Driver{
		logger:      slog.Default(),
		clock:       clockwork.NewRealClock(),
		conn:        conn,
		readTimeout: buffer.DefaultReadTimeout,
	}

	for _, option := range options {
		option(drv)
	}

	if drv.logger == nil {
		drv.logger = slog.Default()
	}

	drv.identity = newIdentity(drv.appName)
	drv.reader = buffer.NewReader(drv.logger, conn, drv.bufferSize)
	drv.reader.Timeout = drv.readTimeout
	drv.reader.Clock = drv.clock
	drv.writer = buffer.NewWriter(drv.logger, conn)

	return drv
}

// Startup drives the transport through the full handshake: version
// negotiation, session setup (database selection, TLS negotiation, metadata
// streaming), authentication and the completion drain. On success the
// possibly upgraded connection is returned together with any read-ahead
// bytes; on failure the transport is left for the caller to close. Startup
// must not be invoked concurrently and performs no retries.
func (drv *Driver) Startup(ctx context.Context, database string, level types.SecurityLevel, username, password, pgOptions string) (*Result, error) {
	if deadline, ok := ctx.Deadline(); ok {
		drv.reader.Deadline = deadline
	}

	phases := []func(context.Context) error{
		func(ctx context.Context) error { return drv.negotiateVersion(ctx) },
		func(ctx context.Context) error { return drv.selectDatabase(ctx, database) },
		func(context.Context) error { return drv.nextDataProtocol() },
		func(ctx context.Context) error { return drv.secureSession(ctx, level) },
		func(ctx context.Context) error { return drv.sendClientInfo(ctx, username, pgOptions) },
		func(ctx context.Context) error { return drv.authenticate(ctx, password) },
		func(ctx context.Context) error { return drv.awaitReady(ctx) },
	}

	for _, phase := range phases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := phase(ctx); err != nil {
			return nil, err
		}
	}

	remaining, err := drv.reader.Drain()
	if err != nil {
		return nil, err
	}

	drv.logger.Debug("handshake complete",
		slog.Int("version", int(drv.hsVersion)),
		slog.Int("protocol1", int(drv.protocol1)),
		slog.Int("protocol2", int(drv.protocol2)),
		slog.Int("read-ahead", len(remaining)))

	return &Result{
		Conn:       drv.conn,
		Remaining:  remaining,
		Version:    drv.hsVersion,
		Protocol:   Protocol{Major: drv.protocol1, Minor: drv.protocol2},
		BackendKey: drv.backendKey,
	}, nil
}

// sendFrame writes a single opcoded frame. The body callback may be nil for
// frames without a body.
func (drv *Driver) sendFrame(op types.Opcode, body func(*buffer.Writer)) error {
	drv.writer.Start(op)
	if body != nil {
		body(drv.writer)
	}

	return drv.writer.End()
}

// expectAck consumes the single-byte acknowledgment following a session
// setup frame. Only an accept byte continues the handshake.
func (drv *Driver) expectAck(op types.Opcode) error {
	resp, err := drv.reader.ReadByte()
	if err != nil {
		return err
	}

	switch types.ServerMessage(resp) {
	case types.ServerAccept:
		return nil
	case types.ServerError:
		return failf(codes.ConnectionFailure, "server rejected the %s frame", op)
	default:
		return failf(codes.BadProtocol, "unexpected response %q to the %s frame", resp, op)
	}
}

// failf constructs a fatal connection error carrying the given failure code.
func failf(code codes.Code, format string, args ...any) error {
	return npserr.WithSeverity(npserr.WithCode(fmt.Errorf(format, args...), code), npserr.LevelFatal)
}
