package wire

import (
	"context"
	"log/slog"
	"strings"

	"github.com/npsdb/nps-wire/codes"
	"github.com/npsdb/nps-wire/pkg/types"
)

// maxServerErrorSize bounds the error text read from a failing server.
const maxServerErrorSize = 2000

// drainFillerSize is the number of leading filler bytes carried by backend
// key data, notice and unknown post-authentication messages. Authentication
// status, ready-for-query and error messages carry no filler.
const drainFillerSize = 8

// awaitReady consumes the post-authentication preamble until the server
// signals that it is ready for queries. The framing in this phase is
// non-uniform, so each message is classified by its type byte before the
// matching amount is read. Bytes read past the ready marker stay buffered
// and are handed back to the caller.
func (drv *Driver) awaitReady(ctx context.Context) error {
	for {
		resp, err := drv.reader.ReadByte()
		if err != nil {
			return err
		}

		switch types.ServerMessage(resp) {
		case types.ServerAuth:
			code, err := drv.reader.ReadInt32()
			if err != nil {
				return err
			}

			if code != int32(types.AuthOK) {
				drv.logger.Warn("unexpected authentication status", slog.Int("code", int(code)))
			}
		case types.ServerBackendKey:
			if _, err := drv.reader.ReadExact(drainFillerSize); err != nil {
				return err
			}

			pid, err := drv.reader.ReadInt32()
			if err != nil {
				return err
			}

			key, err := drv.reader.ReadInt32()
			if err != nil {
				return err
			}

			drv.backendKey = BackendKey{PID: pid, SecretKey: key}
			drv.logger.Debug("backend key data received", slog.Int("pid", int(pid)))
		case types.ServerNotice:
			if _, err := drv.reader.ReadExact(drainFillerSize); err != nil {
				return err
			}

			// the notice length is announced but the body is not surfaced
			if _, err := drv.reader.ReadInt32(); err != nil {
				return err
			}
		case types.ServerReady:
			drv.logger.Debug("server ready for query")
			return nil
		case types.ServerError:
			text, err := drv.reader.ReadAvailable(maxServerErrorSize)
			if err != nil {
				return err
			}

			return failf(codes.ServerError, "%s", strings.TrimRight(string(text), "\x00"))
		default:
			if _, err := drv.reader.ReadExact(drainFillerSize); err != nil {
				return err
			}

			drv.logger.Debug("discarding unknown message", slog.String("type", string(resp)))
		}
	}
}
