package wire

import (
	"context"
	"log/slog"

	"github.com/npsdb/nps-wire/codes"
	"github.com/npsdb/nps-wire/pkg/buffer"
	"github.com/npsdb/nps-wire/pkg/types"
)

// selectDatabase announces the database the session should attach to. The
// frame is omitted entirely when no database name was supplied.
func (drv *Driver) selectDatabase(ctx context.Context, database string) error {
	if database == "" {
		return nil
	}

	err := drv.sendFrame(types.OpDatabase, func(writer *buffer.Writer) {
		writer.AddString(database)
		writer.AddNullTerminate()
	})
	if err != nil {
		return err
	}

	resp, err := drv.reader.ReadByte()
	if err != nil {
		return err
	}

	switch types.ServerMessage(resp) {
	case types.ServerAccept:
		drv.logger.Debug("database selected", slog.String("database", database))
		return nil
	case types.ServerError:
		return failf(codes.DatabaseRejected, "server rejected database %q", database)
	default:
		return failf(codes.BadProtocol, "unexpected response %q to the database frame", resp)
	}
}

// nextDataProtocol advances the sub-protocol pair to the next candidate. The
// minor version starts at its maximum and is lowered one step per call;
// running past the floor means no candidate was acceptable to the server.
func (drv *Driver) nextDataProtocol() error {
	switch drv.protocol2 {
	case 0:
		drv.protocol2 = types.ProtocolMinor5
	case types.ProtocolMinor5:
		drv.protocol2 = types.ProtocolMinor4
	case types.ProtocolMinor4:
		drv.protocol2 = types.ProtocolMinor3
	default:
		return failf(codes.ProtocolExhausted, "no data protocol left to offer")
	}

	drv.protocol1 = types.ProtocolMajor
	drv.logger.Debug("data protocol selected",
		slog.Int("protocol1", int(drv.protocol1)),
		slog.Int("protocol2", int(drv.protocol2)))
	return nil
}

// infoFrame is a single entry of the client metadata stream.
type infoFrame struct {
	op   types.Opcode
	body func(*buffer.Writer)
}

func stringFrame(op types.Opcode, value string) infoFrame {
	return infoFrame{op: op, body: func(writer *buffer.Writer) {
		writer.AddString(value)
		writer.AddNullTerminate()
	}}
}

// sendClientInfo streams the client identity and audit attributes to the
// server. The two version families differ only in the presence of the audit
// frames, so the stream is built as one list with conditional entries. Every
// frame awaits a single-byte acknowledgment except the terminating done
// frame.
func (drv *Driver) sendClientInfo(ctx context.Context, username, pgOptions string) error {
	frames := []infoFrame{stringFrame(types.OpUser, username)}

	if drv.hsVersion.AuditFrames() {
		frames = append(frames,
			stringFrame(types.OpAppName, drv.identity.appName),
			stringFrame(types.OpClientOS, drv.identity.os),
			stringFrame(types.OpClientHost, drv.identity.hostname),
			stringFrame(types.OpClientOSUser, drv.identity.osUser),
		)
	}

	frames = append(frames, infoFrame{op: types.OpProtocol, body: func(writer *buffer.Writer) {
		writer.AddInt16(drv.protocol1)
		writer.AddInt16(drv.protocol2)
	}})

	pid := int32(drv.identity.pid)
	frames = append(frames, infoFrame{op: types.OpRemotePID, body: func(writer *buffer.Writer) {
		writer.AddInt32(pid)
	}})

	if pgOptions != "" {
		frames = append(frames, stringFrame(types.OpOptions, pgOptions))
	}

	frames = append(frames, infoFrame{op: types.OpClientType, body: func(writer *buffer.Writer) {
		writer.AddInt16(types.ClientType)
	}})

	if drv.hsVersion.Varlena64() {
		frames = append(frames, infoFrame{op: types.OpVarlena64, body: func(writer *buffer.Writer) {
			writer.AddInt16(types.Varlena64Enabled)
		}})
	}

	for _, frame := range frames {
		if err := drv.sendFrame(frame.op, frame.body); err != nil {
			return err
		}

		if err := drv.expectAck(frame.op); err != nil {
			return err
		}
	}

	// the done frame terminates the stream and is not acknowledged
	return drv.sendFrame(types.OpClientDone, nil)
}
