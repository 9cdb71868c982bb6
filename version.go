package wire

import (
	"context"
	"log/slog"

	"github.com/npsdb/nps-wire/codes"
	"github.com/npsdb/nps-wire/pkg/buffer"
	"github.com/npsdb/nps-wire/pkg/types"
)

// maxVersionAttempts bounds the negotiation loop. Every counter-offer
// strictly lowers the announced version, so the loop converges well within
// the number of known versions.
const maxVersionAttempts = 6

// negotiateVersion agrees on a connection-protocol version with the server.
// The highest known version is announced first; the server either accepts it
// or counter-offers a lower one, which is announced in turn.
func (drv *Driver) negotiateVersion(ctx context.Context) error {
	version := types.Version6

	for attempt := 0; attempt < maxVersionAttempts; attempt++ {
		err := drv.sendFrame(types.OpClientBegin, func(writer *buffer.Writer) {
			writer.AddInt16(int16(version))
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
			drv.hsVersion = version
			drv.protocol2 = 0
			drv.logger.Debug("connection protocol negotiated", slog.Int("version", int(version)))
			return nil
		case types.ServerRenegotiate:
			offer, err := drv.reader.ReadByte()
			if err != nil {
				return err
			}

			if offer < '2' || offer > '5' {
				return failf(codes.UnsupportedVersion, "server counter-offered unsupported version %q", offer)
			}

			// older servers send the counter-offer as an ASCII digit
			version = types.Version(offer - '0')
			drv.logger.Debug("server counter-offered connection protocol", slog.Int("version", int(version)))
		case types.ServerError:
			return failf(codes.BadAttributeValue, "server rejected the version announcement")
		default:
			return failf(codes.BadProtocol, "unexpected response %q during version negotiation", resp)
		}
	}

	return failf(codes.BadProtocol, "version negotiation did not converge")
}
