// Package wire implements the client side of the Netezza Performance Server
// connection handshake. It drives a raw duplex transport through version
// negotiation, session setup with an optional in-band TLS upgrade,
// authentication and the post-authentication preamble, and hands the
// connection back once the server signals that it is ready for queries.
package wire

import (
	"net"

	"github.com/npsdb/nps-wire/pkg/types"
)

// DefaultPort is the TCP port NPS servers listen on by default.
const DefaultPort = 5480

// BackendKey holds the cancellation key data announced by the server during
// the handshake. Callers wishing to cancel in-flight queries later on must
// retain it.
type BackendKey struct {
	PID       int32
	SecretKey int32
}

// Protocol is the sub-protocol pair fixed during session setup. The major
// version is constant; the minor version is the highest value the server
// accepted.
type Protocol struct {
	Major int16
	Minor int16
}

// Result is handed back after a successful handshake. The connection might
// differ from the one the driver was constructed with when the session was
// upgraded to TLS. Remaining holds bytes read past the ready-for-query
// marker; the caller must feed them to its message parser before reading
// from the connection again.
type Result struct {
	Conn       net.Conn
	Remaining  []byte
	Version    types.Version
	Protocol   Protocol
	BackendKey BackendKey
}
