// Package mock implements a scripted NPS backend used to exercise the client
// handshake in tests. The backend reads the frames a client sends, asserts
// their shape and answers with the scripted acknowledgments and challenges.
package mock

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"net"
	"testing"

	"github.com/npsdb/nps-wire/pkg/types"
	"github.com/stretchr/testify/require"
)

// Frame is a decoded client handshake frame.
type Frame struct {
	Opcode types.Opcode
	Body   []byte
}

// Uint16 decodes the first two body bytes as a big-endian uint16.
func (f Frame) Uint16() uint16 {
	return binary.BigEndian.Uint16(f.Body)
}

// Uint32 decodes the first four body bytes as a big-endian uint32.
func (f Frame) Uint32() uint32 {
	return binary.BigEndian.Uint32(f.Body)
}

// String decodes the body as a null-terminated string.
func (f Frame) String() string {
	return string(bytes.TrimRight(f.Body, "\x00"))
}

// Backend reads client frames and writes scripted responses on the server
// side of a connection. All received bytes are recorded so tests can assert
// on the exact client traffic.
type Backend struct {
	t        *testing.T
	conn     net.Conn
	reader   *bufio.Reader
	recorded bytes.Buffer
}

// NewBackend constructs a scripted backend on the server side of the given
// connection.
func NewBackend(t *testing.T, conn net.Conn) *Backend {
	return &Backend{
		t:    t,
		conn: conn,
	}
}

func (backend *Backend) source() *bufio.Reader {
	if backend.reader == nil {
		backend.reader = bufio.NewReader(io.TeeReader(backend.conn, &backend.recorded))
	}

	return backend.reader
}

// Upgrade swaps the underlying connection, typically for the TLS server side
// of an in-band upgrade. Recording continues on the new connection.
func (backend *Backend) Upgrade(conn net.Conn) {
	backend.conn = conn
	backend.reader = bufio.NewReader(io.TeeReader(conn, &backend.recorded))
}

// Conn returns the backend side of the connection.
func (backend *Backend) Conn() net.Conn {
	return backend.conn
}

// Recorded returns everything the client has sent so far.
func (backend *Backend) Recorded() []byte {
	return backend.recorded.Bytes()
}

// ReadFrame decodes the next opcoded client frame and asserts that its
// announced length covers the frame exactly.
func (backend *Backend) ReadFrame() Frame {
	backend.t.Helper()

	header := make([]byte, 6)
	_, err := io.ReadFull(backend.source(), header)
	require.NoError(backend.t, err)

	length := int(binary.BigEndian.Uint32(header[:4]))
	require.GreaterOrEqual(backend.t, length, 6, "frame length must cover itself and the opcode")

	body := make([]byte, length-6)
	_, err = io.ReadFull(backend.source(), body)
	require.NoError(backend.t, err)

	return Frame{
		Opcode: types.Opcode(binary.BigEndian.Uint16(header[4:6])),
		Body:   body,
	}
}

// ExpectFrame reads the next client frame and asserts its opcode.
func (backend *Backend) ExpectFrame(op types.Opcode) Frame {
	backend.t.Helper()

	frame := backend.ReadFrame()
	require.Equal(backend.t, op, frame.Opcode, "unexpected frame opcode")
	return frame
}

// ReadPacket decodes the next length-prefixed client packet without an
// opcode, such as a credential.
func (backend *Backend) ReadPacket() []byte {
	backend.t.Helper()

	header := make([]byte, 4)
	_, err := io.ReadFull(backend.source(), header)
	require.NoError(backend.t, err)

	length := int(binary.BigEndian.Uint32(header))
	require.GreaterOrEqual(backend.t, length, 4, "packet length must cover itself")

	body := make([]byte, length-4)
	_, err = io.ReadFull(backend.source(), body)
	require.NoError(backend.t, err)

	return body
}

func (backend *Backend) write(p []byte) {
	backend.t.Helper()

	_, err := backend.conn.Write(p)
	require.NoError(backend.t, err)
}

// Accept acknowledges the previous client frame.
func (backend *Backend) Accept() {
	backend.write([]byte{byte(types.ServerAccept)})
}

// Renegotiate counter-offers a connection-protocol version as an ASCII
// digit.
func (backend *Backend) Renegotiate(digit byte) {
	backend.write([]byte{byte(types.ServerRenegotiate), digit})
}

// Secure announces that the session continues over TLS.
func (backend *Backend) Secure() {
	backend.write([]byte{byte(types.ServerSecured)})
}

// Reject answers the previous client frame with an error byte.
func (backend *Backend) Reject() {
	backend.write([]byte{byte(types.ServerError)})
}

// AuthRequest demands the given authentication method, appending the salt
// for the salted schemes.
func (backend *Backend) AuthRequest(method types.AuthMethod, salt []byte) {
	buf := []byte{byte(types.ServerAuth)}
	buf = binary.BigEndian.AppendUint32(buf, uint32(method))
	backend.write(append(buf, salt...))
}

// AuthOK announces that the session is authenticated.
func (backend *Backend) AuthOK() {
	backend.AuthRequest(types.AuthOK, nil)
}

// BackendKeyData announces the cancellation key data, including the filler
// bytes preceding it.
func (backend *Backend) BackendKeyData(pid, key int32) {
	buf := []byte{byte(types.ServerBackendKey)}
	buf = append(buf, make([]byte, 8)...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(pid))
	buf = binary.BigEndian.AppendUint32(buf, uint32(key))
	backend.write(buf)
}

// Notice sends a notice preamble: the filler bytes and an announced length.
func (backend *Backend) Notice(length int32) {
	buf := []byte{byte(types.ServerNotice)}
	buf = append(buf, make([]byte, 8)...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(length))
	backend.write(buf)
}

// ReadyForQuery signals the end of the handshake. Extra bytes are send in
// the same segment so tests can assert read-ahead behavior.
func (backend *Backend) ReadyForQuery(extra ...byte) {
	backend.write(append([]byte{byte(types.ServerReady)}, extra...))
}

// ErrorResponse fails the session with the given server error text.
func (backend *Backend) ErrorResponse(text string) {
	buf := append([]byte{byte(types.ServerError)}, []byte(text)...)
	backend.write(append(buf, 0))
}
