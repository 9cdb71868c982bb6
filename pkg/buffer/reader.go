package buffer

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultBufferSize represents the default buffer size whenever the buffer
// size is not set or a negative value is presented.
const DefaultBufferSize = 1 << 16 // 65536 bytes

// DefaultReadTimeout bounds the wait for a single read to make progress.
const DefaultReadTimeout = 30 * time.Second

// Reader is the single consumer of transport read events during a handshake.
// All inbound bytes pass through its buffer and are handed out in FIFO order.
// Reading ahead past a message boundary is allowed; excess bytes remain
// buffered until they are either consumed or drained.
type Reader struct {
	logger *slog.Logger
	Buffer *bufio.Reader
	// Timeout bounds the wait of a single read call. A non-positive timeout
	// disables the read deadline.
	Timeout time.Duration
	// Deadline optionally caps all reads at an absolute point in time,
	// typically derived from a context deadline.
	Deadline time.Time
	Clock    clockwork.Clock

	src  io.Reader
	size int
}

// NewReader constructs a new buffered handshake reader for the given source.
func NewReader(logger *slog.Logger, src io.Reader, bufferSize int) *Reader {
	if src == nil {
		return nil
	}

	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	return &Reader{
		logger:  logger,
		Buffer:  bufio.NewReaderSize(src, bufferSize),
		Timeout: DefaultReadTimeout,
		Clock:   clockwork.NewRealClock(),
		src:     src,
		size:    bufferSize,
	}
}

// Rewire returns a fresh reader consuming from the given source while
// carrying over the configured timeout, deadline and clock. It is used when
// the transport is replaced mid-stream, such as after an in-band TLS upgrade.
// Bytes still buffered inside the old reader belong to the old transport
// layer and are intentionally left behind; callers must check Buffered
// before rewiring.
func (reader *Reader) Rewire(src io.Reader) *Reader {
	next := NewReader(reader.logger, src, reader.size)
	next.Timeout = reader.Timeout
	next.Deadline = reader.Deadline
	next.Clock = reader.Clock
	return next
}

// readDeadliner is implemented by transports supporting read deadlines, such
// as net.Conn and tls.Conn.
type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// arm pushes the read deadline forward before a blocking read. Transports
// without deadline support are read without a bound.
func (reader *Reader) arm() {
	conn, ok := reader.src.(readDeadliner)
	if !ok {
		return
	}

	var deadline time.Time
	if reader.Timeout > 0 {
		deadline = reader.Clock.Now().Add(reader.Timeout)
	}

	if !reader.Deadline.IsZero() && (deadline.IsZero() || reader.Deadline.Before(deadline)) {
		deadline = reader.Deadline
	}

	conn.SetReadDeadline(deadline) //nolint:errcheck
}

// failure translates low-level read errors into their connection failure
// counterparts.
func (reader *Reader) failure(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return NewTransportClosed(err)
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return NewReadTimeout(reader.Timeout)
	}

	return err
}

// ReadByte returns the next byte from the buffer, waiting for it to arrive
// when the buffer is empty.
func (reader *Reader) ReadByte() (byte, error) {
	reader.arm()

	b, err := reader.Buffer.ReadByte()
	if err != nil {
		return 0, reader.failure(err)
	}

	return b, nil
}

// ReadExact returns the next n bytes from the buffer in FIFO order, waiting
// until all of them have arrived.
func (reader *Reader) ReadExact(n int) ([]byte, error) {
	reader.arm()

	buf := make([]byte, n)
	if _, err := io.ReadFull(reader.Buffer, buf); err != nil {
		return nil, reader.failure(err)
	}

	return buf, nil
}

// ReadUint16 reads a big-endian uint16.
func (reader *Reader) ReadUint16() (uint16, error) {
	buf, err := reader.ReadExact(2)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint16(buf), nil
}

// ReadUint32 reads a big-endian uint32.
func (reader *Reader) ReadUint32() (uint32, error) {
	buf, err := reader.ReadExact(4)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint32(buf), nil
}

// ReadInt32 reads a big-endian int32.
func (reader *Reader) ReadInt32() (int32, error) {
	v, err := reader.ReadUint32()
	return int32(v), err
}

// ReadAvailable returns whatever bytes are currently available, up to max.
// At least one byte is waited for; the call does not block for max bytes to
// arrive.
func (reader *Reader) ReadAvailable(max int) ([]byte, error) {
	reader.arm()

	buf := make([]byte, max)
	n, err := reader.Buffer.Read(buf)
	if err != nil {
		return nil, reader.failure(err)
	}

	return buf[:n], nil
}

// Buffered returns the number of bytes received but not yet consumed.
func (reader *Reader) Buffered() int {
	return reader.Buffer.Buffered()
}

// Drain removes and returns all bytes received but not yet consumed. It never
// blocks; a fully consumed buffer yields nil.
func (reader *Reader) Drain() ([]byte, error) {
	n := reader.Buffer.Buffered()
	if n == 0 {
		return nil, nil
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(reader.Buffer, buf); err != nil {
		return nil, reader.failure(err)
	}

	reader.logger.Debug("<- draining read-ahead", slog.Int("size", n))
	return buf, nil
}
