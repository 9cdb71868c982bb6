package buffer

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"

	"github.com/npsdb/nps-wire/pkg/types"
)

// Writer provides a convenient way to write handshake frames. A frame carries
// a big-endian int32 length counting itself, usually followed by a big-endian
// int16 opcode and the frame body.
type Writer struct {
	io.Writer
	logger *slog.Logger
	frame  bytes.Buffer
	putbuf [4]byte
	opcode types.Opcode
	typed  bool
	err    error
}

// NewWriter constructs a new buffered frame writer for the given io.Writer
func NewWriter(logger *slog.Logger, writer io.Writer) *Writer {
	return &Writer{
		logger: logger,
		Writer: writer,
	}
}

// Start resets the writer and starts a new frame with the given opcode. The
// reserved frame length bytes (int32) and the opcode (int16) are written to
// the underlaying bytes buffer.
func (writer *Writer) Start(op types.Opcode) {
	writer.Reset()
	writer.opcode = op
	writer.typed = true
	writer.frame.Write(writer.putbuf[:4]) // reserved frame length
	writer.AddInt16(int16(op))
}

// StartPacket resets the writer and starts a new frame without an opcode,
// reserving only the frame length bytes. Credential frames use this layout.
func (writer *Writer) StartPacket() {
	writer.Reset()
	writer.opcode = 0
	writer.typed = false
	writer.frame.Write(writer.putbuf[:4])
}

// AddByte writes the given byte to the writer frame. Errors thrown while
// writing to the frame could be read by calling writer.Error()
func (writer *Writer) AddByte(b byte) {
	if writer.err != nil {
		return
	}

	writer.err = writer.frame.WriteByte(b)
}

// AddInt16 writes the given int16 to the writer frame in big-endian order.
func (writer *Writer) AddInt16(i int16) (size int) {
	if writer.err != nil {
		return size
	}

	binary.BigEndian.PutUint16(writer.putbuf[:2], uint16(i))
	size, writer.err = writer.frame.Write(writer.putbuf[:2])
	return size
}

// AddInt32 writes the given int32 to the writer frame in big-endian order.
func (writer *Writer) AddInt32(i int32) (size int) {
	if writer.err != nil {
		return size
	}

	binary.BigEndian.PutUint32(writer.putbuf[:4], uint32(i))
	size, writer.err = writer.frame.Write(writer.putbuf[:4])
	return size
}

// AddBytes writes the given bytes to the writer frame.
func (writer *Writer) AddBytes(b []byte) (size int) {
	if writer.err != nil {
		return size
	}

	size, writer.err = writer.frame.Write(b)
	return size
}

// AddString writes the given string to the writer frame. The string is not
// null terminated; call AddNullTerminate when the body encoding requires it.
func (writer *Writer) AddString(s string) (size int) {
	if writer.err != nil {
		return size
	}

	size, writer.err = writer.frame.WriteString(s)
	return size
}

// AddNullTerminate writes a null terminate symbol to the end of the frame
func (writer *Writer) AddNullTerminate() {
	if writer.err != nil {
		return
	}

	writer.err = writer.frame.WriteByte(0)
}

func (writer *Writer) Error() error {
	return writer.err
}

// Bytes returns the written bytes of the active frame
func (writer *Writer) Bytes() []byte {
	return writer.frame.Bytes()
}

// Reset resets the frame to be empty
func (writer *Writer) Reset() {
	writer.frame.Reset()
	writer.err = nil
}

// End writes the prepared frame to the underlaying writer and resets the
// buffer. The frame length, counting itself, is patched into the reserved
// leading bytes.
func (writer *Writer) End() error {
	defer writer.Reset()
	if writer.err != nil {
		return writer.err
	}

	frame := writer.frame.Bytes()
	binary.BigEndian.PutUint32(frame[:4], uint32(len(frame)))

	_, err := writer.Write(frame)
	if writer.typed {
		writer.logger.Debug("-> writing frame", slog.String("opcode", writer.opcode.String()), slog.Int("size", len(frame)))
	} else {
		writer.logger.Debug("-> writing packet", slog.Int("size", len(frame)))
	}

	return err
}
