package protocol

import (
	"errors"
	"io"
)

// Reader decodes RESP values from a byte stream by accumulating reads into a
// buffer and handing complete frames to the pure decoder. It keeps the
// blocking I/O out of the decode path so the decoder stays testable on plain
// byte slices.
type Reader struct {
	rd  io.Reader
	buf []byte
}

// NewReader creates a RESP Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{rd: r, buf: make([]byte, 0, 4096)}
}

// Buffered returns the number of bytes already read but not yet decoded.
// A non-zero result after a full frame means the peer pipelined requests.
func (r *Reader) Buffered() int { return len(r.buf) }

// ReadValue reads one complete RESP value, blocking on the underlying
// reader until a full frame is available.
func (r *Reader) ReadValue() (Value, error) {
	for {
		if len(r.buf) > 0 {
			v, n, err := DecodeValue(r.buf)
			if err == nil {
				r.consume(n)
				return v, nil
			}
			if !errors.Is(err, ErrIncomplete) {
				return Value{}, err
			}
		}
		if err := r.fill(); err != nil {
			return Value{}, err
		}
	}
}

// ReadCommand reads one complete client command.
func (r *Reader) ReadCommand() (Command, error) {
	for {
		if len(r.buf) > 0 {
			cmd, n, err := DecodeCommand(r.buf)
			if err == nil {
				r.consume(n)
				return cmd, nil
			}
			if !errors.Is(err, ErrIncomplete) {
				return Command{}, err
			}
		}
		if err := r.fill(); err != nil {
			return Command{}, err
		}
	}
}

func (r *Reader) fill() error {
	var chunk [4096]byte
	n, err := r.rd.Read(chunk[:])
	if n > 0 {
		r.buf = append(r.buf, chunk[:n]...)
		return nil
	}
	if err == nil {
		err = io.ErrNoProgress
	}
	// Bytes of a half-received frame at EOF mean the peer quit mid-send.
	if err == io.EOF && len(r.buf) > 0 {
		return io.ErrUnexpectedEOF
	}
	return err
}

func (r *Reader) consume(n int) {
	rest := len(r.buf) - n
	copy(r.buf, r.buf[n:])
	r.buf = r.buf[:rest]
}
