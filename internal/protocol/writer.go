package protocol

import (
	"bufio"
	"io"
	"strconv"
	"sync"
)

const defaultBufSize = 64 * 1024 // 64 KiB write buffer

// Shared byte slices to avoid allocations on every write.
var (
	crlfBytes = []byte("\r\n")
	nullBytes = []byte("$-1\r\n")
	pongBytes = []byte("+PONG\r\n")
	okBytes   = []byte("+OK\r\n")
)

// intBufPool provides scratch buffers for integer formatting.
var intBufPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 0, 20) // max int64 is 19 digits + sign
		return &b
	},
}

// Writer encodes RESP replies into a bufio.Writer. By default every Write*
// call flushes immediately; disable auto-flush before serving a pipelined
// batch and call Flush once at the end to amortise syscalls.
type Writer struct {
	wr        *bufio.Writer
	autoFlush bool
}

// NewWriter creates a RESP Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{wr: bufio.NewWriterSize(w, defaultBufSize), autoFlush: true}
}

// SetAutoFlush controls whether each Write* call flushes automatically.
func (w *Writer) SetAutoFlush(on bool) { w.autoFlush = on }

// Flush writes any buffered data to the underlying io.Writer.
func (w *Writer) Flush() error { return w.wr.Flush() }

func (w *Writer) flush() error {
	if w.autoFlush {
		return w.wr.Flush()
	}
	return nil
}

// WriteValue writes any reply value, dispatching to the type-specific
// fast paths.
func (w *Writer) WriteValue(v Value) error {
	switch v.Type {
	case TypeSimpleString:
		return w.WriteSimpleString(v.Str)
	case TypeError:
		return w.writeRawError(v.Str)
	case TypeInteger:
		return w.WriteInteger(v.Num)
	case TypeBulkString:
		if v.Null {
			return w.WriteNull()
		}
		return w.WriteBulkString([]byte(v.Str))
	case TypeArray:
		if v.Null {
			if _, err := w.wr.Write([]byte("*-1\r\n")); err != nil {
				return err
			}
			return w.flush()
		}
		if err := w.writeTypedInt('*', int64(len(v.Array))); err != nil {
			return err
		}
		old := w.autoFlush
		w.autoFlush = false
		for _, elem := range v.Array {
			if err := w.WriteValue(elem); err != nil {
				w.autoFlush = old
				return err
			}
		}
		w.autoFlush = old
		return w.flush()
	}
	return ErrInvalidProtocol
}

// writeTypedInt writes a type sigil followed by the decimal form of n,
// using strconv.AppendInt instead of fmt to avoid allocations.
func (w *Writer) writeTypedInt(prefix byte, n int64) error {
	if err := w.wr.WriteByte(prefix); err != nil {
		return err
	}
	bp := intBufPool.Get().(*[]byte)
	b := strconv.AppendInt((*bp)[:0], n, 10)
	_, err := w.wr.Write(b)
	*bp = b
	intBufPool.Put(bp)
	if err != nil {
		return err
	}
	_, err = w.wr.Write(crlfBytes)
	return err
}

// WriteSimpleString writes a simple string reply (+OK and +PONG fast paths).
func (w *Writer) WriteSimpleString(s string) error {
	switch s {
	case "OK":
		if _, err := w.wr.Write(okBytes); err != nil {
			return err
		}
		return w.flush()
	case "PONG":
		if _, err := w.wr.Write(pongBytes); err != nil {
			return err
		}
		return w.flush()
	}
	if err := w.wr.WriteByte('+'); err != nil {
		return err
	}
	if _, err := w.wr.WriteString(s); err != nil {
		return err
	}
	if _, err := w.wr.Write(crlfBytes); err != nil {
		return err
	}
	return w.flush()
}

// WriteError writes an error reply with the conventional ERR prefix.
func (w *Writer) WriteError(msg string) error {
	return w.writeRawError("ERR " + msg)
}

// writeRawError writes an error reply with msg taken verbatim, so handlers
// can emit their own prefixes (WRONGTYPE, NOAUTH, ...).
func (w *Writer) writeRawError(msg string) error {
	if err := w.wr.WriteByte('-'); err != nil {
		return err
	}
	if _, err := w.wr.WriteString(msg); err != nil {
		return err
	}
	if _, err := w.wr.Write(crlfBytes); err != nil {
		return err
	}
	return w.flush()
}

// WriteInteger writes an integer reply.
func (w *Writer) WriteInteger(n int64) error {
	if err := w.writeTypedInt(':', n); err != nil {
		return err
	}
	return w.flush()
}

// WriteBulkString writes a bulk string reply.
func (w *Writer) WriteBulkString(s []byte) error {
	if err := w.writeTypedInt('$', int64(len(s))); err != nil {
		return err
	}
	if _, err := w.wr.Write(s); err != nil {
		return err
	}
	if _, err := w.wr.Write(crlfBytes); err != nil {
		return err
	}
	return w.flush()
}

// WriteNull writes a null bulk string reply.
func (w *Writer) WriteNull() error {
	if _, err := w.wr.Write(nullBytes); err != nil {
		return err
	}
	return w.flush()
}

// WriteArray writes an array of bulk strings, the multibulk request form.
func (w *Writer) WriteArray(items [][]byte) error {
	if err := w.writeTypedInt('*', int64(len(items))); err != nil {
		return err
	}
	for _, item := range items {
		if err := w.writeTypedInt('$', int64(len(item))); err != nil {
			return err
		}
		if _, err := w.wr.Write(item); err != nil {
			return err
		}
		if _, err := w.wr.Write(crlfBytes); err != nil {
			return err
		}
	}
	return w.flush()
}
