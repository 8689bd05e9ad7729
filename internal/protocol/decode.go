package protocol

import (
	"bytes"
	"fmt"
	"strconv"
)

// Command is one decoded client request: the command name followed by its
// arguments, taken from a top-level array of bulk strings. Name keeps the
// client's original casing; lookup is the dispatcher's concern.
type Command struct {
	Name string
	Args [][]byte
}

// DecodeValue decodes a single RESP value from the front of buf. It is a pure
// function of buf's contents: it never blocks, and when buf holds only a
// strict prefix of a frame it returns ErrIncomplete with zero bytes consumed
// so the caller can read more and retry with the fuller buffer.
func DecodeValue(buf []byte) (Value, int, error) {
	v, n, err := decodeValue(buf, 0)
	if err != nil {
		return Value{}, 0, err
	}
	return v, n, nil
}

// DecodeCommand decodes one client command from the front of buf. Top-level
// requests must be an array of bulk strings with at least one element; any
// other shape is a protocol error.
func DecodeCommand(buf []byte) (Command, int, error) {
	v, n, err := decodeValue(buf, 0)
	if err != nil {
		return Command{}, 0, err
	}
	if v.Type != TypeArray || v.Null {
		return Command{}, 0, fmt.Errorf("%w: expected array, got %c", ErrInvalidProtocol, v.Type)
	}
	if len(v.Array) == 0 {
		return Command{}, 0, fmt.Errorf("%w: empty command array", ErrInvalidProtocol)
	}
	for i, elem := range v.Array {
		if elem.Type != TypeBulkString || elem.Null {
			return Command{}, 0, fmt.Errorf("%w: command element %d is not a bulk string", ErrInvalidProtocol, i)
		}
	}
	cmd := Command{
		Name: v.Array[0].Str,
		Args: make([][]byte, 0, len(v.Array)-1),
	}
	for _, elem := range v.Array[1:] {
		cmd.Args = append(cmd.Args, []byte(elem.Str))
	}
	return cmd, n, nil
}

func decodeValue(buf []byte, depth int) (Value, int, error) {
	if depth > maxNestingDepth {
		return Value{}, 0, fmt.Errorf("%w: nesting too deep", ErrInvalidProtocol)
	}
	if len(buf) == 0 {
		return Value{}, 0, ErrIncomplete
	}
	switch buf[0] {
	case TypeSimpleString, TypeError:
		line, n, err := decodeLine(buf[1:])
		if err != nil {
			return Value{}, 0, err
		}
		return Value{Type: buf[0], Str: string(line)}, 1 + n, nil
	case TypeInteger:
		line, n, err := decodeLine(buf[1:])
		if err != nil {
			return Value{}, 0, err
		}
		num, err := strconv.ParseInt(string(line), 10, 64)
		if err != nil {
			return Value{}, 0, fmt.Errorf("%w: invalid integer %q", ErrInvalidProtocol, line)
		}
		return Value{Type: TypeInteger, Num: num}, 1 + n, nil
	case TypeBulkString:
		return decodeBulkString(buf)
	case TypeArray:
		return decodeArray(buf, depth)
	default:
		return Value{}, 0, fmt.Errorf("%w: unknown type %q", ErrInvalidProtocol, buf[0])
	}
}

// decodeLine returns the bytes up to the next CRLF and the count consumed
// including the terminator. A bare LF or a CR not followed by LF is malformed.
func decodeLine(buf []byte) ([]byte, int, error) {
	i := bytes.IndexByte(buf, '\n')
	if i < 0 {
		// A trailing CR may still become CRLF once more bytes arrive.
		return nil, 0, ErrIncomplete
	}
	if i == 0 || buf[i-1] != '\r' {
		return nil, 0, fmt.Errorf("%w: line not terminated by CRLF", ErrInvalidProtocol)
	}
	return buf[:i-1], i + 1, nil
}

func decodeBulkString(buf []byte) (Value, int, error) {
	line, n, err := decodeLine(buf[1:])
	if err != nil {
		return Value{}, 0, err
	}
	length, err := strconv.ParseInt(string(line), 10, 64)
	if err != nil {
		return Value{}, 0, fmt.Errorf("%w: invalid bulk string length %q", ErrInvalidProtocol, line)
	}
	header := 1 + n

	if length == -1 {
		return Value{Type: TypeBulkString, Null: true}, header, nil
	}
	if length < 0 {
		return Value{}, 0, fmt.Errorf("%w: negative bulk string length", ErrInvalidProtocol)
	}
	if length > maxBulkStringLength {
		return Value{}, 0, fmt.Errorf("%w: bulk string too large", ErrInvalidProtocol)
	}

	total := header + int(length) + 2
	if len(buf) < total {
		return Value{}, 0, ErrIncomplete
	}
	payload := buf[header : header+int(length)]
	if buf[total-2] != '\r' || buf[total-1] != '\n' {
		return Value{}, 0, fmt.Errorf("%w: bulk string payload not terminated by CRLF", ErrInvalidProtocol)
	}
	return Value{Type: TypeBulkString, Str: string(payload)}, total, nil
}

func decodeArray(buf []byte, depth int) (Value, int, error) {
	line, n, err := decodeLine(buf[1:])
	if err != nil {
		return Value{}, 0, err
	}
	count, err := strconv.ParseInt(string(line), 10, 64)
	if err != nil {
		return Value{}, 0, fmt.Errorf("%w: invalid array length %q", ErrInvalidProtocol, line)
	}
	consumed := 1 + n

	if count == -1 {
		return Value{Type: TypeArray, Null: true}, consumed, nil
	}
	if count < 0 {
		return Value{}, 0, fmt.Errorf("%w: negative array length", ErrInvalidProtocol)
	}
	if count > maxArrayLength {
		return Value{}, 0, fmt.Errorf("%w: array too large", ErrInvalidProtocol)
	}

	elems := make([]Value, 0, count)
	for i := int64(0); i < count; i++ {
		elem, n, err := decodeValue(buf[consumed:], depth+1)
		if err != nil {
			// Incomplete elements make the whole frame incomplete;
			// decode restarts from the top once more bytes arrive.
			return Value{}, 0, err
		}
		elems = append(elems, elem)
		consumed += n
	}
	return Value{Type: TypeArray, Array: elems}, consumed, nil
}
