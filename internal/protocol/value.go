// Package protocol implements the RESP2 wire format: a pure incremental
// decoder over byte buffers and an encoder for replies.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrIncomplete signals that the buffer holds only a prefix of a frame.
	// The caller should read more bytes and retry; nothing was consumed.
	ErrIncomplete = errors.New("protocol: incomplete frame")
	// ErrInvalidProtocol indicates malformed RESP data. Connections that
	// produce it are beyond recovery and should be closed.
	ErrInvalidProtocol = errors.New("protocol: invalid RESP format")
)

// RESP type sigils.
const (
	TypeSimpleString = '+'
	TypeError        = '-'
	TypeInteger      = ':'
	TypeBulkString   = '$'
	TypeArray        = '*'
)

const (
	maxBulkStringLength = 512 * 1024 * 1024 // 512 MiB
	maxArrayLength      = 1_000_000
	maxNestingDepth     = 32
)

// Value is a RESP value. Null distinguishes the null bulk string ($-1) and
// null array (*-1) from their empty counterparts.
type Value struct {
	Type  byte
	Str   string
	Num   int64
	Array []Value
	Null  bool
}

// SimpleString returns a +text value.
func SimpleString(s string) Value { return Value{Type: TypeSimpleString, Str: s} }

// Err returns a -text error value.
func Err(msg string) Value { return Value{Type: TypeError, Str: msg} }

// Errf formats an ERR-prefixed error reply.
func Errf(format string, args ...interface{}) Value {
	return Value{Type: TypeError, Str: "ERR " + fmt.Sprintf(format, args...)}
}

// Int returns a :n integer value.
func Int(n int64) Value { return Value{Type: TypeInteger, Num: n} }

// Bulk returns a bulk string value holding b.
func Bulk(b []byte) Value { return Value{Type: TypeBulkString, Str: string(b)} }

// BulkString returns a bulk string value holding s.
func BulkString(s string) Value { return Value{Type: TypeBulkString, Str: s} }

// NullBulk returns the null bulk string ($-1).
func NullBulk() Value { return Value{Type: TypeBulkString, Null: true} }

// NullArray returns the null array (*-1).
func NullArray() Value { return Value{Type: TypeArray, Null: true} }

// ArrayOf returns an array value over the given elements. ArrayOf() with no
// elements is the empty array, not the null array.
func ArrayOf(elems ...Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{Type: TypeArray, Array: elems}
}

// IsError reports whether v is an error reply.
func (v Value) IsError() bool { return v.Type == TypeError }

// AppendValue appends the wire encoding of v to dst and returns the extended
// slice. Encoding is total: every well-formed Value has exactly one encoding.
func AppendValue(dst []byte, v Value) []byte {
	switch v.Type {
	case TypeSimpleString:
		dst = append(dst, '+')
		dst = append(dst, v.Str...)
		return append(dst, '\r', '\n')
	case TypeError:
		dst = append(dst, '-')
		dst = append(dst, v.Str...)
		return append(dst, '\r', '\n')
	case TypeInteger:
		dst = append(dst, ':')
		dst = strconv.AppendInt(dst, v.Num, 10)
		return append(dst, '\r', '\n')
	case TypeBulkString:
		if v.Null {
			return append(dst, "$-1\r\n"...)
		}
		dst = append(dst, '$')
		dst = strconv.AppendInt(dst, int64(len(v.Str)), 10)
		dst = append(dst, '\r', '\n')
		dst = append(dst, v.Str...)
		return append(dst, '\r', '\n')
	case TypeArray:
		if v.Null {
			return append(dst, "*-1\r\n"...)
		}
		dst = append(dst, '*')
		dst = strconv.AppendInt(dst, int64(len(v.Array)), 10)
		dst = append(dst, '\r', '\n')
		for _, elem := range v.Array {
			dst = AppendValue(dst, elem)
		}
		return dst
	}
	// Unknown types cannot be constructed through this package's API.
	return dst
}

// Encode returns the wire encoding of v.
func Encode(v Value) []byte {
	return AppendValue(nil, v)
}
