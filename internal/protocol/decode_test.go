package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeValue_SimpleString(t *testing.T) {
	v, n, err := DecodeValue([]byte("+OK\r\n"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, byte(TypeSimpleString), v.Type)
	assert.Equal(t, "OK", v.Str)
}

func TestDecodeValue_Error(t *testing.T) {
	v, n, err := DecodeValue([]byte("-ERR unknown command\r\n"))
	require.NoError(t, err)
	assert.Equal(t, 22, n)
	assert.Equal(t, byte(TypeError), v.Type)
	assert.Equal(t, "ERR unknown command", v.Str)
}

func TestDecodeValue_Integer(t *testing.T) {
	v, n, err := DecodeValue([]byte(":1000\r\n"))
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, int64(1000), v.Num)

	v, _, err = DecodeValue([]byte(":-100\r\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(-100), v.Num)
}

func TestDecodeValue_InvalidInteger(t *testing.T) {
	_, _, err := DecodeValue([]byte(":abc\r\n"))
	assert.ErrorIs(t, err, ErrInvalidProtocol)
}

func TestDecodeValue_BulkString(t *testing.T) {
	v, n, err := DecodeValue([]byte("$5\r\nhello\r\n"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	assert.Equal(t, byte(TypeBulkString), v.Type)
	assert.Equal(t, "hello", v.Str)
	assert.False(t, v.Null)
}

func TestDecodeValue_NullBulkString(t *testing.T) {
	v, n, err := DecodeValue([]byte("$-1\r\n"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.True(t, v.Null)
	assert.Equal(t, byte(TypeBulkString), v.Type)
}

func TestDecodeValue_EmptyBulkString(t *testing.T) {
	v, n, err := DecodeValue([]byte("$0\r\n\r\n"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, "", v.Str)
	assert.False(t, v.Null, "empty bulk string must not decode as null")
}

func TestDecodeValue_BulkStringBinary(t *testing.T) {
	// Payload bytes, CR and LF included, are opaque.
	v, _, err := DecodeValue([]byte("$4\r\na\r\nb\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "a\r\nb", v.Str)
}

func TestDecodeValue_BulkStringTooLarge(t *testing.T) {
	_, _, err := DecodeValue([]byte("$536870913\r\n"))
	assert.ErrorIs(t, err, ErrInvalidProtocol)
}

func TestDecodeValue_NegativeBulkLength(t *testing.T) {
	_, _, err := DecodeValue([]byte("$-2\r\n"))
	assert.ErrorIs(t, err, ErrInvalidProtocol)
}

func TestDecodeValue_Array(t *testing.T) {
	v, n, err := DecodeValue([]byte("*2\r\n$3\r\nGET\r\n$3\r\nkey\r\n"))
	require.NoError(t, err)
	assert.Equal(t, 22, n)
	require.Len(t, v.Array, 2)
	assert.Equal(t, "GET", v.Array[0].Str)
	assert.Equal(t, "key", v.Array[1].Str)
}

func TestDecodeValue_NullArray(t *testing.T) {
	v, _, err := DecodeValue([]byte("*-1\r\n"))
	require.NoError(t, err)
	assert.Equal(t, byte(TypeArray), v.Type)
	assert.True(t, v.Null)
}

func TestDecodeValue_EmptyArray(t *testing.T) {
	v, _, err := DecodeValue([]byte("*0\r\n"))
	require.NoError(t, err)
	assert.False(t, v.Null)
	assert.Len(t, v.Array, 0)
}

func TestDecodeValue_NestedArray(t *testing.T) {
	v, _, err := DecodeValue([]byte("*2\r\n*1\r\n:1\r\n$2\r\nok\r\n"))
	require.NoError(t, err)
	require.Len(t, v.Array, 2)
	require.Len(t, v.Array[0].Array, 1)
	assert.Equal(t, int64(1), v.Array[0].Array[0].Num)
}

func TestDecodeValue_NestingAtLimit(t *testing.T) {
	frame := strings.Repeat("*1\r\n", maxNestingDepth) + "$1\r\na\r\n"

	v, n, err := DecodeValue([]byte(frame))
	require.NoError(t, err)
	assert.Equal(t, len(frame), n)
	for i := 0; i < maxNestingDepth; i++ {
		require.Len(t, v.Array, 1)
		v = v.Array[0]
	}
	assert.Equal(t, "a", v.Str)
}

// TestDecodeValue_NestingTooDeep feeds a frame of stacked one-element array
// headers. The decoder must fail the frame instead of recursing once per
// level, which on a large input would exhaust the goroutine stack.
func TestDecodeValue_NestingTooDeep(t *testing.T) {
	frame := strings.Repeat("*1\r\n", 100_000) + "$1\r\na\r\n"

	_, _, err := DecodeValue([]byte(frame))
	assert.ErrorIs(t, err, ErrInvalidProtocol)

	_, _, err = DecodeCommand([]byte(frame))
	assert.ErrorIs(t, err, ErrInvalidProtocol)
}

func TestDecodeValue_UnknownType(t *testing.T) {
	_, _, err := DecodeValue([]byte("@oops\r\n"))
	assert.ErrorIs(t, err, ErrInvalidProtocol)
}

func TestDecodeValue_BareLF(t *testing.T) {
	_, _, err := DecodeValue([]byte("+OK\n"))
	assert.ErrorIs(t, err, ErrInvalidProtocol)
}

func TestDecodeValue_Incomplete(t *testing.T) {
	cases := []string{
		"",
		"+",
		"+OK",
		"+OK\r",
		"$5\r\n",
		"$5\r\nhel",
		"$5\r\nhello",
		"$5\r\nhello\r",
		"*2\r\n$3\r\nGET\r\n",
		"*2\r\n$3\r\nGET\r\n$3\r\nke",
	}
	for _, in := range cases {
		_, n, err := DecodeValue([]byte(in))
		assert.ErrorIs(t, err, ErrIncomplete, "input %q", in)
		assert.Zero(t, n, "input %q must consume nothing", in)
	}
}

func TestDecodeValue_ConsumesOnlyOneFrame(t *testing.T) {
	buf := []byte("+first\r\n+second\r\n")
	v, n, err := DecodeValue(buf)
	require.NoError(t, err)
	assert.Equal(t, "first", v.Str)

	v, _, err = DecodeValue(buf[n:])
	require.NoError(t, err)
	assert.Equal(t, "second", v.Str)
}

func TestDecodeCommand(t *testing.T) {
	cmd, n, err := DecodeCommand([]byte("*3\r\n$3\r\nSET\r\n$3\r\nfoo\r\n$3\r\nbar\r\n"))
	require.NoError(t, err)
	assert.Equal(t, 31, n)
	assert.Equal(t, "SET", cmd.Name)
	require.Len(t, cmd.Args, 2)
	assert.Equal(t, []byte("foo"), cmd.Args[0])
	assert.Equal(t, []byte("bar"), cmd.Args[1])
}

func TestDecodeCommand_RejectsNonArray(t *testing.T) {
	_, _, err := DecodeCommand([]byte("+PING\r\n"))
	assert.ErrorIs(t, err, ErrInvalidProtocol)
}

func TestDecodeCommand_RejectsEmptyArray(t *testing.T) {
	_, _, err := DecodeCommand([]byte("*0\r\n"))
	assert.ErrorIs(t, err, ErrInvalidProtocol)
}

func TestDecodeCommand_RejectsNonBulkElements(t *testing.T) {
	_, _, err := DecodeCommand([]byte("*1\r\n:42\r\n"))
	assert.ErrorIs(t, err, ErrInvalidProtocol)

	_, _, err = DecodeCommand([]byte("*1\r\n$-1\r\n"))
	assert.ErrorIs(t, err, ErrInvalidProtocol)
}

// Feeding a well-formed frame one byte at a time must report ErrIncomplete
// for every strict prefix, then decode the same command as the whole buffer.
func TestDecodeCommand_ByteAtATime(t *testing.T) {
	frame := []byte("*3\r\n$3\r\nSET\r\n$3\r\nfoo\r\n$3\r\nbar\r\n")

	for i := 1; i < len(frame); i++ {
		_, n, err := DecodeCommand(frame[:i])
		require.ErrorIs(t, err, ErrIncomplete, "prefix of length %d", i)
		require.Zero(t, n)
	}

	cmd, n, err := DecodeCommand(frame)
	require.NoError(t, err)
	assert.Equal(t, len(frame), n)
	assert.Equal(t, "SET", cmd.Name)
}
