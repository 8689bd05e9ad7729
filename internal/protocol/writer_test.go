package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendValue(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		want string
	}{
		{"simple string", SimpleString("PONG"), "+PONG\r\n"},
		{"error", Err("ERR boom"), "-ERR boom\r\n"},
		{"integer", Int(42), ":42\r\n"},
		{"negative integer", Int(-7), ":-7\r\n"},
		{"bulk string", BulkString("hello"), "$5\r\nhello\r\n"},
		{"empty bulk string", BulkString(""), "$0\r\n\r\n"},
		{"null bulk string", NullBulk(), "$-1\r\n"},
		{"array", ArrayOf(BulkString("a"), Int(1)), "*2\r\n$1\r\na\r\n:1\r\n"},
		{"empty array", ArrayOf(), "*0\r\n"},
		{"null array", NullArray(), "*-1\r\n"},
		{"nested array", ArrayOf(ArrayOf(SimpleString("x"))), "*1\r\n*1\r\n+x\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(Encode(tt.in)))
		})
	}
}

func TestWriter_MatchesAppendValue(t *testing.T) {
	values := []Value{
		SimpleString("OK"),
		SimpleString("PONG"),
		SimpleString("some status"),
		Err("WRONGTYPE Operation against a key holding the wrong kind of value"),
		Int(1234567890),
		BulkString("payload"),
		BulkString(""),
		NullBulk(),
		ArrayOf(BulkString("k"), NullBulk(), Int(3)),
		NullArray(),
	}
	for _, v := range values {
		var buf bytes.Buffer
		w := NewWriter(&buf)
		require.NoError(t, w.WriteValue(v))
		assert.Equal(t, string(Encode(v)), buf.String())
	}
}

func TestWriter_WriteError_AddsPrefix(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteError("unknown command 'FOO'"))
	assert.Equal(t, "-ERR unknown command 'FOO'\r\n", buf.String())
}

func TestWriter_AutoFlushDisabled(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.SetAutoFlush(false)

	require.NoError(t, w.WriteSimpleString("OK"))
	assert.Zero(t, buf.Len(), "nothing should reach the sink before Flush")

	require.NoError(t, w.Flush())
	assert.Equal(t, "+OK\r\n", buf.String())
}

func TestReader_RoundTripThroughWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteArray([][]byte{[]byte("GET"), []byte("foo")}))

	r := NewReader(&buf)
	cmd, err := r.ReadCommand()
	require.NoError(t, err)
	assert.Equal(t, "GET", cmd.Name)
	require.Len(t, cmd.Args, 1)
	assert.Equal(t, []byte("foo"), cmd.Args[0])
}

func TestReader_Pipelined(t *testing.T) {
	buf := bytes.NewBufferString("*1\r\n$4\r\nPING\r\n*2\r\n$4\r\nECHO\r\n$2\r\nhi\r\n")
	r := NewReader(buf)

	first, err := r.ReadCommand()
	require.NoError(t, err)
	assert.Equal(t, "PING", first.Name)
	assert.NotZero(t, r.Buffered())

	second, err := r.ReadCommand()
	require.NoError(t, err)
	assert.Equal(t, "ECHO", second.Name)
}
