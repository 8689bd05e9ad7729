package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberdb/emberdb/internal/protocol"
	"github.com/emberdb/emberdb/internal/store"
)

func TestPing(t *testing.T) {
	db := store.New()
	defer db.Close()

	assert.Equal(t, protocol.SimpleString("PONG"), dispatch(t, db, "PING"))
	assert.Equal(t, protocol.BulkString("hello"), dispatch(t, db, "PING", "hello"))
}

func TestEcho(t *testing.T) {
	db := store.New()
	defer db.Close()

	assert.Equal(t, protocol.BulkString("hey"), dispatch(t, db, "ECHO", "hey"))
}

func TestSetGet(t *testing.T) {
	db := store.New()
	defer db.Close()

	assert.Equal(t, protocol.SimpleString("OK"), dispatch(t, db, "SET", "foo", "bar"))
	assert.Equal(t, protocol.BulkString("bar"), dispatch(t, db, "GET", "foo"))
	assert.Equal(t, protocol.NullBulk(), dispatch(t, db, "GET", "missing"))
}

func TestSet_LastWriterWins(t *testing.T) {
	db := store.New()
	defer db.Close()

	dispatch(t, db, "SET", "k", "v1")
	dispatch(t, db, "SET", "k", "v2")
	assert.Equal(t, protocol.BulkString("v2"), dispatch(t, db, "GET", "k"))
}

func TestSet_Options(t *testing.T) {
	db := store.New()
	defer db.Close()

	assert.Equal(t, protocol.SimpleString("OK"), dispatch(t, db, "SET", "k", "v", "NX"))
	assert.Equal(t, protocol.NullBulk(), dispatch(t, db, "SET", "k", "v2", "NX"))
	assert.Equal(t, protocol.SimpleString("OK"), dispatch(t, db, "SET", "k", "v3", "XX"))
	assert.Equal(t, protocol.NullBulk(), dispatch(t, db, "SET", "other", "v", "XX"))

	reply := dispatch(t, db, "SET", "k", "v", "PX", "100")
	assert.Equal(t, protocol.SimpleString("OK"), reply)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, protocol.NullBulk(), dispatch(t, db, "GET", "k"))

	assert.True(t, dispatch(t, db, "SET", "k", "v", "EX", "0").IsError())
	assert.True(t, dispatch(t, db, "SET", "k", "v", "NX", "XX").IsError())
	assert.True(t, dispatch(t, db, "SET", "k", "v", "BOGUS").IsError())
}

func TestDelExists(t *testing.T) {
	db := store.New()
	defer db.Close()

	dispatch(t, db, "SET", "a", "1")
	dispatch(t, db, "SET", "b", "2")

	assert.Equal(t, protocol.Int(2), dispatch(t, db, "EXISTS", "a", "b", "c"))
	assert.Equal(t, protocol.Int(2), dispatch(t, db, "DEL", "a", "b", "c"))
	assert.Equal(t, protocol.Int(0), dispatch(t, db, "EXISTS", "a", "b"))
}

func TestType(t *testing.T) {
	db := store.New()
	defer db.Close()

	dispatch(t, db, "SET", "s", "v")
	dispatch(t, db, "RPUSH", "l", "v")
	dispatch(t, db, "XADD", "st", "1-1", "f", "v")

	assert.Equal(t, protocol.SimpleString("string"), dispatch(t, db, "TYPE", "s"))
	assert.Equal(t, protocol.SimpleString("list"), dispatch(t, db, "TYPE", "l"))
	assert.Equal(t, protocol.SimpleString("stream"), dispatch(t, db, "TYPE", "st"))
	assert.Equal(t, protocol.SimpleString("none"), dispatch(t, db, "TYPE", "missing"))
}

func TestKeysGlob(t *testing.T) {
	db := store.New()
	defer db.Close()

	dispatch(t, db, "SET", "user:1", "a")
	dispatch(t, db, "SET", "user:2", "b")
	dispatch(t, db, "SET", "session:1", "c")

	reply := dispatch(t, db, "KEYS", "user:*")
	require.Equal(t, byte(protocol.TypeArray), reply.Type)
	got := make([]string, 0, len(reply.Array))
	for _, v := range reply.Array {
		got = append(got, v.Str)
	}
	assert.ElementsMatch(t, []string{"user:1", "user:2"}, got)

	reply = dispatch(t, db, "KEYS", "user:?")
	assert.Len(t, reply.Array, 2)

	reply = dispatch(t, db, "KEYS", "nomatch*")
	assert.Empty(t, reply.Array)
}

func TestIncrDecr(t *testing.T) {
	db := store.New()
	defer db.Close()

	assert.Equal(t, protocol.Int(1), dispatch(t, db, "INCR", "n"))
	assert.Equal(t, protocol.Int(11), dispatch(t, db, "INCRBY", "n", "10"))
	assert.Equal(t, protocol.Int(10), dispatch(t, db, "DECR", "n"))

	dispatch(t, db, "SET", "s", "abc")
	reply := dispatch(t, db, "INCR", "s")
	require.True(t, reply.IsError())
	assert.Contains(t, reply.Str, "not an integer")

	reply = dispatch(t, db, "INCRBY", "n", "notanum")
	assert.True(t, reply.IsError())
}

func TestWrongTypeReply(t *testing.T) {
	db := store.New()
	defer db.Close()

	dispatch(t, db, "RPUSH", "l", "v")
	reply := dispatch(t, db, "GET", "l")
	require.True(t, reply.IsError())
	assert.Contains(t, reply.Str, "WRONGTYPE")

	dispatch(t, db, "SET", "s", "v")
	reply = dispatch(t, db, "LPUSH", "s", "v")
	require.True(t, reply.IsError())
	assert.Contains(t, reply.Str, "WRONGTYPE")
}

func TestListCommands(t *testing.T) {
	db := store.New()
	defer db.Close()

	assert.Equal(t, protocol.Int(2), dispatch(t, db, "RPUSH", "l", "a", "b"))
	assert.Equal(t, protocol.Int(3), dispatch(t, db, "LPUSH", "l", "c"))
	assert.Equal(t, protocol.Int(3), dispatch(t, db, "LLEN", "l"))

	reply := dispatch(t, db, "LRANGE", "l", "0", "-1")
	require.Equal(t, byte(protocol.TypeArray), reply.Type)
	require.Len(t, reply.Array, 3)
	assert.Equal(t, "c", reply.Array[0].Str)

	assert.Equal(t, protocol.BulkString("c"), dispatch(t, db, "LPOP", "l"))

	reply = dispatch(t, db, "LPOP", "l", "5")
	require.Equal(t, byte(protocol.TypeArray), reply.Type)
	assert.Len(t, reply.Array, 2)

	assert.Equal(t, protocol.NullBulk(), dispatch(t, db, "LPOP", "l"))
	reply = dispatch(t, db, "LPOP", "l", "2")
	assert.True(t, reply.Null)
}

func TestBLPopCommand(t *testing.T) {
	db := store.New()
	defer db.Close()

	// Non-blocking path: data already present.
	dispatch(t, db, "RPUSH", "l", "v")
	reply := dispatch(t, db, "BLPOP", "l", "0.1")
	require.Equal(t, byte(protocol.TypeArray), reply.Type)
	require.Len(t, reply.Array, 2)
	assert.Equal(t, "l", reply.Array[0].Str)
	assert.Equal(t, "v", reply.Array[1].Str)

	// Timeout path: null array.
	reply = dispatch(t, db, "BLPOP", "l", "0.05")
	assert.Equal(t, byte(protocol.TypeArray), reply.Type)
	assert.True(t, reply.Null)

	reply = dispatch(t, db, "BLPOP", "l", "nope")
	assert.True(t, reply.IsError())
}

func TestStreamCommands(t *testing.T) {
	db := store.New()
	defer db.Close()

	assert.Equal(t, protocol.BulkString("1-1"), dispatch(t, db, "XADD", "st", "1-1", "f", "v"))
	assert.Equal(t, protocol.Int(1), dispatch(t, db, "XLEN", "st"))

	reply := dispatch(t, db, "XADD", "st", "1-1", "f", "v")
	require.True(t, reply.IsError())
	assert.Contains(t, reply.Str, "equal or smaller")

	reply = dispatch(t, db, "XADD", "st", "0-0", "f", "v")
	require.True(t, reply.IsError())
	assert.Contains(t, reply.Str, "greater than 0-0")

	// Odd field/value arguments are rejected.
	reply = dispatch(t, db, "XADD", "st", "2-1", "f", "v", "orphan")
	assert.True(t, reply.IsError())

	dispatch(t, db, "XADD", "st", "2-1", "a", "1", "b", "2")
	reply = dispatch(t, db, "XRANGE", "st", "-", "+")
	require.Equal(t, byte(protocol.TypeArray), reply.Type)
	require.Len(t, reply.Array, 2)
	entry := reply.Array[1]
	require.Len(t, entry.Array, 2)
	assert.Equal(t, "2-1", entry.Array[0].Str)
	assert.Len(t, entry.Array[1].Array, 4)
}

func TestAdminCommands(t *testing.T) {
	db := store.New()
	defer db.Close()

	dispatch(t, db, "SET", "a", "1")
	dispatch(t, db, "SET", "b", "2")
	assert.Equal(t, protocol.Int(2), dispatch(t, db, "DBSIZE"))

	assert.Equal(t, protocol.SimpleString("OK"), dispatch(t, db, "FLUSHDB"))
	assert.Equal(t, protocol.Int(0), dispatch(t, db, "DBSIZE"))

	reply := dispatch(t, db, "COMMAND")
	require.Equal(t, byte(protocol.TypeArray), reply.Type)
	assert.NotEmpty(t, reply.Array)
}
