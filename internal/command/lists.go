package command

import (
	"context"
	"strconv"
	"time"

	"github.com/emberdb/emberdb/internal/protocol"
	"github.com/emberdb/emberdb/internal/store"
)

func registerLists(r *Registry) {
	r.Register(Spec{Name: "LPUSH", MinArgs: 2, MaxArgs: -1, Keyed: true, Handler: cmdLPush})
	r.Register(Spec{Name: "RPUSH", MinArgs: 2, MaxArgs: -1, Keyed: true, Handler: cmdRPush})
	r.Register(Spec{Name: "LPOP", MinArgs: 1, MaxArgs: 2, Keyed: true, Handler: cmdLPop})
	r.Register(Spec{Name: "RPOP", MinArgs: 1, MaxArgs: 2, Keyed: true, Handler: cmdRPop})
	r.Register(Spec{Name: "LLEN", MinArgs: 1, MaxArgs: 1, Keyed: true, Handler: cmdLLen})
	r.Register(Spec{Name: "LRANGE", MinArgs: 3, MaxArgs: 3, Keyed: true, Handler: cmdLRange})
	r.Register(Spec{Name: "BLPOP", MinArgs: 2, MaxArgs: -1, Keyed: true, Handler: cmdBLPop})
}

func cmdLPush(_ context.Context, args [][]byte, db *store.Store) protocol.Value {
	n, err := db.LPush(string(args[0]), args[1:]...)
	if err != nil {
		return errorReply(err)
	}
	return protocol.Int(int64(n))
}

func cmdRPush(_ context.Context, args [][]byte, db *store.Store) protocol.Value {
	n, err := db.RPush(string(args[0]), args[1:]...)
	if err != nil {
		return errorReply(err)
	}
	return protocol.Int(int64(n))
}

func cmdLPop(_ context.Context, args [][]byte, db *store.Store) protocol.Value {
	return pop(args, db, db.LPop)
}

func cmdRPop(_ context.Context, args [][]byte, db *store.Store) protocol.Value {
	return pop(args, db, db.RPop)
}

// pop implements the shared LPOP/RPOP surface: without a count the reply is
// a single bulk (or null bulk), with a count it is an array.
func pop(args [][]byte, db *store.Store, op func(string, int) ([][]byte, error)) protocol.Value {
	count := 1
	withCount := len(args) == 2
	if withCount {
		parsed, err := strconv.Atoi(string(args[1]))
		if err != nil || parsed < 0 {
			return protocol.Errf("value is out of range, must be positive")
		}
		count = parsed
	}

	popped, err := op(string(args[0]), count)
	if err != nil {
		return errorReply(err)
	}

	if !withCount {
		if len(popped) == 0 {
			return protocol.NullBulk()
		}
		return protocol.Bulk(popped[0])
	}
	if popped == nil {
		return protocol.NullArray()
	}
	elems := make([]protocol.Value, 0, len(popped))
	for _, v := range popped {
		elems = append(elems, protocol.Bulk(v))
	}
	return protocol.ArrayOf(elems...)
}

func cmdLLen(_ context.Context, args [][]byte, db *store.Store) protocol.Value {
	n, err := db.LLen(string(args[0]))
	if err != nil {
		return errorReply(err)
	}
	return protocol.Int(int64(n))
}

func cmdLRange(_ context.Context, args [][]byte, db *store.Store) protocol.Value {
	start, err1 := strconv.Atoi(string(args[1]))
	stop, err2 := strconv.Atoi(string(args[2]))
	if err1 != nil || err2 != nil {
		return errorReply(store.ErrNotInteger)
	}

	vals, err := db.LRange(string(args[0]), start, stop)
	if err != nil {
		return errorReply(err)
	}
	elems := make([]protocol.Value, 0, len(vals))
	for _, v := range vals {
		elems = append(elems, protocol.Bulk(v))
	}
	return protocol.ArrayOf(elems...)
}

// cmdBLPop blocks on the store's notifier until one of the keys receives an
// element or the timeout (seconds, fractional allowed, zero waits forever)
// elapses. The reply is [key, value] or a null array on timeout.
func cmdBLPop(ctx context.Context, args [][]byte, db *store.Store) protocol.Value {
	seconds, err := strconv.ParseFloat(string(args[len(args)-1]), 64)
	if err != nil || seconds < 0 {
		return protocol.Errf("timeout is not a float or out of range")
	}

	keys := make([]string, 0, len(args)-1)
	for _, k := range args[:len(args)-1] {
		keys = append(keys, string(k))
	}

	key, value, ok, err := db.BLPop(ctx, keys, time.Duration(seconds*float64(time.Second)))
	if err != nil {
		return errorReply(err)
	}
	if !ok {
		return protocol.NullArray()
	}
	return protocol.ArrayOf(protocol.BulkString(key), protocol.Bulk(value))
}
