package command

import (
	"context"

	"strconv"
	"strings"
	"time"

	"github.com/emberdb/emberdb/internal/protocol"
	"github.com/emberdb/emberdb/internal/store"
)

func registerStrings(r *Registry) {
	r.Register(Spec{Name: "SET", MinArgs: 2, MaxArgs: -1, Keyed: true, Handler: cmdSet})
	r.Register(Spec{Name: "GET", MinArgs: 1, MaxArgs: 1, Keyed: true, Handler: cmdGet})
	r.Register(Spec{Name: "APPEND", MinArgs: 2, MaxArgs: 2, Keyed: true, Handler: cmdAppend})
	r.Register(Spec{Name: "STRLEN", MinArgs: 1, MaxArgs: 1, Keyed: true, Handler: cmdStrLen})
	r.Register(Spec{Name: "INCR", MinArgs: 1, MaxArgs: 1, Keyed: true, Handler: cmdIncr})
	r.Register(Spec{Name: "DECR", MinArgs: 1, MaxArgs: 1, Keyed: true, Handler: cmdDecr})
	r.Register(Spec{Name: "INCRBY", MinArgs: 2, MaxArgs: 2, Keyed: true, Handler: cmdIncrBy})
}

// cmdSet implements SET key value [EX seconds | PX milliseconds] [NX | XX].
func cmdSet(_ context.Context, args [][]byte, db *store.Store) protocol.Value {
	key := string(args[0])
	value := args[1]

	var ttl time.Duration
	nx, xx, ttlSet := false, false, false

	for i := 2; i < len(args); i++ {
		switch strings.ToUpper(string(args[i])) {
		case "EX", "PX":
			if ttlSet || i+1 >= len(args) {
				return protocol.Errf("syntax error")
			}
			amount, err := strconv.ParseInt(string(args[i+1]), 10, 64)
			if err != nil || amount <= 0 {
				return protocol.Errf("invalid expire time in 'set' command")
			}
			unit := time.Second
			if strings.EqualFold(string(args[i]), "PX") {
				unit = time.Millisecond
			}
			ttl = time.Duration(amount) * unit
			ttlSet = true
			i++
		case "NX":
			if nx || xx {
				return protocol.Errf("syntax error")
			}
			nx = true
		case "XX":
			if nx || xx {
				return protocol.Errf("syntax error")
			}
			xx = true
		default:
			return protocol.Errf("syntax error")
		}
	}

	switch {
	case nx:
		if !db.SetNX(key, value, ttl) {
			return protocol.NullBulk()
		}
	case xx:
		if !db.SetXX(key, value, ttl) {
			return protocol.NullBulk()
		}
	default:
		db.Set(key, value, ttl)
	}
	return protocol.SimpleString("OK")
}

func cmdGet(_ context.Context, args [][]byte, db *store.Store) protocol.Value {
	value, ok, err := db.Get(string(args[0]))
	if err != nil {
		return errorReply(err)
	}
	if !ok {
		return protocol.NullBulk()
	}
	return protocol.Bulk(value)
}

func cmdAppend(_ context.Context, args [][]byte, db *store.Store) protocol.Value {
	n, err := db.Append(string(args[0]), args[1])
	if err != nil {
		return errorReply(err)
	}
	return protocol.Int(int64(n))
}

func cmdStrLen(_ context.Context, args [][]byte, db *store.Store) protocol.Value {
	n, err := db.StrLen(string(args[0]))
	if err != nil {
		return errorReply(err)
	}
	return protocol.Int(int64(n))
}

func cmdIncr(_ context.Context, args [][]byte, db *store.Store) protocol.Value {
	return incrBy(db, string(args[0]), 1)
}

func cmdDecr(_ context.Context, args [][]byte, db *store.Store) protocol.Value {
	return incrBy(db, string(args[0]), -1)
}

func cmdIncrBy(_ context.Context, args [][]byte, db *store.Store) protocol.Value {
	delta, err := strconv.ParseInt(string(args[1]), 10, 64)
	if err != nil {
		return errorReply(store.ErrNotInteger)
	}
	return incrBy(db, string(args[0]), delta)
}

func incrBy(db *store.Store, key string, delta int64) protocol.Value {
	n, err := db.IncrBy(key, delta)
	if err != nil {
		return errorReply(err)
	}
	return protocol.Int(n)
}
