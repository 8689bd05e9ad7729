package command

import (
	"context"

	"github.com/emberdb/emberdb/internal/protocol"
	"github.com/emberdb/emberdb/internal/store"
)

func registerAdmin(r *Registry) {
	r.Register(Spec{Name: "DBSIZE", MinArgs: 0, MaxArgs: 0, Handler: cmdDBSize})
	r.Register(Spec{Name: "FLUSHDB", MinArgs: 0, MaxArgs: 0, Handler: cmdFlushDB})
	r.Register(Spec{Name: "FLUSHALL", MinArgs: 0, MaxArgs: 0, Handler: cmdFlushDB})
	r.Register(Spec{Name: "COMMAND", MinArgs: 0, MaxArgs: -1, Handler: r.cmdCommand})
}

func cmdDBSize(_ context.Context, _ [][]byte, db *store.Store) protocol.Value {
	return protocol.Int(int64(db.Len()))
}

func cmdFlushDB(_ context.Context, _ [][]byte, db *store.Store) protocol.Value {
	db.FlushAll()
	return protocol.SimpleString("OK")
}

// cmdCommand lists the registered command names; clients such as redis-cli
// call it on connect.
func (r *Registry) cmdCommand(_ context.Context, _ [][]byte, _ *store.Store) protocol.Value {
	names := r.Names()
	elems := make([]protocol.Value, 0, len(names))
	for _, name := range names {
		elems = append(elems, protocol.BulkString(name))
	}
	return protocol.ArrayOf(elems...)
}
