package command

import (
	"context"

	"github.com/emberdb/emberdb/internal/protocol"
	"github.com/emberdb/emberdb/internal/store"
)

func registerStreams(r *Registry) {
	r.Register(Spec{Name: "XADD", MinArgs: 4, MaxArgs: -1, Keyed: true, Handler: cmdXAdd})
	r.Register(Spec{Name: "XLEN", MinArgs: 1, MaxArgs: 1, Keyed: true, Handler: cmdXLen})
	r.Register(Spec{Name: "XRANGE", MinArgs: 3, MaxArgs: 3, Keyed: true, Handler: cmdXRange})
}

func cmdXAdd(_ context.Context, args [][]byte, db *store.Store) protocol.Value {
	pairs := args[2:]
	if len(pairs)%2 != 0 {
		return protocol.Errf("wrong number of arguments for 'xadd' command")
	}
	fields := make([]string, 0, len(pairs))
	for _, p := range pairs {
		fields = append(fields, string(p))
	}

	id, err := db.XAdd(string(args[0]), string(args[1]), fields)
	if err != nil {
		return errorReply(err)
	}
	return protocol.BulkString(id)
}

func cmdXLen(_ context.Context, args [][]byte, db *store.Store) protocol.Value {
	n, err := db.XLen(string(args[0]))
	if err != nil {
		return errorReply(err)
	}
	return protocol.Int(n)
}

// cmdXRange replies with an array of entries, each encoded as
// [id, [field, value, ...]].
func cmdXRange(_ context.Context, args [][]byte, db *store.Store) protocol.Value {
	entries, err := db.XRange(string(args[0]), string(args[1]), string(args[2]))
	if err != nil {
		return errorReply(err)
	}
	out := make([]protocol.Value, 0, len(entries))
	for _, e := range entries {
		fields := make([]protocol.Value, 0, len(e.Fields))
		for _, f := range e.Fields {
			fields = append(fields, protocol.BulkString(f))
		}
		out = append(out, protocol.ArrayOf(
			protocol.BulkString(e.ID),
			protocol.ArrayOf(fields...),
		))
	}
	return protocol.ArrayOf(out...)
}
