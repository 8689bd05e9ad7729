package command

import (
	"context"

	"github.com/emberdb/emberdb/internal/protocol"
	"github.com/emberdb/emberdb/internal/store"
)

func registerConnection(r *Registry) {
	r.Register(Spec{Name: "PING", MinArgs: 0, MaxArgs: 1, Handler: cmdPing})
	r.Register(Spec{Name: "ECHO", MinArgs: 1, MaxArgs: 1, Handler: cmdEcho})
	r.Register(Spec{Name: "QUIT", MinArgs: 0, MaxArgs: 0, Handler: cmdQuit})
}

func cmdPing(_ context.Context, args [][]byte, _ *store.Store) protocol.Value {
	if len(args) == 1 {
		return protocol.Bulk(args[0])
	}
	return protocol.SimpleString("PONG")
}

func cmdEcho(_ context.Context, args [][]byte, _ *store.Store) protocol.Value {
	return protocol.Bulk(args[0])
}

// cmdQuit only acknowledges; the connection handler closes the socket after
// writing the reply.
func cmdQuit(_ context.Context, _ [][]byte, _ *store.Store) protocol.Value {
	return protocol.SimpleString("OK")
}
