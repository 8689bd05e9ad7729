// Package command maps decoded requests to typed operations against the
// store. The registry is open: callers add commands with Register without
// touching the dispatch logic, which is how the server layer contributes
// INFO and HOTKEYS.
package command

import (
	"context"
	"strings"
	"sync"

	"github.com/emberdb/emberdb/internal/hotkeys"
	"github.com/emberdb/emberdb/internal/protocol"
	"github.com/emberdb/emberdb/internal/store"
)

// Handler executes one command against the store. Its only side-effect
// channel is the store, and it reports both success and domain errors
// through the returned wire value, never by panicking.
type Handler func(ctx context.Context, args [][]byte, db *store.Store) protocol.Value

// Spec describes one registered command: its arity constraint and handler.
// MaxArgs of -1 leaves the upper bound open.
type Spec struct {
	Name    string
	MinArgs int
	MaxArgs int
	// Keyed marks commands whose first argument names a key, feeding the
	// hot key tracker.
	Keyed   bool
	Handler Handler
}

// Registry holds the command table. Lookup is case-insensitive; names are
// normalized to upper case at registration and dispatch.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Spec
	tracker  *hotkeys.Tracker
}

// NewRegistry creates a registry pre-populated with the built-in command
// set. The tracker may be nil to disable hot key accounting.
func NewRegistry(tracker *hotkeys.Tracker) *Registry {
	r := &Registry{
		commands: make(map[string]Spec),
		tracker:  tracker,
	}
	registerConnection(r)
	registerStrings(r)
	registerKeys(r)
	registerLists(r)
	registerStreams(r)
	registerAdmin(r)
	return r
}

// Register adds or replaces a command.
func (r *Registry) Register(spec Spec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[strings.ToUpper(spec.Name)] = spec
}

// Names returns the registered command names, unordered.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	return names
}

// Dispatch resolves and runs cmd against db, returning exactly one reply
// value. Unknown names and arity violations never reach a handler, and a
// handler panic is confined to an error reply so one client's fault cannot
// take down the connection or the process.
func (r *Registry) Dispatch(ctx context.Context, cmd protocol.Command, db *store.Store) (reply protocol.Value) {
	name := strings.ToUpper(cmd.Name)

	r.mu.RLock()
	spec, ok := r.commands[name]
	r.mu.RUnlock()

	if !ok {
		return protocol.Errf("unknown command '%s'", cmd.Name)
	}
	if len(cmd.Args) < spec.MinArgs || (spec.MaxArgs >= 0 && len(cmd.Args) > spec.MaxArgs) {
		return protocol.Errf("wrong number of arguments for '%s' command", strings.ToLower(name))
	}

	if spec.Keyed && r.tracker != nil && len(cmd.Args) > 0 {
		r.tracker.Record(string(cmd.Args[0]))
	}

	defer func() {
		if cause := recover(); cause != nil {
			reply = protocol.Errf("internal error in '%s': %v", strings.ToLower(name), cause)
		}
	}()

	return spec.Handler(ctx, cmd.Args, db)
}

// errorReply converts a store-level error into its wire form. Store errors
// carry their full wire message, prefix included.
func errorReply(err error) protocol.Value {
	return protocol.Err(err.Error())
}
