package command

import (
	"context"

	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/emberdb/emberdb/internal/protocol"
	"github.com/emberdb/emberdb/internal/store"
)

func registerKeys(r *Registry) {
	r.Register(Spec{Name: "DEL", MinArgs: 1, MaxArgs: -1, Keyed: true, Handler: cmdDel})
	r.Register(Spec{Name: "EXISTS", MinArgs: 1, MaxArgs: -1, Keyed: true, Handler: cmdExists})
	r.Register(Spec{Name: "TYPE", MinArgs: 1, MaxArgs: 1, Keyed: true, Handler: cmdType})
	r.Register(Spec{Name: "KEYS", MinArgs: 1, MaxArgs: 1, Handler: cmdKeys})
	r.Register(Spec{Name: "EXPIRE", MinArgs: 2, MaxArgs: 2, Keyed: true, Handler: cmdExpire})
	r.Register(Spec{Name: "TTL", MinArgs: 1, MaxArgs: 1, Keyed: true, Handler: cmdTTL})
	r.Register(Spec{Name: "PTTL", MinArgs: 1, MaxArgs: 1, Keyed: true, Handler: cmdPTTL})
	r.Register(Spec{Name: "PERSIST", MinArgs: 1, MaxArgs: 1, Keyed: true, Handler: cmdPersist})
}

func cmdDel(_ context.Context, args [][]byte, db *store.Store) protocol.Value {
	removed := int64(0)
	for _, key := range args {
		if db.Delete(string(key)) {
			removed++
		}
	}
	return protocol.Int(removed)
}

func cmdExists(_ context.Context, args [][]byte, db *store.Store) protocol.Value {
	found := int64(0)
	for _, key := range args {
		if db.Exists(string(key)) {
			found++
		}
	}
	return protocol.Int(found)
}

func cmdType(_ context.Context, args [][]byte, db *store.Store) protocol.Value {
	return protocol.SimpleString(db.Type(string(args[0])))
}

func cmdKeys(_ context.Context, args [][]byte, db *store.Store) protocol.Value {
	re, err := globToRegexp(string(args[0]))
	if err != nil {
		return protocol.Errf("invalid pattern")
	}
	matched := make([]protocol.Value, 0)
	for _, key := range db.Keys() {
		if re.MatchString(key) {
			matched = append(matched, protocol.BulkString(key))
		}
	}
	return protocol.ArrayOf(matched...)
}

// globToRegexp compiles a Redis glob (* and ? wildcards) into an anchored
// regular expression, escaping everything else.
func globToRegexp(pattern string) (*regexp.Regexp, error) {
	quoted := regexp.QuoteMeta(pattern)
	quoted = strings.ReplaceAll(quoted, `\*`, ".*")
	quoted = strings.ReplaceAll(quoted, `\?`, ".")
	return regexp.Compile("^" + quoted + "$")
}

func cmdExpire(_ context.Context, args [][]byte, db *store.Store) protocol.Value {
	seconds, err := strconv.ParseInt(string(args[1]), 10, 64)
	if err != nil {
		return errorReply(store.ErrNotInteger)
	}
	if db.Expire(string(args[0]), time.Duration(seconds)*time.Second) {
		return protocol.Int(1)
	}
	return protocol.Int(0)
}

func cmdTTL(_ context.Context, args [][]byte, db *store.Store) protocol.Value {
	ttl := db.TTL(string(args[0]))
	if ttl < 0 {
		return protocol.Int(int64(ttl))
	}
	return protocol.Int(int64((ttl + time.Second - 1) / time.Second))
}

func cmdPTTL(_ context.Context, args [][]byte, db *store.Store) protocol.Value {
	ttl := db.TTL(string(args[0]))
	if ttl < 0 {
		return protocol.Int(int64(ttl))
	}
	return protocol.Int(ttl.Milliseconds())
}

func cmdPersist(_ context.Context, args [][]byte, db *store.Store) protocol.Value {
	if db.Persist(string(args[0])) {
		return protocol.Int(1)
	}
	return protocol.Int(0)
}
