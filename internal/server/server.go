// Package server accepts TCP connections and runs the per-connection
// request/reply loop: read bytes, decode one command, dispatch it against
// the shared store, write the encoded reply.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/emberdb/emberdb/internal/command"
	"github.com/emberdb/emberdb/internal/hotkeys"
	"github.com/emberdb/emberdb/internal/protocol"
	"github.com/emberdb/emberdb/internal/store"
	"github.com/emberdb/emberdb/internal/version"
)

// Config holds server tunables.
type Config struct {
	MaxClients  int
	Timeout     time.Duration // per-read idle timeout, 0 = none
	HotKeyLimit int
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		MaxClients:  10000,
		Timeout:     0,
		HotKeyLimit: 100,
	}
}

// clientConn is one live client connection and its bookkeeping.
type clientConn struct {
	id          int64
	conn        net.Conn
	addr        string
	createdAt   time.Time
	lastCommand time.Time
	cmdCount    int64
}

// Server owns the listener, the shared store, and the command registry.
// Connection handlers run one goroutine each; the store is the only state
// they share.
type Server struct {
	addr     string
	db       *store.Store
	registry *command.Registry
	tracker  *hotkeys.Tracker
	log      *zap.Logger
	config   Config

	mu         sync.RWMutex
	listener   net.Listener
	closed     bool
	clients    map[int64]*clientConn
	nextConnID int64

	wg         sync.WaitGroup
	done       chan struct{}
	startTime  time.Time
	totalCmds  int64
	totalConns int64
}

// New creates a Server with default configuration.
func New(addr string, db *store.Store, log *zap.Logger) *Server {
	return NewWithConfig(addr, db, log, DefaultConfig())
}

// NewWithConfig creates a Server with the given configuration.
func NewWithConfig(addr string, db *store.Store, log *zap.Logger, cfg Config) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	tracker := hotkeys.New(cfg.HotKeyLimit, time.Minute)
	s := &Server{
		addr:      addr,
		db:        db,
		registry:  command.NewRegistry(tracker),
		tracker:   tracker,
		log:       log,
		config:    cfg,
		clients:   make(map[int64]*clientConn),
		done:      make(chan struct{}),
		startTime: time.Now(),
	}
	s.registerServerCommands()
	return s
}

// registerServerCommands adds the commands that need server state rather
// than just the store; the open registry keeps the dispatcher unchanged.
func (s *Server) registerServerCommands() {
	s.registry.Register(command.Spec{
		Name: "INFO", MinArgs: 0, MaxArgs: 1,
		Handler: func(_ context.Context, _ [][]byte, _ *store.Store) protocol.Value {
			return protocol.BulkString(s.infoText())
		},
	})
	s.registry.Register(command.Spec{
		Name: "HOTKEYS", MinArgs: 0, MaxArgs: 1,
		Handler: s.cmdHotKeys,
	})
}

// Start listens on the configured address and serves until ctx is
// cancelled or Close is called.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.log.Info("server listening", zap.String("addr", listener.Addr().String()))

	go func() {
		<-ctx.Done()
		s.Close()
	}()

	return s.acceptLoop(ctx, listener)
}

// Serve runs the accept loop over a listener the caller already opened.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	return s.acceptLoop(ctx, listener)
}

func (s *Server) acceptLoop(ctx context.Context, listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			s.mu.RLock()
			closed := s.closed
			s.mu.RUnlock()
			if closed {
				return nil
			}
			s.log.Warn("accept failed", zap.Error(err))
			continue
		}

		s.mu.Lock()
		if s.config.MaxClients > 0 && len(s.clients) >= s.config.MaxClients {
			s.mu.Unlock()
			s.log.Warn("max clients reached, rejecting connection",
				zap.String("remote", conn.RemoteAddr().String()))
			conn.Close()
			continue
		}
		s.nextConnID++
		client := &clientConn{
			id:          s.nextConnID,
			conn:        conn,
			addr:        conn.RemoteAddr().String(),
			createdAt:   time.Now(),
			lastCommand: time.Now(),
		}
		s.clients[client.id] = client
		s.totalConns++
		s.mu.Unlock()

		s.wg.Add(1)
		go func(c *clientConn) {
			defer s.wg.Done()
			defer func() {
				s.mu.Lock()
				delete(s.clients, c.id)
				s.mu.Unlock()
			}()
			s.handleConnection(ctx, c)
		}(client)
	}
}

// Close stops accepting, closes the listener, and waits for in-flight
// connections to finish. Closing the done channel first cancels every
// handler's context, so connections parked in a blocking command (BLPOP
// with no timeout) unwind instead of stalling the wait.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	listener := s.listener
	clients := make([]*clientConn, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	var err error
	if listener != nil {
		err = listener.Close()
	}
	for _, c := range clients {
		c.conn.Close()
	}
	s.wg.Wait()
	s.tracker.Close()
	return err
}

// handleConnection runs one client's request/reply loop. Each iteration
// reads until the codec yields a complete command, dispatches it, and
// writes the reply; pipelined bytes left in the reader's buffer are served
// in order before the next network read.
func (s *Server) handleConnection(ctx context.Context, client *clientConn) {
	defer client.conn.Close()

	// Handlers see a context that dies with either the caller's ctx or
	// the server; blocking commands select on it.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	log := s.log.With(zap.Int64("conn", client.id), zap.String("remote", client.addr))
	log.Debug("connection opened")

	reader := protocol.NewReader(client.conn)
	writer := protocol.NewWriter(client.conn)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if s.config.Timeout > 0 {
			client.conn.SetReadDeadline(time.Now().Add(s.config.Timeout))
		}

		cmd, err := reader.ReadCommand()
		if err != nil {
			if errors.Is(err, protocol.ErrInvalidProtocol) {
				// Protocol violations are fatal to the connection,
				// but the client still gets told why.
				writer.WriteError(err.Error())
				log.Debug("protocol violation", zap.Error(err))
				return
			}
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				var ne net.Error
				if !errors.As(err, &ne) || !ne.Timeout() {
					log.Debug("read failed", zap.Error(err))
				}
			}
			return
		}

		client.lastCommand = time.Now()
		atomic.AddInt64(&client.cmdCount, 1)
		atomic.AddInt64(&s.totalCmds, 1)

		reply := s.registry.Dispatch(ctx, cmd, s.db)
		if err := writer.WriteValue(reply); err != nil {
			log.Debug("write failed", zap.Error(err))
			return
		}

		if strings.EqualFold(cmd.Name, "QUIT") {
			return
		}
	}
}

func (s *Server) cmdHotKeys(_ context.Context, args [][]byte, _ *store.Store) protocol.Value {
	n := 10
	if len(args) == 1 {
		parsed, err := parsePositiveInt(string(args[0]))
		if err != nil {
			return protocol.Errf("value is not an integer or out of range")
		}
		n = parsed
	}
	top := s.tracker.Top(n)
	elems := make([]protocol.Value, 0, len(top)*2)
	for _, e := range top {
		elems = append(elems, protocol.BulkString(e.Key), protocol.Int(e.Count))
	}
	return protocol.ArrayOf(elems...)
}

func parsePositiveInt(raw string) (int, error) {
	n := 0
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not a positive integer: %q", raw)
		}
		n = n*10 + int(r-'0')
		if n > 1<<20 {
			return 0, fmt.Errorf("out of range: %q", raw)
		}
	}
	if raw == "" {
		return 0, fmt.Errorf("empty integer")
	}
	return n, nil
}

// Stats is a point-in-time snapshot of server counters.
type Stats struct {
	Uptime           time.Duration
	ConnectedClients int
	TotalConnections int64
	TotalCommands    int64
	TrackedHotKeys   int
}

// Stats returns a snapshot of the server's counters.
func (s *Server) Stats() Stats {
	s.mu.RLock()
	connected := len(s.clients)
	totalConns := s.totalConns
	s.mu.RUnlock()

	return Stats{
		Uptime:           time.Since(s.startTime),
		ConnectedClients: connected,
		TotalConnections: totalConns,
		TotalCommands:    atomic.LoadInt64(&s.totalCmds),
		TrackedHotKeys:   s.tracker.Size(),
	}
}

// HotKeys returns the n most frequently accessed keys.
func (s *Server) HotKeys(n int) []hotkeys.Entry {
	return s.tracker.Top(n)
}

// infoText builds the INFO reply.
func (s *Server) infoText() string {
	s.mu.RLock()
	connected := len(s.clients)
	totalConns := s.totalConns
	s.mu.RUnlock()

	var b strings.Builder
	fmt.Fprintf(&b, "# Server\r\n")
	fmt.Fprintf(&b, "version:%s\r\n", version.Version)
	fmt.Fprintf(&b, "uptime_in_seconds:%d\r\n", int64(time.Since(s.startTime).Seconds()))
	fmt.Fprintf(&b, "tcp_port:%s\r\n", s.addr)
	fmt.Fprintf(&b, "\r\n# Clients\r\n")
	fmt.Fprintf(&b, "connected_clients:%d\r\n", connected)
	fmt.Fprintf(&b, "\r\n# Stats\r\n")
	fmt.Fprintf(&b, "total_connections_received:%d\r\n", totalConns)
	fmt.Fprintf(&b, "total_commands_processed:%d\r\n", atomic.LoadInt64(&s.totalCmds))
	fmt.Fprintf(&b, "\r\n# Keyspace\r\n")
	fmt.Fprintf(&b, "db0:keys=%d\r\n", s.db.Len())
	fmt.Fprintf(&b, "tracked_hot_keys:%d\r\n", s.tracker.Size())
	return b.String()
}
