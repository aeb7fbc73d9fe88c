package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cruciblehq/shipyard/internal/paths"
	"github.com/cruciblehq/shipyard/internal/protocol"
	"github.com/cruciblehq/shipyard/internal/release"
)

const (

	// Group name used to grant socket access. Members of this group can
	// connect to the daemon socket without owning the process.
	socketGroup = "shipyard"

	// File mode applied to the Unix socket. Owner and group get read-write
	// (required for connect); others get no access.
	socketMode = 0660
)

// Runs releases on behalf of the daemon.
type Releaser interface {
	Start(ctx context.Context) error
	Status() release.Status
}

// Holds server configuration.
type Config struct {
	SocketPath string        // Override for the Unix socket path. Empty uses the default.
	PIDFile    string        // Override for the PID file path. Empty uses the default.
	Scheduled  bool          // Whether to start a release every day.
	Schedule   time.Duration // Time of day of the scheduled release, as an offset from midnight.
}

// Listens on a Unix domain socket and dispatches commands.
type Server struct {
	socketPath string          // Path to the Unix socket file.
	pidFile    string          // Path to the PID file.
	cfg        Config          // Configuration the server was created with.
	releaser   Releaser        // Runs releases.
	listener   net.Listener    // Listener for incoming connections.
	startedAt  time.Time       // Timestamp when the server started.
	active     atomic.Bool     // Set while a release started by the server runs.
	ctx        context.Context // Parent of every release the server starts.
	cancel     context.CancelFunc
	releases   sync.WaitGroup // Releases in flight.
	done       chan struct{}  // Channel to signal server shutdown.
	stopOnce   sync.Once
	mu         sync.Mutex // Mutex to protect shared state.
	nextRun    time.Time  // Next scheduled release; zero when unscheduled.
	now        func() time.Time
}

// Creates a new server instance.
//
// The socket is not opened until [Start] is called.
func New(r Releaser, cfg Config) *Server {
	socketPath := cfg.SocketPath
	if socketPath == "" {
		socketPath = paths.Socket()
	}

	pidFile := cfg.PIDFile
	if pidFile == "" {
		pidFile = paths.PIDFile()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		socketPath: socketPath,
		pidFile:    pidFile,
		cfg:        cfg,
		releaser:   r,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		now:        time.Now,
	}
}

// Opens the Unix socket and begins accepting connections.
func (s *Server) Start() error {
	listener, err := listen(s.socketPath)
	if err != nil {
		return err
	}

	s.listener = listener
	s.startedAt = s.now()

	if err := s.writePID(); err != nil {
		slog.Warn("failed to write PID file", "error", err)
	}

	slog.Info("server listening on socket", "path", s.socketPath)

	go s.accept()

	if s.cfg.Scheduled {
		go s.schedule()
	}
	return nil
}

// Creates the Unix socket listener, removes any stale socket from a previous
// run, and applies permissions.
func listen(socketPath string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(socketPath), paths.DefaultDirMode); err != nil {
		return nil, wrap(ErrServer, err)
	}

	os.Remove(socketPath)

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, wrapf(ErrServer, "failed to listen on %s: %w", socketPath, err)
	}

	if err := setSocketPermissions(socketPath); err != nil {
		listener.Close()
		return nil, err
	}

	return listener, nil
}

// Restricts socket access to owner and group. The daemon does not run as
// root; any user in the shipyard group can also connect.
func setSocketPermissions(socketPath string) error {
	if err := os.Chmod(socketPath, socketMode); err != nil {
		return wrapf(ErrServer, "failed to chmod socket %s: %w", socketPath, err)
	}

	if g, err := user.LookupGroup(socketGroup); err == nil {
		if gid, err := strconv.Atoi(g.Gid); err == nil {
			if err := os.Chown(socketPath, -1, gid); err != nil {
				slog.Warn("failed to chgrp socket", "group", socketGroup, "error", err)
			}
		}
	} else {
		slog.Debug("socket group not found, socket accessible to owner only", "group", socketGroup)
	}

	return nil
}

// Shuts down the server and cleans up resources.
//
// A release in progress is cancelled and Stop returns once it has
// unwound. Calling Stop more than once is safe.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		close(s.done)
		s.mu.Unlock()

		if s.listener != nil {
			s.listener.Close()
		}

		s.cancel()
		s.releases.Wait()

		os.Remove(s.socketPath)
		os.Remove(s.pidFile)
	})
	return nil
}

// Blocks until the server stops.
func (s *Server) Wait() {
	<-s.done
}

// Starts a release in the background unless one is already running or
// the server is stopping. Reports whether a release was started.
//
// Stop closes done under mu, so no release is added once Stop waits.
func (s *Server) launch(reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		slog.Info("server stopping, release not started", "reason", reason)
		return false
	default:
	}

	if s.releaser.Status().Building() || !s.active.CompareAndSwap(false, true) {
		slog.Info("release already running", "reason", reason)
		return false
	}

	s.releases.Add(1)
	go func() {
		defer s.releases.Done()
		defer s.active.Store(false)

		slog.Info("release triggered", "reason", reason)
		if err := s.releaser.Start(s.ctx); err != nil {
			slog.Error("triggered release failed", "reason", reason, "error", err)
		}
	}()
	return true
}

// Accepts connections in a loop until the server shuts down.
func (s *Server) accept() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				slog.Error("accept error", "error", err)
				continue
			}
		}

		go s.handle(conn)
	}
}

// Processes a single connection.
//
// Reads one newline-delimited JSON message, dispatches the command, and
// writes the response. The connection is closed after one exchange.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	line, err := reader.ReadBytes('\n')
	if err != nil {
		slog.Error("read error", "error", err)
		return
	}

	env, payload, err := protocol.Decode(line)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	slog.Info("command received", "command", env.Command)

	s.dispatch(conn, env.Command, payload)
}

// Routes a command to the appropriate handler.
func (s *Server) dispatch(conn net.Conn, cmd protocol.Command, _ json.RawMessage) {
	switch cmd {
	case protocol.CmdTrigger:
		s.handleTrigger(conn)
	case protocol.CmdStatus:
		s.handleStatus(conn)
	case protocol.CmdShutdown:
		s.handleShutdown(conn)
	default:
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{
			Message: fmt.Sprintf("unknown command: %s", cmd),
		})
	}
}

// Writes a JSON envelope response to the connection.
func (s *Server) respond(conn net.Conn, cmd protocol.Command, payload any) {
	data, err := protocol.Encode(cmd, payload)
	if err != nil {
		slog.Error("encode response failed", "error", err)
		return
	}
	data = append(data, '\n')
	conn.Write(data)
}

// Writes the daemon PID to the PID file so the CLI can detect whether the
// daemon is already running and send it signals.
func (s *Server) writePID() error {
	if err := os.MkdirAll(filepath.Dir(s.pidFile), paths.DefaultDirMode); err != nil {
		return err
	}
	return os.WriteFile(s.pidFile, []byte(strconv.Itoa(os.Getpid())), paths.DefaultFileMode)
}
