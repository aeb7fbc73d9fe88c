package server

import (
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/cruciblehq/shipyard/internal"
	"github.com/cruciblehq/shipyard/internal/protocol"
)

// Handles a trigger command.
//
// The release runs in the background; the reply only says whether it
// was started.
func (s *Server) handleTrigger(conn net.Conn) {
	if !s.launch("trigger") {
		s.respond(conn, protocol.CmdOK, &protocol.TriggerResult{
			Accepted: false,
			Message:  "already building",
		})
		return
	}

	s.respond(conn, protocol.CmdOK, &protocol.TriggerResult{
		Accepted: true,
		Message:  "release started",
	})
}

// Handles a status command.
func (s *Server) handleStatus(conn net.Conn) {
	st := s.releaser.Status()
	uptime := s.now().Sub(s.startedAt).Truncate(time.Second)

	res := &protocol.StatusResult{
		Version:  internal.VersionString(),
		Pid:      os.Getpid(),
		Uptime:   uptime.String(),
		Building: st.Building() || s.active.Load(),
		Phase:    st.Phase,
		Platform: st.Platform.String(),
		Runs:     st.Runs,
		LastRun:  st.LastRun,
	}

	s.mu.Lock()
	if !s.nextRun.IsZero() {
		next := s.nextRun
		res.NextRun = &next
	}
	s.mu.Unlock()

	s.respond(conn, protocol.CmdOK, res)
}

// Handles a shutdown command.
func (s *Server) handleShutdown(conn net.Conn) {
	s.respond(conn, protocol.CmdOK, nil)
	slog.Info("shutdown requested")

	go func() {
		s.Stop()
	}()
}
