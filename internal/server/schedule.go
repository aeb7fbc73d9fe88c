package server

import (
	"log/slog"
	"time"
)

// Returns the first time strictly after now whose offset from local
// midnight is at.
func nextAt(now time.Time, at time.Duration) time.Time {
	y, m, d := now.Date()
	next := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).Add(at)
	if !next.After(now) {
		next = time.Date(y, m, d+1, 0, 0, 0, 0, now.Location()).Add(at)
	}
	return next
}

// Starts a release every day at the configured time until the server
// stops. A release still running at that time makes the slot a no-op.
func (s *Server) schedule() {
	for {
		next := nextAt(s.now(), s.cfg.Schedule)

		s.mu.Lock()
		s.nextRun = next
		s.mu.Unlock()

		slog.Info("next release scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-s.done:
			timer.Stop()
			return
		case <-timer.C:
			s.launch("schedule")
		}
	}
}
