// Package server implements the shipyard daemon.
//
// The daemon listens on a Unix domain socket for JSON-encoded commands
// from the shipyard CLI. Each connection carries a single request-response
// exchange: the client sends a newline-delimited JSON envelope, the
// server dispatches the command, and writes the result back before
// closing the connection.
//
// A trigger starts a release in the background and is answered at once;
// progress is observed with the status command. When a schedule is
// configured the daemon also starts a release every day at that time.
// Releases never overlap: a trigger or scheduled run that arrives while
// one is active is refused.
//
// Example usage:
//
//	srv := server.New(orchestrator, server.Config{
//	    Schedule: 2 * time.Hour,
//	    Scheduled: true,
//	})
//
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//	defer srv.Stop()
//
//	srv.Wait()
package server
