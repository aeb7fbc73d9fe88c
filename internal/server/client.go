package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net"

	"github.com/cruciblehq/shipyard/internal/paths"
	"github.com/cruciblehq/shipyard/internal/protocol"
)

// Talks to a running daemon.
type Client struct {
	socketPath string
}

// Creates a client for the daemon at socketPath. Empty uses the default.
func NewClient(socketPath string) *Client {
	if socketPath == "" {
		socketPath = paths.Socket()
	}
	return &Client{socketPath: socketPath}
}

// Asks the daemon to start a release.
func (c *Client) Trigger(ctx context.Context) (*protocol.TriggerResult, error) {
	payload, err := c.call(ctx, protocol.CmdTrigger)
	if err != nil {
		return nil, err
	}
	return protocol.DecodePayload[protocol.TriggerResult](payload)
}

// Returns the daemon's status.
func (c *Client) Status(ctx context.Context) (*protocol.StatusResult, error) {
	payload, err := c.call(ctx, protocol.CmdStatus)
	if err != nil {
		return nil, err
	}
	return protocol.DecodePayload[protocol.StatusResult](payload)
}

// Asks the daemon to stop.
func (c *Client) Shutdown(ctx context.Context) error {
	_, err := c.call(ctx, protocol.CmdShutdown)
	return err
}

// Performs one request-response exchange.
func (c *Client) call(ctx context.Context, cmd protocol.Command) (json.RawMessage, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, wrap(ErrClient, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	data, err := protocol.Encode(cmd, nil)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return nil, wrap(ErrClient, err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return nil, wrap(ErrClient, err)
	}

	env, payload, err := protocol.Decode(line)
	if err != nil {
		return nil, err
	}
	if env.Command == protocol.CmdError {
		res, err := protocol.DecodePayload[protocol.ErrorResult](payload)
		if err != nil {
			return nil, err
		}
		return nil, wrapf(ErrResponse, "%s", res.Message)
	}
	return payload, nil
}
