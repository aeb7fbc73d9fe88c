package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cruciblehq/shipyard/internal/release"
)

// Names a request or response.
type Command string

const (
	CmdTrigger  Command = "trigger"  // Start a release.
	CmdStatus   Command = "status"   // Report daemon and release state.
	CmdShutdown Command = "shutdown" // Stop the daemon.
	CmdOK       Command = "ok"       // Successful response.
	CmdError    Command = "error"    // Failed response.
)

// Wire form of every message.
type Envelope struct {
	Command Command         `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response to [CmdTrigger].
type TriggerResult struct {
	Accepted bool   `json:"accepted"` // False when a release was already running.
	Message  string `json:"message"`
}

// Response to [CmdStatus].
type StatusResult struct {
	Version  string             `json:"version"`
	Pid      int                `json:"pid"`
	Uptime   string             `json:"uptime"`
	Building bool               `json:"building"`
	Phase    string             `json:"phase"`
	Platform string             `json:"platform,omitempty"`
	Runs     int                `json:"runs"`
	NextRun  *time.Time         `json:"next_run,omitempty"` // Next scheduled release, if scheduled.
	LastRun  *release.RunStatus `json:"last_run,omitempty"`
}

// Response carrying a failure.
type ErrorResult struct {
	Message string `json:"message"`
}

// Encodes a command and payload into an envelope. A nil payload is omitted.
// The result has no trailing newline.
func Encode(cmd Command, payload any) ([]byte, error) {
	env := Envelope{Command: cmd}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncode, err)
		}
		env.Payload = raw
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return data, nil
}

// Decodes one envelope, returning it with its raw payload.
func Decode(data []byte) (*Envelope, json.RawMessage, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if env.Command == "" {
		return nil, nil, ErrCommand
	}
	return &env, env.Payload, nil
}

// Decodes a payload into T. An empty payload yields the zero value.
func DecodePayload[T any](payload json.RawMessage) (*T, error) {
	var v T
	if len(payload) == 0 {
		return &v, nil
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return &v, nil
}
