// Package protocol defines the messages exchanged over the daemon socket.
//
// Every message is a single line of JSON holding an [Envelope]: the command
// name and an optional command-specific payload. A client writes one
// request envelope and reads one response envelope, whose command is
// either [CmdOK] or [CmdError].
//
//	{"command":"trigger"}
//	{"command":"ok","payload":{"accepted":true,"message":"release started"}}
package protocol
