package protocol

import "errors"

var (
	ErrEncode  = errors.New("cannot encode message")
	ErrDecode  = errors.New("cannot decode message")
	ErrCommand = errors.New("missing command")
)
