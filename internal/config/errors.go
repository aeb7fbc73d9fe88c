package config

import "errors"

var (
	ErrRead    = errors.New("cannot read configuration")
	ErrInvalid = errors.New("invalid configuration")
)
