package bridge

import "errors"

// Sentinel errors for command handling.
var (
	ErrInvalidTopic   = errors.New("bridge: not a command topic")
	ErrInvalidCommand = errors.New("bridge: invalid command")
	ErrUnknownAction  = errors.New("bridge: unknown action")
)
