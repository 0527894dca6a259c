package bridge

import "errors"

var (
	// ErrAlreadyRunning is returned by Start on a bridge that has not been stopped
	ErrAlreadyRunning = errors.New("bridge already running")

	// ErrNoHandler is returned by Start without an event handler
	ErrNoHandler = errors.New("no event handler")

	// ErrCommandRejected marks a command the transport explicitly refused
	ErrCommandRejected = errors.New("command rejected")

	// ErrInvalidCommand is returned for a command that fails validation
	ErrInvalidCommand = errors.New("invalid command")

	// ErrUnknownSource is returned for an unrecognised source kind
	ErrUnknownSource = errors.New("unknown source")
)
