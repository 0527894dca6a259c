package protocol

import "errors"

var (
	// ErrMalformed is returned when a message is not a JSON object
	ErrMalformed = errors.New("malformed message")

	// ErrUnknownType is returned for a message type this version does not handle
	ErrUnknownType = errors.New("unknown message type")

	// ErrSchema is returned when a message fails schema validation
	ErrSchema = errors.New("message violates schema")
)
