package protocol

import "errors"

// Decode error types
var (
	ErrMalformedFrame   = errors.New("malformed inbound frame")
	ErrUnknownEventType = errors.New("unknown event type")
)
