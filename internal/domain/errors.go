package domain

import "errors"

// Core error taxonomy. All of these are recoverable at the connection
// level: the offending event is rejected, the connection stays alive.
var (
	ErrNotJoined   = errors.New("not joined to room")
	ErrUnknownRoom = errors.New("unknown room")
	ErrPersistence = errors.New("persistence failure")
	ErrMediaDecode = errors.New("media decode failure")
)
