package domain

import "errors"

var (
	// ErrInvalidTag is returned when a TagSet extension collides with a tag
	// already present in the lineage.
	ErrInvalidTag = errors.New("invalid tag")
	// ErrAlreadyStarted is returned when a collection service is started twice.
	ErrAlreadyStarted = errors.New("already started")
	// ErrShutdownTimeout is returned when Stop gives up waiting for the flush
	// loop to exit.
	ErrShutdownTimeout = errors.New("shutdown timed out")
)
