package memory

import "errors"

// Sentinel errors for memory operations.
var (
	// ErrFactNotFound indicates the requested fact does not exist.
	ErrFactNotFound = errors.New("memory: fact not found")

	// ErrExcerptNotFound indicates the requested excerpt does not exist.
	ErrExcerptNotFound = errors.New("memory: excerpt not found")

	// ErrInheritanceFetch indicates the source conversation could not be
	// read. The resolver recovers from it by keeping the current turns.
	ErrInheritanceFetch = errors.New("memory: inheritance source fetch failed")
)
