package embedding

import (
	"context"
	"errors"
)

// Runtime loads local model artifacts into sessions.
type Runtime interface {
	Load(ctx context.Context, spec ModelSpec, path string) (Session, error)
}

// Session is a loaded local model. Sessions are not safe for concurrent
// use: the Engine only calls them from inside its inference section.
type Session interface {
	Embed(ctx context.Context, text string) (Vector, error)
	Dims() int
	Healthy() bool
	Close() error
}

// ErrSessionBusy is returned by sessions that detect a reentrant call.
var ErrSessionBusy = errors.New("embedding: session used concurrently")
