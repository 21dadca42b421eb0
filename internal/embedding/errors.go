package embedding

import "errors"

// Sentinel errors for embedding operations.
var (
	// ErrEmptyInput indicates Embed was called with blank text.
	ErrEmptyInput = errors.New("embedding: empty input")

	// ErrNoModelAvailable indicates auto-load found no downloaded artifact
	// for any model in the catalog.
	ErrNoModelAvailable = errors.New("embedding: no model available")

	// ErrModelFileMissing indicates the artifact of a requested model is not on disk.
	ErrModelFileMissing = errors.New("embedding: model file missing")

	// ErrUnknownModel indicates the requested model is not part of the catalog.
	ErrUnknownModel = errors.New("embedding: unknown model")
)
