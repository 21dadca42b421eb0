package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Collect drains a stream into a single string. It stops consuming as soon
// as ctx is cancelled; the producer is expected to observe the same ctx and
// close the channel. Mid-stream errors wrap ErrGeneration.
func Collect(ctx context.Context, ch <-chan StreamChunk) (string, error) {
	var sb strings.Builder
	for {
		select {
		case <-ctx.Done():
			return sb.String(), ctx.Err()
		case chunk, ok := <-ch:
			if !ok {
				return sb.String(), nil
			}
			if chunk.Err != nil {
				return sb.String(), wrapGeneration(chunk.Err)
			}
			sb.WriteString(chunk.Content)
		}
	}
}

// wrapGeneration tags err with ErrGeneration unless it already carries a
// more specific provider sentinel or a context error.
func wrapGeneration(err error) error {
	switch {
	case errors.Is(err, ErrGeneration),
		errors.Is(err, ErrMissingCredential),
		errors.Is(err, ErrUnknownProvider),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %w", ErrGeneration, err)
}
