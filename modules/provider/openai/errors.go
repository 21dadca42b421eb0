package openai

import (
	"context"
	"errors"
	"fmt"
	"net"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/flemzord/confidant/internal/provider"
)

var (
	// errAuth marks a rejected API key.
	errAuth = errors.New("openai: authentication failed")
	// errRateLimit marks an HTTP 429 answer. It is surfaced, not retried.
	errRateLimit = errors.New("openai: rate limited")
	// errUnavailable marks 5xx answers and network failures.
	errUnavailable = errors.New("openai: provider unavailable")
)

// mapError classifies client errors and wraps them with
// provider.ErrGeneration. Context errors pass through unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %w: %s", provider.ErrGeneration, classify(apiErr.HTTPStatusCode), apiErr.Message)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: %w: %w", provider.ErrGeneration, classify(reqErr.HTTPStatusCode), reqErr.Err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w: %w", provider.ErrGeneration, errUnavailable, err)
	}
	return fmt.Errorf("%w: openai: %w", provider.ErrGeneration, err)
}

func classify(status int) error {
	switch {
	case status == 401 || status == 403:
		return errAuth
	case status == 429:
		return errRateLimit
	case status >= 500:
		return errUnavailable
	default:
		return fmt.Errorf("openai: HTTP %d", status)
	}
}
