package security

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Request body limits for the diagnostics endpoints.
const (
	DefaultMaxBodySize  = 1 << 20 // 1 MiB
	DefaultMaxJSONDepth = 32
)

// Validation errors.
var (
	ErrBodyTooLarge = errors.New("security: request body exceeds maximum size")
	ErrJSONTooDeep  = errors.New("security: JSON nesting exceeds maximum depth")
	ErrInvalidJSON  = errors.New("security: invalid JSON")
)

// ReadJSONBody reads at most limit bytes from r and checks the nesting
// depth before the caller decodes it. A limit <= 0 means
// DefaultMaxBodySize.
func ReadJSONBody(r io.Reader, limit int) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxBodySize
	}
	data, err := io.ReadAll(io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return nil, fmt.Errorf("security: reading body: %w", err)
	}
	if len(data) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, limit)
	}
	if err := ValidateJSONDepth(data, DefaultMaxJSONDepth); err != nil {
		return nil, err
	}
	return data, nil
}

// ValidateJSONDepth checks that data does not nest deeper than limit
// levels. A limit <= 0 means DefaultMaxJSONDepth.
func ValidateJSONDepth(data []byte, limit int) error {
	if limit <= 0 {
		limit = DefaultMaxJSONDepth
	}
	if len(data) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%w: %w", ErrInvalidJSON, err)
		}

		switch tok {
		case json.Delim('{'), json.Delim('['):
			depth++
			if depth > limit {
				return fmt.Errorf("%w: depth %d (max %d)", ErrJSONTooDeep, depth, limit)
			}
		case json.Delim('}'), json.Delim(']'):
			depth--
		}
	}
}
