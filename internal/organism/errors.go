package organism

import "errors"

// Error kinds shared across the memory hierarchy and control plane. Callers
// classify with errors.Is; wrapping adds the detail.
var (
	// ErrInvalidArgument covers malformed queries and unknown memory
	// levels. Surfaced to the caller, never crashes the tick loop.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnavailable marks an optional component that is not wired in;
	// features depending on it degrade instead of failing the tick.
	ErrUnavailable = errors.New("component unavailable")
)
