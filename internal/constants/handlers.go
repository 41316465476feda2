// Package constants provides shared constants used across the codebase.
package constants

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)

// Request limits
const (
	// MaxRequestBodySize is the maximum JSON request body size in bytes (1MB)
	MaxRequestBodySize = 1 << 20
)
