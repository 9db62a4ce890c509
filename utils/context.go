package utils

import (
	"context"
	"time"
)

const (
	// DefaultTimeout bounds MongoDB calls
	DefaultTimeout = 10 * time.Second

	// LongTimeout is for the first index build over remote assets
	LongTimeout = 30 * time.Second

	// ShortTimeout is for Redis lookups (sessions, history, rate limits)
	ShortTimeout = 2 * time.Second
)

// WithTimeout creates a context with default timeout
func WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultTimeout)
}

// WithLongTimeout creates a context with long timeout for operations that may take longer
func WithLongTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, LongTimeout)
}

// WithShortTimeout creates a context with short timeout for quick operations
func WithShortTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, ShortTimeout)
}
