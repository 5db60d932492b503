package session

import (
	"errors"

	"ponder-engine/engine"
)

var (
	// ErrSessionClosed resolves requests submitted after Close.
	ErrSessionClosed = errors.New("session closed")
	// ErrInvalidDepth is returned for depths below one.
	ErrInvalidDepth = engine.ErrInvalidDepth
	// ErrSearchFailed wraps errors and panics raised while searching.
	ErrSearchFailed = errors.New("search failed")
)
