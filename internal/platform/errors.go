package platform

import "errors"

// Lifecycle and queue errors returned by Host. A Machine reports them as
// platform failures with the Host error as the cause.
var (
	ErrAlreadyInitialized = errors.New("platform already initialized")
	ErrNotInitialized     = errors.New("platform not initialized")
	ErrAlreadyPrepared    = errors.New("platform already prepared")
	ErrNotPrepared        = errors.New("platform not prepared")
	ErrQueueFull          = errors.New("event queue full")
	ErrInvalidEvent       = errors.New("event id must not be negative")
)
