package usage

import "errors"

// ErrInvalidEvent rejects malformed input to record construction before
// any write is attempted.
var ErrInvalidEvent = errors.New("usage: invalid event")

// ErrClosed signals an operation on an already-released backend handle.
// It is always surfaced to the caller, never swallowed.
var ErrClosed = errors.New("usage: logger closed")
