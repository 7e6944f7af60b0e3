package workspace

import "errors"

var (
	ErrPageNotFound     = errors.New("page not found")
	ErrBlockNotFound    = errors.New("block not found")
	ErrUnknownOperation = errors.New("unknown operation")
	ErrPendingFull      = errors.New("too many pending operations")

	// ErrDeferred is returned for an operation kept until its dependency
	// arrives. It is not a failure.
	ErrDeferred = errors.New("operation deferred")
)
