package crdt

import (
	"errors"
	"fmt"
)

var (
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrInvalidRange      = errors.New("invalid range")
	ErrMissingDependency = errors.New("missing dependency")
)

// MissingDependencyError reports a remote operation that references a node
// this replica has not seen yet. The operation can be retried once ID arrives.
type MissingDependencyError struct {
	ID NodeID
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("missing dependency: node %s not found", e.ID)
}

func (e *MissingDependencyError) Is(target error) bool {
	return target == ErrMissingDependency
}

func missing(id NodeID) error {
	return &MissingDependencyError{ID: id}
}

func outOfRange(index, length int) error {
	return fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfRange, index, length)
}
