// Package crdt implements the replicated list types behind a collaborative
// outline document: a block list per page whose blocks each carry their own
// character list.
//
// Every type in this package is meant to be driven by a single goroutine per
// replica. Replicas converge by applying each other's operations.
package crdt

// CRDT is the state shared by every replica of a list: the list itself, a
// logical clock and the replica's client id.
type CRDT[T Node] struct {
	clock  uint64
	client uint64
	list   *LinkedList[T]
}

func (c *CRDT[T]) Clock() uint64  { return c.clock }
func (c *CRDT[T]) Client() uint64 { return c.client }

// Read returns the visible content of the list.
func (c *CRDT[T]) Read() string {
	return c.list.Stringify()
}

func (c *CRDT[T]) Spread() []T {
	return c.list.Spread()
}

func (c *CRDT[T]) Len() int {
	return c.list.Len()
}

// nextID mints the id for the next local insert. The clock only moves in
// tick once the insert succeeded.
func (c *CRDT[T]) nextID() NodeID {
	return NodeID{Clock: c.clock + 1, Client: c.client}
}

func (c *CRDT[T]) tick() {
	c.clock++
}

// observe folds a remote clock so that future local ids are greater than
// anything this replica has seen.
func (c *CRDT[T]) observe(remote uint64) {
	c.clock = max(c.clock, remote) + 1
}

func (c *CRDT[T]) checkIndex(index int) error {
	if n := c.list.Len(); index < 0 || index >= n {
		return outOfRange(index, n)
	}
	return nil
}
