package crdt

import (
	"fmt"
	"strconv"
	"strings"
)

// NodeID identifies a node in a list. Clock is the logical clock of the
// replica that minted it, Client is that replica's id.
type NodeID struct {
	Clock  uint64 `json:"clock"`
	Client uint64 `json:"client"`
}

// BlockID and CharID name the identifier by the list it lives in.
type (
	BlockID = NodeID
	CharID  = NodeID
)

func NewNodeID(clock, client uint64) NodeID {
	return NodeID{Clock: clock, Client: client}
}

func (id NodeID) Equals(other NodeID) bool {
	return id == other
}

// Precedes orders by clock, then by client. It only breaks ties between
// concurrent inserts; list order comes from the prev/next links.
func (id NodeID) Precedes(other NodeID) bool {
	if id.Clock != other.Clock {
		return id.Clock < other.Clock
	}
	return id.Client < other.Client
}

// Key returns the canonical "client-clock" form used for serialized node maps.
func (id NodeID) Key() string {
	return strconv.FormatUint(id.Client, 10) + "-" + strconv.FormatUint(id.Clock, 10)
}

func (id NodeID) String() string {
	return id.Key()
}

// ParseNodeID is the inverse of Key.
func ParseNodeID(key string) (NodeID, error) {
	client, clock, ok := strings.Cut(key, "-")
	if !ok {
		return NodeID{}, fmt.Errorf("invalid node id %q", key)
	}
	c, err := strconv.ParseUint(client, 10, 64)
	if err != nil {
		return NodeID{}, fmt.Errorf("invalid node id client %q: %w", key, err)
	}
	k, err := strconv.ParseUint(clock, 10, 64)
	if err != nil {
		return NodeID{}, fmt.Errorf("invalid node id clock %q: %w", key, err)
	}
	return NodeID{Clock: k, Client: c}, nil
}

func idPtr(id NodeID) *NodeID {
	return &id
}

func copyID(id *NodeID) *NodeID {
	if id == nil {
		return nil
	}
	return idPtr(*id)
}

func sameID(a, b *NodeID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
