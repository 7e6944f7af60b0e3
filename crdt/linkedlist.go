package crdt

import (
	"fmt"
	"strings"
)

// LinkedList is an id-addressed doubly linked chain. Deleted nodes stay in
// the chain as tombstones until ClearDeletedNodes purges them.
//
// A LinkedList is not safe for concurrent use.
type LinkedList[T Node] struct {
	head    *NodeID
	nodes   map[NodeID]T
	newNode func(value string, id NodeID) T
}

func newLinkedList[T Node](newNode func(value string, id NodeID) T) *LinkedList[T] {
	return &LinkedList[T]{
		nodes:   make(map[NodeID]T),
		newNode: newNode,
	}
}

// ReorderParams moves TargetID right after BeforeID, or to the head when
// BeforeID is nil. AfterID names the node expected to follow the target.
type ReorderParams struct {
	TargetID NodeID  `json:"targetId"`
	BeforeID *NodeID `json:"beforeId"`
	AfterID  *NodeID `json:"afterId"`
}

func (l *LinkedList[T]) Head() *NodeID {
	return copyID(l.head)
}

// Size counts every node in the map, tombstones included.
func (l *LinkedList[T]) Size() int {
	return len(l.nodes)
}

func (l *LinkedList[T]) GetNode(id NodeID) (T, bool) {
	n, ok := l.nodes[id]
	return n, ok
}

func (l *LinkedList[T]) getNode(id *NodeID) (T, bool) {
	if id == nil {
		var zero T
		return zero, false
	}
	return l.GetNode(*id)
}

func (l *LinkedList[T]) SetNode(id NodeID, node T) {
	l.nodes[id] = node
}

// walk visits the chain from head, tombstones included, until fn returns
// false. It stops after Size steps so a corrupted cycle cannot hang it.
func (l *LinkedList[T]) walk(fn func(node T) bool) {
	cur := l.head
	for steps := 0; cur != nil && steps < len(l.nodes); steps++ {
		n, ok := l.nodes[*cur]
		if !ok {
			return
		}
		next := n.element().Next
		if !fn(n) {
			return
		}
		cur = next
	}
}

// Len counts live nodes.
func (l *LinkedList[T]) Len() int {
	count := 0
	l.walk(func(n T) bool {
		if !n.element().Deleted {
			count++
		}
		return true
	})
	return count
}

// FindByIndex returns the index-th live node.
func (l *LinkedList[T]) FindByIndex(index int) (T, error) {
	var found T
	if index < 0 {
		return found, fmt.Errorf("%w: negative index %d", ErrIndexOutOfRange, index)
	}
	ok, i := false, 0
	l.walk(func(n T) bool {
		if n.element().Deleted {
			return true
		}
		if i == index {
			found, ok = n, true
			return false
		}
		i++
		return true
	})
	if !ok {
		return found, outOfRange(index, i)
	}
	return found, nil
}

// InsertAtIndex creates a node and places it so that it becomes the
// index-th live node. Index <= 0 or an empty list inserts at the head.
func (l *LinkedList[T]) InsertAtIndex(index int, value string, id NodeID) (T, error) {
	var zero T
	if _, ok := l.nodes[id]; ok {
		return zero, fmt.Errorf("insert at index %d: node %s already exists", index, id)
	}
	if l.head == nil || index <= 0 {
		node := l.newNode(value, id)
		l.SetNode(id, node)
		l.linkAtHead(node.element())
		return node, nil
	}
	prev, err := l.FindByIndex(index - 1)
	if err != nil {
		return zero, fmt.Errorf("insert at index %d: %w", index, err)
	}
	node := l.newNode(value, id)
	l.SetNode(id, node)
	l.linkAfter(prev.element(), node.element())
	return node, nil
}

// InsertByID integrates a node whose Prev was decided by another replica.
// Inserting an id that is already present is a no-op. Concurrent siblings
// with the same Prev are ordered so that the greater id comes first.
func (l *LinkedList[T]) InsertByID(node T) error {
	e := node.element()
	if _, ok := l.nodes[e.ID]; ok {
		return nil
	}

	var anchor *Element
	next := l.head
	if e.Prev != nil {
		prev, ok := l.nodes[*e.Prev]
		if !ok {
			return missing(*e.Prev)
		}
		anchor = prev.element()
		next = anchor.Next
	}
	for next != nil {
		n, ok := l.nodes[*next]
		if !ok || !e.ID.Precedes(n.element().ID) {
			break
		}
		anchor = n.element()
		next = anchor.Next
	}

	l.SetNode(e.ID, node)
	if anchor == nil {
		l.linkAtHead(e)
	} else {
		l.linkAfter(anchor, e)
	}
	return nil
}

// DeleteNode marks a node as a tombstone. Unknown ids are ignored.
func (l *LinkedList[T]) DeleteNode(id NodeID) {
	if n, ok := l.nodes[id]; ok {
		n.element().Deleted = true
	}
}

// RemoveNode physically unlinks a node and drops it from the map. It is a
// local operation and must never be replicated.
func (l *LinkedList[T]) RemoveNode(id NodeID) {
	n, ok := l.nodes[id]
	if !ok {
		return
	}
	l.unlink(n.element())
	delete(l.nodes, id)
}

// ClearDeletedNodes purges every tombstone and returns how many were
// removed. Only call it when no pending remote operation can still
// reference a purged id.
func (l *LinkedList[T]) ClearDeletedNodes() int {
	var dead []NodeID
	l.walk(func(n T) bool {
		if e := n.element(); e.Deleted {
			dead = append(dead, e.ID)
		}
		return true
	})
	for _, id := range dead {
		l.RemoveNode(id)
	}
	return len(dead)
}

// NodesBetween returns live nodes in [start, end).
func (l *LinkedList[T]) NodesBetween(start, end int) ([]T, error) {
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: [%d, %d)", ErrInvalidRange, start, end)
	}
	live := l.Spread()
	if end > len(live) {
		return nil, outOfRange(end, len(live))
	}
	return live[start:end], nil
}

// Spread returns the live nodes in chain order.
func (l *LinkedList[T]) Spread() []T {
	var out []T
	l.walk(func(n T) bool {
		if !n.element().Deleted {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Stringify concatenates live node values in chain order.
func (l *LinkedList[T]) Stringify() string {
	var sb strings.Builder
	l.walk(func(n T) bool {
		if e := n.element(); !e.Deleted {
			sb.WriteString(e.Value)
		}
		return true
	})
	return sb.String()
}

// ReorderNodes moves the target node directly after BeforeID, or to the
// head when BeforeID is nil. AfterID is only checked for existence, so a
// node inserted concurrently between BeforeID and AfterID stays in the
// chain. Concurrent moves of the same node resolve to whichever is applied
// last.
func (l *LinkedList[T]) ReorderNodes(p ReorderParams) error {
	target, ok := l.nodes[p.TargetID]
	if !ok {
		return missing(p.TargetID)
	}
	if sameID(p.BeforeID, &p.TargetID) || sameID(p.AfterID, &p.TargetID) {
		return fmt.Errorf("%w: node %s cannot be moved next to itself", ErrInvalidRange, p.TargetID)
	}
	if p.AfterID != nil {
		if _, ok := l.nodes[*p.AfterID]; !ok {
			return missing(*p.AfterID)
		}
	}

	e := target.element()
	if p.BeforeID == nil {
		l.unlink(e)
		l.linkAtHead(e)
		return nil
	}
	before, ok := l.nodes[*p.BeforeID]
	if !ok {
		return missing(*p.BeforeID)
	}
	l.unlink(e)
	l.linkAfter(before.element(), e)
	return nil
}

func (l *LinkedList[T]) linkAtHead(e *Element) {
	e.Prev = nil
	e.Next = copyID(l.head)
	if old, ok := l.getNode(l.head); ok {
		old.element().Prev = idPtr(e.ID)
	}
	l.head = idPtr(e.ID)
}

func (l *LinkedList[T]) linkAfter(prev, e *Element) {
	e.Prev = idPtr(prev.ID)
	e.Next = copyID(prev.Next)
	prev.Next = idPtr(e.ID)
	if next, ok := l.getNode(e.Next); ok {
		next.element().Prev = idPtr(e.ID)
	}
}

func (l *LinkedList[T]) unlink(e *Element) {
	if prev, ok := l.getNode(e.Prev); ok {
		prev.element().Next = copyID(e.Next)
	}
	if sameID(l.head, &e.ID) {
		l.head = copyID(e.Next)
	}
	if next, ok := l.getNode(e.Next); ok {
		next.element().Prev = copyID(e.Prev)
	}
	e.Prev, e.Next = nil, nil
}

// SerializedList is the persisted form of a list. NodeMap is keyed by
// NodeID.Key.
type SerializedList[S any] struct {
	Head    *NodeID      `json:"head"`
	NodeMap map[string]S `json:"nodeMap"`
}

func serializeList[T Node, S any](l *LinkedList[T], encode func(T) S) SerializedList[S] {
	out := SerializedList[S]{
		Head:    copyID(l.head),
		NodeMap: make(map[string]S, len(l.nodes)),
	}
	for id, n := range l.nodes {
		out.NodeMap[id.Key()] = encode(n)
	}
	return out
}

func deserializeList[T Node, S any](data SerializedList[S], newNode func(string, NodeID) T, decode func(S) (T, error)) (*LinkedList[T], error) {
	l := newLinkedList(newNode)
	l.head = copyID(data.Head)
	for key, s := range data.NodeMap {
		n, err := decode(s)
		if err != nil {
			return nil, fmt.Errorf("decode node %s: %w", key, err)
		}
		id, err := ParseNodeID(key)
		if err != nil {
			return nil, err
		}
		if id != n.element().ID {
			return nil, fmt.Errorf("node map key %s does not match node id %s", key, n.element().ID)
		}
		l.SetNode(id, n)
	}
	if l.head != nil {
		if _, ok := l.nodes[*l.head]; !ok {
			return nil, fmt.Errorf("head %s: %w", l.head, ErrMissingDependency)
		}
	}
	return l, nil
}

// maxClock returns the greatest clock among the list's ids.
func (l *LinkedList[T]) maxClock() uint64 {
	var m uint64
	for id := range l.nodes {
		m = max(m, id.Clock)
	}
	return m
}
