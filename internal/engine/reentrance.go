package engine

import (
	"fmt"

	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/tree"
)

// EndpointKey identifies a node endpoint independently of its path, so
// renames and moves during a trigger chain do not confuse the checker.
type EndpointKey struct {
	Node     tree.NodeID
	Endpoint string
}

func (k EndpointKey) String() string {
	return fmt.Sprintf("%d/%s", k.Node, k.Endpoint)
}

// ReentranceEntry is one in-flight set.
type ReentranceEntry struct {
	Key    EndpointKey
	Source ir.CommandSource
}

// ReentranceChecker is the call-graph cycle breaker for Set.
//
// An endpoint may only be on the stack once: a Logic hook that, directly
// or transitively, sets the endpoint whose set triggered it is rejected.
//
// It is not a concurrency primitive. The Server consults it under its own
// lock, so it carries none.
type ReentranceChecker struct {
	stack []ReentranceEntry
}

// NewReentranceChecker creates an empty checker.
func NewReentranceChecker() *ReentranceChecker {
	return &ReentranceChecker{}
}

// Push records key as in flight. If key is already on the stack it returns
// ok=false and leaves the stack unchanged. Otherwise it returns a release
// func that pops the entry; callers defer it so the pop runs on every exit
// path.
//
//	release, ok := c.Push(key, source)
//	if !ok {
//	    return reentranceError
//	}
//	defer release()
func (c *ReentranceChecker) Push(key EndpointKey, source ir.CommandSource) (release func(), ok bool) {
	if c.Contains(key) {
		return nil, false
	}
	c.stack = append(c.stack, ReentranceEntry{Key: key, Source: source})
	depth := len(c.stack)

	released := false
	return func() {
		if released {
			panic(fmt.Sprintf("reentrance: release of %s called twice", key))
		}
		c.pop(key, depth)
		released = true
	}, true
}

// pop removes the top entry. Anything other than popping the entry this
// release was issued for is a broken push/pop pairing and panics.
func (c *ReentranceChecker) pop(key EndpointKey, depth int) {
	if len(c.stack) == 0 {
		panic(fmt.Sprintf("reentrance: pop of %s on empty stack", key))
	}
	top := c.stack[len(c.stack)-1]
	if len(c.stack) != depth || top.Key != key {
		panic(fmt.Sprintf("reentrance: pop of %s at depth %d, top is %s at depth %d", key, depth, top.Key, len(c.stack)))
	}
	c.stack = c.stack[:len(c.stack)-1]
}

// Contains reports whether key is in flight.
func (c *ReentranceChecker) Contains(key EndpointKey) bool {
	for _, e := range c.stack {
		if e.Key == key {
			return true
		}
	}
	return false
}

// ContainsNode reports whether any endpoint of a node accepted by match is
// in flight.
func (c *ReentranceChecker) ContainsNode(match func(tree.NodeID) bool) bool {
	for _, e := range c.stack {
		if match(e.Key.Node) {
			return true
		}
	}
	return false
}

// Depth returns the number of in-flight sets.
func (c *ReentranceChecker) Depth() int {
	return len(c.stack)
}

// Entries returns a copy of the stack, bottom first.
func (c *ReentranceChecker) Entries() []ReentranceEntry {
	out := make([]ReentranceEntry, len(c.stack))
	copy(out, c.stack)
	return out
}
