// Package tree holds the live node tree: nodes, their endpoints, and the
// structural primitives that keep paths consistent.
//
// The tree is an arena. Nodes are addressed by a stable NodeID that is
// never reused; parents and children refer to each other by id, and the
// arena is the only place nodes are created or destroyed. A node's Path is
// derived (parent path + name) and every structural mutation repropagates
// paths depth-first through the moved subtree before it returns.
//
// The tree performs no locking. Callers (the engine Server) serialize
// access.
package tree
