// Package engine implements the patchbay control core.
//
// The Server owns the node tree and executes every mutation as a Command:
// Set, New, Delete, Move, Rename, Save and Load. Transports, scripts,
// connections and the execution host all go through ProcessCommand,
// tagging the command with the CommandSource it came from.
//
// ARCHITECTURE:
//
// Single Lock:
// ProcessCommand holds the server lock for the whole command, including
// every nested command a Logic hook issues. Nested commands call run
// directly and never re-acquire the lock.
//
// Set Pipeline:
//  1. Resolve the endpoint (PATH_ERROR)
//  2. Check value presence and tag against the endpoint kind (TYPE_ERROR)
//  3. Drop host feedback for inactive nodes (Result.Skipped)
//  4. Convert and test the constraint (CONSTRAINT_ERROR)
//  5. Push the endpoint on the reentrance stack (REENTRANCE_ERROR)
//  6. Commit, forward to the host per policy, notify the sink
//  7. Run the node's Logic, then propagate through connections
//
// Nothing is committed before step 6, so a rejected Set leaves the tree
// untouched.
//
// CRITICAL PATTERNS:
//
// CP-1: Host Echo Suppression
// Values from SourceModuleImplementation are committed but never sent
// back to the host. Load values are sent once, in a batch, after the
// whole snapshot exists.
//
// CP-2: Stable Node Identity
// The reentrance stack and the host address nodes by tree.NodeID, never
// by path. Renames and moves inside a trigger chain are safe.
//
// CP-3: Deterministic Order
// Endpoints are visited in definition order, children in insertion
// order, snapshot values in name order.
package engine
