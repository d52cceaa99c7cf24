// Package ir provides the shared data model for patchbay.
//
// This package contains value types and immutable definitions only. All
// other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Value is a sealed tagged union over Int, Float and String
//   - Interface and endpoint definitions are immutable once loaded
//   - Paths are value types; every derivation returns a new Path
//   - All JSON tags use snake_case
package ir
