package ir

import (
	"fmt"
	"regexp"
	"strings"
)

// PathSeparator joins path elements in the textual form.
// Node and endpoint names cannot contain it (see ValidName).
const PathSeparator = "."

var validName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidName reports whether s can be used as a node or endpoint name.
func ValidName(s string) bool {
	return validName.MatchString(s)
}

// Path addresses a node or endpoint in the tree.
// The zero Path is the root. Paths are immutable: Append, Parent and
// friends return new values and never share backing storage with the
// receiver.
type Path struct {
	elems []string
}

// NewPath builds a Path from elements. The slice is copied.
func NewPath(elems ...string) Path {
	if len(elems) == 0 {
		return Path{}
	}
	cp := make([]string, len(elems))
	copy(cp, elems)
	return Path{elems: cp}
}

// ParsePath parses the textual form "a.b.c". The empty string is the root.
// Empty elements ("a..b", ".a") are rejected.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return Path{}, nil
	}
	elems := strings.Split(s, PathSeparator)
	for i, e := range elems {
		if e == "" {
			return Path{}, fmt.Errorf("path %q: empty element at position %d", s, i)
		}
	}
	return Path{elems: elems}, nil
}

// MustParsePath is like ParsePath but panics on error.
// Use only in tests or with literal paths.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the textual form.
func (p Path) String() string {
	return strings.Join(p.elems, PathSeparator)
}

// Len returns the number of elements.
func (p Path) Len() int {
	return len(p.elems)
}

// IsRoot reports whether p is the empty path.
func (p Path) IsRoot() bool {
	return len(p.elems) == 0
}

// Elems returns a copy of the path elements.
func (p Path) Elems() []string {
	cp := make([]string, len(p.elems))
	copy(cp, p.elems)
	return cp
}

// Elem returns element i.
func (p Path) Elem(i int) string {
	return p.elems[i]
}

// Append returns p with name appended.
func (p Path) Append(names ...string) Path {
	out := make([]string, 0, len(p.elems)+len(names))
	out = append(out, p.elems...)
	out = append(out, names...)
	return Path{elems: out}
}

// Join returns p followed by every element of q.
func (p Path) Join(q Path) Path {
	return p.Append(q.elems...)
}

// Parent returns p without its last element. The parent of the root is the root.
func (p Path) Parent() Path {
	if len(p.elems) <= 1 {
		return Path{}
	}
	return NewPath(p.elems[:len(p.elems)-1]...)
}

// Leaf returns the last element, or "" for the root.
func (p Path) Leaf() string {
	if len(p.elems) == 0 {
		return ""
	}
	return p.elems[len(p.elems)-1]
}

// Equal compares element-wise.
func (p Path) Equal(q Path) bool {
	if len(p.elems) != len(q.elems) {
		return false
	}
	for i := range p.elems {
		if p.elems[i] != q.elems[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is p or an ancestor of p.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix.elems) > len(p.elems) {
		return false
	}
	for i := range prefix.elems {
		if p.elems[i] != prefix.elems[i] {
			return false
		}
	}
	return true
}

// IsAncestorOf reports whether p is a strict ancestor of q.
// The root is an ancestor of every non-root path.
func (p Path) IsAncestorOf(q Path) bool {
	return len(p.elems) < len(q.elems) && q.HasPrefix(p)
}

// RelativeTo strips base from the front of p.
// ok is false when base is not a prefix of p.
func (p Path) RelativeTo(base Path) (rel Path, ok bool) {
	if !p.HasPrefix(base) {
		return Path{}, false
	}
	return NewPath(p.elems[len(base.elems):]...), true
}

// MarshalText encodes the textual form, so paths are JSON and YAML strings.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes the textual form.
func (p *Path) UnmarshalText(b []byte) error {
	parsed, err := ParsePath(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
