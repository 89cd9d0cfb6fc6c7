package docforge

import (
	"fmt"
	"strconv"
	"strings"
)

// Path is a dotted variable reference split into its segments.
type Path []string

// ParsePath splits a dotted path such as "user.profile.name". Every segment
// is either an identifier ([A-Za-z_][A-Za-z0-9_]*) or a nonnegative integer
// index.
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty variable path")
	}
	segments := strings.Split(s, ".")
	for i, seg := range segments {
		if seg == "" {
			return nil, fmt.Errorf("empty segment %d in variable path %q", i+1, s)
		}
		for _, r := range seg {
			if !isWordRune(r) {
				return nil, fmt.Errorf("invalid character %q in variable path %q", r, s)
			}
		}
		if isDigit(seg[0]) && !isIndex(seg) {
			return nil, fmt.Errorf("segment %q in variable path %q starts with a digit", seg, s)
		}
	}
	return Path(segments), nil
}

func (p Path) String() string {
	return strings.Join(p, ".")
}

func isWordRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func isIndex(seg string) bool {
	for i := 0; i < len(seg); i++ {
		if !isDigit(seg[i]) {
			return false
		}
	}
	return true
}

// Resolve walks path through ctx. The boolean is false when the path has no
// corresponding value; callers treat that as None.
func Resolve(path Path, ctx Context) (Value, bool) {
	if len(path) == 0 {
		return None(), false
	}
	current := ctx.Root()
	for _, seg := range path {
		next, ok := descend(current, seg)
		if !ok {
			return None(), false
		}
		current = next
	}
	return current, true
}

func descend(v Value, seg string) (Value, bool) {
	switch v.kind {
	case KindMap:
		return v.m.Get(seg)
	case KindSequence:
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx >= len(v.seq) || strings.HasPrefix(seg, "+") {
			return None(), false
		}
		return v.seq[idx], true
	}
	return None(), false
}

// ResolveName parses and resolves a dotted path in one step. Malformed paths
// are reported as unresolved.
func ResolveName(name string, ctx Context) (Value, bool) {
	path, err := ParsePath(name)
	if err != nil {
		return None(), false
	}
	return Resolve(path, ctx)
}

// Has reports whether name resolves to a value other than None.
func Has(name string, ctx Context) bool {
	v, ok := ResolveName(name, ctx)
	return ok && !v.IsNone()
}

// AvailablePaths lists every dotted path reachable through nested maps,
// depth first in insertion order.
func AvailablePaths(ctx Context) []string {
	var paths []string
	var walk func(prefix string, m *Map)
	walk = func(prefix string, m *Map) {
		for _, k := range m.Keys() {
			full := k
			if prefix != "" {
				full = prefix + "." + k
			}
			paths = append(paths, full)
			if child, _ := m.Get(k); child.kind == KindMap {
				walk(full, child.m)
			}
		}
	}
	walk("", ctx.vars)
	return paths
}
