package bplus

import "strings"

// WildIterator yields the entries of a string-keyed tree whose keys match a
// glob pattern of '*' (any run) and '?' (any one byte). A literal prefix
// before the first wildcard positions the scan and ends it as soon as keys
// leave the prefix; a pattern starting with a wildcard scans every leaf.
type WildIterator[E any] struct {
	tree    *Tree[string, E]
	it      *Iterator[string, E]
	pattern string
	prefix  string
	done    bool
}

func NewWildIterator[E any](t *Tree[string, E], pattern string) *WildIterator[E] {
	w := &WildIterator[E]{tree: t, pattern: pattern, prefix: LiteralPrefix(pattern)}
	if w.prefix == "" {
		w.it = t.First()
	} else {
		w.it = t.SeekGE(w.prefix)
	}
	return w
}

// Next returns the next matching entry in key order.
func (w *WildIterator[E]) Next() (E, bool) {
	var zero E
	for !w.done {
		e, ok := w.it.Next()
		if !ok {
			w.done = true
			break
		}
		key := w.tree.ents.Key(e)
		if !strings.HasPrefix(key, w.prefix) {
			if key > w.prefix {
				w.done = true
			}
			continue
		}
		if Match(w.pattern, key) {
			return e, true
		}
	}
	return zero, false
}

func (w *WildIterator[E]) Err() error {
	return w.it.Err()
}

// List collects every entry matching pattern.
func List[E any](t *Tree[string, E], pattern string) ([]E, error) {
	var out []E
	w := NewWildIterator(t, pattern)
	for {
		e, ok := w.Next()
		if !ok {
			return out, w.Err()
		}
		out = append(out, e)
	}
}

// LiteralPrefix is the part of pattern before its first wildcard.
func LiteralPrefix(pattern string) string {
	if i := strings.IndexAny(pattern, "*?"); i >= 0 {
		return pattern[:i]
	}
	return pattern
}

// HasWildcard reports whether pattern contains '*' or '?'.
func HasWildcard(pattern string) bool {
	return strings.ContainsAny(pattern, "*?")
}

// Match reports whether s matches the glob pattern. Unlike path.Match and
// doublestar.Match there is no separator, character class or escape: '*'
// and '?' are the only metacharacters, and both may match '/'.
func Match(pattern, s string) bool {
	p, i := 0, 0
	star, mark := -1, 0
	for i < len(s) {
		switch {
		case p < len(pattern) && (pattern[p] == '?' || pattern[p] == s[i]):
			p++
			i++
		case p < len(pattern) && pattern[p] == '*':
			star, mark = p, i
			p++
		case star >= 0:
			p = star + 1
			mark++
			i = mark
		default:
			return false
		}
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}
