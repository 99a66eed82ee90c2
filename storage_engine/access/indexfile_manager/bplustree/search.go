package bplus

// Lookup returns the entry stored under key. A miss is (zero, false, nil).
func (t *Tree[K, E]) Lookup(key K) (E, bool, error) {
	var zero E
	_, _, _, b, err := t.locate(key)
	if err != nil || b == nil {
		return zero, false, err
	}
	if i := t.findEntry(b.entries, key); i >= 0 {
		return b.entries[i], true, nil
	}
	return zero, false, nil
}

// Replace overwrites the entry with the same key as e in place, without
// touching the tree shape. It reports false when no such entry exists.
func (t *Tree[K, E]) Replace(e E) (bool, error) {
	key := t.ents.Key(e)
	_, _, _, b, err := t.locate(key)
	if err != nil || b == nil {
		return false, err
	}
	i := t.findEntry(b.entries, key)
	if i < 0 {
		return false, nil
	}
	b.entries[i] = e
	return true, t.writeBucket(b)
}
