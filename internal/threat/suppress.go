package threat

// Suppress returns a copy of m without the ignored kinds, together with the
// recomputed verdict: passed is true iff nothing remains. Ignoring a kind
// that was not triggered is a no-op, and the order of ignore is irrelevant.
// m itself is never modified.
func Suppress(m Markers, ignore ...Kind) (Markers, bool) {
	out := m.Clone()
	for _, k := range ignore {
		delete(out, k)
	}
	return out, len(out) == 0
}
