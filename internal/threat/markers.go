package threat

import (
	"sort"
	"strconv"
	"strings"
)

// Markers maps each triggered kind to the backend's diagnostic message.
// A kind that is absent was not triggered. JSON encoding keys by kind name.
type Markers map[Kind]string

// Has reports whether k was triggered.
func (m Markers) Has(k Kind) bool {
	_, ok := m[k]
	return ok
}

// Kinds returns the triggered kinds in wire-index order.
func (m Markers) Kinds() []Kind {
	kinds := make([]Kind, 0, len(m))
	for k := range m {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Names returns the names of the triggered kinds in wire-index order.
func (m Markers) Names() []string {
	kinds := m.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return names
}

// Clone returns an independent copy. Cloning nil yields an empty mapping.
func (m Markers) Clone() Markers {
	out := make(Markers, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// String renders the mapping as {Name: "message", ...} in index order.
func (m Markers) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range m.Kinds() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k.String())
		b.WriteString(": ")
		b.WriteString(strconv.Quote(m[k]))
	}
	b.WriteByte('}')
	return b.String()
}
