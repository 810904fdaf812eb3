// Package exec implements the pull-based executor pipeline of spec
// §4.5: Scan -> Join -> Filter(WHERE) -> Group+Aggregate ->
// Filter(HAVING) -> Project -> Distinct -> Sort -> Offset/Limit ->
// Finalize, operating over Rows of qualified-name -> value.Value
// pairs.
package exec

import (
	"sort"

	"github.com/lvendrame/fosk/internal/value"
)

// Row is an ordered tuple of (qualified-name, value) pairs. Rows are
// treated as immutable within a stage; every stage produces a new Row
// slice rather than mutating its input (spec §3).
type Row struct {
	keys []string
	vals map[string]value.Value
}

func NewRow() Row {
	return Row{vals: map[string]value.Value{}}
}

func (r Row) Get(key string) (value.Value, bool) {
	v, ok := r.vals[key]
	return v, ok
}

func (r Row) Keys() []string { return r.keys }

// Set returns a new Row with key bound to v, preserving key order for
// previously-set keys and appending new ones at the end.
func (r Row) Set(key string, v value.Value) Row {
	vals := make(map[string]value.Value, len(r.vals)+1)
	for k, val := range r.vals {
		vals[k] = val
	}
	_, existed := vals[key]
	vals[key] = v
	keys := r.keys
	if !existed {
		keys = append(append([]string{}, r.keys...), key)
	}
	return Row{keys: keys, vals: vals}
}

// Merge combines two rows' fields; on key collision, other wins.
func (r Row) Merge(other Row) Row {
	out := r
	for _, k := range other.keys {
		v, _ := other.Get(k)
		out = out.Set(k, v)
	}
	return out
}

// KeysWithPrefix returns every key of r that starts with prefix+".".
func (r Row) KeysWithPrefix(prefix string) []string {
	var out []string
	p := prefix + "."
	for _, k := range r.keys {
		if len(k) > len(p) && k[:len(p)] == p {
			out = append(out, k)
		}
	}
	return out
}

// FromDocument builds a Row from a document's fields, each prefixed
// by alias (spec §4.5 Scan: "tags fields with the alias prefix").
func FromDocument(alias string, doc value.Value) Row {
	r := NewRow()
	if doc.Kind != value.KindObject {
		return r
	}
	// Deterministic field order: documents are plain maps, so sort
	// keys for stable column ordering in SELECT * output.
	fields := sortedKeys(doc.Obj)
	for _, f := range fields {
		r = r.Set(alias+"."+f, doc.Obj[f])
	}
	return r
}

func sortedKeys(m map[string]value.Value) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
