package exec

import "github.com/lvendrame/fosk/internal/value"

// NullRow builds an all-null row over the given fully-qualified keys
// ("alias.field"), used to null-extend an unmatched row for LEFT/
// RIGHT/FULL joins. Grounded on
// original_source/src/executor/join.rs's keyset_for_side, generalized
// to cover every alias a join side carries rather than just its
// leftmost Scan: a RIGHT/FULL join partway through a left-deep chain
// (A JOIN B RIGHT JOIN C) has a left side whose rows already mix
// "A.field"/"B.field" columns, and every one of them needs a null
// counterpart, not only the leftmost alias's.
func NullRow(keys []string) Row {
	r := NewRow()
	for _, k := range keys {
		r = r.Set(k, value.Null)
	}
	return r
}

// KeySet tracks the distinct fully-qualified keys observed across a
// batch of rows on one join side; runJoin uses it to give every
// null-extension row its shape (the catalog schema is not consulted).
type KeySet struct {
	order []string
	seen  map[string]bool
}

func NewKeySet() *KeySet {
	return &KeySet{seen: map[string]bool{}}
}

func (ks *KeySet) Observe(r Row) {
	for _, k := range r.Keys() {
		if !ks.seen[k] {
			ks.seen[k] = true
			ks.order = append(ks.order, k)
		}
	}
}

func (ks *KeySet) Keys() []string { return ks.order }
