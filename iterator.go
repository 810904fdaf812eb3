package fosk

import "github.com/lvendrame/fosk/internal/value"

// Iterator is the Cursor pattern grounded on
// _examples/KartikBazzad-bunbase/bundoc/iterator.go: Next() advances,
// Value() retrieves. FOSK's own SQL result pipeline uses
// internal/exec's batch Row slices instead (spec §4.5); this iterator
// family backs only the non-SQL paginated Collection.Scan API of
// spec §6.2.
type Iterator interface {
	Next() bool
	Value() value.Value
}

// sliceIterator walks a collection's documents in insertion order.
type sliceIterator struct {
	keys  []string
	docs  map[string]value.Value
	index int
}

func newSliceIterator(keys []string, docs map[string]value.Value) *sliceIterator {
	return &sliceIterator{keys: keys, docs: docs, index: -1}
}

func (it *sliceIterator) Next() bool {
	it.index++
	return it.index < len(it.keys)
}

func (it *sliceIterator) Value() value.Value {
	return it.docs[it.keys[it.index]]
}

// limitIterator caps the number of results pulled from source.
type limitIterator struct {
	source Iterator
	limit  int
	count  int
}

func newLimitIterator(source Iterator, limit int) Iterator {
	if limit < 0 {
		return source
	}
	return &limitIterator{source: source, limit: limit}
}

func (it *limitIterator) Next() bool {
	if it.count >= it.limit {
		return false
	}
	if it.source.Next() {
		it.count++
		return true
	}
	return false
}

func (it *limitIterator) Value() value.Value { return it.source.Value() }

// skipIterator discards the first n results pulled from source.
type skipIterator struct {
	source  Iterator
	skip    int
	skipped bool
}

func newSkipIterator(source Iterator, skip int) Iterator {
	if skip <= 0 {
		return source
	}
	return &skipIterator{source: source, skip: skip}
}

func (it *skipIterator) Next() bool {
	if !it.skipped {
		for i := 0; i < it.skip; i++ {
			if !it.source.Next() {
				return false
			}
		}
		it.skipped = true
	}
	return it.source.Next()
}

func (it *skipIterator) Value() value.Value { return it.source.Value() }
