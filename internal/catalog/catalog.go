// Package catalog exposes the schema-inference contract the analyzer
// binds identifiers against: for each referenced collection, a map of
// field name to inferred type tag, computed by sampling documents.
package catalog

import "github.com/lvendrame/fosk/internal/value"

// TypeTag is the inferred JSON type of a field across a sample.
type TypeTag int

const (
	TagNull TypeTag = iota
	TagBool
	TagInt
	TagFloat
	TagString
	TagArray
	TagObject
	TagMixed
)

func (t TypeTag) String() string {
	switch t {
	case TagBool:
		return "bool"
	case TagInt:
		return "int"
	case TagFloat:
		return "float"
	case TagString:
		return "string"
	case TagArray:
		return "array"
	case TagObject:
		return "object"
	case TagMixed:
		return "mixed"
	default:
		return "null"
	}
}

// Schema maps field name to inferred type tag for one collection.
type Schema map[string]TypeTag

// Provider is implemented by the collection store: it answers the
// analyzer's schema lookups by collection name, case-insensitively
// (spec §11 supplemental: collection-name lookup is case-insensitive,
// confirmed against original_source/src/database/db.rs tests).
type Provider interface {
	SchemaOf(name string) (Schema, bool)
}

// SampleFloor is the minimum sample size spec §4.3 requires
// (sample_cap >= 64 documents, or the full collection if smaller).
const SampleFloor = 64

// Infer computes the field -> type-tag map over up to sampleCap
// documents (defaulting to SampleFloor when sampleCap <= 0).
func Infer(docs []value.Value, sampleCap int) Schema {
	if sampleCap <= 0 {
		sampleCap = SampleFloor
	}
	if sampleCap > len(docs) {
		sampleCap = len(docs)
	}
	observed := make(map[string]map[TypeTag]bool)
	for i := 0; i < sampleCap; i++ {
		doc := docs[i]
		if doc.Kind != value.KindObject {
			continue
		}
		for field, v := range doc.Obj {
			if observed[field] == nil {
				observed[field] = make(map[TypeTag]bool)
			}
			observed[field][tagOf(v)] = true
		}
	}
	schema := make(Schema, len(observed))
	for field, tags := range observed {
		schema[field] = resolveTag(tags)
	}
	return schema
}

func tagOf(v value.Value) TypeTag {
	switch v.Kind {
	case value.KindNull:
		return TagNull
	case value.KindBool:
		return TagBool
	case value.KindInt:
		return TagInt
	case value.KindFloat:
		return TagFloat
	case value.KindString:
		return TagString
	case value.KindArray:
		return TagArray
	case value.KindObject:
		return TagObject
	default:
		return TagNull
	}
}

// resolveTag collapses the set of observed tags for one field into a
// single tag: the unique observed tag, `mixed` when two distinct
// non-null tags appear, or the non-null tag when the only other
// observation is null.
func resolveTag(tags map[TypeTag]bool) TypeTag {
	nonNull := make([]TypeTag, 0, len(tags))
	for t := range tags {
		if t != TagNull {
			nonNull = append(nonNull, t)
		}
	}
	switch len(nonNull) {
	case 0:
		return TagNull
	case 1:
		return nonNull[0]
	default:
		return TagMixed
	}
}
