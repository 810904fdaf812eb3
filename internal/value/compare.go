package value

import (
	"sort"
	"strconv"
)

// typeRank implements the cross-type total order of spec §4.6:
// null < bool < number < string < array < object.
func typeRank(v Value) int {
	switch v.Kind {
	case KindNull:
		return 0
	case KindBool:
		return 1
	case KindInt, KindFloat:
		return 2
	case KindString:
		return 3
	case KindArray:
		return 4
	case KindObject:
		return 5
	default:
		return 6
	}
}

// Compare returns -1, 0 or 1 for a<b, a==b, a>b under the total order
// of spec §4.6. Numbers compare by magnitude regardless of int/float
// kind; strings compare lexicographically by code unit; arrays compare
// elementwise then by length; objects compare by sorted-key canonical
// string (structural equality, consistent ordering for ties).
func Compare(a, b Value) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch a.Kind {
	case KindNull:
		return 0
	case KindBool:
		if a.B == b.B {
			return 0
		}
		if !a.B {
			return -1
		}
		return 1
	case KindInt, KindFloat:
		af, bf := a.AsFloat(), b.AsFloat()
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	case KindString:
		switch {
		case a.S < b.S:
			return -1
		case a.S > b.S:
			return 1
		default:
			return 0
		}
	case KindArray:
		n := len(a.Arr)
		if len(b.Arr) < n {
			n = len(b.Arr)
		}
		for i := 0; i < n; i++ {
			if c := Compare(a.Arr[i], b.Arr[i]); c != 0 {
				return c
			}
		}
		switch {
		case len(a.Arr) < len(b.Arr):
			return -1
		case len(a.Arr) > len(b.Arr):
			return 1
		default:
			return 0
		}
	case KindObject:
		as, bs := a.CanonicalString(), b.CanonicalString()
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	default:
		return 0
	}
}

// Equal implements `=` per spec §4.6: numeric cross-type equivalence,
// mismatched top-level types are never equal (not an error).
func Equal(a, b Value) bool {
	if a.IsNumber() && b.IsNumber() {
		return a.AsFloat() == b.AsFloat()
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindBool:
		return a.B == b.B
	case KindString:
		return a.S == b.S
	case KindArray:
		if len(a.Arr) != len(b.Arr) {
			return false
		}
		for i := range a.Arr {
			if !Equal(a.Arr[i], b.Arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.Obj) != len(b.Obj) {
			return false
		}
		for k, av := range a.Obj {
			bv, ok := b.Obj[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func canonical(v Value) string {
	var sb []byte
	sb = appendCanonical(sb, v)
	return string(sb)
}

func appendCanonical(buf []byte, v Value) []byte {
	switch v.Kind {
	case KindNull:
		return append(buf, "null"...)
	case KindBool:
		if v.B {
			return append(buf, "true"...)
		}
		return append(buf, "false"...)
	case KindInt:
		return strconv.AppendInt(buf, v.I, 10)
	case KindFloat:
		return strconv.AppendFloat(buf, v.F, 'g', -1, 64)
	case KindString:
		buf = append(buf, '"')
		buf = append(buf, v.S...)
		return append(buf, '"')
	case KindArray:
		buf = append(buf, '[')
		for i, e := range v.Arr {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = appendCanonical(buf, e)
		}
		return append(buf, ']')
	case KindObject:
		keys := make([]string, 0, len(v.Obj))
		for k := range v.Obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf = append(buf, '{')
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = append(buf, '"')
			buf = append(buf, k...)
			buf = append(buf, '"', ':')
			buf = appendCanonical(buf, v.Obj[k])
		}
		return append(buf, '}')
	default:
		return buf
	}
}
