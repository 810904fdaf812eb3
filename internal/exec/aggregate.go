package exec

import (
	"github.com/lvendrame/fosk/internal/ast"
	"github.com/lvendrame/fosk/internal/plan"
	"github.com/lvendrame/fosk/internal/value"
)

// groupKey canonicalizes a row's GROUP BY key tuple into a single
// string usable as a map key, matching the teacher family's
// canonical-tuple grouping idiom ([[Value.CanonicalString]]).
func groupKey(row Row, keys []ast.Expr) string {
	if len(keys) == 0 {
		return ""
	}
	var buf []byte
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, '\x1f')
		}
		v := EvalScalar(k, row)
		buf = append(buf, v.CanonicalString()...)
	}
	return string(buf)
}

type aggState struct {
	call         plan.AggCall
	count        int64
	sum          float64
	sumIsFloat   bool
	min          value.Value
	max          value.Value
	hasMinMax    bool
	distinctSeen map[string]bool
}

func newAggState(call plan.AggCall) *aggState {
	return &aggState{call: call, distinctSeen: map[string]bool{}}
}

// feed incorporates one row's contribution to this aggregate, skipping
// nulls per spec §4.5 (every aggregate but COUNT(*) ignores null
// argument values; COUNT(*) counts every row in the group).
func (a *aggState) feed(row Row) {
	if a.call.Func == "COUNT" && a.call.Arg == nil {
		a.count++
		return
	}
	v := EvalScalar(a.call.Arg, row)
	if v.IsNull() {
		return
	}
	if a.call.Distinct {
		key := v.CanonicalString()
		if a.distinctSeen[key] {
			return
		}
		a.distinctSeen[key] = true
	}
	a.count++
	if v.IsNumber() {
		a.sum += v.AsFloat()
		if v.Kind == value.KindFloat {
			a.sumIsFloat = true
		}
	}
	if !a.hasMinMax || value.Compare(v, a.min) < 0 {
		a.min = v
	}
	if !a.hasMinMax || value.Compare(v, a.max) > 0 {
		a.max = v
	}
	a.hasMinMax = true
}

// result computes the final scalar for this aggregate call per spec
// §4.5: COUNT always yields an int; SUM/AVG promote to float whenever
// any contributing value was a float (division for AVG always floats);
// SUM/AVG/MIN/MAX over an empty or all-null group all yield null.
func (a *aggState) result() value.Value {
	switch a.call.Func {
	case "COUNT":
		return value.Int(a.count)
	case "SUM":
		if a.count == 0 {
			return value.Null
		}
		if a.sumIsFloat {
			return value.Float(a.sum)
		}
		return value.Int(int64(a.sum))
	case "AVG":
		if a.count == 0 {
			return value.Null
		}
		return value.Float(a.sum / float64(a.count))
	case "MIN":
		if !a.hasMinMax {
			return value.Null
		}
		return a.min
	case "MAX":
		if !a.hasMinMax {
			return value.Null
		}
		return a.max
	default:
		return value.Null
	}
}

// RunAggregate groups input rows by node.GroupKeys and computes every
// aggregate call in node.Aggs per group, emitting one output row per
// group carrying the group-key columns plus each aggregate's value
// under its [[AggColumnKey]] column name. Grounded on
// original_source/src/executor/aggregate.go's aggregate_rows.
func RunAggregate(node plan.Aggregate, input []Row) []Row {
	type group struct {
		keyRow Row
		states []*aggState
	}
	order := []string{}
	groups := map[string]*group{}

	for _, row := range input {
		k := groupKey(row, node.GroupKeys)
		g, ok := groups[k]
		if !ok {
			keyRow := NewRow()
			for _, ge := range node.GroupKeys {
				keyRow = keyRow.Set(ExprKey(ge), EvalScalar(ge, row))
			}
			states := make([]*aggState, len(node.Aggs))
			for i, call := range node.Aggs {
				states[i] = newAggState(call)
			}
			g = &group{keyRow: keyRow, states: states}
			groups[k] = g
			order = append(order, k)
		}
		// Without GROUP BY keys the group row starts empty, and the
		// first input row's columns are merged into it, so a column
		// reference in HAVING/Project resolves against that row. With
		// GROUP BY keys the group row carries only the key columns and
		// the aggregate results; other source columns are not kept.
		if len(g.keyRow.Keys()) == 0 {
			g.keyRow = g.keyRow.Merge(row)
		}
		for _, st := range g.states {
			st.feed(row)
		}
	}

	// An aggregate with no GROUP BY always yields exactly one row, even
	// over an empty input (COUNT(*) over an empty collection is 0, not
	// absent): spec §4.5's "Group+Aggregate" stage collapses the whole
	// table into a single implicit group in that case.
	if len(order) == 0 && len(node.GroupKeys) == 0 {
		states := make([]*aggState, len(node.Aggs))
		for i, call := range node.Aggs {
			states[i] = newAggState(call)
		}
		groups[""] = &group{keyRow: NewRow(), states: states}
		order = []string{""}
	}

	out := make([]Row, 0, len(order))
	for _, k := range order {
		g := groups[k]
		r := g.keyRow
		for _, st := range g.states {
			r = r.Set(AggColumnKey(callToFuncCall(st.call)), st.result())
		}
		out = append(out, r)
	}
	return out
}

func callToFuncCall(c plan.AggCall) ast.FuncCall {
	fc := ast.FuncCall{Name: c.Func, Distinct: c.Distinct}
	if c.Arg == nil {
		fc.Star = true
	} else {
		fc.Args = []ast.Expr{c.Arg}
	}
	return fc
}
