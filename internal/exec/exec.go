package exec

import (
	"context"
	"fmt"
	"sort"

	"github.com/lvendrame/fosk/internal/analyzer"
	"github.com/lvendrame/fosk/internal/ast"
	"github.com/lvendrame/fosk/internal/plan"
	"github.com/lvendrame/fosk/internal/value"
)

// RuntimeError reports a failure surfaced while pulling rows through
// the plan tree (as opposed to a BindError caught earlier at analysis
// time), per spec §7.
type RuntimeError struct{ Msg string }

func (e *RuntimeError) Error() string { return "runtime error: " + e.Msg }

func runtimeErrf(format string, args ...any) error {
	return &RuntimeError{Msg: fmt.Sprintf(format, args...)}
}

// Source supplies the documents backing one named collection to Scan,
// decoupling the executor from the root fosk.Collection type.
type Source interface {
	Documents() []value.Value
}

// Run pulls the full result set for node against the given sources,
// keyed by backing collection name (spec §4.5's pull-based pipeline,
// materialized eagerly stage-by-stage: each stage returns its complete
// Row slice to the stage above it rather than yielding rows one at a
// time).
func Run(ctx context.Context, node plan.Node, sources map[string]Source) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch n := node.(type) {
	case plan.Scan:
		return runScan(n, sources)
	case plan.Join:
		return runJoin(ctx, n, sources)
	case plan.Filter:
		return runFilter(ctx, n, sources)
	case plan.Aggregate:
		input, err := Run(ctx, n.Input, sources)
		if err != nil {
			return nil, err
		}
		return RunAggregate(n, input), nil
	case plan.Project:
		return runProject(ctx, n, sources)
	case plan.Sort:
		return runSort(ctx, n, sources)
	case plan.Limit:
		return runLimit(ctx, n, sources)
	case plan.Distinct:
		return runDistinct(ctx, n, sources)
	case plan.Finalize:
		return runFinalize(ctx, n, sources)
	default:
		return nil, runtimeErrf("unhandled plan node %T", node)
	}
}

func runScan(n plan.Scan, sources map[string]Source) ([]Row, error) {
	src, ok := sources[n.Backing]
	if !ok {
		return nil, runtimeErrf("collection %q has no source bound", n.Backing)
	}
	docs := src.Documents()
	out := make([]Row, 0, len(docs))
	for _, d := range docs {
		out = append(out, FromDocument(n.Visible, d))
	}
	return out, nil
}

// runJoin implements spec §4.5's nested-loop join over all four modes.
// Unmatched rows are null-extended using the opposite side's observed
// key set, per [[NullRow]]/[[KeySet]] — covering every alias already
// folded into that side, which matters once a join side is itself the
// output of an earlier join in a left-deep chain.
func runJoin(ctx context.Context, n plan.Join, sources map[string]Source) ([]Row, error) {
	left, err := Run(ctx, n.Left, sources)
	if err != nil {
		return nil, err
	}
	right, err := Run(ctx, n.Right, sources)
	if err != nil {
		return nil, err
	}

	leftKeys := NewKeySet()
	for _, r := range left {
		leftKeys.Observe(r)
	}
	rightKeys := NewKeySet()
	for _, r := range right {
		rightKeys.Observe(r)
	}

	var out []Row
	leftMatched := make([]bool, len(left))
	rightMatched := make([]bool, len(right))

	for li, lrow := range left {
		for ri, rrow := range right {
			combined := lrow.Merge(rrow)
			t := EvalPredicate3(n.On, combined)
			if t == value.True {
				leftMatched[li] = true
				rightMatched[ri] = true
				out = append(out, combined)
			}
		}
	}

	switch n.Kind {
	case ast.LeftJoin, ast.FullJoin:
		for li, lrow := range left {
			if !leftMatched[li] {
				out = append(out, lrow.Merge(NullRow(rightKeys.Keys())))
			}
		}
	}
	switch n.Kind {
	case ast.RightJoin, ast.FullJoin:
		for ri, rrow := range right {
			if !rightMatched[ri] {
				out = append(out, NullRow(leftKeys.Keys()).Merge(rrow))
			}
		}
	}

	return out, nil
}

func runFilter(ctx context.Context, n plan.Filter, sources map[string]Source) ([]Row, error) {
	input, err := Run(ctx, n.Input, sources)
	if err != nil {
		return nil, err
	}
	out := make([]Row, 0, len(input))
	for _, row := range input {
		if EvalPredicate3(n.Predicate, row) == value.True {
			out = append(out, row)
		}
	}
	return out, nil
}

// runProject evaluates each bound expression and sets it on the row
// under its analyzer-assigned OutputName, per spec §4.3/§4.4. Wildcard
// entries need no evaluation: the alias.field columns they expand to
// are already present on the row. Unlike a row's final JSON shape,
// the row returned here still carries every source alias.field column
// untouched alongside the new projection columns — Sort (which runs
// above this stage) may need to evaluate an ORDER BY key that names a
// column outside the SELECT list, and Finalize is what drops the rest
// once Sort/Limit/Distinct no longer need it.
func runProject(ctx context.Context, n plan.Project, sources map[string]Source) ([]Row, error) {
	input, err := Run(ctx, n.Input, sources)
	if err != nil {
		return nil, err
	}
	out := make([]Row, 0, len(input))
	for _, row := range input {
		projected := row
		for _, p := range n.Projection {
			if p.Wildcard {
				continue
			}
			v := EvalScalarPostAgg(p.Expr, row)
			projected = projected.Set(p.OutputName, v)
		}
		out = append(out, projected)
	}
	return out, nil
}

func wildcardKeys(row Row, alias string) []string {
	if alias != "" {
		return row.KeysWithPrefix(alias)
	}
	return row.Keys()
}

// visibleRow extracts exactly the columns projs names from row: the
// wildcard-expanded alias.field columns for a wildcard entry, or the
// already-computed OutputName column (set by runProject) for an
// explicit one. Unlike the row runProject hands to Sort, this one
// carries nothing else — it is the row's final shape.
func visibleRow(row Row, projs []analyzer.ProjectionOut) Row {
	final := NewRow()
	for _, p := range projs {
		if p.Wildcard {
			for _, k := range wildcardKeys(row, p.WildcardOf) {
				v, _ := row.Get(k)
				final = final.Set(k, v)
			}
			continue
		}
		v, _ := row.Get(p.OutputName)
		final = final.Set(p.OutputName, v)
	}
	return final
}

// runFinalize is the pipeline's last stage, trimming every row down to
// its projected columns only. See [[plan.Finalize]].
func runFinalize(ctx context.Context, n plan.Finalize, sources map[string]Source) ([]Row, error) {
	input, err := Run(ctx, n.Input, sources)
	if err != nil {
		return nil, err
	}
	out := make([]Row, 0, len(input))
	for _, row := range input {
		out = append(out, visibleRow(row, n.Projection))
	}
	return out, nil
}

func runSort(ctx context.Context, n plan.Sort, sources map[string]Source) ([]Row, error) {
	input, err := Run(ctx, n.Input, sources)
	if err != nil {
		return nil, err
	}
	out := append([]Row{}, input...)
	sort.SliceStable(out, func(i, j int) bool {
		for _, key := range n.Keys {
			a := EvalScalarPostAgg(key.Expr, out[i])
			b := EvalScalarPostAgg(key.Expr, out[j])
			// spec's deliberate divergence from original_source: NULLs
			// sort last for ASC, first for DESC (direction-dependent),
			// rather than always-last.
			aNull, bNull := a.IsNull(), b.IsNull()
			if aNull || bNull {
				if aNull == bNull {
					continue
				}
				if key.Desc {
					return aNull
				}
				return bNull
			}
			c := value.Compare(a, b)
			if c == 0 {
				continue
			}
			if key.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return out, nil
}

func runLimit(ctx context.Context, n plan.Limit, sources map[string]Source) ([]Row, error) {
	input, err := Run(ctx, n.Input, sources)
	if err != nil {
		return nil, err
	}
	start := int64(0)
	if n.Offset != nil {
		start = *n.Offset
	}
	if start < 0 {
		start = 0
	}
	if start >= int64(len(input)) {
		return []Row{}, nil
	}
	end := int64(len(input))
	if n.Limit != nil {
		if *n.Limit < 0 {
			return []Row{}, nil
		}
		if start+*n.Limit < end {
			end = start + *n.Limit
		}
	}
	return input[start:end], nil
}

// runDistinct dedups on the query's projected columns, per SQL's usual
// DISTINCT semantics, not on the full row: the row at this stage still
// carries every source column Project left in place for Sort above it
// (see [[plan.Finalize]]), and two rows that differ only in a column
// never selected must still collapse into one.
func runDistinct(ctx context.Context, n plan.Distinct, sources map[string]Source) ([]Row, error) {
	input, err := Run(ctx, n.Input, sources)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	out := make([]Row, 0, len(input))
	for _, row := range input {
		key := rowKey(visibleRow(row, n.Projection))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, row)
	}
	return out, nil
}

func rowKey(row Row) string {
	var buf []byte
	for i, k := range row.Keys() {
		if i > 0 {
			buf = append(buf, '\x1f')
		}
		v, _ := row.Get(k)
		buf = append(buf, v.CanonicalString()...)
	}
	return string(buf)
}
