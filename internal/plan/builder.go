package plan

import (
	"fmt"
	"strings"

	"github.com/lvendrame/fosk/internal/analyzer"
	"github.com/lvendrame/fosk/internal/ast"
)

// Build turns a bound query into a logical plan tree. Unlike the
// draft planner in original_source (which rejects any FROM with more
// than one collection), this builder always folds every JOIN clause
// into the plan: spec §2/§4.5 require a multi-way join planner with
// four join modes as a core component.
func Build(q *analyzer.Query) (Node, error) {
	var node Node = Scan{Backing: q.From.Backing, Visible: q.From.Visible}
	for _, j := range q.Joins {
		right := Scan{Backing: j.Right.Backing, Visible: j.Right.Visible}
		node = Join{Left: node, Right: right, Kind: j.Kind, On: j.On}
	}

	if q.Where != nil {
		node = Filter{Input: node, Predicate: q.Where}
	}

	if q.HasAggregate {
		aggs := collectAggregates(q)
		node = Aggregate{Input: node, GroupKeys: q.GroupBy, Aggs: aggs}
		if q.Having != nil {
			node = Filter{Input: node, Predicate: q.Having}
		}
	}

	node = Project{Input: node, Projection: q.Projection}

	if q.Distinct {
		node = Distinct{Input: node, Projection: q.Projection}
	}

	if len(q.OrderBy) > 0 {
		node = Sort{Input: node, Keys: q.OrderBy}
	}

	if q.Limit != nil || q.Offset != nil {
		node = Limit{Input: node, Limit: q.Limit, Offset: q.Offset}
	}

	// Project keeps every source column alongside the projected ones so
	// Sort above it can still resolve an ORDER BY key that names a
	// column outside the SELECT list (ordinary SQL, spec §4.2's
	// order_list grammar places no such restriction). Finalize is the
	// one place those hidden columns get dropped.
	node = Finalize{Input: node, Projection: q.Projection}

	return node, nil
}

// collectAggregates walks the projection list and HAVING predicate,
// returning a deduplicated list of aggregate calls keyed by function
// name + DISTINCT flag + argument shape, grounded on
// original_source/src/planner/plan_builder.rs's collect_aggregates.
func collectAggregates(q *analyzer.Query) []AggCall {
	seen := map[string]bool{}
	var out []AggCall
	add := func(fc ast.FuncCall) {
		key := aggKey(fc)
		if seen[key] {
			return
		}
		seen[key] = true
		var arg ast.Expr
		if !fc.Star && len(fc.Args) > 0 {
			arg = fc.Args[0]
		}
		out = append(out, AggCall{Key: key, Func: fc.Name, Distinct: fc.Distinct, Arg: arg})
	}
	var walk func(e ast.Expr)
	walk = func(e ast.Expr) {
		switch n := e.(type) {
		case nil:
		case ast.FuncCall:
			if ast.AggregateNames[n.Name] {
				add(n)
				return
			}
			for _, a := range n.Args {
				walk(a)
			}
		case ast.BinaryExpr:
			walk(n.Left)
			walk(n.Right)
		case ast.UnaryExpr:
			walk(n.Expr)
		case ast.InExpr:
			walk(n.Expr)
			for _, item := range n.List {
				walk(item)
			}
		case ast.IsNullExpr:
			walk(n.Expr)
		case ast.LikeExpr:
			walk(n.Expr)
			walk(n.Pattern)
		}
	}
	for _, p := range q.Projection {
		walk(p.Expr)
	}
	walk(q.Having)
	return out
}

func aggKey(fc ast.FuncCall) string {
	distinct := ""
	if fc.Distinct {
		distinct = "distinct:"
	}
	if fc.Star {
		return fmt.Sprintf("%s(%sstar)", strings.ToLower(fc.Name), distinct)
	}
	argKey := ""
	if len(fc.Args) > 0 {
		argKey = exprKeyForAgg(fc.Args[0])
	}
	return fmt.Sprintf("%s(%s%s)", strings.ToLower(fc.Name), distinct, argKey)
}

func exprKeyForAgg(e ast.Expr) string {
	if id, ok := e.(ast.Identifier); ok {
		if id.Qualifier != "" {
			return id.Qualifier + "." + id.Name
		}
		return id.Name
	}
	return fmt.Sprintf("%T:%v", e, e)
}
