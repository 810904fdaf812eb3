// Package plan builds a logical-plan tree from a bound analyzer.Query,
// shaped as spec §4.5's pull-based pipeline: Scan -> Join -> Filter
// (WHERE) -> Group+Aggregate -> Filter (HAVING) -> Project -> Distinct
// -> Sort -> Offset/Limit -> Finalize.
package plan

import (
	"github.com/lvendrame/fosk/internal/analyzer"
	"github.com/lvendrame/fosk/internal/ast"
)

// Node is one stage of the logical plan.
type Node interface{ planNode() }

type Scan struct {
	Backing string
	Visible string
}

type Join struct {
	Left  Node
	Right Node
	Kind  ast.JoinKind
	On    ast.Expr
}

type Filter struct {
	Input     Node
	Predicate ast.Expr
}

// AggCall is one aggregate invocation collected from the projection
// and HAVING clause.
type AggCall struct {
	Key      string // dedup key: lowercased func name + distinct flag + arg shape
	Func     string
	Distinct bool
	Arg      ast.Expr // nil for COUNT(*)
}

type Aggregate struct {
	Input     Node
	GroupKeys []ast.Expr
	Aggs      []AggCall
}

type Project struct {
	Input      Node
	Projection []analyzer.ProjectionOut
}

type Sort struct {
	Input Node
	Keys  []analyzer.OrderKey
}

type Limit struct {
	Input  Node
	Limit  *int64
	Offset *int64
}

type Distinct struct {
	Input      Node
	Projection []analyzer.ProjectionOut
}

// Finalize trims a row down to exactly its projected columns. Project
// (below it in the tree) overlays projection output columns onto the
// row without discarding the source alias.field columns, so that Sort
// can still evaluate ORDER BY keys referencing a column that was never
// selected; Finalize is the last stage of the pipeline and drops
// everything Sort/Limit/Distinct no longer need.
type Finalize struct {
	Input      Node
	Projection []analyzer.ProjectionOut
}

func (Scan) planNode()      {}
func (Join) planNode()      {}
func (Filter) planNode()    {}
func (Aggregate) planNode() {}
func (Project) planNode()   {}
func (Sort) planNode()      {}
func (Limit) planNode()     {}
func (Distinct) planNode()  {}
func (Finalize) planNode()  {}
