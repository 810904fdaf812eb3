// Package ast defines the FOSK SQL abstract syntax tree and the
// recursive-descent parser that builds it from a token stream.
package ast

// JoinKind enumerates the four supported join modes.
type JoinKind int

const (
	InnerJoin JoinKind = iota
	LeftJoin
	RightJoin
	FullJoin
)

// Select is the top-level parsed statement.
type Select struct {
	Distinct   bool
	Projection []Projection
	From       FromItem
	Joins      []Join
	Where      Expr
	GroupBy    []Expr
	Having     Expr
	OrderBy    []OrderKey
	Limit      *int64
	Offset     *int64
}

// Projection is one entry of the SELECT list.
type Projection struct {
	Expr        Expr // nil for Wildcard/QualifiedWildcard
	Wildcard    bool
	WildcardOf  string // alias for "alias.*"; empty for "*"
	Alias       string // explicit "AS alias"; empty if none given
}

// FromItem names a collection and the alias it is addressed by.
type FromItem struct {
	Collection string
	Alias      string // defaults to Collection when not given
}

// Join is one JOIN clause chained onto the FROM list.
type Join struct {
	Kind  JoinKind
	Right FromItem
	On    Expr
}

// OrderKey is one ORDER BY entry.
type OrderKey struct {
	Expr Expr
	Desc bool
}

// Expr is the sealed interface implemented by every expression node.
type Expr interface {
	exprNode()
}

type Literal struct {
	Value any // nil, bool, int64, float64, string
}

type Param struct {
	Index int // 0-based, in left-to-right appearance order
}

type Identifier struct {
	Qualifier string // alias, or "" if unqualified
	Name      string
}

type BinaryExpr struct {
	Op    string // = <> != < <= > >= + - * / % AND OR
	Left  Expr
	Right Expr
}

type UnaryExpr struct {
	Op   string // NOT, -
	Expr Expr
}

type InExpr struct {
	Expr Expr
	List []Expr
	Not  bool
}

type IsNullExpr struct {
	Expr Expr
	Not  bool
}

type LikeExpr struct {
	Expr    Expr
	Pattern Expr
	Not     bool
}

// FuncCall covers both aggregate calls (COUNT/SUM/AVG/MIN/MAX) and
// scalar functions (UPPER/LOWER/TRIM/LENGTH).
type FuncCall struct {
	Name     string
	Distinct bool
	Args     []Expr
	Star     bool // COUNT(*)
}

func (Literal) exprNode()    {}
func (Param) exprNode()      {}
func (Identifier) exprNode() {}
func (BinaryExpr) exprNode() {}
func (UnaryExpr) exprNode()  {}
func (InExpr) exprNode()     {}
func (IsNullExpr) exprNode() {}
func (LikeExpr) exprNode()   {}
func (FuncCall) exprNode()   {}

var AggregateNames = map[string]bool{
	"COUNT": true, "SUM": true, "AVG": true, "MIN": true, "MAX": true,
}

var ScalarFuncNames = map[string]bool{
	"UPPER": true, "LOWER": true, "TRIM": true, "LENGTH": true,
}

// ParamCount returns the number of distinct `?` placeholders in stmt,
// used to decide how QueryWithArgs's argument value is distributed
// (see analyzer.BindParams).
func ParamCount(stmt *Select) int {
	max := 0
	var visit func(e Expr)
	visit = func(e Expr) {
		switch n := e.(type) {
		case nil:
		case Param:
			if n.Index+1 > max {
				max = n.Index + 1
			}
		case BinaryExpr:
			visit(n.Left)
			visit(n.Right)
		case UnaryExpr:
			visit(n.Expr)
		case InExpr:
			visit(n.Expr)
			for _, item := range n.List {
				visit(item)
			}
		case IsNullExpr:
			visit(n.Expr)
		case LikeExpr:
			visit(n.Expr)
			visit(n.Pattern)
		case FuncCall:
			for _, a := range n.Args {
				visit(a)
			}
		}
	}
	for _, p := range stmt.Projection {
		visit(p.Expr)
	}
	visit(stmt.Where)
	for _, g := range stmt.GroupBy {
		visit(g)
	}
	visit(stmt.Having)
	for _, o := range stmt.OrderBy {
		visit(o.Expr)
	}
	for _, j := range stmt.Joins {
		visit(j.On)
	}
	return max
}
