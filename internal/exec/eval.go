package exec

import (
	"fmt"
	"strings"

	"github.com/lvendrame/fosk/internal/ast"
	"github.com/lvendrame/fosk/internal/value"
)

var arithOps = map[string]bool{"+": true, "-": true, "*": true, "/": true, "%": true}
var cmpOps = map[string]bool{"=": true, "<>": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true}

// EvalScalar evaluates expr to a value.Value against row, used by
// Project and by the arithmetic/function side of predicate operands.
// Aggregate function calls are never computed here: the Aggregate
// stage precomputes them and stores the result under the same key
// this function looks up (AggColumnKey), matching the separation kept
// by original_source/src/executor/eval.rs (aggregates are evaluated
// exclusively by the Aggregate plan node).
func EvalScalar(e ast.Expr, row Row) value.Value {
	switch n := e.(type) {
	case nil:
		return value.Null
	case ast.Literal:
		return value.From(n.Value)
	case ast.Identifier:
		return lookupIdent(n, row)
	case ast.BinaryExpr:
		if arithOps[n.Op] {
			return value.Arith(EvalScalar(n.Left, row), n.Op, EvalScalar(n.Right, row))
		}
		return truthToValue(EvalPredicate3(n, row))
	case ast.UnaryExpr:
		if n.Op == "-" {
			v := EvalScalar(n.Expr, row)
			if !v.IsNumber() {
				return value.Null
			}
			if v.Kind == value.KindInt {
				return value.Int(-v.I)
			}
			return value.Float(-v.F)
		}
		return truthToValue(EvalPredicate3(n, row))
	case ast.InExpr, ast.IsNullExpr, ast.LikeExpr:
		return truthToValue(EvalPredicate3(e, row))
	case ast.FuncCall:
		return evalFuncCall(n, row)
	default:
		return value.Null
	}
}

func lookupIdent(id ast.Identifier, row Row) value.Value {
	if id.Qualifier != "" {
		v, ok := row.Get(id.Qualifier + "." + id.Name)
		if !ok {
			return value.Null
		}
		return v
	}
	for _, owner := range row.aliasesWithField(id.Name) {
		if v, ok := row.Get(owner + "." + id.Name); ok {
			return v
		}
	}
	// kept for safety: the analyzer should have qualified every
	// resolvable identifier; an unqualified one that reaches here with
	// no matching alias field falls back to a direct key lookup.
	if v, ok := row.Get(id.Name); ok {
		return v
	}
	return value.Null
}

// aliasesWithField returns the distinct aliases (in row key order)
// that expose a field with this unqualified name.
func (r Row) aliasesWithField(name string) []string {
	suffix := "." + name
	var out []string
	seen := map[string]bool{}
	for _, k := range r.keys {
		if strings.HasSuffix(k, suffix) {
			alias := k[:len(k)-len(suffix)]
			if !seen[alias] {
				seen[alias] = true
				out = append(out, alias)
			}
		}
	}
	return out
}

func evalFuncCall(fc ast.FuncCall, row Row) value.Value {
	if ast.AggregateNames[fc.Name] {
		v, _ := row.Get(AggColumnKey(fc))
		return v
	}
	if len(fc.Args) != 1 {
		return value.Null
	}
	arg := EvalScalar(fc.Args[0], row)
	if arg.Kind != value.KindString {
		return value.Null
	}
	switch fc.Name {
	case "UPPER":
		return value.String(strings.ToUpper(arg.S))
	case "LOWER":
		return value.String(strings.ToLower(arg.S))
	case "TRIM":
		return value.String(strings.TrimSpace(arg.S))
	case "LENGTH":
		return value.Int(int64(len([]rune(arg.S))))
	default:
		return value.Null
	}
}

// AggColumnKey names the row column an Aggregate stage writes a call's
// result to, and the column EvalScalar/EvalPredicate3 read it back
// from in the Project/HAVING stages above it.
func AggColumnKey(fc ast.FuncCall) string {
	name := strings.ToLower(fc.Name)
	if fc.Star {
		return name + "(*)"
	}
	distinct := ""
	if fc.Distinct {
		distinct = "distinct "
	}
	arg := ""
	if len(fc.Args) > 0 {
		arg = exprText(fc.Args[0])
	}
	return name + "(" + distinct + arg + ")"
}

func exprText(e ast.Expr) string {
	if id, ok := e.(ast.Identifier); ok {
		if id.Qualifier != "" {
			return id.Qualifier + "." + id.Name
		}
		return id.Name
	}
	return "?"
}

// EvalPredicate3 evaluates expr to a three-valued Truth per spec §4.6.
func EvalPredicate3(e ast.Expr, row Row) value.Truth {
	switch n := e.(type) {
	case nil:
		return value.Unknown
	case ast.Literal:
		if b, ok := n.Value.(bool); ok {
			return value.BoolToTruth(b)
		}
		if n.Value == nil {
			return value.Unknown
		}
		return value.Unknown
	case ast.BinaryExpr:
		switch n.Op {
		case "AND":
			return value.And(EvalPredicate3(n.Left, row), EvalPredicate3(n.Right, row))
		case "OR":
			return value.Or(EvalPredicate3(n.Left, row), EvalPredicate3(n.Right, row))
		default:
			if cmpOps[n.Op] {
				l := EvalScalar(n.Left, row)
				r := EvalScalar(n.Right, row)
				return value.CompareTruth(l, n.Op, r)
			}
			return value.Unknown
		}
	case ast.UnaryExpr:
		if n.Op == "NOT" {
			return value.Not(EvalPredicate3(n.Expr, row))
		}
		return value.Unknown
	case ast.InExpr:
		return evalIn(n, row)
	case ast.IsNullExpr:
		isNull := EvalScalar(n.Expr, row).IsNull()
		t := value.BoolToTruth(isNull)
		if n.Not {
			return value.Not(t)
		}
		return t
	case ast.LikeExpr:
		return evalLike(n, row)
	case ast.Identifier:
		v := lookupIdent(n, row)
		if v.IsNull() {
			return value.Unknown
		}
		if v.Kind == value.KindBool {
			return value.BoolToTruth(v.B)
		}
		return value.Unknown
	default:
		return value.Unknown
	}
}

// evalIn implements spec §4.6 IN: true iff any element equals the
// left operand; unknown propagates from operand evaluation; empty
// list -> false.
func evalIn(n ast.InExpr, row Row) value.Truth {
	left := EvalScalar(n.Expr, row)
	result := value.False
	if left.IsNull() {
		result = value.Unknown
	} else {
		sawNull := false
		matched := false
		for _, item := range n.List {
			v := EvalScalar(item, row)
			if v.IsNull() {
				sawNull = true
				continue
			}
			if value.Equal(left, v) {
				matched = true
				break
			}
		}
		switch {
		case matched:
			result = value.True
		case sawNull:
			result = value.Unknown
		default:
			result = value.False
		}
	}
	if n.Not {
		return value.Not(result)
	}
	return result
}

func evalLike(n ast.LikeExpr, row Row) value.Truth {
	left := EvalScalar(n.Expr, row)
	pattern := EvalScalar(n.Pattern, row)
	if left.Kind != value.KindString || pattern.Kind != value.KindString {
		return value.Unknown
	}
	matched := likeMatch(left.S, pattern.S)
	t := value.BoolToTruth(matched)
	if n.Not {
		return value.Not(t)
	}
	return t
}

// likeMatch implements SQL LIKE wildcards ('%' any run, '_' any one
// character) case-insensitively, with backslash-escaping of literal
// wildcard characters, recovered from
// original_source/src/executor/eval.rs's LIKE handling.
func likeMatch(s, pattern string) bool {
	s = strings.ToLower(s)
	pattern = strings.ToLower(pattern)
	return likeMatchRunes([]rune(s), []rune(pattern))
}

func likeMatchRunes(s, p []rune) bool {
	var sIdx, pIdx int
	var starIdx, matchIdx = -1, 0
	for sIdx < len(s) {
		if pIdx < len(p) {
			c := p[pIdx]
			if c == '\\' && pIdx+1 < len(p) {
				if sIdx < len(s) && s[sIdx] == p[pIdx+1] {
					sIdx++
					pIdx += 2
					continue
				}
			} else if c == '_' {
				sIdx++
				pIdx++
				continue
			} else if c == '%' {
				starIdx = pIdx
				matchIdx = sIdx
				pIdx++
				continue
			} else if s[sIdx] == c {
				sIdx++
				pIdx++
				continue
			}
		}
		if starIdx != -1 {
			pIdx = starIdx + 1
			matchIdx++
			sIdx = matchIdx
			continue
		}
		return false
	}
	for pIdx < len(p) && p[pIdx] == '%' {
		pIdx++
	}
	return pIdx == len(p)
}

// ExprKey renders a syntactic fingerprint like the one the analyzer
// uses for GROUP BY membership checks (analyzer.exprKey) for
// identifiers, literals and operators; a function call is keyed by its
// AggColumnKey instead. It serves as the row
// column name an Aggregate stage stores a non-aggregate group-by
// expression's value under, so Project/HAVING/ORDER BY above it can
// recover the already-computed value instead of re-evaluating an
// expression tree whose identifiers no longer resolve against the
// post-aggregation row.
func ExprKey(e ast.Expr) string {
	switch n := e.(type) {
	case ast.Identifier:
		if n.Qualifier != "" {
			return n.Qualifier + "." + n.Name
		}
		return n.Name
	case ast.Literal:
		return fmt.Sprintf("lit:%v", n.Value)
	case ast.BinaryExpr:
		return "(" + ExprKey(n.Left) + " " + n.Op + " " + ExprKey(n.Right) + ")"
	case ast.UnaryExpr:
		return "(" + n.Op + " " + ExprKey(n.Expr) + ")"
	case ast.FuncCall:
		return AggColumnKey(n)
	default:
		return ""
	}
}

// EvalScalarPostAgg evaluates expr against a row produced by the
// Aggregate stage: a group-by expression that is not a bare identifier
// was stored under its ExprKey rather than left evaluable by walking
// the expression tree (its source identifiers no longer exist on the
// aggregated row), so this checks that precomputed column first.
func EvalScalarPostAgg(e ast.Expr, row Row) value.Value {
	if v, ok := row.Get(ExprKey(e)); ok {
		return v
	}
	return EvalScalar(e, row)
}

func truthToValue(t value.Truth) value.Value {
	switch t {
	case value.True:
		return value.Bool(true)
	case value.False:
		return value.Bool(false)
	default:
		return value.Null
	}
}
