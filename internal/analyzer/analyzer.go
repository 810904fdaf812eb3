// Package analyzer binds a parsed ast.Select against a collection
// catalog: every identifier is resolved to (alias, field) or an
// aggregate, GROUP BY membership is validated, and output column
// names are assigned with the disambiguation rule of spec §4.4.
package analyzer

import (
	"fmt"
	"strings"

	"github.com/lvendrame/fosk/internal/ast"
	"github.com/lvendrame/fosk/internal/catalog"
)

// BindError reports an identifier-resolution or shape violation.
type BindError struct{ Msg string }

func (e *BindError) Error() string { return "bind error: " + e.Msg }

func bindErrf(format string, args ...any) error {
	return &BindError{Msg: fmt.Sprintf(format, args...)}
}

// FromBinding is one FROM/JOIN slot: the alias it is addressed by and
// the backing collection name it resolves to.
type FromBinding struct {
	Backing string
	Visible string
}

// BoundJoin is a JOIN clause with its ON predicate already qualified.
type BoundJoin struct {
	Kind  ast.JoinKind
	Right FromBinding
	On    ast.Expr
}

// ProjectionOut is one resolved SELECT-list entry. Wildcard entries
// carry no Expr/OutputName: the executor expands them per row against
// the live field set of the named alias (or all aliases for a bare
// '*'), since the field set of a JSON document is not fixed by schema
// alone (spec §4.3: schema is advisory).
type ProjectionOut struct {
	Expr       ast.Expr
	Wildcard   bool
	WildcardOf string
	OutputName string
}

// OrderKey is a bound ORDER BY entry. Expr may be a reference to an
// already-computed projection alias (resolved against Query.Projection
// by the executor) or a fully qualified expression.
type OrderKey struct {
	Expr ast.Expr
	Desc bool
}

// Query is the fully bound statement, shape-identical to ast.Select
// but with every identifier resolved.
type Query struct {
	Distinct   bool
	Projection []ProjectionOut
	From       FromBinding
	Joins      []BoundJoin
	Where      ast.Expr
	GroupBy    []ast.Expr
	Having     ast.Expr
	OrderBy    []OrderKey
	Limit      *int64
	Offset     *int64
	HasAggregate bool
}

type exprContext int

const (
	ctxProjection exprContext = iota
	ctxWhereOrJoin
	ctxHaving
	ctxOrderBy
	ctxGroupBy
)

type binder struct {
	catalog catalog.Provider
	aliases map[string]bool     // visible alias set
	fields  map[string][]string // field name -> aliases whose schema contains it
}

// Analyze binds stmt against the given catalog. params supplies the
// already-substituted positional parameter values (§4.2): ast.Param
// nodes are replaced by ast.Literal during binding.
func Analyze(stmt *ast.Select, cat catalog.Provider, params []ast.Expr) (*Query, error) {
	b := &binder{catalog: cat, aliases: map[string]bool{}, fields: map[string][]string{}}

	from, err := b.bindFromItem(stmt.From)
	if err != nil {
		return nil, err
	}
	q := &Query{Distinct: stmt.Distinct, From: from}
	b.aliases[from.Visible] = true
	b.indexSchema(from)

	for _, j := range stmt.Joins {
		right, err := b.bindFromItem(j.Right)
		if err != nil {
			return nil, err
		}
		b.aliases[right.Visible] = true
		b.indexSchema(right)
		on, err := b.qualify(j.On, ctxWhereOrJoin, params)
		if err != nil {
			return nil, err
		}
		q.Joins = append(q.Joins, BoundJoin{Kind: j.Kind, Right: right, On: on})
	}

	if stmt.Where != nil {
		where, err := b.qualify(stmt.Where, ctxWhereOrJoin, params)
		if err != nil {
			return nil, err
		}
		q.Where = where
	}

	for _, g := range stmt.GroupBy {
		ge, err := b.qualify(g, ctxGroupBy, params)
		if err != nil {
			return nil, err
		}
		q.GroupBy = append(q.GroupBy, ge)
	}

	projOut, err := b.bindProjection(stmt.Projection, params)
	if err != nil {
		return nil, err
	}
	q.Projection = projOut

	if stmt.Having != nil {
		having, err := b.qualify(stmt.Having, ctxHaving, params)
		if err != nil {
			return nil, err
		}
		q.Having = having
	}

	if len(stmt.OrderBy) > 0 {
		outNames := map[string]bool{}
		for _, p := range q.Projection {
			if p.OutputName != "" {
				outNames[p.OutputName] = true
			}
		}
		for _, ok := range stmt.OrderBy {
			// ORDER BY may reference a projection alias directly.
			if id, isIdent := ok.Expr.(ast.Identifier); isIdent && id.Qualifier == "" && outNames[id.Name] {
				q.OrderBy = append(q.OrderBy, OrderKey{Expr: id, Desc: ok.Desc})
				continue
			}
			qe, err := b.qualify(ok.Expr, ctxOrderBy, params)
			if err != nil {
				return nil, err
			}
			q.OrderBy = append(q.OrderBy, OrderKey{Expr: qe, Desc: ok.Desc})
		}
	}

	q.Limit = stmt.Limit
	q.Offset = stmt.Offset

	q.HasAggregate = containsAggregate(q.Having)
	for _, p := range q.Projection {
		if containsAggregate(p.Expr) {
			q.HasAggregate = true
		}
	}
	if len(q.GroupBy) > 0 {
		q.HasAggregate = true
	}

	if err := validateGroupBy(q); err != nil {
		return nil, err
	}

	return q, nil
}

// BindParams turns the raw JSON argument supplied to QueryWithArgs
// into a slice of literal expressions, one per `?` placeholder, per
// spec §4.2: a scalar supplies the single placeholder; an array
// supplies N placeholders positionally — except when there is exactly
// one placeholder, in which case the whole array (or scalar) becomes
// that placeholder's value, letting `IN (?)` expand it element-wise.
func BindParams(raw any, placeholderCount int) ([]ast.Expr, error) {
	if placeholderCount == 0 {
		return nil, nil
	}
	if arr, ok := raw.([]any); ok {
		if placeholderCount == 1 {
			return []ast.Expr{ast.Literal{Value: arr}}, nil
		}
		if len(arr) != placeholderCount {
			return nil, bindErrf("expected %d parameters, got %d", placeholderCount, len(arr))
		}
		out := make([]ast.Expr, len(arr))
		for i, v := range arr {
			out[i] = ast.Literal{Value: v}
		}
		return out, nil
	}
	if placeholderCount != 1 {
		return nil, bindErrf("expected %d parameters, got 1", placeholderCount)
	}
	return []ast.Expr{ast.Literal{Value: raw}}, nil
}

func (b *binder) bindFromItem(item ast.FromItem) (FromBinding, error) {
	if b.aliases[item.Alias] {
		return FromBinding{}, bindErrf("duplicate alias %q", item.Alias)
	}
	if _, ok := b.catalog.SchemaOf(item.Collection); !ok {
		return FromBinding{}, bindErrf("unknown collection %q", item.Collection)
	}
	return FromBinding{Backing: item.Collection, Visible: item.Alias}, nil
}

func (b *binder) indexSchema(fb FromBinding) {
	schema, _ := b.catalog.SchemaOf(fb.Backing)
	for field := range schema {
		b.fields[field] = append(b.fields[field], fb.Visible)
	}
}

func (b *binder) bindProjection(projs []ast.Projection, params []ast.Expr) ([]ProjectionOut, error) {
	var out []ProjectionOut
	used := map[string]int{}
	for i, p := range projs {
		if p.Wildcard {
			if p.WildcardOf != "" && !b.aliases[p.WildcardOf] {
				return nil, bindErrf("unknown alias %q in wildcard projection", p.WildcardOf)
			}
			out = append(out, ProjectionOut{Wildcard: true, WildcardOf: p.WildcardOf})
			continue
		}
		qe, err := b.qualify(p.Expr, ctxProjection, params)
		if err != nil {
			return nil, err
		}
		name := p.Alias
		if name == "" {
			if id, ok := qe.(ast.Identifier); ok {
				name = id.Name
			} else {
				name = fmt.Sprintf("expr_%d", i+1)
			}
		}
		out = append(out, ProjectionOut{Expr: qe, OutputName: name})
		used[name]++
	}
	// Disambiguate per spec §4.4: a projected bare column name stays
	// bare only if it is unique, otherwise it is qualified "alias.col".
	// Uniqueness is judged two ways — whether the projection list
	// itself projects the same bare name twice (used[name] > 1), and
	// whether the underlying field is owned by more than one aliased
	// collection in the query even when only one of them is ever
	// projected (b.fields[name]), per
	// original_source/src/parser/analyzer/analyzed_identifier.rs.
	for i, p := range out {
		if p.Wildcard {
			continue
		}
		id, ok := p.Expr.(ast.Identifier)
		if !ok || id.Qualifier == "" || p.OutputName != id.Name {
			continue
		}
		if used[p.OutputName] > 1 || len(b.fields[id.Name]) > 1 {
			out[i].OutputName = id.Qualifier + "." + id.Name
		}
	}
	return out, nil
}

// qualify walks expr, resolving every Identifier to a qualifier,
// substituting ast.Param nodes with their bound literal, and rejecting
// aggregate calls outside projection/HAVING/ORDER BY.
func (b *binder) qualify(expr ast.Expr, ctx exprContext, params []ast.Expr) (ast.Expr, error) {
	switch e := expr.(type) {
	case ast.Literal:
		return e, nil
	case ast.Param:
		if e.Index >= len(params) {
			return nil, bindErrf("parameter ?%d has no supplied value", e.Index+1)
		}
		return params[e.Index], nil
	case ast.Identifier:
		return b.qualifyIdent(e)
	case ast.BinaryExpr:
		l, err := b.qualify(e.Left, ctx, params)
		if err != nil {
			return nil, err
		}
		r, err := b.qualify(e.Right, ctx, params)
		if err != nil {
			return nil, err
		}
		return ast.BinaryExpr{Op: e.Op, Left: l, Right: r}, nil
	case ast.UnaryExpr:
		inner, err := b.qualify(e.Expr, ctx, params)
		if err != nil {
			return nil, err
		}
		return ast.UnaryExpr{Op: e.Op, Expr: inner}, nil
	case ast.InExpr:
		left, err := b.qualify(e.Expr, ctx, params)
		if err != nil {
			return nil, err
		}
		var list []ast.Expr
		for _, item := range e.List {
			li, err := b.qualify(item, ctx, params)
			if err != nil {
				return nil, err
			}
			// A parameter bound to a JSON array expands element-wise
			// inside IN (spec §4.2/§11): ["Porto","Lisboa"] supplied
			// for the single `?` in `city IN (?)` becomes two
			// literal comparands, not one array comparand.
			if lit, ok := li.(ast.Literal); ok {
				if arr, ok := lit.Value.([]any); ok {
					for _, el := range arr {
						list = append(list, ast.Literal{Value: el})
					}
					continue
				}
			}
			list = append(list, li)
		}
		return ast.InExpr{Expr: left, List: list, Not: e.Not}, nil
	case ast.IsNullExpr:
		inner, err := b.qualify(e.Expr, ctx, params)
		if err != nil {
			return nil, err
		}
		return ast.IsNullExpr{Expr: inner, Not: e.Not}, nil
	case ast.LikeExpr:
		left, err := b.qualify(e.Expr, ctx, params)
		if err != nil {
			return nil, err
		}
		pat, err := b.qualify(e.Pattern, ctx, params)
		if err != nil {
			return nil, err
		}
		return ast.LikeExpr{Expr: left, Pattern: pat, Not: e.Not}, nil
	case ast.FuncCall:
		return b.qualifyFuncCall(e, ctx, params)
	default:
		return nil, bindErrf("unsupported expression node %T", expr)
	}
}

func (b *binder) qualifyIdent(id ast.Identifier) (ast.Expr, error) {
	if id.Qualifier != "" {
		if !b.aliases[id.Qualifier] {
			return nil, bindErrf("unknown alias %q", id.Qualifier)
		}
		return id, nil
	}
	owners := b.fields[id.Name]
	switch len(owners) {
	case 0:
		// No schema sample mentions this field on any alias; defer to
		// runtime row lookup (spec §4.4: "or else falls through to
		// runtime lookup").
		return id, nil
	case 1:
		return ast.Identifier{Qualifier: owners[0], Name: id.Name}, nil
	default:
		return nil, bindErrf("ambiguous field %q: present on aliases %s", id.Name, strings.Join(owners, ", "))
	}
}

func (b *binder) qualifyFuncCall(e ast.FuncCall, ctx exprContext, params []ast.Expr) (ast.Expr, error) {
	name := strings.ToUpper(e.Name)
	isAgg := ast.AggregateNames[name]
	isScalar := ast.ScalarFuncNames[name]
	if !isAgg && !isScalar {
		return nil, bindErrf("unknown function %q", e.Name)
	}
	if isAgg && (ctx == ctxWhereOrJoin || ctx == ctxGroupBy) {
		return nil, bindErrf("aggregate function %q is not allowed in WHERE or JOIN ON", e.Name)
	}
	if e.Star {
		if name != "COUNT" {
			return nil, bindErrf("%s(*) is not supported", e.Name)
		}
		return ast.FuncCall{Name: name, Star: true}, nil
	}
	args := make([]ast.Expr, len(e.Args))
	for i, a := range e.Args {
		qa, err := b.qualify(a, ctx, params)
		if err != nil {
			return nil, err
		}
		args[i] = qa
	}
	return ast.FuncCall{Name: name, Distinct: e.Distinct, Args: args}, nil
}

func containsAggregate(e ast.Expr) bool {
	switch n := e.(type) {
	case nil:
		return false
	case ast.FuncCall:
		if ast.AggregateNames[n.Name] {
			return true
		}
		for _, a := range n.Args {
			if containsAggregate(a) {
				return true
			}
		}
		return false
	case ast.BinaryExpr:
		return containsAggregate(n.Left) || containsAggregate(n.Right)
	case ast.UnaryExpr:
		return containsAggregate(n.Expr)
	case ast.InExpr:
		if containsAggregate(n.Expr) {
			return true
		}
		for _, item := range n.List {
			if containsAggregate(item) {
				return true
			}
		}
		return false
	case ast.IsNullExpr:
		return containsAggregate(n.Expr)
	case ast.LikeExpr:
		return containsAggregate(n.Expr) || containsAggregate(n.Pattern)
	default:
		return false
	}
}

// validateGroupBy enforces spec §4.4: with GROUP BY present, every
// non-aggregated projection and ORDER BY expression must be
// syntactically a grouping key.
func validateGroupBy(q *Query) error {
	if len(q.GroupBy) == 0 {
		return nil
	}
	keys := make([]string, len(q.GroupBy))
	for i, g := range q.GroupBy {
		keys[i] = exprKey(g)
	}
	isKey := func(e ast.Expr) bool {
		k := exprKey(e)
		for _, key := range keys {
			if key == k {
				return true
			}
		}
		return false
	}
	for _, p := range q.Projection {
		if p.Wildcard || containsAggregate(p.Expr) {
			continue
		}
		if !isKey(p.Expr) {
			return bindErrf("projection %q is neither a grouping key nor an aggregate", exprKey(p.Expr))
		}
	}
	for _, ok := range q.OrderBy {
		if containsAggregate(ok.Expr) {
			continue
		}
		if !isKey(ok.Expr) {
			if id, isIdent := ok.Expr.(ast.Identifier); isIdent {
				matched := false
				for _, p := range q.Projection {
					if p.OutputName == id.Name {
						matched = true
						break
					}
				}
				if matched {
					continue
				}
			}
			return bindErrf("ORDER BY %q is neither a grouping key nor an aggregate", exprKey(ok.Expr))
		}
	}
	return nil
}

// exprKey renders a syntactic fingerprint of expr for grouping-key
// membership comparisons.
func exprKey(e ast.Expr) string {
	switch n := e.(type) {
	case ast.Identifier:
		if n.Qualifier != "" {
			return n.Qualifier + "." + n.Name
		}
		return n.Name
	case ast.Literal:
		return fmt.Sprintf("lit:%v", n.Value)
	case ast.BinaryExpr:
		return fmt.Sprintf("(%s %s %s)", exprKey(n.Left), n.Op, exprKey(n.Right))
	case ast.UnaryExpr:
		return fmt.Sprintf("(%s %s)", n.Op, exprKey(n.Expr))
	case ast.FuncCall:
		parts := make([]string, len(n.Args))
		for i, a := range n.Args {
			parts[i] = exprKey(a)
		}
		return fmt.Sprintf("%s(%s)", n.Name, strings.Join(parts, ","))
	default:
		return fmt.Sprintf("%T", e)
	}
}
