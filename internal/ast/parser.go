package ast

import (
	"fmt"

	"github.com/lvendrame/fosk/internal/token"
)

// ParseError reports a grammar violation at a token offset.
type ParseError struct {
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Offset, e.Msg)
}

// Parser is a recursive-descent parser over a pre-lexed token stream.
type Parser struct {
	toks     []token.Token
	pos      int
	paramIdx int
}

// ParseSelect tokenizes and parses a single SELECT statement.
func ParseSelect(sql string) (*Select, error) {
	toks, err := token.All(sql)
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	stmt, err := p.parseSelect()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind != token.EOF {
		return nil, p.errf("unexpected trailing input")
	}
	return stmt, nil
}

func (p *Parser) cur() token.Token  { return p.toks[p.pos] }
func (p *Parser) advance() token.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) errf(format string, args ...any) error {
	return &ParseError{Offset: p.cur().Offset, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) isKeyword(kw string) bool {
	return p.cur().Kind == token.Keyword && p.cur().Text == kw
}

func (p *Parser) eatKeyword(kw string) bool {
	if p.isKeyword(kw) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expectKeyword(kw string) error {
	if !p.eatKeyword(kw) {
		return p.errf("expected %s", kw)
	}
	return nil
}

func (p *Parser) isOp(op string) bool {
	return p.cur().Kind == token.Op && p.cur().Text == op
}

func (p *Parser) eatOp(op string) bool {
	if p.isOp(op) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) parseSelect() (*Select, error) {
	if err := p.expectKeyword("SELECT"); err != nil {
		return nil, err
	}
	stmt := &Select{}
	if p.eatKeyword("DISTINCT") {
		stmt.Distinct = true
	}
	projs, err := p.parseProjList()
	if err != nil {
		return nil, err
	}
	stmt.Projection = projs

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	from, err := p.parseFromItem()
	if err != nil {
		return nil, err
	}
	stmt.From = from

	for p.isJoinStart() {
		j, err := p.parseJoin()
		if err != nil {
			return nil, err
		}
		stmt.Joins = append(stmt.Joins, j)
	}

	if p.eatKeyword("WHERE") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = e
	}

	if p.eatKeyword("GROUP") {
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		list, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		stmt.GroupBy = list
	}

	if p.eatKeyword("HAVING") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Having = e
	}

	if p.eatKeyword("ORDER") {
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		keys, err := p.parseOrderList()
		if err != nil {
			return nil, err
		}
		stmt.OrderBy = keys
	}

	if p.eatKeyword("LIMIT") {
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		stmt.Limit = &n
	}

	if p.eatKeyword("OFFSET") {
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		stmt.Offset = &n
	}

	return stmt, nil
}

func (p *Parser) parseIntLiteral() (int64, error) {
	if p.cur().Kind != token.Number {
		return 0, p.errf("expected integer literal")
	}
	t := p.advance()
	if !t.IsInt {
		return 0, p.errf("expected integer literal, got %q", t.Text)
	}
	return int64(t.Num), nil
}

func (p *Parser) parseProjList() ([]Projection, error) {
	var out []Projection
	for {
		proj, err := p.parseProjection()
		if err != nil {
			return nil, err
		}
		out = append(out, proj)
		if p.cur().Kind == token.Comma {
			p.advance()
			continue
		}
		break
	}
	return out, nil
}

func (p *Parser) parseProjection() (Projection, error) {
	if p.isOp("*") {
		p.advance()
		return Projection{Wildcard: true}, nil
	}
	// alias.* lookahead: Ident '.' '*'
	if p.cur().Kind == token.Ident {
		save := p.pos
		alias := p.advance().Text
		if p.cur().Kind == token.Dot {
			p.advance()
			if p.isOp("*") {
				p.advance()
				return Projection{Wildcard: true, WildcardOf: alias}, nil
			}
		}
		p.pos = save
	}
	e, err := p.parseExpr()
	if err != nil {
		return Projection{}, err
	}
	proj := Projection{Expr: e}
	if p.eatKeyword("AS") {
		if p.cur().Kind != token.Ident {
			return Projection{}, p.errf("expected identifier after AS")
		}
		proj.Alias = p.advance().Text
	}
	return proj, nil
}

func (p *Parser) parseFromItem() (FromItem, error) {
	if p.cur().Kind != token.Ident {
		return FromItem{}, p.errf("expected collection name")
	}
	name := p.advance().Text
	item := FromItem{Collection: name, Alias: name}
	if p.eatKeyword("AS") {
		if p.cur().Kind != token.Ident {
			return FromItem{}, p.errf("expected alias after AS")
		}
		item.Alias = p.advance().Text
	} else if p.cur().Kind == token.Ident {
		item.Alias = p.advance().Text
	}
	return item, nil
}

func (p *Parser) isJoinStart() bool {
	if p.cur().Kind != token.Keyword {
		return false
	}
	switch p.cur().Text {
	case "JOIN", "INNER", "LEFT", "RIGHT", "FULL":
		return true
	}
	return false
}

func (p *Parser) parseJoin() (Join, error) {
	kind := InnerJoin
	switch {
	case p.eatKeyword("INNER"):
		kind = InnerJoin
	case p.eatKeyword("LEFT"):
		kind = LeftJoin
		p.eatKeyword("OUTER")
	case p.eatKeyword("RIGHT"):
		kind = RightJoin
		p.eatKeyword("OUTER")
	case p.eatKeyword("FULL"):
		kind = FullJoin
		p.eatKeyword("OUTER")
	}
	if err := p.expectKeyword("JOIN"); err != nil {
		return Join{}, err
	}
	right, err := p.parseFromItem()
	if err != nil {
		return Join{}, err
	}
	if err := p.expectKeyword("ON"); err != nil {
		return Join{}, err
	}
	on, err := p.parseExpr()
	if err != nil {
		return Join{}, err
	}
	return Join{Kind: kind, Right: right, On: on}, nil
}

func (p *Parser) parseExprList() ([]Expr, error) {
	var out []Expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		if p.cur().Kind == token.Comma {
			p.advance()
			continue
		}
		break
	}
	return out, nil
}

func (p *Parser) parseOrderList() ([]OrderKey, error) {
	var out []OrderKey
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		key := OrderKey{Expr: e}
		if p.eatKeyword("DESC") {
			key.Desc = true
		} else {
			p.eatKeyword("ASC")
		}
		out = append(out, key)
		if p.cur().Kind == token.Comma {
			p.advance()
			continue
		}
		break
	}
	return out, nil
}

// parseExpr is the entry point of the expression grammar (= or_expr).
func (p *Parser) parseExpr() (Expr, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.eatKeyword("OR") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.eatKeyword("AND") {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (Expr, error) {
	if p.eatKeyword("NOT") {
		e, err := p.parseCmp()
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: "NOT", Expr: e}, nil
	}
	return p.parseCmp()
}

var cmpOps = map[string]bool{"=": true, "<>": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true}

func (p *Parser) parseCmp() (Expr, error) {
	left, err := p.parseAdd()
	if err != nil {
		return nil, err
	}

	if p.cur().Kind == token.Op && cmpOps[p.cur().Text] {
		op := p.advance().Text
		right, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		return BinaryExpr{Op: op, Left: left, Right: right}, nil
	}

	not := false
	if p.isKeyword("NOT") {
		// lookahead: NOT IN / NOT LIKE
		save := p.pos
		p.advance()
		if p.isKeyword("IN") || p.isKeyword("LIKE") {
			not = true
		} else {
			p.pos = save
		}
	}

	if p.eatKeyword("IN") {
		if err := p.expect(token.LParen, "("); err != nil {
			return nil, err
		}
		list, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RParen, ")"); err != nil {
			return nil, err
		}
		return InExpr{Expr: left, List: list, Not: not}, nil
	}

	if p.eatKeyword("LIKE") {
		pattern, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		return LikeExpr{Expr: left, Pattern: pattern, Not: not}, nil
	}

	if not {
		return nil, p.errf("expected IN or LIKE after NOT")
	}

	if p.eatKeyword("IS") {
		isNot := p.eatKeyword("NOT")
		if err := p.expectKeyword("NULL"); err != nil {
			return nil, err
		}
		return IsNullExpr{Expr: left, Not: isNot}, nil
	}

	return left, nil
}

func (p *Parser) expect(kind token.Kind, text string) error {
	if p.cur().Kind != kind {
		return p.errf("expected %q", text)
	}
	p.advance()
	return nil
}

var addOps = map[string]bool{"+": true, "-": true}
var mulOps = map[string]bool{"*": true, "/": true, "%": true}

func (p *Parser) parseAdd() (Expr, error) {
	left, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == token.Op && addOps[p.cur().Text] {
		op := p.advance().Text
		right, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMul() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == token.Op && mulOps[p.cur().Text] {
		op := p.advance().Text
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Expr, error) {
	if p.isOp("-") {
		p.advance()
		e, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: "-", Expr: e}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Expr, error) {
	t := p.cur()
	switch t.Kind {
	case token.Number:
		p.advance()
		if t.IsInt {
			return Literal{Value: int64(t.Num)}, nil
		}
		return Literal{Value: t.Num}, nil
	case token.String:
		p.advance()
		return Literal{Value: t.Text}, nil
	case token.Param:
		p.advance()
		idx := p.paramIdx
		p.paramIdx++
		return Param{Index: idx}, nil
	case token.LParen:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RParen, ")"); err != nil {
			return nil, err
		}
		return e, nil
	case token.Keyword:
		switch t.Text {
		case "TRUE":
			p.advance()
			return Literal{Value: true}, nil
		case "FALSE":
			p.advance()
			return Literal{Value: false}, nil
		case "NULL":
			p.advance()
			return Literal{Value: nil}, nil
		case "COUNT", "SUM", "AVG", "MIN", "MAX", "UPPER", "LOWER", "TRIM", "LENGTH":
			return p.parseFuncCall(t.Text)
		}
	case token.Ident:
		return p.parseIdentOrCall()
	}
	return nil, p.errf("unexpected token %q", t.Text)
}

func (p *Parser) parseFuncCall(name string) (Expr, error) {
	p.advance()
	if err := p.expect(token.LParen, "("); err != nil {
		return nil, err
	}
	call := FuncCall{Name: name}
	if p.isOp("*") {
		p.advance()
		call.Star = true
		if err := p.expect(token.RParen, ")"); err != nil {
			return nil, err
		}
		return call, nil
	}
	if p.eatKeyword("DISTINCT") {
		call.Distinct = true
	}
	if p.cur().Kind != token.RParen {
		args, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		call.Args = args
	}
	if err := p.expect(token.RParen, ")"); err != nil {
		return nil, err
	}
	return call, nil
}

func (p *Parser) parseIdentOrCall() (Expr, error) {
	name := p.advance().Text
	if p.cur().Kind == token.Dot {
		p.advance()
		if p.cur().Kind != token.Ident {
			return nil, p.errf("expected identifier after '.'")
		}
		field := p.advance().Text
		return Identifier{Qualifier: name, Name: field}, nil
	}
	if p.cur().Kind == token.LParen {
		return p.parseFuncCall(name)
	}
	return Identifier{Name: name}, nil
}
