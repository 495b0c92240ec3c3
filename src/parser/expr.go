package parser

import (
	"clc/src/ast"
	"clc/src/token"
)

// parseExpr parses a full comma expression (the loosest precedence level,
// 17), the entry point for any expr position except function-call
// arguments and declaration initializers, which use parseExprNoComma to
// avoid ambiguity with their own comma separators.
func parseExpr(c *cursor) (*ast.Node, error) {
	first, err := parseCast(c)
	if err != nil {
		return nil, err
	}
	if !c.peekKind(token.Comma) {
		return first, nil
	}
	children := []*ast.Node{first}
	for c.accept(token.Comma) {
		next, err := parseCast(c)
		if err != nil {
			return nil, err
		}
		children = append(children, next)
	}
	return ast.NewExpr(ast.Comma, children...), nil
}

// parseExprNoComma parses level 16 (cast) and everything tighter.
func parseExprNoComma(c *cursor) (*ast.Node, error) {
	return parseCast(c)
}

// parseCast implements level 16: `assignExpr ('as' type)*`.
func parseCast(c *cursor) (*ast.Node, error) {
	v, err := parseAssign(c)
	if err != nil {
		return nil, err
	}
	for c.accept(token.KwAs) {
		dt, err := parseType(c)
		if err != nil {
			return nil, err
		}
		v = ast.NewExpr(ast.Cast, dt, v)
	}
	return v, nil
}

var assignOps = map[token.Kind]ast.ExpressionType{
	token.Assign:    ast.AssignOp,
	token.AddAssign: ast.AddAssign, token.SubAssign: ast.SubAssign,
	token.MulAssign: ast.MulAssign, token.DivAssign: ast.DivAssign, token.ModAssign: ast.ModAssign,
	token.ShlAssign: ast.ShlAssign, token.ShrAssign: ast.ShrAssign,
	token.AndAssign: ast.AndAssign, token.XorAssign: ast.XorAssign, token.OrAssign: ast.OrAssign,
}

// parseAssign implements level 15: right-associative assignment family.
// The left-hand side, once recognized as an assignment target, has any
// top-level Dereference rewritten to DereferenceLeft.
func parseAssign(c *cursor) (*ast.Node, error) {
	lhs, err := parseTernary(c)
	if err != nil {
		return nil, err
	}
	op, ok := assignOps[c.peek().Kind]
	if !ok {
		return lhs, nil
	}
	c.advance()
	rhs, err := parseAssign(c)
	if err != nil {
		return nil, err
	}
	return ast.NewExpr(op, convertToLeft(lhs), rhs), nil
}

// convertToLeft rewrites a Dereference expression into DereferenceLeft
// when it is reduced as an assignment's left-hand side.
func convertToLeft(n *ast.Node) *ast.Node {
	if n.Kind == ast.Expression && n.ExprOp == ast.Dereference {
		n.ExprOp = ast.DereferenceLeft
	}
	return n
}

// parseTernary implements level 14: right-associative `cond '?' a ':' b`.
func parseTernary(c *cursor) (*ast.Node, error) {
	cond, err := parseLogicalOr(c)
	if err != nil {
		return nil, err
	}
	if !c.accept(token.Question) {
		return cond, nil
	}
	then, err := parseTernary(c)
	if err != nil {
		return nil, err
	}
	if _, err := c.expect(token.Colon); err != nil {
		return nil, err
	}
	els, err := parseTernary(c)
	if err != nil {
		return nil, err
	}
	return ast.NewExpr(ast.Ternary, cond, then, els), nil
}

func parseLogicalOr(c *cursor) (*ast.Node, error) {
	left, err := parseLogicalAnd(c)
	if err != nil {
		return nil, err
	}
	for c.accept(token.OrOr) {
		right, err := parseLogicalAnd(c)
		if err != nil {
			return nil, err
		}
		left = ast.NewExpr(ast.LogicalOr, left, right)
	}
	return left, nil
}

func parseLogicalAnd(c *cursor) (*ast.Node, error) {
	left, err := parseBitOr(c)
	if err != nil {
		return nil, err
	}
	for c.accept(token.AndAnd) {
		right, err := parseBitOr(c)
		if err != nil {
			return nil, err
		}
		left = ast.NewExpr(ast.LogicalAnd, left, right)
	}
	return left, nil
}

func parseBitOr(c *cursor) (*ast.Node, error) {
	left, err := parseBitXor(c)
	if err != nil {
		return nil, err
	}
	for c.accept(token.Pipe) {
		right, err := parseBitXor(c)
		if err != nil {
			return nil, err
		}
		left = ast.NewExpr(ast.BitOr, left, right)
	}
	return left, nil
}

func parseBitXor(c *cursor) (*ast.Node, error) {
	left, err := parseBitAnd(c)
	if err != nil {
		return nil, err
	}
	for c.accept(token.Caret) {
		right, err := parseBitAnd(c)
		if err != nil {
			return nil, err
		}
		left = ast.NewExpr(ast.BitXor, left, right)
	}
	return left, nil
}

func parseBitAnd(c *cursor) (*ast.Node, error) {
	left, err := parseEquality(c)
	if err != nil {
		return nil, err
	}
	for c.accept(token.Amp) {
		right, err := parseEquality(c)
		if err != nil {
			return nil, err
		}
		left = ast.NewExpr(ast.BitAnd, left, right)
	}
	return left, nil
}

var equalityOps = map[token.Kind]ast.ExpressionType{token.Eq: ast.Eq, token.Ne: ast.Ne}

func parseEquality(c *cursor) (*ast.Node, error) {
	left, err := parseRelational(c)
	if err != nil {
		return nil, err
	}
	for {
		op, ok := equalityOps[c.peek().Kind]
		if !ok {
			return left, nil
		}
		c.advance()
		right, err := parseRelational(c)
		if err != nil {
			return nil, err
		}
		left = ast.NewExpr(op, left, right)
	}
}

var relationalOps = map[token.Kind]ast.ExpressionType{
	token.Lt: ast.Lt, token.Gt: ast.Gt, token.Le: ast.Le, token.Ge: ast.Ge,
}

func parseRelational(c *cursor) (*ast.Node, error) {
	left, err := parseShift(c)
	if err != nil {
		return nil, err
	}
	for {
		op, ok := relationalOps[c.peek().Kind]
		if !ok {
			return left, nil
		}
		c.advance()
		right, err := parseShift(c)
		if err != nil {
			return nil, err
		}
		left = ast.NewExpr(op, left, right)
	}
}

var shiftOps = map[token.Kind]ast.ExpressionType{token.Shl: ast.Shl, token.Shr: ast.Shr}

func parseShift(c *cursor) (*ast.Node, error) {
	left, err := parseAdditive(c)
	if err != nil {
		return nil, err
	}
	for {
		op, ok := shiftOps[c.peek().Kind]
		if !ok {
			return left, nil
		}
		c.advance()
		right, err := parseAdditive(c)
		if err != nil {
			return nil, err
		}
		left = ast.NewExpr(op, left, right)
	}
}

var additiveOps = map[token.Kind]ast.ExpressionType{token.Plus: ast.Add, token.Minus: ast.Sub}

func parseAdditive(c *cursor) (*ast.Node, error) {
	left, err := parseMultiplicative(c)
	if err != nil {
		return nil, err
	}
	for {
		op, ok := additiveOps[c.peek().Kind]
		if !ok {
			return left, nil
		}
		c.advance()
		right, err := parseMultiplicative(c)
		if err != nil {
			return nil, err
		}
		left = ast.NewExpr(op, left, right)
	}
}

var multiplicativeOps = map[token.Kind]ast.ExpressionType{
	token.Star: ast.Mul, token.Slash: ast.Div, token.Percent: ast.Mod,
}

func parseMultiplicative(c *cursor) (*ast.Node, error) {
	left, err := parseUnary(c)
	if err != nil {
		return nil, err
	}
	for {
		op, ok := multiplicativeOps[c.peek().Kind]
		if !ok {
			return left, nil
		}
		c.advance()
		right, err := parseUnary(c)
		if err != nil {
			return nil, err
		}
		left = ast.NewExpr(op, left, right)
	}
}

var unaryOps = map[token.Kind]ast.ExpressionType{
	token.Bang: ast.LogicalNot, token.Tilde: ast.BitNot,
	token.Plus: ast.UnaryPlus, token.Minus: ast.UnaryMinus,
	token.Inc: ast.PrefixInc, token.Dec: ast.PrefixDec,
	token.Star: ast.Dereference, token.Amp: ast.AddressOf,
}

// parseUnary implements level 3: the prefix operators.
func parseUnary(c *cursor) (*ast.Node, error) {
	if op, ok := unaryOps[c.peek().Kind]; ok {
		c.advance()
		operand, err := parseUnary(c)
		if err != nil {
			return nil, err
		}
		return ast.NewExpr(op, operand), nil
	}
	return parsePostfixIncDec(c)
}

// parsePostfixIncDec implements level 2.
func parsePostfixIncDec(c *cursor) (*ast.Node, error) {
	v, err := parsePostfixCallIndex(c)
	if err != nil {
		return nil, err
	}
	switch c.peek().Kind {
	case token.Inc:
		c.advance()
		return ast.NewExpr(ast.PostfixInc, v), nil
	case token.Dec:
		c.advance()
		return ast.NewExpr(ast.PostfixDec, v), nil
	}
	return v, nil
}

// parsePostfixCallIndex implements level 1: call and index, left
// associative and chainable (`f(x)[0](y)`).
func parsePostfixCallIndex(c *cursor) (*ast.Node, error) {
	v, err := parsePrimary(c)
	if err != nil {
		return nil, err
	}
	for {
		switch c.peek().Kind {
		case token.LParen:
			c.advance()
			var args []*ast.Node
			if !c.peekKind(token.RParen) {
				for {
					a, err := parseExprNoComma(c)
					if err != nil {
						return nil, err
					}
					args = append(args, a)
					if !c.accept(token.Comma) {
						break
					}
				}
			}
			if _, err := c.expect(token.RParen); err != nil {
				return nil, err
			}
			v = ast.NewExpr(ast.Call, append([]*ast.Node{v}, args...)...)
		case token.LBracket:
			c.advance()
			idx, err := parseExpr(c)
			if err != nil {
				return nil, err
			}
			if _, err := c.expect(token.RBracket); err != nil {
				return nil, err
			}
			v = ast.NewExpr(ast.Index, v, idx)
		default:
			return v, nil
		}
	}
}

// parsePrimary implements level 0: identifiers, integer literals, and
// parenthesized expressions.
func parsePrimary(c *cursor) (*ast.Node, error) {
	t := c.peek()
	switch t.Kind {
	case token.Identifier:
		c.advance()
		return ast.NewLeaf(ast.Identifier, t), nil
	case token.Integer:
		c.advance()
		return ast.NewLeaf(ast.IntegerLiteral, t), nil
	case token.LParen:
		c.advance()
		v, err := parseExpr(c)
		if err != nil {
			return nil, err
		}
		if _, err := c.expect(token.RParen); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, unexpectedTokenError(t)
	}
}
