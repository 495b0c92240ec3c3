package parser

import (
	"clc/src/ast"
	"clc/src/token"
)

// Parse parses toks into a Library parse tree: zero or more function
// definitions.
func Parse(toks []token.Token) (*ast.Node, error) {
	c := newCursor(toks)
	var fns []*ast.Node
	for !c.peekKind(token.EOF) {
		fn, err := parseFunction(c)
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	return ast.NewNode(ast.Library, fns...), nil
}

// parseFunction parses `type identifier '(' arguments? ')' block`.
func parseFunction(c *cursor) (*ast.Node, error) {
	ret, err := parseType(c)
	if err != nil {
		return nil, err
	}
	nameTok, err := c.expect(token.Identifier)
	if err != nil {
		return nil, err
	}
	if _, err := c.expect(token.LParen); err != nil {
		return nil, err
	}
	args, err := parseArguments(c)
	if err != nil {
		return nil, err
	}
	if _, err := c.expect(token.RParen); err != nil {
		return nil, err
	}
	body, err := parseBlock(c)
	if err != nil {
		return nil, err
	}
	return ast.NewNode(ast.Function, ast.NewLeaf(ast.Identifier, nameTok), ret, args, body), nil
}

func parseArguments(c *cursor) (*ast.Node, error) {
	var args []*ast.Node
	if c.peekKind(token.RParen) {
		return ast.NewNode(ast.Arguments), nil
	}
	for {
		dt, err := parseType(c)
		if err != nil {
			return nil, err
		}
		nameTok, err := c.expect(token.Identifier)
		if err != nil {
			return nil, err
		}
		args = append(args, ast.NewNode(ast.Argument, ast.NewLeaf(ast.Identifier, nameTok), dt))
		if !c.accept(token.Comma) {
			break
		}
	}
	return ast.NewNode(ast.Arguments, args...), nil
}

// parseType parses `rawtype '*'*`.
func parseType(c *cursor) (*ast.Node, error) {
	raw := c.peek()
	switch raw.Kind {
	case token.KwI8, token.KwU8, token.KwI16, token.KwU16, token.KwI32, token.KwU32,
		token.KwI64, token.KwU64, token.KwVoid:
		c.advance()
	default:
		return nil, expectedGotError("a type", raw)
	}
	children := []*ast.Node{ast.NewLeaf(ast.RawType, raw)}
	for c.peekKind(token.Star) {
		children = append(children, ast.NewLeaf(ast.RawToken, c.advance()))
	}
	return ast.NewNode(ast.Type, children...), nil
}

// parseBlock parses `'{' statement* '}'`.
func parseBlock(c *cursor) (*ast.Node, error) {
	if _, err := c.expect(token.LBrace); err != nil {
		return nil, err
	}
	var stmts []*ast.Node
	for !c.peekKind(token.RBrace) {
		s, err := parseStatement(c)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	c.advance() // '}'
	return ast.NewNode(ast.Statements, stmts...), nil
}

// parseStatement parses one statement, wrapping it in a Statement node.
func parseStatement(c *cursor) (*ast.Node, error) {
	switch c.peek().Kind {
	case token.Semicolon:
		c.advance()
		return ast.NewNode(ast.Statement, ast.NewNode(ast.Empty)), nil
	case token.LBrace:
		body, err := parseBlock(c)
		if err != nil {
			return nil, err
		}
		return ast.NewNode(ast.Statement, body), nil
	case token.KwBreak:
		tok := c.advance()
		if _, err := c.expect(token.Semicolon); err != nil {
			return nil, err
		}
		return ast.NewNode(ast.Statement, ast.NewLeaf(ast.RawToken, tok)), nil
	case token.KwContinue:
		tok := c.advance()
		if _, err := c.expect(token.Semicolon); err != nil {
			return nil, err
		}
		return ast.NewNode(ast.Statement, ast.NewLeaf(ast.RawToken, tok)), nil
	case token.KwIf:
		n, err := parseIf(c)
		return wrapStatement(n, err)
	case token.KwWhile:
		n, err := parseWhile(c)
		return wrapStatement(n, err)
	case token.KwDo:
		n, err := parseDoWhile(c)
		return wrapStatement(n, err)
	case token.KwLoop:
		n, err := parseLoop(c)
		return wrapStatement(n, err)
	case token.KwReturn:
		n, err := parseReturn(c)
		return wrapStatement(n, err)
	case token.Identifier:
		n, err := parseReturnOrDeclOrExprStatement(c)
		return wrapStatement(n, err)
	case token.KwI8, token.KwU8, token.KwI16, token.KwU16, token.KwI32, token.KwU32,
		token.KwI64, token.KwU64, token.KwVoid:
		n, err := parseDeclaration(c)
		return wrapStatement(n, err)
	default:
		n, err := parseReturnOrDeclOrExprStatement(c)
		return wrapStatement(n, err)
	}
}

func wrapStatement(n *ast.Node, err error) (*ast.Node, error) {
	if err != nil {
		return nil, err
	}
	return ast.NewNode(ast.Statement, n), nil
}

// parseReturnOrDeclOrExprStatement handles plain `expr ';'` expression
// statements (identifiers starting a declaration are routed to
// parseDeclaration by their leading type keyword instead, and `return` is
// routed to parseReturn directly by parseStatement).
func parseReturnOrDeclOrExprStatement(c *cursor) (*ast.Node, error) {
	e, err := parseExpr(c)
	if err != nil {
		return nil, err
	}
	if _, err := c.expect(token.Semicolon); err != nil {
		return nil, err
	}
	return e, nil
}

// parseReturn parses `'return' expr? ';'`.
func parseReturn(c *cursor) (*ast.Node, error) {
	c.advance() // 'return'
	if c.accept(token.Semicolon) {
		return ast.NewNode(ast.ReturnStatement), nil
	}
	e, err := parseExpr(c)
	if err != nil {
		return nil, err
	}
	if _, err := c.expect(token.Semicolon); err != nil {
		return nil, err
	}
	return ast.NewNode(ast.ReturnStatement, e), nil
}

// parseDeclaration parses `type assignment (',' assignment)* ';'`.
// Declarations only ever bind identifiers: `T *p = ...;` is rejected here
// with "expected identifier, got *".
func parseDeclaration(c *cursor) (*ast.Node, error) {
	dt, err := parseType(c)
	if err != nil {
		return nil, err
	}
	var assigns []*ast.Node
	for {
		nameTok, err := c.expect(token.Identifier)
		if err != nil {
			return nil, err
		}
		children := []*ast.Node{ast.NewLeaf(ast.Identifier, nameTok)}
		if c.accept(token.Assign) {
			rhs, err := parseExprNoComma(c)
			if err != nil {
				return nil, err
			}
			children = append(children, rhs)
		}
		assigns = append(assigns, ast.NewNode(ast.Assignment, children...))
		if !c.accept(token.Comma) {
			break
		}
	}
	if _, err := c.expect(token.Semicolon); err != nil {
		return nil, err
	}
	return ast.NewNode(ast.AssignmentStatement, dt, ast.NewNode(ast.Assignments, assigns...)), nil
}

// parseIf parses `'if' '(' expr ')' statement ('else' statement)?`.
func parseIf(c *cursor) (*ast.Node, error) {
	c.advance() // 'if'
	if _, err := c.expect(token.LParen); err != nil {
		return nil, err
	}
	cond, err := parseExpr(c)
	if err != nil {
		return nil, err
	}
	if _, err := c.expect(token.RParen); err != nil {
		return nil, err
	}
	then, err := parseStatement(c)
	if err != nil {
		return nil, err
	}
	if c.accept(token.KwElse) {
		els, err := parseStatement(c)
		if err != nil {
			return nil, err
		}
		return ast.NewNode(ast.IfStatement, cond, then, els), nil
	}
	return ast.NewNode(ast.IfStatement, cond, then), nil
}

// parseWhile parses `'while' '(' expr ')' statement`.
func parseWhile(c *cursor) (*ast.Node, error) {
	c.advance() // 'while'
	if _, err := c.expect(token.LParen); err != nil {
		return nil, err
	}
	cond, err := parseExpr(c)
	if err != nil {
		return nil, err
	}
	if _, err := c.expect(token.RParen); err != nil {
		return nil, err
	}
	body, err := parseStatement(c)
	if err != nil {
		return nil, err
	}
	return ast.NewNode(ast.WhileLoop, cond, body), nil
}

// parseDoWhile parses `'do' statement 'while' '(' expr ')' ';'`.
func parseDoWhile(c *cursor) (*ast.Node, error) {
	c.advance() // 'do'
	body, err := parseStatement(c)
	if err != nil {
		return nil, err
	}
	if _, err := c.expect(token.KwWhile); err != nil {
		return nil, err
	}
	if _, err := c.expect(token.LParen); err != nil {
		return nil, err
	}
	cond, err := parseExpr(c)
	if err != nil {
		return nil, err
	}
	if _, err := c.expect(token.RParen); err != nil {
		return nil, err
	}
	if _, err := c.expect(token.Semicolon); err != nil {
		return nil, err
	}
	return ast.NewNode(ast.DoWhileLoop, body, cond), nil
}

// parseLoop parses `'loop' statement`: an unconditional loop, exited only
// via break or return.
func parseLoop(c *cursor) (*ast.Node, error) {
	c.advance() // 'loop'
	body, err := parseStatement(c)
	if err != nil {
		return nil, err
	}
	return ast.NewNode(ast.Loop, body), nil
}
