package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clc/src/ast"
	"clc/src/token"
)

// parseSource scans and parses a full program, failing the test on error.
func parseSource(t *testing.T, src string) *ast.Node {
	t.Helper()
	toks, err := token.Scan("test.clc", src)
	require.NoError(t, err, "lex error")
	tree, err := Parse(toks)
	require.NoError(t, err, "parse error")
	return tree
}

// returnExpr drills into a single-function, single-return-statement program
// and returns the returned expression's root node.
func returnExpr(t *testing.T, tree *ast.Node) *ast.Node {
	t.Helper()
	fn := tree.Children[0]
	require.Equal(t, ast.Function, fn.Kind)
	body := fn.Children[3] // Statements
	stmt := body.Children[0].Children[0]
	require.Equal(t, ast.ReturnStatement, stmt.Kind)
	return stmt.Children[0]
}

// precedenceCase names a source snippet and the operator expected at the
// top of its parsed expression tree, table-driven per the lookbusy1344
// style of exercising many small inputs against one assertion shape.
type precedenceCase struct {
	name   string
	src    string
	top    ast.ExpressionType
	nested func(t *testing.T, e *ast.Node)
}

func TestOperatorPrecedenceAndAssociativity(t *testing.T) {
	cases := []precedenceCase{
		{
			name: "assignment looser than ternary",
			src:  "i32 f(i32 a, i32 b, i32 c, i32 d){ return a = b ? c : d; }",
			top:  ast.AssignOp,
			nested: func(t *testing.T, e *ast.Node) {
				rhs := e.Children[1]
				assert.Equal(t, ast.Expression, rhs.Kind)
				assert.Equal(t, ast.Ternary, rhs.ExprOp)
			},
		},
		{
			name: "multiplicative binds tighter than additive",
			src:  "i32 f(i32 a, i32 b, i32 c){ return a + b * c; }",
			top:  ast.Add,
			nested: func(t *testing.T, e *ast.Node) {
				rhs := e.Children[1]
				assert.Equal(t, ast.Mul, rhs.ExprOp)
			},
		},
		{
			name: "assignment is right-associative",
			src:  "i32 f(i32 a, i32 b, i32 c){ return a = b = c; }",
			top:  ast.AssignOp,
			nested: func(t *testing.T, e *ast.Node) {
				assert.Equal(t, ast.Identifier, e.Children[0].Kind)
				assert.Equal(t, "a", e.Children[0].Tok.Data)
				assert.Equal(t, ast.AssignOp, e.Children[1].ExprOp)
			},
		},
		{
			name: "additive is left-associative",
			src:  "i32 f(i32 a, i32 b, i32 c){ return a - b - c; }",
			top:  ast.Sub,
			nested: func(t *testing.T, e *ast.Node) {
				lhs := e.Children[0]
				assert.Equal(t, ast.Expression, lhs.Kind)
				assert.Equal(t, ast.Sub, lhs.ExprOp)
			},
		},
		{
			name: "cast binds looser than unary",
			src:  "i64 f(i8 x){ return -x as i64; }",
			top:  ast.Cast,
			nested: func(t *testing.T, e *ast.Node) {
				operand := e.Children[1]
				assert.Equal(t, ast.UnaryMinus, operand.ExprOp)
			},
		},
		{
			name: "chained call then index",
			src:  "i32 g(i32* f, i32 a){ return f(a)[0]; }",
			top:  ast.Index,
			nested: func(t *testing.T, e *ast.Node) {
				assert.Equal(t, ast.Call, e.Children[0].ExprOp)
			},
		},
		{
			name: "comma is the loosest level",
			src:  "i32 f(i32 a, i32 b){ return a, b; }",
			top:  ast.Comma,
			nested: func(t *testing.T, e *ast.Node) {
				assert.Len(t, e.Children, 2)
			},
		},
		{
			name: "call arguments are not a comma expression",
			src:  "i32 f(i32 a, i32 b){ return f(a, b); }",
			top:  ast.Call,
			nested: func(t *testing.T, e *ast.Node) {
				assert.Len(t, e.Children, 3) // callee + 2 args
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tree := parseSource(t, tc.src)
			e := returnExpr(t, tree)
			require.Equal(t, ast.Expression, e.Kind)
			require.Equal(t, tc.top, e.ExprOp)
			tc.nested(t, e)
		})
	}
}

func TestDereferenceAssignTargetConvertsToLeft(t *testing.T) {
	// `*p = x` must rewrite the LHS Dereference into DereferenceLeft.
	tree := parseSource(t, "i32 f(i32* p, i32 x){ return *p = x; }")
	e := returnExpr(t, tree)
	require.Equal(t, ast.AssignOp, e.ExprOp)
	lhs := e.Children[0]
	assert.Equal(t, ast.Expression, lhs.Kind)
	assert.Equal(t, ast.DereferenceLeft, lhs.ExprOp)
}

func TestPlainDereferenceIsNotConverted(t *testing.T) {
	// A Dereference that is NOT an assignment target stays a Dereference.
	tree := parseSource(t, "i32 f(i32* p){ return *p; }")
	e := returnExpr(t, tree)
	assert.Equal(t, ast.Dereference, e.ExprOp)
}

func TestIfElseStatement(t *testing.T) {
	tree := parseSource(t, "i32 f(i32 a){ if (a) { return 1; } else { return 0; } return 2; }")
	fn := tree.Children[0]
	body := fn.Children[3]
	require.Len(t, body.Children, 2)
	ifStmt := body.Children[0].Children[0]
	require.Equal(t, ast.IfStatement, ifStmt.Kind)
	assert.Len(t, ifStmt.Children, 3) // cond + then + else
}

func TestDeclarationRejectsPointerOnIdentifier(t *testing.T) {
	// `i32 *p = ...;` binds only identifiers: the star belongs to the
	// type, and parseDeclaration expects an identifier next.
	toks, err := token.Scan("test.clc", "i32 f(){ i32 *p = 0; return 0; }")
	require.NoError(t, err)
	_, err = Parse(toks)
	assert.Error(t, err)
}

func TestLoopWhileDoWhile(t *testing.T) {
	tree := parseSource(t, `i32 f(i32 n){
		i32 i = 0;
		while (i < n) { i = i + 1; }
		do { i = i - 1; } while (i > 0);
		loop { break; }
		return i;
	}`)
	fn := tree.Children[0]
	body := fn.Children[3]
	require.Len(t, body.Children, 5)
	assert.Equal(t, ast.WhileLoop, body.Children[1].Children[0].Kind)
	assert.Equal(t, ast.DoWhileLoop, body.Children[2].Children[0].Kind)
	assert.Equal(t, ast.Loop, body.Children[3].Children[0].Kind)
}
