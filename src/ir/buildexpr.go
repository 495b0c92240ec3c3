package ir

import (
	"strconv"

	"github.com/pkg/errors"

	"clc/src/ast"
	"clc/src/token"
)

// buildExpr lowers one expression parse tree node into the Value holding
// its result, emitting whatever instructions are needed along the way.
func (b *builder) buildExpr(n *ast.Node) (Value, error) {
	switch n.Kind {
	case ast.Identifier:
		sym, ok := b.f.lookup(n.Tok.Data)
		if !ok {
			return nil, errors.Errorf("undeclared identifier %q", n.Tok.Data)
		}
		return sym, nil
	case ast.IntegerLiteral:
		v, err := strconv.ParseInt(n.Tok.Data, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "malformed integer literal %q", n.Tok.Data)
		}
		return Literal{Int: v, Datatype: NewDataType(Unknown, 0)}, nil
	case ast.Expression:
		return b.buildExprOp(n)
	default:
		return nil, errors.Errorf("unexpected expression node kind %s", n.Kind)
	}
}

func (b *builder) buildExprOp(n *ast.Node) (Value, error) {
	switch n.ExprOp {
	case ast.Comma:
		var last Value
		for _, c := range n.Children {
			v, err := b.buildExpr(c)
			if err != nil {
				return nil, err
			}
			last = v
		}
		return last, nil

	case ast.AssignOp:
		return b.buildAssign(n.Children[0], n.Children[1])
	case ast.AddAssign, ast.SubAssign, ast.MulAssign, ast.DivAssign, ast.ModAssign,
		ast.ShlAssign, ast.ShrAssign, ast.AndAssign, ast.XorAssign, ast.OrAssign:
		return b.buildCompoundAssign(n.ExprOp, n.Children[0], n.Children[1])

	case ast.Ternary:
		return b.buildTernary(n)
	case ast.LogicalOr:
		return b.buildLogical(false, n.Children[0], n.Children[1])
	case ast.LogicalAnd:
		return b.buildLogical(true, n.Children[0], n.Children[1])

	case ast.BitOr, ast.BitXor, ast.BitAnd, ast.Shl, ast.Shr, ast.Add, ast.Sub, ast.Mul, ast.Div, ast.Mod:
		return b.buildBinary(exprOpcode[n.ExprOp], n.Children[0], n.Children[1])

	case ast.Eq, ast.Ne, ast.Lt, ast.Gt, ast.Le, ast.Ge:
		return b.buildCompare(exprOpcode[n.ExprOp], n.Children[0], n.Children[1])

	case ast.Cast:
		return b.buildCast(n.Children[0], n.Children[1])

	case ast.PrefixInc, ast.PrefixDec:
		return b.buildIncDec(n.Children[0], n.ExprOp == ast.PrefixInc, true)
	case ast.PostfixInc, ast.PostfixDec:
		return b.buildIncDec(n.Children[0], n.ExprOp == ast.PostfixInc, false)

	case ast.UnaryPlus:
		return b.buildExpr(n.Children[0])
	case ast.UnaryMinus:
		return b.buildBinary(Sub, zeroNode, n.Children[0])
	case ast.LogicalNot:
		v, err := b.buildExpr(n.Children[0])
		if err != nil {
			return nil, err
		}
		dst := b.f.newRegister(boolType)
		b.f.addInstruction(NewInstruction(Ceq, dst, v, Literal{Int: 0, Datatype: boolType}))
		return dst, nil
	case ast.BitNot:
		v, err := b.buildExpr(n.Children[0])
		if err != nil {
			return nil, err
		}
		dst := b.f.newRegister(typeOf(v))
		b.f.addInstruction(NewInstruction(Xor, dst, v, Literal{Int: -1, Datatype: typeOf(v)}))
		return dst, nil

	case ast.AddressOf:
		sym, ok := b.f.lookup(n.Children[0].Tok.Data)
		if !ok {
			return nil, errors.Errorf("undeclared identifier %q", n.Children[0].Tok.Data)
		}
		dst := b.f.newRegister(sym.Datatype.Referenced())
		b.f.addInstruction(NewInstruction(Ref, dst, sym))
		return dst, nil
	case ast.Dereference, ast.DereferenceLeft:
		ptr, err := b.buildExpr(n.Children[0])
		if err != nil {
			return nil, err
		}
		dst := b.f.newRegister(typeOf(ptr).Dereferenced())
		b.f.addInstruction(NewInstruction(Deref, dst, ptr))
		return dst, nil

	case ast.Index:
		base, idx, err := b.buildIndexOperands(n)
		if err != nil {
			return nil, err
		}
		dst := b.f.newRegister(typeOf(base).Dereferenced())
		b.f.addInstruction(NewInstruction(Array, dst, base, idx))
		return dst, nil

	case ast.Call:
		return b.buildCall(n)

	default:
		return nil, errors.Errorf("unexpected expression operator %s", n.ExprOp)
	}
}

// exprOpcode maps the arithmetic/compare ExpressionTypes to their OpCode.
var exprOpcode = map[ast.ExpressionType]OpCode{
	ast.BitOr: Or, ast.BitXor: Xor, ast.BitAnd: And,
	ast.Shl: Shl, ast.Shr: Shr,
	ast.Add: Add, ast.Sub: Sub, ast.Mul: Mul, ast.Div: Div, ast.Mod: Mod,
	ast.Eq: Ceq, ast.Ne: Cne, ast.Lt: Clt, ast.Gt: Cgt, ast.Le: Cle, ast.Ge: Cge,
}

var zeroNode = &ast.Node{Kind: ast.IntegerLiteral, Tok: token.Token{Kind: token.Integer, Data: "0"}}

func (b *builder) buildBinary(op OpCode, lhsNode, rhsNode *ast.Node) (Value, error) {
	lhs, err := b.buildExpr(lhsNode)
	if err != nil {
		return nil, err
	}
	rhs, err := b.buildExpr(rhsNode)
	if err != nil {
		return nil, err
	}
	dst := b.f.newRegister(preferredType(lhs, rhs))
	b.f.addInstruction(NewInstruction(op, dst, lhs, rhs))
	return dst, nil
}

func (b *builder) buildCompare(op OpCode, lhsNode, rhsNode *ast.Node) (Value, error) {
	lhs, err := b.buildExpr(lhsNode)
	if err != nil {
		return nil, err
	}
	rhs, err := b.buildExpr(rhsNode)
	if err != nil {
		return nil, err
	}
	dst := b.f.newRegister(boolType)
	b.f.addInstruction(NewInstruction(op, dst, lhs, rhs))
	return dst, nil
}

func (b *builder) buildCast(targetType, valueNode *ast.Node) (Value, error) {
	dt, err := TypeOfTypeNode(targetType)
	if err != nil {
		return nil, err
	}
	v, err := b.buildExpr(valueNode)
	if err != nil {
		return nil, err
	}
	dst := b.f.newRegister(dt)
	b.f.addInstruction(NewInstruction(Cast, dst, v))
	return dst, nil
}

// buildLogical lowers && (isAnd) or || short-circuiting.
func (b *builder) buildLogical(isAnd bool, lhsNode, rhsNode *ast.Node) (Value, error) {
	lhs, err := b.buildExpr(lhsNode)
	if err != nil {
		return nil, err
	}
	result := b.f.newRegister(boolType)
	shortLabel := b.f.newLabel()
	if isAnd {
		b.f.addInstruction(NewInstruction(Mov, result, Literal{Int: 0, Datatype: boolType}))
		b.f.addInstruction(NewInstruction(Beq, lhs, Literal{Int: 0, Datatype: boolType}, Label{Name: shortLabel}))
	} else {
		b.f.addInstruction(NewInstruction(Mov, result, Literal{Int: 1, Datatype: boolType}))
		b.f.addInstruction(NewInstruction(Bne, lhs, Literal{Int: 0, Datatype: boolType}, Label{Name: shortLabel}))
	}
	rhs, err := b.buildExpr(rhsNode)
	if err != nil {
		return nil, err
	}
	normalized := b.f.newRegister(boolType)
	b.f.addInstruction(NewInstruction(Cne, normalized, rhs, Literal{Int: 0, Datatype: boolType}))
	b.f.addInstruction(NewInstruction(Mov, result, normalized))
	b.f.placeLabelHere(shortLabel)
	return result, nil
}

func (b *builder) buildTernary(n *ast.Node) (Value, error) {
	cond, err := b.buildExpr(n.Children[0])
	if err != nil {
		return nil, err
	}
	result := b.f.newRegister(NewDataType(Unknown, 0))
	elseLabel := b.f.newLabel()
	endLabel := b.f.newLabel()
	b.f.addInstruction(NewInstruction(Beq, cond, Literal{Int: 0, Datatype: boolType}, Label{Name: elseLabel}))
	thenVal, err := b.buildExpr(n.Children[1])
	if err != nil {
		return nil, err
	}
	b.f.addInstruction(NewInstruction(Mov, result, thenVal))
	b.f.addInstruction(NewInstruction(Jmp, Label{Name: endLabel}))
	b.f.placeLabelHere(elseLabel)
	elseVal, err := b.buildExpr(n.Children[2])
	if err != nil {
		return nil, err
	}
	b.f.addInstruction(NewInstruction(Mov, result, elseVal))
	b.f.placeLabelHere(endLabel)
	return result, nil
}

// buildIncDec lowers ++/-- in both prefix and postfix form. Prefix returns
// the updated value; postfix returns the value from before the update.
func (b *builder) buildIncDec(target *ast.Node, isInc, isPrefix bool) (Value, error) {
	dst, err := b.buildAssignTarget(target)
	if err != nil {
		return nil, err
	}
	cur, err := b.buildExpr(target)
	if err != nil {
		return nil, err
	}
	op := Add
	if !isInc {
		op = Sub
	}
	updated := b.f.newRegister(typeOf(cur))
	b.f.addInstruction(NewInstruction(op, updated, cur, Literal{Int: 1, Datatype: typeOf(cur)}))
	b.f.addInstruction(NewInstruction(Mov, dst, updated))
	if isPrefix {
		return updated, nil
	}
	return cur, nil
}

// buildAssign lowers a plain `lhs = rhs` expression.
func (b *builder) buildAssign(lhsNode, rhsNode *ast.Node) (Value, error) {
	dst, err := b.buildAssignTarget(lhsNode)
	if err != nil {
		return nil, err
	}
	v, err := b.buildExpr(rhsNode)
	if err != nil {
		return nil, err
	}
	b.f.addInstruction(NewInstruction(Mov, dst, v))
	return v, nil
}

// buildCompoundAssign lowers `lhs OP= rhs` as `lhs = lhs OP rhs`.
func (b *builder) buildCompoundAssign(op ast.ExpressionType, lhsNode, rhsNode *ast.Node) (Value, error) {
	dst, err := b.buildAssignTarget(lhsNode)
	if err != nil {
		return nil, err
	}
	cur, err := b.buildExpr(lhsNode)
	if err != nil {
		return nil, err
	}
	rhs, err := b.buildExpr(rhsNode)
	if err != nil {
		return nil, err
	}
	result := b.f.newRegister(typeOf(cur))
	b.f.addInstruction(NewInstruction(compoundOpcode[op], result, cur, rhs))
	b.f.addInstruction(NewInstruction(Mov, dst, result))
	return result, nil
}

var compoundOpcode = map[ast.ExpressionType]OpCode{
	ast.AddAssign: Add, ast.SubAssign: Sub, ast.MulAssign: Mul, ast.DivAssign: Div, ast.ModAssign: Mod,
	ast.ShlAssign: Shl, ast.ShrAssign: Shr, ast.AndAssign: And, ast.XorAssign: Xor, ast.OrAssign: Or,
}

// buildAssignTarget resolves the Value an assignment should Mov into: the
// named symbol for a plain identifier, or a reference-tagged pointer
// register for `*p` and `a[i]` — both store through a computed address
// rather than into a plain slot, which the LLVM emitter tells apart by
// the destination's IsRef flag. `*p` reaches here as DereferenceLeft when
// the parser's convert-to-left rewrite applies (a plain `*p = ...`
// assignment), or as a bare Dereference when it doesn't (inc/dec targets
// like `(*p)++`, which never go through that rewrite) — both resolve the
// same way.
func (b *builder) buildAssignTarget(n *ast.Node) (Value, error) {
	switch n.Kind {
	case ast.Identifier:
		sym, ok := b.f.lookup(n.Tok.Data)
		if !ok {
			return nil, errors.Errorf("undeclared identifier %q", n.Tok.Data)
		}
		return sym, nil
	case ast.Expression:
		switch n.ExprOp {
		case ast.DereferenceLeft, ast.Dereference:
			ptr, err := b.buildExpr(n.Children[0])
			if err != nil {
				return nil, err
			}
			return asStoreTarget(ptr), nil
		case ast.Index:
			base, idx, err := b.buildIndexOperands(n)
			if err != nil {
				return nil, err
			}
			addr := b.f.newRegister(typeOf(base).AsReference())
			b.f.addInstruction(NewInstruction(Array, addr, base, idx))
			return addr, nil
		}
	}
	return nil, errors.Errorf("invalid assignment target: %s", n)
}

func (b *builder) buildIndexOperands(n *ast.Node) (Value, Value, error) {
	base, err := b.buildExpr(n.Children[0])
	if err != nil {
		return nil, nil, err
	}
	idx, err := b.buildExpr(n.Children[1])
	if err != nil {
		return nil, nil, err
	}
	return base, idx, nil
}

func (b *builder) buildCall(n *ast.Node) (Value, error) {
	name := n.Children[0].Tok.Data
	ret, ok := b.sigs[name]
	if !ok {
		return nil, errors.Errorf("call to undeclared function %q", name)
	}
	for _, argNode := range n.Children[1:] {
		v, err := b.buildExpr(argNode)
		if err != nil {
			return nil, err
		}
		b.f.addInstruction(NewInstruction(Push, v))
	}
	dst := b.f.newRegister(ret)
	b.f.addInstruction(NewInstruction(Call, dst, Label{Name: name}))
	return dst, nil
}

// asStoreTarget re-tags a pointer Value as an assignment target: the LLVM
// emitter stores through it instead of into its own slot.
func asStoreTarget(v Value) Value {
	if s, ok := v.(Symbol); ok {
		s.Datatype = s.Datatype.AsReference()
		return s
	}
	return v
}

// typeOf returns v's DataType, or the Unknown placeholder if v is untyped
// (a Label never reaches here in practice).
func typeOf(v Value) DataType {
	dt, _ := ValueType(v)
	return dt
}

// preferredType picks the known type among lhs/rhs for a binary
// instruction's destination, leaving Unknown for the type corrector when
// neither operand is yet typed.
func preferredType(lhs, rhs Value) DataType {
	if dt := typeOf(lhs); dt.Raw != Unknown {
		return dt
	}
	return typeOf(rhs)
}
