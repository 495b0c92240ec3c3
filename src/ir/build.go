package ir

import (
	"github.com/pkg/errors"

	"clc/src/ast"
)

// builder threads per-function lowering state through the recursive
// descent over a parse tree. It passes the *Function explicitly from call
// to call rather than hanging it off interior-mutable shared state.
type builder struct {
	f    *Function
	sigs map[string]DataType // function name -> return type, for Call lowering.
}

// TypeOfTypeNode resolves a Type parse tree node (a RawType child plus one
// Star RawToken child per pointer level) into a DataType.
func TypeOfTypeNode(n *ast.Node) (DataType, error) {
	if n == nil || n.Kind != ast.Type || len(n.Children) == 0 {
		return DataType{}, errors.New("malformed type node")
	}
	raw, ok := RawFromToken(n.Children[0].Tok.Data)
	if !ok {
		return DataType{}, errors.Errorf("unknown base type %q", n.Children[0].Tok.Data)
	}
	return NewDataType(raw, len(n.Children)-1), nil
}

// FunctionSignatures scans every Function node in a Library's children and
// returns its name -> return type map, needed before lowering any one
// function's Call expressions.
func FunctionSignatures(library *ast.Node) (map[string]DataType, error) {
	sigs := make(map[string]DataType)
	for _, fn := range library.Children {
		if fn.Kind != ast.Function {
			continue
		}
		name := fn.Children[0].Tok.Data
		ret, err := TypeOfTypeNode(fn.Children[1])
		if err != nil {
			return nil, errors.Wrapf(err, "function %s", name)
		}
		sigs[name] = ret
	}
	return sigs, nil
}

// BuildFunction lowers one Function parse tree node into a three-address
// ir.Function. sigs must contain every function's return type, including
// fn's own (see FunctionSignatures).
func BuildFunction(fn *ast.Node, sigs map[string]DataType) (*Function, error) {
	if fn.Kind != ast.Function {
		return nil, errors.Errorf("BuildFunction: expected Function node, got %s", fn.Kind)
	}
	name := fn.Children[0].Tok.Data
	ret, err := TypeOfTypeNode(fn.Children[1])
	if err != nil {
		return nil, err
	}
	args, err := buildArguments(fn.Children[2])
	if err != nil {
		return nil, err
	}
	b := &builder{f: NewFunction(name, ret, args), sigs: sigs}
	if err := b.buildStatement(fn.Children[3]); err != nil {
		return nil, err
	}
	b.ensureTerminated()
	return b.f, nil
}

func buildArguments(n *ast.Node) ([]Symbol, error) {
	args := make([]Symbol, 0, len(n.Children))
	for _, a := range n.Children {
		dt, err := TypeOfTypeNode(a.Children[1])
		if err != nil {
			return nil, err
		}
		args = append(args, Symbol{Title: a.Children[0].Tok.Data, Datatype: dt})
	}
	return args, nil
}

// ensureTerminated appends a trailing Ret if the function's last emitted
// instruction doesn't already terminate its block, so every function ends
// in a valid terminator.
func (b *builder) ensureTerminated() {
	last, ok := b.f.Instructions[b.f.nextIndex-1]
	if ok && last.Op.IsTerminator() {
		return
	}
	if b.f.ReturnType.Raw == Void {
		b.f.addInstruction(NewInstruction(Ret))
	} else {
		b.f.addInstruction(NewInstruction(Ret, Literal{Int: 0, Datatype: b.f.ReturnType}))
	}
}

// buildStatement lowers one Statement (or a node directly reachable from
// one, such as the Statements block it wraps).
func (b *builder) buildStatement(n *ast.Node) error {
	switch n.Kind {
	case ast.Statement:
		if len(n.Children) == 0 {
			return nil
		}
		return b.buildStatement(n.Children[0])
	case ast.Statements:
		for _, c := range n.Children {
			if err := b.buildStatement(c); err != nil {
				return err
			}
		}
		return nil
	case ast.Empty:
		return nil
	case ast.RawToken:
		switch n.Tok.Data {
		case "break":
			l, ok := b.f.topBreak()
			if !ok {
				return errors.New("break statement outside of a loop")
			}
			b.f.addInstruction(NewInstruction(Jmp, Label{Name: l}))
		case "continue":
			l, ok := b.f.topContinue()
			if !ok {
				return errors.New("continue statement outside of a loop")
			}
			b.f.addInstruction(NewInstruction(Jmp, Label{Name: l}))
		default:
			return errors.Errorf("unexpected statement token %q", n.Tok.Data)
		}
		return nil
	case ast.AssignmentStatement:
		return b.buildDeclaration(n)
	case ast.Expression:
		_, err := b.buildExpr(n)
		return err
	case ast.ReturnStatement:
		if len(n.Children) == 0 {
			b.f.addInstruction(NewInstruction(Ret))
			return nil
		}
		v, err := b.buildExpr(n.Children[0])
		if err != nil {
			return err
		}
		b.f.addInstruction(NewInstruction(Ret, v))
		return nil
	case ast.IfStatement:
		return b.buildIf(n)
	case ast.WhileLoop:
		return b.buildWhile(n)
	case ast.DoWhileLoop:
		return b.buildDoWhile(n)
	case ast.Loop:
		return b.buildLoop(n)
	default:
		return errors.Errorf("unexpected statement node kind %s", n.Kind)
	}
}

// buildDeclaration lowers `Type assignment (',' assignment)* ';'`: one
// Alloc per declared name, followed by a Mov when an initializer is given.
// A call-containing initializer is just a full expression lowered like
// any other.
func (b *builder) buildDeclaration(n *ast.Node) error {
	dt, err := TypeOfTypeNode(n.Children[0])
	if err != nil {
		return err
	}
	for _, assignment := range n.Children[1].Children {
		name := assignment.Children[0].Tok.Data
		sym := b.f.declare(name, dt)
		if len(assignment.Children) > 1 {
			v, err := b.buildExpr(assignment.Children[1])
			if err != nil {
				return err
			}
			b.f.addInstruction(NewInstruction(Mov, sym, v))
		}
	}
	return nil
}

// buildIf lowers the if/else schema: evaluate the condition,
// branch past the then-block when false, and (with an else arm) jump past
// the else-block at the end of the then-block.
func (b *builder) buildIf(n *ast.Node) error {
	cond, err := b.buildExpr(n.Children[0])
	if err != nil {
		return err
	}
	elseLabel := b.f.newLabel()
	b.f.addInstruction(NewInstruction(Beq, cond, Literal{Int: 0, Datatype: boolType}, Label{Name: elseLabel}))
	if err := b.buildStatement(n.Children[1]); err != nil {
		return err
	}
	if len(n.Children) > 2 {
		endLabel := b.f.newLabel()
		b.f.addInstruction(NewInstruction(Jmp, Label{Name: endLabel}))
		b.f.placeLabelHere(elseLabel)
		if err := b.buildStatement(n.Children[2]); err != nil {
			return err
		}
		b.f.placeLabelHere(endLabel)
	} else {
		b.f.placeLabelHere(elseLabel)
	}
	return nil
}

// buildWhile lowers the while schema: test before every
// iteration, continue re-tests, break exits past the loop entirely.
func (b *builder) buildWhile(n *ast.Node) error {
	headLabel := b.f.placeLabel()
	cond, err := b.buildExpr(n.Children[0])
	if err != nil {
		return err
	}
	endLabel := b.f.newLabel()
	b.f.addInstruction(NewInstruction(Beq, cond, Literal{Int: 0, Datatype: boolType}, Label{Name: endLabel}))
	b.f.enterLoop(headLabel, endLabel)
	if err := b.buildStatement(n.Children[1]); err != nil {
		b.f.exitLoop()
		return err
	}
	b.f.exitLoop()
	b.f.addInstruction(NewInstruction(Jmp, Label{Name: headLabel}))
	b.f.placeLabelHere(endLabel)
	return nil
}

// buildDoWhile lowers the do/while schema: the body always runs once,
// continue jumps to the condition re-test, break exits the loop.
func (b *builder) buildDoWhile(n *ast.Node) error {
	bodyLabel := b.f.placeLabel()
	condLabel := b.f.newLabel()
	endLabel := b.f.newLabel()
	b.f.enterLoop(condLabel, endLabel)
	if err := b.buildStatement(n.Children[0]); err != nil {
		b.f.exitLoop()
		return err
	}
	b.f.exitLoop()
	b.f.placeLabelHere(condLabel)
	cond, err := b.buildExpr(n.Children[1])
	if err != nil {
		return err
	}
	b.f.addInstruction(NewInstruction(Bne, cond, Literal{Int: 0, Datatype: boolType}, Label{Name: bodyLabel}))
	b.f.placeLabelHere(endLabel)
	return nil
}

// buildLoop lowers the unconditional `loop { ... }` form: the only way out
// is break, or a return inside the body.
func (b *builder) buildLoop(n *ast.Node) error {
	headLabel := b.f.placeLabel()
	endLabel := b.f.newLabel()
	b.f.enterLoop(headLabel, endLabel)
	if err := b.buildStatement(n.Children[0]); err != nil {
		b.f.exitLoop()
		return err
	}
	b.f.exitLoop()
	b.f.addInstruction(NewInstruction(Jmp, Label{Name: headLabel}))
	b.f.placeLabelHere(endLabel)
	return nil
}

// boolType is the representation a comparison result, or a condition
// tested by if/while/do-while, is treated as: a plain integer, and this
// compiler picks U8 as its smallest unsigned base (icmp results zext to
// it at emission time).
var boolType = NewDataType(U8, 0)
