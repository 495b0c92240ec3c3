package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clc/src/ast"
	"clc/src/parser"
	"clc/src/token"
)

// buildSingle scans, parses, and lowers the single function in src, running
// it through the full pre-emission pipeline (build, correct, optimize,
// validate) just as main.go's run() does.
func buildSingle(t *testing.T, src string, lvl OptLevel) *Function {
	t.Helper()
	toks, err := token.Scan("test.clc", src)
	require.NoError(t, err, "lex error")
	tree, err := parser.Parse(toks)
	require.NoError(t, err, "parse error")
	sigs, err := FunctionSignatures(tree)
	require.NoError(t, err, "signature error")
	var fn *ast.Node
	for _, c := range tree.Children {
		if c.Kind == ast.Function {
			fn = c
			break
		}
	}
	require.NotNil(t, fn, "no function in source")
	f, err := BuildFunction(fn, sigs)
	require.NoError(t, err, "build error")
	f.CorrectTypes()
	f.Optimize(lvl, true)
	require.NoError(t, f.Validate(), "validate error")
	return f
}

// countOps counts instructions of opcode op in f.
func countOps(f *Function, op OpCode) int {
	n := 0
	for _, instr := range f.Instructions {
		if instr.Op == op {
			n++
		}
	}
	return n
}

func TestS1IdentityReturn(t *testing.T) {
	f := buildSingle(t, "i32 main(){ return 0; }", OptNone)
	last := f.Instructions[f.nextIndex-1]
	require.Equal(t, Ret, last.Op)
	lit, ok := last.Args[0].(Literal)
	require.True(t, ok)
	assert.EqualValues(t, 0, lit.Int)
}

func TestS2AddAndStore(t *testing.T) {
	f := buildSingle(t, "i32 f(i32 a, i32 b){ return a+b; }", OptNone)
	assert.Equal(t, 1, countOps(f, Add))
	last := f.Instructions[f.nextIndex-1]
	assert.Equal(t, Ret, last.Op)
}

func TestS3PointerDeref(t *testing.T) {
	f := buildSingle(t, "i32 g(i32* p){ return *p; }", OptNone)
	assert.Equal(t, 1, countOps(f, Deref))
}

func TestS4WhileWithBreak(t *testing.T) {
	f := buildSingle(t, `i32 h(i32 n){
		i32 i = 0;
		while (i < n) {
			if (i == 5) break;
			i = i + 1;
		}
		return i;
	}`, OptNone)
	assert.Equal(t, 1, countOps(f, Clt))
	assert.Equal(t, 1, countOps(f, Ceq))
	assert.Equal(t, 1, countOps(f, Add))
	// while's own conditional test plus the if's conditional test.
	assert.Equal(t, 2, countOps(f, Beq))
	// the break itself lowers to an unconditional Jmp to the loop's end label.
	assert.GreaterOrEqual(t, countOps(f, Jmp), 2)
}

func TestS5SignedVsUnsignedMod(t *testing.T) {
	uf := buildSingle(t, "u32 f(u32 a, u32 b){ return a%b; }", OptNone)
	for _, instr := range uf.Instructions {
		if instr.Op == Mod {
			dt, ok := ValueType(instr.Args[1])
			require.True(t, ok)
			assert.False(t, dt.Signed())
		}
	}
	sf := buildSingle(t, "i32 f(i32 a, i32 b){ return a%b; }", OptNone)
	for _, instr := range sf.Instructions {
		if instr.Op == Mod {
			dt, ok := ValueType(instr.Args[1])
			require.True(t, ok)
			assert.True(t, dt.Signed())
		}
	}
}

func TestS6CastChain(t *testing.T) {
	f := buildSingle(t, "i64 c(i8 x){ return x as i64; }", OptNone)
	assert.Equal(t, 1, countOps(f, Cast))
	for _, instr := range f.Instructions {
		if instr.Op == Cast {
			dst, ok := ValueType(instr.Args[0])
			require.True(t, ok)
			assert.Equal(t, I64, dst.Raw)
		}
	}
}

func TestConstantFoldingArithmetic(t *testing.T) {
	f := buildSingle(t, "i32 f(){ return 2+3; }", OptConstantFold)
	assert.Equal(t, 0, countOps(f, Add), "expected Add folded away")
	last := f.Instructions[f.nextIndex-1]
	require.Equal(t, Ret, last.Op)
	lit, ok := last.Args[0].(Literal)
	if !ok {
		if mov, ok2 := findMovInto(f, last.Args[0]); ok2 {
			lit, ok = mov.Args[1].(Literal)
		}
	}
	if ok {
		assert.EqualValues(t, 5, lit.Int)
	}
}

// findMovInto returns the Mov instruction whose destination matches v's
// Symbol title, if any (the constant-fold rewrite targets the original
// destination operand in place, which may be a register rather than the
// Ret's own operand).
func findMovInto(f *Function, v Value) (Instruction, bool) {
	sym, ok := v.(Symbol)
	if !ok {
		return Instruction{}, false
	}
	for _, idx := range f.orderedIndices() {
		instr := f.Instructions[idx]
		if instr.Op == Mov {
			if dst, ok := instr.Args[0].(Symbol); ok && dst.Title == sym.Title {
				return instr, true
			}
		}
	}
	return Instruction{}, false
}

func TestStrengthReductionMultiplyByPowerOfTwo(t *testing.T) {
	f := buildSingle(t, "i32 f(i32 a){ return a*8; }", OptConstantFold)
	assert.Equal(t, 0, countOps(f, Mul), "expected Mul strength-reduced away")
	assert.Equal(t, 1, countOps(f, Shl))
}

func TestOptimizeNoneIsIdentity(t *testing.T) {
	f := buildSingle(t, "i32 f(i32 a){ return a+0; }", OptNone)
	assert.Equal(t, 1, countOps(f, Add), "OptNone must not fold constants")
}

func TestValidateRejectsUnknownBranchLabel(t *testing.T) {
	f := NewFunction("bad", NewDataType(Void, 0), nil)
	f.addInstruction(NewInstruction(Jmp, Label{Name: "nowhere"}))
	assert.Error(t, f.Validate())
}

func TestValidateRejectsUndeclaredSymbol(t *testing.T) {
	f := NewFunction("bad", NewDataType(I32, 0), nil)
	f.addInstruction(NewInstruction(Ret, Symbol{Title: "ghost", Datatype: NewDataType(I32, 0)}))
	assert.Error(t, f.Validate())
}

func TestCompoundAssignThroughPointer(t *testing.T) {
	f := buildSingle(t, "i32 f(i32* p){ *p += 1; return 0; }", OptNone)
	assert.Equal(t, 1, countOps(f, Deref), "expected a load through the pointer for the read side of *p += 1")
	assert.Equal(t, 1, countOps(f, Add))
	var storedThroughPointer bool
	for _, instr := range f.Instructions {
		if instr.Op != Mov {
			continue
		}
		if dst, ok := instr.Args[0].(Symbol); ok && dst.Datatype.IsRef {
			storedThroughPointer = true
		}
	}
	assert.True(t, storedThroughPointer, "expected the result to be stored back through the pointer")
}

func TestIncDecThroughParenthesizedDereference(t *testing.T) {
	f := buildSingle(t, "i32 f(i32* p){ (*p)++; return 0; }", OptNone)
	assert.Equal(t, 1, countOps(f, Add))
	var storedThroughPointer bool
	for _, instr := range f.Instructions {
		if instr.Op != Mov {
			continue
		}
		if dst, ok := instr.Args[0].(Symbol); ok && dst.Datatype.IsRef {
			storedThroughPointer = true
		}
	}
	assert.True(t, storedThroughPointer, "expected (*p)++ to store its update back through the pointer")
}

func TestJumpThreadingCollapsesChain(t *testing.T) {
	f := NewFunction("f", NewDataType(Void, 0), nil)
	f.addInstruction(NewInstruction(Jmp, Label{Name: "a"}))
	f.placeLabelHere("a")
	f.addInstruction(NewInstruction(Jmp, Label{Name: "b"}))
	f.placeLabelHere("b")
	f.addInstruction(NewInstruction(Ret))
	f.Optimize(OptFull, false)
	first := f.Instructions[0]
	require.Equal(t, Jmp, first.Op)
	lbl, ok := first.Args[0].(Label)
	require.True(t, ok)
	assert.Equal(t, "b", lbl.Name, "Jmp a; a: Jmp b should thread directly to b")
}

func TestDeadCodeAfterUnconditionalJumpIsRemoved(t *testing.T) {
	f := NewFunction("f", NewDataType(I32, 0), nil)
	f.addInstruction(NewInstruction(Jmp, Label{Name: "end"}))
	dead := f.newRegister(NewDataType(I32, 0))
	f.addInstruction(NewInstruction(Mov, dead, Literal{Int: 1, Datatype: NewDataType(I32, 0)}))
	f.placeLabelHere("end")
	f.addInstruction(NewInstruction(Ret, Literal{Int: 0, Datatype: NewDataType(I32, 0)}))
	f.Optimize(OptFull, true)
	assert.Equal(t, 0, countOps(f, Mov), "instruction between the Jmp and its target label is unreachable")
}

func TestCompressPrunesUnreferencedLabels(t *testing.T) {
	f := NewFunction("f", NewDataType(Void, 0), nil)
	f.placeLabel() // placed but never jumped to
	f.addInstruction(NewInstruction(Ret))
	f.Optimize(OptConstantFold, true)
	assert.Empty(t, f.Labels, "unreferenced label should have been pruned by compress")
}

func TestCorrectTypesPropagatesFromSymbolToLiteral(t *testing.T) {
	f := NewFunction("f", NewDataType(I32, 0), nil)
	sym := f.declare("a", NewDataType(I32, 0))
	dst := f.newRegister(NewDataType(Unknown, 0))
	f.addInstruction(NewInstruction(Add, dst, sym, Literal{Int: 1, Datatype: NewDataType(Unknown, 0)}))
	f.CorrectTypes()
	instr := f.Instructions[1]
	lit, ok := instr.Args[2].(Literal)
	require.True(t, ok)
	assert.Equal(t, I32, lit.Datatype.Raw)
}
