package ir

import "strings"

// OpCode names a three-address instruction's operation.
type OpCode int

const (
	Nop OpCode = iota
	Alloc
	Mov
	Ret
	Jmp
	Ref
	Deref
	Cast
	Push
	Call
	Array

	Add
	Sub
	Mul
	Div
	Mod
	And
	Or
	Xor
	Shl
	Shr

	Ceq
	Cne
	Cge
	Cgt
	Cle
	Clt

	Beq
	Bne
	Bge
	Bgt
	Ble
	Blt
)

var opNames = [...]string{
	"nop", "alloc", "mov", "ret", "jmp", "ref", "deref", "cast", "push", "call", "array",
	"add", "sub", "mul", "div", "mod", "and", "or", "xor", "shl", "shr",
	"ceq", "cne", "cge", "cgt", "cle", "clt",
	"beq", "bne", "bge", "bgt", "ble", "blt",
}

func (op OpCode) String() string {
	if int(op) < 0 || int(op) >= len(opNames) {
		return "op(?)"
	}
	return opNames[op]
}

// IsBranch reports whether op is one of the conditional-branch opcodes
// Beq..Blt, which take a comparison pair plus a Label target.
func (op OpCode) IsBranch() bool {
	return op >= Beq && op <= Blt
}

// IsCompare reports whether op is one of the value-producing comparison
// opcodes Ceq..Clt, which icmp-then-zext-then-store their boolean result.
func (op OpCode) IsCompare() bool {
	return op >= Ceq && op <= Clt
}

// IsArithmetic reports whether op is a binary arithmetic/bitwise opcode.
func (op OpCode) IsArithmetic() bool {
	return op >= Add && op <= Shr
}

// IsTerminator reports whether op always ends the basic block it appears
// in: Ret, Jmp, and every conditional branch. Used by the builder's
// ensureTerminated and the LLVM emitter's basic-block splitting.
func (op OpCode) IsTerminator() bool {
	return op == Ret || op == Jmp || op.IsBranch()
}

// Instruction is one three-address IR instruction: an opcode plus its
// ordered operand list. The destination, when an opcode produces one
// (Mov, Cast, Ref, Deref, Array, arithmetic, compare), is always Args[0].
type Instruction struct {
	Op   OpCode
	Args []Value
}

// NewInstruction builds an Instruction from an opcode and its operands.
func NewInstruction(op OpCode, args ...Value) Instruction {
	return Instruction{Op: op, Args: args}
}

// String renders an instruction as "opcode arg0, arg1, ...".
func (i Instruction) String() string {
	var b strings.Builder
	b.WriteString(i.Op.String())
	for n, a := range i.Args {
		if n == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	return b.String()
}
