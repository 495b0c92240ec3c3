package llvmgen

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"clc/src/ir"
)

// icmpPredicate picks the llvm.IntPredicate for a Ceq..Clt/Beq..Blt opcode,
// choosing the signed or unsigned variant from signed (the first operand's
// signedness).
func icmpPredicate(op ir.OpCode, signed bool) llvm.IntPredicate {
	switch op {
	case ir.Ceq, ir.Beq:
		return llvm.IntEQ
	case ir.Cne, ir.Bne:
		return llvm.IntNE
	case ir.Cge, ir.Bge:
		if signed {
			return llvm.IntSGE
		}
		return llvm.IntUGE
	case ir.Cgt, ir.Bgt:
		if signed {
			return llvm.IntSGT
		}
		return llvm.IntUGT
	case ir.Cle, ir.Ble:
		if signed {
			return llvm.IntSLE
		}
		return llvm.IntULE
	case ir.Clt, ir.Blt:
		if signed {
			return llvm.IntSLT
		}
		return llvm.IntULT
	default:
		panic(fmt.Sprintf("llvmgen: %s is not a compare/branch opcode", op))
	}
}

// buildArithmetic emits one arithmetic/bitwise instruction, choosing the
// signed/unsigned opcode pair (Div/Mod/Shr) from signed.
func buildArithmetic(b llvm.Builder, op ir.OpCode, a, c llvm.Value, signed bool) llvm.Value {
	switch op {
	case ir.Add:
		return b.CreateAdd(a, c, "")
	case ir.Sub:
		return b.CreateSub(a, c, "")
	case ir.Mul:
		return b.CreateMul(a, c, "")
	case ir.Div:
		if signed {
			return b.CreateSDiv(a, c, "")
		}
		return b.CreateUDiv(a, c, "")
	case ir.Mod:
		if signed {
			return b.CreateSRem(a, c, "")
		}
		return b.CreateURem(a, c, "")
	case ir.And:
		return b.CreateAnd(a, c, "")
	case ir.Or:
		return b.CreateOr(a, c, "")
	case ir.Xor:
		return b.CreateXor(a, c, "")
	case ir.Shl:
		return b.CreateShl(a, c, "")
	case ir.Shr:
		if signed {
			return b.CreateAShr(a, c, "")
		}
		return b.CreateLShr(a, c, "")
	default:
		panic(fmt.Sprintf("llvmgen: %s is not an arithmetic opcode", op))
	}
}
