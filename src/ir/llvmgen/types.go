// Package llvmgen emits textual LLVM IR for one compiled ir.Function at a
// time, via the cgo bindings in tinygo.org/x/go-llvm: a context/module/
// builder lifecycle with one llvm.BasicBlock per IR label, and a
// per-opcode lowering table driving the instruction-to-instruction
// translation itself.
package llvmgen

import (
	"tinygo.org/x/go-llvm"

	"clc/src/ir"
)

// llvmType renders dt the way LLVM's type-printing rule requires: iN for
// every integer base regardless of signedness, void for Void, one
// pointer level per ptr_depth. is_ref never affects the printed type.
func llvmType(ctx llvm.Context, dt ir.DataType) llvm.Type {
	var base llvm.Type
	switch dt.Raw {
	case ir.Void:
		base = ctx.VoidType()
	case ir.I8, ir.U8:
		base = ctx.Int8Type()
	case ir.I16, ir.U16:
		base = ctx.Int16Type()
	case ir.I32, ir.U32:
		base = ctx.Int32Type()
	case ir.I64, ir.U64:
		base = ctx.Int64Type()
	default:
		base = ctx.Int32Type()
	}
	t := base
	for i := 0; i < dt.PtrDepth; i++ {
		t = llvm.PointerType(t, 0)
	}
	return t
}
