package ir

// CorrectTypes runs a single forward pass over the instruction stream:
// every instruction whose operands mix a typed value with an
// Unknown-typed Literal has the literal's type forced to match. A Ret's
// operand takes the function's return type.
func (f *Function) CorrectTypes() {
	for _, idx := range f.orderedIndices() {
		instr := f.Instructions[idx]
		known, ok := dominantType(instr.Args)
		if instr.Op == Ret {
			known, ok = f.ReturnType, true
		}
		if !ok {
			continue
		}
		for i, a := range instr.Args {
			instr.Args[i] = WithType(a, known)
		}
		f.Instructions[idx] = instr
	}
	// Symbol table entries leave this pass with is_ref cleared. Instruction
	// operands keep their IsRef tag: a Mov destination tagged by
	// asStoreTarget still tells the LLVM emitter to store through the
	// pointer rather than into the symbol's own slot.
	for name, sym := range f.SymbolTable {
		sym.Datatype = sym.Datatype.WithoutRef()
		f.SymbolTable[name] = sym
	}
}

// dominantType returns the first known (non-Unknown) type among args, used
// to correct the remaining Unknown-typed operands of the same instruction.
func dominantType(args []Value) (DataType, bool) {
	for _, a := range args {
		dt, ok := ValueType(a)
		if ok && dt.Raw != Unknown {
			return dt, true
		}
	}
	return DataType{}, false
}
