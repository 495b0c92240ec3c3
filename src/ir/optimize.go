package ir

import "math/bits"

// OptLevel selects how aggressively Optimize rewrites a Function.
type OptLevel int

const (
	// OptNone performs no optimization.
	OptNone OptLevel = iota
	// OptConstantFold folds constant arithmetic and applies strength
	// reductions (multiply/divide by a power of two, by zero, by one).
	OptConstantFold
	// OptFull additionally threads jumps (a Jmp to a label that is itself
	// an unconditional Jmp retargets directly to the final destination)
	// and removes instructions left unreachable after an unconditional
	// Jmp/Ret and before the next bound label.
	OptFull
)

const maxOptimizeIterations = 64

// Optimize runs level lvl over f until it reaches a fixed point or
// maxOptimizeIterations is exhausted, whichever comes first. At OptFull,
// jump threading and dead-code removal also run each iteration, since
// either can expose new opportunities for the other (and for constant
// folding) on the next pass. When compress is false (the --nocomp flag),
// the dead-instruction/label compaction step is skipped at every level,
// leaving Nop placeholders in place instead of renumbering the stream.
func (f *Function) Optimize(lvl OptLevel, compress bool) {
	if lvl == OptNone {
		return
	}
	for i := 0; i < maxOptimizeIterations; i++ {
		changed := f.foldConstants()
		if lvl == OptFull {
			if f.threadJumps() {
				changed = true
			}
			if f.removeDeadCode() {
				changed = true
			}
		}
		if compress {
			if f.compress() {
				changed = true
			}
		}
		if !changed {
			break
		}
	}
}

// threadJumps rewrites any Jmp or conditional branch whose label target
// resolves to an instruction that is itself an unconditional Jmp,
// retargeting it directly to that Jmp's own destination. Longer chains
// (A -> B -> C -> D) collapse one hop per call, fully unwinding over
// successive Optimize iterations.
func (f *Function) threadJumps() bool {
	changed := false
	for _, idx := range f.orderedIndices() {
		instr := f.Instructions[idx]
		if instr.Op != Jmp && !instr.Op.IsBranch() {
			continue
		}
		last := len(instr.Args) - 1
		lbl, ok := instr.Args[last].(Label)
		if !ok {
			continue
		}
		targetIdx, ok := f.labelIndex(lbl.Name)
		if !ok {
			continue
		}
		target, ok := f.Instructions[targetIdx]
		if !ok || target.Op != Jmp {
			continue
		}
		finalLbl := target.Args[0].(Label)
		if finalLbl.Name == lbl.Name {
			continue
		}
		newArgs := append([]Value(nil), instr.Args...)
		newArgs[last] = finalLbl
		f.Instructions[idx] = NewInstruction(instr.Op, newArgs...)
		changed = true
	}
	return changed
}

// removeDeadCode turns into Nop any instruction sitting strictly between
// an unconditional Jmp/Ret and the next label-bound index: nothing can
// reach it, since the only way in would have been falling through from
// the terminator immediately above it.
func (f *Function) removeDeadCode() bool {
	changed := false
	dead := false
	for _, idx := range f.orderedIndices() {
		if _, labeled := f.Labels[idx]; labeled {
			dead = false
		}
		instr := f.Instructions[idx]
		if dead && instr.Op != Nop {
			f.Instructions[idx] = NewInstruction(Nop)
			changed = true
		}
		if instr.Op == Jmp || instr.Op == Ret {
			dead = true
		}
	}
	return changed
}

// labelIndex returns the instruction index at which name is placed.
func (f *Function) labelIndex(name string) (int, bool) {
	for idx, names := range f.Labels {
		for _, n := range names {
			if n == name {
				return idx, true
			}
		}
	}
	return 0, false
}

// referencedLabels returns the set of label names used as an operand
// anywhere in f's instruction stream.
func (f *Function) referencedLabels() map[string]bool {
	set := make(map[string]bool)
	for _, instr := range f.Instructions {
		for _, arg := range instr.Args {
			if lbl, ok := arg.(Label); ok {
				set[lbl.Name] = true
			}
		}
	}
	return set
}

// foldConstants applies a per-operator arithmetic switch to
// any Add/Sub/.../Shr instruction whose two source operands are both
// Literals, plus the algebraic identities (×1, ×0, /1, |0, &0, and the
// power-of-two strength reductions into Shl/Shr) when only one operand is
// a Literal.
func (f *Function) foldConstants() bool {
	changed := false
	for _, idx := range f.orderedIndices() {
		instr := f.Instructions[idx]
		if !instr.Op.IsArithmetic() || len(instr.Args) != 3 {
			continue
		}
		dst, lhs, rhs := instr.Args[0], instr.Args[1], instr.Args[2]
		litL, okL := lhs.(Literal)
		litR, okR := rhs.(Literal)

		switch {
		case okL && okR:
			if v, ok := foldBinary(instr.Op, litL.Int, litR.Int); ok {
				f.Instructions[idx] = NewInstruction(Mov, dst, Literal{Int: v, Datatype: litL.Datatype})
				changed = true
			}
		case okR:
			if rewritten, ok := strengthReduceRight(instr.Op, dst, lhs, litR); ok {
				f.Instructions[idx] = rewritten
				changed = true
			}
		case okL:
			if rewritten, ok := strengthReduceLeft(instr.Op, dst, litL, rhs); ok {
				f.Instructions[idx] = rewritten
				changed = true
			}
		}
	}
	return changed
}

// foldBinary evaluates a constant binary arithmetic/bitwise operation.
// Division and modulo by zero are left unfolded: divide-by-zero is a
// runtime concern here, not a compile-time diagnostic.
func foldBinary(op OpCode, a, b int64) (int64, bool) {
	switch op {
	case Add:
		return a + b, true
	case Sub:
		return a - b, true
	case Mul:
		return a * b, true
	case Div:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	case Mod:
		if b == 0 {
			return 0, false
		}
		return a % b, true
	case And:
		return a & b, true
	case Or:
		return a | b, true
	case Xor:
		return a ^ b, true
	case Shl:
		return a << uint(b), true
	case Shr:
		return a >> uint(b), true
	default:
		return 0, false
	}
}

// strengthReduceRight rewrites `dst = lhs OP k` for a constant right
// operand k: power-of-two multiply/divide reduces to a shift, plus the
// ×1/×0/÷1/|0/&0 identities.
func strengthReduceRight(op OpCode, dst, lhs Value, k Literal) (Instruction, bool) {
	switch op {
	case Mul:
		switch {
		case k.Int == 1:
			return NewInstruction(Mov, dst, lhs), true
		case k.Int == 0:
			return NewInstruction(Mov, dst, Literal{Int: 0, Datatype: k.Datatype}), true
		case isPowerOfTwo(k.Int):
			return NewInstruction(Shl, dst, lhs, Literal{Int: log2(k.Int), Datatype: k.Datatype}), true
		}
	case Div:
		switch {
		case k.Int == 1:
			return NewInstruction(Mov, dst, lhs), true
		case isPowerOfTwo(k.Int):
			return NewInstruction(Shr, dst, lhs, Literal{Int: log2(k.Int), Datatype: k.Datatype}), true
		}
	case Mod:
		if k.Int == 1 {
			return NewInstruction(Mov, dst, Literal{Int: 0, Datatype: k.Datatype}), true
		}
	case Or:
		if k.Int == 0 {
			return NewInstruction(Mov, dst, lhs), true
		}
	case And:
		if k.Int == 0 {
			return NewInstruction(Mov, dst, Literal{Int: 0, Datatype: k.Datatype}), true
		}
	case Add, Sub:
		if k.Int == 0 {
			return NewInstruction(Mov, dst, lhs), true
		}
	}
	return Instruction{}, false
}

// strengthReduceLeft rewrites `dst = k OP rhs` for a constant left operand
// k, for the commutative operators where that's safe (×, +, |, &).
func strengthReduceLeft(op OpCode, dst Value, k Literal, rhs Value) (Instruction, bool) {
	switch op {
	case Mul:
		return strengthReduceRight(Mul, dst, rhs, k)
	case Add:
		return strengthReduceRight(Add, dst, rhs, k)
	case Or:
		return strengthReduceRight(Or, dst, rhs, k)
	case And:
		return strengthReduceRight(And, dst, rhs, k)
	}
	return Instruction{}, false
}

func isPowerOfTwo(n int64) bool {
	return n > 0 && bits.OnesCount64(uint64(n)) == 1
}

func log2(n int64) int64 {
	return int64(bits.TrailingZeros64(uint64(n)))
}

// compress removes Nop instructions and unreferenced labels left behind
// by foldConstants/threadJumps/removeDeadCode, renumbering the
// instruction stream and retargeting every branch/jump to the renumbered
// index. It reports whether anything changed.
func (f *Function) compress() bool {
	indices := f.orderedIndices()
	referenced := f.referencedLabels()
	newInstructions := make(map[int]Instruction, len(indices))
	newLabels := make(map[int][]string, len(f.Labels))
	remap := make(map[int]int, len(indices))

	next := 0
	labelsPruned := false
	keepLabels := func(at int, names []string) {
		for _, name := range names {
			if referenced[name] {
				newLabels[at] = append(newLabels[at], name)
			} else {
				labelsPruned = true
			}
		}
	}
	for _, idx := range indices {
		remap[idx] = next
		if labels, ok := f.Labels[idx]; ok {
			keepLabels(next, labels)
		}
		if f.Instructions[idx].Op == Nop {
			continue
		}
		newInstructions[next] = f.Instructions[idx]
		next++
	}
	// The function's exit label, if any, sits one past the old final index.
	if labels, ok := f.Labels[f.nextIndex]; ok {
		keepLabels(next, labels)
	}

	changed := next != f.nextIndex || labelsPruned
	if !changed {
		return false
	}

	// Branch/jump operands reference labels by name, not by instruction
	// index, so moving a label's entry in newLabels is all retargeting a
	// Jmp/Beq/.../Blt instruction needs: its Label operand's name is
	// unchanged, only which index that name now maps to.
	f.Instructions = newInstructions
	f.Labels = newLabels
	f.nextIndex = next
	return changed
}
