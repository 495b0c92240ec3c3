package ir

import (
	"sort"
	"strconv"

	"clc/src/util"
)

// Function is one compiled function: a dense, labeled, three-address
// instruction stream plus the bookkeeping the builder needs while lowering
// it.
type Function struct {
	Name       string
	ReturnType DataType
	Arguments  []Symbol

	// Instructions is keyed by a dense index starting at 0: every index in
	// [0, len(Instructions)) is populated.
	Instructions map[int]Instruction
	// Labels maps an instruction index to the labels placed immediately
	// before it. A label may be placed at an index one past the last
	// instruction (the function's implicit exit point).
	Labels map[int][]string

	// SymbolTable holds every declared symbol (arguments and locals) keyed
	// by title.
	SymbolTable map[string]Symbol

	nextLabel    int
	nextRegister int
	nextIndex    int

	continueStack util.Stack[string]
	breakStack    util.Stack[string]
}

// NewFunction returns an empty Function ready for statement lowering.
func NewFunction(name string, ret DataType, args []Symbol) *Function {
	f := &Function{
		Name:         name,
		ReturnType:   ret,
		Arguments:    args,
		Instructions: make(map[int]Instruction),
		Labels:       make(map[int][]string),
		SymbolTable:  make(map[string]Symbol),
	}
	for _, a := range args {
		f.SymbolTable[a.Title] = a
	}
	return f
}

// newLabel allocates and returns a fresh label name, unique within f.
func (f *Function) newLabel() string {
	f.nextLabel++
	return "L" + strconv.Itoa(f.nextLabel-1)
}

// newRegister allocates and returns a fresh temporary register Symbol of
// type dt.
func (f *Function) newRegister(dt DataType) Symbol {
	f.nextRegister++
	sym := Symbol{Title: "t" + strconv.Itoa(f.nextRegister-1), Datatype: dt}
	f.SymbolTable[sym.Title] = sym
	return sym
}

// declare adds a named local to the symbol table and emits its Alloc
// instruction.
func (f *Function) declare(name string, dt DataType) Symbol {
	sym := Symbol{Title: name, Datatype: dt}
	f.SymbolTable[name] = sym
	f.addInstruction(NewInstruction(Alloc, sym))
	return sym
}

// lookup returns the symbol table entry for name, if declared.
func (f *Function) lookup(name string) (Symbol, bool) {
	s, ok := f.SymbolTable[name]
	return s, ok
}

// addInstruction appends instr at the next dense index and returns that
// index.
func (f *Function) addInstruction(instr Instruction) int {
	idx := f.nextIndex
	f.Instructions[idx] = instr
	f.nextIndex++
	return idx
}

// placeLabel allocates a fresh label, attaches it to the instruction index
// about to be emitted, and returns it.
func (f *Function) placeLabel() string {
	l := f.newLabel()
	f.placeLabelHere(l)
	return l
}

// placeLabelHere attaches an existing label name to the next instruction
// index to be emitted (which may be one past the last instruction, i.e.
// the function's exit point).
func (f *Function) placeLabelHere(name string) {
	f.Labels[f.nextIndex] = append(f.Labels[f.nextIndex], name)
}

// enterLoop pushes the continue/break targets for a loop body.
func (f *Function) enterLoop(continueLabel, breakLabel string) {
	f.continueStack.Push(continueLabel)
	f.breakStack.Push(breakLabel)
}

// exitLoop pops the continue/break targets pushed by the matching
// enterLoop.
func (f *Function) exitLoop() {
	f.continueStack.Pop()
	f.breakStack.Pop()
}

// topContinue returns the label a `continue` statement should jump to,
// reading the top of its own dedicated stack rather than cross-indexing
// into the break stack.
func (f *Function) topContinue() (string, bool) {
	return f.continueStack.Peek()
}

// topBreak returns the label a `break` statement should jump to, reading
// the break stack's own top rather than reproducing the original's
// mismatched-stack bug.
func (f *Function) topBreak() (string, bool) {
	return f.breakStack.Peek()
}

// OrderedIndices returns every populated instruction index in ascending
// order, for callers (the IR printer, the LLVM emitter) that must walk the
// instruction stream in program order.
func (f *Function) OrderedIndices() []int {
	return f.orderedIndices()
}

// orderedIndices returns every populated instruction index in ascending
// order.
func (f *Function) orderedIndices() []int {
	idx := make([]int, 0, len(f.Instructions))
	for i := range f.Instructions {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}
