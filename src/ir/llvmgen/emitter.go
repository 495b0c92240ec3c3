package llvmgen

import (
	"sort"

	"github.com/pkg/errors"
	"tinygo.org/x/go-llvm"

	"clc/src/ir"
)

// Module wraps one LLVM context/module/builder triple and accumulates every
// function emitted into it. A single Module corresponds to one translation
// unit: m.mod.String() renders multiple function definitions each
// separated by a blank line.
type Module struct {
	ctx   llvm.Context
	mod   llvm.Module
	b     llvm.Builder
	funcs map[string]llvm.Value
}

// NewModule creates an empty module named after the source file.
func NewModule(name string) *Module {
	ctx := llvm.NewContext()
	return &Module{
		ctx:   ctx,
		mod:   ctx.NewModule(name),
		b:     ctx.NewBuilder(),
		funcs: make(map[string]llvm.Value),
	}
}

// Dispose releases the underlying LLVM context resources. Call once after
// String() has been used to capture the output text.
func (m *Module) Dispose() {
	m.b.Dispose()
	m.mod.Dispose()
	m.ctx.Dispose()
}

// String renders the whole module as LLVM textual IR.
func (m *Module) String() string {
	return m.mod.String()
}

// DeclareFunction pre-declares fn's header (name, parameter types, return
// type) without a body, so every Call site can resolve its target
// regardless of definition order — the header/body split that lets
// forward references work without a separate resolution pass.
func (m *Module) DeclareFunction(name string, ret ir.DataType, argTypes []ir.DataType) llvm.Value {
	if fn, ok := m.funcs[name]; ok {
		return fn
	}
	params := make([]llvm.Type, len(argTypes))
	for i, a := range argTypes {
		params[i] = llvmType(m.ctx, a)
	}
	ftyp := llvm.FunctionType(llvmType(m.ctx, ret), params, false)
	fn := llvm.AddFunction(m.mod, name, ftyp)
	m.funcs[name] = fn
	return fn
}

// EmitFunction appends f's instruction stream as fn's body. fn must already
// be declared (see DeclareFunction) with the same argument count as
// f.Arguments.
func (m *Module) EmitFunction(f *ir.Function) error {
	fn, ok := m.funcs[f.Name]
	if !ok {
		return errors.Errorf("llvmgen: function %q was never declared", f.Name)
	}

	e := &fnEmitter{
		m:      m,
		f:      f,
		fn:     fn,
		slots:  make(map[string]llvm.Value),
		blocks: make(map[int]llvm.BasicBlock),
	}
	return e.emitBody()
}

// fnEmitter holds the per-function mutable state of a single EmitFunction
// call: the lazily created per-symbol stack slots, the block map keyed by
// instruction index, and the in-flight call argument buffer.
type fnEmitter struct {
	m   *Module
	f   *ir.Function
	fn  llvm.Value
	b   llvm.Builder // convenience alias for m.b
	ctx llvm.Context // convenience alias for m.ctx

	slots  map[string]llvm.Value   // symbol title -> alloca'd slot
	blocks map[int]llvm.BasicBlock // instruction index -> basic block starting there
	args   []llvm.Value           // buffered Push operands awaiting the next Call

	// nextBlockIndex is the instruction index one past whichever
	// instruction emitInstruction is currently emitting. A branch
	// instruction's false path always falls through to this index's block
	// (blockStarts guarantees it exists, since every terminator's
	// successor index is a block start).
	nextBlockIndex int
}

func (e *fnEmitter) emitBody() error {
	e.b = e.m.b
	e.ctx = e.m.ctx

	entry := llvm.AddBasicBlock(e.fn, "entry")
	e.b.SetInsertPointAtEnd(entry)
	e.blocks[0] = entry

	for i, argSym := range e.f.Arguments {
		slot := e.slot(argSym)
		e.b.CreateStore(e.fn.Param(i), slot)
	}

	starts := e.blockStarts()
	sortedStarts := make([]int, 0, len(starts))
	for idx := range starts {
		sortedStarts = append(sortedStarts, idx)
	}
	sort.Ints(sortedStarts)
	for _, idx := range sortedStarts {
		if idx == 0 {
			continue
		}
		name := ""
		if names := e.f.Labels[idx]; len(names) > 0 {
			name = names[0]
		}
		e.blocks[idx] = llvm.AddBasicBlock(e.fn, name)
	}

	for _, idx := range e.f.OrderedIndices() {
		if idx > 0 {
			if bb, ok := e.blocks[idx]; ok {
				if !blockTerminated(e.b.GetInsertBlock()) {
					e.b.CreateBr(bb)
				}
				e.b.SetInsertPointAtEnd(bb)
			}
		}
		e.nextBlockIndex = idx + 1
		if err := e.emitInstruction(e.f.Instructions[idx]); err != nil {
			return errors.Wrapf(err, "function %s, instruction %d", e.f.Name, idx)
		}
	}

	// A label placed one past the last instruction (the loop forms can
	// jump straight out to the function's implicit exit) never gets
	// visited by the loop above; fill it with the same implicit return
	// ensureTerminated would have synthesized.
	endIdx := len(e.f.Instructions)
	if bb, ok := e.blocks[endIdx]; ok && !blockTerminated(bb) {
		e.b.SetInsertPointAtEnd(bb)
		if e.f.ReturnType.Raw == ir.Void {
			e.b.CreateRetVoid()
		} else {
			e.b.CreateRet(llvm.ConstInt(llvmType(e.ctx, e.f.ReturnType), 0, e.f.ReturnType.Signed()))
		}
	}
	return nil
}

// blockStarts returns every instruction index that begins a basic block:
// index 0, every index carrying a label, and every index immediately after
// a terminator (LLVM requires a fresh block there even without a label).
func (e *fnEmitter) blockStarts() map[int]bool {
	starts := map[int]bool{0: true}
	for _, idx := range e.f.OrderedIndices() {
		if e.f.Instructions[idx].Op.IsTerminator() {
			starts[idx+1] = true
		}
	}
	for idx := range e.f.Labels {
		starts[idx] = true
	}
	return starts
}

// blockTerminated reports whether bb's last instruction is already a
// terminator, so emitBody can skip an otherwise-redundant fallthrough br.
func blockTerminated(bb llvm.BasicBlock) bool {
	last := bb.LastInstruction()
	return !last.IsNil() && !last.IsATerminatorInst().IsNil()
}

// slot returns sym's stack slot, creating it with a fresh alloca at the
// current insertion point on first use.
func (e *fnEmitter) slot(sym ir.Symbol) llvm.Value {
	if v, ok := e.slots[sym.Title]; ok {
		return v
	}
	v := e.b.CreateAlloca(llvmType(e.ctx, sym.Datatype), sym.Title)
	e.slots[sym.Title] = v
	return v
}

// blockFor resolves a label name to its basic block.
func (e *fnEmitter) blockFor(name string) (llvm.BasicBlock, error) {
	for idx, names := range e.f.Labels {
		for _, n := range names {
			if n == name {
				return e.blocks[idx], nil
			}
		}
	}
	return llvm.BasicBlock{}, errors.Errorf("label %q not found", name)
}

// operand renders v as an LLVM value: a Literal becomes a constant, a
// Symbol becomes the implicit load of its slot.
func (e *fnEmitter) operand(v ir.Value) (llvm.Value, error) {
	switch t := v.(type) {
	case ir.Symbol:
		return e.b.CreateLoad(e.slot(t), ""), nil
	case ir.Literal:
		return llvm.ConstInt(llvmType(e.ctx, t.Datatype), uint64(t.Int), t.Datatype.Signed()), nil
	default:
		return llvm.Value{}, errors.Errorf("value %v cannot be used as an operand", v)
	}
}

// storeDest stores val into dst: into dst's own slot normally, or through
// the pointer dst's slot holds when dst.IsRef (the uniform mechanism
// `*p = x` and `a[i] = x` both rely on).
func (e *fnEmitter) storeDest(dst ir.Value, val llvm.Value) error {
	sym, ok := dst.(ir.Symbol)
	if !ok {
		return errors.Errorf("invalid assignment destination %v", dst)
	}
	slot := e.slot(sym)
	if sym.Datatype.IsRef {
		ptr := e.b.CreateLoad(slot, "")
		e.b.CreateStore(val, ptr)
		return nil
	}
	e.b.CreateStore(val, slot)
	return nil
}

func (e *fnEmitter) emitInstruction(instr ir.Instruction) error {
	op := instr.Op
	switch {
	case op == ir.Nop:
		return nil
	case op == ir.Alloc:
		sym, ok := instr.Args[0].(ir.Symbol)
		if !ok {
			return errors.New("alloc: destination is not a symbol")
		}
		e.slot(sym)
		return nil
	case op == ir.Mov:
		src, err := e.operand(instr.Args[1])
		if err != nil {
			return err
		}
		return e.storeDest(instr.Args[0], src)
	case op == ir.Ret:
		if len(instr.Args) == 0 {
			e.b.CreateRetVoid()
			return nil
		}
		v, err := e.operand(instr.Args[0])
		if err != nil {
			return err
		}
		e.b.CreateRet(v)
		return nil
	case op == ir.Jmp:
		lbl, ok := instr.Args[0].(ir.Label)
		if !ok {
			return errors.New("jmp: target is not a label")
		}
		bb, err := e.blockFor(lbl.Name)
		if err != nil {
			return err
		}
		e.b.CreateBr(bb)
		return nil
	case op == ir.Ref:
		sym, ok := instr.Args[1].(ir.Symbol)
		if !ok {
			return errors.New("ref: operand is not a symbol")
		}
		return e.storeDest(instr.Args[0], e.slot(sym))
	case op == ir.Deref:
		ptr, err := e.operand(instr.Args[1])
		if err != nil {
			return err
		}
		loaded := e.b.CreateLoad(ptr, "")
		return e.storeDest(instr.Args[0], loaded)
	case op == ir.Cast:
		return e.emitCast(instr)
	case op == ir.Push:
		v, err := e.operand(instr.Args[0])
		if err != nil {
			return err
		}
		e.args = append(e.args, v)
		return nil
	case op == ir.Call:
		return e.emitCall(instr)
	case op == ir.Array:
		return e.emitArray(instr)
	case op.IsArithmetic():
		return e.emitArithmetic(instr)
	case op.IsCompare():
		return e.emitCompare(instr)
	case op.IsBranch():
		return e.emitBranch(instr)
	default:
		return errors.Errorf("unhandled opcode %s", op)
	}
}

func (e *fnEmitter) emitArithmetic(instr ir.Instruction) error {
	a, err := e.operand(instr.Args[1])
	if err != nil {
		return err
	}
	c, err := e.operand(instr.Args[2])
	if err != nil {
		return err
	}
	dt, _ := ir.ValueType(instr.Args[1])
	res := buildArithmetic(e.b, instr.Op, a, c, dt.Signed())
	return e.storeDest(instr.Args[0], res)
}

func (e *fnEmitter) emitCompare(instr ir.Instruction) error {
	a, err := e.operand(instr.Args[1])
	if err != nil {
		return err
	}
	c, err := e.operand(instr.Args[2])
	if err != nil {
		return err
	}
	dt, _ := ir.ValueType(instr.Args[1])
	cmp := e.b.CreateICmp(icmpPredicate(instr.Op, dt.Signed()), a, c, "")
	dstType, _ := ir.ValueType(instr.Args[0])
	ext := e.b.CreateZExt(cmp, llvmType(e.ctx, dstType), "")
	return e.storeDest(instr.Args[0], ext)
}

// emitBranch lowers a Beq/Bne/... instruction: unlike every other opcode,
// branches carry no destination (Args[0] and Args[1] are the two compared
// operands, Args[2] the taken-branch label) — they only compare and jump.
func (e *fnEmitter) emitBranch(instr ir.Instruction) error {
	a, err := e.operand(instr.Args[0])
	if err != nil {
		return err
	}
	c, err := e.operand(instr.Args[1])
	if err != nil {
		return err
	}
	lbl, ok := instr.Args[2].(ir.Label)
	if !ok {
		return errors.New("branch: third operand is not a label")
	}
	trueBlock, err := e.blockFor(lbl.Name)
	if err != nil {
		return err
	}
	falseBlock, ok := e.blocks[e.nextBlockIndex]
	if !ok {
		return errors.New("branch: no fallthrough block for false path")
	}
	dt, _ := ir.ValueType(instr.Args[0])
	cmp := e.b.CreateICmp(icmpPredicate(instr.Op, dt.Signed()), a, c, "")
	e.b.CreateCondBr(cmp, trueBlock, falseBlock)
	return nil
}

func (e *fnEmitter) emitCast(instr ir.Instruction) error {
	dstSym, ok := instr.Args[0].(ir.Symbol)
	if !ok {
		return errors.New("cast: destination is not a symbol")
	}
	srcVal, err := e.operand(instr.Args[1])
	if err != nil {
		return err
	}
	srcType, _ := ir.ValueType(instr.Args[1])
	dstType := dstSym.Datatype
	llDst := llvmType(e.ctx, dstType)

	var result llvm.Value
	switch {
	case srcType.Equal(dstType):
		result = srcVal
	case srcType.PtrDepth > 0 && dstType.PtrDepth > 0:
		result = e.b.CreateBitCast(srcVal, llDst, "")
	case srcType.PtrDepth > 0 && dstType.PtrDepth == 0:
		result = e.b.CreatePtrToInt(srcVal, llDst, "")
	case srcType.PtrDepth == 0 && dstType.PtrDepth > 0:
		result = e.b.CreateIntToPtr(srcVal, llDst, "")
	default:
		srcBits, dstBits := srcType.ByteSize()*8, dstType.ByteSize()*8
		switch {
		case dstBits < srcBits:
			result = e.b.CreateTrunc(srcVal, llDst, "")
		case dstBits > srcBits && srcType.Signed():
			result = e.b.CreateSExt(srcVal, llDst, "")
		case dstBits > srcBits:
			result = e.b.CreateZExt(srcVal, llDst, "")
		default:
			result = srcVal
		}
	}
	return e.storeDest(instr.Args[0], result)
}

func (e *fnEmitter) emitArray(instr ir.Instruction) error {
	base, err := e.operand(instr.Args[1])
	if err != nil {
		return err
	}
	idx, err := e.operand(instr.Args[2])
	if err != nil {
		return err
	}
	addr := e.b.CreateGEP(base, []llvm.Value{idx}, "")

	dstSym, ok := instr.Args[0].(ir.Symbol)
	if !ok {
		return errors.New("array: destination is not a symbol")
	}
	if dstSym.Datatype.IsRef {
		// Address-only form, used as an assignment target (`a[i] = x`):
		// store the computed pointer itself.
		e.b.CreateStore(addr, e.slot(dstSym))
		return nil
	}
	loaded := e.b.CreateLoad(addr, "")
	return e.storeDest(instr.Args[0], loaded)
}

func (e *fnEmitter) emitCall(instr ir.Instruction) error {
	lbl, ok := instr.Args[1].(ir.Label)
	if !ok {
		return errors.New("call: target is not a label")
	}
	fn, ok := e.m.funcs[lbl.Name]
	if !ok {
		return errors.Errorf("call to undeclared function %q", lbl.Name)
	}
	result := e.b.CreateCall(fn, e.args, "")
	e.args = nil

	dstSym, ok := instr.Args[0].(ir.Symbol)
	if !ok {
		return errors.New("call: destination is not a symbol")
	}
	if dstSym.Datatype.Raw == ir.Void {
		return nil
	}
	return e.storeDest(instr.Args[0], result)
}
