package ir

import (
	"fmt"

	"github.com/pkg/errors"
)

// Validate checks the invariants a fully built Function must hold: dense
// instruction indices, every branch/jump target resolves to a placed
// label, every Symbol operand is present in the symbol table, and no
// Unknown-typed Literal survives past type correction. It runs as its own
// dedicated invariant-checking pass, separate from construction.
func (f *Function) Validate() error {
	if err := f.validateDenseIndices(); err != nil {
		return err
	}
	labels := f.collectLabels()
	for _, idx := range f.orderedIndices() {
		instr := f.Instructions[idx]
		if err := f.validateInstruction(idx, instr, labels); err != nil {
			return err
		}
	}
	return nil
}

func (f *Function) validateDenseIndices() error {
	for i := 0; i < f.nextIndex; i++ {
		if _, ok := f.Instructions[i]; !ok {
			return errors.Errorf("function %s: instruction index %d is missing: stream is not dense", f.Name, i)
		}
	}
	if len(f.Instructions) != f.nextIndex {
		return errors.Errorf("function %s: instruction map has %d entries, want %d", f.Name, len(f.Instructions), f.nextIndex)
	}
	return nil
}

// collectLabels returns the set of every label name placed anywhere in f,
// including at the implicit exit index.
func (f *Function) collectLabels() map[string]bool {
	set := make(map[string]bool)
	for _, names := range f.Labels {
		for _, n := range names {
			set[n] = true
		}
	}
	return set
}

func (f *Function) validateInstruction(idx int, instr Instruction, labels map[string]bool) error {
	for _, arg := range instr.Args {
		switch v := arg.(type) {
		case Symbol:
			if _, ok := f.SymbolTable[v.Title]; !ok {
				return errors.Errorf("function %s, instruction %d: symbol %%%s used but never declared", f.Name, idx, v.Title)
			}
		case Literal:
			if v.Datatype.Raw == Unknown {
				return errors.Errorf("function %s, instruction %d: literal %d still has unknown type after type correction", f.Name, idx, v.Int)
			}
		case Label:
			if !labels[v.Name] {
				return errors.Errorf("function %s, instruction %d: branch target %s does not resolve to any placed label", f.Name, idx, v.Name)
			}
		}
	}
	if instr.Op.IsBranch() && len(instr.Args) != 3 {
		return errors.Errorf("function %s, instruction %d: %s expects 2 operands and a label target, got %d args", f.Name, idx, instr.Op, len(instr.Args))
	}
	return nil
}

// ValidationError wraps a Validate failure with the function name, so
// callers combining several functions' results can tell them apart without
// re-parsing the message.
type ValidationError struct {
	Function string
	Err      error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Function, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
