package main

import (
	"fmt"
	"os"
	"sync"

	"clc/src/ast"
	"clc/src/ir"
	"clc/src/ir/llvmgen"
	"clc/src/parser"
	"clc/src/token"
	"clc/src/util"
)

// run begins reading source code and executes compiler stages. Behaviour is
// defined by the util.Options structure.
func run(opt util.Options) error {
	src, err := util.ReadSource(opt)
	if err != nil {
		return fmt.Errorf("could not read source code: %s", err)
	}

	toks, err := token.Scan(opt.Src, src)
	if err != nil {
		return fmt.Errorf("lex error: %s", err)
	}

	tree, err := parser.Parse(toks)
	if err != nil {
		return fmt.Errorf("parse error: %s", err)
	}

	if opt.Tree {
		tree.Print(0)
	}

	sigs, err := ir.FunctionSignatures(tree)
	if err != nil {
		return fmt.Errorf("semantic error: %s", err)
	}

	var funcs []*ir.Function
	for _, fn := range tree.Children {
		if fn.Kind != ast.Function {
			continue
		}
		f, err := ir.BuildFunction(fn, sigs)
		if err != nil {
			return fmt.Errorf("semantic error: %s", err)
		}
		f.CorrectTypes()
		f.Optimize(optLevel(opt.OptLevel), !opt.NoCompress)
		if err := f.Validate(); err != nil {
			return fmt.Errorf("internal error: %s", err)
		}
		funcs = append(funcs, f)
	}

	w := util.NewWriter()
	defer w.Close()

	switch opt.Mode {
	case util.IntermediateRepresentation:
		for _, f := range funcs {
			w.WriteString(f.String())
			w.WriteString("\n\n")
		}
	case util.LLVM:
		mod := llvmgen.NewModule(opt.Src)
		defer mod.Dispose()
		for _, f := range funcs {
			argTypes := make([]ir.DataType, len(f.Arguments))
			for i, a := range f.Arguments {
				argTypes[i] = a.Datatype
			}
			mod.DeclareFunction(f.Name, f.ReturnType, argTypes)
		}
		for _, f := range funcs {
			if err := mod.EmitFunction(f); err != nil {
				return fmt.Errorf("codegen error: %s", err)
			}
		}
		w.WriteString(mod.String())
	}
	return nil
}

// optLevel maps the CLI's -O integer onto the optimizer's level enum:
// level 0 is identity, level 1 folds constants, level 2 and up also threads
// jumps and removes dead code.
func optLevel(n int) ir.OptLevel {
	switch {
	case n <= 0:
		return ir.OptNone
	case n == 1:
		return ir.OptConstantFold
	default:
		return ir.OptFull
	}
}

func main() {
	opt, err := util.ParseArgs()
	if err != nil {
		fmt.Printf("Command line argument error: %s\n", err)
		os.Exit(1)
	}

	wg := sync.WaitGroup{}
	f, err := util.OpenOutput(opt)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if f != nil {
		defer f.Close()
	}
	util.ListenWrite(f, &wg)
	defer util.Close()

	if err := run(opt); err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}

	wg.Wait()
}
