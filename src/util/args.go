package util

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
)

// CodegenMode selects what the driver emits: the three-address IR listing
// or LLVM textual IR.
type CodegenMode int

const (
	// LLVM renders the function via the LLVM textual emitter. Default mode.
	LLVM CodegenMode = iota
	// IntermediateRepresentation prints the three-address IR listing,
	// skipping LLVM entirely.
	IntermediateRepresentation
)

// Options holds the parsed command line flag set:
// -o, -O, -g, --tree/-T, --stdout, --nocomp.
type Options struct {
	Src      string      // Path to source file, the lone positional argument.
	Out      string       // -o: path to output file. Defaults to "out.ll" when unset and --stdout is not given.
	OptLevel int          // -O: optimization level (0, 1, or 2).
	Mode     CodegenMode  // -g: codegen mode.
	Tree     bool         // --tree/-T: dump the parse tree before lowering.
	Stdout   bool         // --stdout: write output to stdout instead of a file.
	NoCompress bool       // --nocomp: disable the optimizer's compress pass.
}

const appVersion = "clc 1.0"

// ParseArgs parses os.Args[1:] into an Options with a hand-rolled
// switch-over-os.Args loop, no flag library.
func ParseArgs() (Options, error) {
	opt := Options{Out: "out.ll"}
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-h", "--h", "-help", "--help":
			printHelp()
			os.Exit(0)
		case "-v", "--v", "-version", "--version":
			fmt.Println(appVersion)
			os.Exit(0)
		case "-o":
			if i+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i])
			}
			if strings.HasPrefix(args[i+1], "-") {
				return opt, fmt.Errorf("expected path to output file, got new flag %s", args[i+1])
			}
			opt.Out = args[i+1]
			i++
		case "-O":
			if i+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i])
			}
			lvl, err := strconv.Atoi(args[i+1])
			if err != nil || lvl < 0 || lvl > 2 {
				return opt, fmt.Errorf("-O expects an optimization level in [0, 2], got: %s", args[i+1])
			}
			opt.OptLevel = lvl
			i++
		case "-g":
			if i+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i])
			}
			switch args[i+1] {
			case "ir":
				opt.Mode = IntermediateRepresentation
			case "llvm":
				opt.Mode = LLVM
			default:
				return opt, fmt.Errorf("unexpected codegen mode: %s (want 'ir' or 'llvm')", args[i+1])
			}
			i++
		case "--tree", "-T":
			opt.Tree = true
		case "--stdout":
			opt.Stdout = true
		case "--nocomp":
			opt.NoCompress = true
		default:
			if strings.HasPrefix(args[i], "-") {
				return opt, fmt.Errorf("unexpected flag: %s", args[i])
			}
			opt.Src = args[i]
		}
	}
	if opt.Src == "" {
		return opt, fmt.Errorf("expected path to source file, got none")
	}
	return opt, nil
}

// printHelp prints a usage message to stdout.
func printHelp() {
	w := tabwriter.NewWriter(os.Stdout, 6, 1, 1, 0, 0)
	_, _ = fmt.Fprintln(w, "-h, -help\tPrints this help message and exits.")
	_, _ = fmt.Fprintln(w, "--h, --help")
	_, _ = fmt.Fprintln(w, "-o <path>\tPath of the output file. Defaults to out.ll.")
	_, _ = fmt.Fprintln(w, "-O <0|1|2>\tOptimization level. Defaults to 0.")
	_, _ = fmt.Fprintln(w, "-g <ir|llvm>\tCodegen mode: three-address IR listing, or LLVM textual IR. Defaults to llvm.")
	_, _ = fmt.Fprintln(w, "--tree, -T\tDump the parse tree before lowering.")
	_, _ = fmt.Fprintln(w, "--stdout\tWrite output to stdout instead of a file.")
	_, _ = fmt.Fprintln(w, "--nocomp\tDisable the optimizer's compress pass.")
	_, _ = fmt.Fprintln(w, "-v, -version\tPrints application version and exits.")
	_, _ = fmt.Fprintln(w, "--v, --version")
	_ = w.Flush()
}
