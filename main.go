package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/slc-lang/slc/compiler"
	"github.com/slc-lang/slc/lexer"
	"github.com/slc-lang/slc/parser"
	"github.com/slc-lang/slc/sema"
	"tinygo.org/x/go-llvm"
)

const (
	exitOK      = 0
	exitError   = 1 // usage, semantic, or IR errors
	exitSystem  = 2 // I/O or child-process failures
	runtimeLib  = "slc_runtime"
	YML_SUFFIX  = ".yml"
	IR_SUFFIX   = ".ll"
	ASM_SUFFIX  = ".s"
	LOCK_SUFFIX = ".lock"
)

func usage(prog string) {
	fmt.Fprintf(os.Stderr, "Invalid args.\n")
	fmt.Fprintf(os.Stderr, "Usage:\n%s [file]:\t\t create llvm intermediate\n", prog)
	fmt.Fprintf(os.Stderr, "%s [file] -o [output]:\t\t compile to executable\n", prog)
	fmt.Fprintf(os.Stderr, "%s [file] -o [output] --gcc-opts [opts]*:\t compile to executable, pass anything after gcc opts to gcc\n", prog)
}

// parseArgs accepts the three CLI forms: bare input, input with -o output,
// and input with -o output plus trailing gcc options.
func parseArgs(args []string) (input, output string, gccOpts []string, ok bool) {
	switch {
	case len(args) == 2:
		return args[1], "", nil, true
	case len(args) == 4 && args[2] == "-o":
		return args[1], args[3], nil, true
	case len(args) > 5 && args[2] == "-o" && args[4] == "--gcc-opts":
		return args[1], args[3], args[5:], true
	}
	return "", "", nil, false
}

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	input, output, gccOpts, ok := parseArgs(args)
	if !ok {
		usage(args[0])
		return exitError
	}

	source, err := os.ReadFile(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot read input from '%s'.\n", input)
		return exitSystem
	}

	l := lexer.New(string(source))
	p := parser.New(l)
	root := p.Parse()
	if errs := p.Errors(); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "%s: %s\n", input, e)
		}
		return exitError
	}

	// Concurrent invocations on the same input would interleave partial
	// artifact writes; hold a file lock for the emission phase.
	fileLock := flock.New(input + LOCK_SUFFIX)
	if err := fileLock.Lock(); err != nil {
		fmt.Fprintf(os.Stderr, "Cannot lock '%s': %v\n", input+LOCK_SUFFIX, err)
		return exitSystem
	}
	defer fileLock.Unlock()

	dump, err := root.Dump()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitSystem
	}
	if err := os.WriteFile(input+YML_SUFFIX, []byte(dump), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing AST dump to %s: %v\n", input+YML_SUFFIX, err)
		return exitSystem
	}

	a := sema.NewAnalyzer()
	if err := a.Analyze(root); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}

	ctx := llvm.NewContext()
	defer ctx.Dispose()
	c := compiler.NewCompiler(ctx, filepath.Base(input))
	if err := c.Compile(root); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}
	if err := c.Verify(); err != nil {
		fmt.Fprintf(os.Stderr, "module verification failed: %v\n", err)
		return exitError
	}

	llPath := input + IR_SUFFIX
	if err := os.WriteFile(llPath, []byte(c.GenerateIR()), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing IR to %s: %v\n", llPath, err)
		return exitSystem
	}

	if output == "" {
		return exitOK
	}
	return build(llPath, input+ASM_SUFFIX, output, gccOpts)
}

// build hands the emitted IR to the native toolchain: llc produces the
// assembly next to the input, gcc links it against the runtime library.
func build(llPath, asmPath, output string, gccOpts []string) int {
	llcCmd := exec.Command("llc", llPath, "-o", asmPath)
	if out, err := llcCmd.CombinedOutput(); err != nil {
		fmt.Fprintf(os.Stderr, "llc failed: %v\n%s", err, string(out))
		return exitSystem
	}

	gccArgs := []string{asmPath, "-l" + runtimeLib}
	gccArgs = append(gccArgs, gccOpts...)
	gccArgs = append(gccArgs, "-o", output)
	gccCmd := exec.Command("gcc", gccArgs...)
	if out, err := gccCmd.CombinedOutput(); err != nil {
		fmt.Fprintf(os.Stderr, "linking failed: %v\n%s", err, string(out))
		return exitSystem
	}
	return exitOK
}
