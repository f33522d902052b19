package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/pyroxene-lang/pyroxene/compiler"
)

const sourceExt = ".pyrx"

func showUsage() {
	fmt.Fprintf(os.Stderr, `Pyroxene - a small statically typed language that compiles to LLVM IR

Usage:
    pyrx <command> [arguments]

Commands:
    build <file>    Compile a .pyrx file to an LLVM IR (.ll) file
    check <file>    Parse and analyze a .pyrx file
    ir <file>       Compile a .pyrx file and print its LLVM IR
    help            Show this help message

Examples:
    pyrx build -o fib.ll examples/fib.pyrx
    pyrx check graph.pyrx
    pyrx ir -v hello.pyrx

Use "pyrx <command> -h" for more information about a command.
`)
}

// newLogger returns the logger handed to the compiler: debug records on
// stderr when verbose, nothing otherwise.
func newLogger(verbose bool) *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// readSource reads a source file, insisting on the .pyrx extension.
func readSource(filename string) ([]byte, error) {
	if filepath.Ext(filename) != sourceExt {
		return nil, fmt.Errorf("%s: source files must have the %s extension", filename, sourceExt)
	}
	return os.ReadFile(filename)
}

// parseFileArgs parses a subcommand's flags and returns its single file
// argument, exiting on misuse.
func parseFileArgs(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func compileFile(filename string, logger *slog.Logger) *ir.Module {
	src, err := readSource(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("compiling", "file", filename, "bytes", len(src))
	m, err := compiler.CompileSource(src, compiler.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s:%v\n", filename, err)
		os.Exit(1)
	}
	return m
}

func buildCommand(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	output := fs.String("o", "", "Output file path (default: <filename>.ll)")
	verbose := fs.Bool("v", false, "Log compilation details to stderr")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pyrx build [-o output] [-v] <file>\n")
		fmt.Fprintf(os.Stderr, "Compile a .pyrx file to an LLVM IR (.ll) file\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	filename := parseFileArgs(fs, args)

	outputFile := *output
	if outputFile == "" {
		outputFile = strings.TrimSuffix(filename, sourceExt) + ".ll"
	}

	m := compileFile(filename, newLogger(*verbose))
	text := m.String()
	if err := os.WriteFile(outputFile, []byte(text), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", outputFile, err)
		os.Exit(1)
	}
	fmt.Printf("Generated %s (%d functions, %d bytes)\n", outputFile, len(m.Funcs), len(text))
}

func irCommand(args []string) {
	fs := flag.NewFlagSet("ir", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Log compilation details to stderr")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pyrx ir [-v] <file>\n")
		fmt.Fprintf(os.Stderr, "Compile a .pyrx file and print its LLVM IR\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	filename := parseFileArgs(fs, args)

	m := compileFile(filename, newLogger(*verbose))
	fmt.Print(m.String())
}

func checkCommand(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Print the AST after a successful check")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pyrx check [-v] <file>\n")
		fmt.Fprintf(os.Stderr, "Parse and analyze a .pyrx file\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	filename := parseFileArgs(fs, args)

	src, err := readSource(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	prog, err := compiler.Parse(src)
	if err != nil {
		fmt.Printf("%s:%v\n", filename, err)
		os.Exit(1)
	}
	ctx := compiler.NewContext(compiler.WithLogger(newLogger(*verbose)))
	if err := compiler.Analyze(ctx, prog); err != nil {
		fmt.Printf("%s:%v\n", filename, err)
		os.Exit(1)
	}

	fmt.Printf("%s: no errors found\n", filename)

	if *verbose {
		fmt.Printf("AST: %s\n", compiler.ToSExpr(prog))
	}
}

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "build":
		buildCommand(args)
	case "check":
		checkCommand(args)
	case "ir":
		irCommand(args)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		showUsage()
		os.Exit(1)
	}
}
