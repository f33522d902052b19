// Command snapshot_tests compiles .pyrx files and prints a Sexy markdown
// document recording their current AST and IR shape, as a starting point for
// new compiler/test documents.
//
//	go run ./scripts examples/*.pyrx > compiler/test/new_test.md
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pyroxene-lang/pyroxene/compiler"
	"github.com/pyroxene-lang/pyroxene/sexy"
)

type Snapshot struct {
	Name       string
	SourceFile string
	Input      string
	AST        string // empty if parsing failed
	IR         string // empty if compilation failed
	Error      string
}

func snapshotSource(name, sourceFile string, src []byte) Snapshot {
	snap := Snapshot{
		Name:       name,
		SourceFile: sourceFile,
		Input:      strings.TrimRight(string(src), "\n"),
	}
	prog, err := compiler.Parse(src)
	if err != nil {
		snap.Error = err.Error()
		return snap
	}
	snap.AST = compiler.ToSExpr(prog)

	m, err := compiler.Compile(prog)
	if err != nil {
		snap.Error = err.Error()
		return snap
	}

	var names []string
	var funcs []*sexy.Node
	for _, f := range m.Funcs {
		if len(f.Blocks) == 0 {
			continue
		}
		counts := compiler.OpcodeCounts(f)
		ops := make([]string, 0, len(counts))
		for op := range counts {
			ops = append(ops, op)
		}
		sort.Strings(ops)

		keys := []string{"blocks"}
		values := []*sexy.Node{sexy.NewNumber(strconv.Itoa(len(f.Blocks)))}
		for _, op := range ops {
			keys = append(keys, op)
			values = append(values, sexy.NewNumber(strconv.Itoa(counts[op])))
		}
		names = append(names, f.Name())
		funcs = append(funcs, sexy.NewMap(keys, values))
	}
	snap.IR = sexy.NewMap(names, funcs).String()
	return snap
}

func snapshotFiles(paths []string) ([]Snapshot, error) {
	var snaps []Snapshot
	for _, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		snaps = append(snaps, snapshotSource(name, path, src))
	}
	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].SourceFile != snaps[j].SourceFile {
			return snaps[i].SourceFile < snaps[j].SourceFile
		}
		return snaps[i].Name < snaps[j].Name
	})
	return snaps, nil
}

// compileErrorText drops the position prefix so the assertion survives
// edits that move code around.
func compileErrorText(msg string) string {
	for i := 0; i < 2; i++ {
		head, rest, ok := strings.Cut(msg, ":")
		if !ok || head == "" || strings.Trim(head, "0123456789") != "" {
			break
		}
		msg = rest
	}
	return strings.TrimSpace(msg)
}

func generateSexyMarkdown(snaps []Snapshot) string {
	var sb strings.Builder
	sb.WriteString("# Snapshot tests\n\n")
	sb.WriteString("Generated from .pyrx sources. Review before committing.\n\n")

	for _, snap := range snaps {
		sb.WriteString(fmt.Sprintf("## Test: %s\n", snap.Name))
		sb.WriteString("```pyrx-program\n")
		sb.WriteString(snap.Input)
		sb.WriteString("\n```\n")
		if snap.AST != "" {
			sb.WriteString("```ast\n")
			sb.WriteString(snap.AST)
			sb.WriteString("\n```\n")
		}
		if snap.IR != "" {
			sb.WriteString("```ir\n")
			sb.WriteString(snap.IR)
			sb.WriteString("\n```\n")
		}
		if snap.Error != "" {
			sb.WriteString("```compile-error\n")
			sb.WriteString(compileErrorText(snap.Error))
			sb.WriteString("\n```\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func main() {
	paths := os.Args[1:]
	if len(paths) == 0 {
		var err error
		paths, err = filepath.Glob("*.pyrx")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	if len(paths) == 0 {
		fmt.Fprintf(os.Stderr, "No .pyrx files to snapshot\n")
		os.Exit(1)
	}

	snaps, err := snapshotFiles(paths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(generateSexyMarkdown(snaps))
}
