package compiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/nalgeon/be"
)

// generateSource runs the front end and code generation without verification
// so tests can inspect the program annotations too.
func generateSource(t *testing.T, src string) (*Program, *ir.Module) {
	t.Helper()
	prog, err := Parse([]byte(src))
	be.Err(t, err, nil)
	ctx := NewContext()
	be.Err(t, Analyze(ctx, prog), nil)
	m, err := Generate(ctx, prog)
	be.Err(t, err, nil)
	be.Err(t, Verify(m), nil)
	return prog, m
}

func findFunc(t *testing.T, m *ir.Module, name string) *ir.Func {
	t.Helper()
	for _, f := range m.Funcs {
		if f.Name() == name {
			return f
		}
	}
	t.Fatalf("function %s not found", name)
	return nil
}

// predecessors counts the terminators in f that can jump to target.
func predecessors(f *ir.Func, target *ir.Block) int {
	n := 0
	for _, b := range f.Blocks {
		targets, _ := successors(b.Term)
		for _, s := range targets {
			if s == target {
				n++
			}
		}
	}
	return n
}

func TestGenerateSimpleFunction(t *testing.T) {
	_, m := generateSource(t, "def f(x: int) -> int { return x + 1; }")
	f := findFunc(t, m, "f")
	be.Equal(t, len(f.Blocks), 1)
	be.Equal(t, f.Sig.RetType, types.Type(types.I64))
	be.Equal(t, OpcodeCounts(f), map[string]int{
		"alloca": 1,
		"store":  1,
		"load":   1,
		"add":    1,
		"ret":    1,
	})
}

func TestGenerateMainReturnsZero(t *testing.T) {
	_, m := generateSource(t, "x: int = 2;\nprint(x * 3);")
	main := findFunc(t, m, "main")
	be.Equal(t, main.Sig.RetType, types.Type(types.I32))
	be.Equal(t, len(main.Blocks), 1)

	ret, ok := main.Blocks[0].Term.(*ir.TermRet)
	be.True(t, ok)
	be.True(t, strings.Contains(ret.X.Ident(), "0"))

	var names []string
	for _, gv := range m.Globals {
		names = append(names, gv.Name())
	}
	be.True(t, len(names) >= 1)
	be.Equal(t, names[0], "g.x")

	counts := OpcodeCounts(main)
	be.Equal(t, counts["alloca"], 0)
	be.Equal(t, counts["mul"], 1)
	be.Equal(t, counts["call"], 1)
}

func TestGenerateIfElseSingleMerge(t *testing.T) {
	prog, m := generateSource(t, `
def g(a: bool) -> int {
    r: int = 0;
    if (a) { r = 1; } else { r = 2; }
    return r;
}`)
	f := findFunc(t, m, "g")
	be.Equal(t, len(f.Blocks), 4)

	node := prog.Body[0].(*FuncDef).Body[1].(*If)
	be.True(t, node.MergeBlock != NoBlock)

	var merges []*ir.Block
	for _, b := range f.Blocks {
		if strings.HasPrefix(b.Name(), "if.end") {
			merges = append(merges, b)
		}
	}
	be.Equal(t, len(merges), 1)
	be.Equal(t, predecessors(f, merges[0]), 2)
	be.Equal(t, OpcodeCounts(f)["br"], 3)
}

func TestGenerateIfWithoutElse(t *testing.T) {
	_, m := generateSource(t, `
def h(a: bool) {
    if (a) { print(1); }
    print(2);
}`)
	f := findFunc(t, m, "h")
	be.Equal(t, len(f.Blocks), 3)
	merge := f.Blocks[2]
	be.True(t, strings.HasPrefix(merge.Name(), "if.end"))
	be.Equal(t, predecessors(f, merge), 2)
}

func TestGenerateBothArmsReturn(t *testing.T) {
	_, m := generateSource(t, `
def sign(x: int) -> int {
    if (x < 0) { return -1; } else { return 1; }
}`)
	f := findFunc(t, m, "sign")
	counts := OpcodeCounts(f)
	be.Equal(t, counts["ret"], 2)
	be.Equal(t, counts["unreachable"], 1)
}

func TestGenerateDeadCodeAfterReturn(t *testing.T) {
	_, m := generateSource(t, `
def f() -> int {
    return 1;
    print(2);
}`)
	counts := OpcodeCounts(findFunc(t, m, "f"))
	be.Equal(t, counts["call"], 0)
	be.Equal(t, counts["ret"], 1)
}

func TestGenerateLoops(t *testing.T) {
	prog, m := generateSource(t, `
def count(n: int) -> int {
    total: int = 0;
    i: int = 0;
    while (i < n) { i = i + 1; }
    for (j: int = 0; j < n; j = j + 1) { total = total + j; }
    return total;
}`)
	fn := prog.Body[0].(*FuncDef)
	be.True(t, fn.Body[2].(*While).MergeBlock != NoBlock)
	be.True(t, fn.Body[3].(*For).MergeBlock != NoBlock)

	f := findFunc(t, m, "count")
	// entry, while.cond/body/end, for.cond/body/step/end
	be.Equal(t, len(f.Blocks), 8)
	counts := OpcodeCounts(f)
	be.Equal(t, counts["alloca"], 4)
	be.Equal(t, counts["icmp"], 2)
}

func TestGenerateAllocasAtEntryHead(t *testing.T) {
	_, m := generateSource(t, `
def f(a: int) -> int {
    b: int = a;
    if (a > 0) { c: int = 1; b = c; }
    return b;
}`)
	f := findFunc(t, m, "f")
	entry := f.Blocks[0]
	for i := 0; i < 3; i++ {
		_, ok := entry.Insts[i].(*ir.InstAlloca)
		be.True(t, ok)
	}
	_, ok := entry.Insts[3].(*ir.InstAlloca)
	be.Equal(t, ok, false)
}

func TestGenerateShadowedLocalsGetDistinctNames(t *testing.T) {
	_, m := generateSource(t, `
def f() {
    x: int = 1;
    if (true) { x: int = 2; print(x); }
}`)
	entry := findFunc(t, m, "f").Blocks[0]
	be.Equal(t, entry.Insts[0].(*ir.InstAlloca).Name(), "x.addr")
	be.Equal(t, entry.Insts[1].(*ir.InstAlloca).Name(), "x.addr.1")
}

func TestGenerateIntToFloat(t *testing.T) {
	_, m := generateSource(t, `
def half(x: float) -> float { return x / 2; }
y: float = half(3);`)
	be.Equal(t, OpcodeCounts(findFunc(t, m, "half"))["sitofp"], 1)
	be.Equal(t, OpcodeCounts(findFunc(t, m, "half"))["fdiv"], 1)
	be.Equal(t, OpcodeCounts(findFunc(t, m, "main"))["sitofp"], 1)
}

func TestGenerateStringComparison(t *testing.T) {
	_, m := generateSource(t, `b: bool = "a" == "b";`)
	strcmp := findFunc(t, m, "strcmp")
	be.Equal(t, len(strcmp.Blocks), 0)
	counts := OpcodeCounts(findFunc(t, m, "main"))
	be.Equal(t, counts["call"], 1)
	be.Equal(t, counts["icmp"], 1)
}

func TestGeneratePrint(t *testing.T) {
	_, m := generateSource(t, `print(true); print('c'); print("s"); print("s");`)
	printf := findFunc(t, m, "printf")
	be.True(t, printf.Sig.Variadic)

	counts := OpcodeCounts(findFunc(t, m, "main"))
	be.Equal(t, counts["call"], 4)
	be.Equal(t, counts["zext"], 2)

	// Formats for bool, char and string, plus the one shared literal.
	be.Equal(t, len(m.Globals), 4)
}

func TestGenerateAggregates(t *testing.T) {
	_, m := generateSource(t, `
include list;
include graph;
class Point { x: int; y: float; }
def norm(xs: list<int>) -> int {
    p: Point;
    p.x = xs.at(0);
    p.y = 1;
    return p.x + xs.size;
}
nums: list<int> = [1, 2, 3];
print(norm(nums));
g: graph<char>;
g.add_edge('a', 'b');`)

	for _, name := range []string{"pyrx_list_new", "pyrx_list_add_int", "pyrx_list_at_int", "pyrx_list_size", "pyrx_graph_new", "pyrx_graph_add_edge_char"} {
		f := findFunc(t, m, name)
		be.Equal(t, len(f.Blocks), 0)
	}
	be.Equal(t, len(m.TypeDefs), 1)
	be.Equal(t, m.TypeDefs[0].Name(), "Point")

	counts := OpcodeCounts(findFunc(t, m, "norm"))
	be.Equal(t, counts["getelementptr"], 3)
	be.Equal(t, counts["call"], 2)

	main := OpcodeCounts(findFunc(t, m, "main"))
	// list_new, three adds, norm, printf, graph_new, add_edge
	be.Equal(t, main["call"], 8)
}

func TestGenerateRequiresAnalysis(t *testing.T) {
	prog, err := Parse([]byte("print(1);"))
	be.Err(t, err, nil)
	_, err = Generate(NewContext(), prog)
	var ie *InternalError
	be.True(t, errors.As(err, &ie))
	be.True(t, strings.Contains(err.Error(), "not been analyzed"))
}

func TestGenerateRequiresTheAnalyzedProgram(t *testing.T) {
	analyzed, err := Parse([]byte("print(1);"))
	be.Err(t, err, nil)
	other, err := Parse([]byte("print(y);"))
	be.Err(t, err, nil)
	ctx := NewContext()
	be.Err(t, Analyze(ctx, analyzed), nil)

	_, err = Generate(ctx, other)
	var ie *InternalError
	be.True(t, errors.As(err, &ie))
	be.True(t, strings.Contains(err.Error(), "other than the one analyzed"))

	_, err = Generate(ctx, analyzed)
	be.Err(t, err, nil)
}

func TestGenerateAfterFailedAnalysis(t *testing.T) {
	prog, err := Parse([]byte("print(y);"))
	be.Err(t, err, nil)
	ctx := NewContext()
	be.True(t, Analyze(ctx, prog) != nil)
	_, err = Generate(ctx, prog)
	var ie *InternalError
	be.True(t, errors.As(err, &ie))
}

func TestCompileSource(t *testing.T) {
	m, err := CompileSource([]byte(`
def fib(n: int) -> int {
    if (n < 2) { return n; }
    return fib(n - 1) + fib(n - 2);
}
print(fib(10));`))
	be.Err(t, err, nil)
	be.True(t, strings.Contains(m.String(), "define i64 @fib(i64 %n)"))

	_, err = CompileSource([]byte("x: int = 'c';"))
	var se *SemanticError
	be.True(t, errors.As(err, &se))
	be.Equal(t, se.Kind, ErrTypeMismatch)

	_, err = CompileSource([]byte("x: int = ;"))
	var syn *SyntaxError
	be.True(t, errors.As(err, &syn))
}

func TestAssignabilityAtEverySite(t *testing.T) {
	tests := []struct {
		site   string
		widen  string
		fn     string // function holding the sitofp
		narrow string
		kind   ErrorKind
	}{
		{
			"definition",
			"x: float = 1;", "main",
			"x: int = 1.5;", ErrTypeMismatch,
		},
		{
			"assignment",
			"x: float = 0.5; x = 1;", "main",
			"x: int = 0; x = 1.5;", ErrTypeMismatch,
		},
		{
			"return",
			"def f() -> float { return 1; }", "f",
			"def f() -> int { return 1.5; }", ErrReturnTypeMismatch,
		},
		{
			"argument",
			"def f(x: float) { } f(1);", "main",
			"def f(x: int) { } f(1.5);", ErrArgumentTypeMismatch,
		},
	}
	for _, test := range tests {
		t.Run(test.site, func(t *testing.T) {
			_, m := generateSource(t, test.widen)
			be.Equal(t, OpcodeCounts(findFunc(t, m, test.fn))["sitofp"], 1)

			_, _, err := analyzeSource(t, test.narrow)
			be.Equal(t, semanticError(t, err).Kind, test.kind)
		})
	}
}

func TestCompileRejectsVoidReturnValue(t *testing.T) {
	m, err := CompileSource([]byte("def g() { } def f() { return g(); } f();"))
	be.True(t, m == nil)
	be.Equal(t, semanticError(t, err).Kind, ErrReturnTypeMismatch)
}

func TestGenerateCharComparisonIsUnsigned(t *testing.T) {
	_, m := generateSource(t, "def f(a: char, b: char) -> bool { return a < b; }\ndef g(a: int, b: int) -> bool { return a < b; }")
	icmpPred := func(name string) enum.IPred {
		for _, b := range findFunc(t, m, name).Blocks {
			for _, inst := range b.Insts {
				if cmp, ok := inst.(*ir.InstICmp); ok {
					return cmp.Pred
				}
			}
		}
		t.Fatalf("no icmp in %s", name)
		return 0
	}
	be.Equal(t, icmpPred("f"), enum.IPredULT)
	be.Equal(t, icmpPred("g"), enum.IPredSLT)
}
