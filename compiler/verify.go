package compiler

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// Verify checks the structural well-formedness of a generated module: every
// block of every defined function is terminated, every branch targets a
// block of the same function, and every local operand is defined earlier in
// its block or in a dominating block. Failures are *InternalError.
func Verify(m *ir.Module) error {
	for _, f := range m.Funcs {
		if len(f.Blocks) == 0 {
			continue // external declaration
		}
		if err := verifyFunc(f); err != nil {
			return err
		}
	}
	return nil
}

type defSite struct {
	block int
	index int // -1 for parameters
}

func verifyFunc(f *ir.Func) error {
	name := f.Name()
	fail := func(format string, args ...any) error {
		return &InternalError{Msg: fmt.Sprintf("function %s: ", name) + fmt.Sprintf(format, args...)}
	}

	index := map[*ir.Block]int{}
	for i, b := range f.Blocks {
		index[b] = i
	}
	succs := make([][]int, len(f.Blocks))
	for i, b := range f.Blocks {
		if b.Term == nil {
			return fail("block %d has no terminator", i)
		}
		if ret, ok := b.Term.(*ir.TermRet); ok {
			if err := checkRet(f, i, ret); err != nil {
				return fail("%s", err)
			}
		}
		targets, ok := successors(b.Term)
		if !ok {
			return fail("unsupported terminator %T", b.Term)
		}
		for _, t := range targets {
			j, ok := index[t]
			if t == nil || !ok {
				return fail("block %d branches outside the function", i)
			}
			succs[i] = append(succs[i], j)
		}
	}
	dom, reachable := dominators(succs)

	defs := map[value.Value]defSite{}
	for _, p := range f.Params {
		defs[p] = defSite{block: 0, index: -1}
	}
	for bi, b := range f.Blocks {
		for ii, inst := range b.Insts {
			if v, ok := inst.(value.Value); ok {
				defs[v] = defSite{block: bi, index: ii}
			}
		}
	}

	check := func(bi, ii int, user any, operands []value.Value) error {
		for _, op := range operands {
			if op == nil {
				continue
			}
			site, local := defs[op]
			if !local {
				switch op.(type) {
				case ir.Instruction, *ir.Param:
					return fail("%s in block %d uses a value defined in another function", opcode(user), bi)
				}
				continue
			}
			if site.block == bi {
				if site.index >= ii {
					return fail("%s in block %d uses a value before its definition", opcode(user), bi)
				}
				continue
			}
			if !dom[bi][site.block] {
				return fail("%s in block %d uses a value from block %d, which does not dominate it", opcode(user), bi, site.block)
			}
		}
		return nil
	}

	for bi, b := range f.Blocks {
		if !reachable[bi] {
			continue
		}
		for ii, inst := range b.Insts {
			ops, ok := operands(inst)
			if !ok {
				return fail("unsupported instruction %T", inst)
			}
			if err := check(bi, ii, inst, ops); err != nil {
				return err
			}
		}
		if err := check(bi, len(b.Insts), b.Term, termOperands(b.Term)); err != nil {
			return err
		}
	}
	return nil
}

// checkRet matches a ret against the function's result type.
func checkRet(f *ir.Func, bi int, ret *ir.TermRet) error {
	want := f.Sig.RetType
	switch {
	case ret.X == nil:
		if !types.Equal(want, types.Void) {
			return fmt.Errorf("ret in block %d returns nothing from a function returning %s", bi, want)
		}
	case types.Equal(ret.X.Type(), types.Void):
		return fmt.Errorf("ret in block %d returns a void value", bi)
	case !types.Equal(ret.X.Type(), want):
		return fmt.Errorf("ret in block %d returns %s from a function returning %s", bi, ret.X.Type(), want)
	}
	return nil
}

// asBlock extracts a branch target.
func asBlock(v any) *ir.Block {
	b, _ := v.(*ir.Block)
	return b
}

func successors(term ir.Terminator) ([]*ir.Block, bool) {
	switch t := term.(type) {
	case *ir.TermRet, *ir.TermUnreachable:
		return nil, true
	case *ir.TermBr:
		return []*ir.Block{asBlock(t.Target)}, true
	case *ir.TermCondBr:
		return []*ir.Block{asBlock(t.TargetTrue), asBlock(t.TargetFalse)}, true
	}
	return nil, false
}

// dominators computes, for each block, the set of blocks dominating it.
// dom[b][d] is true if d dominates b. Block 0 is the entry.
func dominators(succs [][]int) (dom [][]bool, reachable []bool) {
	n := len(succs)
	reachable = make([]bool, n)
	preds := make([][]int, n)
	stack := []int{0}
	reachable[0] = true
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range succs[b] {
			preds[s] = append(preds[s], b)
			if !reachable[s] {
				reachable[s] = true
				stack = append(stack, s)
			}
		}
	}

	dom = make([][]bool, n)
	for b := range dom {
		dom[b] = make([]bool, n)
		for d := range dom[b] {
			dom[b][d] = b != 0 || d == 0
		}
	}
	for changed := true; changed; {
		changed = false
		for b := 1; b < n; b++ {
			if !reachable[b] {
				continue
			}
			for d := 0; d < n; d++ {
				in := d == b
				if !in {
					in = true
					for _, p := range preds[b] {
						if !dom[p][d] {
							in = false
							break
						}
					}
				}
				if dom[b][d] != in {
					dom[b][d] = in
					changed = true
				}
			}
		}
	}
	return dom, reachable
}

// operands lists the value operands of the instructions the generator emits.
func operands(inst ir.Instruction) ([]value.Value, bool) {
	switch i := inst.(type) {
	case *ir.InstAlloca:
		return nil, true
	case *ir.InstLoad:
		return []value.Value{i.Src}, true
	case *ir.InstStore:
		return []value.Value{i.Src, i.Dst}, true
	case *ir.InstAdd:
		return []value.Value{i.X, i.Y}, true
	case *ir.InstFAdd:
		return []value.Value{i.X, i.Y}, true
	case *ir.InstSub:
		return []value.Value{i.X, i.Y}, true
	case *ir.InstFSub:
		return []value.Value{i.X, i.Y}, true
	case *ir.InstMul:
		return []value.Value{i.X, i.Y}, true
	case *ir.InstFMul:
		return []value.Value{i.X, i.Y}, true
	case *ir.InstSDiv:
		return []value.Value{i.X, i.Y}, true
	case *ir.InstFDiv:
		return []value.Value{i.X, i.Y}, true
	case *ir.InstSRem:
		return []value.Value{i.X, i.Y}, true
	case *ir.InstAnd:
		return []value.Value{i.X, i.Y}, true
	case *ir.InstOr:
		return []value.Value{i.X, i.Y}, true
	case *ir.InstXor:
		return []value.Value{i.X, i.Y}, true
	case *ir.InstICmp:
		return []value.Value{i.X, i.Y}, true
	case *ir.InstFCmp:
		return []value.Value{i.X, i.Y}, true
	case *ir.InstSIToFP:
		return []value.Value{i.From}, true
	case *ir.InstZExt:
		return []value.Value{i.From}, true
	case *ir.InstGetElementPtr:
		return append([]value.Value{i.Src}, i.Indices...), true
	case *ir.InstCall:
		return append([]value.Value{i.Callee}, i.Args...), true
	}
	return nil, false
}

func termOperands(term ir.Terminator) []value.Value {
	switch t := term.(type) {
	case *ir.TermRet:
		return []value.Value{t.X}
	case *ir.TermCondBr:
		return []value.Value{t.Cond}
	}
	return nil
}

// opcode names an instruction or terminator the way the textual IR does.
func opcode(v any) string {
	switch v.(type) {
	case *ir.InstAlloca:
		return "alloca"
	case *ir.InstLoad:
		return "load"
	case *ir.InstStore:
		return "store"
	case *ir.InstAdd:
		return "add"
	case *ir.InstFAdd:
		return "fadd"
	case *ir.InstSub:
		return "sub"
	case *ir.InstFSub:
		return "fsub"
	case *ir.InstMul:
		return "mul"
	case *ir.InstFMul:
		return "fmul"
	case *ir.InstSDiv:
		return "sdiv"
	case *ir.InstFDiv:
		return "fdiv"
	case *ir.InstSRem:
		return "srem"
	case *ir.InstAnd:
		return "and"
	case *ir.InstOr:
		return "or"
	case *ir.InstXor:
		return "xor"
	case *ir.InstICmp:
		return "icmp"
	case *ir.InstFCmp:
		return "fcmp"
	case *ir.InstSIToFP:
		return "sitofp"
	case *ir.InstZExt:
		return "zext"
	case *ir.InstGetElementPtr:
		return "getelementptr"
	case *ir.InstCall:
		return "call"
	case *ir.TermRet:
		return "ret"
	case *ir.TermBr, *ir.TermCondBr:
		return "br"
	case *ir.TermUnreachable:
		return "unreachable"
	}
	return fmt.Sprintf("%T", v)
}

// OpcodeCounts tallies the instructions and terminators of f by opcode.
func OpcodeCounts(f *ir.Func) map[string]int {
	counts := map[string]int{}
	for _, b := range f.Blocks {
		for _, inst := range b.Insts {
			counts[opcode(inst)]++
		}
		if b.Term != nil {
			counts[opcode(b.Term)]++
		}
	}
	return counts
}
