package compiler

import (
	"fmt"
	"strconv"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// funcState is the code generation state of the function being emitted.
type funcState struct {
	fn      *ir.Func
	sig     *FuncSig
	entry   *ir.Block
	cur     *ir.Block
	allocas int            // allocas at the head of the entry block
	names   map[string]int // local name use counts
}

// generator is one run of the code generation pass.
type generator struct {
	ctx   *Context
	m     *ir.Module
	slots *SlotTable

	funcs   map[string]*ir.Func
	runtime map[string]*ir.Func
	globals map[string]*ir.Global
	classes map[string]types.Type
	strs    map[string]constant.Constant

	// Block arena. Control-flow nodes refer to blocks by index.
	blocks []*ir.Block
	preds  map[*ir.Block]int

	fs   *funcState
	main *funcState
}

// Generate lowers an analyzed program to an LLVM IR module. Top-level
// statements run inside a synthesized main function. Generate refuses to run
// unless the last Analyze in this context certified prog itself.
func Generate(ctx *Context, prog *Program) (m *ir.Module, err error) {
	if ctx.certified == nil {
		return nil, &InternalError{Msg: "code generation requested for a program that has not been analyzed"}
	}
	if ctx.certified != prog {
		return nil, &InternalError{Msg: "code generation requested for a program other than the one analyzed in this context"}
	}
	g := &generator{
		ctx:     ctx,
		m:       ir.NewModule(),
		slots:   NewSlotTable(),
		funcs:   map[string]*ir.Func{},
		runtime: map[string]*ir.Func{},
		globals: map[string]*ir.Global{},
		classes: map[string]types.Type{},
		strs:    map[string]constant.Constant{},
		preds:   map[*ir.Block]int{},
	}
	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(*InternalError)
			if !ok {
				panic(r)
			}
			m, err = nil, ie
		}
	}()

	for _, name := range ctx.classOrder {
		decl := ctx.classes[name]
		var fields []types.Type
		for _, f := range decl.Fields {
			fields = append(fields, g.llvmType(f.Type))
		}
		g.classes[name] = g.m.NewTypeDef(name, types.NewStruct(fields...))
	}
	for _, item := range prog.Body {
		if fd, ok := item.(*FuncDef); ok {
			g.declareFunc(fd)
		}
	}

	mainFn := g.m.NewFunc("main", types.I32)
	g.main = g.enterFunc(mainFn, nil)
	for _, item := range prog.Body {
		if fd, ok := item.(*FuncDef); ok {
			g.funcDef(fd)
			g.fs = g.main
			continue
		}
		if g.fs.cur.Term != nil {
			continue
		}
		g.stmt(item)
	}
	if g.fs.cur.Term == nil {
		g.fs.cur.NewRet(constant.NewInt(types.I32, 0))
	}

	ctx.Logger.Info("code generation complete",
		"functions", len(g.m.Funcs),
		"globals", len(g.m.Globals),
		"blocks", len(g.blocks))
	return g.m, nil
}

func (g *generator) fail(pos Position, format string, args ...any) {
	panic(&InternalError{Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

// llvmType maps a value type to its IR representation. Lists and graphs are
// opaque runtime handles.
func (g *generator) llvmType(t Type) types.Type {
	switch t.Kind {
	case KindInt:
		return types.I64
	case KindFloat:
		return types.Double
	case KindChar:
		return types.I8
	case KindBool:
		return types.I1
	case KindVoid:
		return types.Void
	case KindString, KindList, KindGraph:
		return types.I8Ptr
	case KindClass:
		if ct, ok := g.classes[t.Class]; ok {
			return ct
		}
	}
	g.fail(Position{}, "no IR type for %s", t)
	return nil
}

func (g *generator) zeroValue(t Type) constant.Constant {
	switch t.Kind {
	case KindInt:
		return constant.NewInt(types.I64, 0)
	case KindFloat:
		return constant.NewFloat(types.Double, 0)
	case KindChar:
		return constant.NewInt(types.I8, 0)
	case KindBool:
		return constant.NewBool(false)
	case KindString, KindList, KindGraph:
		return constant.NewNull(types.I8Ptr)
	}
	return constant.NewZeroInitializer(g.llvmType(t))
}

func (g *generator) declareFunc(n *FuncDef) {
	var params []*ir.Param
	for _, p := range n.Params {
		params = append(params, ir.NewParam(p.Name, g.llvmType(p.Type)))
	}
	g.funcs[n.Name] = g.m.NewFunc(n.Name, g.llvmType(n.Return), params...)
}

func (g *generator) enterFunc(fn *ir.Func, sig *FuncSig) *funcState {
	fs := &funcState{fn: fn, sig: sig, names: map[string]int{}}
	fs.entry = g.blocks[g.newBlockIn(fn, "")]
	fs.cur = fs.entry
	g.fs = fs
	return fs
}

func (g *generator) funcDef(n *FuncDef) {
	fn := g.funcs[n.Name]
	sig, _ := g.ctx.Funcs.Lookup(n.Name)
	fs := g.enterFunc(fn, sig)

	g.slots.Within(func() error {
		for i, p := range n.Params {
			slot := g.alloca(p.Name, g.llvmType(p.Type))
			fs.entry.NewStore(fn.Params[i], slot)
			g.bind(&Slot{Name: p.Name, Storage: slot, Type: p.Type, IsParam: true})
		}
		g.stmts(n.Body)
		return nil
	})

	if fs.cur.Term == nil {
		switch {
		case n.Return == TypeVoid:
			fs.cur.NewRet(nil)
		case fs.cur != fs.entry && g.preds[fs.cur] == 0:
			fs.cur.NewUnreachable()
		default:
			g.fail(n.At, "function '%s' can reach its end without returning %s", n.Name, n.Return)
		}
	}
	g.ctx.Logger.Debug("generated function", "name", n.Name, "blocks", len(fn.Blocks))
}

// newBlock appends a block to the current function and the arena. The entry
// block is left unnamed.
func (g *generator) newBlock(label string) BlockID {
	return g.newBlockIn(g.fs.fn, label)
}

func (g *generator) newBlockIn(fn *ir.Func, label string) BlockID {
	id := BlockID(len(g.blocks))
	if label != "" {
		label += "." + strconv.Itoa(int(id))
	}
	g.blocks = append(g.blocks, fn.NewBlock(label))
	return id
}

func (g *generator) block(id BlockID) *ir.Block {
	if id < 0 || int(id) >= len(g.blocks) {
		g.fail(Position{}, "merge block %d was never created", id)
	}
	return g.blocks[id]
}

func (g *generator) setBlock(b *ir.Block) {
	g.fs.cur = b
}

// br terminates the current block with a jump to target, unless it is
// already terminated.
func (g *generator) br(target *ir.Block) {
	if g.fs.cur.Term != nil {
		return
	}
	g.fs.cur.NewBr(target)
	g.preds[target]++
}

func (g *generator) condBr(cond value.Value, t, f *ir.Block) {
	g.fs.cur.NewCondBr(cond, t, f)
	g.preds[t]++
	g.preds[f]++
}

// localName returns a unique local identifier derived from name.
func (g *generator) localName(name string) string {
	n := g.fs.names[name]
	g.fs.names[name]++
	if n == 0 {
		return name
	}
	return name + "." + strconv.Itoa(n)
}

// alloca reserves a stack slot in the entry block. Slots are kept together
// at the head of the block in declaration order.
func (g *generator) alloca(name string, t types.Type) *ir.InstAlloca {
	fs := g.fs
	a := fs.entry.NewAlloca(t)
	a.SetName(g.localName(name + ".addr"))
	insts := fs.entry.Insts
	copy(insts[fs.allocas+1:], insts[fs.allocas:len(insts)-1])
	insts[fs.allocas] = a
	fs.allocas++
	return a
}

func (g *generator) bind(slot *Slot) {
	if err := g.slots.Bind(slot); err != nil {
		g.fail(Position{}, "binding storage for '%s': %v", slot.Name, err)
	}
}

// declare creates storage for a variable: a module global when the
// declaration is at module level, otherwise a stack slot.
func (g *generator) declare(name string, t Type, global bool) value.Value {
	var storage value.Value
	if global {
		gv := g.m.NewGlobalDef("g."+name, g.zeroValue(t))
		g.globals[name] = gv
		storage = gv
	} else {
		storage = g.alloca(name, g.llvmType(t))
	}
	g.bind(&Slot{Name: name, Storage: storage, Type: t})
	return storage
}

// storage finds the storage of a variable reference.
func (g *generator) storage(pos Position, name string, global bool) value.Value {
	if global {
		gv, ok := g.globals[name]
		if !ok {
			g.fail(pos, "no global storage for '%s'", name)
		}
		return gv
	}
	slot, err := g.slots.Lookup(name)
	if err != nil {
		g.fail(pos, "no storage for '%s'", name)
	}
	return slot.Storage
}

func (g *generator) stmts(body []Node) {
	for _, s := range body {
		if g.fs.cur.Term != nil {
			return
		}
		g.stmt(s)
	}
}

func (g *generator) scoped(body []Node) {
	g.slots.Within(func() error {
		g.stmts(body)
		return nil
	})
}

func (g *generator) stmt(node Node) {
	cur := func() *ir.Block { return g.fs.cur }
	switch n := node.(type) {
	case *Include, *ClassDecl:

	case *VarDecl:
		storage := g.declare(n.Name, n.Declared, n.IsGlobal)
		if n.IsClass && !n.IsGlobal {
			cur().NewStore(g.zeroValue(n.Declared), storage)
		}

	case *VarDef:
		v := g.convert(g.expr(n.Value), TypeOf(n.Value), n.Declared)
		storage := g.declare(n.Name, n.Declared, n.IsGlobal)
		cur().NewStore(v, storage)

	case *Assign:
		v := g.convert(g.expr(n.Value), TypeOf(n.Value), n.Typ)
		cur().NewStore(v, g.storage(n.At, n.Name, n.IsGlobal))

	case *FieldAssign:
		v := g.convert(g.expr(n.Value), TypeOf(n.Value), n.Typ)
		cur().NewStore(v, g.fieldAddr(n.Target))

	case *ListDecl:
		storage := g.declare(n.Name, n.Typ, n.IsGlobal)
		handle := cur().NewCall(g.runtimeFunc("pyrx_list_new", types.I8Ptr))
		cur().NewStore(handle, storage)
		if len(n.Elements) > 0 {
			m, ok := g.ctx.Members.Lookup(n.Typ, "add")
			if !ok {
				g.fail(n.At, "%s has no add member", n.Typ)
			}
			add := g.memberFunc(m)
			for _, e := range n.Elements {
				v := g.convert(g.expr(e), TypeOf(e), n.Typ.ElemType())
				cur().NewCall(add, handle, v)
			}
		}

	case *GraphDecl:
		storage := g.declare(n.Name, n.Typ, n.IsGlobal)
		handle := cur().NewCall(g.runtimeFunc("pyrx_graph_new", types.I8Ptr))
		cur().NewStore(handle, storage)

	case *Return:
		if g.fs.sig == nil {
			g.fail(n.At, "return outside a function")
		}
		if n.Value == nil {
			cur().NewRet(nil)
			return
		}
		v := g.convert(g.expr(n.Value), TypeOf(n.Value), g.fs.sig.Return)
		cur().NewRet(v)

	case *If:
		cond := g.expr(n.Cond)
		then := g.newBlock("if.then")
		n.MergeBlock = g.newBlock("if.end")
		merge := g.block(n.MergeBlock)
		elseBlock := merge
		if n.Else != nil {
			elseBlock = g.block(g.newBlock("if.else"))
		}
		g.condBr(cond, g.block(then), elseBlock)

		g.setBlock(g.block(then))
		g.scoped(n.Then)
		g.br(merge)
		if n.Else != nil {
			g.setBlock(elseBlock)
			g.scoped(n.Else)
			g.br(merge)
		}
		g.setBlock(merge)
		if g.preds[merge] == 0 {
			merge.NewUnreachable()
		}

	case *While:
		condBlock := g.block(g.newBlock("while.cond"))
		body := g.block(g.newBlock("while.body"))
		n.MergeBlock = g.newBlock("while.end")
		exit := g.block(n.MergeBlock)

		g.br(condBlock)
		g.setBlock(condBlock)
		g.condBr(g.expr(n.Cond), body, exit)
		g.setBlock(body)
		g.scoped(n.Body)
		g.br(condBlock)
		g.setBlock(exit)

	case *For:
		g.slots.Within(func() error {
			g.stmt(n.Init)
			condBlock := g.block(g.newBlock("for.cond"))
			body := g.block(g.newBlock("for.body"))
			step := g.block(g.newBlock("for.step"))
			n.MergeBlock = g.newBlock("for.end")
			exit := g.block(n.MergeBlock)

			g.br(condBlock)
			g.setBlock(condBlock)
			g.condBr(g.expr(n.Cond), body, exit)
			g.setBlock(body)
			g.scoped(n.Body)
			g.br(step)
			g.setBlock(step)
			if g.preds[step] == 0 {
				step.NewUnreachable()
			} else {
				g.stmt(n.Step)
				g.br(condBlock)
			}
			g.setBlock(exit)
			return nil
		})

	case *Print:
		g.print(n)

	case *ExprStmt:
		g.expr(n.X)

	default:
		g.fail(node.Pos(), "unexpected %T in statement position", node)
	}
}

// printFormats maps a printable kind to its printf conversion.
var printFormats = map[Kind]string{
	KindInt:    "%lld\n",
	KindFloat:  "%f\n",
	KindChar:   "%c\n",
	KindString: "%s\n",
	KindBool:   "%d\n",
}

func (g *generator) print(n *Print) {
	t := TypeOf(n.Value)
	format, ok := printFormats[t.Kind]
	if !ok {
		g.fail(n.At, "cannot print %s", t)
	}
	v := g.expr(n.Value)
	switch t.Kind {
	case KindBool, KindChar:
		v = g.fs.cur.NewZExt(v, types.I32)
	}
	g.fs.cur.NewCall(g.printf(), g.str(format), v)
}

func (g *generator) printf() *ir.Func {
	if fn, ok := g.runtime["printf"]; ok {
		return fn
	}
	fn := g.runtimeFunc("printf", types.I32, types.I8Ptr)
	fn.Sig.Variadic = true
	return fn
}

// runtimeFunc returns the external declaration of a runtime symbol,
// declaring it on first use.
func (g *generator) runtimeFunc(name string, ret types.Type, params ...types.Type) *ir.Func {
	if fn, ok := g.runtime[name]; ok {
		return fn
	}
	var ps []*ir.Param
	for _, p := range params {
		ps = append(ps, ir.NewParam("", p))
	}
	fn := g.m.NewFunc(name, ret, ps...)
	g.runtime[name] = fn
	return fn
}

// memberFunc declares the runtime function lowering a list or graph member.
// The receiver handle is always the first argument.
func (g *generator) memberFunc(m *Member) *ir.Func {
	params := []types.Type{types.I8Ptr}
	for _, p := range m.Params {
		params = append(params, g.llvmType(p))
	}
	return g.runtimeFunc(m.Symbol, g.llvmType(m.Result), params...)
}

// str returns an i8* to a private, NUL-terminated copy of s.
func (g *generator) str(s string) constant.Constant {
	if c, ok := g.strs[s]; ok {
		return c
	}
	data := constant.NewCharArrayFromString(s + "\x00")
	gv := g.m.NewGlobalDef(".str."+strconv.Itoa(len(g.strs)), data)
	gv.Linkage = enum.LinkagePrivate
	gv.Immutable = true
	zero := constant.NewInt(types.I64, 0)
	c := constant.NewGetElementPtr(data.Typ, gv, zero, zero)
	g.strs[s] = c
	return c
}

// convert applies the implicit int to float widening.
func (g *generator) convert(v value.Value, from, to Type) value.Value {
	if from == TypeInt && to == TypeFloat {
		return g.fs.cur.NewSIToFP(v, types.Double)
	}
	return v
}

func (g *generator) expr(node Node) value.Value {
	cur := g.fs.cur
	switch n := node.(type) {
	case *IntLit:
		return constant.NewInt(types.I64, n.Value)
	case *FloatLit:
		return constant.NewFloat(types.Double, n.Value)
	case *CharLit:
		return constant.NewInt(types.I8, int64(n.Value))
	case *StringLit:
		return g.str(n.Value)
	case *BoolLit:
		return constant.NewBool(n.Value)

	case *Ident:
		return cur.NewLoad(g.llvmType(n.Typ), g.storage(n.At, n.Name, n.IsGlobal))

	case *Binary:
		return g.binary(n)

	case *Unary:
		v := g.expr(n.Operand)
		cur = g.fs.cur
		switch {
		case n.Op == "!":
			return cur.NewXor(v, constant.NewBool(true))
		case n.Typ == TypeFloat:
			return cur.NewFSub(constant.NewFloat(types.Double, 0), v)
		default:
			return cur.NewSub(constant.NewInt(types.I64, 0), v)
		}

	case *Call:
		fn, ok := g.funcs[n.Name]
		if !ok {
			g.fail(n.At, "call to undeclared function '%s'", n.Name)
		}
		sig, _ := g.ctx.Funcs.Lookup(n.Name)
		args := g.args(n.Args, sig.Params)
		return g.fs.cur.NewCall(fn, args...)

	case *DotCall:
		return g.dotCall(n)
	}
	g.fail(node.Pos(), "unexpected %T in expression position", node)
	return nil
}

// args generates call arguments left to right, converting each to its
// parameter type.
func (g *generator) args(args []Node, params []Type) []value.Value {
	var out []value.Value
	for i, a := range args {
		out = append(out, g.convert(g.expr(a), TypeOf(a), params[i]))
	}
	return out
}

var intPreds = map[string]enum.IPred{
	"==": enum.IPredEQ,
	"!=": enum.IPredNE,
	"<":  enum.IPredSLT,
	"<=": enum.IPredSLE,
	">":  enum.IPredSGT,
	">=": enum.IPredSGE,
}

// charPreds order chars as unsigned bytes.
var charPreds = map[string]enum.IPred{
	"==": enum.IPredEQ,
	"!=": enum.IPredNE,
	"<":  enum.IPredULT,
	"<=": enum.IPredULE,
	">":  enum.IPredUGT,
	">=": enum.IPredUGE,
}

var floatPreds = map[string]enum.FPred{
	"==": enum.FPredOEQ,
	"!=": enum.FPredUNE,
	"<":  enum.FPredOLT,
	"<=": enum.FPredOLE,
	">":  enum.FPredOGT,
	">=": enum.FPredOGE,
}

func (g *generator) binary(n *Binary) value.Value {
	lt, rt := TypeOf(n.Left), TypeOf(n.Right)
	l := g.expr(n.Left)
	r := g.expr(n.Right)
	ot := operandType(lt, rt)
	l = g.convert(l, lt, ot)
	r = g.convert(r, rt, ot)
	cur := g.fs.cur

	switch n.Op {
	case "&&":
		return cur.NewAnd(l, r)
	case "||":
		return cur.NewOr(l, r)
	}

	if isComparison(n.Op) {
		switch ot {
		case TypeFloat:
			return cur.NewFCmp(floatPreds[n.Op], l, r)
		case TypeString:
			strcmp := g.runtimeFunc("strcmp", types.I32, types.I8Ptr, types.I8Ptr)
			diff := cur.NewCall(strcmp, l, r)
			return cur.NewICmp(intPreds[n.Op], diff, constant.NewInt(types.I32, 0))
		case TypeChar:
			return cur.NewICmp(charPreds[n.Op], l, r)
		}
		return cur.NewICmp(intPreds[n.Op], l, r)
	}

	if ot == TypeFloat {
		switch n.Op {
		case "+":
			return cur.NewFAdd(l, r)
		case "-":
			return cur.NewFSub(l, r)
		case "*":
			return cur.NewFMul(l, r)
		case "/":
			return cur.NewFDiv(l, r)
		}
	} else {
		switch n.Op {
		case "+":
			return cur.NewAdd(l, r)
		case "-":
			return cur.NewSub(l, r)
		case "*":
			return cur.NewMul(l, r)
		case "/":
			return cur.NewSDiv(l, r)
		case "%":
			return cur.NewSRem(l, r)
		}
	}
	g.fail(n.At, "no instruction for %s %s %s", lt, n.Op, rt)
	return nil
}

// fieldAddr computes the address of a class instance field.
func (g *generator) fieldAddr(n *DotCall) value.Value {
	recv := n.Receiver
	m, ok := g.ctx.Members.Lookup(recv.Typ, n.Member)
	if !ok || m.Kind != MemberField {
		g.fail(n.At, "%s has no field '%s'", recv.Typ, n.Member)
	}
	base := g.storage(recv.At, recv.Name, recv.IsGlobal)
	return g.fs.cur.NewGetElementPtr(g.llvmType(recv.Typ), base,
		constant.NewInt(types.I32, 0),
		constant.NewInt(types.I32, int64(m.Index)))
}

// dotCall lowers a member access: a field load for class instances, a
// runtime call for lists and graphs.
func (g *generator) dotCall(n *DotCall) value.Value {
	if n.IsClass {
		return g.fs.cur.NewLoad(g.llvmType(n.Typ), g.fieldAddr(n))
	}
	recv := n.Receiver
	m, ok := g.ctx.Members.Lookup(recv.Typ, n.Member)
	if !ok {
		g.fail(n.At, "%s has no member '%s'", recv.Typ, n.Member)
	}
	handle := g.fs.cur.NewLoad(types.I8Ptr, g.storage(recv.At, recv.Name, recv.IsGlobal))
	args := append([]value.Value{handle}, g.args(n.Args, m.Params)...)
	return g.fs.cur.NewCall(g.memberFunc(m), args...)
}
