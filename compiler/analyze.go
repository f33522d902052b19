package compiler

import (
	"fmt"
)

// analyzer is one run of the semantic analysis pass. It owns the analysis
// scope stack; the function, member and class tables live in the Context.
type analyzer struct {
	ctx  *Context
	syms *SymbolTable
	fn   *FuncSig // enclosing function, nil at module level
}

// Analyze validates prog and annotates every node with its type and storage
// flags. It stops at the first error. On success the context is certified
// for Generate.
func Analyze(ctx *Context, prog *Program) error {
	ctx.certified = nil
	a := &analyzer{ctx: ctx, syms: NewSymbolTable()}
	for _, item := range prog.Body {
		if err := a.stmt(item); err != nil {
			ctx.Logger.Debug("analysis failed", "err", err)
			return err
		}
	}
	ctx.certified = prog
	ctx.Logger.Info("analysis complete",
		"functions", len(ctx.Funcs.Names()),
		"classes", len(ctx.classOrder))
	return nil
}

// AnalyzeExpr analyzes a standalone expression against the functions and
// classes already registered in ctx. It does not certify ctx for Generate.
func AnalyzeExpr(ctx *Context, expr Node) error {
	a := &analyzer{ctx: ctx, syms: NewSymbolTable()}
	_, err := a.expr(expr)
	return err
}

func (a *analyzer) block(body []Node) error {
	return a.syms.Within(func() error {
		return a.stmts(body)
	})
}

func (a *analyzer) stmts(body []Node) error {
	for _, s := range body {
		if err := a.stmt(s); err != nil {
			return err
		}
	}
	return nil
}

// resolveType checks that a declared type names something that exists and
// makes the members of aggregate types available.
func (a *analyzer) resolveType(pos Position, t Type) error {
	switch t.Kind {
	case KindClass:
		if _, ok := a.ctx.Class(t.Class); !ok {
			return &SemanticError{Kind: ErrUndeclaredIdentifier, Pos: pos, Name: t.Class, Detail: "unknown class"}
		}
	case KindList:
		a.ctx.Members.RegisterList(t.Elem)
	case KindGraph:
		a.ctx.Members.RegisterGraph(t.Elem)
	}
	return nil
}

func (a *analyzer) stmt(node Node) error {
	switch n := node.(type) {
	case *Include:
		return nil

	case *ClassDecl:
		return a.classDecl(n)

	case *FuncDef:
		return a.funcDef(n)

	case *VarDecl:
		if err := a.resolveType(n.At, n.Declared); err != nil {
			return err
		}
		isClass := n.Declared.Kind == KindClass
		sym, err := a.syms.DeclareVariable(n.At, n.Name, n.Declared, isClass)
		if err != nil {
			return err
		}
		n.Typ = n.Declared
		n.IsGlobal = sym.Global
		n.IsClass = isClass
		return nil

	case *VarDef:
		vt, err := a.expr(n.Value)
		if err != nil {
			return err
		}
		if err := a.resolveType(n.At, n.Declared); err != nil {
			return err
		}
		if !IsAssignable(n.Declared, vt) {
			return &SemanticError{Kind: ErrTypeMismatch, Pos: n.Value.Pos(), Name: n.Name, Expected: n.Declared, Actual: vt}
		}
		sym, err := a.syms.DeclareVariable(n.At, n.Name, n.Declared, false)
		if err != nil {
			return err
		}
		if err := a.syms.MarkInitialized(n.At, n.Name); err != nil {
			return err
		}
		n.Typ = n.Declared
		n.IsGlobal = sym.Global
		return nil

	case *Assign:
		sym, err := a.syms.LookupVariable(n.At, n.Name)
		if err != nil {
			return err
		}
		vt, err := a.expr(n.Value)
		if err != nil {
			return err
		}
		if !IsAssignable(sym.Type, vt) {
			return &SemanticError{Kind: ErrTypeMismatch, Pos: n.Value.Pos(), Name: n.Name, Expected: sym.Type, Actual: vt}
		}
		if err := a.syms.MarkInitialized(n.At, n.Name); err != nil {
			return err
		}
		n.Typ = sym.Type
		n.IsGlobal = sym.Global
		return nil

	case *FieldAssign:
		ft, err := a.dotCall(n.Target, true)
		if err != nil {
			return err
		}
		vt, err := a.expr(n.Value)
		if err != nil {
			return err
		}
		if !IsAssignable(ft, vt) {
			return &SemanticError{Kind: ErrTypeMismatch, Pos: n.Value.Pos(), Expected: ft, Actual: vt}
		}
		n.Typ = ft
		n.IsClass = true
		return nil

	case *Return:
		return a.ret(n)

	case *If:
		if err := a.cond(n.Cond); err != nil {
			return err
		}
		if err := a.block(n.Then); err != nil {
			return err
		}
		if n.Else != nil {
			if err := a.block(n.Else); err != nil {
				return err
			}
		}
		n.Typ = TypeVoid
		n.MergeBlock = NoBlock
		return nil

	case *While:
		if err := a.cond(n.Cond); err != nil {
			return err
		}
		if err := a.block(n.Body); err != nil {
			return err
		}
		n.Typ = TypeVoid
		n.MergeBlock = NoBlock
		return nil

	case *For:
		err := a.syms.Within(func() error {
			if err := a.stmt(n.Init); err != nil {
				return err
			}
			if err := a.cond(n.Cond); err != nil {
				return err
			}
			if err := a.stmt(n.Step); err != nil {
				return err
			}
			return a.block(n.Body)
		})
		if err != nil {
			return err
		}
		n.Typ = TypeVoid
		n.MergeBlock = NoBlock
		return nil

	case *Print:
		vt, err := a.expr(n.Value)
		if err != nil {
			return err
		}
		if !vt.Kind.IsScalar() {
			return &SemanticError{Kind: ErrTypeMismatch, Pos: n.Value.Pos(), Actual: vt, Detail: "print takes a scalar value"}
		}
		n.Typ = TypeVoid
		return nil

	case *ListDecl:
		elem := Type{Kind: n.Elem}
		for _, e := range n.Elements {
			et, err := a.expr(e)
			if err != nil {
				return err
			}
			if !IsAssignable(elem, et) {
				return &SemanticError{Kind: ErrTypeMismatch, Pos: e.Pos(), Name: n.Name, Expected: elem, Actual: et}
			}
		}
		return a.declareAggregate(&n.Base, n.Name, ListOf(n.Elem))

	case *GraphDecl:
		return a.declareAggregate(&n.Base, n.Name, GraphOf(n.Elem))

	case *ExprStmt:
		t, err := a.expr(n.X)
		if err != nil {
			return err
		}
		n.Typ = t
		return nil
	}
	return &InternalError{Pos: node.Pos(), Msg: fmt.Sprintf("unexpected %T in statement position", node)}
}

func (a *analyzer) declareAggregate(b *Base, name string, t Type) error {
	if err := a.resolveType(b.At, t); err != nil {
		return err
	}
	sym, err := a.syms.DeclareVariable(b.At, name, t, true)
	if err != nil {
		return err
	}
	b.Typ = t
	b.IsGlobal = sym.Global
	return nil
}

func (a *analyzer) classDecl(n *ClassDecl) error {
	seen := map[string]bool{}
	for _, f := range n.Fields {
		if seen[f.Name] {
			return &SemanticError{Kind: ErrRedeclaration, Pos: f.At, Name: f.Name}
		}
		seen[f.Name] = true
		if !f.Type.Kind.IsScalar() {
			return &SemanticError{Kind: ErrTypeMismatch, Pos: f.At, Name: f.Name, Actual: f.Type, Detail: "class fields must have a scalar type"}
		}
	}
	if !a.ctx.addClass(n) {
		return &SemanticError{Kind: ErrRedeclaration, Pos: n.At, Name: n.Name}
	}
	a.ctx.Members.RegisterClass(n.Name, n.Fields)
	n.Typ = ClassType(n.Name)
	n.IsClass = true
	return nil
}

func (a *analyzer) funcDef(n *FuncDef) error {
	if a.fn != nil || !a.syms.AtModule() {
		return &InternalError{Pos: n.At, Msg: "nested function definition"}
	}
	sig := &FuncSig{Name: n.Name, Return: n.Return}
	for _, p := range n.Params {
		if err := a.resolveType(p.At, p.Type); err != nil {
			return err
		}
		sig.Params = append(sig.Params, p.Type)
	}
	if err := a.resolveType(n.At, n.Return); err != nil {
		return err
	}
	// Registered before the body so recursive calls resolve.
	if err := a.ctx.Funcs.AddFunctionDefn(n.At, sig); err != nil {
		return err
	}

	a.fn = sig
	defer func() { a.fn = nil }()
	err := a.syms.Within(func() error {
		for _, p := range n.Params {
			if _, err := a.syms.DeclareVariable(p.At, p.Name, p.Type, true); err != nil {
				return err
			}
		}
		return a.stmts(n.Body)
	})
	if err != nil {
		return err
	}
	if n.Return != TypeVoid && !alwaysReturns(n.Body) {
		return &SemanticError{Kind: ErrReturnTypeMismatch, Pos: n.At, Name: n.Name, Expected: n.Return, Actual: TypeVoid, Detail: "missing return"}
	}
	n.Typ = n.Return
	a.ctx.Logger.Debug("analyzed function", "name", n.Name, "params", len(n.Params), "return", n.Return.String())
	return nil
}

// alwaysReturns reports whether every path through body ends in a return.
func alwaysReturns(body []Node) bool {
	for _, s := range body {
		switch n := s.(type) {
		case *Return:
			return true
		case *If:
			if n.Else != nil && alwaysReturns(n.Then) && alwaysReturns(n.Else) {
				return true
			}
		}
	}
	return false
}

func (a *analyzer) ret(n *Return) error {
	vt := TypeVoid
	if n.Value != nil {
		t, err := a.expr(n.Value)
		if err != nil {
			return err
		}
		vt = t
	}
	if a.fn == nil {
		return &SemanticError{Kind: ErrReturnTypeMismatch, Pos: n.At, Expected: TypeVoid, Actual: vt, Detail: "return outside a function"}
	}
	want := a.fn.Return
	if want == TypeVoid {
		if n.Value != nil {
			return &SemanticError{Kind: ErrReturnTypeMismatch, Pos: n.At, Name: a.fn.Name, Expected: want, Actual: vt, Detail: "void function returns a value"}
		}
	} else if vt == TypeVoid || !IsAssignable(want, vt) {
		return &SemanticError{Kind: ErrReturnTypeMismatch, Pos: n.At, Name: a.fn.Name, Expected: want, Actual: vt}
	}
	n.Typ = want
	return nil
}

func (a *analyzer) cond(n Node) error {
	t, err := a.expr(n)
	if err != nil {
		return err
	}
	if t != TypeBool {
		return &SemanticError{Kind: ErrTypeMismatch, Pos: n.Pos(), Expected: TypeBool, Actual: t, Detail: "condition"}
	}
	return nil
}

func (a *analyzer) expr(node Node) (Type, error) {
	switch n := node.(type) {
	case *IntLit:
		n.Typ = TypeInt
	case *FloatLit:
		n.Typ = TypeFloat
	case *CharLit:
		n.Typ = TypeChar
	case *StringLit:
		n.Typ = TypeString
	case *BoolLit:
		n.Typ = TypeBool

	case *Ident:
		sym, err := a.syms.ReadVariable(n.At, n.Name)
		if err != nil {
			return TypeUnresolved, err
		}
		n.Typ = sym.Type
		n.IsGlobal = sym.Global
		n.IsClass = sym.Type.Kind == KindClass

	case *Binary:
		lt, err := a.expr(n.Left)
		if err != nil {
			return TypeUnresolved, err
		}
		rt, err := a.expr(n.Right)
		if err != nil {
			return TypeUnresolved, err
		}
		result, ok := BinaryResultType(n.Op, lt, rt)
		if !ok {
			return TypeUnresolved, &SemanticError{Kind: ErrTypeMismatch, Pos: n.At, Op: n.Op, Left: lt, Right: rt}
		}
		n.Typ = result

	case *Unary:
		ot, err := a.expr(n.Operand)
		if err != nil {
			return TypeUnresolved, err
		}
		result, ok := UnaryResultType(n.Op, ot)
		if !ok {
			return TypeUnresolved, &SemanticError{Kind: ErrTypeMismatch, Pos: n.At, Op: n.Op, Right: ot}
		}
		n.Typ = result

	case *Call:
		sig, ok := a.ctx.Funcs.Lookup(n.Name)
		if !ok {
			return TypeUnresolved, &SemanticError{Kind: ErrUndeclaredFunction, Pos: n.At, Name: n.Name}
		}
		if err := a.args(n.At, n.Name, sig.Params, n.Args); err != nil {
			return TypeUnresolved, err
		}
		n.Typ = sig.Return

	case *DotCall:
		if _, err := a.dotCall(n, false); err != nil {
			return TypeUnresolved, err
		}

	default:
		return TypeUnresolved, &InternalError{Pos: node.Pos(), Msg: fmt.Sprintf("unexpected %T in expression position", node)}
	}
	return node.Type(), nil
}

// args checks a call's argument count, then each argument's type in order.
func (a *analyzer) args(pos Position, name string, params []Type, args []Node) error {
	if len(args) != len(params) {
		return &SemanticError{Kind: ErrArityMismatch, Pos: pos, Name: name, WantArgs: len(params), GotArgs: len(args)}
	}
	for i, arg := range args {
		at, err := a.expr(arg)
		if err != nil {
			return err
		}
		if !IsAssignable(params[i], at) {
			return &SemanticError{Kind: ErrArgumentTypeMismatch, Pos: arg.Pos(), Name: name, Arg: i + 1, Expected: params[i], Actual: at}
		}
	}
	return nil
}

// dotCall analyzes a member access. store is set when the access is the
// target of a field assignment.
func (a *analyzer) dotCall(n *DotCall, store bool) (Type, error) {
	recv := n.Receiver
	sym, err := a.syms.LookupVariable(recv.At, recv.Name)
	if err != nil {
		return TypeUnresolved, err
	}
	if !sym.Type.IsAggregate() {
		return TypeUnresolved, &SemanticError{Kind: ErrInvalidDotCall, Pos: n.At, Name: recv.Name, Actual: sym.Type}
	}
	recv.Typ = sym.Type
	recv.IsGlobal = sym.Global
	recv.IsClass = sym.Type.Kind == KindClass
	n.IsClass = recv.IsClass
	n.IsGlobal = recv.IsGlobal

	unknown := func(detail string) error {
		return &SemanticError{Kind: ErrUnknownMember, Pos: n.At, Name: recv.Name, Member: n.Member, Actual: sym.Type, Detail: detail}
	}
	m, ok := a.ctx.Members.Lookup(sym.Type, n.Member)
	if !ok {
		return TypeUnresolved, unknown("")
	}
	switch m.Kind {
	case MemberField:
		if n.HasParens {
			return TypeUnresolved, unknown("field is not callable")
		}
		if store && !n.IsClass {
			return TypeUnresolved, unknown("member is read-only")
		}
	case MemberMethod:
		if !n.HasParens {
			return TypeUnresolved, unknown("method must be called")
		}
		if store {
			return TypeUnresolved, unknown("cannot assign to a method")
		}
		if err := a.args(n.At, recv.Name+"."+n.Member, m.Params, n.Args); err != nil {
			return TypeUnresolved, err
		}
	}
	n.Typ = m.Result
	return m.Result, nil
}
