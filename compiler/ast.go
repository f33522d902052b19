package compiler

// Node is one node of the syntax tree. The set of node types is closed: every
// implementation lives in this file and embeds Base.
type Node interface {
	Pos() Position
	Type() Type
	base() *Base
}

// Base holds the source position and the annotations written by analysis.
type Base struct {
	At Position

	// Set by analysis.
	Typ      Type
	IsGlobal bool // identifier or declaration lives at module level
	IsClass  bool // dot-call receiver is a class instance
}

func (b *Base) Pos() Position { return b.At }
func (b *Base) Type() Type    { return b.Typ }
func (b *Base) base() *Base   { return b }

// BlockID indexes the codegen block arena. Control-flow nodes store the ID of
// the block where control resumes after the construct.
type BlockID int

// NoBlock is the merge block placeholder analysis leaves on control-flow nodes.
const NoBlock BlockID = -1

// TypeOf returns the type analysis resolved for n, or TypeUnresolved if
// analysis has not visited it.
func TypeOf(n Node) Type {
	if n == nil {
		return TypeUnresolved
	}
	return n.Type()
}

// Literals.

type IntLit struct {
	Base
	Value int64
}

type FloatLit struct {
	Base
	Value float64
}

type CharLit struct {
	Base
	Value byte
}

type StringLit struct {
	Base
	Value string
}

type BoolLit struct {
	Base
	Value bool
}

// Ident is a variable reference.
type Ident struct {
	Base
	Name string
}

type Binary struct {
	Base
	Op          string
	Left, Right Node
}

type Unary struct {
	Base
	Op      string
	Operand Node
}

// VarDecl is `name: T;` for a scalar or class type.
type VarDecl struct {
	Base
	Name     string
	Declared Type
}

// VarDef is `name: T = value;`.
type VarDef struct {
	Base
	Name     string
	Declared Type
	Value    Node
}

// Assign is `name = value;`.
type Assign struct {
	Base
	Name  string
	Value Node
}

// FieldAssign is `name.field = value;` on a class instance.
type FieldAssign struct {
	Base
	Target *DotCall
	Value  Node
}

// Return's Value is nil for a bare `return;`.
type Return struct {
	Base
	Value Node
}

type If struct {
	Base
	Cond       Node
	Then       []Node
	Else       []Node // nil if there is no else arm; an else-if is a single *If
	MergeBlock BlockID
}

type While struct {
	Base
	Cond       Node
	Body       []Node
	MergeBlock BlockID
}

// For is `for (init; cond; step) { body }`. Init and Step are single simple
// statements.
type For struct {
	Base
	Init       Node
	Cond       Node
	Step       Node
	Body       []Node
	MergeBlock BlockID
}

type Call struct {
	Base
	Name string
	Args []Node
}

type Param struct {
	At   Position
	Name string
	Type Type
}

type FuncDef struct {
	Base
	Name   string
	Params []Param
	Return Type
	Body   []Node
}

type Print struct {
	Base
	Value Node
}

// ListDecl is `name: list<T>;` or `name: list<T> = [a, b, ...];`.
type ListDecl struct {
	Base
	Name     string
	Elem     Kind
	Elements []Node
}

// GraphDecl is `name: graph<T>;`.
type GraphDecl struct {
	Base
	Name string
	Elem Kind
}

type Field struct {
	At   Position
	Name string
	Type Type
}

type ClassDecl struct {
	Base
	Name   string
	Fields []Field
}

// DotCall is `receiver.member` or `receiver.member(args)`.
type DotCall struct {
	Base
	Receiver  *Ident
	Member    string
	Args      []Node
	HasParens bool
}

// Include is `include list;` or `include graph;`.
type Include struct {
	Base
	Library string
}

// ExprStmt wraps an expression used as a statement.
type ExprStmt struct {
	Base
	X Node
}

// Program is the root of a parsed source file.
type Program struct {
	Base
	Body []Node
}
