package compiler

import (
	"github.com/llir/llvm/ir/value"
)

// Scopes is a stack of name-to-symbol frames. The module frame is created
// with the stack and is never popped.
type Scopes[S any] struct {
	frames []map[string]S
}

func NewScopes[S any]() *Scopes[S] {
	return &Scopes[S]{frames: []map[string]S{{}}}
}

// Enter pushes a fresh, empty frame.
func (s *Scopes[S]) Enter() {
	s.frames = append(s.frames, map[string]S{})
}

// Exit pops the innermost frame.
func (s *Scopes[S]) Exit() {
	if len(s.frames) == 1 {
		panic("scope stack: cannot pop the module frame")
	}
	s.frames = s.frames[:len(s.frames)-1]
}

// Within runs fn inside a new frame. The frame is popped when fn returns or
// panics.
func (s *Scopes[S]) Within(fn func() error) error {
	s.Enter()
	defer s.Exit()
	return fn()
}

// Depth is the number of frames, including the module frame.
func (s *Scopes[S]) Depth() int {
	return len(s.frames)
}

// AtModule reports whether only the module frame is active.
func (s *Scopes[S]) AtModule() bool {
	return len(s.frames) == 1
}

// Declare binds name in the innermost frame. It returns false, leaving the
// frame unchanged, if the innermost frame already binds name.
func (s *Scopes[S]) Declare(name string, sym S) bool {
	frame := s.frames[len(s.frames)-1]
	if _, exists := frame[name]; exists {
		return false
	}
	frame[name] = sym
	return true
}

// Resolve searches frames innermost to outermost. depth is the 1-based index
// of the frame that bound name; 1 is the module frame.
func (s *Scopes[S]) Resolve(name string) (sym S, depth int, ok bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if sym, ok := s.frames[i][name]; ok {
			return sym, i + 1, true
		}
	}
	var zero S
	return zero, 0, false
}

// VarSymbol is an analysis-time variable binding.
type VarSymbol struct {
	Name        string
	Type        Type
	Initialized bool
	Global      bool
}

// SymbolTable is the analysis pass's scope stack.
type SymbolTable struct {
	*Scopes[*VarSymbol]
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{Scopes: NewScopes[*VarSymbol]()}
}

// DeclareVariable binds name in the innermost frame. Declarations in the
// module frame are globals.
func (st *SymbolTable) DeclareVariable(pos Position, name string, typ Type, initialized bool) (*VarSymbol, error) {
	sym := &VarSymbol{
		Name:        name,
		Type:        typ,
		Initialized: initialized,
		Global:      st.AtModule(),
	}
	if !st.Declare(name, sym) {
		return nil, &SemanticError{Kind: ErrRedeclaration, Pos: pos, Name: name}
	}
	return sym, nil
}

// LookupVariable resolves name, failing with undeclared-identifier.
func (st *SymbolTable) LookupVariable(pos Position, name string) (*VarSymbol, error) {
	sym, _, ok := st.Resolve(name)
	if !ok {
		return nil, &SemanticError{Kind: ErrUndeclaredIdentifier, Pos: pos, Name: name}
	}
	return sym, nil
}

// ReadVariable resolves name for a read, failing with
// use-before-initialization if no assignment has been seen yet.
func (st *SymbolTable) ReadVariable(pos Position, name string) (*VarSymbol, error) {
	sym, err := st.LookupVariable(pos, name)
	if err != nil {
		return nil, err
	}
	if !sym.Initialized {
		return nil, &SemanticError{Kind: ErrUseBeforeInitialization, Pos: pos, Name: name}
	}
	return sym, nil
}

// MarkInitialized sets the initialized flag on the nearest declaration of
// name.
func (st *SymbolTable) MarkInitialized(pos Position, name string) error {
	sym, err := st.LookupVariable(pos, name)
	if err != nil {
		return err
	}
	sym.Initialized = true
	return nil
}

// Slot is a codegen-time variable binding. Storage is an alloca for locals
// and parameters, or a module global.
type Slot struct {
	Name    string
	Storage value.Value
	Type    Type
	IsParam bool
}

// SlotTable is the code generation pass's scope stack. It mirrors the
// analysis nesting but shares no state with it.
type SlotTable struct {
	*Scopes[*Slot]
}

func NewSlotTable() *SlotTable {
	return &SlotTable{Scopes: NewScopes[*Slot]()}
}

// Bind records the storage for a freshly emitted declaration.
func (st *SlotTable) Bind(slot *Slot) error {
	if !st.Declare(slot.Name, slot) {
		return &InternalError{Msg: "storage for '" + slot.Name + "' bound twice in one scope"}
	}
	return nil
}

// Lookup finds the storage of the nearest binding of name.
func (st *SlotTable) Lookup(name string) (*Slot, error) {
	slot, _, ok := st.Resolve(name)
	if !ok {
		return nil, &InternalError{Msg: "no storage for '" + name + "'"}
	}
	return slot, nil
}

// FuncSig is a function table entry.
type FuncSig struct {
	Name   string
	Params []Type
	Return Type
}

// FuncTable holds every function signature of a compilation. It is never
// scoped: calls resolve regardless of lexical nesting.
type FuncTable struct {
	sigs  map[string]*FuncSig
	order []string
}

func NewFuncTable() *FuncTable {
	return &FuncTable{sigs: map[string]*FuncSig{}}
}

// reservedFunc reports whether name belongs to the entry point or the runtime.
func reservedFunc(name string) bool {
	switch name {
	case "main", "printf", "strcmp":
		return true
	}
	return len(name) >= 5 && name[:5] == "pyrx_"
}

// AddFunctionDefn registers sig, failing with duplicate-function if the name
// is taken.
func (ft *FuncTable) AddFunctionDefn(pos Position, sig *FuncSig) error {
	if _, exists := ft.sigs[sig.Name]; exists || reservedFunc(sig.Name) {
		return &SemanticError{Kind: ErrDuplicateFunction, Pos: pos, Name: sig.Name}
	}
	ft.sigs[sig.Name] = sig
	ft.order = append(ft.order, sig.Name)
	return nil
}

func (ft *FuncTable) Lookup(name string) (*FuncSig, bool) {
	sig, ok := ft.sigs[name]
	return sig, ok
}

// Names lists registered functions in definition order.
func (ft *FuncTable) Names() []string {
	return ft.order
}
