package compiler

import (
	"errors"
	"testing"

	"github.com/nalgeon/be"
)

func TestScopesShadowing(t *testing.T) {
	s := NewScopes[int]()
	be.True(t, s.AtModule())
	be.True(t, s.Declare("x", 1))
	be.Equal(t, s.Declare("x", 2), false)

	s.Enter()
	be.Equal(t, s.Depth(), 2)
	be.True(t, s.Declare("x", 3))

	v, depth, ok := s.Resolve("x")
	be.True(t, ok)
	be.Equal(t, v, 3)
	be.Equal(t, depth, 2)

	s.Exit()
	v, depth, ok = s.Resolve("x")
	be.True(t, ok)
	be.Equal(t, v, 1)
	be.Equal(t, depth, 1)

	_, _, ok = s.Resolve("y")
	be.Equal(t, ok, false)
}

func TestScopesWithinPopsOnError(t *testing.T) {
	s := NewScopes[string]()
	boom := errors.New("boom")
	err := s.Within(func() error {
		s.Declare("inner", "v")
		be.Equal(t, s.Depth(), 2)
		return boom
	})
	be.Err(t, err, boom)
	be.Equal(t, s.Depth(), 1)
	_, _, ok := s.Resolve("inner")
	be.Equal(t, ok, false)
}

func TestScopesWithinPopsOnPanic(t *testing.T) {
	s := NewScopes[int]()
	func() {
		defer func() { _ = recover() }()
		_ = s.Within(func() error {
			s.Enter()
			panic("unwind")
		})
	}()
	be.Equal(t, s.Depth(), 2)
}

func TestScopesExitModuleFramePanics(t *testing.T) {
	s := NewScopes[int]()
	defer func() {
		be.True(t, recover() != nil)
	}()
	s.Exit()
}

func TestSymbolTable(t *testing.T) {
	st := NewSymbolTable()
	pos := Position{Line: 1, Col: 1}

	g, err := st.DeclareVariable(pos, "g", TypeInt, true)
	be.Err(t, err, nil)
	be.True(t, g.Global)

	_, err = st.DeclareVariable(pos, "g", TypeFloat, false)
	var se *SemanticError
	be.True(t, errors.As(err, &se))
	be.Equal(t, se.Kind, ErrRedeclaration)

	err = st.Within(func() error {
		local, err := st.DeclareVariable(pos, "g", TypeFloat, false)
		be.Err(t, err, nil)
		be.Equal(t, local.Global, false)

		_, err = st.ReadVariable(pos, "g")
		be.True(t, errors.As(err, &se))
		be.Equal(t, se.Kind, ErrUseBeforeInitialization)

		be.Err(t, st.MarkInitialized(pos, "g"), nil)
		sym, err := st.ReadVariable(pos, "g")
		be.Err(t, err, nil)
		be.Equal(t, sym.Type, TypeFloat)
		return nil
	})
	be.Err(t, err, nil)

	sym, err := st.ReadVariable(pos, "g")
	be.Err(t, err, nil)
	be.Equal(t, sym.Type, TypeInt)

	_, err = st.LookupVariable(pos, "missing")
	be.True(t, errors.As(err, &se))
	be.Equal(t, se.Kind, ErrUndeclaredIdentifier)
}

func TestSlotTable(t *testing.T) {
	st := NewSlotTable()
	be.Err(t, st.Bind(&Slot{Name: "x", Type: TypeInt}), nil)

	var ie *InternalError
	be.True(t, errors.As(st.Bind(&Slot{Name: "x", Type: TypeInt}), &ie))

	st.Enter()
	be.Err(t, st.Bind(&Slot{Name: "x", Type: TypeChar, IsParam: true}), nil)
	slot, err := st.Lookup("x")
	be.Err(t, err, nil)
	be.True(t, slot.IsParam)
	st.Exit()

	slot, err = st.Lookup("x")
	be.Err(t, err, nil)
	be.Equal(t, slot.Type, TypeInt)

	_, err = st.Lookup("y")
	be.True(t, errors.As(err, &ie))
}

func TestFuncTable(t *testing.T) {
	ft := NewFuncTable()
	pos := Position{Line: 2, Col: 1}

	be.Err(t, ft.AddFunctionDefn(pos, &FuncSig{Name: "f", Params: []Type{TypeInt}, Return: TypeInt}), nil)
	be.Err(t, ft.AddFunctionDefn(pos, &FuncSig{Name: "g", Return: TypeVoid}), nil)
	be.Equal(t, ft.Names(), []string{"f", "g"})

	sig, ok := ft.Lookup("f")
	be.True(t, ok)
	be.Equal(t, sig.Params, []Type{TypeInt})

	for _, name := range []string{"f", "main", "printf", "strcmp", "pyrx_list_new"} {
		err := ft.AddFunctionDefn(pos, &FuncSig{Name: name, Return: TypeVoid})
		var se *SemanticError
		be.True(t, errors.As(err, &se))
		be.Equal(t, se.Kind, ErrDuplicateFunction)
	}

	_, ok = ft.Lookup("h")
	be.Equal(t, ok, false)
}
